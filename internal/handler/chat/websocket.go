package chat

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	chatModel "github.com/wowinn/acg-ai/internal/model/chat"
	chatservice "github.com/wowinn/acg-ai/internal/service/chat"
	"github.com/wowinn/acg-ai/internal/service/conversation"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 30 * time.Second
	writeTimeout = 10 * time.Second
)

// WebSocketHandler 实时聊天通道。一条连接在升级时绑定一个会话，
// 之后逐帧串行走回合流水线：上一回合完成前不读取下一帧。
type WebSocketHandler struct {
	pipeline *conversation.Pipeline
	chatSvc  *chatservice.Service
	upgrader websocket.Upgrader
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(pipeline *conversation.Pipeline, chatSvc *chatservice.Service) *WebSocketHandler {
	return &WebSocketHandler{
		pipeline: pipeline,
		chatSvc:  chatSvc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *WebSocketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/chat/ws/{sessionID}", h.handleWebSocket)
}

// inboundFrame 入站帧：{message, type?}
type inboundFrame struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// replyFrame 成功帧
type replyFrame struct {
	Message     string    `json:"message"`
	CharacterID string    `json:"characterId,omitempty"`
	SessionID   string    `json:"sessionId"`
	Timestamp   time.Time `json:"timestamp"`
}

// errorFrame 错误帧；发送后连接保持打开
type errorFrame struct {
	Error string `json:"error"`
}

// handleWebSocket 处理WebSocket连接
func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		http.Error(w, "sessionID is required", http.StatusBadRequest)
		return
	}

	if _, err := h.chatSvc.GetSession(r.Context(), sessionID); err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("[websocket] new connection for session: %s", sessionID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	go h.pingLoop(ctx, conn)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[websocket] read error: %v", err)
			}
			return
		}

		conn.SetReadDeadline(time.Now().Add(readTimeout))

		// 结构不合法的帧只换来一个错误帧，连接保持打开。
		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			h.sendError(conn, "invalid frame")
			continue
		}

		h.handleFrame(ctx, conn, sessionID, frame)
	}
}

// handleFrame 处理一帧：校验、运行回合、写回。错误只影响这一帧。
func (h *WebSocketHandler) handleFrame(ctx context.Context, conn *websocket.Conn, sessionID string, frame inboundFrame) {
	if frame.Message == "" {
		h.sendError(conn, "message is required")
		return
	}

	modality := chatModel.ModalityText
	if frame.Type != "" {
		modality = chatModel.Modality(frame.Type)
	}

	result, err := h.pipeline.RunTurn(ctx, conversation.TurnRequest{
		SessionID: sessionID,
		Modality:  modality,
		Content:   frame.Message,
	})
	if err != nil {
		h.sendError(conn, err.Error())
		return
	}

	h.send(conn, replyFrame{
		Message:     result.AssistantMessage.Content,
		CharacterID: result.Session.CharacterID,
		SessionID:   result.Session.ID,
		Timestamp:   result.AssistantMessage.CreatedAt,
	})
}

func (h *WebSocketHandler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}

func (h *WebSocketHandler) send(conn *websocket.Conn, payload any) {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(payload); err != nil {
		log.Printf("[websocket] write failed: %v", err)
	}
}

func (h *WebSocketHandler) sendError(conn *websocket.Conn, message string) {
	h.send(conn, errorFrame{Error: message})
}
