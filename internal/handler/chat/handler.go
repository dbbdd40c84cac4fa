package chat

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wowinn/acg-ai/internal/model/character"
	chatModel "github.com/wowinn/acg-ai/internal/model/chat"
	chatservice "github.com/wowinn/acg-ai/internal/service/chat"
	"github.com/wowinn/acg-ai/internal/service/conversation"
	"github.com/wowinn/acg-ai/internal/service/voice"
	"github.com/wowinn/acg-ai/pkg/utils"
)

// 语音识别失败时按错误类型返回给用户的致歉文案。
const (
	apologyUnintelligible = "抱歉，我听不清楚您说的话。"
	apologyASRUnavailable = "抱歉，语音识别服务暂时不可用。"
	apologyASRFailed      = "抱歉，语音消息处理失败。"
)

// Handler 聊天编排的HTTP处理器
type Handler struct {
	pipeline *conversation.Pipeline
	chatSvc  *chatservice.Service
	codec    voice.Codec
}

// New 创建聊天处理器。codec 为 nil 时语音端点返回 503。
func New(pipeline *conversation.Pipeline, chatSvc *chatservice.Service, codec voice.Codec) *Handler {
	return &Handler{
		pipeline: pipeline,
		chatSvc:  chatSvc,
		codec:    codec,
	}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/chat", func(cr chi.Router) {
		cr.Post("/send", h.handleSend)
		cr.Post("/send/general", h.handleSendGeneral)
		cr.Post("/voice", h.handleVoice)

		cr.Post("/sessions", h.handleCreateSession)
		cr.Get("/sessions", h.handleListSessions)
		cr.Get("/sessions/{sessionID}", h.handleGetSession)
		cr.Delete("/sessions/{sessionID}", h.handleDeleteSession)
		cr.Get("/sessions/{sessionID}/messages", h.handleGetMessages)
	})
}

type sendRequest struct {
	Message     string `json:"message"`
	CharacterID string `json:"characterId"`
	SessionID   string `json:"sessionId"`
	MessageType string `json:"messageType"`
}

type sendResponse struct {
	Message     string    `json:"message"`
	CharacterID string    `json:"characterId,omitempty"`
	SessionID   string    `json:"sessionId"`
	MessageType string    `json:"messageType"`
	CreatedAt   time.Time `json:"createdAt"`
}

// handleSend 发送聊天消息，按需创建会话
func (h *Handler) handleSend(w http.ResponseWriter, r *http.Request) {
	var payload sendRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	modality := chatModel.Modality(payload.MessageType)
	if payload.MessageType == "" {
		modality = chatModel.ModalityText
	}

	result, err := h.pipeline.RunTurn(r.Context(), conversation.TurnRequest{
		SessionID:   payload.SessionID,
		CharacterID: payload.CharacterID,
		Modality:    modality,
		Content:     payload.Message,
	})
	if err != nil {
		respondTurnError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, sendResponse{
		Message:     result.AssistantMessage.Content,
		CharacterID: result.Session.CharacterID,
		SessionID:   result.Session.ID,
		MessageType: string(result.AssistantMessage.Modality),
		CreatedAt:   result.AssistantMessage.CreatedAt,
	})
}

// handleSendGeneral 发送通用聊天消息（不绑定角色）
func (h *Handler) handleSendGeneral(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Message   string `json:"message"`
		SessionID string `json:"sessionId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.pipeline.RunTurn(r.Context(), conversation.TurnRequest{
		SessionID: payload.SessionID,
		Modality:  chatModel.ModalityText,
		Content:   payload.Message,
	})
	if err != nil {
		respondTurnError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, sendResponse{
		Message:     result.AssistantMessage.Content,
		SessionID:   result.Session.ID,
		MessageType: string(result.AssistantMessage.Modality),
		CreatedAt:   result.AssistantMessage.CreatedAt,
	})
}

type voiceRequest struct {
	AudioData   string `json:"audioData"`
	CharacterID string `json:"characterId"`
	SessionID   string `json:"sessionId"`
}

type voiceResponse struct {
	Text          string `json:"text"`
	AudioResponse string `json:"audioResponse,omitempty"`
	CharacterID   string `json:"characterId,omitempty"`
	SessionID     string `json:"sessionId,omitempty"`
}

// handleVoice 处理语音消息：解码、走回合流水线、再合成回复语音。
// 识别失败降级为致歉文案，不持久化任何回合；合成失败只丢弃音频，文本照常返回。
func (h *Handler) handleVoice(w http.ResponseWriter, r *http.Request) {
	if h.codec == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "voice service unavailable")
		return
	}

	var payload voiceRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	audio, err := base64.StdEncoding.DecodeString(payload.AudioData)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "audioData must be base64 encoded")
		return
	}

	if err := voice.ValidateAudio(audio); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	text, err := h.codec.Transcribe(r.Context(), audio)
	if err != nil {
		log.Printf("[voice] transcribe failed: %v", err)
		utils.RespondJSON(w, http.StatusOK, voiceResponse{
			Text:        transcribeApology(err),
			CharacterID: payload.CharacterID,
			SessionID:   payload.SessionID,
		})
		return
	}

	result, err := h.pipeline.RunTurn(r.Context(), conversation.TurnRequest{
		SessionID:   payload.SessionID,
		CharacterID: payload.CharacterID,
		Modality:    chatModel.ModalityVoice,
		Content:     text,
	})
	if err != nil {
		respondTurnError(w, err)
		return
	}

	resp := voiceResponse{
		Text:        result.AssistantMessage.Content,
		CharacterID: result.Session.CharacterID,
		SessionID:   result.Session.ID,
	}

	if audioReply, err := h.codec.Synthesize(r.Context(), result.AssistantMessage.Content); err != nil {
		// 合成失败只影响音频，文本回复照常返回。
		log.Printf("[voice] synthesize failed: %v", err)
	} else {
		resp.AudioResponse = base64.StdEncoding.EncodeToString(audioReply)
	}

	utils.RespondJSON(w, http.StatusOK, resp)
}

func transcribeApology(err error) string {
	switch {
	case errors.Is(err, voice.ErrUnintelligible):
		return apologyUnintelligible
	case errors.Is(err, voice.ErrProviderUnavailable):
		return apologyASRUnavailable
	default:
		return apologyASRFailed
	}
}

// handleCreateSession 显式创建会话
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		CharacterID string `json:"characterId"`
		Name        string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.chatSvc.CreateSession(r.Context(), payload.CharacterID, payload.Name)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusCreated, session)
}

// handleListSessions 获取会话列表
func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	characterID := r.URL.Query().Get("characterId")
	utils.RespondJSON(w, http.StatusOK, h.chatSvc.ListSessions(r.Context(), characterID))
}

// handleGetSession 获取单个会话
func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.chatSvc.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, session)
}

// handleDeleteSession 停用会话（软删除）
func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.chatSvc.DeactivateSession(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

// handleGetMessages 获取会话消息历史
func (h *Handler) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			utils.RespondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	messages, err := h.chatSvc.Messages(r.Context(), chi.URLParam(r, "sessionID"), limit)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, messages)
}

// respondTurnError 将流水线错误映射为HTTP状态。
func respondTurnError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chatservice.ErrSessionNotFound), errors.Is(err, character.ErrNotFound):
		utils.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, chatservice.ErrEmptyContent),
		errors.Is(err, chatservice.ErrInvalidRole),
		errors.Is(err, chatservice.ErrInvalidModality):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	default:
		utils.RespondError(w, http.StatusInternalServerError, "failed to process message")
	}
}
