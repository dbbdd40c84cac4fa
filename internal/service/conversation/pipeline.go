package conversation

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/wowinn/acg-ai/internal/model/character"
	"github.com/wowinn/acg-ai/internal/model/chat"
	"github.com/wowinn/acg-ai/internal/service/ai"
	chatservice "github.com/wowinn/acg-ai/internal/service/chat"
)

// Generator produces the assistant reply for a rendered prompt. Provider
// faults are handled inside the implementation; Reply never fails.
type Generator interface {
	Reply(ctx context.Context, renderedPrompt string) string
}

// Pipeline turns one inbound message into a persisted conversation turn. The
// same pipeline backs the synchronous endpoint, the voice endpoint and the
// websocket channel, so the three paths cannot diverge in behavior.
type Pipeline struct {
	chatSvc      *chatservice.Service
	characters   character.Store
	generator    Generator
	historyLimit int
}

// New wires the pipeline dependencies. historyLimit is the context window
// size K.
func New(chatSvc *chatservice.Service, characters character.Store, generator Generator, historyLimit int) *Pipeline {
	return &Pipeline{
		chatSvc:      chatSvc,
		characters:   characters,
		generator:    generator,
		historyLimit: historyLimit,
	}
}

// TurnRequest 描述一次入站消息。SessionID 为空时创建新会话，
// CharacterID 为空时走通用助手模式。
type TurnRequest struct {
	SessionID   string
	CharacterID string
	Modality    chat.Modality
	Content     string
}

// TurnResult carries the resolved session and both persisted turns.
type TurnResult struct {
	Session          chat.Session
	UserMessage      chat.Message
	AssistantMessage chat.Message
}

// RunTurn executes one turn end to end: resolve session, persist the user
// turn, build the context window, render the prompt, generate (degrading to
// the fallback text on provider failure), persist the assistant turn, return
// both. The user turn is always persisted before generation is attempted, and
// exactly one assistant turn is persisted per invocation.
func (p *Pipeline) RunTurn(ctx context.Context, req TurnRequest) (TurnResult, error) {
	if strings.TrimSpace(req.Content) == "" {
		return TurnResult{}, chatservice.ErrEmptyContent
	}

	session, err := p.resolveSession(ctx, req)
	if err != nil {
		return TurnResult{}, err
	}

	// 会话绑定的角色必须仍然有效，否则在持久化任何内容之前拒绝。
	var boundCharacter *character.Character
	if session.CharacterID != "" {
		c, ok := p.characters.FindByID(session.CharacterID)
		if !ok {
			return TurnResult{}, character.ErrNotFound
		}
		boundCharacter = &c
	}

	userMsg, err := p.chatSvc.AppendMessage(ctx, chat.Message{
		SessionID: session.ID,
		Role:      chat.RoleUser,
		Content:   req.Content,
		Modality:  req.Modality,
	})
	if err != nil {
		return TurnResult{}, err
	}

	window, err := p.contextWindow(ctx, session.ID, userMsg.ID)
	if err != nil {
		return TurnResult{}, err
	}

	var renderedPrompt string
	if boundCharacter != nil {
		renderedPrompt = ai.BuildCharacterPrompt(*boundCharacter, window, req.Content)
	} else {
		renderedPrompt = ai.BuildGeneralPrompt(window, req.Content)
	}

	// 供应商失败在 Generator 内部降级为固定文案，这里拿到的文本总是可用的。
	replyText := p.generator.Reply(ctx, renderedPrompt)

	assistantMsg, err := p.chatSvc.AppendMessage(ctx, chat.Message{
		SessionID: session.ID,
		Role:      chat.RoleAssistant,
		Content:   replyText,
		Modality:  chat.ModalityText,
	})
	if err != nil {
		return TurnResult{}, err
	}

	if boundCharacter != nil {
		if err := p.characters.IncrementPopularity(boundCharacter.ID); err != nil {
			log.Printf("[pipeline] popularity increment failed for character=%s: %v", boundCharacter.ID, err)
		}
	}

	session, err = p.chatSvc.GetSession(ctx, session.ID)
	if err != nil {
		return TurnResult{}, err
	}

	return TurnResult{
		Session:          session,
		UserMessage:      userMsg,
		AssistantMessage: assistantMsg,
	}, nil
}

// resolveSession 找到既有会话或创建新会话。显式引用的会话缺失或已停用时
// 直接返回 NotFound，不做任何持久化。
func (p *Pipeline) resolveSession(ctx context.Context, req TurnRequest) (chat.Session, error) {
	if req.SessionID != "" {
		return p.chatSvc.GetSession(ctx, req.SessionID)
	}

	if req.CharacterID != "" {
		if _, ok := p.characters.FindByID(req.CharacterID); !ok {
			return chat.Session{}, character.ErrNotFound
		}
	}

	return p.chatSvc.CreateSession(ctx, req.CharacterID, sessionName(req))
}

// contextWindow returns the K most recent turns preceding the just-persisted
// user message, oldest first. The new user message is rendered separately by
// the prompt builder, so it is excluded here.
func (p *Pipeline) contextWindow(ctx context.Context, sessionID, userMessageID string) ([]chat.Message, error) {
	window, err := p.chatSvc.RecentMessages(ctx, sessionID, p.historyLimit+1)
	if err != nil {
		return nil, err
	}

	if n := len(window); n > 0 && window[n-1].ID == userMessageID {
		window = window[:n-1]
	}
	if len(window) > p.historyLimit {
		window = window[len(window)-p.historyLimit:]
	}
	return window, nil
}

func sessionName(req TurnRequest) string {
	if req.CharacterID == "" {
		return "新对话"
	}
	if req.Modality == chat.ModalityVoice {
		return fmt.Sprintf("Voice Chat with Character %s", req.CharacterID)
	}
	return fmt.Sprintf("Chat with Character %s", req.CharacterID)
}
