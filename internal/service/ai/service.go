package ai

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/wowinn/acg-ai/internal/config"
)

// FallbackReply 供应商不可用时返回给用户的固定降级文案。
const FallbackReply = "抱歉，AI服务暂时不可用。"

const systemPrompt = "你是一个专业的角色扮演AI助手。"

// Service wraps the configured provider behind a compiled eino chain. One
// Service is constructed at process start and shared by every caller.
type Service struct {
	chatModel model.ChatModel
	chain     compose.Runnable[map[string]any, *schema.Message]
	timeout   time.Duration
}

// NewService builds the chat chain from configuration. When no credential is
// configured the Service still works: every Reply degrades to the fallback
// text instead of failing the turn.
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	svc := &Service{timeout: cfg.Timeout}

	if !cfg.Enabled() {
		return svc, nil
	}

	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(systemPrompt),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	svc.chatModel = chatModel
	svc.chain = runnable
	return svc, nil
}

// Enabled reports whether a provider is actually wired in.
func (s *Service) Enabled() bool {
	return s.chain != nil
}

// Reply invokes the provider with the rendered prompt under the configured
// timeout. Provider faults never propagate: missing credential, network
// failure and timeout all degrade to FallbackReply so the turn pipeline stays
// available.
func (s *Service) Reply(ctx context.Context, renderedPrompt string) string {
	if !s.Enabled() {
		return FallbackReply
	}

	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	response, err := s.chain.Invoke(callCtx, map[string]any{"query": renderedPrompt})
	if err != nil {
		log.Printf("[ai] provider call failed: %v", err)
		return FallbackReply
	}

	text := strings.TrimSpace(response.Content)
	if text == "" {
		log.Printf("[ai] provider returned empty completion")
		return FallbackReply
	}
	return text
}
