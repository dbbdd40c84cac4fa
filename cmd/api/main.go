package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/wowinn/acg-ai/internal/config"
	"github.com/wowinn/acg-ai/internal/handler"
	"github.com/wowinn/acg-ai/internal/model/character"
	"github.com/wowinn/acg-ai/internal/service/ai"
	"github.com/wowinn/acg-ai/internal/service/chat"
	"github.com/wowinn/acg-ai/internal/service/conversation"
	"github.com/wowinn/acg-ai/internal/service/voice"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Initialize character directory and transcript store
	characterStore := character.NewMemoryStore(character.Seed())
	chatService := chat.NewService()

	// Initialize generation client; without credentials every reply degrades
	// to the fallback text but the service still runs.
	aiService, err := ai.NewService(ctx, cfg.AI)
	if err != nil {
		log.Fatalf("failed to initialize AI service: %v", err)
	}
	if aiService.Enabled() {
		log.Println("AI service initialized successfully")
	} else {
		log.Println("生成服务凭证未配置，所有回复将使用降级文案")
	}

	pipeline := conversation.New(chatService, characterStore, aiService, cfg.Chat.HistoryLimit)

	// Initialize voice codec
	var codec voice.Codec
	if cfg.Speech.Enabled {
		codec = voice.NewService(cfg.Speech)
		log.Println("Voice service initialized successfully")
	} else {
		log.Println("语音服务凭证未配置，跳过语音功能初始化")
	}

	router := handler.NewRouter(characterStore, chatService, pipeline, codec)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("ACG-AI backend listening on %s", serverCfg.Addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
