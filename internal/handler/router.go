package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	characterHandler "github.com/wowinn/acg-ai/internal/handler/character"
	chatHandler "github.com/wowinn/acg-ai/internal/handler/chat"
	middlewarePkg "github.com/wowinn/acg-ai/internal/middleware"
	characterModel "github.com/wowinn/acg-ai/internal/model/character"
	chatService "github.com/wowinn/acg-ai/internal/service/chat"
	"github.com/wowinn/acg-ai/internal/service/conversation"
	"github.com/wowinn/acg-ai/internal/service/voice"
	"github.com/wowinn/acg-ai/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(characters characterModel.Store, chatSvc *chatService.Service, pipeline *conversation.Pipeline, codec voice.Codec) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	ch := chatHandler.New(pipeline, chatSvc, codec)
	wsHandler := chatHandler.NewWebSocketHandler(pipeline, chatSvc)
	charH := characterHandler.New(characters)

	r.Route("/api", func(api chi.Router) {
		charH.RegisterRoutes(api)
		ch.RegisterRoutes(api)
		wsHandler.RegisterRoutes(api)

		api.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
		})
	})

	return r
}
