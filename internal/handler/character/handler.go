package character

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/wowinn/acg-ai/internal/model/character"
	"github.com/wowinn/acg-ai/pkg/utils"
)

// Handler 角色目录的HTTP处理器（只读）
type Handler struct {
	characters character.Store
}

// New 创建角色处理器
func New(characters character.Store) *Handler {
	return &Handler{characters: characters}
}

// RegisterRoutes 注册角色相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/characters", func(cr chi.Router) {
		cr.Get("/", h.handleList)
		cr.Get("/popular", h.handlePopular)
		cr.Get("/search", h.handleSearch)
		cr.Get("/{characterID}", h.handleGet)
	})
}

// handleList 获取角色列表，可按类型过滤
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	category := character.Category(r.URL.Query().Get("category"))
	if category != "" && !category.Valid() {
		utils.RespondError(w, http.StatusBadRequest, "invalid category")
		return
	}
	utils.RespondJSON(w, http.StatusOK, h.characters.List(category))
}

// handleGet 获取单个角色，每次查看增加人气值
func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "characterID")
	c, ok := h.characters.FindByID(id)
	if !ok {
		utils.RespondError(w, http.StatusNotFound, character.ErrNotFound.Error())
		return
	}

	// 查看详情算一次人气；丢失的增量由 store 的锁避免。
	_ = h.characters.IncrementPopularity(id)
	c.Popularity++

	utils.RespondJSON(w, http.StatusOK, c)
}

// handlePopular 获取热门角色
func (h *Handler) handlePopular(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r, 10)
	if !ok {
		return
	}

	category := character.Category(r.URL.Query().Get("category"))
	if category != "" && !category.Valid() {
		utils.RespondError(w, http.StatusBadRequest, "invalid category")
		return
	}

	utils.RespondJSON(w, http.StatusOK, h.characters.Popular(limit, category))
}

// handleSearch 搜索角色
func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		utils.RespondError(w, http.StatusBadRequest, "q query parameter is required")
		return
	}

	category := character.Category(r.URL.Query().Get("category"))
	if category != "" && !category.Valid() {
		utils.RespondError(w, http.StatusBadRequest, "invalid category")
		return
	}

	limit, ok := parseLimit(w, r, 10)
	if !ok {
		return
	}

	results := h.characters.Search(query, category, limit)
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"characters": results,
		"total":      len(results),
		"query":      query,
	})
}

func parseLimit(w http.ResponseWriter, r *http.Request, defaultLimit int) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultLimit, true
	}

	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 1 || parsed > 50 {
		utils.RespondError(w, http.StatusBadRequest, "invalid limit")
		return 0, false
	}
	return parsed, true
}
