package character

import (
	"errors"
	"sort"
	"strings"
	"sync"
)

// ErrNotFound 角色不存在或已下线
var ErrNotFound = errors.New("character not found")

// Store exposes character retrieval for handlers and the turn pipeline.
type Store interface {
	List(category Category) []Character
	FindByID(id string) (Character, bool)
	Search(query string, category Category, limit int) []Character
	Popular(limit int, category Category) []Character
	IncrementPopularity(id string) error
}

// MemoryStore implements Store with an in-memory slice. Popularity updates go
// through the store mutex so concurrent turns never lose an increment.
type MemoryStore struct {
	mu    sync.RWMutex
	items []Character
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied characters.
func NewMemoryStore(items []Character) *MemoryStore {
	return &MemoryStore{items: append([]Character(nil), items...)}
}

// List returns active characters, optionally filtered by category.
func (s *MemoryStore) List(category Category) []Character {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Character, 0, len(s.items))
	for _, item := range s.items {
		if !item.Active {
			continue
		}
		if category != "" && item.Category != category {
			continue
		}
		result = append(result, item)
	}
	return result
}

// FindByID looks up an active character by identifier.
func (s *MemoryStore) FindByID(id string) (Character, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, item := range s.items {
		if item.ID == id && item.Active {
			return item, true
		}
	}
	return Character{}, false
}

// Search matches the query against names, series and descriptive fields,
// returning results ordered by popularity.
func (s *MemoryStore) Search(query string, category Category, limit int) []Character {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}

	matched := make([]Character, 0, 8)
	for _, item := range s.List(category) {
		if characterMatches(item, query) {
			matched = append(matched, item)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Popularity > matched[j].Popularity
	})

	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched
}

func characterMatches(c Character, query string) bool {
	fields := []string{
		c.Name, c.NameEN, c.NameJP,
		c.Series, c.SeriesEN, c.SeriesJP,
		c.Description, c.Personality, c.Abilities, c.Tags,
	}
	for _, field := range fields {
		if field != "" && strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}

// Popular returns the highest-popularity active characters.
func (s *MemoryStore) Popular(limit int, category Category) []Character {
	items := s.List(category)
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Popularity > items[j].Popularity
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

// IncrementPopularity 在 store 锁内自增人气值，并发回合不会丢失更新。
func (s *MemoryStore) IncrementPopularity(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].ID == id && s.items[i].Active {
			s.items[i].Popularity++
			return nil
		}
	}
	return ErrNotFound
}
