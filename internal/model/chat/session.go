package chat

import "time"

// Session captures one conversation thread, optionally bound to a character.
// CharacterID 为空表示通用助手模式。
type Session struct {
	ID          string    `json:"id"`
	CharacterID string    `json:"characterId,omitempty"`
	Name        string    `json:"name"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
