package chat

import "time"

// Role 消息发送方
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid 判断角色取值是否合法
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Modality 消息的原始载体
type Modality string

const (
	ModalityText  Modality = "text"
	ModalityVoice Modality = "voice"
	ModalityImage Modality = "image"
)

// Valid 判断载体取值是否合法
func (m Modality) Valid() bool {
	switch m {
	case ModalityText, ModalityVoice, ModalityImage:
		return true
	}
	return false
}

// Message persists individual turns. A message is immutable once stored;
// voice input is stored as its decoded text with Modality set to voice.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Modality  Modality  `json:"modality"`
	CreatedAt time.Time `json:"createdAt"`
}
