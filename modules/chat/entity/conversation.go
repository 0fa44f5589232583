package entity

import (
	"time"

	"github.com/google/uuid"

	"chatcal/core/entity"
)

// Conversation groups a user's chat messages under a derived title and slug.
type Conversation struct {
	entity.BaseEntity
	UserID uuid.UUID `db:"user_id" json:"user_id"`
	Title  string    `db:"title" json:"title"`
	Slug   string    `db:"slug" json:"slug"`
}

// Message is one chat turn. MessageType records which backend path produced
// an assistant reply (chat, search, mini, image); user messages carry "user".
type Message struct {
	ID             string    `db:"id" json:"id"`
	ConversationID uuid.UUID `db:"conversation_id" json:"conversation_id"`
	Role           string    `db:"role" json:"role"`
	Content        string    `db:"content" json:"content"`
	MessageType    string    `db:"message_type" json:"message_type"`
	ImageURL       string    `db:"image_url" json:"image_url,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message types routed by the unified chat endpoint.
const (
	TypeChat   = "chat"
	TypeSearch = "search"
	TypeMini   = "mini"
	TypeImage  = "image"
)
