package dto

import (
	"time"

	"github.com/google/uuid"
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// UnifiedChatRequest is the single chat entry point. ForceType skips the
// classifier; an absent ConversationID starts a new conversation.
type UnifiedChatRequest struct {
	Messages       []ChatMessage `json:"messages"`
	ConversationID *uuid.UUID    `json:"conversation_id,omitempty"`
	ForceType      string        `json:"force_type,omitempty"`
	ModelOverride  string        `json:"model_override,omitempty"`
	Temperature    *float64      `json:"temperature,omitempty"`
}

type UnifiedChatResponse struct {
	ConversationID uuid.UUID   `json:"conversation_id"`
	Message        ReplyDetail `json:"message"`
	ModelUsed      string      `json:"model_used"`
	CreatedAt      time.Time   `json:"created_at"`
}

type ReplyDetail struct {
	ID          string `json:"id"`
	Role        string `json:"role"`
	Content     string `json:"content"`
	MessageType string `json:"message_type"`
	ImageURL    string `json:"image_url,omitempty"`
}

type ConversationSummary struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ConversationDetail struct {
	ConversationSummary
	Messages []ReplyDetail `json:"messages"`
}
