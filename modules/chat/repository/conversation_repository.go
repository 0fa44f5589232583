package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"chatcal/core/database"
	"chatcal/core/logger"
	"chatcal/modules/chat/entity"
)

var ErrConversationNotFound = errors.New("chat: conversation not found")

type ConversationRepositoryInterface interface {
	Create(ctx context.Context, conv *entity.Conversation) error
	GetByID(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*entity.Conversation, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]entity.Conversation, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int, error)
	Delete(ctx context.Context, id uuid.UUID, userID uuid.UUID) error
	Touch(ctx context.Context, id uuid.UUID) error

	AppendMessage(ctx context.Context, msg *entity.Message) error
	ListMessages(ctx context.Context, conversationID uuid.UUID) ([]entity.Message, error)
}

type conversationRepository struct {
	db database.IDatabase
}

func NewConversationRepository(db database.IDatabase) ConversationRepositoryInterface {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) Create(ctx context.Context, conv *entity.Conversation) error {
	query := `
		INSERT INTO conversations (id, user_id, title, slug, created_at, updated_at)
		VALUES (:id, :user_id, :title, :slug, NOW(), NOW())`

	if _, err := r.db.NamedExecContext(ctx, query, conv); err != nil {
		logger.Error("ConversationRepository:Create:Error", "error", err)
		return err
	}
	return nil
}

func (r *conversationRepository) GetByID(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*entity.Conversation, error) {
	query := `SELECT id, user_id, title, slug, created_at, updated_at
		FROM conversations WHERE id = $1 AND user_id = $2`

	var conv entity.Conversation
	err := r.db.GetContext(ctx, &conv, query, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		logger.Error("ConversationRepository:GetByID:Error", "error", err)
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]entity.Conversation, error) {
	query := `SELECT id, user_id, title, slug, created_at, updated_at
		FROM conversations WHERE user_id = $1
		ORDER BY updated_at DESC LIMIT $2 OFFSET $3`

	conversations := []entity.Conversation{}
	if err := r.db.SelectContext(ctx, &conversations, query, userID, limit, offset); err != nil {
		logger.Error("ConversationRepository:ListByUser:Error", "error", err)
		return nil, err
	}
	return conversations, nil
}

func (r *conversationRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM conversations WHERE user_id = $1`

	var total int
	if err := r.db.GetContext(ctx, &total, query, userID); err != nil {
		logger.Error("ConversationRepository:CountByUser:Error", "error", err)
		return 0, err
	}
	return total, nil
}

// Delete removes the conversation and, via the FK cascade, its messages.
func (r *conversationRepository) Delete(ctx context.Context, id uuid.UUID, userID uuid.UUID) error {
	query := `DELETE FROM conversations WHERE id = $1 AND user_id = $2 RETURNING id`

	var deleted uuid.UUID
	err := r.db.QueryRowContext(ctx, query, id, userID).Scan(&deleted)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrConversationNotFound
	}
	if err != nil {
		logger.Error("ConversationRepository:Delete:Error", "error", err)
		return err
	}
	return nil
}

func (r *conversationRepository) Touch(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE conversations SET updated_at = NOW() WHERE id = $1`
	return r.db.ExecContext(ctx, query, id)
}

func (r *conversationRepository) AppendMessage(ctx context.Context, msg *entity.Message) error {
	query := `
		INSERT INTO messages (id, conversation_id, role, content, message_type, image_url, created_at)
		VALUES (:id, :conversation_id, :role, :content, :message_type, :image_url, NOW())`

	if _, err := r.db.NamedExecContext(ctx, query, msg); err != nil {
		logger.Error("ConversationRepository:AppendMessage:Error", "error", err)
		return err
	}
	return nil
}

func (r *conversationRepository) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]entity.Message, error) {
	query := `SELECT id, conversation_id, role, content, message_type, image_url, created_at
		FROM messages WHERE conversation_id = $1 ORDER BY created_at ASC`

	messages := []entity.Message{}
	if err := r.db.SelectContext(ctx, &messages, query, conversationID); err != nil {
		logger.Error("ConversationRepository:ListMessages:Error", "error", err)
		return nil, err
	}
	return messages, nil
}
