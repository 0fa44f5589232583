package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"chatcal/core/constants"
	coredto "chatcal/core/dto"
	"chatcal/core/errors"
	"chatcal/core/logger"
	"chatcal/core/utils"
	"chatcal/modules/chat/dto"
	"chatcal/modules/chat/entity"
	"chatcal/modules/chat/repository"
)

type ChatServiceInterface interface {
	UnifiedChat(ctx context.Context, userID uuid.UUID, req dto.UnifiedChatRequest) (*dto.UnifiedChatResponse, error)
	ListConversations(ctx context.Context, userID uuid.UUID, page int) (*coredto.Pagination[dto.ConversationSummary], error)
	GetConversation(ctx context.Context, userID uuid.UUID, id uuid.UUID) (*dto.ConversationDetail, error)
	DeleteConversation(ctx context.Context, userID uuid.UUID, id uuid.UUID) error
	ImageURL(ctx context.Context, key string) (string, error)
}

type chatService struct {
	repo   repository.ConversationRepositoryInterface
	ai     AIClient
	images ImageStore
}

func NewChatService(repo repository.ConversationRepositoryInterface, ai AIClient, images ImageStore) ChatServiceInterface {
	return &chatService{
		repo:   repo,
		ai:     ai,
		images: images,
	}
}

// UnifiedChat is the single entry point for all chat turns. The last user
// message is classified (unless force_type is given) and routed to the
// matching model; image requests additionally produce a stored image URL.
func (s *chatService) UnifiedChat(ctx context.Context, userID uuid.UUID, req dto.UnifiedChatRequest) (*dto.UnifiedChatResponse, error) {
	userMessage, err := lastUserMessage(req.Messages)
	if err != nil {
		return nil, err
	}

	conv, err := s.resolveConversation(ctx, userID, req.ConversationID, userMessage)
	if err != nil {
		return nil, err
	}

	messageType := strings.ToLower(strings.TrimSpace(req.ForceType))
	switch messageType {
	case entity.TypeChat, entity.TypeSearch, entity.TypeMini, entity.TypeImage:
	case "":
		messageType, err = s.ai.ClassifyIntent(ctx, userMessage)
		if err != nil {
			logger.Error("ChatService:UnifiedChat:Classify:Error", "error", err)
			return nil, errors.NewAppError(errors.ErrInternalServer, "failed to classify request", err)
		}
	default:
		return nil, errors.NewAppError(errors.ErrInvalidInput,
			fmt.Sprintf("unknown force_type %q", req.ForceType), nil)
	}

	if err := s.repo.AppendMessage(ctx, &entity.Message{
		ID:             utils.GenerateID(),
		ConversationID: conv.ID,
		Role:           entity.RoleUser,
		Content:        userMessage,
		MessageType:    messageType,
	}); err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to store message", err)
	}

	reply := entity.Message{
		ID:             utils.GenerateID(),
		ConversationID: conv.ID,
		Role:           entity.RoleAssistant,
		MessageType:    messageType,
	}

	model := modelForType(messageType)
	if req.ModelOverride != "" {
		model = req.ModelOverride
	}

	if messageType == entity.TypeImage {
		model = constants.ImageModel
		imageURL, err := s.generateAndStoreImage(ctx, conv.ID, userMessage)
		if err != nil {
			return nil, err
		}
		reply.Content = "Here is the image you asked for."
		reply.ImageURL = imageURL
	} else {
		content, err := s.ai.ChatCompletion(ctx, model, req.Messages, req.Temperature)
		if err != nil {
			logger.Error("ChatService:UnifiedChat:Completion:Error", "type", messageType, "error", err)
			return nil, errors.NewAppError(errors.ErrInternalServer, "model request failed", err)
		}
		reply.Content = content
	}

	if err := s.repo.AppendMessage(ctx, &reply); err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to store reply", err)
	}
	if err := s.repo.Touch(ctx, conv.ID); err != nil {
		logger.Warn("ChatService:UnifiedChat:Touch:Error", "error", err)
	}

	return &dto.UnifiedChatResponse{
		ConversationID: conv.ID,
		Message: dto.ReplyDetail{
			ID:          reply.ID,
			Role:        reply.Role,
			Content:     reply.Content,
			MessageType: reply.MessageType,
			ImageURL:    reply.ImageURL,
		},
		ModelUsed: model,
		CreatedAt: time.Now(),
	}, nil
}

// ImageURL resolves a stored image key to a short-lived signed URL.
func (s *chatService) ImageURL(ctx context.Context, key string) (string, error) {
	signed, err := s.images.PresignGet(ctx, key, constants.ImageURLLifetime)
	if err != nil {
		return "", errors.NewAppError(errors.ErrInternalServer, "failed to sign image url", err)
	}
	return signed, nil
}

func (s *chatService) ListConversations(ctx context.Context, userID uuid.UUID, page int) (*coredto.Pagination[dto.ConversationSummary], error) {
	if page < 1 {
		page = 1
	}
	pageSize := constants.ConversationPageSize

	total, err := s.repo.CountByUser(ctx, userID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to count conversations", err)
	}

	conversations, err := s.repo.ListByUser(ctx, userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to list conversations", err)
	}

	summaries := make([]dto.ConversationSummary, 0, len(conversations))
	for _, conv := range conversations {
		summaries = append(summaries, dto.ConversationSummary{
			ID:        conv.ID,
			Title:     conv.Title,
			Slug:      conv.Slug,
			CreatedAt: conv.CreatedAt,
			UpdatedAt: conv.UpdatedAt,
		})
	}

	return &coredto.Pagination[dto.ConversationSummary]{
		Items:      summaries,
		TotalItems: total,
		TotalPages: (total + pageSize - 1) / pageSize,
		PageNumber: page,
		PageSize:   pageSize,
	}, nil
}

func (s *chatService) GetConversation(ctx context.Context, userID uuid.UUID, id uuid.UUID) (*dto.ConversationDetail, error) {
	conv, err := s.repo.GetByID(ctx, id, userID)
	if err != nil {
		if err == repository.ErrConversationNotFound {
			return nil, errors.NewAppError(errors.ErrNotFound, "conversation not found", err)
		}
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to load conversation", err)
	}

	messages, err := s.repo.ListMessages(ctx, id)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to load messages", err)
	}

	detail := &dto.ConversationDetail{
		ConversationSummary: dto.ConversationSummary{
			ID:        conv.ID,
			Title:     conv.Title,
			Slug:      conv.Slug,
			CreatedAt: conv.CreatedAt,
			UpdatedAt: conv.UpdatedAt,
		},
		Messages: make([]dto.ReplyDetail, 0, len(messages)),
	}
	for _, msg := range messages {
		detail.Messages = append(detail.Messages, dto.ReplyDetail{
			ID:          msg.ID,
			Role:        msg.Role,
			Content:     msg.Content,
			MessageType: msg.MessageType,
			ImageURL:    msg.ImageURL,
		})
	}
	return detail, nil
}

func (s *chatService) DeleteConversation(ctx context.Context, userID uuid.UUID, id uuid.UUID) error {
	err := s.repo.Delete(ctx, id, userID)
	if err == repository.ErrConversationNotFound {
		return errors.NewAppError(errors.ErrNotFound, "conversation not found", err)
	}
	if err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "failed to delete conversation", err)
	}
	return nil
}

func (s *chatService) resolveConversation(ctx context.Context, userID uuid.UUID, id *uuid.UUID, firstMessage string) (*entity.Conversation, error) {
	if id != nil {
		conv, err := s.repo.GetByID(ctx, *id, userID)
		if err == repository.ErrConversationNotFound {
			return nil, errors.NewAppError(errors.ErrNotFound, "conversation not found", err)
		}
		if err != nil {
			return nil, errors.NewAppError(errors.ErrInternalServer, "failed to load conversation", err)
		}
		return conv, nil
	}

	title := deriveTitle(firstMessage)
	conv := &entity.Conversation{
		UserID: userID,
		Title:  title,
		Slug:   slug.Make(title) + "-" + strings.ToLower(utils.GenerateID()),
	}
	conv.ID = uuid.New()
	if err := s.repo.Create(ctx, conv); err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to create conversation", err)
	}
	return conv, nil
}

func (s *chatService) generateAndStoreImage(ctx context.Context, conversationID uuid.UUID, prompt string) (string, error) {
	data, err := s.ai.GenerateImage(ctx, prompt)
	if err != nil {
		logger.Error("ChatService:GenerateAndStoreImage:Generate:Error", "error", err)
		return "", errors.NewAppError(errors.ErrInternalServer, "image generation failed", err)
	}

	key := fmt.Sprintf("images/%s/%s.png", conversationID, utils.GenerateID())
	imageURL, err := s.images.Upload(ctx, key, data, "image/png")
	if err != nil {
		return "", errors.NewAppError(errors.ErrInternalServer, "failed to store generated image", err)
	}
	return imageURL, nil
}

func lastUserMessage(messages []dto.ChatMessage) (string, error) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == entity.RoleUser && strings.TrimSpace(messages[i].Content) != "" {
			return messages[i].Content, nil
		}
	}
	return "", errors.NewAppError(errors.ErrInvalidInput, "messages must contain a user message", nil)
}

// deriveTitle takes the first line of the opening message, truncated by rune
// so multi-byte text is never split.
func deriveTitle(message string) string {
	title := strings.TrimSpace(message)
	if idx := strings.IndexByte(title, '\n'); idx >= 0 {
		title = strings.TrimSpace(title[:idx])
	}

	runes := []rune(title)
	if len(runes) > constants.ConversationTitleMaxRunes {
		title = string(runes[:constants.ConversationTitleMaxRunes]) + "..."
	}
	if title == "" {
		title = "New Conversation"
	}
	return title
}

func modelForType(messageType string) string {
	switch messageType {
	case entity.TypeSearch:
		return constants.SearchModel
	case entity.TypeMini:
		return constants.MiniModel
	default:
		return constants.ChatModel
	}
}
