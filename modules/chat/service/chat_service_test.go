package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatcal/core/constants"
	"chatcal/modules/chat/dto"
	"chatcal/modules/chat/entity"
	"chatcal/modules/chat/repository"
)

type fakeAIClient struct {
	intent          string
	reply           string
	imageData       []byte
	lastModel       string
	lastTemperature *float64
	classifyCalls   int
}

func (f *fakeAIClient) ChatCompletion(_ context.Context, model string, _ []dto.ChatMessage, temperature *float64) (string, error) {
	f.lastModel = model
	f.lastTemperature = temperature
	return f.reply, nil
}

func (f *fakeAIClient) GenerateImage(_ context.Context, _ string) ([]byte, error) {
	return f.imageData, nil
}

func (f *fakeAIClient) ClassifyIntent(_ context.Context, _ string) (string, error) {
	f.classifyCalls++
	return f.intent, nil
}

type fakeImageStore struct {
	uploads []string
}

func (f *fakeImageStore) Upload(_ context.Context, key string, _ []byte, _ string) (string, error) {
	f.uploads = append(f.uploads, key)
	return "https://images.example.com/" + key, nil
}

func (f *fakeImageStore) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://images.example.com/" + key + "?signed", nil
}

type fakeConversationRepo struct {
	conversations map[uuid.UUID]*entity.Conversation
	messages      map[uuid.UUID][]entity.Message
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{
		conversations: map[uuid.UUID]*entity.Conversation{},
		messages:      map[uuid.UUID][]entity.Message{},
	}
}

func (f *fakeConversationRepo) Create(_ context.Context, conv *entity.Conversation) error {
	copied := *conv
	f.conversations[conv.ID] = &copied
	return nil
}

func (f *fakeConversationRepo) GetByID(_ context.Context, id uuid.UUID, userID uuid.UUID) (*entity.Conversation, error) {
	conv, ok := f.conversations[id]
	if !ok || conv.UserID != userID {
		return nil, repository.ErrConversationNotFound
	}
	copied := *conv
	return &copied, nil
}

func (f *fakeConversationRepo) ListByUser(_ context.Context, userID uuid.UUID, limit, offset int) ([]entity.Conversation, error) {
	out := []entity.Conversation{}
	for _, conv := range f.conversations {
		if conv.UserID == userID {
			out = append(out, *conv)
		}
	}
	if offset > len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeConversationRepo) CountByUser(_ context.Context, userID uuid.UUID) (int, error) {
	count := 0
	for _, conv := range f.conversations {
		if conv.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (f *fakeConversationRepo) Delete(_ context.Context, id uuid.UUID, userID uuid.UUID) error {
	conv, ok := f.conversations[id]
	if !ok || conv.UserID != userID {
		return repository.ErrConversationNotFound
	}
	delete(f.conversations, id)
	delete(f.messages, id)
	return nil
}

func (f *fakeConversationRepo) Touch(_ context.Context, _ uuid.UUID) error { return nil }

func (f *fakeConversationRepo) AppendMessage(_ context.Context, msg *entity.Message) error {
	f.messages[msg.ConversationID] = append(f.messages[msg.ConversationID], *msg)
	return nil
}

func (f *fakeConversationRepo) ListMessages(_ context.Context, conversationID uuid.UUID) ([]entity.Message, error) {
	return f.messages[conversationID], nil
}

func TestUnifiedChat_NewConversation(t *testing.T) {
	repo := newFakeConversationRepo()
	ai := &fakeAIClient{intent: entity.TypeChat, reply: "Hello there"}
	svc := NewChatService(repo, ai, &fakeImageStore{})
	userID := uuid.New()

	resp, err := svc.UnifiedChat(context.Background(), userID, dto.UnifiedChatRequest{
		Messages: []dto.ChatMessage{{Role: entity.RoleUser, Content: "Hi, who are you?"}},
	})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, resp.ConversationID)
	assert.Equal(t, entity.RoleAssistant, resp.Message.Role)
	assert.Equal(t, "Hello there", resp.Message.Content)
	assert.Equal(t, entity.TypeChat, resp.Message.MessageType)
	assert.Equal(t, constants.ChatModel, ai.lastModel)
	assert.Equal(t, 1, ai.classifyCalls)

	conv := repo.conversations[resp.ConversationID]
	require.NotNil(t, conv)
	assert.Equal(t, "Hi, who are you?", conv.Title)
	assert.True(t, strings.HasPrefix(conv.Slug, "hi-who-are-you-"))

	messages := repo.messages[resp.ConversationID]
	require.Len(t, messages, 2)
	assert.Equal(t, entity.RoleUser, messages[0].Role)
	assert.Equal(t, entity.RoleAssistant, messages[1].Role)
}

func TestUnifiedChat_ForceTypeSkipsClassifier(t *testing.T) {
	repo := newFakeConversationRepo()
	ai := &fakeAIClient{reply: "Quick answer"}
	svc := NewChatService(repo, ai, &fakeImageStore{})

	resp, err := svc.UnifiedChat(context.Background(), uuid.New(), dto.UnifiedChatRequest{
		Messages:  []dto.ChatMessage{{Role: entity.RoleUser, Content: "What is 2+2?"}},
		ForceType: entity.TypeMini,
	})
	require.NoError(t, err)

	assert.Zero(t, ai.classifyCalls)
	assert.Equal(t, constants.MiniModel, ai.lastModel)
	assert.Equal(t, entity.TypeMini, resp.Message.MessageType)
}

func TestUnifiedChat_ModelOverrideAndTemperature(t *testing.T) {
	repo := newFakeConversationRepo()
	ai := &fakeAIClient{intent: entity.TypeChat, reply: "creative answer"}
	svc := NewChatService(repo, ai, &fakeImageStore{})
	temperature := 1.3

	resp, err := svc.UnifiedChat(context.Background(), uuid.New(), dto.UnifiedChatRequest{
		Messages:      []dto.ChatMessage{{Role: entity.RoleUser, Content: "write me a poem"}},
		ModelOverride: "gpt-4-turbo",
		Temperature:   &temperature,
	})
	require.NoError(t, err)

	assert.Equal(t, "gpt-4-turbo", ai.lastModel)
	assert.Equal(t, "gpt-4-turbo", resp.ModelUsed)
	require.NotNil(t, ai.lastTemperature)
	assert.Equal(t, 1.3, *ai.lastTemperature)
	assert.False(t, resp.CreatedAt.IsZero())
}

func TestUnifiedChat_SearchRouting(t *testing.T) {
	repo := newFakeConversationRepo()
	ai := &fakeAIClient{intent: entity.TypeSearch, reply: "Latest news..."}
	svc := NewChatService(repo, ai, &fakeImageStore{})

	_, err := svc.UnifiedChat(context.Background(), uuid.New(), dto.UnifiedChatRequest{
		Messages: []dto.ChatMessage{{Role: entity.RoleUser, Content: "What happened today?"}},
	})
	require.NoError(t, err)
	assert.Equal(t, constants.SearchModel, ai.lastModel)
}

func TestUnifiedChat_ImagePathStoresURL(t *testing.T) {
	repo := newFakeConversationRepo()
	ai := &fakeAIClient{intent: entity.TypeImage, imageData: []byte("png-bytes")}
	images := &fakeImageStore{}
	svc := NewChatService(repo, ai, images)

	resp, err := svc.UnifiedChat(context.Background(), uuid.New(), dto.UnifiedChatRequest{
		Messages: []dto.ChatMessage{{Role: entity.RoleUser, Content: "Draw me a lighthouse"}},
	})
	require.NoError(t, err)

	assert.Equal(t, entity.TypeImage, resp.Message.MessageType)
	assert.NotEmpty(t, resp.Message.ImageURL)
	require.Len(t, images.uploads, 1)
	assert.True(t, strings.HasSuffix(images.uploads[0], ".png"))
}

func TestUnifiedChat_UnknownForceType(t *testing.T) {
	svc := NewChatService(newFakeConversationRepo(), &fakeAIClient{}, &fakeImageStore{})

	_, err := svc.UnifiedChat(context.Background(), uuid.New(), dto.UnifiedChatRequest{
		Messages:  []dto.ChatMessage{{Role: entity.RoleUser, Content: "hello"}},
		ForceType: "poem",
	})
	assert.Error(t, err)
}

func TestUnifiedChat_RequiresUserMessage(t *testing.T) {
	svc := NewChatService(newFakeConversationRepo(), &fakeAIClient{}, &fakeImageStore{})

	_, err := svc.UnifiedChat(context.Background(), uuid.New(), dto.UnifiedChatRequest{
		Messages: []dto.ChatMessage{{Role: entity.RoleAssistant, Content: "I speak first"}},
	})
	assert.Error(t, err)
}

func TestUnifiedChat_ExistingConversationOwnership(t *testing.T) {
	repo := newFakeConversationRepo()
	ai := &fakeAIClient{intent: entity.TypeChat, reply: "ok"}
	svc := NewChatService(repo, ai, &fakeImageStore{})

	owner := uuid.New()
	first, err := svc.UnifiedChat(context.Background(), owner, dto.UnifiedChatRequest{
		Messages: []dto.ChatMessage{{Role: entity.RoleUser, Content: "start"}},
	})
	require.NoError(t, err)

	// The owner continues the thread.
	convID := first.ConversationID
	_, err = svc.UnifiedChat(context.Background(), owner, dto.UnifiedChatRequest{
		Messages:       []dto.ChatMessage{{Role: entity.RoleUser, Content: "more"}},
		ConversationID: &convID,
	})
	require.NoError(t, err)
	assert.Len(t, repo.messages[convID], 4)

	// A different user cannot.
	_, err = svc.UnifiedChat(context.Background(), uuid.New(), dto.UnifiedChatRequest{
		Messages:       []dto.ChatMessage{{Role: entity.RoleUser, Content: "intrude"}},
		ConversationID: &convID,
	})
	assert.Error(t, err)
}

func TestListConversations_Paginated(t *testing.T) {
	repo := newFakeConversationRepo()
	ai := &fakeAIClient{intent: entity.TypeChat, reply: "ok"}
	svc := NewChatService(repo, ai, &fakeImageStore{})
	userID := uuid.New()

	for i := 0; i < constants.ConversationPageSize+3; i++ {
		_, err := svc.UnifiedChat(context.Background(), userID, dto.UnifiedChatRequest{
			Messages: []dto.ChatMessage{{Role: entity.RoleUser, Content: "conversation opener"}},
		})
		require.NoError(t, err)
	}

	page, err := svc.ListConversations(context.Background(), userID, 1)
	require.NoError(t, err)
	assert.Len(t, page.Items, constants.ConversationPageSize)
	assert.Equal(t, constants.ConversationPageSize+3, page.TotalItems)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, 1, page.PageNumber)

	page, err = svc.ListConversations(context.Background(), userID, 2)
	require.NoError(t, err)
	assert.Len(t, page.Items, 3)
}

func TestDeriveTitle(t *testing.T) {
	assert.Equal(t, "Hello", deriveTitle("  Hello  "))
	assert.Equal(t, "First line", deriveTitle("First line\nsecond line"))
	assert.Equal(t, "New Conversation", deriveTitle("   "))

	long := strings.Repeat("a", 80)
	title := deriveTitle(long)
	assert.Equal(t, constants.ConversationTitleMaxRunes+3, len([]rune(title)))
	assert.True(t, strings.HasSuffix(title, "..."))

	// Rune-safe truncation for multi-byte text.
	viet := strings.Repeat("ư", 60)
	title = deriveTitle(viet)
	assert.Equal(t, strings.Repeat("ư", constants.ConversationTitleMaxRunes)+"...", title)
}
