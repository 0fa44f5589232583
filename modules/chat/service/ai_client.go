package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"chatcal/core/config"
	"chatcal/core/constants"
	"chatcal/core/logger"
	"chatcal/modules/chat/dto"
	"chatcal/modules/chat/entity"
)

// AIClient abstracts the model provider so the chat service can be tested
// without network access.
type AIClient interface {
	ChatCompletion(ctx context.Context, model string, messages []dto.ChatMessage, temperature *float64) (string, error)
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
	ClassifyIntent(ctx context.Context, message string) (string, error)
}

type openAIClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func NewOpenAIClient(cfg config.OpenAIConfig) AIClient {
	return &openAIClient{
		httpClient: &http.Client{Timeout: constants.OpenAIHTTPTimeout},
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
	}
}

type chatCompletionRequest struct {
	Model       string            `json:"model"`
	Messages    []dto.ChatMessage `json:"messages"`
	Temperature *float64          `json:"temperature,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message dto.ChatMessage `json:"message"`
	} `json:"choices"`
}

func (c *openAIClient) ChatCompletion(ctx context.Context, model string, messages []dto.ChatMessage, temperature *float64) (string, error) {
	body, err := c.post(ctx, "/chat/completions", chatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: temperature,
	})
	if err != nil {
		return "", err
	}

	var resp chatCompletionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode completion response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion response has no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

type imageGenerationRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	Size           string `json:"size"`
	ResponseFormat string `json:"response_format"`
}

type imageGenerationResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}

func (c *openAIClient) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	body, err := c.post(ctx, "/images/generations", imageGenerationRequest{
		Model:          constants.ImageModel,
		Prompt:         prompt,
		N:              1,
		Size:           "1024x1024",
		ResponseFormat: "b64_json",
	})
	if err != nil {
		return nil, err
	}

	var resp imageGenerationResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode image response: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("image response has no data")
	}
	return base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
}

const classifierPrompt = `Classify the user's request into exactly one word:
"image" if they ask to generate, draw or create a picture;
"search" if they ask about current events, news or facts needing fresh data;
"mini" if it is a short, simple question;
"chat" for everything else. Reply with the single word only.`

// ClassifyIntent routes a user message to one of the unified chat paths.
// Anything unexpected from the model falls back to the default chat path.
func (c *openAIClient) ClassifyIntent(ctx context.Context, message string) (string, error) {
	reply, err := c.ChatCompletion(ctx, constants.ClassifierModel, []dto.ChatMessage{
		{Role: entity.RoleSystem, Content: classifierPrompt},
		{Role: entity.RoleUser, Content: message},
	}, nil)
	if err != nil {
		return "", err
	}

	intent := strings.ToLower(strings.TrimSpace(reply))
	switch intent {
	case entity.TypeImage, entity.TypeSearch, entity.TypeMini, entity.TypeChat:
		return intent, nil
	default:
		logger.Warn("OpenAIClient:ClassifyIntent:Unexpected", "reply", intent)
		return entity.TypeChat, nil
	}
}

func (c *openAIClient) post(ctx context.Context, path string, payload any) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Error("OpenAIClient:Post:Transport:Error", "path", path, "error", err)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		logger.Warn("OpenAIClient:Post:Rejected", "path", path, "status", resp.StatusCode)
		return nil, fmt.Errorf("model provider rejected request: status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
