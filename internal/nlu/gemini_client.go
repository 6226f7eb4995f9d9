package nlu

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiClient implements Client using Google's Gemini API.
type GeminiClient struct {
	client  *genai.Client
	modelID string
}

// NewGeminiClient creates a new Gemini client. Extra options are appended after the API key.
func NewGeminiClient(ctx context.Context, apiKey, modelID string, opts ...option.ClientOption) (*GeminiClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("nlu: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = defaultGeminiModel
	}

	clientOpts := append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	client, err := genai.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("nlu: failed to create gemini client: %w", err)
	}

	return &GeminiClient{
		client:  client,
		modelID: modelID,
	}, nil
}

// Complete sends a completion request to Gemini and returns the response.
func (c *GeminiClient) Complete(ctx context.Context, req Request) (Response, error) {
	if len(req.Messages) == 0 {
		return Response{}, errors.New("nlu: gemini requires at least one message")
	}

	modelID := c.modelID
	if strings.TrimSpace(req.Model) != "" {
		modelID = req.Model
	}
	model := c.client.GenerativeModel(modelID)

	if req.Temperature >= 0 {
		model.SetTemperature(req.Temperature)
	}
	if req.TopP > 0 {
		model.SetTopP(req.TopP)
	}
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(req.MaxTokens)
	}

	if systemText := strings.TrimSpace(strings.Join(req.System, "\n\n")); systemText != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(systemText))
	}

	cs := model.StartChat()
	for _, msg := range req.Messages[:len(req.Messages)-1] {
		content := strings.TrimSpace(msg.Content)
		if content == "" || msg.Role == RoleSystem {
			continue
		}
		role := "user"
		if msg.Role == RoleAssistant {
			role = "model"
		}
		cs.History = append(cs.History, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(content)},
		})
	}

	lastMsg := req.Messages[len(req.Messages)-1]
	resp, err := cs.SendMessage(ctx, genai.Text(lastMsg.Content))
	if err != nil {
		return Response{}, fmt.Errorf("nlu: gemini completion failed: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return Response{}, errors.New("nlu: gemini returned no candidates")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return Response{}, errors.New("nlu: gemini returned empty content")
	}

	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}

	result := Response{
		Text:       strings.TrimSpace(text.String()),
		StopReason: candidate.FinishReason.String(),
	}
	if resp.UsageMetadata != nil {
		result.Usage = TokenUsage{
			InputTokens:  resp.UsageMetadata.PromptTokenCount,
			OutputTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:  resp.UsageMetadata.TotalTokenCount,
		}
	}
	return result, nil
}

// Close releases resources held by the Gemini client.
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}
