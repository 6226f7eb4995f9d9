// Package nlu is the boundary to the external text-completion service.
package nlu

import (
	"context"
	"errors"
	"strings"
	"time"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrDisabled is returned when no text-completion provider is configured.
var ErrDisabled = errors.New("nlu: provider disabled")

// Message is a single chat turn sent to the provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type TokenUsage struct {
	InputTokens  int32
	OutputTokens int32
	TotalTokens  int32
}

type Request struct {
	Model       string
	System      []string
	Messages    []Message
	MaxTokens   int32
	Temperature float32
	TopP        float32
}

type Response struct {
	Text       string
	Usage      TokenUsage
	StopReason string
}

// Client is implemented by every text-completion provider.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// Prompt sends a single user prompt and returns the trimmed reply text.
func Prompt(ctx context.Context, client Client, prompt string) (string, error) {
	if client == nil {
		return "", ErrDisabled
	}
	resp, err := client.Complete(ctx, Request{
		Messages:    []Message{{Role: RoleUser, Content: prompt}},
		MaxTokens:   512,
		Temperature: 0.2,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text), nil
}

// DisabledClient always fails with ErrDisabled so callers take their keyword paths.
type DisabledClient struct{}

func (DisabledClient) Complete(context.Context, Request) (Response, error) {
	return Response{}, ErrDisabled
}

// TimeoutClient bounds every call to the wrapped client.
type TimeoutClient struct {
	next    Client
	timeout time.Duration
}

// WithTimeout wraps client so each Complete call is cancelled after timeout.
// A non-positive timeout returns client unchanged.
func WithTimeout(client Client, timeout time.Duration) Client {
	if timeout <= 0 || client == nil {
		return client
	}
	return &TimeoutClient{next: client, timeout: timeout}
}

func (c *TimeoutClient) Complete(ctx context.Context, req Request) (Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.next.Complete(ctx, req)
}
