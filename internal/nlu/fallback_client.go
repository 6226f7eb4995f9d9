package nlu

import (
	"context"

	"github.com/wolfman30/calendar-booking-agent/pkg/logging"
)

// FallbackClient wraps a primary client with a secondary provider.
// If the primary fails, the request is retried once against the fallback.
type FallbackClient struct {
	primary  Client
	fallback Client
	logger   *logging.Logger
}

// NewFallbackClient creates a fallback-enabled client.
// If fallback is nil, the client only uses the primary provider.
func NewFallbackClient(primary, fallback Client, logger *logging.Logger) *FallbackClient {
	if logger == nil {
		logger = logging.Default()
	}
	return &FallbackClient{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (c *FallbackClient) Complete(ctx context.Context, req Request) (Response, error) {
	resp, err := c.primary.Complete(ctx, req)
	if err == nil {
		return resp, nil
	}

	c.logger.Warn("primary nlu provider failed",
		"error", err.Error(),
		"fallback_available", c.fallback != nil,
	)
	if c.fallback == nil {
		return Response{}, err
	}

	fallbackResp, fallbackErr := c.fallback.Complete(ctx, req)
	if fallbackErr != nil {
		c.logger.Error("fallback nlu provider also failed",
			"primary_error", err.Error(),
			"fallback_error", fallbackErr.Error(),
		)
		return Response{}, fallbackErr
	}
	return fallbackResp, nil
}
