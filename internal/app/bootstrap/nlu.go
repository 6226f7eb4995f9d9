package bootstrap

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	appconfig "github.com/wolfman30/calendar-booking-agent/internal/config"
	"github.com/wolfman30/calendar-booking-agent/internal/nlu"
	"github.com/wolfman30/calendar-booking-agent/pkg/logging"
)

// AWSConfigLoader defers AWS SDK setup until a component needs it.
type AWSConfigLoader func(ctx context.Context) (aws.Config, error)

// BuildNLUClient selects the text-completion provider. Gemini is primary when
// its key is set and Bedrock becomes its fallback when a model id is also
// configured. "none" yields nlu.DisabledClient so the agent runs on keyword
// and regex paths.
func BuildNLUClient(ctx context.Context, cfg *appconfig.Config, loadAWS AWSConfigLoader, logger *logging.Logger) (nlu.Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	var bedrock nlu.Client
	if cfg.BedrockModelID != "" && (cfg.NLUProvider == "bedrock" || cfg.NLUProvider == "gemini") {
		if loadAWS == nil {
			return nil, fmt.Errorf("bootstrap: aws config loader is required for bedrock")
		}
		awsCfg, err := loadAWS(ctx)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: load aws config: %w", err)
		}
		bedrock = nlu.NewBedrockClient(bedrockruntime.NewFromConfig(awsCfg), cfg.BedrockModelID)
	}

	var client nlu.Client
	switch cfg.NLUProvider {
	case "gemini":
		gemini, err := nlu.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			return nil, err
		}
		client = gemini
		if bedrock != nil {
			client = nlu.NewFallbackClient(gemini, bedrock, logger)
		}
	case "bedrock":
		if bedrock == nil {
			return nil, fmt.Errorf("bootstrap: BEDROCK_MODEL_ID is required for bedrock")
		}
		client = bedrock
	default:
		logger.Info("nlu disabled; using keyword and regex fallbacks")
		return nlu.DisabledClient{}, nil
	}

	logger.Info("nlu enabled",
		"provider", cfg.NLUProvider,
		"fallback", bedrock != nil && cfg.NLUProvider == "gemini",
		"timeout", cfg.NLUTimeout.String(),
	)
	return nlu.WithTimeout(client, cfg.NLUTimeout), nil
}
