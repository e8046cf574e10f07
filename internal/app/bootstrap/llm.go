package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	appconfig "github.com/wolfman30/healthylife-gp-assistant/internal/config"
	"github.com/wolfman30/healthylife-gp-assistant/internal/llm"
	"github.com/wolfman30/healthylife-gp-assistant/pkg/logging"
)

// BuildLLMClient wires the configured provider. When credentials for the other
// provider are present too, it is attached as a fallback.
func BuildLLMClient(ctx context.Context, cfg *appconfig.Config, loadAWS AWSConfigLoader, logger *logging.Logger) (llm.Client, func(), error) {
	noop := func() {}
	if cfg == nil {
		return nil, noop, errors.New("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	hasGemini := strings.TrimSpace(cfg.GeminiAPIKey) != ""
	hasBedrock := strings.TrimSpace(cfg.BedrockModelID) != ""

	switch cfg.LLMProvider {
	case appconfig.ProviderGemini:
		primary, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			return nil, noop, fmt.Errorf("bootstrap: gemini client: %w", err)
		}
		cleanup := func() { _ = primary.Close() }
		if !hasBedrock {
			logger.Info("llm ready", "provider", "gemini", "model", cfg.GeminiModelID)
			return primary, cleanup, nil
		}
		fallback, err := buildBedrock(ctx, cfg, loadAWS)
		if err != nil {
			logger.Warn("bedrock fallback unavailable", "error", err)
			return primary, cleanup, nil
		}
		logger.Info("llm ready", "provider", "gemini", "fallback", "bedrock")
		return llm.NewFallbackClient(primary, fallback, logger), cleanup, nil

	case appconfig.ProviderBedrock:
		primary, err := buildBedrock(ctx, cfg, loadAWS)
		if err != nil {
			return nil, noop, err
		}
		if !hasGemini {
			logger.Info("llm ready", "provider", "bedrock", "model", cfg.BedrockModelID)
			return primary, noop, nil
		}
		fallback, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			logger.Warn("gemini fallback unavailable", "error", err)
			return primary, noop, nil
		}
		logger.Info("llm ready", "provider", "bedrock", "fallback", "gemini")
		return llm.NewFallbackClient(primary, fallback, logger), func() { _ = fallback.Close() }, nil

	default:
		return nil, noop, fmt.Errorf("bootstrap: unknown llm provider %q", cfg.LLMProvider)
	}
}

func buildBedrock(ctx context.Context, cfg *appconfig.Config, loadAWS AWSConfigLoader) (*llm.BedrockClient, error) {
	if strings.TrimSpace(cfg.BedrockModelID) == "" {
		return nil, errors.New("bootstrap: bedrock model id is required")
	}
	if loadAWS == nil {
		return nil, errors.New("bootstrap: aws config loader is required for bedrock")
	}
	awsCfg, err := loadAWS(ctx)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: load aws config: %w", err)
	}
	return llm.NewBedrockClient(bedrockruntime.NewFromConfig(awsCfg), cfg.BedrockModelID), nil
}
