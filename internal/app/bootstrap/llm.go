package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	appconfig "github.com/wolfman30/medassist-ai/internal/config"
	"github.com/wolfman30/medassist-ai/internal/llm"
	"github.com/wolfman30/medassist-ai/pkg/logging"
)

// LLM providers accepted by LLM_PROVIDER.
const (
	LLMRules   = "rules"
	LLMBedrock = "bedrock"
	LLMOpenAI  = "openai"
	LLMGemini  = "gemini"
)

// BuildLLMClient returns the configured report model. The rules provider
// returns a nil client, which the report generator treats as keyword-only.
func BuildLLMClient(ctx context.Context, cfg *appconfig.Config, loadAWS AWSLoader, logger *logging.Logger) (llm.Client, error) {
	if cfg == nil {
		return nil, errors.New("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	model := strings.TrimSpace(cfg.LLMModelID)
	switch provider := strings.ToLower(strings.TrimSpace(cfg.LLMProvider)); provider {
	case "", LLMRules:
		logger.Info("no LLM configured; reports use keyword rules")
		return nil, nil

	case LLMBedrock:
		if model == "" {
			return nil, errors.New("bootstrap: bedrock requires LLM_MODEL_ID")
		}
		awsCfg, err := loadAWSConfig(ctx, loadAWS)
		if err != nil {
			return nil, err
		}
		logger.Info("using bedrock for reports", "model", model)
		return llm.NewBedrockClient(bedrockruntime.NewFromConfig(awsCfg), model), nil

	case LLMOpenAI:
		client, err := llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, model)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: %w", err)
		}
		logger.Info("using openai for reports", "model", model, "base_url", cfg.OpenAIBaseURL)
		return client, nil

	case LLMGemini:
		client, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, model)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: %w", err)
		}
		logger.Info("using gemini for reports", "model", model)
		return client, nil

	default:
		return nil, fmt.Errorf("bootstrap: unknown llm provider %q", provider)
	}
}
