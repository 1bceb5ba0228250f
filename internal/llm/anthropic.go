package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/ShayCichocki/vibeman/internal/errs"
)

// ClientConfig contains configuration for creating an AnthropicProvider.
type ClientConfig struct {
	// Model is the Claude model to use.
	Model anthropic.Model
	// APIKey is the Anthropic API key. If empty, uses ANTHROPIC_API_KEY.
	APIKey string
	// MaxTokens caps the response length. Defaults to 8192.
	MaxTokens int64
	// UseAWSBedrock routes calls through AWS Bedrock instead of the direct API.
	UseAWSBedrock bool
	// AWSRegion is the AWS region for Bedrock.
	AWSRegion string
	// AWSProfile is the optional AWS profile name to use.
	AWSProfile string
}

// AnthropicProvider implements Provider against the Anthropic messages API,
// optionally via AWS Bedrock.
type AnthropicProvider struct {
	inner     anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// Compile-time verification that AnthropicProvider implements Provider.
var _ Provider = (*AnthropicProvider)(nil)

// NewAnthropicProvider creates a provider from the given configuration.
func NewAnthropicProvider(cfg ClientConfig) (*AnthropicProvider, error) {
	var opts []option.RequestOption

	if cfg.UseAWSBedrock {
		ctx := context.Background()
		var loadOpts []func(*awsconfig.LoadOptions) error
		if cfg.AWSRegion != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.AWSRegion))
		}
		if cfg.AWSProfile != "" {
			loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(cfg.AWSProfile))
		}
		opts = append(opts, bedrock.WithLoadDefaultConfig(ctx, loadOpts...))
	} else {
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set")
		}
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	model := cfg.Model
	if model == "" {
		model = anthropic.ModelClaudeSonnet4_20250514
	}
	if cfg.UseAWSBedrock {
		model = translateModelForBedrock(model)
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 8192
	}

	return &AnthropicProvider{
		inner:     anthropic.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

// Invoke performs one model call and returns the concatenated text blocks.
func (p *AnthropicProvider) Invoke(ctx context.Context, req Request) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     p.model,
		MaxTokens: p.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}

	resp, err := p.inner.Messages.New(ctx, params)
	if err != nil {
		if ctx.Err() != nil {
			return "", errs.Wrap(errs.KindCancelled, "llm.Invoke", ctx.Err())
		}
		return "", errs.Wrapf(errs.KindSystem, "llm.Invoke", err, "task %s", req.LogicalTask)
	}

	var text string
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			text += variant.Text
		}
	}
	if text == "" {
		return "", errs.E(errs.KindParsing, "llm.Invoke", "empty response for task "+req.LogicalTask)
	}
	return text, nil
}

// translateModelForBedrock converts standard Anthropic model names to Bedrock
// cross-region inference profile format: us.anthropic.{model}-v1:0.
func translateModelForBedrock(model anthropic.Model) anthropic.Model {
	bedrockModels := map[anthropic.Model]string{
		anthropic.ModelClaudeSonnet4_20250514:  "us.anthropic.claude-sonnet-4-20250514-v1:0",
		anthropic.ModelClaude3_5Haiku20241022:  "us.anthropic.claude-3-5-haiku-20241022-v1:0",
		anthropic.ModelClaude3_7Sonnet20250219: "us.anthropic.claude-3-7-sonnet-20250219-v1:0",
	}
	if bedrockModel, ok := bedrockModels[model]; ok {
		return anthropic.Model(bedrockModel)
	}
	return model
}
