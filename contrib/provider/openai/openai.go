package openai

import (
	"log/slog"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/sweetpotato0/echoflow/llm"
	"github.com/sweetpotato0/echoflow/pkg/logging"
)

// DefaultModel is used when the request parameters name no model.
const DefaultModel = "gpt-4o-mini"

// Config holds OpenAI provider configuration
type Config struct {
	APIKey  string
	BaseURL string
	Logger  *slog.Logger
	// RequestOptions are appended to the SDK client options.
	RequestOptions []option.RequestOption
	// ClientOptions are appended to the orchestrating client options.
	ClientOptions []llm.Option
}

// WithBaseURL set BaseURL.
func (cfg *Config) WithBaseURL(url string) *Config {
	cfg.BaseURL = url
	return cfg
}

// DefaultParams returns the sampling defaults with the default chat model.
func DefaultParams() llm.Params {
	return llm.DefaultParams().WithModel(DefaultModel)
}

// NewSDKClient builds the SDK client.
func NewSDKClient(cfg Config) openai.Client {
	var options []option.RequestOption
	if cfg.APIKey != "" {
		options = append(options, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		options = append(options, option.WithBaseURL(cfg.BaseURL))
	}
	options = append(options, cfg.RequestOptions...)
	return openai.NewClient(options...)
}

// NewClient creates an orchestrating client over the chat completions API.
func NewClient(cfg Config) (*llm.Client[openai.ChatCompletionMessageParamUnion], error) {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.WithComponent("openai")
	}
	opts := append([]llm.Option{
		llm.WithProvider("openai"),
		llm.WithLogger(logger),
	}, cfg.ClientOptions...)
	return llm.NewClient[openai.ChatCompletionMessageParamUnion](NewTransport(NewSDKClient(cfg), logger), opts...)
}
