package anthropic

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/vertex"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	errorskg "github.com/sweetpotato0/echoflow/errors"
	"github.com/sweetpotato0/echoflow/llm"
	"github.com/sweetpotato0/echoflow/pkg/logging"
	"golang.org/x/oauth2/google"
)

// Backends.
const (
	BackendAnthropic = "anthropic"
	BackendBedrock   = "bedrock"
	BackendVertex    = "vertex"
)

// DefaultModel is used when the request parameters name no model.
const DefaultModel = "claude-3-5-sonnet-latest"

const vertexScope = "https://www.googleapis.com/auth/cloud-platform"

// Config holds Claude provider configuration
type Config struct {
	// Backend is one of anthropic (default), bedrock or vertex.
	Backend string
	APIKey  string
	BaseURL string

	AWSRegion       string
	AWSAccessKey    string
	AWSSecretKey    string
	AWSSessionToken string

	VertexRegion  string
	VertexProject string

	Cache  llm.CacheStrategy
	Logger *slog.Logger
	// RequestOptions are appended to the SDK client options.
	RequestOptions []option.RequestOption
	// ClientOptions are appended to the orchestrating client options.
	ClientOptions []llm.Option
}

// DefaultParams returns the sampling defaults with the default Claude model.
func DefaultParams() llm.Params {
	return llm.DefaultParams().WithModel(DefaultModel)
}

// NewClient creates an orchestrating client over the configured backend.
func NewClient(ctx context.Context, cfg Config) (*llm.Client[anthropic.MessageParam], error) {
	sdk, err := NewSDKClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.WithComponent("anthropic")
	}
	opts := append([]llm.Option{
		llm.WithProvider(backendName(cfg.Backend)),
		llm.WithCache(cfg.Cache),
		llm.WithLogger(logger),
	}, cfg.ClientOptions...)
	return llm.NewClient[anthropic.MessageParam](NewTransport(sdk, logger), opts...)
}

// NewSDKClient builds the SDK client for the configured backend.
func NewSDKClient(ctx context.Context, cfg Config) (anthropic.Client, error) {
	var options []option.RequestOption

	switch backendName(cfg.Backend) {
	case BackendAnthropic:
		if cfg.APIKey != "" {
			options = append(options, option.WithAPIKey(cfg.APIKey))
		}
		if cfg.BaseURL != "" {
			options = append(options, option.WithBaseURL(cfg.BaseURL))
		}
	case BackendBedrock:
		if cfg.AWSRegion == "" {
			return anthropic.Client{}, fmt.Errorf("%w: bedrock requires an AWS region", errorskg.ErrInvalidInput)
		}
		awsCfg, err := awsConfig(ctx, cfg)
		if err != nil {
			return anthropic.Client{}, err
		}
		options = append(options, bedrock.WithConfig(awsCfg))
	case BackendVertex:
		if cfg.VertexRegion == "" || cfg.VertexProject == "" {
			return anthropic.Client{}, fmt.Errorf("%w: vertex requires a region and a project", errorskg.ErrInvalidInput)
		}
		creds, err := google.FindDefaultCredentials(ctx, vertexScope)
		if err != nil {
			return anthropic.Client{}, fmt.Errorf("%w: google credentials: %v", errorskg.ErrProviderUnavailable, err)
		}
		options = append(options, vertex.WithCredentials(ctx, cfg.VertexRegion, cfg.VertexProject, creds))
	default:
		return anthropic.Client{}, fmt.Errorf("%w: %q", errorskg.ErrUnsupportedProvider, cfg.Backend)
	}

	options = append(options, cfg.RequestOptions...)
	return anthropic.NewClient(options...), nil
}

// awsConfig uses the static keys when both are set and the default AWS chain otherwise.
func awsConfig(ctx context.Context, cfg Config) (aws.Config, error) {
	if cfg.AWSAccessKey != "" && cfg.AWSSecretKey != "" {
		return aws.Config{
			Region:      cfg.AWSRegion,
			Credentials: aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(cfg.AWSAccessKey, cfg.AWSSecretKey, cfg.AWSSessionToken)),
		}, nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return aws.Config{}, fmt.Errorf("%w: aws config: %v", errorskg.ErrProviderUnavailable, err)
	}
	return awsCfg, nil
}
