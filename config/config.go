package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/sweetpotato0/echoflow/llm"
	"github.com/sweetpotato0/echoflow/pkg/telemetry"
)

// EnvPrefix prefixes every environment variable the loader reads, with
// nested keys joined by underscores: ECHOFLOW_AWS_REGION sets aws.region.
const EnvPrefix = "ECHOFLOW"

// Provider names accepted in the provider field.
const (
	ProviderAnthropic = "anthropic"
	ProviderBedrock   = "bedrock"
	ProviderVertex    = "vertex"
	ProviderOpenAI    = "openai"
)

// Config is the runtime configuration of the echoflow CLI.
type Config struct {
	Provider string `mapstructure:"provider"`
	// APIKey may be empty; the provider SDKs then read their own environment variables.
	APIKey  string       `mapstructure:"api_key"`
	BaseURL string       `mapstructure:"base_url"`
	AWS     AWSConfig    `mapstructure:"aws"`
	Vertex  VertexConfig `mapstructure:"vertex"`

	Model       string  `mapstructure:"model"`
	MaxTokens   int64   `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
	TopP        float64 `mapstructure:"top_p"`
	TopK        int64   `mapstructure:"top_k"`

	Cache         llm.CacheStrategy `mapstructure:"cache"`
	MaxIterations int64             `mapstructure:"max_iterations"`

	// Timeout bounds a whole run, tool calls included. Zero disables it.
	Timeout time.Duration `mapstructure:"timeout"`
	// MaxInput rejects prompts longer than this many characters. Zero disables it.
	MaxInput  int64           `mapstructure:"max_input"`
	Chunk     ChunkConfig     `mapstructure:"chunk"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// TelemetryConfig selects the trace exporter.
type TelemetryConfig struct {
	// Exporter is none, stdout or otlp.
	Exporter string `mapstructure:"exporter"`
	// Endpoint is the OTLP gRPC collector, host:port.
	Endpoint string `mapstructure:"endpoint"`
	Insecure bool   `mapstructure:"insecure"`
}

// ChunkConfig controls how reference documents are split before they are
// sent with the system prompt.
type ChunkConfig struct {
	Size    int64 `mapstructure:"size"`
	Overlap int64 `mapstructure:"overlap"`
	// Tokenizer is a tiktoken model or encoding name. Empty measures in characters.
	Tokenizer string `mapstructure:"tokenizer"`
}

// AWSConfig holds Bedrock credentials. Empty keys fall back to the default
// AWS credential chain.
type AWSConfig struct {
	Region       string `mapstructure:"region"`
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	SessionToken string `mapstructure:"session_token"`
}

// VertexConfig holds the Google Cloud location of a Vertex AI deployment.
type VertexConfig struct {
	Region  string `mapstructure:"region"`
	Project string `mapstructure:"project"`
}

func setDefaults(v *viper.Viper) {
	params := llm.DefaultParams()
	defaults := map[string]any{
		"provider":           ProviderAnthropic,
		"api_key":            "",
		"base_url":           "",
		"aws.region":         "",
		"aws.access_key":     "",
		"aws.secret_key":     "",
		"aws.session_token":  "",
		"vertex.region":      "",
		"vertex.project":     "",
		"model":              "",
		"max_tokens":         params.MaxTokens,
		"temperature":        params.Temperature,
		"top_p":              params.TopP,
		"top_k":              params.TopK,
		"cache.system":       false,
		"cache.history":      false,
		"cache.tool":         false,
		"max_iterations":     10,
		"timeout":            time.Duration(0),
		"max_input":          0,
		"chunk.size":         800,
		"chunk.overlap":      120,
		"chunk.tokenizer":    "",
		"telemetry.exporter": telemetry.ExporterNone,
		"telemetry.endpoint": "",
		"telemetry.insecure": false,
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
}

// Load reads the configuration from defaults, the optional file at path and
// ECHOFLOW_* environment variables, in increasing precedence. The result is validated.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks ranges and the fields each provider needs.
func (c *Config) Validate() error {
	v := NewValidator()

	v.ValidateOneOf("provider", c.Provider, ProviderAnthropic, ProviderBedrock, ProviderVertex, ProviderOpenAI)
	v.RequirePositive("max_tokens", c.MaxTokens)
	v.ValidateFloatRange("temperature", c.Temperature, 0.0, 2.0)
	v.ValidateFloatRange("top_p", c.TopP, 0.0, 1.0)
	v.RequireNonNegative("top_k", c.TopK)
	v.RequirePositive("max_iterations", c.MaxIterations)
	v.RequireNonNegative("timeout", int64(c.Timeout))
	v.RequireNonNegative("max_input", c.MaxInput)
	v.RequirePositive("chunk.size", c.Chunk.Size)
	v.ValidateRange("chunk.overlap", c.Chunk.Overlap, 0, c.Chunk.Size-1)
	v.ValidateOneOf("telemetry.exporter", c.Telemetry.Exporter,
		telemetry.ExporterNone, telemetry.ExporterStdout, telemetry.ExporterOTLP)
	v.RequireNonEmptyWhen(c.Telemetry.Exporter == telemetry.ExporterOTLP, "telemetry.endpoint", c.Telemetry.Endpoint)

	v.RequireNonEmptyWhen(c.Provider == ProviderBedrock, "aws.region", c.AWS.Region)
	v.RequireNonEmptyWhen(c.Provider == ProviderBedrock && c.AWS.AccessKey != "", "aws.secret_key", c.AWS.SecretKey)
	v.RequireNonEmptyWhen(c.Provider == ProviderVertex, "vertex.region", c.Vertex.Region)
	v.RequireNonEmptyWhen(c.Provider == ProviderVertex, "vertex.project", c.Vertex.Project)

	return v.Error()
}

// Params returns the sampling parameters. An empty model is left for the
// provider default.
func (c *Config) Params() llm.Params {
	return llm.Params{
		ModelID:     c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
		TopP:        c.TopP,
		TopK:        c.TopK,
	}
}
