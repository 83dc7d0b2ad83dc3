package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errorskg "github.com/sweetpotato0/echoflow/errors"
	"github.com/sweetpotato0/echoflow/llm"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ProviderAnthropic, cfg.Provider)
	assert.Equal(t, int64(10), cfg.MaxIterations)
	assert.Equal(t, llm.CacheStrategy{}, cfg.Cache)
	assert.Equal(t, time.Duration(0), cfg.Timeout)
	assert.Equal(t, ChunkConfig{Size: 800, Overlap: 120}, cfg.Chunk)
	assert.Equal(t, TelemetryConfig{Exporter: "none"}, cfg.Telemetry)

	want := llm.DefaultParams()
	assert.Equal(t, want, cfg.Params())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "echoflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
provider: bedrock
model: anthropic.claude-3-5-sonnet-20241022-v2:0
max_tokens: 2048
temperature: 0.2
timeout: 45s
chunk:
  size: 400
  overlap: 40
aws:
  region: us-west-2
cache:
  system: true
  tool: true
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ProviderBedrock, cfg.Provider)
	assert.Equal(t, "us-west-2", cfg.AWS.Region)
	assert.Equal(t, 45*time.Second, cfg.Timeout)
	assert.Equal(t, ChunkConfig{Size: 400, Overlap: 40}, cfg.Chunk)
	assert.Equal(t, llm.CacheStrategy{CacheSystem: true, CacheTool: true}, cfg.Cache)

	params := cfg.Params()
	assert.Equal(t, "anthropic.claude-3-5-sonnet-20241022-v2:0", params.ModelID)
	assert.Equal(t, int64(2048), params.MaxTokens)
	assert.Equal(t, 0.2, params.Temperature)
	assert.Equal(t, 0.9, params.TopP)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "echoflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte("provider: openai\nmodel: gpt-4o\n"), 0o600))

	t.Setenv("ECHOFLOW_MODEL", "gpt-4o-mini")
	t.Setenv("ECHOFLOW_TOP_K", "0")
	t.Setenv("ECHOFLOW_CACHE_HISTORY", "true")
	t.Setenv("ECHOFLOW_TELEMETRY_EXPORTER", "otlp")
	t.Setenv("ECHOFLOW_TELEMETRY_ENDPOINT", "collector:4317")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, cfg.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.Model)
	assert.Equal(t, int64(0), cfg.TopK)
	assert.True(t, cfg.Cache.CacheHistory)
	assert.Equal(t, TelemetryConfig{Exporter: "otlp", Endpoint: "collector:4317"}, cfg.Telemetry)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	t.Setenv("ECHOFLOW_PROVIDER", "vertex")
	_, err = Load("")
	require.ErrorIs(t, err, errorskg.ErrInvalidInput)
	assert.Contains(t, err.Error(), "vertex.project")
}

func TestConfigValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Provider:      ProviderAnthropic,
			MaxTokens:     1024,
			Temperature:   0.8,
			TopP:          0.9,
			TopK:          50,
			MaxIterations: 10,
			Chunk:         ChunkConfig{Size: 800, Overlap: 120},
			Telemetry:     TelemetryConfig{Exporter: "none"},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "unknown provider", mutate: func(c *Config) { c.Provider = "azure" }, field: "provider"},
		{name: "max tokens", mutate: func(c *Config) { c.MaxTokens = 0 }, field: "max_tokens"},
		{name: "temperature", mutate: func(c *Config) { c.Temperature = 3 }, field: "temperature"},
		{name: "top p", mutate: func(c *Config) { c.TopP = -1 }, field: "top_p"},
		{name: "top k", mutate: func(c *Config) { c.TopK = -1 }, field: "top_k"},
		{name: "iterations", mutate: func(c *Config) { c.MaxIterations = 0 }, field: "max_iterations"},
		{name: "timeout", mutate: func(c *Config) { c.Timeout = -time.Second }, field: "timeout"},
		{name: "max input", mutate: func(c *Config) { c.MaxInput = -1 }, field: "max_input"},
		{name: "chunk size", mutate: func(c *Config) { c.Chunk.Size = 0 }, field: "chunk.size"},
		{name: "chunk overlap", mutate: func(c *Config) { c.Chunk.Overlap = 800 }, field: "chunk.overlap"},
		{name: "stdout exporter", mutate: func(c *Config) { c.Telemetry.Exporter = "stdout" }},
		{name: "unknown exporter", mutate: func(c *Config) { c.Telemetry.Exporter = "zipkin" }, field: "telemetry.exporter"},
		{name: "otlp endpoint", mutate: func(c *Config) { c.Telemetry.Exporter = "otlp" }, field: "telemetry.endpoint"},
		{name: "bedrock region", mutate: func(c *Config) { c.Provider = ProviderBedrock }, field: "aws.region"},
		{
			name: "bedrock secret",
			mutate: func(c *Config) {
				c.Provider = ProviderBedrock
				c.AWS = AWSConfig{Region: "us-east-1", AccessKey: "AKIA"}
			},
			field: "aws.secret_key",
		},
		{
			name: "vertex region",
			mutate: func(c *Config) {
				c.Provider = ProviderVertex
				c.Vertex.Project = "p"
			},
			field: "vertex.region",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, errorskg.ErrInvalidInput)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}
