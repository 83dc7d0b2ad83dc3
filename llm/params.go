package llm

import (
	"fmt"

	errorskg "github.com/sweetpotato0/echoflow/errors"
)

// Params are the sampling parameters sent with every request.
type Params struct {
	ModelID     string  `mapstructure:"model" json:"model"`
	MaxTokens   int64   `mapstructure:"max_tokens" json:"max_tokens"`
	TopP        float64 `mapstructure:"top_p" json:"top_p"`
	Temperature float64 `mapstructure:"temperature" json:"temperature"`
	TopK        int64   `mapstructure:"top_k" json:"top_k"`
}

// DefaultParams returns the default sampling parameters. ModelID is left to the provider.
func DefaultParams() Params {
	return Params{
		MaxTokens:   1024,
		TopP:        0.9,
		Temperature: 0.8,
		TopK:        50,
	}
}

// WithModel returns a copy of p using model when p has none.
func (p Params) WithModel(model string) Params {
	if p.ModelID == "" {
		p.ModelID = model
	}
	return p
}

// Validate checks the parameter ranges.
func (p Params) Validate() error {
	switch {
	case p.MaxTokens <= 0:
		return fmt.Errorf("%w: max tokens must be positive, got %d", errorskg.ErrInvalidInput, p.MaxTokens)
	case p.TopP < 0 || p.TopP > 1:
		return fmt.Errorf("%w: top_p must be in [0, 1], got %v", errorskg.ErrInvalidInput, p.TopP)
	case p.Temperature < 0 || p.Temperature > 2:
		return fmt.Errorf("%w: temperature must be in [0, 2], got %v", errorskg.ErrInvalidInput, p.Temperature)
	case p.TopK < 0:
		return fmt.Errorf("%w: top_k must not be negative, got %d", errorskg.ErrInvalidInput, p.TopK)
	}
	return nil
}

// CacheStrategy selects which rendered buffers get a cache hint on their last entry.
type CacheStrategy struct {
	CacheSystem  bool `mapstructure:"system" json:"cache_system"`
	CacheHistory bool `mapstructure:"history" json:"cache_history"`
	CacheTool    bool `mapstructure:"tool" json:"cache_tool"`
}
