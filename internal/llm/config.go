// Package llm provides centralized LLM configuration and client abstractions.
// Text and image generation are routed through model tiers so the backing models can change without touching callers.
package llm

// ModelTier represents the capability a request needs from a model
type ModelTier string

const (
	// TierStandard is for structured text output: refinement, persona details
	TierStandard ModelTier = "standard"
	// TierImage is for image editing from an input photo
	TierImage ModelTier = "image"
)

// Provider represents an LLM provider
type Provider string

// Provider constants define supported LLM providers
const (
	// ProviderGemini is the Google Gemini provider
	ProviderGemini Provider = "gemini"
)

// Config holds the model configuration for the application
type Config struct {
	Provider    Provider
	Models      map[ModelTier]string
	Temperature float32
}

// DefaultConfig returns the default configuration (currently Gemini)
func DefaultConfig() *Config {
	return DefaultGeminiConfig()
}

// DefaultGeminiConfig returns the default Gemini configuration
func DefaultGeminiConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierStandard: "gemini-2.5-flash",
			TierImage:    "gemini-2.5-flash-image",
		},
		Temperature: 0.7,
	}
}

// GetModel returns the model name for a given tier.
// Text tiers fall back to standard. The image tier never falls back
// to a text model since those cannot return images.
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok && model != "" {
		return model
	}
	if tier == TierImage {
		return ""
	}
	if model, ok := c.Models[TierStandard]; ok && model != "" {
		return model
	}
	return ""
}

// WithModel returns a new Config with a specific model for a tier
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	newConfig := &Config{
		Provider:    c.Provider,
		Models:      make(map[ModelTier]string, len(c.Models)+1),
		Temperature: c.Temperature,
	}
	for k, v := range c.Models {
		newConfig.Models[k] = v
	}
	newConfig.Models[tier] = model
	return newConfig
}
