package llm

// NewOpenRouter creates a provider for OpenRouter's aggregated model catalog.
func NewOpenRouter(cfg Config) Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://openrouter.ai/api"
	}
	return newOpenAICompatClient(cfg)
}
