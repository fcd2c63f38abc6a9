package llm

// NewXAI creates a provider for xAI's Grok models.
func NewXAI(cfg Config) Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.x.ai"
	}
	if cfg.Model == "" {
		cfg.Model = "grok-2-latest"
	}
	return newOpenAICompatClient(cfg)
}
