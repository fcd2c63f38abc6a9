package llm

// NewLMStudio creates a provider for a local LM Studio instance.
func NewLMStudio(cfg Config) Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:1234"
	}
	return newOpenAICompatClient(cfg)
}
