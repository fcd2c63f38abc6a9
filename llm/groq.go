package llm

// NewGroq creates a provider for the Groq low-latency inference API.
func NewGroq(cfg Config) Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.groq.com/openai"
	}
	if cfg.Model == "" {
		cfg.Model = "llama-3.3-70b-versatile"
	}
	return newOpenAICompatClient(cfg)
}
