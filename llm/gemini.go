package llm

// NewGemini creates a provider for Gemini models via Google's OpenAI
// compatibility layer. The compatibility layer lives directly under
// /openai with no additional version segment, so the path prefix is empty.
func NewGemini(cfg Config) Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash"
	}
	return newOpenAICompatClientPrefix(cfg, "")
}
