package llm

import (
	"fmt"
	"reflect"
	"testing"
)

func TestNewProvider(t *testing.T) {
	cases := []struct {
		provider string
		wantType string
	}{
		{"ollama", "*llm.ollamaClient"},
		{"lmstudio", "*llm.openAICompatClient"},
		{"openrouter", "*llm.openAICompatClient"},
		{"openai", "*llm.openAICompatClient"},
		{"groq", "*llm.openAICompatClient"},
		{"xai", "*llm.openAICompatClient"},
		{"gemini", "*llm.openAICompatClient"},
		{"custom", "*llm.openAICompatClient"},
	}

	for _, c := range cases {
		t.Run(c.provider, func(t *testing.T) {
			p, err := NewProvider(Config{Provider: c.provider})
			if err != nil {
				t.Fatalf("NewProvider(%q) returned error: %v", c.provider, err)
			}
			got := fmt.Sprintf("%T", p)
			if got != c.wantType {
				t.Errorf("NewProvider(%q) = %s, want %s", c.provider, got, c.wantType)
			}
		})
	}
}

func TestNewProviderUnknown(t *testing.T) {
	_, err := NewProvider(Config{Provider: "not-a-real-provider"})
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestNewProviderEmpty(t *testing.T) {
	_, err := NewProvider(Config{})
	if err == nil {
		t.Fatal("expected error for empty provider")
	}
}

func baseURLOf(p Provider) string {
	v := reflect.ValueOf(p)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	f := v.FieldByName("openAICompatClient")
	if f.IsValid() {
		v = f.Elem()
	}
	cfg := v.FieldByName("cfg")
	return cfg.FieldByName("BaseURL").String()
}

func TestDefaultBaseURLs(t *testing.T) {
	cases := map[string]string{
		"ollama":     "http://localhost:11434",
		"lmstudio":   "http://localhost:1234",
		"openrouter": "https://openrouter.ai/api",
		"openai":     "https://api.openai.com",
		"groq":       "https://api.groq.com/openai",
		"xai":        "https://api.x.ai",
		"gemini":     "https://generativelanguage.googleapis.com/v1beta/openai",
	}

	for provider, want := range cases {
		p, err := NewProvider(Config{Provider: provider})
		if err != nil {
			t.Fatalf("NewProvider(%q): %v", provider, err)
		}
		if got := baseURLOf(p); got != want {
			t.Errorf("provider %q: base URL = %s, want %s", provider, got, want)
		}
	}
}

func TestCustomProviderNoDefaultURL(t *testing.T) {
	p, err := NewProvider(Config{Provider: "custom"})
	if err != nil {
		t.Fatalf("NewProvider(custom): %v", err)
	}
	if got := baseURLOf(p); got != "" {
		t.Errorf("custom provider should have no default base URL, got %s", got)
	}
}

func TestExplicitBaseURLPreserved(t *testing.T) {
	p, err := NewProvider(Config{Provider: "ollama", BaseURL: "http://example.internal:9999"})
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	if got := baseURLOf(p); got != "http://example.internal:9999" {
		t.Errorf("explicit base URL not preserved, got %s", got)
	}
}

func TestProviderImplementsInterface(t *testing.T) {
	var _ Provider = (*openAICompatClient)(nil)
	var _ Provider = (*ollamaClient)(nil)
}

func TestModelPassedThrough(t *testing.T) {
	p, err := NewProvider(Config{Provider: "groq", Model: "custom-model"})
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	v := reflect.ValueOf(p).Elem()
	cfg := v.FieldByName("cfg")
	if got := cfg.FieldByName("Model").String(); got != "custom-model" {
		t.Errorf("model = %s, want custom-model", got)
	}
}

func TestAPIKeyPassedThrough(t *testing.T) {
	p, err := NewProvider(Config{Provider: "openai", APIKey: "sk-test-123"})
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	v := reflect.ValueOf(p).Elem()
	cfg := v.FieldByName("cfg")
	if got := cfg.FieldByName("APIKey").String(); got != "sk-test-123" {
		t.Errorf("api key not passed through")
	}
}
