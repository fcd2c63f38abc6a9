package llm

import (
	"context"
	"encoding/json"
	"fmt"
)

// ollamaClient wraps the OpenAI-compatible transport but uses Ollama's
// native /api/embed endpoint for embeddings, since Ollama's OpenAI-shim
// embedding support is inconsistent across models.
type ollamaClient struct {
	*openAICompatClient
}

// NewOllama creates a provider for a local Ollama instance.
func NewOllama(cfg Config) Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "llama3.1:8b"
	}
	return &ollamaClient{openAICompatClient: newOpenAICompatClient(cfg)}
}

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

func (o *ollamaClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	body := ollamaEmbedRequest{Model: o.cfg.Model, Input: texts}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("llm: marshal embed request: %w", err)
	}

	var resp ollamaEmbedResponse
	if err := o.doPostRaw(ctx, "/api/embed", payload, &resp); err != nil {
		return nil, err
	}

	out := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		out[i] = float64sToFloat32s(e)
	}
	return out, nil
}

// doPostRaw posts a pre-marshaled body to a path relative to the base URL,
// bypassing the /v1 prefix used by the chat-completions transport.
func (o *ollamaClient) doPostRaw(ctx context.Context, path string, payload []byte, out any) error {
	saved := o.pathPrefix
	o.pathPrefix = ""
	defer func() { o.pathPrefix = saved }()

	var raw json.RawMessage
	if err := o.doPost(ctx, path, json.RawMessage(payload), &raw); err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func float64sToFloat32s(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}
