// Package embedding turns chunk text into fixed-width vectors and indexes
// them for approximate nearest-neighbour retrieval, optionally blended
// with a lexical boost for identifier-like queries.
package embedding

import (
	"context"
	"crypto/sha256"
	"math"
	"strings"

	"github.com/adaptiveq/engine/llm"
)

// Embedder turns a batch of texts into dense vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dim() int
}

// ---------------------------------------------------------------------------
// Local, deterministic, zero-dependency embedder
// ---------------------------------------------------------------------------

// LocalEmbedder is a dependency-free default: a hashed n-gram
// bag-of-words projected into a fixed-width vector and L2-normalized so
// cosine similarity is well-defined. Same text always yields the same
// vector, and it requires no network access, which keeps the module fully
// testable without an LLM/embedding provider configured.
type LocalEmbedder struct {
	dim int
	n   int // n-gram size in words
}

// NewLocalEmbedder returns a LocalEmbedder projecting into dim dimensions
// using word n-grams of size n (n<=0 defaults to 2).
func NewLocalEmbedder(dim, n int) *LocalEmbedder {
	if dim <= 0 {
		dim = 256
	}
	if n <= 0 {
		n = 2
	}
	return &LocalEmbedder{dim: dim, n: n}
}

func (e *LocalEmbedder) Dim() int { return e.dim }

func (e *LocalEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.embedOne(t)
	}
	return out, nil
}

func (e *LocalEmbedder) embedOne(text string) []float32 {
	vec := make([]float32, e.dim)
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return vec
	}

	for i := 0; i < len(words); i++ {
		end := i + e.n
		if end > len(words) {
			end = len(words)
		}
		gram := strings.Join(words[i:end], " ")
		idx, sign := hashToBucket(gram, e.dim)
		vec[idx] += sign
	}

	return l2Normalize(vec)
}

func hashToBucket(s string, dim int) (int, float32) {
	h := sha256.Sum256([]byte(s))
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(h[i])
	}
	idx := int(v % uint64(dim))
	sign := float32(1)
	if h[8]&1 == 1 {
		sign = -1
	}
	return idx, sign
}

func l2Normalize(v []float32) []float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return v
	}
	norm := float32(math.Sqrt(sumSq))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

// ---------------------------------------------------------------------------
// LLM-provider-backed embedder
// ---------------------------------------------------------------------------

// ProviderEmbedder delegates to a configured llm.Provider's Embed call.
type ProviderEmbedder struct {
	provider llm.Provider
	dim      int
}

// NewProviderEmbedder wraps an llm.Provider. dim should match the
// provider's actual output width, used only to size the vec0 table.
func NewProviderEmbedder(p llm.Provider, dim int) *ProviderEmbedder {
	return &ProviderEmbedder{provider: p, dim: dim}
}

func (e *ProviderEmbedder) Dim() int { return e.dim }

func (e *ProviderEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return e.provider.Embed(ctx, texts)
}

// EmbedBatched embeds texts in batches of 32, falling back to per-text
// calls when a batch fails so a single oversized text does not sink the
// whole batch. Returns one vector per input text; entries that could not
// be embedded are left nil.
func EmbedBatched(ctx context.Context, e Embedder, texts []string) ([][]float32, int) {
	const batchSize = 32
	out := make([][]float32, len(texts))
	var failed int

	for i := 0; i < len(texts); i += batchSize {
		end := i + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[i:end]

		embeddings, err := e.Embed(ctx, batch)
		if err != nil {
			for j, text := range batch {
				single, serr := e.Embed(ctx, []string{text})
				if serr != nil || len(single) == 0 || len(single[0]) == 0 {
					failed++
					continue
				}
				out[i+j] = single[0]
			}
			continue
		}

		for j, emb := range embeddings {
			if len(emb) == 0 {
				failed++
				continue
			}
			out[i+j] = emb
		}
	}

	return out, failed
}
