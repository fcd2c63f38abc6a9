// Package rqg is the retrieval-augmented question generator: it composes
// a grade-appropriate prompt from retrieved chunk text, invokes an LLM to
// produce structured question candidates, validates each candidate
// individually, and falls back to deterministic templates whenever the
// call fails, times out, or nothing validates.
package rqg

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/adaptiveq/engine/llm"
	"github.com/adaptiveq/engine/store"
)

// SourceChunk is one piece of retrieved context fed into the prompt.
type SourceChunk struct {
	ID      int64
	Content string
}

// GenerateParams describes one generation request.
type GenerateParams struct {
	DocumentID      int64
	Topic           string
	Grade           int
	NQuestions      int
	Types           []string
	Chunks          []SourceChunk
	Personalization *PersonalizationContext
}

// DefaultTimeout is the hard cap on the LLM call before falling back to
// templates.
const DefaultTimeout = 30 * time.Second

// Generate produces NQuestions-or-more question candidates for params.
// It never returns an error: unreachable services, timeouts, and
// zero-valid-candidate responses are all absorbed into the fallback
// template path, which is a tagged variant of the same return type
// (metadata.source = "template") rather than a separate code path.
func Generate(ctx context.Context, provider llm.Provider, params GenerateParams) []store.Question {
	if params.NQuestions <= 0 {
		params.NQuestions = 1
	}
	if len(params.Types) == 0 {
		params.Types = []string{"multiple_choice"}
	}

	callCtx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	questions, err := generateFromLLM(callCtx, provider, params)
	if err == nil && len(questions) >= params.NQuestions {
		return questions
	}

	needed := params.NQuestions - len(questions)
	if needed <= 0 {
		needed = params.NQuestions
	}
	questions = append(questions, fallbackTemplates(params, needed)...)
	return questions
}

func generateFromLLM(ctx context.Context, provider llm.Provider, params GenerateParams) ([]store.Question, error) {
	if provider == nil {
		return nil, errNoProvider
	}

	contextChunks := make([]string, len(params.Chunks))
	chunkIDs := make([]int64, len(params.Chunks))
	for i, c := range params.Chunks {
		contextChunks[i] = c.Content
		chunkIDs[i] = c.ID
	}

	prompt := ComposePrompt(PromptParams{
		Topic:           params.Topic,
		Grade:           params.Grade,
		NQuestions:      params.NQuestions,
		Types:           params.Types,
		ContextChunks:   contextChunks,
		Personalization: params.Personalization,
	})

	resp, err := provider.Chat(ctx, llm.ChatRequest{
		Messages:       []llm.Message{{Role: "user", Content: prompt}},
		Temperature:    0.7,
		ResponseFormat: "json_object",
	})
	if err != nil {
		return nil, fmt.Errorf("rqg: llm chat: %w", err)
	}

	jsonStr, err := extractJSON(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("rqg: extracting json from llm response: %w", err)
	}

	var parsed struct {
		Questions []candidate `json:"questions"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		return nil, fmt.Errorf("rqg: unmarshalling llm response: %w", err)
	}

	var out []store.Question
	for _, c := range parsed.Questions {
		if verr := c.validate(); verr != nil {
			continue // drop this candidate only, never fail the whole batch
		}
		out = append(out, store.Question{
			ID:            uuid.NewString(),
			DocumentID:    params.DocumentID,
			ChunkIDs:      chunkIDs,
			Topic:         params.Topic,
			GradeLevel:    params.Grade,
			Difficulty:    c.Difficulty,
			QuestionType:  c.QuestionType,
			Body:          c.Body,
			Options:       c.Options,
			CorrectAnswer: c.CorrectAnswer,
			Concepts:      c.Concepts,
			Hints:         c.Hints,
			Explanation:   c.Explanation,
			Metadata:      map[string]string{"source": "generated"},
		})
	}

	if len(out) == 0 {
		return nil, errNoValidCandidates
	}
	return out, nil
}

type generateError string

func (e generateError) Error() string { return string(e) }

const (
	errNoProvider        = generateError("rqg: no llm provider configured")
	errNoValidCandidates = generateError("rqg: zero candidates validated")
)

var codeBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

// extractJSON finds a JSON object in LLM response text, stripping markdown
// code fences and any leading/trailing prose the model added around it.
func extractJSON(raw string) (string, error) {
	if m := codeBlockRe.FindStringSubmatch(raw); len(m) > 1 {
		raw = m[1]
	}
	raw = strings.TrimSpace(raw)

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1], nil
	}

	return "", fmt.Errorf("no JSON object found in response")
}
