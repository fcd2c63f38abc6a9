package rqg

import (
	"context"
	"testing"

	"github.com/adaptiveq/engine/llm"
)

type fakeProvider struct {
	content string
	err     error
}

func (f *fakeProvider) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &llm.ChatResponse{Content: f.content}, nil
}

func (f *fakeProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, nil
}

const validResponse = `{"questions": [
	{"question_type": "multiple_choice", "body": "How long?", "options": ["1m","2m"], "correct_answer": "1m", "difficulty": 2, "concepts": ["length"]},
	{"question_type": "numeric", "body": "How many centimeters?", "correct_answer": "10", "difficulty": 3}
]}`

func TestGenerateReturnsValidatedLLMCandidates(t *testing.T) {
	provider := &fakeProvider{content: validResponse}
	questions := Generate(context.Background(), provider, GenerateParams{
		Topic: "Length", Grade: 3, NQuestions: 2, Types: []string{"multiple_choice", "numeric"},
		Chunks: []SourceChunk{{ID: 1, Content: "a meter is 100 centimeters"}},
	})
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}
	for _, q := range questions {
		if q.Metadata["source"] != "generated" {
			t.Errorf("expected source=generated, got %q", q.Metadata["source"])
		}
		if q.ID == "" {
			t.Error("expected a non-empty generated id")
		}
	}
}

func TestGenerateFallsBackOnLLMError(t *testing.T) {
	provider := &fakeProvider{err: errSimulatedFailure}
	questions := Generate(context.Background(), provider, GenerateParams{
		Topic: "Length", Grade: 2, NQuestions: 3, Types: []string{"numeric"},
	})
	if len(questions) < 3 {
		t.Fatalf("expected at least 3 fallback questions, got %d", len(questions))
	}
	for _, q := range questions {
		if q.Metadata["source"] != "template" {
			t.Errorf("expected all fallback questions to be tagged template, got %q", q.Metadata["source"])
		}
		if q.Difficulty < 1 || q.Difficulty > 3 {
			t.Errorf("expected grade=2 fallback difficulty in [1,3], got %d", q.Difficulty)
		}
	}
}

func TestGenerateFallsBackWhenZeroCandidatesValidate(t *testing.T) {
	provider := &fakeProvider{content: `{"questions": [{"question_type": "essay", "body": "bad", "correct_answer": "x", "difficulty": 2}]}`}
	questions := Generate(context.Background(), provider, GenerateParams{
		Topic: "Length", Grade: 1, NQuestions: 1, Types: []string{"numeric"},
	})
	if len(questions) == 0 {
		t.Fatal("expected fallback questions when zero candidates validate")
	}
	if questions[0].Metadata["source"] != "template" {
		t.Errorf("expected template fallback, got %q", questions[0].Metadata["source"])
	}
}

func TestGenerateHandlesMarkdownFencedJSON(t *testing.T) {
	fenced := "```json\n" + validResponse + "\n```"
	provider := &fakeProvider{content: fenced}
	questions := Generate(context.Background(), provider, GenerateParams{
		Topic: "Length", Grade: 3, NQuestions: 2, Types: []string{"multiple_choice", "numeric"},
	})
	if len(questions) != 2 {
		t.Fatalf("expected markdown-fenced JSON to parse into 2 questions, got %d", len(questions))
	}
}

func TestGenerateNilProviderFallsBack(t *testing.T) {
	questions := Generate(context.Background(), nil, GenerateParams{Topic: "Mass", Grade: 4, NQuestions: 2})
	if len(questions) < 2 {
		t.Fatalf("expected fallback questions with nil provider, got %d", len(questions))
	}
}

type simulatedError string

func (e simulatedError) Error() string { return string(e) }

const errSimulatedFailure = simulatedError("simulated llm failure")
