// Package adaptiveq is an adaptive question-delivery engine for
// measurement education: it ingests curriculum documents, generates
// grade-appropriate questions from retrieved context, and adapts question
// difficulty to each learner via a 1-parameter IRT (Rasch) model.
package adaptiveq

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/adaptiveq/engine/chunker"
	"github.com/adaptiveq/engine/embedding"
	"github.com/adaptiveq/engine/irt"
	"github.com/adaptiveq/engine/llm"
	"github.com/adaptiveq/engine/parser"
	"github.com/adaptiveq/engine/rqg"
	"github.com/adaptiveq/engine/selector"
	"github.com/adaptiveq/engine/store"
)

// Engine is the main entry point for the adaptive question-delivery
// service, mirroring the shape of a Graph RAG engine's
// ingest/query/update/delete surface generalized to this domain's
// upload/generate/serve/grade operations.
type Engine interface {
	Upload(ctx context.Context, path, title, topic string, gradeLevels []int, uploader string) (*store.Document, error)
	Generate(ctx context.Context, documentID int64, gradeLevels []int, nPerGrade int, types []string) ([]string, error)
	NextQuestion(ctx context.Context, learnerID, unitID, topic string, grade int) (*NextQuestionResult, error)
	SubmitAnswer(ctx context.Context, learnerID, unitID, questionID, answer string, timeTakenMs int) (*SubmitAnswerResult, error)
	Analytics(ctx context.Context, learnerID, unitID string) (*store.Analytics, error)
	GetDocument(ctx context.Context, id int64) (*store.Document, error)
	ListDocuments(ctx context.Context) ([]store.Document, error)
	DeleteDocument(ctx context.Context, id int64, cascade bool) error
	IndexSize(ctx context.Context) (int, error)
	Close() error
}

// NextQuestionResult is the payload returned by NextQuestion.
type NextQuestionResult struct {
	Question         *store.Question
	Ability          float64
	TargetDifficulty int
}

// SubmitAnswerResult is the payload returned by SubmitAnswer.
type SubmitAnswerResult struct {
	IsCorrect      bool
	AbilityBefore  float64
	AbilityAfter   float64
	Delta          float64
	NextDifficulty int
	CorrectAnswer  string
	Explanation    string
}

type engine struct {
	cfg      Config
	store    *store.Store
	index    *embedding.Index
	embedder embedding.Embedder
	chatLLM  llm.Provider
	parsers  *parser.Registry
	chunkr   *chunker.Chunker
}

// New wires the engine's components from cfg, opening (and migrating) the
// persistent store.
func New(cfg Config) (Engine, error) {
	if cfg.EmbeddingDim == 0 {
		cfg.EmbeddingDim = 256
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = 1000
	}
	if cfg.LearningRate == 0 {
		cfg.LearningRate = 0.3
	}

	dbPath := cfg.resolveDBPath()
	s, err := store.New(dbPath, cfg.EmbeddingDim)
	if err != nil {
		return nil, fmt.Errorf("adaptiveq: opening store: %w", err)
	}

	var chatLLM llm.Provider
	if cfg.Chat.Provider != "" {
		chatLLM, err = llm.NewProvider(cfg.Chat)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("adaptiveq: creating chat provider: %w", err)
		}
	}

	var embedder embedding.Embedder
	if cfg.Embedding.Provider != "" {
		provider, err := llm.NewProvider(cfg.Embedding)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("adaptiveq: creating embedding provider: %w", err)
		}
		embedder = embedding.NewProviderEmbedder(provider, cfg.EmbeddingDim)
	} else {
		embedder = embedding.NewLocalEmbedder(cfg.EmbeddingDim, 2)
	}

	return &engine{
		cfg:      cfg,
		store:    s,
		index:    embedding.NewIndex(s.DB(), cfg.EmbeddingDim),
		embedder: embedder,
		chatLLM:  chatLLM,
		parsers:  parser.NewRegistry(),
		chunkr:   chunker.New(chunker.Config{Size: cfg.ChunkSize, Overlap: cfg.ChunkOverlap}),
	}, nil
}

func (e *engine) Close() error {
	return e.store.Close()
}

// IndexSize reports the number of vectors currently stored in the
// embedding index, for the healthz payload and size gauges.
func (e *engine) IndexSize(ctx context.Context) (int, error) {
	return e.index.Count(ctx)
}

// Upload parses, chunks, and embeds a document (C1 -> C2), recording it
// as ready or failed depending on extraction outcome.
func (e *engine) Upload(ctx context.Context, path, title, topic string, gradeLevels []int, uploader string) (*store.Document, error) {
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	p, err := e.parsers.Get(format)
	if err != nil {
		return nil, ErrUnsupportedFormat
	}

	docID, err := e.store.InsertDocument(ctx, &store.Document{
		Title: title, Topic: topic, GradeLevels: gradeLevels, Uploader: uploader, Status: "pending",
	})
	if err != nil {
		return nil, fmt.Errorf("adaptiveq: insert document: %w", err)
	}
	if err := e.store.UpdateDocumentStatus(ctx, docID, "processing", -1); err != nil {
		return nil, fmt.Errorf("adaptiveq: update document status: %w", err)
	}

	result, err := p.Parse(ctx, path)
	if err != nil {
		e.store.UpdateDocumentStatus(ctx, docID, "failed", -1)
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	chunks := e.chunkr.Chunk(result.Sections)
	totalChars := 0
	for _, c := range chunks {
		totalChars += len(c.Content)
	}
	if totalChars < e.cfg.MinTextChars {
		e.store.UpdateDocumentStatus(ctx, docID, "failed", -1)
		return nil, ErrContentTooShort
	}

	storeChunks := make([]store.Chunk, len(chunks))
	for i, c := range chunks {
		storeChunks[i] = store.Chunk{DocumentID: docID, SequenceIndex: c.SequenceIndex, Content: c.Content, CharStart: c.CharStart, CharEnd: c.CharEnd}
	}
	chunkIDs, err := e.store.InsertChunks(ctx, docID, storeChunks)
	if err != nil {
		e.store.UpdateDocumentStatus(ctx, docID, "failed", -1)
		return nil, fmt.Errorf("adaptiveq: insert chunks: %w", err)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, failed := embedding.EmbedBatched(ctx, e.embedder, texts)
	if len(texts) > 0 && failed == len(texts) {
		e.store.UpdateDocumentStatus(ctx, docID, "failed", -1)
		return nil, fmt.Errorf("%w: no chunk could be embedded", ErrIndexUnavailable)
	}

	entries := make([]embedding.Entry, 0, len(chunkIDs))
	for i, v := range vectors {
		if v == nil {
			continue
		}
		entries = append(entries, embedding.Entry{ChunkID: chunkIDs[i], Vector: v})
	}
	if err := e.index.Upsert(ctx, entries); err != nil {
		e.store.UpdateDocumentStatus(ctx, docID, "failed", -1)
		return nil, fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}

	if err := e.store.UpdateDocumentStatus(ctx, docID, "ready", len(chunks)); err != nil {
		return nil, fmt.Errorf("adaptiveq: update document status: %w", err)
	}
	return e.store.GetDocument(ctx, docID)
}

// Generate produces question candidates for a document across the
// requested grade levels (C2 -> C3 -> C4 -> C5).
func (e *engine) Generate(ctx context.Context, documentID int64, gradeLevels []int, nPerGrade int, types []string) ([]string, error) {
	doc, err := e.store.GetDocument(ctx, documentID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}
	if doc.Status != "ready" {
		return nil, ErrDocumentNotReady
	}

	jobID := uuid.NewString()
	if err := e.store.InsertJob(ctx, &store.GenerationJob{
		ID: jobID, DocumentID: documentID, GradeLevels: gradeLevels, NPerGrade: nPerGrade, Types: types, Status: "running",
	}); err != nil {
		return nil, fmt.Errorf("adaptiveq: insert generation job: %w", err)
	}

	var allIDs []string
	for _, grade := range gradeLevels {
		chunks, err := e.retrieveContext(ctx, documentID, doc.Topic, grade)
		if err != nil {
			e.store.UpdateJobStatus(ctx, jobID, "failed", allIDs, err.Error())
			return nil, fmt.Errorf("adaptiveq: retrieve context for grade %d: %w", grade, err)
		}

		questions := rqg.Generate(ctx, e.chatLLM, rqg.GenerateParams{
			DocumentID: documentID, Topic: doc.Topic, Grade: grade, NQuestions: nPerGrade, Types: types, Chunks: chunks,
		})
		for i := range questions {
			if err := e.store.InsertQuestion(ctx, &questions[i]); err != nil {
				e.store.UpdateJobStatus(ctx, jobID, "failed", allIDs, err.Error())
				return nil, fmt.Errorf("adaptiveq: insert question: %w", err)
			}
			allIDs = append(allIDs, questions[i].ID)
		}
	}

	if err := e.store.UpdateJobStatus(ctx, jobID, "ready", allIDs, ""); err != nil {
		return nil, fmt.Errorf("adaptiveq: finalize generation job: %w", err)
	}
	return allIDs, nil
}

func (e *engine) retrieveContext(ctx context.Context, documentID int64, topic string, grade int) ([]rqg.SourceChunk, error) {
	queryText := fmt.Sprintf("%s grade %d", topic, grade)
	vectors, _ := e.embedder.Embed(ctx, []string{queryText})
	var queryVector []float32
	if len(vectors) > 0 {
		queryVector = vectors[0]
	}

	k := e.cfg.RetrievalK
	if k == 0 {
		k = 5
	}
	results, err := e.index.Query(ctx, queryVector, queryText, k, embedding.Filter{DocumentID: documentID})
	if err != nil {
		return nil, err
	}

	chunks := make([]rqg.SourceChunk, len(results))
	for i, r := range results {
		chunks[i] = rqg.SourceChunk{ID: r.ChunkID, Content: r.Content}
	}
	return chunks, nil
}

// NextQuestion selects a question for a learner via the selector (C8), then
// records the target difficulty the selection was drawn against so
// Analytics reports the band the learner is currently being served rather
// than whatever difficulty their record was initialized with.
func (e *engine) NextQuestion(ctx context.Context, learnerID, unitID, topic string, grade int) (*NextQuestionResult, error) {
	q, target, err := selector.Select(ctx, e.store, e.store, learnerID, unitID, topic, grade)
	if err != nil {
		if err == selector.ErrNoQuestionsAvailable {
			return nil, ErrNoQuestionsAvailable
		}
		return nil, err
	}

	ability, err := e.store.UpdateAbility(ctx, learnerID, unitID, func(r *store.AbilityRecord) error {
		r.CurrentDifficulty = target
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &NextQuestionResult{Question: q, Ability: ability.Ability, TargetDifficulty: target}, nil
}

// SubmitAnswer validates an answer, updates ability via IRT (C7), and
// appends an immutable answer record (C6). The read-modify-write against
// the ability record runs inside store.UpdateAbility, which holds the
// per-key lock across the whole step and retries once on a lost
// cross-process CAS race, so concurrent submissions for the same
// (learnerID, unitID) serialize instead of one silently clobbering the
// other's update.
func (e *engine) SubmitAnswer(ctx context.Context, learnerID, unitID, questionID, answer string, timeTakenMs int) (*SubmitAnswerResult, error) {
	q, err := e.store.GetQuestion(ctx, questionID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, ErrQuestionNotFound
		}
		return nil, err
	}

	correct := validateAnswer(q, answer)

	var before, newTheta, delta float64
	ability, err := e.store.UpdateAbility(ctx, learnerID, unitID, func(r *store.AbilityRecord) error {
		before = r.Ability
		newTheta, delta = irt.Update(r.Ability, q.Difficulty, correct, e.cfg.LearningRate)
		r.Ability = newTheta
		r.TotalAnswered++
		if correct {
			r.TotalCorrect++
		}
		r.ConceptsMastered = irt.UpdateConceptMastery(r.ConceptsMastered, q.Concepts, correct)
		r.CurrentDifficulty = irt.TargetDifficulty(q.GradeLevel, newTheta)
		return nil
	})
	if err != nil {
		if err == store.ErrStaleRecord {
			return nil, ErrStaleRecord
		}
		return nil, err
	}

	if err := e.store.AppendAnswer(ctx, &store.AnswerRecord{
		LearnerID: learnerID, QuestionID: questionID, UnitID: unitID, AnswerGiven: answer,
		IsCorrect: correct, TimeTakenMs: timeTakenMs, DifficultyAtAttempt: q.Difficulty,
		AbilityBefore: before, AbilityAfter: newTheta,
	}); err != nil {
		return nil, fmt.Errorf("adaptiveq: append answer record: %w", err)
	}

	return &SubmitAnswerResult{
		IsCorrect: correct, AbilityBefore: before, AbilityAfter: newTheta, Delta: delta,
		NextDifficulty: ability.CurrentDifficulty, CorrectAnswer: q.CorrectAnswer, Explanation: q.Explanation,
	}, nil
}

// validateAnswer implements the per-type answer comparison rule from the
// orchestrator's contract: multiple_choice and short_answer compare case-
// insensitively after trimming (short_answer also checks alternates);
// numeric parses as a decimal and compares with an absolute tolerance.
func validateAnswer(q *store.Question, given string) bool {
	switch q.QuestionType {
	case "multiple_choice":
		return canonicalize(given) == canonicalize(q.CorrectAnswer)
	case "numeric":
		givenVal, err := strconv.ParseFloat(strings.TrimSpace(given), 64)
		if err != nil {
			return false
		}
		wantVal, err := strconv.ParseFloat(strings.TrimSpace(q.CorrectAnswer), 64)
		if err != nil {
			return false
		}
		tolerance := numericTolerance(q)
		return abs(givenVal-wantVal) <= tolerance
	default: // short_answer
		if canonicalize(given) == canonicalize(q.CorrectAnswer) {
			return true
		}
		for _, alt := range q.CorrectAnswerAlternates {
			if canonicalize(given) == canonicalize(alt) {
				return true
			}
		}
		return false
	}
}

const defaultNumericTolerance = 1e-6

func numericTolerance(q *store.Question) float64 {
	if q.Metadata == nil {
		return defaultNumericTolerance
	}
	if raw, ok := q.Metadata["tolerance"]; ok {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			return v
		}
	}
	return defaultNumericTolerance
}

func canonicalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func (e *engine) Analytics(ctx context.Context, learnerID, unitID string) (*store.Analytics, error) {
	return e.store.Analytics(ctx, learnerID, unitID)
}

func (e *engine) GetDocument(ctx context.Context, id int64) (*store.Document, error) {
	doc, err := e.store.GetDocument(ctx, id)
	if err == store.ErrNotFound {
		return nil, ErrDocumentNotFound
	}
	return doc, err
}

func (e *engine) ListDocuments(ctx context.Context) ([]store.Document, error) {
	return e.store.ListDocuments(ctx)
}

func (e *engine) DeleteDocument(ctx context.Context, id int64, cascade bool) error {
	if err := e.index.Delete(ctx, id); err != nil {
		return fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}
	if err := e.store.DeleteDocument(ctx, id, cascade); err != nil {
		return fmt.Errorf("adaptiveq: delete document: %w", err)
	}
	return nil
}
