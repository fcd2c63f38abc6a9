package store

import "time"

// Document is an uploaded curriculum artifact.
type Document struct {
	ID          int64
	Title       string
	Topic       string // Length, Area, Capacity, Weight
	GradeLevels []int
	Uploader    string
	Status      string // pending, processing, ready, failed
	ChunkCount  int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Chunk is a contiguous, character-addressed text span of a Document.
// Immutable after creation.
type Chunk struct {
	ID            int64
	DocumentID    int64
	SequenceIndex int
	Content       string
	CharStart     int
	CharEnd       int
}

// ConceptMastery is one row of a learner's per-concept mastery within a
// unit — a genuine keyed table column set, never a nested map.
type ConceptMastery struct {
	Concept   string
	Attempted int
	Correct   int
	Mastery   float64
}

// Question is a generated, structured item.
type Question struct {
	ID                      string
	DocumentID              int64
	ChunkIDs                []int64
	Topic                   string
	GradeLevel              int
	Difficulty              int
	QuestionType            string // multiple_choice, short_answer, numeric
	Body                    string
	Options                 []string
	CorrectAnswer           string
	CorrectAnswerAlternates []string
	Concepts                []string
	Hints                   []string
	Explanation             string
	Metadata                map[string]string
	CreatedAt               time.Time
	DeletedAt               *time.Time
}

// AbilityRecord is per-(learner, unit) adaptive state. Version is a
// monotonic counter: Update compares it, not UpdatedAt, so two writes
// landing in the same wall-clock second remain distinguishable.
type AbilityRecord struct {
	LearnerID         string
	UnitID            string
	Ability           float64
	CurrentDifficulty int
	TotalAnswered     int
	TotalCorrect      int
	ConceptsMastered  []ConceptMastery
	Version           int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// AnswerRecord is an immutable, append-only answer-submission log entry.
type AnswerRecord struct {
	ID                  int64
	LearnerID           string
	QuestionID          string
	UnitID              string
	AnswerGiven         string
	IsCorrect           bool
	TimeTakenMs         int
	DifficultyAtAttempt int
	AbilityBefore       float64
	AbilityAfter        float64
	Timestamp           time.Time
}

// GenerationJob tracks a long-running question-generation request as an
// explicit entity instead of coupling it to the requesting goroutine.
type GenerationJob struct {
	ID          string
	DocumentID  int64
	GradeLevels []int
	NPerGrade   int
	Types       []string
	Status      string // queued, running, ready, failed
	QuestionIDs []string
	Error       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Analytics is the aggregate view returned for a (learner_id, unit_id).
type Analytics struct {
	Total            int
	Correct          int
	Accuracy         float64
	Ability          float64
	Difficulty       int
	ConceptsMastered []ConceptMastery
}

// QuestionFilter is a conjunction over Question fields used by List and
// SampleOne. Zero-value fields are unconstrained.
type QuestionFilter struct {
	Topic         string
	GradeLevel    int // 0 = unconstrained
	Difficulty    int // 0 = unconstrained, use DifficultyMin/Max for a range
	DifficultyMin int
	DifficultyMax int
	DocumentID    int64
	Concept       string
}
