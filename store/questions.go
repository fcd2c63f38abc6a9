package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// InsertQuestion stores a newly generated question.
func (s *Store) InsertQuestion(ctx context.Context, q *Question) error {
	metadata, err := marshalMetadata(q.Metadata)
	if err != nil {
		return fmt.Errorf("store: marshal question metadata: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO questions (
			id, document_id, chunk_ids, topic, grade_level, difficulty, question_type,
			body, options, correct_answer, correct_answer_alternates, concepts, hints,
			explanation, metadata
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, q.ID, nullableDocumentID(q.DocumentID), marshalInt64s(q.ChunkIDs), q.Topic, q.GradeLevel,
		q.Difficulty, q.QuestionType, q.Body, marshalStrings(q.Options), q.CorrectAnswer,
		marshalStrings(q.CorrectAnswerAlternates), marshalStrings(q.Concepts), marshalStrings(q.Hints),
		q.Explanation, metadata)
	if err != nil {
		return fmt.Errorf("store: insert question %s: %w", q.ID, err)
	}
	return nil
}

func nullableDocumentID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

// GetQuestion retrieves a non-deleted question by id.
func (s *Store) GetQuestion(ctx context.Context, id string) (*Question, error) {
	row := s.db.QueryRowContext(ctx, questionSelectColumns+` FROM questions WHERE id = ? AND deleted_at IS NULL`, id)
	q, err := scanQuestion(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return q, err
}

// DeleteQuestion soft-deletes a question so existing answer-record
// references stay resolvable.
func (s *Store) DeleteQuestion(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE questions SET deleted_at = CURRENT_TIMESTAMP WHERE id = ?`, id)
	return err
}

// List returns every non-deleted question matching filter.
func (s *Store) List(ctx context.Context, filter QuestionFilter) ([]Question, error) {
	where, args := filter.whereClause()
	rows, err := s.db.QueryContext(ctx, questionSelectColumns+` FROM questions`+where+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list questions: %w", err)
	}
	defer rows.Close()

	var out []Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *q)
	}
	return out, rows.Err()
}

// SampleOne returns one random question matching filter, excluding any id
// in excludeRecent, or nil if none match. Widening the filter across
// difficulty bands on a nil result is the selector's responsibility, not
// this method's: SampleOne always answers a single, precisely-scoped query.
func (s *Store) SampleOne(ctx context.Context, filter QuestionFilter, excludeRecent []string) (*Question, error) {
	where, args := filter.whereClause()

	if len(excludeRecent) > 0 {
		placeholders := make([]string, len(excludeRecent))
		for i, id := range excludeRecent {
			placeholders[i] = "?"
			args = append(args, id)
		}
		if where == "" {
			where = " WHERE id NOT IN (" + strings.Join(placeholders, ",") + ")"
		} else {
			where += " AND id NOT IN (" + strings.Join(placeholders, ",") + ")"
		}
	}

	row := s.db.QueryRowContext(ctx, questionSelectColumns+` FROM questions`+where+` ORDER BY RANDOM() LIMIT 1`, args...)
	q, err := scanQuestion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: sample question: %w", err)
	}
	return q, nil
}

const questionSelectColumns = `
	SELECT id, document_id, chunk_ids, topic, grade_level, difficulty, question_type,
	       body, options, correct_answer, correct_answer_alternates, concepts, hints,
	       explanation, metadata, created_at, deleted_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuestion(r rowScanner) (*Question, error) {
	var q Question
	var documentID sql.NullInt64
	var chunkIDs, options, alternates, concepts, hints, metadata string
	var deletedAt sql.NullTime

	err := r.Scan(&q.ID, &documentID, &chunkIDs, &q.Topic, &q.GradeLevel, &q.Difficulty, &q.QuestionType,
		&q.Body, &options, &q.CorrectAnswer, &alternates, &concepts, &hints, &q.Explanation, &metadata,
		&q.CreatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}

	q.DocumentID = documentID.Int64
	q.ChunkIDs = unmarshalInt64s(chunkIDs)
	q.Options = unmarshalStrings(options)
	q.CorrectAnswerAlternates = unmarshalStrings(alternates)
	q.Concepts = unmarshalStrings(concepts)
	q.Hints = unmarshalStrings(hints)
	q.Metadata = unmarshalMetadata(metadata)
	if deletedAt.Valid {
		t := deletedAt.Time
		q.DeletedAt = &t
	}
	return &q, nil
}

// whereClause builds a WHERE clause (always including the leading "WHERE",
// since soft-deleted rows are excluded even when the filter is empty) and
// its bind args from the non-zero fields of a QuestionFilter.
func (f QuestionFilter) whereClause() (string, []any) {
	clauses := []string{"deleted_at IS NULL"}
	var args []any

	if f.Topic != "" {
		clauses = append(clauses, "topic = ?")
		args = append(args, f.Topic)
	}
	if f.GradeLevel != 0 {
		clauses = append(clauses, "grade_level = ?")
		args = append(args, f.GradeLevel)
	}
	if f.DifficultyMin != 0 || f.DifficultyMax != 0 {
		lo, hi := f.DifficultyMin, f.DifficultyMax
		if lo == 0 {
			lo = 1
		}
		if hi == 0 {
			hi = 5
		}
		clauses = append(clauses, "difficulty BETWEEN ? AND ?")
		args = append(args, lo, hi)
	} else if f.Difficulty != 0 {
		clauses = append(clauses, "difficulty = ?")
		args = append(args, f.Difficulty)
	}
	if f.DocumentID != 0 {
		clauses = append(clauses, "document_id = ?")
		args = append(args, f.DocumentID)
	}
	if f.Concept != "" {
		clauses = append(clauses, "EXISTS (SELECT 1 FROM json_each(concepts) WHERE json_each.value = ?)")
		args = append(args, f.Concept)
	}

	return " WHERE " + strings.Join(clauses, " AND "), args
}

func marshalMetadata(m map[string]string) (string, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	return string(b), err
}

func unmarshalMetadata(s string) map[string]string {
	if s == "" || s == "{}" {
		return nil
	}
	var m map[string]string
	json.Unmarshal([]byte(s), &m)
	return m
}
