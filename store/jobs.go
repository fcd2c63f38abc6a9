package store

import (
	"context"
	"database/sql"
	"fmt"
)

// InsertJob records a newly queued generation job.
func (s *Store) InsertJob(ctx context.Context, job *GenerationJob) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO generation_jobs (id, document_id, grade_levels, n_per_grade, types, status)
		VALUES (?, ?, ?, ?, ?, ?)
	`, job.ID, job.DocumentID, marshalInts(job.GradeLevels), job.NPerGrade, marshalStrings(job.Types), job.Status)
	if err != nil {
		return fmt.Errorf("store: insert generation job %s: %w", job.ID, err)
	}
	return nil
}

// UpdateJobStatus transitions a job between queued/running/ready/failed,
// optionally recording the produced question ids or an error message.
func (s *Store) UpdateJobStatus(ctx context.Context, id, status string, questionIDs []string, jobErr string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE generation_jobs
		SET status = ?, question_ids = ?, error = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, status, marshalStrings(questionIDs), jobErr, id)
	if err != nil {
		return fmt.Errorf("store: update generation job %s: %w", id, err)
	}
	return nil
}

// GetJob retrieves a generation job by id.
func (s *Store) GetJob(ctx context.Context, id string) (*GenerationJob, error) {
	var j GenerationJob
	var gradeLevels, types string
	var questionIDs, jobErr sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, document_id, grade_levels, n_per_grade, types, status, question_ids, error, created_at, updated_at
		FROM generation_jobs WHERE id = ?
	`, id).Scan(&j.ID, &j.DocumentID, &gradeLevels, &j.NPerGrade, &types, &j.Status, &questionIDs, &jobErr, &j.CreatedAt, &j.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get generation job %s: %w", id, err)
	}
	j.GradeLevels = unmarshalInts(gradeLevels)
	j.Types = unmarshalStrings(types)
	j.QuestionIDs = unmarshalStrings(questionIDs.String)
	j.Error = jobErr.String
	return &j, nil
}
