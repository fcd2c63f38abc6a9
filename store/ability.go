package store

import (
	"context"
	"database/sql"
	"fmt"
)

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// GetOrInit returns the learner's ability record for unitID, creating it
// with ability=0 and current_difficulty=clamp(grade,1,5) if this is the
// learner's first interaction with the unit.
func (s *Store) GetOrInit(ctx context.Context, learnerID, unitID string, grade int) (*AbilityRecord, error) {
	unlock := s.locks.lock(abilityKey(learnerID, unitID))
	defer unlock()

	rec, err := s.getAbility(ctx, learnerID, unitID)
	if err == nil {
		return rec, nil
	}
	if err != ErrNotFound {
		return nil, err
	}

	difficulty := clampInt(grade, 1, 5)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO student_ability (learner_id, unit_id, ability, current_difficulty, total_answered, total_correct)
		VALUES (?, ?, 0, ?, 0, 0)
	`, learnerID, unitID, difficulty)
	if err != nil {
		return nil, fmt.Errorf("store: init ability record: %w", err)
	}
	return s.getAbility(ctx, learnerID, unitID)
}

func (s *Store) getAbility(ctx context.Context, learnerID, unitID string) (*AbilityRecord, error) {
	r := &AbilityRecord{LearnerID: learnerID, UnitID: unitID}
	err := s.db.QueryRowContext(ctx, `
		SELECT ability, current_difficulty, total_answered, total_correct, version, created_at, updated_at
		FROM student_ability WHERE learner_id = ? AND unit_id = ?
	`, learnerID, unitID).Scan(&r.Ability, &r.CurrentDifficulty, &r.TotalAnswered, &r.TotalCorrect, &r.Version, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get ability record: %w", err)
	}
	r.ConceptsMastered, err = s.getConceptMastery(ctx, learnerID, unitID)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Update persists record's new ability/difficulty/counters via an
// optimistic compare-and-swap on Version: record.Version must be the value
// the caller most recently read. A loser's write returns ErrStaleRecord
// rather than silently clobbering a concurrent writer's update. Version is
// a monotonic counter rather than updated_at, since two writes landing in
// the same CURRENT_TIMESTAMP second would otherwise compare equal and the
// loser would clobber the winner instead of losing the race cleanly.
//
// Update alone does not close the TOCTOU gap between a prior read (e.g. via
// GetOrInit) and this write — same-process callers that need the whole
// read-modify-write to be atomic should use UpdateAbility instead, which
// holds the per-key lock across both steps.
func (s *Store) Update(ctx context.Context, record *AbilityRecord) error {
	unlock := s.locks.lock(abilityKey(record.LearnerID, record.UnitID))
	defer unlock()
	return s.casUpdateLocked(ctx, record)
}

// casUpdateLocked performs the compare-and-swap write. Callers must already
// hold the per-key lock for (record.LearnerID, record.UnitID).
func (s *Store) casUpdateLocked(ctx context.Context, record *AbilityRecord) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE student_ability
		SET ability = ?, current_difficulty = ?, total_answered = ?, total_correct = ?,
			version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE learner_id = ? AND unit_id = ? AND version = ?
	`, record.Ability, record.CurrentDifficulty, record.TotalAnswered, record.TotalCorrect,
		record.LearnerID, record.UnitID, record.Version)
	if err != nil {
		return fmt.Errorf("store: update ability record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStaleRecord
	}
	record.Version++

	for _, cm := range record.ConceptsMastered {
		if _, err := s.db.ExecContext(ctx, `
			INSERT INTO concept_mastery (learner_id, unit_id, concept, attempted, correct, mastery)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(learner_id, unit_id, concept) DO UPDATE SET
				attempted = excluded.attempted, correct = excluded.correct, mastery = excluded.mastery
		`, record.LearnerID, record.UnitID, cm.Concept, cm.Attempted, cm.Correct, cm.Mastery); err != nil {
			return fmt.Errorf("store: upsert concept mastery %q: %w", cm.Concept, err)
		}
	}
	return nil
}

// UpdateAbility holds the per-key lock across the entire read-modify-write:
// it re-reads the current record, lets fn mutate it in place, and writes the
// result back via the Version CAS, all without releasing the lock in
// between. This closes the lost-update window that calling GetOrInit and
// Update as two separate locked sections leaves open for same-process
// callers racing on the same (learnerID, unitID).
//
// If the CAS still loses — another process wrote between this function's
// read and write — it retries once: re-read the fresh row, let fn recompute
// from it, and CAS again. A second loss surfaces ErrStaleRecord so the
// caller can report a conflict rather than spin indefinitely.
func (s *Store) UpdateAbility(ctx context.Context, learnerID, unitID string, fn func(*AbilityRecord) error) (*AbilityRecord, error) {
	unlock := s.locks.lock(abilityKey(learnerID, unitID))
	defer unlock()

	var rec *AbilityRecord
	for attempt := 0; attempt < 2; attempt++ {
		var err error
		rec, err = s.getAbility(ctx, learnerID, unitID)
		if err != nil {
			return nil, err
		}
		if err := fn(rec); err != nil {
			return nil, err
		}
		err = s.casUpdateLocked(ctx, rec)
		if err == nil {
			return rec, nil
		}
		if err != ErrStaleRecord || attempt == 1 {
			return nil, err
		}
		// Retry once: the loop re-reads a fresh row and fn recomputes.
	}
	return nil, ErrStaleRecord
}

func (s *Store) getConceptMastery(ctx context.Context, learnerID, unitID string) ([]ConceptMastery, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT concept, attempted, correct, mastery FROM concept_mastery
		WHERE learner_id = ? AND unit_id = ? ORDER BY concept
	`, learnerID, unitID)
	if err != nil {
		return nil, fmt.Errorf("store: get concept mastery: %w", err)
	}
	defer rows.Close()

	var out []ConceptMastery
	for rows.Next() {
		var cm ConceptMastery
		if err := rows.Scan(&cm.Concept, &cm.Attempted, &cm.Correct, &cm.Mastery); err != nil {
			return nil, err
		}
		out = append(out, cm)
	}
	return out, rows.Err()
}

// AppendAnswer logs an immutable answer-submission record.
func (s *Store) AppendAnswer(ctx context.Context, record *AnswerRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO student_answers (
			learner_id, question_id, unit_id, answer_given, is_correct, time_taken_ms,
			difficulty_at_attempt, ability_before, ability_after
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, record.LearnerID, record.QuestionID, record.UnitID, record.AnswerGiven, record.IsCorrect,
		record.TimeTakenMs, record.DifficultyAtAttempt, record.AbilityBefore, record.AbilityAfter)
	if err != nil {
		return fmt.Errorf("store: append answer record: %w", err)
	}
	return nil
}

// RecentQuestionIDs returns the ids of the last n questions answered by a
// learner in a unit, most recent first, for the selector's exclusion set.
func (s *Store) RecentQuestionIDs(ctx context.Context, learnerID, unitID string, n int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT question_id FROM student_answers
		WHERE learner_id = ? AND unit_id = ?
		ORDER BY timestamp DESC LIMIT ?
	`, learnerID, unitID, n)
	if err != nil {
		return nil, fmt.Errorf("store: recent question ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Analytics returns the aggregate view of a learner's progress in a unit.
func (s *Store) Analytics(ctx context.Context, learnerID, unitID string) (*Analytics, error) {
	rec, err := s.getAbility(ctx, learnerID, unitID)
	if err != nil {
		return nil, err
	}

	a := &Analytics{
		Total:            rec.TotalAnswered,
		Correct:          rec.TotalCorrect,
		Ability:          rec.Ability,
		Difficulty:       rec.CurrentDifficulty,
		ConceptsMastered: rec.ConceptsMastered,
	}
	if a.Total > 0 {
		a.Accuracy = float64(a.Correct) / float64(a.Total)
	}
	return a, nil
}
