// Package selector picks the next question to serve a learner: it reads
// ability via the ability store, computes a target difficulty via the IRT
// engine, and widens the search band when the exact target is exhausted.
package selector

import (
	"context"
	"fmt"

	"github.com/adaptiveq/engine/irt"
	"github.com/adaptiveq/engine/store"
)

// ErrNoQuestionsAvailable is returned when no question satisfies the
// filter even after widening the difficulty band and dropping the
// recent-exclusion set.
var ErrNoQuestionsAvailable = fmt.Errorf("selector: no questions available")

const recentExclusionWindow = 10

// QuestionStore is the subset of store.Store the selector depends on.
type QuestionStore interface {
	SampleOne(ctx context.Context, filter store.QuestionFilter, excludeRecent []string) (*store.Question, error)
}

// AbilityStore is the subset of store.Store the selector depends on.
type AbilityStore interface {
	GetOrInit(ctx context.Context, learnerID, unitID string, grade int) (*store.AbilityRecord, error)
	RecentQuestionIDs(ctx context.Context, learnerID, unitID string, n int) ([]string, error)
}

// Select implements the widening algorithm: exact difficulty -> +/-1 ->
// +/-2 -> drop the recent-answer exclusion -> ErrNoQuestionsAvailable.
// topic and grade scope the candidate pool; unitID keys the ability record
// and the recent-answer history, and is an opaque identifier the caller is
// responsible for choosing consistently (e.g. "{topic}_{grade}").
func Select(ctx context.Context, questions QuestionStore, abilities AbilityStore, learnerID, unitID, topic string, grade int) (*store.Question, int, error) {
	ability, err := abilities.GetOrInit(ctx, learnerID, unitID, grade)
	if err != nil {
		return nil, 0, fmt.Errorf("selector: get ability: %w", err)
	}

	target := irt.TargetDifficulty(grade, ability.Ability)

	recent, err := abilities.RecentQuestionIDs(ctx, learnerID, unitID, recentExclusionWindow)
	if err != nil {
		return nil, 0, fmt.Errorf("selector: recent question ids: %w", err)
	}

	for _, band := range [][2]int{{0, 0}, {1, 1}, {2, 2}} {
		lo, hi := clampInt(target-band[1], 1, 5), clampInt(target+band[1], 1, 5)
		filter := store.QuestionFilter{Topic: topic, GradeLevel: grade, DifficultyMin: lo, DifficultyMax: hi}
		q, err := questions.SampleOne(ctx, filter, recent)
		if err != nil {
			return nil, 0, fmt.Errorf("selector: sample at band +/-%d: %w", band[1], err)
		}
		if q != nil {
			return q, target, nil
		}
	}

	// Drop the recent-answer exclusion entirely before giving up: it is
	// better to repeat a question than to return nothing.
	filter := store.QuestionFilter{Topic: topic, GradeLevel: grade,
		DifficultyMin: clampInt(target-2, 1, 5), DifficultyMax: clampInt(target+2, 1, 5)}
	q, err := questions.SampleOne(ctx, filter, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("selector: sample with exclusion dropped: %w", err)
	}
	if q != nil {
		return q, target, nil
	}

	return nil, target, ErrNoQuestionsAvailable
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
