package selector

import (
	"context"
	"testing"

	"github.com/adaptiveq/engine/store"
)

type fakeQuestionStore struct {
	byDifficulty map[int]*store.Question
	calls        []store.QuestionFilter
}

func (f *fakeQuestionStore) SampleOne(ctx context.Context, filter store.QuestionFilter, excludeRecent []string) (*store.Question, error) {
	f.calls = append(f.calls, filter)
	for d := filter.DifficultyMin; d <= filter.DifficultyMax; d++ {
		if q, ok := f.byDifficulty[d]; ok {
			excluded := false
			for _, id := range excludeRecent {
				if id == q.ID {
					excluded = true
				}
			}
			if !excluded {
				return q, nil
			}
		}
	}
	return nil, nil
}

type fakeAbilityStore struct {
	ability float64
	grade   int
	recent  []string
}

func (f *fakeAbilityStore) GetOrInit(ctx context.Context, learnerID, unitID string, grade int) (*store.AbilityRecord, error) {
	return &store.AbilityRecord{LearnerID: learnerID, UnitID: unitID, Ability: f.ability, CurrentDifficulty: f.grade}, nil
}

func (f *fakeAbilityStore) RecentQuestionIDs(ctx context.Context, learnerID, unitID string, n int) ([]string, error) {
	return f.recent, nil
}

func q(id string, difficulty int) *store.Question {
	return &store.Question{ID: id, Difficulty: difficulty, Topic: "Length", GradeLevel: 3}
}

func TestSelectReturnsExactDifficultyMatch(t *testing.T) {
	qs := &fakeQuestionStore{byDifficulty: map[int]*store.Question{3: q("q3", 3)}}
	as := &fakeAbilityStore{ability: 0}

	got, target, err := Select(context.Background(), qs, as, "learner1", "unit1", "Length", 3)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if target != 3 || got.ID != "q3" {
		t.Errorf("expected exact-match q3 at target 3, got %+v target=%d", got, target)
	}
	if len(qs.calls) != 1 {
		t.Errorf("expected exact match on first try, got %d calls", len(qs.calls))
	}
}

func TestSelectWidensWhenExactMissing(t *testing.T) {
	qs := &fakeQuestionStore{byDifficulty: map[int]*store.Question{2: q("q2", 2)}}
	as := &fakeAbilityStore{ability: 0}

	got, target, err := Select(context.Background(), qs, as, "learner1", "unit1", "Length", 3)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if target != 3 || got.ID != "q2" {
		t.Errorf("expected to widen to q2 after missing exact difficulty 3, got %+v", got)
	}
}

// TestSelectExhaustionWidensToExtremes follows spec scenario 5: only
// difficulty 1 and 5 exist; a learner targeting difficulty 3 must widen
// all the way out to {1, 5}.
func TestSelectExhaustionWidensToExtremes(t *testing.T) {
	qs := &fakeQuestionStore{byDifficulty: map[int]*store.Question{1: q("q1", 1), 5: q("q5", 5)}}
	as := &fakeAbilityStore{ability: 0}

	got, target, err := Select(context.Background(), qs, as, "learner1", "unit1", "Length", 3)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if target != 3 {
		t.Fatalf("expected target difficulty 3, got %d", target)
	}
	if got.ID != "q1" && got.ID != "q5" {
		t.Errorf("expected widened match to be q1 or q5, got %+v", got)
	}
}

func TestSelectDropsExclusionBeforeGivingUp(t *testing.T) {
	recentQ := q("q3", 3)
	qs := &fakeQuestionStore{byDifficulty: map[int]*store.Question{3: recentQ}}
	as := &fakeAbilityStore{ability: 0, recent: []string{"q3"}}

	got, _, err := Select(context.Background(), qs, as, "learner1", "unit1", "Length", 3)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if got == nil || got.ID != "q3" {
		t.Errorf("expected the recently-answered question to be reused once exclusion is dropped, got %+v", got)
	}
}

func TestSelectReturnsErrNoQuestionsAvailableWhenPoolEmpty(t *testing.T) {
	qs := &fakeQuestionStore{byDifficulty: map[int]*store.Question{}}
	as := &fakeAbilityStore{ability: 0}

	_, _, err := Select(context.Background(), qs, as, "learner1", "unit1", "Length", 3)
	if err != ErrNoQuestionsAvailable {
		t.Errorf("expected ErrNoQuestionsAvailable, got %v", err)
	}
}
