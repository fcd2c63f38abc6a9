package irt

import (
	"math"
	"testing"

	"github.com/adaptiveq/engine/store"
)

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestProbabilityAtEqualThetaDifficulty(t *testing.T) {
	p := Probability(2, 2)
	if !approxEqual(p, 0.5, 1e-9) {
		t.Errorf("expected p=0.5 when theta==difficulty, got %f", p)
	}
}

func TestProbabilityMonotonicInTheta(t *testing.T) {
	low := Probability(-1, 0)
	high := Probability(1, 0)
	if !(low < 0.5 && high > 0.5) {
		t.Errorf("expected probability to increase with theta: low=%f high=%f", low, high)
	}
}

func TestTargetDifficultyBoundaryGradeOneFloor(t *testing.T) {
	if d := TargetDifficulty(1, -3.0); d != 1 {
		t.Errorf("grade=1 theta=-3.0: expected d_target=1, got %d", d)
	}
}

func TestTargetDifficultyBoundaryGradeFiveCeiling(t *testing.T) {
	if d := TargetDifficulty(5, 3.0); d != 5 {
		t.Errorf("grade=5 theta=+3.0: expected d_target=5, got %d", d)
	}
}

func TestTargetDifficultyRoundsHalfAwayFromZero(t *testing.T) {
	// grade=1, theta=0.5 -> raw=1.5 -> rounds to 2.
	if d := TargetDifficulty(1, 0.5); d != 2 {
		t.Errorf("expected round(1.5)=2, got %d", d)
	}
	// grade=1, theta=1.5 -> raw=2.5: half-away-from-zero rounds to 3, where
	// round-half-to-even would give 2. This is the behavior the module
	// deliberately departs from Go's math.RoundToEven to get.
	if d := TargetDifficulty(1, 1.5); d != 3 {
		t.Errorf("expected round-half-away-from-zero(2.5)=3, got %d", d)
	}
	// grade=1, theta=-1.5 -> raw=-0.5: half-away-from-zero rounds to -1,
	// clamped up to the floor of 1.
	if d := TargetDifficulty(1, -1.5); d != 1 {
		t.Errorf("expected clamp(round(-0.5), 1, 5)=1, got %d", d)
	}
}

func TestUpdateKeepsThetaWithinBounds(t *testing.T) {
	theta := 2.9
	for i := 0; i < 20; i++ {
		theta, _ = Update(theta, 1, true, 0.3)
	}
	if theta > 3.0 {
		t.Errorf("theta escaped upper bound: %f", theta)
	}

	theta = -2.9
	for i := 0; i < 20; i++ {
		theta, _ = Update(theta, 5, false, 0.3)
	}
	if theta < -3.0 {
		t.Errorf("theta escaped lower bound: %f", theta)
	}
}

func TestUpdateDeltaFormula(t *testing.T) {
	theta, difficulty, lr := 0.0, 1.0, 0.3
	newTheta, delta := Update(theta, int(difficulty), true, lr)
	p := Probability(theta, difficulty)
	wantDelta := lr * (1.0 - p)
	if !approxEqual(delta, wantDelta, 1e-9) {
		t.Errorf("delta = %f, want %f", delta, wantDelta)
	}
	if !approxEqual(newTheta, theta+delta, 1e-9) {
		t.Errorf("newTheta = %f, want theta+delta = %f", newTheta, theta+delta)
	}
}

// TestScenarioNewGradeOneLearnerAllCorrect follows spec scenario 1: initial
// theta=0, d_target=1. A correct answer at b=1 gives p=1/(1+e)=0.269...,
// theta_new = 0 + 0.3*(1-0.269) = 0.219..., and d_target stays 1.
func TestScenarioNewGradeOneLearnerAllCorrect(t *testing.T) {
	theta := 0.0
	if d := TargetDifficulty(1, theta); d != 1 {
		t.Fatalf("expected initial d_target=1, got %d", d)
	}

	p := Probability(theta, 1)
	if !approxEqual(p, 1.0/(1.0+math.E), 1e-6) {
		t.Fatalf("p = %f, want 1/(1+e)", p)
	}

	newTheta, _ := Update(theta, 1, true, 0.3)
	if !approxEqual(newTheta, 0.219, 1e-2) {
		t.Errorf("theta_new = %f, want ~0.219", newTheta)
	}
	if d := TargetDifficulty(1, newTheta); d != 1 {
		t.Errorf("expected d_target still 1 after one correct answer, got %d", d)
	}
}

// TestScenarioThresholdCrossing follows spec scenario 3: a grade-1 learner
// reaching theta=0.5 crosses into d_target=2, and theta=1.5 into d_target=3.
func TestScenarioThresholdCrossing(t *testing.T) {
	if d := TargetDifficulty(1, 0.5); d != 2 {
		t.Errorf("theta=0.5: expected d_target=2, got %d", d)
	}
	if d := TargetDifficulty(1, 1.5); d != 3 {
		t.Errorf("theta=1.5: expected d_target=3, got %d", d)
	}
}

func TestScenarioAllCorrectConvergesMonotonically(t *testing.T) {
	theta := 0.0
	prev := theta
	for i := 0; i < 50; i++ {
		next, _ := Update(theta, TargetDifficulty(3, theta), true, 0.3)
		if next < prev-1e-9 {
			t.Fatalf("theta decreased on an all-correct run: prev=%f next=%f", prev, next)
		}
		prev, theta = theta, next
	}
	if theta < 2.0 {
		t.Errorf("expected theta to have converged toward +3.0 after 50 correct answers, got %f", theta)
	}
}

func TestUpdateConceptMasteryFreshConcepts(t *testing.T) {
	out := UpdateConceptMastery(nil, []string{"unit-conversion"}, true)
	if len(out) != 1 {
		t.Fatalf("expected 1 concept row, got %d", len(out))
	}
	if out[0].Attempted != 1 || out[0].Correct != 1 || out[0].Mastery != 1.0 {
		t.Errorf("unexpected concept row: %+v", out[0])
	}
}

func TestUpdateConceptMasteryAccumulates(t *testing.T) {
	existing := []store.ConceptMastery{{Concept: "unit-conversion", Attempted: 3, Correct: 2, Mastery: 2.0 / 3.0}}
	out := UpdateConceptMastery(existing, []string{"unit-conversion"}, false)
	if len(out) != 1 {
		t.Fatalf("expected 1 concept row, got %d", len(out))
	}
	if out[0].Attempted != 4 || out[0].Correct != 2 {
		t.Errorf("unexpected accumulation: %+v", out[0])
	}
	if !approxEqual(out[0].Mastery, 0.5, 1e-9) {
		t.Errorf("mastery = %f, want 0.5", out[0].Mastery)
	}
}

func TestUpdateConceptMasteryMultipleConceptsPerAnswer(t *testing.T) {
	out := UpdateConceptMastery(nil, []string{"length", "conversion"}, true)
	if len(out) != 2 {
		t.Fatalf("expected 2 concept rows, got %d", len(out))
	}
}
