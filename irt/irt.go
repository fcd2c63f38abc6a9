// Package irt implements the adaptive difficulty engine: a 1-parameter
// logistic (Rasch) ability model over a 5-level difficulty scale. Every
// function here is pure — no I/O, no suspension points — so the engine can
// be called synchronously from inside a store-level compare-and-swap retry
// without ever blocking on anything but CPU.
package irt

import (
	"math"

	"github.com/adaptiveq/engine/store"
)

// Probability returns the 1-parameter-logistic probability that a learner
// of ability theta answers a question of the given difficulty correctly.
func Probability(theta, difficulty float64) float64 {
	return 1.0 / (1.0 + math.Exp(-(theta - difficulty)))
}

// TargetDifficulty maps a learner's current ability estimate onto the
// 1..5 difficulty scale, centered on the unit's nominal grade level and
// rounded half-away-from-zero (not banker's rounding: a theta of exactly
// +0.5 above grade must round up to the next difficulty band, never down).
func TargetDifficulty(grade int, theta float64) int {
	raw := float64(grade) + theta
	return clampInt(roundHalfAwayFromZero(raw), 1, 5)
}

// Update computes the new ability estimate after one answered question.
// y is 1.0 for a correct answer, 0.0 for incorrect; p is the model's
// predicted probability of a correct answer at the attempted difficulty.
// delta is returned alongside newTheta so callers can log the adjustment
// without recomputing it.
func Update(theta float64, difficulty int, correct bool, learningRate float64) (newTheta, delta float64) {
	p := Probability(theta, float64(difficulty))
	y := 0.0
	if correct {
		y = 1.0
	}
	delta = learningRate * (y - p)
	newTheta = clampFloat(theta+delta, -3, 3)
	return newTheta, delta
}

// UpdateConceptMastery increments attempted (and correct, when correct is
// true) for each named concept and recomputes mastery = correct/attempted.
// existing is never mutated in place: a new slice is returned, consistent
// with every other persisted record in this module being replaced, not
// edited, by its owner.
func UpdateConceptMastery(existing []store.ConceptMastery, concepts []string, correct bool) []store.ConceptMastery {
	byName := make(map[string]store.ConceptMastery, len(existing))
	order := make([]string, 0, len(existing))
	for _, cm := range existing {
		byName[cm.Concept] = cm
		order = append(order, cm.Concept)
	}

	for _, name := range concepts {
		cm, ok := byName[name]
		if !ok {
			order = append(order, name)
		}
		cm.Concept = name
		cm.Attempted++
		if correct {
			cm.Correct++
		}
		cm.Mastery = float64(cm.Correct) / float64(cm.Attempted)
		byName[name] = cm
	}

	out := make([]store.ConceptMastery, 0, len(order))
	for _, name := range order {
		out = append(out, byName[name])
	}
	return out
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

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// roundHalfAwayFromZero rounds v to the nearest integer, breaking exact
// .5 ties away from zero (2.5 -> 3, -2.5 -> -3), unlike Go's default
// round-half-to-even when used via math.RoundToEven.
func roundHalfAwayFromZero(v float64) int {
	if v >= 0 {
		return int(math.Floor(v + 0.5))
	}
	return int(math.Ceil(v - 0.5))
}
