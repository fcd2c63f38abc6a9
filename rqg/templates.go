package rqg

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/adaptiveq/engine/store"
)

// templateBodies gives each topic a parameterizable sentence, filled in
// with the subject: "your <object>" when a personalization context names
// one, otherwise "the object".
var templateBodies = map[string]string{
	"Length":   "How many units long is %s?",
	"Area":     "What is the area covered by %s?",
	"Capacity": "How much liquid does %s hold?",
	"Weight":   "How heavy is %s?",
}

// fallbackTemplates produces n deterministic, schema-identical questions
// for topic/grade, distributed across difficulty (grade-1)..(grade+1)
// clamped to 1..5, tagged metadata.source="template" so downstream
// consumers cannot tell them apart from generated questions except by
// that field.
func fallbackTemplates(params GenerateParams, n int) []store.Question {
	subject := "the object"
	if params.Personalization != nil && params.Personalization.ObjectName != "" {
		subject = "your " + params.Personalization.ObjectName
	}

	bodyTemplate, ok := templateBodies[params.Topic]
	if !ok {
		bodyTemplate = "What is the measurement of %s?"
	}

	difficulties := difficultySpread(params.Grade, n)

	out := make([]store.Question, n)
	for i := 0; i < n; i++ {
		body := fmt.Sprintf(bodyTemplate, subject)
		answer := "5"
		if params.Personalization != nil && params.Personalization.MeasurementValue != "" {
			answer = params.Personalization.MeasurementValue
			if params.Personalization.MeasurementUnit != "" {
				body += fmt.Sprintf(" (measured in %s)", params.Personalization.MeasurementUnit)
			}
		}

		out[i] = store.Question{
			ID:            uuid.NewString(),
			DocumentID:    params.DocumentID,
			Topic:         params.Topic,
			GradeLevel:    params.Grade,
			Difficulty:    difficulties[i],
			QuestionType:  "numeric",
			Body:          body,
			CorrectAnswer: answer,
			Concepts:      []string{params.Topic},
			Metadata:      map[string]string{"source": "template"},
		}
	}
	return out
}

// difficultySpread distributes n questions across the band
// (grade-1)..(grade+1), clamped to 1..5, cycling through the band in
// order.
func difficultySpread(grade, n int) []int {
	lo, hi := clampInt(grade-1, 1, 5), clampInt(grade+1, 1, 5)
	band := make([]int, 0, 3)
	for d := lo; d <= hi; d++ {
		band = append(band, d)
	}
	if len(band) == 0 {
		band = []int{3}
	}

	out := make([]int, n)
	for i := 0; i < n; i++ {
		out[i] = band[i%len(band)]
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
