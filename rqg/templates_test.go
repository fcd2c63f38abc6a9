package rqg

import "testing"

func TestFallbackTemplatesCountAndTag(t *testing.T) {
	qs := fallbackTemplates(GenerateParams{Topic: "Length", Grade: 3}, 5)
	if len(qs) != 5 {
		t.Fatalf("expected 5 questions, got %d", len(qs))
	}
	for _, q := range qs {
		if q.Metadata["source"] != "template" {
			t.Errorf("expected source=template, got %q", q.Metadata["source"])
		}
		if q.Difficulty < 2 || q.Difficulty > 4 {
			t.Errorf("grade=3 fallback difficulty should be in [2,4], got %d", q.Difficulty)
		}
	}
}

func TestFallbackTemplatesClampAtBoundaryGrades(t *testing.T) {
	low := fallbackTemplates(GenerateParams{Topic: "Length", Grade: 1}, 3)
	for _, q := range low {
		if q.Difficulty < 1 || q.Difficulty > 2 {
			t.Errorf("grade=1 fallback difficulty should be clamped to [1,2], got %d", q.Difficulty)
		}
	}

	high := fallbackTemplates(GenerateParams{Topic: "Length", Grade: 5}, 3)
	for _, q := range high {
		if q.Difficulty < 4 || q.Difficulty > 5 {
			t.Errorf("grade=5 fallback difficulty should be clamped to [4,5], got %d", q.Difficulty)
		}
	}
}

func TestFallbackTemplatesPersonalizationUsesLiteralValue(t *testing.T) {
	qs := fallbackTemplates(GenerateParams{
		Topic: "Length", Grade: 2,
		Personalization: &PersonalizationContext{ObjectName: "backpack strap", MeasurementValue: "37", MeasurementUnit: "cm"},
	}, 1)
	if qs[0].CorrectAnswer != "37" {
		t.Errorf("expected literal measurement value as the answer, got %q", qs[0].CorrectAnswer)
	}
	if !contains(qs[0].Body, "your backpack strap") {
		t.Errorf("expected body to reference the object, got %q", qs[0].Body)
	}
}

func TestFallbackTemplatesUnknownTopicUsesGenericBody(t *testing.T) {
	qs := fallbackTemplates(GenerateParams{Topic: "Time", Grade: 3}, 1)
	if qs[0].Body == "" {
		t.Error("expected a non-empty body even for an unrecognized topic")
	}
}
