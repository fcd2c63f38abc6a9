package rqg

import "testing"

func TestComposePromptIncludesGradeGuidelines(t *testing.T) {
	prompt := ComposePrompt(PromptParams{
		Topic: "Length", Grade: 1, NQuestions: 2, Types: []string{"multiple_choice"},
		ContextChunks: []string{"a meter is a unit of length"},
	})
	if !contains(prompt, "grade 1") {
		t.Error("expected prompt to mention the grade")
	}
	if !contains(prompt, "1-syllable") {
		t.Error("expected prompt to carry grade-1 vocabulary guidance")
	}
}

func TestComposePromptTruncatesToContextBudget(t *testing.T) {
	longChunk := make([]byte, contextBudgetChars*3)
	for i := range longChunk {
		longChunk[i] = 'x'
	}
	prompt := ComposePrompt(PromptParams{
		Topic: "Length", Grade: 3, NQuestions: 1, Types: []string{"numeric"},
		ContextChunks: []string{string(longChunk)},
	})
	count := 0
	for _, c := range prompt {
		if c == 'x' {
			count++
		}
	}
	if count > contextBudgetChars {
		t.Errorf("expected at most %d context characters, counted %d", contextBudgetChars, count)
	}
}

func TestComposePromptPersonalizationRequiresLiteralValues(t *testing.T) {
	prompt := ComposePrompt(PromptParams{
		Topic: "Length", Grade: 3, NQuestions: 1, Types: []string{"numeric"},
		ContextChunks: []string{"context"},
		Personalization: &PersonalizationContext{
			ObjectName: "backpack", MeasurementValue: "42", MeasurementUnit: "cm",
		},
	})
	if !contains(prompt, "your backpack") && !contains(prompt, "YOUR backpack") {
		t.Error("expected prompt to require the literal object name prefixed with your/YOUR")
	}
	if !contains(prompt, "42") || !contains(prompt, "cm") {
		t.Error("expected prompt to require the literal measurement value and unit")
	}
	if !contains(prompt, "generic") {
		t.Error("expected prompt to warn against generic templates")
	}
}

func contains(haystack, needle string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}
