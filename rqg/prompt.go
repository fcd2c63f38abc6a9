package rqg

import (
	"fmt"
	"strings"
)

// gradeGuideline captures the per-grade writing constraints enforced in
// the generation prompt. Keeping this as a lookup table indexed by grade,
// rather than branches in code, is a deliberate design choice.
type gradeGuideline struct {
	vocabularyCeiling string
	cognitiveDepth    string
	questionLength    string
}

var gradeGuidelines = map[int]gradeGuideline{
	1: {"Concrete nouns, 1-syllable preferred", "Recognition / direct recall", "5-10 words"},
	2: {"Common school vocabulary", "Basic comprehension, one-step calculation", "8-15 words"},
	3: {"Classroom vocabulary plus tens/hundreds", "Application, 2-step", "12-25 words"},
	4: {"Expanded vocabulary plus comparative terms", "Analysis, word problems", "15-40 words"},
	5: {"Advanced", "Multi-step reasoning", "15-50 words"},
}

// contextBudgetChars is the maximum amount of retrieved chunk text
// concatenated into a single generation prompt.
const contextBudgetChars = 1500

// PersonalizationContext customizes a question around a specific
// real-world object and measurement supplied by the caller.
type PersonalizationContext struct {
	ObjectName       string
	MeasurementValue string
	MeasurementUnit  string
}

// PromptParams describes one generation request.
type PromptParams struct {
	Topic           string
	Grade           int
	NQuestions      int
	Types           []string
	ContextChunks   []string // highest-scored first
	Personalization *PersonalizationContext
}

// ComposePrompt assembles the system+user prompt sent to the LLM: grade
// guidelines, up to contextBudgetChars of retrieved chunk text (highest
// scored first, blank-line separated), the requested count/types, and an
// optional personalization block.
func ComposePrompt(p PromptParams) string {
	guideline, ok := gradeGuidelines[p.Grade]
	if !ok {
		guideline = gradeGuidelines[3]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are writing measurement-education questions for grade %d students.\n", p.Grade)
	fmt.Fprintf(&b, "Vocabulary ceiling: %s.\n", guideline.vocabularyCeiling)
	fmt.Fprintf(&b, "Cognitive depth: %s.\n", guideline.cognitiveDepth)
	fmt.Fprintf(&b, "Question length: %s.\n\n", guideline.questionLength)

	b.WriteString("Source material:\n")
	b.WriteString(concatBudgeted(p.ContextChunks, contextBudgetChars))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "Write %d question(s) about the topic %q, of type(s) %s.\n",
		p.NQuestions, p.Topic, strings.Join(p.Types, ", "))

	if p.Personalization != nil && p.Personalization.ObjectName != "" {
		fmt.Fprintf(&b, "\nPersonalize the question: refer to the object as \"your %s\" or \"YOUR %s\", "+
			"use the measurement value %q %q verbatim, and do not fall back to a generic template "+
			"like \"A pencil is...\".\n",
			p.Personalization.ObjectName, p.Personalization.ObjectName,
			p.Personalization.MeasurementValue, p.Personalization.MeasurementUnit)
	}

	b.WriteString("\nRespond with a JSON object of the form " +
		`{"questions": [{"question_type": "...", "body": "...", "options": [...], ` +
		`"correct_answer": "...", "concepts": [...], "hints": [...], "explanation": "...", "difficulty": N}]}` +
		". difficulty is an integer 1-5. options is required only for question_type \"multiple_choice\".\n")

	return b.String()
}

// concatBudgeted joins chunks with blank lines, highest-scored first,
// truncating once the running character budget is exhausted.
func concatBudgeted(chunks []string, budget int) string {
	var b strings.Builder
	remaining := budget
	for i, c := range chunks {
		if remaining <= 0 {
			break
		}
		if i > 0 {
			b.WriteString("\n\n")
			remaining -= 2
		}
		if len(c) > remaining {
			c = c[:remaining]
		}
		b.WriteString(c)
		remaining -= len(c)
	}
	return b.String()
}
