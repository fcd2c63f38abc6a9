package chunker

import (
	"strings"
	"testing"

	"github.com/adaptiveq/engine/parser"
)

// ---------------------------------------------------------------------------
// Core chunker tests
// ---------------------------------------------------------------------------

func TestChunkSingleSectionUnderBudget(t *testing.T) {
	c := New(Config{Size: 1000, Overlap: 200})
	sections := []parser.Section{
		{Heading: "Introduction", Content: "This is the introduction to the unit.", Type: "section"},
	}

	chunks := c.Chunk(sections)

	if len(chunks) != 1 {
		t.Fatalf("expected exactly 1 chunk for short content, got %d", len(chunks))
	}
	if chunks[0].SequenceIndex != 0 {
		t.Errorf("SequenceIndex = %d, want 0", chunks[0].SequenceIndex)
	}
	if chunks[0].CharStart != 0 {
		t.Errorf("CharStart = %d, want 0", chunks[0].CharStart)
	}
	if chunks[0].ContentHash == "" {
		t.Error("ContentHash should not be empty")
	}
	if !strings.Contains(chunks[0].Content, "Introduction") {
		t.Error("chunk content should include the section heading")
	}
}

func TestChunkSlidesOverLongText(t *testing.T) {
	c := New(Config{Size: 200, Overlap: 50})
	sections := []parser.Section{
		{Heading: "Measurement", Content: strings.Repeat("The length of the table is five meters. ", 40)},
	}

	chunks := c.Chunk(sections)

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks for long content, got %d", len(chunks))
	}
	for i, ch := range chunks {
		if ch.SequenceIndex != i {
			t.Errorf("chunk[%d].SequenceIndex = %d, want %d", i, ch.SequenceIndex, i)
		}
		if ch.CharEnd <= ch.CharStart {
			t.Errorf("chunk[%d] has non-positive range [%d,%d)", i, ch.CharStart, ch.CharEnd)
		}
	}
	// Consecutive chunks must overlap in character range.
	for i := 1; i < len(chunks); i++ {
		if chunks[i].CharStart >= chunks[i-1].CharEnd {
			t.Errorf("chunk[%d] does not overlap chunk[%d]: [%d,%d) vs [%d,%d)",
				i, i-1, chunks[i].CharStart, chunks[i].CharEnd, chunks[i-1].CharStart, chunks[i-1].CharEnd)
		}
	}
}

func TestChunkBoundarySnapsToSentence(t *testing.T) {
	// Construct text where a sentence terminator falls within 50 chars of
	// the raw 100-char boundary so the window should snap to it rather
	// than cut mid-sentence.
	sentence1 := strings.Repeat("a", 90) + ". "
	sentence2 := strings.Repeat("b", 200)
	text := sentence1 + sentence2

	c := New(Config{Size: 100, Overlap: 20})
	sections := []parser.Section{{Content: text}}
	chunks := c.Chunk(sections)

	if len(chunks) == 0 {
		t.Fatal("expected at least one chunk")
	}
	first := chunks[0].Content
	if strings.HasSuffix(first, "a") {
		t.Error("expected first chunk to end at sentence boundary, not mid-run of 'a's")
	}
}

func TestChunkEmptyText(t *testing.T) {
	c := New(Config{})
	chunks := c.Chunk(nil)
	if len(chunks) != 0 {
		t.Errorf("expected 0 chunks for empty input, got %d", len(chunks))
	}
}

func TestChunkDefaultsApplied(t *testing.T) {
	c := New(Config{})
	if c.cfg.Size != 1000 {
		t.Errorf("default Size = %d, want 1000", c.cfg.Size)
	}
	if c.cfg.Overlap != 200 {
		t.Errorf("default Overlap = %d, want 200", c.cfg.Overlap)
	}
}

func TestChunkSequenceIndicesMonotonic(t *testing.T) {
	c := New(Config{Size: 150, Overlap: 30})
	sections := []parser.Section{
		{Heading: "A", Content: strings.Repeat("Short sentence here. ", 30)},
	}
	chunks := c.Chunk(sections)
	for i := 1; i < len(chunks); i++ {
		if chunks[i].SequenceIndex != chunks[i-1].SequenceIndex+1 {
			t.Fatalf("sequence indices not monotonic: %d followed by %d",
				chunks[i-1].SequenceIndex, chunks[i].SequenceIndex)
		}
	}
}

// ---------------------------------------------------------------------------
// sentenceTerminatorPositions / snapToSentence
// ---------------------------------------------------------------------------

func TestSentenceTerminatorPositions(t *testing.T) {
	text := "One. Two? Three! Four"
	runes := []rune(text)
	positions := sentenceTerminatorPositions(runes)
	if len(positions) != 3 {
		t.Fatalf("expected 3 terminators, got %d: %v", len(positions), positions)
	}
}

func TestSnapToSentenceFindsNearest(t *testing.T) {
	terminators := []int{40, 120, 205}
	got := snapToSentence(terminators, 200, 50, 300)
	if got != 205 {
		t.Errorf("snapToSentence = %d, want 205", got)
	}
}

func TestSnapToSentenceNoneInRange(t *testing.T) {
	terminators := []int{10}
	got := snapToSentence(terminators, 200, 50, 300)
	if got != 200 {
		t.Errorf("snapToSentence = %d, want unchanged target 200", got)
	}
}

// ---------------------------------------------------------------------------
// concatSections
// ---------------------------------------------------------------------------

func TestConcatSectionsIncludesHeadingAndChildren(t *testing.T) {
	sections := []parser.Section{
		{
			Heading: "Parent",
			Content: "Parent body.",
			Children: []parser.Section{
				{Heading: "Child", Content: "Child body."},
			},
		},
	}
	text := concatSections(sections)
	if !strings.Contains(text, "Parent") || !strings.Contains(text, "Child body.") {
		t.Errorf("concatSections missing expected content: %q", text)
	}
}
