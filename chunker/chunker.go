// Package chunker turns parsed document sections into a flat,
// character-addressed sequence of chunks suitable for embedding and
// retrieval. Unlike a token-budgeted hierarchical chunker, every chunk
// here carries an explicit character range into the concatenated document
// text and there is no parent/child nesting.
package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/adaptiveq/engine/parser"
)

// Config controls the chunking behaviour.
type Config struct {
	Size    int // Target chunk size in characters.
	Overlap int // Overlap in characters between consecutive chunks.
}

// Chunk is one contiguous, character-addressed slice of document text.
type Chunk struct {
	SequenceIndex int
	Content       string
	CharStart     int
	CharEnd       int
	ContentHash   string
}

// Chunker converts parsed document sections into a flat chunk list.
type Chunker struct {
	cfg Config
}

// New returns a Chunker with the given configuration. Zero-value fields
// are replaced with sensible defaults.
func New(cfg Config) *Chunker {
	if cfg.Size == 0 {
		cfg.Size = 1000
	}
	if cfg.Overlap == 0 {
		cfg.Overlap = 200
	}
	return &Chunker{cfg: cfg}
}

// Chunk concatenates a document's sections (heading plus body, blank-line
// separated) into one text and slides a character window across it,
// snapping each boundary to the nearest sentence terminator within ±50
// characters when one exists.
func (c *Chunker) Chunk(sections []parser.Section) []Chunk {
	text := concatSections(sections)
	return c.chunkText(text)
}

const snapWindow = 50

func (c *Chunker) chunkText(text string) []Chunk {
	if text == "" {
		return nil
	}

	runes := []rune(text)
	n := len(runes)
	if n <= c.cfg.Size {
		return []Chunk{{
			SequenceIndex: 0,
			Content:       string(runes),
			CharStart:     0,
			CharEnd:       n,
			ContentHash:   contentHash(string(runes)),
		}}
	}

	terminators := sentenceTerminatorPositions(runes)

	var chunks []Chunk
	start := 0
	seq := 0
	step := c.cfg.Size - c.cfg.Overlap
	if step <= 0 {
		step = c.cfg.Size
	}

	for start < n {
		end := start + c.cfg.Size
		if end >= n {
			end = n
		} else {
			end = snapToSentence(terminators, end, snapWindow, n)
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, Chunk{
				SequenceIndex: seq,
				Content:       chunk,
				CharStart:     start,
				CharEnd:       end,
				ContentHash:   contentHash(chunk),
			})
			seq++
		}

		if end >= n {
			break
		}

		next := end - c.cfg.Overlap
		if next <= start {
			next = start + step
		}
		start = next
	}

	return chunks
}

// concatSections joins heading and content of each section, in order,
// blank-line separated, into one flat text for windowing.
func concatSections(sections []parser.Section) string {
	var b strings.Builder
	for _, sec := range sections {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		if sec.Heading != "" {
			b.WriteString(sec.Heading)
			b.WriteString("\n\n")
		}
		b.WriteString(strings.TrimSpace(sec.Content))
		for _, child := range sec.Children {
			b.WriteString("\n\n")
			b.WriteString(concatSections([]parser.Section{child}))
		}
	}
	return b.String()
}

// sentenceTerminatorPositions returns, in ascending order, the rune indices
// immediately after each sentence-ending punctuation mark that is followed
// by whitespace or end of text.
func sentenceTerminatorPositions(runes []rune) []int {
	var positions []int
	for i := 0; i < len(runes); i++ {
		if runes[i] == '.' || runes[i] == '?' || runes[i] == '!' {
			if i+1 >= len(runes) || runes[i+1] == ' ' || runes[i+1] == '\n' || runes[i+1] == '\t' {
				positions = append(positions, i+1)
			}
		}
	}
	return positions
}

// snapToSentence adjusts a target boundary to the nearest sentence
// terminator within window runes on either side. If no terminator falls
// in range, the original target is returned unchanged.
func snapToSentence(terminators []int, target, window, textLen int) int {
	lo := target - window
	hi := target + window
	if hi > textLen {
		hi = textLen
	}

	best := -1
	bestDist := window + 1
	for _, t := range terminators {
		if t < lo {
			continue
		}
		if t > hi {
			break
		}
		dist := t - target
		if dist < 0 {
			dist = -dist
		}
		if dist < bestDist {
			bestDist = dist
			best = t
		}
	}

	if best == -1 {
		return target
	}
	return best
}

// contentHash returns the SHA-256 hex digest of text.
func contentHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}
