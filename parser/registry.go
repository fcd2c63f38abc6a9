package parser

import "fmt"

// Registry dispatches a file extension to the Parser that handles it.
type Registry struct {
	parsers map[string]Parser
}

// NewRegistry builds a registry with the built-in text, PDF, and DOCX
// parsers registered. Spreadsheet, slide-deck, legacy binary, and
// vision-assisted formats are intentionally not wired here.
func NewRegistry() *Registry {
	r := &Registry{parsers: make(map[string]Parser)}

	txt := &TextParser{}
	pdf := &PDFParser{}
	docx := &DOCXParser{}

	for _, p := range []Parser{txt, pdf, docx} {
		for _, f := range p.SupportedFormats() {
			r.parsers[f] = p
		}
	}
	return r
}

// Get returns the parser registered for format, or an error if none is.
func (r *Registry) Get(format string) (Parser, error) {
	p, ok := r.parsers[format]
	if !ok {
		return nil, fmt.Errorf("parser: no parser for format: %s", format)
	}
	return p, nil
}

// Register adds or replaces the parser for format.
func (r *Registry) Register(format string, p Parser) {
	r.parsers[format] = p
}
