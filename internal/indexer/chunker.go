package indexer

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"semdex/internal/llm"
)

// Chunk is one bounded-size segment of a document.
type Chunk struct {
	Index      int    // Position within the document, starts at 0
	Section    string // Heading path the chunk belongs to (e.g. "# Intro > ## Basics")
	Text       string // Raw text span, cut from the original content
	TokenCount int    // Estimated token count of Text
}

// Chunker splits document text into chunks that fit a token budget.
// Headings are the primary boundaries; oversized sections fall back to
// paragraph, line, sentence and finally word boundaries. Chunking is pure
// and deterministic for a given input and budget.
type Chunker struct {
	parser    goldmark.Markdown
	maxTokens int
}

// NewChunker creates a chunker with the given per-chunk token budget.
func NewChunker(maxTokens int) *Chunker {
	return &Chunker{
		parser: goldmark.New(
			goldmark.WithExtensions(extension.Table),
		),
		maxTokens: maxTokens,
	}
}

// headingCut marks where a heading's line begins in the raw content.
type headingCut struct {
	offset int
	level  int
	text   string
}

// headingInfo tracks heading level and text for building section labels.
type headingInfo struct {
	level int
	text  string
}

type section struct {
	start int
	label string
}

// Chunk splits content into ordered chunks. Sections are raw byte ranges
// between heading starts, so concatenating all chunks of a document
// reconstructs the original text (whitespace-only sections excepted).
// An empty or blank document yields no chunks.
func (c *Chunker) Chunk(content []byte) []Chunk {
	if len(bytes.TrimSpace(content)) == 0 {
		return nil
	}

	doc := c.parser.Parser().Parse(text.NewReader(content))

	var cuts []headingCut
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		if heading.Lines().Len() == 0 {
			return ast.WalkContinue, nil
		}
		seg := heading.Lines().At(0)
		cuts = append(cuts, headingCut{
			offset: lineStart(content, seg.Start),
			level:  heading.Level,
			text:   extractText(heading, content),
		})
		return ast.WalkContinue, nil
	})

	var sections []section
	if len(cuts) == 0 || cuts[0].offset > 0 {
		sections = append(sections, section{start: 0, label: ""})
	}
	var stack []headingInfo
	for _, cut := range cuts {
		for len(stack) > 0 && stack[len(stack)-1].level >= cut.level {
			stack = stack[:len(stack)-1]
		}
		stack = append(stack, headingInfo{level: cut.level, text: cut.text})
		sections = append(sections, section{start: cut.offset, label: sectionLabel(stack)})
	}

	maxRunes := llm.TokensToRunes(c.maxTokens)
	var chunks []Chunk
	for i, sec := range sections {
		end := len(content)
		if i+1 < len(sections) {
			end = sections[i+1].start
		}
		sectionText := string(content[sec.start:end])
		if strings.TrimSpace(sectionText) == "" {
			continue
		}
		for _, part := range splitText(sectionText, maxRunes) {
			if strings.TrimSpace(part) == "" {
				continue
			}
			chunks = append(chunks, Chunk{
				Index:      len(chunks),
				Section:    sec.label,
				Text:       part,
				TokenCount: llm.EstimateTokens(part),
			})
		}
	}

	return chunks
}

// lineStart returns the offset of the beginning of the line containing pos.
// Heading segments start after the '#' markers; cutting at the line start
// keeps the markers inside the heading's own section.
func lineStart(content []byte, pos int) int {
	if pos > len(content) {
		pos = len(content)
	}
	return bytes.LastIndexByte(content[:pos], '\n') + 1
}

// sectionLabel builds a label from the heading stack.
// Format: "# Heading1 > ## Heading2"
func sectionLabel(stack []headingInfo) string {
	parts := make([]string, len(stack))
	for i, h := range stack {
		parts[i] = strings.Repeat("#", h.level) + " " + h.text
	}
	return strings.Join(parts, " > ")
}

// extractText extracts plain text content from a node and its children.
func extractText(n ast.Node, content []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := node.(type) {
		case *ast.Text:
			b.Write(v.Segment.Value(content))
		case *ast.String:
			b.Write(v.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}

// separators, in splitting preference order: paragraph break, line break,
// sentence end, word break.
var separators = []string{"\n\n", "\n", ". ", " "}

// splitText splits text into pieces of at most maxRunes runes, preferring the
// coarsest boundary that fits. A single word longer than the budget is emitted
// as its own oversized piece rather than split mid-word.
func splitText(text string, maxRunes int) []string {
	return splitAt(text, maxRunes, 0)
}

func splitAt(text string, maxRunes, sepIndex int) []string {
	if utf8.RuneCountInString(text) <= maxRunes {
		return []string{text}
	}
	if sepIndex >= len(separators) {
		// Unbreakable token over budget: emit oversized.
		return []string{text}
	}

	parts := strings.SplitAfter(text, separators[sepIndex])
	if len(parts) == 1 {
		return splitAt(text, maxRunes, sepIndex+1)
	}

	var out []string
	var cur strings.Builder
	curRunes := 0
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
			curRunes = 0
		}
	}

	for _, part := range parts {
		partRunes := utf8.RuneCountInString(part)
		if partRunes > maxRunes {
			flush()
			out = append(out, splitAt(part, maxRunes, sepIndex+1)...)
			continue
		}
		if curRunes+partRunes > maxRunes {
			flush()
		}
		cur.WriteString(part)
		curRunes += partRunes
	}
	flush()

	return out
}
