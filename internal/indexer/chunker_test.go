package indexer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"semdex/internal/llm"
)

func TestChunker_EmptyDocument(t *testing.T) {
	chunker := NewChunker(180)

	assert.Nil(t, chunker.Chunk(nil))
	assert.Nil(t, chunker.Chunk([]byte{}))
	assert.Nil(t, chunker.Chunk([]byte("   \n\t\n  ")))
}

func TestChunker_ContentPreserved(t *testing.T) {
	chunker := NewChunker(50)

	content := "# Intro\n\nSome opening prose that sets the scene for everything below.\n\n" +
		"## Basics\n\nThe basics are explained here in a couple of sentences. They go on " +
		"for a while so that the section exceeds a single chunk budget and must be split " +
		"at paragraph or sentence boundaries.\n\n" +
		"## Advanced\n\nShorter section.\n"

	chunks := chunker.Chunk([]byte(content))
	require.NotEmpty(t, chunks)

	var b strings.Builder
	for _, chunk := range chunks {
		b.WriteString(chunk.Text)
	}
	assert.Equal(t, content, b.String(), "concatenated chunks must reconstruct the document")
}

func TestChunker_SectionLabels(t *testing.T) {
	chunker := NewChunker(180)

	content := "preamble before any heading\n\n# Main\n\nintro text\n\n## Sub\n\nnested text\n\n# Other\n\nmore text\n"
	chunks := chunker.Chunk([]byte(content))
	require.NotEmpty(t, chunks)

	labels := make(map[string]bool)
	for _, chunk := range chunks {
		labels[chunk.Section] = true
	}

	assert.True(t, labels[""], "preamble chunk should carry an empty section label")
	assert.True(t, labels["# Main"])
	assert.True(t, labels["# Main > ## Sub"])
	assert.True(t, labels["# Other"], "sibling heading should reset the nesting stack")
}

func TestChunker_RespectsTokenBudget(t *testing.T) {
	maxTokens := 30
	chunker := NewChunker(maxTokens)

	paragraphs := make([]string, 12)
	for i := range paragraphs {
		paragraphs[i] = "This paragraph contains a handful of words that add up over time."
	}
	content := "# Long\n\n" + strings.Join(paragraphs, "\n\n") + "\n"

	chunks := chunker.Chunk([]byte(content))
	require.Greater(t, len(chunks), 1, "long section must be split")

	for _, chunk := range chunks {
		assert.LessOrEqual(t, chunk.TokenCount, maxTokens,
			"chunk %d exceeds budget: %q", chunk.Index, chunk.Text)
	}
}

func TestChunker_OversizedWordEmittedWhole(t *testing.T) {
	maxTokens := 5
	chunker := NewChunker(maxTokens)

	word := strings.Repeat("x", llm.TokensToRunes(maxTokens)*3)
	chunks := chunker.Chunk([]byte(word))

	require.Len(t, chunks, 1)
	assert.Equal(t, word, chunks[0].Text)
	assert.Greater(t, chunks[0].TokenCount, maxTokens)
}

func TestChunker_IndexesAreSequential(t *testing.T) {
	chunker := NewChunker(20)

	content := "# A\n\nfirst paragraph here\n\nsecond paragraph here\n\n# B\n\nthird paragraph here\n"
	chunks := chunker.Chunk([]byte(content))
	require.NotEmpty(t, chunks)

	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Index)
	}
}

func TestChunker_Deterministic(t *testing.T) {
	chunker := NewChunker(40)

	content := []byte("# Title\n\nalpha beta gamma delta epsilon zeta eta theta iota kappa " +
		"lambda mu nu xi omicron pi rho sigma tau upsilon phi chi psi omega\n")

	first := chunker.Chunk(content)
	second := chunker.Chunk(content)
	assert.Equal(t, first, second)
}
