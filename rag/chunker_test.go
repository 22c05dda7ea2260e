package rag

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "collapses space runs",
			in:   "one    two\t\tthree",
			want: "one two three",
		},
		{
			name: "keeps paragraph boundaries",
			in:   "first paragraph\n\nsecond paragraph",
			want: "first paragraph\n\nsecond paragraph",
		},
		{
			name: "squeezes long blank runs to one boundary",
			in:   "first\n\n\n\n\nsecond",
			want: "first\n\nsecond",
		},
		{
			name: "strips lone page numbers",
			in:   "before the break\n42\nafter the break",
			want: "before the break\nafter the break",
		},
		{
			name: "normalizes curly quotes and dashes",
			in:   "she said “hello” — twice",
			want: `she said "hello" - twice`,
		},
		{
			name: "trims surrounding whitespace",
			in:   "\n\n  padded  \n\n",
			want: "padded",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, CleanText(test.in))
		})
	}

	t.Run("removes urls and emails", func(t *testing.T) {
		got := CleanText("visit https://example.com/page or write to help@example.com today")
		assert.NotContains(t, got, "http")
		assert.NotContains(t, got, "@")
		assert.Contains(t, got, "visit")
		assert.Contains(t, got, "today")
	})
}

func TestIsHeading(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"chapter line", "Chapter 3: Fractions", true},
		{"section line", "Section 2 Review", true},
		{"all caps line", "INTRODUCTION TO ALGEBRA", true},
		{"numbered line", "1. Whole Numbers", true},
		{"ordinary sentence", "This is a normal sentence about math.", false},
		{"short mixed-case word", "Totals", false},
		{
			"long paragraph mentioning chapter",
			"In this chapter we will spend quite a lot of time working through many different worked examples together.",
			false,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, isHeading(test.in))
		})
	}
}

func TestChunkTextTracksHeadingsAndOverlap(t *testing.T) {
	para := strings.TrimSpace(strings.Repeat("numbers help us count and compare quantities ", 10))
	text := "Chapter 1: Counting\n\n1. Whole Numbers\n\n" +
		para + "\n\n" + para + "\n\n" + para

	chunks := ChunkText(text, "arithmetic")

	assert.Len(t, chunks, 2)
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Index)
		assert.Equal(t, "arithmetic", chunk.Book)
		assert.Equal(t, "Chapter 1: Counting", chunk.Chapter)
		assert.Equal(t, "1. Whole Numbers", chunk.Section)
		assert.GreaterOrEqual(t, len(chunk.Text), MinChunkSize)
	}

	// the second chunk starts with the tail of the first
	overlap := lastWords(chunks[0].Text, 30)
	assert.True(t, strings.HasPrefix(chunks[1].Text, overlap))
}

func TestChunkTextNewChapterResetsSection(t *testing.T) {
	para := strings.TrimSpace(strings.Repeat("practice problems build fluency with the ideas above ", 8))
	text := "Chapter 1: Counting\n\n1. Whole Numbers\n\n" + para +
		"\n\nChapter 2: Adding\n\n" + para

	chunks := ChunkText(text, "arithmetic")

	assert.Len(t, chunks, 2)
	assert.Equal(t, "Chapter 1: Counting", chunks[0].Chapter)
	assert.Equal(t, "1. Whole Numbers", chunks[0].Section)
	assert.Equal(t, "Chapter 2: Adding", chunks[1].Chapter)
	assert.Equal(t, "", chunks[1].Section)
}

func TestChunkTextDropsTinyRemainders(t *testing.T) {
	chunks := ChunkText("Just a tiny note about nothing much.", "scraps")
	assert.Empty(t, chunks)
}

func TestChunkTextCharacterWindowFallback(t *testing.T) {
	// a single unbroken blob gives the paragraph pass nothing to work with
	raw := strings.Repeat("abcdefghij ", 230)
	cleaned := CleanText(raw)
	assert.Greater(t, len(cleaned), ChunkSize*2)

	chunks := ChunkText(raw, "blob")

	assert.Greater(t, len(chunks), 1)
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Index)
		assert.GreaterOrEqual(t, len(chunk.Text), MinChunkSize)
		assert.LessOrEqual(t, len(chunk.Text), ChunkSize)
	}
	assert.Equal(t, "Section 1", chunks[0].Chapter)
	assert.Equal(t, "Part 1", chunks[0].Section)
	assert.Equal(t, "Part 2", chunks[1].Section)

	// adjacent windows share ChunkOverlap characters
	tail := chunks[0].Text[ChunkSize-ChunkOverlap:]
	assert.Equal(t, tail, chunks[1].Text[:ChunkOverlap])
}

func TestIsHeadingCountsCharactersNotBytes(t *testing.T) {
	// 68 characters but 128 bytes; still a short heading
	heading := "Section " + strings.Repeat("π", 60)
	assert.GreaterOrEqual(t, len(heading), 100)
	assert.True(t, isHeading(heading))
}

func TestChunkTextFallbackKeepsMultiByteRunesIntact(t *testing.T) {
	// 2800 characters, none of them single-byte; math texts are full of these
	raw := strings.Repeat("π≈×−", 700)
	chunks := ChunkText(raw, "symbols")

	assert.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.True(t, utf8.ValidString(chunk.Text))
		n := utf8.RuneCountInString(chunk.Text)
		assert.GreaterOrEqual(t, n, MinChunkSize)
		assert.LessOrEqual(t, n, ChunkSize)
	}

	// window overlap is counted in characters as well
	tail := []rune(chunks[0].Text)[ChunkSize-ChunkOverlap:]
	head := []rune(chunks[1].Text)[:ChunkOverlap]
	assert.Equal(t, string(tail), string(head))
}

func TestChunkID(t *testing.T) {
	a := Chunk{Text: "the quick brown fox", Book: "arithmetic", Index: 0}
	b := Chunk{Text: "the quick brown fox", Book: "arithmetic", Index: 0}
	c := Chunk{Text: "the quick brown fox", Book: "arithmetic", Index: 1}
	d := Chunk{Text: "the quick brown fox", Book: "geometry", Index: 0}

	assert.Len(t, a.ID(), 32)
	assert.Equal(t, a.ID(), b.ID())
	assert.NotEqual(t, a.ID(), c.ID())
	assert.NotEqual(t, a.ID(), d.ID())

	// only the first 100 characters of the text feed the hash
	long := strings.Repeat("x", 150)
	e := Chunk{Text: long, Book: "arithmetic", Index: 0}
	f := Chunk{Text: long + "different tail", Book: "arithmetic", Index: 0}
	assert.Equal(t, e.ID(), f.ID())

	// 100 characters, not 100 bytes: these share a 100-byte prefix but differ
	// within the first 100 characters
	shared := strings.Repeat("π", 50)
	g := Chunk{Text: shared + " plus alpha", Book: "symbols", Index: 0}
	h := Chunk{Text: shared + " plus beta", Book: "symbols", Index: 0}
	assert.NotEqual(t, g.ID(), h.ID())
}
