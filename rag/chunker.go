package rag

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Chunking parameters, in characters.
const (
	ChunkSize    = 1000
	ChunkOverlap = 200
	MinChunkSize = 300
)

// Chunk is a cleaned piece of source text with positional metadata.
type Chunk struct {
	Text    string
	Book    string
	Chapter string
	Section string
	Index   int
}

// ID derives a stable content-hash identifier, so re-ingesting the same
// material is idempotent.
func (c Chunk) ID() string {
	content := fmt.Sprintf("%s_%d_%s", c.Book, c.Index, truncate(c.Text, 100))
	sum := md5.Sum([]byte(content))
	return hex.EncodeToString(sum[:])
}

var (
	spaceRun      = regexp.MustCompile(`[ \t]+`)
	blankLines    = regexp.MustCompile(`\n{3,}`)
	pageNumber    = regexp.MustCompile(`\n\d+\s*\n`)
	pageHeader    = regexp.MustCompile(`\n\s*Page \d+\s*\n`)
	urlPattern    = regexp.MustCompile(`http[s]?://[^\s]+`)
	emailPattern  = regexp.MustCompile(`\S+@\S+`)
	curlyDoubles  = strings.NewReplacer("“", `"`, "”", `"`)
	curlySingles  = strings.NewReplacer("‘", "'", "’", "'", "`", "'")
	fancyDashes   = strings.NewReplacer("—", "-", "–", "-")
	numberedStart = regexp.MustCompile(`^\d+\.`)
)

// CleanText normalizes raw extracted text: collapses runs of spaces, strips
// lone page numbers, URLs and emails, and normalizes quotes and dashes.
// Paragraph boundaries (blank lines) are preserved for the chunker.
func CleanText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = spaceRun.ReplaceAllString(text, " ")
	text = pageNumber.ReplaceAllString(text, "\n")
	text = pageHeader.ReplaceAllString(text, "\n")
	text = urlPattern.ReplaceAllString(text, "")
	text = emailPattern.ReplaceAllString(text, "")
	text = curlyDoubles.Replace(text)
	text = curlySingles.Replace(text)
	text = fancyDashes.Replace(text)
	text = blankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// isHeading applies the heading heuristic: short paragraphs mentioning a
// chapter or section, all-caps lines, or a leading "N." numbering.
func isHeading(paragraph string) bool {
	if utf8.RuneCountInString(paragraph) >= 100 {
		return false
	}
	lower := strings.ToLower(paragraph)
	if strings.Contains(lower, "chapter") || strings.Contains(lower, "section") {
		return true
	}
	if isAllUpper(paragraph) {
		return true
	}
	return numberedStart.MatchString(paragraph)
}

func isAllUpper(s string) bool {
	hasLetter := false
	for _, r := range s {
		if r >= 'a' && r <= 'z' {
			return false
		}
		if r >= 'A' && r <= 'Z' {
			hasLetter = true
		}
	}
	return hasLetter
}

// ChunkText splits cleaned text into overlapping chunks of roughly ChunkSize
// characters, tracking the chapter and section each chunk falls under.
// Consecutive chunks share the last 30 words for context. If the paragraph
// pass produces too few chunks on a large text, a plain character window
// pass is used instead. All sizes count runes, never bytes, so window
// boundaries cannot split a multi-byte character.
func ChunkText(text, book string) []Chunk {
	cleaned := CleanText(text)
	var chunks []Chunk

	paragraphs := strings.Split(cleaned, "\n\n")

	var current strings.Builder
	currentRunes := 0
	chapter := "Introduction"
	section := ""
	index := 0

	write := func(s string) {
		current.WriteString(s)
		currentRunes += utf8.RuneCountInString(s)
	}

	flush := func() {
		trimmed := strings.TrimSpace(current.String())
		if utf8.RuneCountInString(trimmed) >= MinChunkSize {
			chunks = append(chunks, Chunk{
				Text:    trimmed,
				Book:    book,
				Chapter: chapter,
				Section: section,
				Index:   index,
			})
			index++
		}
	}

	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		if isHeading(p) {
			if currentRunes >= MinChunkSize {
				flush()
				current.Reset()
				currentRunes = 0
			}
			if strings.Contains(strings.ToLower(p), "chapter") {
				chapter = p
				section = ""
			} else {
				section = p
			}
			continue
		}

		if currentRunes+utf8.RuneCountInString(p)+2 > ChunkSize {
			if currentRunes >= MinChunkSize {
				overlap := lastWords(current.String(), 30)
				flush()
				current.Reset()
				currentRunes = 0
				write(overlap)
				write("\n\n")
			}
			write(p)
			write("\n\n")
		} else {
			write(p)
			write("\n\n")
		}
	}
	flush()

	// Fallback: headings-and-paragraphs yielded too little structure
	runes := []rune(cleaned)
	if len(chunks) < 5 && len(runes) > ChunkSize*2 {
		chunks = chunks[:0]
		index = 0
		step := ChunkSize - ChunkOverlap
		for i := 0; i < len(runes); i += step {
			end := i + ChunkSize
			if end > len(runes) {
				end = len(runes)
			}
			if end-i >= MinChunkSize {
				chunks = append(chunks, Chunk{
					Text:    string(runes[i:end]),
					Book:    book,
					Chapter: fmt.Sprintf("Section %d", index/10+1),
					Section: fmt.Sprintf("Part %d", index%10+1),
					Index:   index,
				})
				index++
			}
		}
	}

	return chunks
}

func lastWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) > n {
		words = words[len(words)-n:]
	}
	return strings.Join(words, " ")
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
