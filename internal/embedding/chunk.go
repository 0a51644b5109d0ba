package embedding

import (
	"strings"
	"unicode/utf8"
)

// Chunk splits text into embedding-sized pieces measured in runes. Paragraph
// boundaries are preferred; oversized paragraphs fall back to word
// boundaries, and pathological words are cut hard. Returns at most maxChunks
// chunks and whether input was dropped to honor that cap.
func Chunk(text string, chunkChars, maxChunks int) ([]string, bool) {
	if chunkChars <= 0 {
		chunkChars = 1
	}
	var (
		chunks  []string
		current strings.Builder
		size    int
	)
	flush := func() {
		if size > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			size = 0
		}
	}

	for _, paragraph := range strings.Split(text, "\n\n") {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}
		for _, piece := range splitOversized(paragraph, chunkChars) {
			pieceLen := utf8.RuneCountInString(piece)
			if size > 0 && size+1+pieceLen > chunkChars {
				flush()
			}
			if size > 0 {
				current.WriteByte('\n')
				size++
			}
			current.WriteString(piece)
			size += pieceLen
		}
	}
	flush()

	if maxChunks > 0 && len(chunks) > maxChunks {
		return chunks[:maxChunks], true
	}
	return chunks, false
}

func splitOversized(paragraph string, limit int) []string {
	if utf8.RuneCountInString(paragraph) <= limit {
		return []string{paragraph}
	}
	var (
		pieces  []string
		current strings.Builder
		size    int
	)
	flush := func() {
		if size > 0 {
			pieces = append(pieces, current.String())
			current.Reset()
			size = 0
		}
	}

	for _, word := range strings.Fields(paragraph) {
		runes := []rune(word)
		for len(runes) > limit {
			flush()
			pieces = append(pieces, string(runes[:limit]))
			runes = runes[limit:]
		}
		if len(runes) == 0 {
			continue
		}
		if size > 0 && size+1+len(runes) > limit {
			flush()
		}
		if size > 0 {
			current.WriteByte(' ')
			size++
		}
		current.WriteString(string(runes))
		size += len(runes)
	}
	flush()
	return pieces
}
