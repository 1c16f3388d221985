package summarizer

import (
	"strings"
	"unicode/utf8"
)

const (
	chunkSize    = 500
	chunkOverlap = 150
	separator    = "\n"
)

// SplitText splits text on newlines and merges the pieces into chunks of at
// most size runes, carrying up to overlap runes of trailing pieces into the
// next chunk. Pieces longer than size are cut into overlapping windows.
func SplitText(text string, size, overlap int) []string {
	if size <= 0 {
		return nil
	}
	if overlap >= size {
		overlap = size / 2
	}

	pieces := splitPieces(text, size, overlap)
	if len(pieces) == 0 {
		return nil
	}

	sepLen := utf8.RuneCountInString(separator)
	var chunks []string
	var current []string
	total := 0

	joinLen := func() int {
		if len(current) > 0 {
			return sepLen
		}
		return 0
	}

	for _, piece := range pieces {
		pieceLen := utf8.RuneCountInString(piece)
		if len(current) > 0 && total+pieceLen+joinLen() > size {
			chunks = append(chunks, strings.Join(current, separator))
			for total > overlap || (total > 0 && total+pieceLen+joinLen() > size) {
				drop := utf8.RuneCountInString(current[0])
				if len(current) > 1 {
					drop += sepLen
				}
				total -= drop
				current = current[1:]
			}
		}
		total += pieceLen + joinLen()
		current = append(current, piece)
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, separator))
	}
	return chunks
}

func splitPieces(text string, size, overlap int) []string {
	var pieces []string
	for _, line := range strings.Split(text, separator) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if utf8.RuneCountInString(line) <= size {
			pieces = append(pieces, line)
			continue
		}
		runes := []rune(line)
		step := size - overlap
		for start := 0; start < len(runes); start += step {
			end := start + size
			if end >= len(runes) {
				pieces = append(pieces, string(runes[start:]))
				break
			}
			pieces = append(pieces, string(runes[start:end]))
		}
	}
	return pieces
}
