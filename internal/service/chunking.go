package service

import (
	"strings"
	"unicode"
)

// ChunkConfig controls how source text is split before it is stored as evidence.
type ChunkConfig struct {
	MaxChars  int
	MinChars  int
	Overlap   int
	MaxChunks int
}

// DefaultChunkConfig keeps chunks near the size the retrieval prompts expect.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MaxChars:  1200,
		MinChars:  400,
		Overlap:   200,
		MaxChunks: 40,
	}
}

// chunkText splits tender text into overlapping windows of at most MaxChars runes.
// Windows end at the strongest boundary found after MinChars: a blank line, then a
// line or sentence end, then any whitespace, then a hard cut.
func chunkText(text string, cfg ChunkConfig) []string {
	clean := strings.TrimSpace(text)
	if clean == "" {
		return nil
	}
	if cfg.MaxChars <= 0 {
		cfg = DefaultChunkConfig()
	}
	runes := []rune(clean)
	if len(runes) <= cfg.MaxChars {
		return []string{clean}
	}

	var chunks []string
	for start := 0; start < len(runes); {
		if cfg.MaxChunks > 0 && len(chunks) >= cfg.MaxChunks {
			break
		}

		end := min(start+cfg.MaxChars, len(runes))
		if end < len(runes) {
			end = cutPoint(runes, min(start+cfg.MinChars, end), end)
		}

		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end >= len(runes) {
			break
		}

		next := end
		if cfg.Overlap > 0 && end-start > cfg.Overlap {
			next = end - cfg.Overlap
		}
		start = max(next, start+1)
	}

	return chunks
}

// cutPoint returns the end (exclusive) of the window runes[:end], searching back no
// further than floor.
func cutPoint(runes []rune, floor, end int) int {
	best, bestRank := end, 0
	for i := end; i > floor; i-- {
		r := boundaryRank(runes, i)
		if r > bestRank {
			best, bestRank = i, r
			if r == rankParagraph {
				break
			}
		}
	}
	return best
}

const (
	rankSpace = iota + 1
	rankSentence
	rankParagraph
)

// boundaryRank scores cutting right before runes[i].
func boundaryRank(runes []rune, i int) int {
	prev := runes[i-1]
	switch {
	case prev == '\n' && i >= 2 && runes[i-2] == '\n':
		return rankParagraph
	case prev == '\n':
		return rankSentence
	case unicode.IsSpace(prev) && i >= 2 && strings.ContainsRune(".;:!?", runes[i-2]):
		return rankSentence
	case unicode.IsSpace(prev):
		return rankSpace
	default:
		return 0
	}
}
