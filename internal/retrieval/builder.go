// Package retrieval turns a document's evidence chunks into prompt context.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"

	"github.com/cloo-solutions/tenderflow/internal/domain"
)

const (
	// MaxContextResults caps how many results FormatContext renders.
	MaxContextResults = 15
	// DefaultMaxResults is used when a caller passes a non-positive limit.
	DefaultMaxResults = 8

	blockSeparator = "\n\n---\n\n"
)

// ErrNoEmbedder is returned when retrieval runs without an embedding client.
var ErrNoEmbedder = errors.New("retrieval requires an embedding client")

type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

type Searcher interface {
	Search(ctx context.Context, documentID string, embedding []float32, limit int) ([]domain.RetrievalResult, error)
}

// Builder runs similarity queries against one document's evidence.
type Builder struct {
	embedder Embedder
	store    Searcher
}

func NewBuilder(embedder Embedder, store Searcher) *Builder {
	return &Builder{embedder: embedder, store: store}
}

// Query embeds question and returns the closest chunks of the document.
func (b *Builder) Query(ctx context.Context, documentID, question string, maxResults int) ([]domain.RetrievalResult, error) {
	if b.embedder == nil {
		return nil, ErrNoEmbedder
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return []domain.RetrievalResult{}, nil
	}
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	embedding, err := b.embedder.GenerateEmbedding(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	results, err := b.store.Search(ctx, documentID, embedding, maxResults)
	if err != nil {
		return nil, fmt.Errorf("search evidence: %w", err)
	}
	return results, nil
}

// QueryAll issues every question, then deduplicates and ranks the combined results.
// A failing sub-query is logged and skipped; the error is returned only when all fail.
func (b *Builder) QueryAll(ctx context.Context, documentID string, questions []string, maxResults int) ([]domain.RetrievalResult, error) {
	var (
		all      []domain.RetrievalResult
		failures int
		lastErr  error
	)
	for _, q := range questions {
		results, err := b.Query(ctx, documentID, q, maxResults)
		if err != nil {
			failures++
			lastErr = err
			log.Printf("retrieval: sub-query failed for document %s: %v", documentID, err)
			continue
		}
		all = append(all, results...)
	}
	if len(questions) > 0 && failures == len(questions) {
		return nil, lastErr
	}
	return Dedupe(all), nil
}

// Dedupe keeps one result per exact content, the one with the higher similarity,
// and orders the survivors by similarity descending. Ties keep first-seen order.
func Dedupe(results []domain.RetrievalResult) []domain.RetrievalResult {
	pos := make(map[string]int, len(results))
	out := make([]domain.RetrievalResult, 0, len(results))
	for _, r := range results {
		if i, ok := pos[r.Content]; ok {
			if r.Similarity > out[i].Similarity {
				out[i] = r
			}
			continue
		}
		pos[r.Content] = len(out)
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Similarity > out[j].Similarity
	})
	return out
}

// FormatContext renders the top results as prompt text. Empty input yields "".
func FormatContext(results []domain.RetrievalResult, label string) string {
	if len(results) == 0 {
		return ""
	}
	if len(results) > MaxContextResults {
		results = results[:MaxContextResults]
	}

	blocks := make([]string, 0, len(results))
	for _, r := range results {
		pct := int(math.Round(r.Similarity * 100))
		blocks = append(blocks, fmt.Sprintf("[relevance: %d%%]\n%s", pct, r.Content))
	}

	var sb strings.Builder
	if label = strings.TrimSpace(label); label != "" {
		sb.WriteString("## ")
		sb.WriteString(label)
		sb.WriteString("\n\n")
	}
	sb.WriteString(strings.Join(blocks, blockSeparator))
	return sb.String()
}
