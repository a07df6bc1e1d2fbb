package rules

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
)

// Embedder turns text into vectors. internal/embedding provides the backends.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Excerpt is a retrieved rule line and its similarity to the query.
type Excerpt struct {
	Text  string
	Score float64
}

// Retriever finds the rule lines most related to a message.
// The rule book is embedded on first use and kept for the life of the
// retriever. A failed embedding is retried on the next call.
type Retriever struct {
	book     *Book
	embedder Embedder

	mu      sync.Mutex
	indexed bool
	lines   []string
	vectors [][]float32
}

func NewRetriever(book *Book, embedder Embedder) *Retriever {
	return &Retriever{book: book, embedder: embedder}
}

func (r *Retriever) index(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.indexed {
		return nil
	}

	lines := r.book.Lines()
	if len(lines) > 0 {
		vecs, err := r.embedder.EmbedBatch(ctx, lines)
		if err != nil {
			return fmt.Errorf("failed to embed rule book: %w", err)
		}
		if len(vecs) != len(lines) {
			return fmt.Errorf("embedder returned %d vectors for %d rules", len(vecs), len(lines))
		}
		r.vectors = vecs
	}
	r.lines = lines
	r.indexed = true
	return nil
}

// Retrieve returns up to k rule lines ordered by descending similarity.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]Excerpt, error) {
	if k <= 0 {
		return nil, nil
	}
	if err := r.index(ctx); err != nil {
		return nil, err
	}
	if len(r.lines) == 0 {
		return nil, nil
	}

	q, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results := make([]Excerpt, 0, len(r.lines))
	for i, vec := range r.vectors {
		score, err := CosineSimilarity(q, vec)
		if err != nil {
			return nil, err
		}
		results = append(results, Excerpt{Text: r.lines[i], Score: score})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// FormatExcerpts renders excerpts as the system message added in retrieval mode.
func FormatExcerpts(excerpts []Excerpt) string {
	if len(excerpts) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(RetrievedIntroduction)
	for _, e := range excerpts {
		sb.WriteString("\n- " + e.Text)
	}
	return sb.String()
}

// CosineSimilarity returns the cosine of the angle between a and b.
// Zero vectors score 0.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vectors must have the same length: %d != %d", len(a), len(b))
	}
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB)), nil
}
