package embedding

import (
	"context"
	"hash/fnv"
	"sync"
)

// MockEmbedder is a deterministic Embedder for tests.
// By default each text maps to a bag-of-words vector of MockDimensions buckets.
type MockEmbedder struct {
	EmbedFunc      func(ctx context.Context, text string) ([]float32, error)
	EmbedBatchFunc func(ctx context.Context, texts []string) ([][]float32, error)

	mu         sync.Mutex
	embedCalls int
	batchCalls int
}

const MockDimensions = 32

func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{}
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.embedCalls++
	m.mu.Unlock()
	if m.EmbedFunc != nil {
		return m.EmbedFunc(ctx, text)
	}
	return bagOfWords(text), nil
}

func (m *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.batchCalls++
	m.mu.Unlock()
	if m.EmbedBatchFunc != nil {
		return m.EmbedBatchFunc(ctx, texts)
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = bagOfWords(t)
	}
	return out, nil
}

func (m *MockEmbedder) Name() string { return "mock" }

func (m *MockEmbedder) EmbedCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.embedCalls
}

func (m *MockEmbedder) BatchCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.batchCalls
}

func bagOfWords(text string) []float32 {
	vec := make([]float32, MockDimensions)
	word := make([]rune, 0, 16)
	flush := func() {
		if len(word) == 0 {
			return
		}
		h := fnv.New32a()
		_, _ = h.Write([]byte(string(word)))
		vec[h.Sum32()%MockDimensions]++
		word = word[:0]
	}
	for _, r := range text {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			word = append(word, r)
		case r >= 'A' && r <= 'Z':
			word = append(word, r+('a'-'A'))
		default:
			flush()
		}
	}
	flush()
	return vec
}
