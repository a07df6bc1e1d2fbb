package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/goblin-king/internal/config"
	"github.com/jwebster45206/goblin-king/internal/logger"
	"github.com/jwebster45206/goblin-king/internal/services"
	"github.com/jwebster45206/goblin-king/pkg/rules"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		LLMProvider:       "mock",
		DataDir:           t.TempDir(),
		ConcatPolicy:      "simple",
		RetrievalTopK:     3,
		EmbeddingProvider: "mock",
	}
}

func TestNew_Defaults(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxTurns = 4

	e, err := New(context.Background(), cfg, nil, logger.Discard())
	require.NoError(t, err)
	assert.Equal(t, "mock", e.Model)
	assert.Same(t, e.LLM, e.Reducer)
	assert.Equal(t, rules.InjectionNone, e.Options.Injection)
	assert.Nil(t, e.Options.Retriever)
	assert.Equal(t, 4, e.Options.MaxTurns)
	assert.Nil(t, e.Options.Filter, "unrated content is not filtered")
	require.NoError(t, e.InitModel(context.Background()))

	m := e.NewManager()
	assert.NotNil(t, m.State())
}

func TestNew_ContentRating(t *testing.T) {
	cfg := testConfig(t)
	cfg.ContentRating = "PG"

	e, err := New(context.Background(), cfg, nil, logger.Discard())
	require.NoError(t, err)
	require.NotNil(t, e.Options.Filter)
	assert.Equal(t, "heck", e.Options.Filter.Clean("hell"))
}

func TestNew_Retrieval(t *testing.T) {
	cfg := testConfig(t)
	cfg.RuleInjection = "retrieval"

	cache := services.NewMockCache()
	e, err := New(context.Background(), cfg, cache, logger.Discard())
	require.NoError(t, err)
	require.NotNil(t, e.Options.Retriever)

	excerpts, err := e.Options.Retriever.Retrieve(context.Background(), "How many items can I carry?", 2)
	require.NoError(t, err)
	assert.Len(t, excerpts, 2)
	assert.NotEmpty(t, cache.SetCalls, "rule vectors should be cached")
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{name: "unknown provider", mutate: func(c *config.Config) { c.LLMProvider = "venice" }},
		{name: "unknown injection", mutate: func(c *config.Config) { c.RuleInjection = "some" }},
		{name: "unknown concat policy", mutate: func(c *config.Config) { c.ConcatPolicy = "random" }},
		{name: "unknown embedder", mutate: func(c *config.Config) {
			c.RuleInjection = "retrieval"
			c.EmbeddingProvider = "word2vec"
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(cfg)
			_, err := New(context.Background(), cfg, nil, logger.Discard())
			assert.Error(t, err)
		})
	}
}

func TestLoadBook(t *testing.T) {
	dir := t.TempDir()

	book, err := LoadBook(dir)
	require.NoError(t, err)
	assert.Equal(t, rules.Default(), book)

	custom := "instruction:\n  - You are the Goblin King.\nsections:\n  - title: Items\n    lines:\n      - Players carry at most six items.\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rules.yaml"), []byte(custom), 0o644))
	book, err = LoadBook(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"You are the Goblin King."}, book.Instruction)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "rules.yaml"), []byte("sections: []\n"), 0o644))
	_, err = LoadBook(dir)
	assert.Error(t, err)
}
