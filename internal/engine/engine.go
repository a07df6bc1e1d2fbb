// Package engine turns configuration into ready-to-use game managers. The
// api, the console and the evaluator all build their Goblin King here.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jwebster45206/goblin-king/internal/config"
	"github.com/jwebster45206/goblin-king/internal/embedding"
	"github.com/jwebster45206/goblin-king/internal/services"
	"github.com/jwebster45206/goblin-king/pkg/manager"
	"github.com/jwebster45206/goblin-king/pkg/rules"
	"github.com/jwebster45206/goblin-king/pkg/state"
	"github.com/jwebster45206/goblin-king/pkg/textfilter"
)

// EmbeddingCacheTTL is how long rule vectors stay in the cache.
const EmbeddingCacheTTL = 7 * 24 * time.Hour

// Engine holds the model clients and options shared by every game.
type Engine struct {
	LLM     services.LLMService
	Reducer services.LLMService
	Model   string
	Options manager.Options

	backendModel string
	logger       *slog.Logger
}

// New builds the engine described by cfg. cache may be nil; when set, rule
// embeddings are cached in it.
func New(ctx context.Context, cfg *config.Config, cache embedding.Cache, logger *slog.Logger) (*Engine, error) {
	llm, model, err := services.NewLLMService(ctx, cfg.LLMProvider, cfg.ModelName, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm service: %w", err)
	}

	reducer, backendModel := llm, model
	if cfg.BackendModel != "" && cfg.BackendModel != model {
		reducer, backendModel, err = services.NewLLMService(ctx, cfg.LLMProvider, cfg.BackendModel, cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create backend llm service: %w", err)
		}
	}

	injection, err := rules.ParseInjection(cfg.RuleInjection)
	if err != nil {
		return nil, err
	}
	policy, err := state.ParseConcatPolicy(cfg.ConcatPolicy)
	if err != nil {
		return nil, err
	}
	book, err := LoadBook(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	opts := manager.Options{
		Reducer:       reducer,
		Book:          book,
		Injection:     injection,
		TopK:          cfg.RetrievalTopK,
		ConcatPolicy:  policy,
		MaxTurns:      cfg.MaxTurns,
		Summarization: cfg.Summarization,
		SummPeriod:    cfg.SummPeriod,
		ClearRawLogs:  cfg.ClearRawLogs,
		GameTimeLimit: cfg.GameTimeLimit,
		TurnTimeLimit: cfg.TurnTimeLimit,
	}
	if f := textfilter.ForRating(cfg.ContentRating); f != nil {
		opts.Filter = f
	}

	if injection == rules.InjectionRetrieval {
		emb, err := embedding.New(ctx, embedding.Options{
			Provider:  cfg.EmbeddingProvider,
			Model:     cfg.EmbeddingModel,
			OllamaURL: cfg.OllamaURL,
			APIKey:    cfg.GeminiAPIKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create embedder: %w", err)
		}
		if cache != nil {
			emb = embedding.NewCachedEmbedder(emb, cache, EmbeddingCacheTTL, logger)
		}
		opts.Retriever = rules.NewRetriever(book, emb)
		logger.Info("Rule retrieval enabled", "embedder", emb.Name(), "top_k", cfg.RetrievalTopK)
	}

	return &Engine{
		LLM:     llm,
		Reducer: reducer,
		Model:   model,
		Options: opts,

		backendModel: backendModel,
		logger:       logger,
	}, nil
}

// InitModel prepares the Goblin King model and, when different, the
// backend model.
func (e *Engine) InitModel(ctx context.Context) error {
	if err := e.LLM.InitModel(ctx, e.Model); err != nil {
		return err
	}
	if e.Reducer != e.LLM {
		return e.Reducer.InitModel(ctx, e.backendModel)
	}
	return nil
}

// NewManager returns a manager for a new or loaded game.
func (e *Engine) NewManager() *manager.Manager {
	return manager.New(e.LLM, e.Options, e.logger)
}

// LoadBook reads dataDir/rules.yaml, falling back to the built-in rule book
// when the file does not exist.
func LoadBook(dataDir string) (*rules.Book, error) {
	path := filepath.Join(dataDir, "rules.yaml")
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return rules.Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read rule book: %w", err)
	}
	return rules.Parse(data)
}
