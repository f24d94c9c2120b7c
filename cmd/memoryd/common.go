package main

import (
	"errors"
	"fmt"

	"github.com/sgx-labs/loa/internal/config"
	"github.com/sgx-labs/loa/internal/embedding"
	"github.com/sgx-labs/loa/internal/engine"
	"github.com/sgx-labs/loa/internal/llm"
	"github.com/sgx-labs/loa/internal/store"
)

// openEngine opens the store and builds a facade over it. The embedding
// provider and LLM client are resolved best-effort: if either is
// unreachable or unconfigured, the facade degrades the operations that
// depend on it rather than failing outright.
func openEngine() (*engine.Engine, *store.DB, error) {
	db, err := store.Open()
	if err != nil {
		if errors.Is(err, store.ErrNotInitialized) {
			return nil, nil, config.ErrNoDatabase
		}
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	embedder := newEmbedProvider()
	llmClient, _ := llm.NewClient()

	eng, err := engine.New(db, embedder, llmClient)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("build engine: %w", err)
	}
	return eng, db, nil
}

func newEmbedProvider() embedding.Provider {
	ec := config.EmbeddingProviderConfig()
	cfg := embedding.ProviderConfig{
		Provider:   ec.Provider,
		Model:      ec.Model,
		APIKey:     ec.APIKey,
		BaseURL:    ec.BaseURL,
		Dimensions: ec.Dimensions,
	}
	if (cfg.Provider == "ollama" || cfg.Provider == "") && cfg.BaseURL == "" {
		if url, err := config.OllamaURL(); err == nil {
			cfg.BaseURL = url
		}
	}
	provider, err := embedding.NewProvider(cfg)
	if err != nil {
		return nil
	}
	return provider
}

// ---------- error helpers ----------

// memoryError carries a user-facing message plus an actionable hint, and
// maps to exit code 1 (see exitCode).
type memoryError struct {
	message string
	hint    string
}

func (e *memoryError) Error() string {
	return fmt.Sprintf("%s\n  Hint: %s", e.message, e.hint)
}

func userError(message, hint string) error {
	return &memoryError{message: message, hint: hint}
}

// exitCode maps an error to the process exit code per the documented
// convention: 0 success, 1 user error or ordinary runtime failure, 2
// unrecoverable store integrity error.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, store.ErrIntegrity) || errors.Is(err, store.ErrSchemaTooNew) {
		return 2
	}
	return 1
}
