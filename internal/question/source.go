// Package question resolves the ordered question list for a subject/paper.
// Static bank papers live in the SQLite questions table; AI-generated papers
// are read from the schema-versioned paper cache. An empty resolution is a
// reportable condition, never a panic.
package question

import (
	"context"
	"errors"
	"fmt"

	"prepdeck/internal/model"
)

// ErrNoQuestions is returned when a subject/paper resolves to zero questions.
// Callers surface it as a recoverable empty state.
var ErrNoQuestions = errors.New("no questions available")

// Source supplies the question list for one subject/paper.
type Source interface {
	Resolve(ctx context.Context, subject, paperID string) ([]model.Question, error)
}

// Bank is the static question bank backed by the SQLite store.
type Bank struct {
	store BankStore
}

// BankStore is the slice of the store the bank needs.
type BankStore interface {
	ListPaperQuestions(subject, paperID string) ([]model.Question, error)
}

func NewBank(s BankStore) *Bank {
	return &Bank{store: s}
}

func (b *Bank) Resolve(_ context.Context, subject, paperID string) ([]model.Question, error) {
	questions, err := b.store.ListPaperQuestions(subject, paperID)
	if err != nil {
		return nil, fmt.Errorf("list bank questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}
	return questions, nil
}

// Cache resolves AI-generated papers previously placed in the paper cache.
type Cache struct {
	store CacheStore
}

// CacheStore is the slice of the store the cache source needs.
type CacheStore interface {
	GetPaper(subject, paperID string) ([]model.Question, error)
}

func NewCache(s CacheStore) *Cache {
	return &Cache{store: s}
}

func (c *Cache) Resolve(_ context.Context, subject, paperID string) ([]model.Question, error) {
	questions, err := c.store.GetPaper(subject, paperID)
	if err != nil {
		return nil, fmt.Errorf("read paper cache: %w", err)
	}
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}
	return questions, nil
}

// Resolver tries each source in order and returns the first non-empty list.
// Only a final ErrNoQuestions is reported as such; other errors stop the chain.
type Resolver struct {
	sources []Source
}

func NewResolver(sources ...Source) *Resolver {
	return &Resolver{sources: sources}
}

func (r *Resolver) Resolve(ctx context.Context, subject, paperID string) ([]model.Question, error) {
	for _, src := range r.sources {
		questions, err := src.Resolve(ctx, subject, paperID)
		if err == nil {
			return questions, nil
		}
		if !errors.Is(err, ErrNoQuestions) {
			return nil, err
		}
	}
	return nil, ErrNoQuestions
}
