// Package executor runs queries against the index the searcher serves. The
// index is published exactly once at startup; until then every query fails
// with ErrIndexUnavailable.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/catalog/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/catalog/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/catalog/internal/searcher/merger"
	"github.com/Adithya-Monish-Kumar-K/catalog/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/catalog/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/catalog/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/catalog/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/catalog/pkg/tracing"
)

// ErrAlreadyPublished is returned by a second call to Publish.
var ErrAlreadyPublished = errors.New("index already published")

type SearchResult struct {
	Query     string             `json:"query"`
	TotalHits int                `json:"total_hits"`
	Results   []ranker.ScoredDoc `json:"results"`
}

type published struct {
	idx *index.Index
	tok tokenizer.Tokenizer
}

type Executor struct {
	once    sync.Once
	current atomic.Pointer[published]
	timeout time.Duration
	logger  *slog.Logger
}

// New creates an executor with no index. timeout bounds the scoring of a
// single query; zero disables it.
func New(timeout time.Duration) *Executor {
	return &Executor{
		timeout: timeout,
		logger:  slog.Default().With("component", "query-executor"),
	}
}

// Publish makes idx the index every query runs against. The query analyzer is
// rebuilt from the name recorded in the index. Only the first call has any
// effect.
func (e *Executor) Publish(idx *index.Index) error {
	if idx == nil {
		return fmt.Errorf("publishing index: %w", apperrors.ErrIndexUnavailable)
	}
	tok, err := tokenizer.New(idx.Meta().Analyzer)
	if err != nil {
		return fmt.Errorf("publishing index: %w", err)
	}
	err = ErrAlreadyPublished
	e.once.Do(func() {
		e.current.Store(&published{idx: idx, tok: tok})
		err = nil
		e.logger.Info("index published",
			"documents", idx.DocCount(),
			"terms", idx.TermCount(),
			"analyzer", tok.Name(),
			"checksum", idx.Meta().Checksum,
		)
	})
	return err
}

// Index returns the published index, or nil.
func (e *Executor) Index() *index.Index {
	if p := e.current.Load(); p != nil {
		return p.idx
	}
	return nil
}

func (e *Executor) Ready() bool { return e.current.Load() != nil }

// Parse normalizes query with the analyzer of the published index.
func (e *Executor) Parse(query string) (*parser.QueryPlan, error) {
	p := e.current.Load()
	if p == nil {
		return nil, apperrors.ErrIndexUnavailable
	}
	return parser.Parse(p.tok, query), nil
}

// Execute ranks the plan and returns at most limit results. TotalHits counts
// every matching document, not just the returned page.
func (e *Executor) Execute(ctx context.Context, plan *parser.QueryPlan, limit int) (*SearchResult, error) {
	p := e.current.Load()
	if p == nil {
		return nil, apperrors.ErrIndexUnavailable
	}
	result := &SearchResult{Query: plan.RawQuery, Results: []ranker.ScoredDoc{}}
	if plan.Empty() {
		return result, nil
	}

	ctx, span := tracing.StartChildSpan(ctx, "rank")
	defer span.End()
	span.SetAttr("terms", len(plan.Terms))

	scored, err := resilience.Call(ctx, e.timeout, "rank", func(ctx context.Context) ([]ranker.ScoredDoc, error) {
		return ranker.Score(ctx, p.idx, plan)
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrTimeout, err)
		}
		return nil, fmt.Errorf("ranking %q: %w", plan.RawQuery, err)
	}

	result.TotalHits = len(scored)
	result.Results = merger.TopK(scored, limit)
	span.SetAttr("candidates", len(scored))

	e.logger.Debug("query executed",
		"query", plan.RawQuery,
		"terms", plan.Terms,
		"candidates", len(scored),
		"results", len(result.Results),
	)
	return result, nil
}
