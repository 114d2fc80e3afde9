// Package indexer builds a tf-idf inverted index from a stream of document
// records. A build is an offline batch: it reads the whole corpus, tokenizes
// documents in parallel, and freezes the result into an immutable index.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/catalog/internal/indexer/extract"
	"github.com/Adithya-Monish-Kumar-K/catalog/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/catalog/internal/indexer/source"
	"github.com/Adithya-Monish-Kumar-K/catalog/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/catalog/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/catalog/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/catalog/pkg/metrics"
)

// Options controls a build.
type Options struct {
	Analyzer string
	TFScheme index.TFScheme
	Workers  int
	// MaxSkipped aborts the build once more than this many records have been
	// skipped. Negative means unlimited.
	MaxSkipped    int
	StripHTML     bool
	ProgressEvery int
}

// OptionsFromConfig converts the indexer section of the config.
func OptionsFromConfig(cfg config.IndexerConfig) (Options, error) {
	scheme, err := index.ParseTFScheme(cfg.TFScheme)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Analyzer:      cfg.Analyzer,
		TFScheme:      scheme,
		Workers:       cfg.Workers,
		MaxSkipped:    cfg.MaxSkipped,
		StripHTML:     cfg.StripHTML,
		ProgressEvery: cfg.ProgressEvery,
	}, nil
}

// Report summarizes a finished build.
type Report struct {
	Source    string
	Documents int
	Skipped   int
	Terms     int
	Postings  int
	Duration  time.Duration
}

// Builder turns document records into an Index. A Builder holds no state
// between builds and may be reused.
type Builder struct {
	opts    Options
	tok     tokenizer.Tokenizer
	metrics *metrics.BuildMetrics
	logger  *slog.Logger
}

// NewBuilder resolves the analyzer named in opts. m may be nil.
func NewBuilder(opts Options, m *metrics.BuildMetrics) (*Builder, error) {
	tok, err := tokenizer.New(opts.Analyzer)
	if err != nil {
		return nil, err
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.TFScheme == "" {
		opts.TFScheme = index.TFRaw
	}
	return &Builder{
		opts:    opts,
		tok:     tok,
		metrics: m,
		logger:  slog.Default().With("component", "indexer"),
	}, nil
}

func (b *Builder) Tokenizer() tokenizer.Tokenizer { return b.tok }

// Build reads every record from src and returns the frozen index. Malformed
// records are logged and skipped; the first occurrence of a document ID wins
// and later duplicates count as malformed. On cancellation, a worker failure,
// or too many skipped records the partial index is discarded.
func (b *Builder) Build(ctx context.Context, src source.Source) (*index.Index, *Report, error) {
	start := time.Now()
	report := &Report{Source: src.Name()}
	acc := index.NewAccumulator()

	b.logger.Info("build started",
		"source", src.Name(),
		"analyzer", b.tok.Name(),
		"tf_scheme", b.opts.TFScheme,
		"workers", b.opts.Workers,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Workers)

	seen := make(map[string]struct{})
	var skipped int
	var added atomic.Int64

	skip := func(origin string, reason error) error {
		skipped++
		b.logger.Warn("skipping record", "origin", origin, "reason", reason)
		if b.opts.MaxSkipped >= 0 && skipped > b.opts.MaxSkipped {
			return fmt.Errorf("%w: %d records skipped, limit %d", apperrors.ErrTooManySkipped, skipped, b.opts.MaxSkipped)
		}
		return nil
	}

	eachErr := src.Each(gctx, func(rec source.Record) error {
		doc, err := source.Decode(rec)
		if err != nil {
			return skip(rec.Origin, err)
		}
		if _, dup := seen[doc.ID]; dup {
			return skip(rec.Origin, apperrors.Malformedf("duplicate document id %q", doc.ID))
		}
		seen[doc.ID] = struct{}{}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := b.addDocument(acc, doc); err != nil {
				return fmt.Errorf("indexing %s: %w", rec.Origin, err)
			}
			if n := added.Add(1); b.opts.ProgressEvery > 0 && n%int64(b.opts.ProgressEvery) == 0 {
				b.logger.Info("build progress", "documents", n, "terms", acc.TermCount(), "mem_bytes", acc.Size())
			}
			return nil
		})
		return nil
	})
	waitErr := g.Wait()
	report.Skipped = skipped

	if err := firstError(waitErr, eachErr, ctx.Err()); err != nil {
		b.fail(report, err)
		return nil, report, err
	}

	idx, err := acc.Freeze(index.Meta{Analyzer: b.tok.Name(), TFScheme: b.opts.TFScheme})
	if err != nil {
		err = fmt.Errorf("freezing index: %w", err)
		b.fail(report, err)
		return nil, report, err
	}

	report.Documents = idx.DocCount()
	report.Terms = idx.TermCount()
	report.Postings = idx.PostingCount()
	report.Duration = time.Since(start)
	b.observe(report, "success")

	b.logger.Info("build complete",
		"documents", report.Documents,
		"skipped", report.Skipped,
		"terms", report.Terms,
		"postings", report.Postings,
		"duration", report.Duration,
	)
	return idx, report, nil
}

// addDocument tokenizes one document and records its term counts.
func (b *Builder) addDocument(acc *index.Accumulator, doc source.Document) error {
	text := doc.Text
	if doc.HTML || b.opts.StripHTML {
		text = extract.Text(text)
	}
	tokens := b.tok.Tokenize(text)
	return acc.Add(doc.ID, tokenizer.Frequencies(tokens), len(tokens))
}

func (b *Builder) fail(report *Report, err error) {
	status := "failed"
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		status = "cancelled"
	}
	b.observe(report, status)
	b.logger.Error("build aborted", "error", err, "skipped", report.Skipped)
}

func (b *Builder) observe(report *Report, status string) {
	if b.metrics == nil {
		return
	}
	b.metrics.BuildsTotal.WithLabelValues(status).Inc()
	b.metrics.DocsSkippedTotal.Add(float64(report.Skipped))
	if status != "success" {
		return
	}
	b.metrics.DocsIndexedTotal.Add(float64(report.Documents))
	b.metrics.IndexTerms.Set(float64(report.Terms))
	b.metrics.IndexPostings.Set(float64(report.Postings))
	b.metrics.BuildDuration.Set(report.Duration.Seconds())
}

// firstError prefers a worker failure over the context error it caused in
// the reader.
func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
