package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/catalog/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/catalog/internal/indexer/manifest"
	"github.com/Adithya-Monish-Kumar-K/catalog/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/catalog/internal/indexer/source"
	apperrors "github.com/Adithya-Monish-Kumar-K/catalog/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/catalog/pkg/kafka"
)

// ManifestRecorder stores a row describing a published index.
// *manifest.Recorder satisfies it.
type ManifestRecorder interface {
	Record(ctx context.Context, b manifest.Build) (int64, error)
}

// Announcer publishes the index.complete event. *kafka.Producer satisfies it.
type Announcer interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Pipeline builds an index, writes it to disk and then tells the rest of the
// system about it. Manifest and Announcer are optional. With RejectEmpty a
// build that produced no documents is not published.
type Pipeline struct {
	Builder     *Builder
	Writer      *segment.Writer
	Manifest    ManifestRecorder
	Announcer   Announcer
	RejectEmpty bool
}

// Outcome is what Run produced.
type Outcome struct {
	Report     *Report
	Path       string
	Checksum   uint32
	ManifestID int64
}

// Run performs one full build. A failed build leaves any previously
// published file untouched. Once the file is in place, failures to record or
// announce it are logged but do not fail the run.
func (p *Pipeline) Run(ctx context.Context, src source.Source) (*Outcome, error) {
	logger := slog.Default().With("component", "index-pipeline", "source", src.Name())

	idx, report, err := p.Builder.Build(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("building index: %w", err)
	}
	if p.RejectEmpty && report.Documents == 0 {
		return nil, fmt.Errorf("%w: %s produced no documents, keeping the previous index", apperrors.ErrInvalidInput, src.Name())
	}
	sum, err := p.Writer.Write(ctx, idx)
	if err != nil {
		return nil, fmt.Errorf("writing index: %w", err)
	}
	out := &Outcome{Report: report, Path: p.Writer.Path(), Checksum: sum}
	meta := idx.Meta()
	logger.Info("index published",
		"path", out.Path,
		"checksum", fmt.Sprintf("%08x", sum),
		"documents", report.Documents,
		"terms", report.Terms,
	)

	if p.Manifest != nil {
		id, err := p.Manifest.Record(ctx, manifest.Build{
			Path:      out.Path,
			Checksum:  sum,
			Source:    report.Source,
			Analyzer:  meta.Analyzer,
			TFScheme:  string(meta.TFScheme),
			Documents: report.Documents,
			Terms:     report.Terms,
			Postings:  report.Postings,
			Skipped:   report.Skipped,
			Duration:  report.Duration,
		})
		if err != nil {
			logger.Error("recording build manifest failed", "error", err)
		} else {
			out.ManifestID = id
		}
	}

	if p.Announcer != nil {
		event := analytics.IndexEvent{
			Type:       analytics.EventIndexComplete,
			Path:       out.Path,
			Checksum:   sum,
			Documents:  report.Documents,
			Terms:      report.Terms,
			Skipped:    report.Skipped,
			Analyzer:   meta.Analyzer,
			TFScheme:   string(meta.TFScheme),
			DurationMs: report.Duration.Milliseconds(),
			Timestamp:  time.Now().UTC(),
		}
		if err := p.Announcer.Publish(ctx, kafka.Event{Key: out.Path, Value: event}); err != nil {
			logger.Error("announcing index failed", "error", err)
		}
	}
	return out, nil
}
