package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/catalog/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/catalog/internal/indexer/manifest"
	"github.com/Adithya-Monish-Kumar-K/catalog/internal/indexer/segment"
	apperrors "github.com/Adithya-Monish-Kumar-K/catalog/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/catalog/pkg/kafka"
)

type fakeManifest struct {
	builds []manifest.Build
	err    error
}

func (f *fakeManifest) Record(ctx context.Context, b manifest.Build) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.builds = append(f.builds, b)
	return int64(len(f.builds)), nil
}

type fakeAnnouncer struct {
	events []kafka.Event
	err    error
}

func (f *fakeAnnouncer) Publish(ctx context.Context, e kafka.Event) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, e)
	return nil
}

func TestPipelineRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.cidx")
	man := &fakeManifest{}
	ann := &fakeAnnouncer{}
	p := &Pipeline{
		Builder:   newBuilder(t, Options{Workers: 2}),
		Writer:    segment.NewWriter(path),
		Manifest:  man,
		Announcer: ann,
	}

	out, err := p.Run(context.Background(), jsonl(foxCorpus))
	require.NoError(t, err)
	assert.Equal(t, path, out.Path)
	assert.Equal(t, int64(1), out.ManifestID)
	assert.Equal(t, 3, out.Report.Documents)

	loaded, err := segment.Load(path)
	require.NoError(t, err)
	assert.Equal(t, out.Checksum, loaded.Meta().Checksum)

	require.Len(t, man.builds, 1)
	assert.Equal(t, out.Checksum, man.builds[0].Checksum)
	assert.Equal(t, "snowball", man.builds[0].Analyzer)
	assert.Equal(t, "raw", man.builds[0].TFScheme)

	require.Len(t, ann.events, 1)
	event, ok := ann.events[0].Value.(analytics.IndexEvent)
	require.True(t, ok)
	assert.Equal(t, analytics.EventIndexComplete, event.Type)
	assert.Equal(t, out.Checksum, event.Checksum)
	assert.Equal(t, 5, event.Terms)
}

func TestPipelineSurvivesSideEffectFailures(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.cidx")
	p := &Pipeline{
		Builder:   newBuilder(t, Options{Workers: 1}),
		Writer:    segment.NewWriter(path),
		Manifest:  &fakeManifest{err: errors.New("db down")},
		Announcer: &fakeAnnouncer{err: errors.New("broker down")},
	}
	out, err := p.Run(context.Background(), jsonl(foxCorpus))
	require.NoError(t, err)
	assert.Zero(t, out.ManifestID)
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestFailedBuildKeepsPreviousFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.cidx")
	good := &Pipeline{Builder: newBuilder(t, Options{Workers: 1}), Writer: segment.NewWriter(path)}
	first, err := good.Run(context.Background(), jsonl(foxCorpus))
	require.NoError(t, err)

	strict := &Pipeline{Builder: newBuilder(t, Options{Workers: 1}), Writer: segment.NewWriter(path)}
	strict.Builder.opts.MaxSkipped = 0
	_, err = strict.Run(context.Background(), jsonl(foxCorpus+"not json\n"))
	require.Error(t, err)

	info, err := segment.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, first.Checksum, info.Checksum)
}

func TestRejectEmptyKeepsPreviousFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.cidx")
	first, err := (&Pipeline{Builder: newBuilder(t, Options{Workers: 1}), Writer: segment.NewWriter(path)}).
		Run(context.Background(), jsonl(foxCorpus))
	require.NoError(t, err)

	ann := &fakeAnnouncer{}
	p := &Pipeline{
		Builder:     newBuilder(t, Options{Workers: 1}),
		Writer:      segment.NewWriter(path),
		Announcer:   ann,
		RejectEmpty: true,
	}
	_, err = p.Run(context.Background(), jsonl(""))
	require.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Empty(t, ann.events)

	info, err := segment.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, first.Checksum, info.Checksum)
}
