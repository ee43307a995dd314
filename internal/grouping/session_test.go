package grouping

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cratestack/cratestack-server/internal/domain"
	"github.com/cratestack/cratestack-server/internal/errors"
	"github.com/cratestack/cratestack-server/internal/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Writer: io.Discard, Level: slog.LevelError})
}

func release(id, artist, album, productType string) *domain.Record {
	return &domain.Record{
		ID:          id,
		Title:       artist + " - " + album,
		ProductType: productType,
		Artist:      artist,
		AlbumTitle:  album,
	}
}

func startedSession(t *testing.T) *Session {
	t.Helper()
	s := NewSession(testLogger())
	require.NoError(t, s.Start())
	return s
}

func TestSessionGroupsCopiesOfSameRelease(t *testing.T) {
	s := startedSession(t)

	items, err := s.ProcessBatch([]*domain.Record{
		release("1", "Pink Floyd", "The Wall", "LP"),
		release("2", "Pink Floyd", "The Wall", "2xLP"),
	})
	require.NoError(t, err)

	require.Len(t, items, 1)
	item := items[0]
	assert.Equal(t, domain.KindGroup, item.Kind)
	assert.Equal(t, domain.FormatLP, item.Group.Format)
	assert.Equal(t, 2, item.Group.Size())
	assert.Equal(t, "1", item.Group.Main.ID)
}

func TestSessionMissingAlbumTitleAlwaysSingle(t *testing.T) {
	s := startedSession(t)

	noAlbum := release("1", "Pink Floyd", "", "LP")
	items, err := s.ProcessBatch([]*domain.Record{
		noAlbum,
		release("2", "Pink Floyd", "The Wall", "LP"),
	})
	require.NoError(t, err)

	require.Len(t, items, 1)
	assert.Equal(t, domain.KindSingle, items[0].Kind)
	assert.Equal(t, "1", items[0].Record.ID)

	// The groupable record is held back as a candidate, not paired
	// with the attribute-less one.
	final, err := s.Finalize()
	require.NoError(t, err)
	require.Len(t, final, 1)
	assert.Equal(t, domain.KindSingle, final[0].Kind)
	assert.Equal(t, "2", final[0].Record.ID)
}

func TestSessionCrossBatchGroupDiscovery(t *testing.T) {
	s := startedSession(t)

	items, err := s.ProcessBatch([]*domain.Record{
		release("a", "Nina Simone", "Baltimore", "LP"),
	})
	require.NoError(t, err)
	assert.Empty(t, items, "lone key is held back, not emitted")

	items, err = s.ProcessBatch([]*domain.Record{
		release("b", "Nina Simone", "Baltimore", "LP Vinyl"),
	})
	require.NoError(t, err)

	require.Len(t, items, 1)
	assert.Equal(t, domain.KindGroup, items[0].Kind)
	assert.Equal(t, "a", items[0].Group.Main.ID)
	assert.Equal(t, 2, items[0].Group.Size())
	assert.Equal(t, 0, items[0].OriginalIndex, "group sits at its earliest member's position")

	final, err := s.Finalize()
	require.NoError(t, err)
	assert.Empty(t, final)
}

func TestSessionLateJoinDoesNotReEmit(t *testing.T) {
	s := startedSession(t)

	items, err := s.ProcessBatch([]*domain.Record{
		release("1", "Can", "Tago Mago", "LP"),
		release("2", "Can", "Tago Mago", "LP"),
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Group.Size())

	items, err = s.ProcessBatch([]*domain.Record{
		release("3", "Can", "Tago Mago", "LP"),
	})
	require.NoError(t, err)
	assert.Empty(t, items, "late join folds in silently")

	// Membership grew for bookkeeping even though no new item was
	// produced and the on-screen count stays frozen.
	assert.Equal(t, 3, s.Seen())
	assert.Equal(t, 3, s.RenderedCount())

	final, err := s.Finalize()
	require.NoError(t, err)
	assert.Empty(t, final)
}

func TestSessionEachRecordRenderedAtMostOnce(t *testing.T) {
	s := startedSession(t)

	batch := []*domain.Record{
		release("1", "Low", "Things We Lost in the Fire", "LP"),
		release("2", "Low", "Things We Lost in the Fire", "LP"),
		release("3", "Slint", "Spiderland", "LP"),
		release("4", "Slint", "Spiderland", "CD"),
	}

	seen := map[string]int{}
	collect := func(items []*domain.RenderItem) {
		for _, it := range items {
			switch it.Kind {
			case domain.KindSingle:
				seen[it.Record.ID]++
			case domain.KindGroup:
				seen[it.Group.Main.ID]++
				for _, m := range it.Group.Members {
					seen[m.ID]++
				}
			}
		}
	}

	items, err := s.ProcessBatch(batch)
	require.NoError(t, err)
	collect(items)

	// Replaying the same batch must produce nothing new.
	items, err = s.ProcessBatch(batch)
	require.NoError(t, err)
	assert.Empty(t, items)

	final, err := s.Finalize()
	require.NoError(t, err)
	collect(final)

	require.Len(t, seen, 4)
	for id, n := range seen {
		assert.Equal(t, 1, n, "record %s rendered once", id)
	}
}

func TestSessionBatchItemsOrderedByFetchPosition(t *testing.T) {
	s := startedSession(t)

	items, err := s.ProcessBatch([]*domain.Record{
		release("1", "Neu", "Neu 75", "LP"),
		release("2", "Faust", "IV", "LP"),
		release("3", "Neu", "Neu 75", "LP"),
		release("4", "Faust", "IV", "LP"),
	})
	require.NoError(t, err)

	require.Len(t, items, 2)
	assert.Equal(t, 0, items[0].OriginalIndex)
	assert.Equal(t, 1, items[1].OriginalIndex)
	prev := -1
	for _, it := range items {
		assert.Greater(t, it.OriginalIndex, prev)
		prev = it.OriginalIndex
	}
}

func TestSessionIdempotentAcrossFreshSessions(t *testing.T) {
	batches := [][]*domain.Record{
		{
			release("1", "Sault", "Untitled", "LP"),
			release("2", "Sault", "Untitled", "LP"),
			release("3", "Cleo Sol", "Mother", "LP"),
		},
		{
			release("4", "Cleo Sol", "Mother", "2xLP"),
			release("5", "Little Simz", "No Thank You", "LP"),
		},
	}

	run := func() []string {
		s := NewSession(testLogger())
		require.NoError(t, s.Start())
		var out []string
		for _, b := range batches {
			items, err := s.ProcessBatch(b)
			require.NoError(t, err)
			for _, it := range items {
				out = append(out, it.ID())
			}
		}
		final, err := s.Finalize()
		require.NoError(t, err)
		for _, it := range final {
			out = append(out, it.ID())
		}
		return out
	}

	first := run()
	for range 3 {
		assert.Equal(t, first, run())
	}
}

func TestSessionStateMachine(t *testing.T) {
	s := NewSession(testLogger())
	assert.Equal(t, StateIdle, s.State())

	_, err := s.ProcessBatch(nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrGroupInvariant))

	require.NoError(t, s.Start())
	assert.Equal(t, StateFetching, s.State())

	require.NoError(t, s.BeginRender())
	assert.Equal(t, StateRendering, s.State())
	require.NoError(t, s.EndRender())
	require.NoError(t, s.Finish())
	assert.Equal(t, StateComplete, s.State())

	assert.Error(t, s.Start(), "complete sessions never restart")
}

func TestSessionInterrupt(t *testing.T) {
	s := startedSession(t)
	s.Interrupt()
	assert.Equal(t, StateInterrupted, s.State())

	_, err := s.ProcessBatch([]*domain.Record{release("1", "a", "b", "LP")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrGroupInvariant))

	done := NewSession(testLogger())
	done.Interrupt()
	assert.Equal(t, StateIdle, done.State(), "idle sessions ignore interrupts")
}

func TestSessionGroupCountsAvailability(t *testing.T) {
	s := startedSession(t)

	a := release("1", "Arthur Russell", "World of Echo", "LP")
	a.Variants = []domain.Variant{{ID: "v1", AvailableForSale: true}}
	b := release("2", "Arthur Russell", "World of Echo", "LP")
	b.Variants = []domain.Variant{{ID: "v2", AvailableForSale: true}}

	items, err := s.ProcessBatch([]*domain.Record{a, b})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].CopyCount())
}
