// Package render materializes grouped results into display cards in
// bounded batches. Card production within a chunk runs concurrently,
// but chunks are appended to the sink in computed order as a single
// batched mutation, so presentation order never depends on completion
// order.
package render

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cratestack/cratestack-server/internal/domain"
	"github.com/cratestack/cratestack-server/internal/errors"
	"github.com/cratestack/cratestack-server/internal/logger"
)

// Card is one self-contained rendered result fragment.
type Card struct {
	ItemID string            `json:"item_id"`
	Kind   domain.RenderKind `json:"kind"`
	HTML   string            `json:"html"`
}

// CardRenderer turns one render item into a card. Implementations must
// be deterministic for identical inputs.
type CardRenderer interface {
	RenderCard(ctx context.Context, item *domain.RenderItem) (*Card, error)
}

// ResultsSink receives rendered cards. Only the renderer and the
// orchestrator touch the sink; grouping and ranking never do.
type ResultsSink interface {
	Clear()
	AppendBatch(cards []*Card)
	Count() int
}

// Options bounds the renderer's batching behavior.
type Options struct {
	// InitialBatch is the chunk size for the first paint.
	InitialBatch int
	// SteadyBatch is the chunk size after the first paint.
	SteadyBatch int
	// Concurrency caps in-flight card renders within one chunk.
	Concurrency int
	// ChunkDelay is the pause between chunk appends.
	ChunkDelay time.Duration
}

const (
	defaultInitialBatch = 50
	defaultSteadyBatch  = 25
	defaultConcurrency  = 20
	defaultChunkDelay   = 10 * time.Millisecond
)

func (o Options) withDefaults() Options {
	if o.InitialBatch <= 0 {
		o.InitialBatch = defaultInitialBatch
	}
	if o.SteadyBatch <= 0 {
		o.SteadyBatch = defaultSteadyBatch
	}
	if o.Concurrency <= 0 {
		o.Concurrency = defaultConcurrency
	}
	if o.ChunkDelay <= 0 {
		o.ChunkDelay = defaultChunkDelay
	}
	return o
}

// Renderer drives batched card materialization. It is stateless across
// calls; the caller decides whether a call is the first paint.
type Renderer struct {
	cards CardRenderer
	opts  Options
	log   *logger.Logger
}

// New creates a renderer around the given card producer.
func New(cards CardRenderer, opts Options, log *logger.Logger) *Renderer {
	return &Renderer{cards: cards, opts: opts.withDefaults(), log: log}
}

// Render materializes items into the sink in chunks. A failed single
// card is logged and skipped, never fatal to the batch. Returns the
// number of cards successfully appended. Context cancellation stops
// between chunks and surfaces as an interruption error.
func (r *Renderer) Render(ctx context.Context, sink ResultsSink, items []*domain.RenderItem, firstPaint bool) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	chunkSize := r.opts.SteadyBatch
	if firstPaint {
		chunkSize = r.opts.InitialBatch
	}

	var appended int
	for start := 0; start < len(items); start += chunkSize {
		if err := ctx.Err(); err != nil {
			return appended, errors.Wrap(err, errors.CodeInterrupted, "render interrupted")
		}

		end := min(start+chunkSize, len(items))
		cards := r.renderChunk(ctx, items[start:end])
		if len(cards) > 0 {
			sink.AppendBatch(cards)
			appended += len(cards)
		}

		if end < len(items) {
			if err := r.yield(ctx); err != nil {
				return appended, err
			}
		}
	}
	return appended, nil
}

// renderChunk renders one chunk concurrently and returns the surviving
// cards in item order. Failures leave holes that are compacted away.
func (r *Renderer) renderChunk(ctx context.Context, chunk []*domain.RenderItem) []*Card {
	results := make([]*Card, len(chunk))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Concurrency)
	for i, item := range chunk {
		g.Go(func() error {
			card, err := r.cards.RenderCard(gctx, item)
			if err != nil {
				r.log.WithError(errors.Wrap(err, errors.CodeRenderItem, "card render failed")).
					Warn("skipping item", "item_id", item.ID())
				return nil
			}
			results[i] = card
			return nil
		})
	}
	_ = g.Wait()

	cards := make([]*Card, 0, len(results))
	for _, c := range results {
		if c != nil {
			cards = append(cards, c)
		}
	}
	return cards
}

func (r *Renderer) yield(ctx context.Context) error {
	t := time.NewTimer(r.opts.ChunkDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), errors.CodeInterrupted, "render interrupted")
	case <-t.C:
		return nil
	}
}
