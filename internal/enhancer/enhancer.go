// Package enhancer drives the enhancement pipeline end to end: fetch
// pages, filter and rank in search mode, group incrementally, render
// progressively. One run is active at a time; a filter change
// supersedes the active run cooperatively through a generation counter.
package enhancer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cratestack/cratestack-server/internal/catalog"
	"github.com/cratestack/cratestack-server/internal/config"
	"github.com/cratestack/cratestack-server/internal/domain"
	"github.com/cratestack/cratestack-server/internal/errors"
	"github.com/cratestack/cratestack-server/internal/facet"
	"github.com/cratestack/cratestack-server/internal/grouping"
	"github.com/cratestack/cratestack-server/internal/logger"
	"github.com/cratestack/cratestack-server/internal/rank"
	"github.com/cratestack/cratestack-server/internal/render"
)

// Source fetches catalog pages. Satisfied by catalog.Client.
type Source interface {
	FetchPage(ctx context.Context, req catalog.PageRequest) (*catalog.Page, error)
}

// Sink is where the run materializes its results. Hide marks the
// current content stale before a replacement run starts.
type Sink interface {
	render.ResultsSink
	Hide()
	Reveal()
}

// Announcer receives user-facing status signals. Failures inside an
// announcer never abort the run.
type Announcer interface {
	AnnounceLoading(msg string)
	AnnounceSuccess(msg string)
	AnnounceError(msg string)
}

// Metrics is a fire-and-forget telemetry sink.
type Metrics interface {
	RecordMetric(name string, value float64)
}

// Request describes one enhancement run.
type Request struct {
	Mode   catalog.Mode
	Handle string // collection handle, collection mode only
	Query  string // search terms, search mode only
	Facets facet.Params
}

// RunStats summarizes a completed or partially completed run.
type RunStats struct {
	RecordsFetched int           `json:"records_fetched"`
	Pages          int           `json:"pages"`
	Rendered       int           `json:"rendered"`
	Partial        bool          `json:"partial"`
	Duration       time.Duration `json:"duration"`
}

// Enhancer owns the run lifecycle.
type Enhancer struct {
	source   Source
	renderer *render.Renderer
	ranker   *rank.Ranker
	cfg      config.EnhancerConfig
	announce Announcer
	metrics  Metrics
	log      *logger.Logger

	enhancing  atomic.Bool
	generation atomic.Int64

	debounceMu sync.Mutex
	debounce   *time.Timer
	pending    *pendingRun
}

type pendingRun struct {
	req  Request
	sink Sink
}

// New creates an enhancer. Announcer and metrics may be nil.
func New(source Source, renderer *render.Renderer, ranker *rank.Ranker, cfg config.EnhancerConfig, announce Announcer, metrics Metrics, log *logger.Logger) *Enhancer {
	return &Enhancer{
		source:   source,
		renderer: renderer,
		ranker:   ranker,
		cfg:      cfg,
		announce: announce,
		metrics:  metrics,
		log:      log,
	}
}

// Enhance runs one full enhancement into the sink. Only one run may be
// active; a second concurrent call fails with an interruption error
// unless it arrived through FilterChanged, which releases the guard
// first. A transient fetch failure mid-pagination keeps and renders
// what was already fetched. An auth failure or a failure before any
// page succeeded aborts the run so the caller can fall back to its
// pre-rendered content.
func (e *Enhancer) Enhance(ctx context.Context, req Request, sink Sink) (*RunStats, error) {
	if !e.enhancing.CompareAndSwap(false, true) {
		return nil, errors.Interrupted("enhancement already in progress")
	}
	gen := e.generation.Add(1)
	defer func() {
		if e.generation.Load() == gen {
			e.enhancing.Store(false)
		}
	}()

	started := time.Now()
	e.announceLoading("Loading results")
	sink.Clear()

	stats, err := e.run(ctx, gen, req, sink)
	if stats != nil {
		stats.Duration = time.Since(started)
	}
	if err != nil {
		e.announceError("Could not load results")
		e.recordMetric("enhance.failed", 1)
		return stats, err
	}

	sink.Reveal()
	e.announceSuccess(fmt.Sprintf("Loaded %d results", stats.Rendered))
	e.recordMetric("enhance.records_fetched", float64(stats.RecordsFetched))
	e.recordMetric("enhance.rendered", float64(stats.Rendered))
	e.recordMetric("enhance.duration_ms", float64(stats.Duration.Milliseconds()))
	return stats, nil
}

// FilterChanged supersedes the active run for a changed facet
// selection. The sink is hidden immediately so stale content never
// flashes; the new run starts after the debounce window, and rapid
// successive signals collapse into one run for the latest request.
func (e *Enhancer) FilterChanged(req Request, sink Sink) {
	sink.Hide()
	e.generation.Add(1)
	e.enhancing.Store(false)

	e.debounceMu.Lock()
	defer e.debounceMu.Unlock()

	e.pending = &pendingRun{req: req, sink: sink}
	if e.debounce != nil {
		e.debounce.Stop()
	}
	e.debounce = time.AfterFunc(e.cfg.FilterDebounce, e.runPending)
}

func (e *Enhancer) runPending() {
	e.debounceMu.Lock()
	p := e.pending
	e.pending = nil
	e.debounceMu.Unlock()
	if p == nil {
		return
	}
	if _, err := e.Enhance(context.Background(), p.req, p.sink); err != nil {
		e.log.WithError(err).Warn("debounced enhancement run failed")
	}
}

func (e *Enhancer) run(ctx context.Context, gen int64, req Request, sink Sink) (*RunStats, error) {
	stats := &RunStats{}

	session := grouping.NewSession(e.log)
	if err := session.Start(); err != nil {
		return stats, err
	}

	var (
		filters   []catalog.Filter
		predicate func(*domain.Record) bool
	)
	if req.Mode == catalog.ModeSearch {
		// The search endpoint takes no structured filters.
		predicate = req.Facets.Predicate()
	} else {
		filters = req.Facets.CatalogFilters()
	}

	cursor := ""
	firstPaint := true

	for {
		if err := e.checkCurrent(ctx, gen); err != nil {
			return stats, err
		}

		page, err := e.source.FetchPage(ctx, catalog.PageRequest{
			Mode:     req.Mode,
			Query:    e.queryFor(req),
			Filters:  filters,
			Cursor:   cursor,
			PageSize: e.cfg.PageSize,
		})
		if err != nil {
			if errors.Is(err, errors.ErrAuth) || stats.Pages == 0 {
				return stats, err
			}
			// Partial results beat none. Stop fetching, keep what we have.
			e.log.WithError(err).Warn("fetch failed mid-pagination, rendering partial results",
				"pages_fetched", stats.Pages)
			stats.Partial = true
			break
		}
		stats.Pages++

		records := page.Records
		if req.Mode == catalog.ModeSearch {
			records = filterRecords(records, predicate)
			records = e.ranker.Rank(records, req.Query)
		}
		stats.RecordsFetched += len(records)

		items, err := session.ProcessBatch(records)
		if err != nil {
			return stats, err
		}
		n, err := e.renderItems(ctx, gen, session, sink, items, firstPaint)
		stats.Rendered += n
		if err != nil {
			return stats, err
		}
		if len(items) > 0 {
			firstPaint = false
		}

		if !page.HasNextPage || stats.RecordsFetched >= e.cfg.MaxProductsPerRun {
			break
		}
		cursor = page.EndCursor

		if err := e.interPageDelay(ctx); err != nil {
			return stats, err
		}
	}

	leftovers, err := session.Finalize()
	if err != nil {
		return stats, err
	}
	n, err := e.renderItems(ctx, gen, session, sink, leftovers, firstPaint)
	stats.Rendered += n
	if err != nil {
		return stats, err
	}

	if err := session.Finish(); err != nil {
		return stats, err
	}

	if session.Seen() > 0 && sink.Count() == 0 {
		// Every fetched record should have produced some card.
		e.log.WithError(errors.GroupInvariantf("%d records seen but nothing rendered", session.Seen())).
			Error("grouping invariant violated")
	}
	return stats, nil
}

func (e *Enhancer) renderItems(ctx context.Context, gen int64, session *grouping.Session, sink Sink, items []*domain.RenderItem, firstPaint bool) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	if err := e.checkCurrent(ctx, gen); err != nil {
		return 0, err
	}
	if err := session.BeginRender(); err != nil {
		return 0, err
	}
	n, err := e.renderer.Render(ctx, sink, items, firstPaint)
	if err != nil {
		session.Interrupt()
		return n, err
	}
	return n, session.EndRender()
}

// checkCurrent detects both context cancellation and supersession by a
// newer run. A superseded run stops appending and discards its state.
func (e *Enhancer) checkCurrent(ctx context.Context, gen int64) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, errors.CodeInterrupted, "run cancelled")
	}
	if e.generation.Load() != gen {
		return errors.Interrupted("run superseded by a newer request")
	}
	return nil
}

func (e *Enhancer) interPageDelay(ctx context.Context) error {
	if e.cfg.PageFetchDelay <= 0 {
		return nil
	}
	t := time.NewTimer(e.cfg.PageFetchDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), errors.CodeInterrupted, "run cancelled")
	case <-t.C:
		return nil
	}
}

func (e *Enhancer) queryFor(req Request) string {
	if req.Mode == catalog.ModeSearch {
		return req.Query
	}
	return req.Handle
}

func filterRecords(records []*domain.Record, keep func(*domain.Record) bool) []*domain.Record {
	if keep == nil {
		return records
	}
	out := records[:0:0]
	for _, r := range records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// The announcer and metrics collaborators are fire-and-forget; a panic
// or failure inside them never aborts the pipeline.

func (e *Enhancer) announceLoading(msg string) {
	e.safely(func() { e.announce.AnnounceLoading(msg) }, e.announce == nil)
}

func (e *Enhancer) announceSuccess(msg string) {
	e.safely(func() { e.announce.AnnounceSuccess(msg) }, e.announce == nil)
}

func (e *Enhancer) announceError(msg string) {
	e.safely(func() { e.announce.AnnounceError(msg) }, e.announce == nil)
}

func (e *Enhancer) recordMetric(name string, value float64) {
	e.safely(func() { e.metrics.RecordMetric(name, value) }, e.metrics == nil)
}

func (e *Enhancer) safely(fn func(), skip bool) {
	if skip {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.log.Warn("status sink panicked", "panic", r)
		}
	}()
	fn()
}
