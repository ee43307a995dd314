// Package grouping implements the incremental release-clustering
// engine. A Session consumes batches of fetched records and partitions
// them into release groups (two or more copies of the same release)
// and singles, tracking rendered state so every record is materialized
// at most once even when siblings arrive in later batches.
package grouping

import (
	"fmt"
	"slices"

	"github.com/cratestack/cratestack-server/internal/domain"
	"github.com/cratestack/cratestack-server/internal/errors"
	"github.com/cratestack/cratestack-server/internal/logger"
)

// State is the session lifecycle phase.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateGrouping
	StateRendering
	StateComplete
	StateInterrupted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateGrouping:
		return "grouping"
	case StateRendering:
		return "rendering"
	case StateComplete:
		return "complete"
	case StateInterrupted:
		return "interrupted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var validTransitions = map[State][]State{
	StateIdle:      {StateFetching},
	StateFetching:  {StateGrouping, StateRendering, StateComplete, StateInterrupted},
	StateGrouping:  {StateFetching, StateRendering, StateInterrupted},
	StateRendering: {StateFetching, StateComplete, StateInterrupted},
}

// Session holds the per-run clustering state. It is not safe for
// concurrent use; one run owns one session. A new run always starts
// from a fresh session, there is no cross-run diffing.
type Session struct {
	state    State
	groups   map[domain.ReleaseKey]*domain.ReleaseGroup
	records  map[string]*domain.Record
	rendered map[string]struct{}
	order    map[string]int
	next     int
	log      *logger.Logger
}

// NewSession creates an idle session.
func NewSession(log *logger.Logger) *Session {
	return &Session{
		state:    StateIdle,
		groups:   make(map[domain.ReleaseKey]*domain.ReleaseGroup),
		records:  make(map[string]*domain.Record),
		rendered: make(map[string]struct{}),
		order:    make(map[string]int),
		log:      log,
	}
}

// State returns the current lifecycle phase.
func (s *Session) State() State { return s.state }

// Seen returns the number of distinct records observed so far.
func (s *Session) Seen() int { return len(s.records) }

// RenderedCount returns the number of records already materialized.
func (s *Session) RenderedCount() int { return len(s.rendered) }

// Start moves the session from idle to fetching.
func (s *Session) Start() error { return s.transition(StateFetching) }

// BeginRender marks the session as handing items to the renderer.
func (s *Session) BeginRender() error { return s.transition(StateRendering) }

// EndRender returns the session to fetching after a render pass.
func (s *Session) EndRender() error { return s.transition(StateFetching) }

// Finish marks the session complete.
func (s *Session) Finish() error { return s.transition(StateComplete) }

// Interrupt abandons the session. Valid from any active state; the
// caller discards the session and starts a fresh one.
func (s *Session) Interrupt() {
	if s.state == StateIdle || s.state == StateComplete {
		return
	}
	s.state = StateInterrupted
}

func (s *Session) transition(to State) error {
	if slices.Contains(validTransitions[s.state], to) {
		s.state = to
		return nil
	}
	return errors.GroupInvariantf("illegal session transition %s -> %s", s.state, to)
}

// ProcessBatch folds one page of newly fetched records into the
// session and returns the render items the batch produced, sorted by
// original fetch position. Records whose release key matches a record
// from an earlier batch form a group retroactively; the earlier record
// is pulled into the group as long as it has not been rendered yet.
// Records with a release key but no sibling so far are held back as
// single candidates until Finalize.
func (s *Session) ProcessBatch(batch []*domain.Record) ([]*domain.RenderItem, error) {
	if s.state != StateFetching && s.state != StateGrouping {
		return nil, errors.GroupInvariantf("batch processed in state %s", s.state)
	}
	s.state = StateGrouping
	defer func() {
		if s.state == StateGrouping {
			s.state = StateFetching
		}
	}()

	var items []*domain.RenderItem

	for _, rec := range batch {
		if _, done := s.rendered[rec.ID]; done {
			continue
		}
		s.observe(rec)

		key, ok := domain.KeyFor(rec)
		if !ok {
			// Ungroupable records render as singles right away.
			items = append(items, s.emitSingle(rec))
			continue
		}

		group, exists := s.groups[key]
		switch {
		case !exists:
			members := s.unrenderedByKey(key)
			if len(members) < 2 {
				continue
			}
			group, err := s.createGroup(key, members)
			if err != nil {
				return nil, err
			}
			items = append(items, s.emitGroup(group))

		case s.isRendered(group.Main.ID):
			// The copies card is already on screen; fold the late
			// arrival in for bookkeeping. The displayed count stays
			// frozen at what it was when the card rendered.
			group.Members = append(group.Members, rec)
			s.markRendered(rec.ID)
			s.log.Debug("late join folded into rendered group",
				"key", string(key), "record_id", rec.ID, "group_size", group.Size())

		default:
			group.Members = append(group.Members, rec)
			items = append(items, s.emitGroup(group))
		}
	}

	sortByOriginalIndex(items)
	return items, nil
}

// Finalize flushes every record that never found a sibling as a
// single. Call once, after the last batch.
func (s *Session) Finalize() ([]*domain.RenderItem, error) {
	if s.state != StateFetching && s.state != StateGrouping {
		return nil, errors.GroupInvariantf("finalize in state %s", s.state)
	}

	var items []*domain.RenderItem
	for id, rec := range s.records {
		if _, done := s.rendered[id]; done {
			continue
		}
		items = append(items, s.emitSingle(rec))
	}

	sortByOriginalIndex(items)
	return items, nil
}

// observe registers a record and assigns its fetch position once.
func (s *Session) observe(rec *domain.Record) {
	if _, seen := s.records[rec.ID]; seen {
		return
	}
	s.records[rec.ID] = rec
	s.order[rec.ID] = s.next
	s.next++
}

// unrenderedByKey returns every unrendered record sharing the key, in
// fetch order.
func (s *Session) unrenderedByKey(key domain.ReleaseKey) []*domain.Record {
	var out []*domain.Record
	for id, rec := range s.records {
		if _, done := s.rendered[id]; done {
			continue
		}
		if k, ok := domain.KeyFor(rec); ok && k == key {
			out = append(out, rec)
		}
	}
	slices.SortFunc(out, func(a, b *domain.Record) int {
		return s.order[a.ID] - s.order[b.ID]
	})
	return out
}

func (s *Session) createGroup(key domain.ReleaseKey, members []*domain.Record) (*domain.ReleaseGroup, error) {
	if len(members) < 2 {
		return nil, errors.GroupInvariantf("group %q created with %d members", key, len(members))
	}
	group := &domain.ReleaseGroup{
		Key:     key,
		Main:    members[0],
		Members: members[1:],
		Format:  domain.DeriveFormat(members[0].ProductType),
	}
	s.groups[key] = group
	return group, nil
}

func (s *Session) emitSingle(rec *domain.Record) *domain.RenderItem {
	s.markRendered(rec.ID)
	return &domain.RenderItem{
		Kind:          domain.KindSingle,
		Record:        rec,
		OriginalIndex: s.order[rec.ID],
	}
}

// emitGroup marks every current member rendered and produces the group
// item, positioned at its earliest member's fetch position.
func (s *Session) emitGroup(group *domain.ReleaseGroup) *domain.RenderItem {
	s.markRendered(group.Main.ID)
	for _, m := range group.Members {
		s.markRendered(m.ID)
	}
	return &domain.RenderItem{
		Kind:          domain.KindGroup,
		Group:         group,
		OriginalIndex: s.order[group.Main.ID],
	}
}

func (s *Session) isRendered(id string) bool {
	_, ok := s.rendered[id]
	return ok
}

func (s *Session) markRendered(id string) {
	s.rendered[id] = struct{}{}
}

func sortByOriginalIndex(items []*domain.RenderItem) {
	slices.SortFunc(items, func(a, b *domain.RenderItem) int {
		return a.OriginalIndex - b.OriginalIndex
	})
}
