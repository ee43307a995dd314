package render

import "sync"

// MemorySink accumulates rendered cards in order. It backs the HTTP
// response assembly and is safe for concurrent use, though the
// renderer appends from a single goroutine.
type MemorySink struct {
	mu     sync.Mutex
	cards  []*Card
	hidden bool
}

// NewMemorySink creates an empty sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Clear discards all accumulated cards.
func (s *MemorySink) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cards = nil
}

// AppendBatch adds a chunk of cards as one mutation.
func (s *MemorySink) AppendBatch(cards []*Card) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cards = append(s.cards, cards...)
}

// Count returns the number of accumulated cards.
func (s *MemorySink) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cards)
}

// Cards returns a snapshot of the accumulated cards in append order.
func (s *MemorySink) Cards() []*Card {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Card, len(s.cards))
	copy(out, s.cards)
	return out
}

// Hide marks the sink's content as stale, so a consumer can stop
// presenting it before the replacement run produces anything.
func (s *MemorySink) Hide() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hidden = true
}

// Reveal clears the stale marker.
func (s *MemorySink) Reveal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hidden = false
}

// Hidden reports whether the sink is currently marked stale.
func (s *MemorySink) Hidden() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hidden
}
