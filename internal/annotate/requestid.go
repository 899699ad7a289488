package annotate

import (
	"sync"

	"github.com/google/uuid"
)

// RequestIDGenerator produces the X-Request-ID sent with each annotation call.
type RequestIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 request IDs.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// SequenceGenerator returns predetermined request IDs for tests, repeating
// the last one once the sequence is exhausted.
//
// Thread-safety: safe for concurrent use via internal mutex.
type SequenceGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewSequenceGenerator creates a generator that returns ids in order.
// With no ids it always returns "request-default".
func NewSequenceGenerator(ids ...string) *SequenceGenerator {
	if len(ids) == 0 {
		ids = []string{"request-default"}
	}
	return &SequenceGenerator{ids: ids}
}

// Generate returns the next predetermined id.
func (g *SequenceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := g.ids[g.idx]
	if g.idx < len(g.ids)-1 {
		g.idx++
	}
	return id
}
