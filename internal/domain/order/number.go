package order

import (
	"fmt"
	"sync/atomic"
	"time"
)

// NumberGenerator issues order and tracking numbers. A single atomic counter
// seeded from the wall clock keeps suffixes unique within a process even
// under burst creation; cross-process collisions are caught by the orders
// table unique constraint and retried by the service.
type NumberGenerator struct {
	counter atomic.Uint64
}

// NewNumberGenerator returns a generator seeded from now.
func NewNumberGenerator(now time.Time) *NumberGenerator {
	g := &NumberGenerator{}
	g.counter.Store(uint64(now.UnixMilli()))
	return g
}

// OrderNumber returns a human-facing order number in the form
// ORD-<year>-<6 digits>.
func (g *NumberGenerator) OrderNumber(now time.Time) string {
	n := g.counter.Add(1)
	return fmt.Sprintf("ORD-%d-%06d", now.Year(), n%1_000_000)
}

// TrackingNumber returns a carrier-style tracking number in the form
// TRK<9 digits>.
func (g *NumberGenerator) TrackingNumber(now time.Time) string {
	n := g.counter.Add(1)
	return fmt.Sprintf("TRK%09d", (uint64(now.UnixMicro())+n)%1_000_000_000)
}
