// Package clock supplies the timestamps written to rows and tokens.
package clock

import (
	"sync"
	"time"

	"github.com/artpar/crudgate/ports"
)

// precision is the finest resolution sqlite and postgres both keep, so a
// timestamp read back from the store equals the one written.
const precision = time.Microsecond

// Real reads the system clock in UTC.
type Real struct{}

func (Real) Now() time.Time {
	return time.Now().UTC().Truncate(precision)
}

var _ ports.Clock = Real{}

// Manual only moves when Advance is called. Tests use it to pin created_at and
// token expiry.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

// NewManual starts a manual clock at start, converted to UTC.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start.UTC().Truncate(precision)}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by d and returns the new time.
func (m *Manual) Advance(d time.Duration) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d).Truncate(precision)
	return m.now
}

var _ ports.Clock = (*Manual)(nil)
