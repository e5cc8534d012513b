// Package idgen provides ID generation implementations.
package idgen

import (
	"strconv"
	"sync/atomic"

	"github.com/artpar/crudgate/ports"
	"github.com/google/uuid"
)

// UUID generates random (v4) UUIDs.
type UUID struct{}

func (UUID) New() string {
	return uuid.NewString()
}

var _ ports.IDGenerator = UUID{}

// Sequential generates "<prefix><n>" identifiers (for testing).
type Sequential struct {
	prefix  string
	counter atomic.Uint64
}

// NewSequential creates a sequential ID generator.
func NewSequential(prefix string) *Sequential {
	return &Sequential{prefix: prefix}
}

// New generates the next sequential ID.
func (s *Sequential) New() string {
	return s.prefix + strconv.FormatUint(s.counter.Add(1), 10)
}

var _ ports.IDGenerator = (*Sequential)(nil)
