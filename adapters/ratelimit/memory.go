// Package ratelimit provides ports.RateLimiter implementations: an in-process
// token bucket limiter and a Redis fixed-window limiter shared across instances.
package ratelimit

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/artpar/crudgate/ports"
	"golang.org/x/time/rate"
)

// shard is a single shard of the limiter map.
type shard struct {
	mu       sync.Mutex
	limiters map[string]*entry
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryConfig configures the in-memory limiter.
type MemoryConfig struct {
	Limit           int           // events per Window
	Window          time.Duration // refill period for Limit events
	Burst           int           // default: Limit
	NumShards       int           // default: 16
	CleanupInterval time.Duration // default: 1m
	MaxIdle         time.Duration // default: 10m
}

// Memory is a sharded per-key token bucket limiter. Sharding reduces lock
// contention; idle keys are pruned by a background loop until Stop is called.
type Memory struct {
	shards  []*shard
	limit   rate.Limit
	burst   int
	maxIdle time.Duration
	now     func() time.Time
	ticker  *time.Ticker
	done    chan struct{}
	once    sync.Once
}

// NewMemory creates an in-memory limiter.
func NewMemory(cfg MemoryConfig) *Memory {
	if cfg.Limit <= 0 {
		cfg.Limit = 5
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.Burst <= 0 {
		cfg.Burst = cfg.Limit
	}
	if cfg.NumShards <= 0 {
		cfg.NumShards = 16
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Minute
	}
	if cfg.MaxIdle <= 0 {
		cfg.MaxIdle = 10 * time.Minute
	}

	m := &Memory{
		shards:  make([]*shard, cfg.NumShards),
		limit:   rate.Limit(float64(cfg.Limit) / cfg.Window.Seconds()),
		burst:   cfg.Burst,
		maxIdle: cfg.MaxIdle,
		now:     time.Now,
		ticker:  time.NewTicker(cfg.CleanupInterval),
		done:    make(chan struct{}),
	}
	for i := range m.shards {
		m.shards[i] = &shard{limiters: make(map[string]*entry)}
	}
	go m.cleanupLoop()
	return m
}

func (m *Memory) shardFor(key string) *shard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return m.shards[h.Sum32()%uint32(len(m.shards))]
}

// Allow admits one event for key.
func (m *Memory) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	now := m.now()
	s := m.shardFor(key)

	s.mu.Lock()
	e, ok := s.limiters[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(m.limit, m.burst)}
		s.limiters[key] = e
	}
	e.lastSeen = now
	r := e.limiter.ReserveN(now, 1)
	delay := r.DelayFrom(now)
	if delay > 0 {
		r.CancelAt(now)
	}
	s.mu.Unlock()

	if delay > 0 {
		return false, delay, nil
	}
	return true, 0, nil
}

// Len returns the number of tracked keys.
func (m *Memory) Len() int {
	n := 0
	for _, s := range m.shards {
		s.mu.Lock()
		n += len(s.limiters)
		s.mu.Unlock()
	}
	return n
}

// Prune drops keys idle for longer than MaxIdle.
func (m *Memory) Prune() {
	cutoff := m.now().Add(-m.maxIdle)
	for _, s := range m.shards {
		s.mu.Lock()
		for k, e := range s.limiters {
			if e.lastSeen.Before(cutoff) {
				delete(s.limiters, k)
			}
		}
		s.mu.Unlock()
	}
}

func (m *Memory) cleanupLoop() {
	for {
		select {
		case <-m.ticker.C:
			m.Prune()
		case <-m.done:
			return
		}
	}
}

// Stop ends the cleanup loop. It is safe to call more than once.
func (m *Memory) Stop() {
	m.once.Do(func() {
		m.ticker.Stop()
		close(m.done)
	})
}

var _ ports.RateLimiter = (*Memory)(nil)
