package api

import (
	"context"
	"fmt"
	"sync/atomic"

	"chess-perft/engine"
)

// JobPool bounds concurrent perft jobs. Every slot owns an engine and its
// arena; all engines share one cache.
type JobPool struct {
	engines chan *engine.Engine
	cache   *engine.Cache
	queued  int64
	active  int64
	total   int64
}

// NewJobPool builds jobs engines from opts. When opts.Cache is nil a cache
// is built from opts.Tables and shared by every engine.
func NewJobPool(jobs int, opts engine.Options) (*JobPool, error) {
	if jobs <= 0 {
		jobs = 1
	}
	if opts.Cache == nil && len(opts.Tables) > 0 {
		opts.Cache = engine.NewCache(opts.Tables)
	}
	p := &JobPool{engines: make(chan *engine.Engine, jobs), cache: opts.Cache}
	for i := 0; i < jobs; i++ {
		e, err := engine.New(opts)
		if err != nil {
			return nil, fmt.Errorf("create engine %d: %w", i, err)
		}
		p.engines <- e
	}
	return p, nil
}

// Acquire waits for a free engine. It returns an error if the context is
// cancelled while waiting.
func (p *JobPool) Acquire(ctx context.Context) (*engine.Engine, error) {
	atomic.AddInt64(&p.queued, 1)
	defer atomic.AddInt64(&p.queued, -1)

	select {
	case e := <-p.engines:
		atomic.AddInt64(&p.active, 1)
		return e, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release returns an engine taken by Acquire.
func (p *JobPool) Release(e *engine.Engine) {
	atomic.AddInt64(&p.active, -1)
	atomic.AddInt64(&p.total, 1)
	p.engines <- e
}

// Cache returns the shared cache, possibly nil.
func (p *JobPool) Cache() *engine.Cache { return p.cache }

// PoolStats is a snapshot of the pool counters.
type PoolStats struct {
	Active int64 `json:"active"`
	Queued int64 `json:"queued"`
	Total  int64 `json:"total"`
	Max    int   `json:"max"`
}

// Stats returns current pool statistics.
func (p *JobPool) Stats() PoolStats {
	return PoolStats{
		Active: atomic.LoadInt64(&p.active),
		Queued: atomic.LoadInt64(&p.queued),
		Total:  atomic.LoadInt64(&p.total),
		Max:    cap(p.engines),
	}
}
