package engine

import (
	"sync/atomic"

	"github.com/rs/zerolog"
)

// maxStatDepth bounds the per-depth counters.
const maxStatDepth = 32

// Statistics collects cache and frontier counters per remaining depth. It
// is only maintained when Options.Stats is set.
type Statistics struct {
	Probes     [maxStatDepth]atomic.Uint64
	Hits       [maxStatDepth]atomic.Uint64
	Stores     [maxStatDepth]atomic.Uint64
	Overflows  [maxStatDepth]atomic.Uint64 // stores the slot rejected
	Entries    [maxStatDepth]atomic.Uint64 // frontier entries created
	Duplicates atomic.Uint64
	Aborts     atomic.Uint64 // breadth-first calls that ran out of arena
}

func statDepth(d int) int {
	if d >= maxStatDepth {
		return maxStatDepth - 1
	}
	return d
}

// Reset clears every counter.
func (s *Statistics) Reset() {
	for d := range s.Probes {
		s.Probes[d].Store(0)
		s.Hits[d].Store(0)
		s.Stores[d].Store(0)
		s.Overflows[d].Store(0)
		s.Entries[d].Store(0)
	}
	s.Duplicates.Store(0)
	s.Aborts.Store(0)
}

// Log writes one line per depth that saw traffic.
func (s *Statistics) Log(log zerolog.Logger) {
	for d := range s.Probes {
		probes, entries := s.Probes[d].Load(), s.Entries[d].Load()
		if probes == 0 && entries == 0 {
			continue
		}
		hits := s.Hits[d].Load()
		var rate float64
		if probes > 0 {
			rate = float64(hits) / float64(probes)
		}
		log.Info().
			Int("depth", d).
			Uint64("entries", entries).
			Uint64("probes", probes).
			Uint64("hits", hits).
			Float64("hit_rate", rate).
			Uint64("stores", s.Stores[d].Load()).
			Uint64("overflows", s.Overflows[d].Load()).
			Msg("cache statistics")
	}
	log.Info().
		Uint64("duplicates", s.Duplicates.Load()).
		Uint64("aborts", s.Aborts.Load()).
		Msg("frontier statistics")
}
