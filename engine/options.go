package engine

import (
	"errors"
	"fmt"
	"math/bits"
	"runtime"

	"github.com/rs/zerolog"
)

// ErrInvalidOptions is wrapped by every option validation failure.
var ErrInvalidOptions = errors.New("invalid engine options")

// Options configures an Engine.
type Options struct {
	// Workers is the number of goroutines running lane groups (default GOMAXPROCS).
	Workers int
	// GroupSize is the number of lanes a group processes in order.
	GroupSize int
	// ArenaBytes is the budget of one breadth-first call.
	ArenaBytes int64

	// SerialDepth: subtrees this shallow are counted by plain recursion.
	SerialDepth int
	// LaunchDepth: deeper roots are split by recursion until this depth
	// remains, then handed to the breadth-first expansion in batches.
	LaunchDepth int
	// BatchSize is the number of roots per breadth-first call.
	BatchSize int

	// FindDuplicates folds identical positions within a level (best effort).
	FindDuplicates bool

	// Tables configures the cache per remaining depth; index 0 and 1 are
	// ignored. Nil disables caching.
	Tables []TableConfig
	// Cache, when set, is used instead of building one from Tables. It may
	// be shared between engines.
	Cache *Cache

	// Stats enables hit/probe/store counters.
	Stats bool

	Logger zerolog.Logger
}

// DefaultOptions returns options sized for a desktop machine without a cache.
func DefaultOptions() Options {
	return Options{
		Workers:     runtime.GOMAXPROCS(0),
		GroupSize:   256,
		ArenaBytes:  512 << 20,
		SerialDepth: 3,
		LaunchDepth: 6,
		BatchSize:   8,
		Logger:      zerolog.Nop(),
	}
}

func (o *Options) validate() error {
	switch {
	case o.Workers < 1:
		return fmt.Errorf("%w: workers %d", ErrInvalidOptions, o.Workers)
	case o.GroupSize < 1:
		return fmt.Errorf("%w: group size %d", ErrInvalidOptions, o.GroupSize)
	case o.ArenaBytes < 1<<10:
		return fmt.Errorf("%w: arena of %d bytes", ErrInvalidOptions, o.ArenaBytes)
	case o.SerialDepth < 1:
		return fmt.Errorf("%w: serial depth %d", ErrInvalidOptions, o.SerialDepth)
	case o.LaunchDepth < o.SerialDepth:
		return fmt.Errorf("%w: launch depth %d below serial depth %d", ErrInvalidOptions, o.LaunchDepth, o.SerialDepth)
	case o.BatchSize < 1:
		return fmt.Errorf("%w: batch size %d", ErrInvalidOptions, o.BatchSize)
	}
	for d, tc := range o.Tables {
		if tc.Entries == 0 || d < 2 {
			continue
		}
		if bits.OnesCount64(tc.Entries) != 1 {
			return fmt.Errorf("%w: depth %d table size %d is not a power of two", ErrInvalidOptions, d, tc.Entries)
		}
	}
	return nil
}

// TableConfig describes the cache tier for one remaining depth.
type TableConfig struct {
	// Entries is the slot count, a power of two. Zero disables the tier.
	Entries uint64
	// Wide tiers store counts up to 56 bits. Narrow tiers pack the count
	// into the index bits of the key and skip counts that do not fit.
	Wide bool
}

// IndexMask selects the key bits that address a slot.
func (tc TableConfig) IndexMask() uint64 { return tc.Entries - 1 }

// HashMask selects the key bits stored in the slot as tag.
func (tc TableConfig) HashMask() uint64 { return ^tc.IndexMask() }

// entryBytes is the size of one two-word slot.
const entryBytes = 16

// DefaultTables spreads megabytes of cache over depths 2..maxDepth. The two
// shallowest tiers are narrow, deeper ones wide.
func DefaultTables(megabytes int, maxDepth int) []TableConfig {
	if maxDepth < 2 || megabytes <= 0 {
		return nil
	}
	tiers := maxDepth - 1
	per := uint64(megabytes) << 20 / uint64(tiers) / entryBytes
	if per == 0 {
		return nil
	}
	entries := uint64(1) << (63 - bits.LeadingZeros64(per))

	out := make([]TableConfig, maxDepth+1)
	for d := 2; d <= maxDepth; d++ {
		out[d] = TableConfig{Entries: entries, Wide: d > 3}
	}
	return out
}
