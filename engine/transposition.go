package engine

import (
	"sync/atomic"

	"chess-perft/bitmg"
)

// Cache is the lockless transposition cache of subtree leaf counts, one
// tier per remaining depth. Lanes read and write slots without locks; every
// slot is two words XOR-packed with the key so a torn or foreign slot fails
// validation and reads as a miss. It is never a source of truth.
type Cache struct {
	tiers []*tier
}

type tier struct {
	slots []uint64 // two words per entry
	mask  uint64   // index mask
	wide  bool
}

const (
	wideDepthBits = 8
	wideDepthMask = 1<<wideDepthBits - 1
	maxWideCount  = 1<<(64-wideDepthBits) - 1
)

// NewCache allocates the tiers described by configs, indexed by remaining
// depth. Depths 0 and 1 are never cached.
func NewCache(configs []TableConfig) *Cache {
	c := &Cache{tiers: make([]*tier, len(configs))}
	for d, tc := range configs {
		if d < 2 || tc.Entries == 0 {
			continue
		}
		c.tiers[d] = &tier{
			slots: make([]uint64, 2*tc.Entries),
			mask:  tc.IndexMask(),
			wide:  tc.Wide,
		}
	}
	return c
}

// Bytes returns the memory held by all tiers.
func (c *Cache) Bytes() int64 {
	if c == nil {
		return 0
	}
	var n int64
	for _, t := range c.tiers {
		if t != nil {
			n += int64(len(t.slots)) * 8
		}
	}
	return n
}

// Clear empties every slot. Not safe while lanes use the cache.
func (c *Cache) Clear() {
	if c == nil {
		return
	}
	for _, t := range c.tiers {
		if t != nil {
			clear(t.slots)
		}
	}
}

func (c *Cache) tier(depth int) *tier {
	if c == nil || depth < 0 || depth >= len(c.tiers) {
		return nil
	}
	return c.tiers[depth]
}

// Enabled reports whether depth has a tier.
func (c *Cache) Enabled(depth int) bool { return c.tier(depth) != nil }

// Probe returns the cached leaf count of the position with key h at depth.
func (c *Cache) Probe(depth int, h bitmg.Hash128) (uint64, bool) {
	t := c.tier(depth)
	if t == nil {
		return 0, false
	}
	return t.probe(depth, h)
}

// Store records count for the position with key h at depth. It reports
// false when depth has no tier, the count does not fit the slot, or a deeper
// entry holds the slot.
func (c *Cache) Store(depth int, h bitmg.Hash128, count uint64) bool {
	t := c.tier(depth)
	if t == nil {
		return false
	}
	return t.store(depth, h, count)
}

func (t *tier) slot(h bitmg.Hash128) (*uint64, *uint64) {
	i := (h.Lo & t.mask) * 2
	return &t.slots[i], &t.slots[i+1]
}

// Narrow slot: w0 = tag bits of Lo | count, w1 = Hi ^ w0.
// Wide slot:   w0 = count<<8 | depth,   w1 = Hi ^ w0 ^ tag bits of Lo.

func (t *tier) probe(depth int, h bitmg.Hash128) (uint64, bool) {
	p0, p1 := t.slot(h)
	w0 := atomic.LoadUint64(p0)
	w1 := atomic.LoadUint64(p1)
	tag := h.Lo &^ t.mask
	if !t.wide {
		if w0&^t.mask == tag && w1^w0 == h.Hi {
			return w0 & t.mask, true
		}
		return 0, false
	}
	if w1^w0 == h.Hi^tag && int(w0&wideDepthMask) == depth {
		return w0 >> wideDepthBits, true
	}
	return 0, false
}

// store reports false when the count could not be written.
func (t *tier) store(depth int, h bitmg.Hash128, count uint64) bool {
	p0, p1 := t.slot(h)
	tag := h.Lo &^ t.mask
	if !t.wide {
		if count > t.mask {
			return false
		}
		w0 := tag | count
		atomic.StoreUint64(p0, w0)
		atomic.StoreUint64(p1, h.Hi^w0)
		return true
	}
	if count > maxWideCount {
		return false
	}
	// Keep a deeper entry in place.
	if old := atomic.LoadUint64(p0); int(old&wideDepthMask) > depth {
		return false
	}
	w0 := count<<wideDepthBits | uint64(depth)
	atomic.StoreUint64(p0, w0)
	atomic.StoreUint64(p1, h.Hi^w0^tag)
	return true
}
