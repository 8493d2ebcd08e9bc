package engine

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// ErrSnapshotMismatch is returned by Load when the snapshot was written by a
// cache with a different tier layout.
var ErrSnapshotMismatch = errors.New("cache snapshot does not match tier layout")

const (
	snapshotMagic   = 0x43544650 // "PFTC"
	snapshotVersion = 1
	snapshotChunk   = 1 << 16 // words per read/write
)

type snapshotHeader struct {
	Magic   uint32
	Version uint32
	Tiers   uint32
}

type tierHeader struct {
	Depth   uint32
	Entries uint64
	Wide    uint8
}

func (c *Cache) layout() []tierHeader {
	var out []tierHeader
	for d, t := range c.tiers {
		if t == nil {
			continue
		}
		h := tierHeader{Depth: uint32(d), Entries: uint64(len(t.slots) / 2)}
		if t.wide {
			h.Wide = 1
		}
		out = append(out, h)
	}
	return out
}

// Save writes every tier, zstd compressed. Lanes must not store while the
// snapshot is taken.
func (c *Cache) Save(w io.Writer) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return fmt.Errorf("create zstd encoder: %w", err)
	}
	layout := c.layout()
	hdr := snapshotHeader{Magic: snapshotMagic, Version: snapshotVersion, Tiers: uint32(len(layout))}
	if err := binary.Write(enc, binary.LittleEndian, hdr); err != nil {
		enc.Close()
		return fmt.Errorf("write snapshot header: %w", err)
	}
	for _, th := range layout {
		if err := binary.Write(enc, binary.LittleEndian, th); err != nil {
			enc.Close()
			return fmt.Errorf("write tier %d header: %w", th.Depth, err)
		}
		slots := c.tiers[th.Depth].slots
		for off := 0; off < len(slots); off += snapshotChunk {
			if err := binary.Write(enc, binary.LittleEndian, slots[off:min(off+snapshotChunk, len(slots))]); err != nil {
				enc.Close()
				return fmt.Errorf("write tier %d: %w", th.Depth, err)
			}
		}
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("flush snapshot: %w", err)
	}
	return nil
}

// Load replaces the cache contents with a snapshot written by Save from a
// cache with the same tiers. On error the cache may be partially
// overwritten and should be cleared.
func (c *Cache) Load(r io.Reader) error {
	dec, err := zstd.NewReader(bufio.NewReader(r))
	if err != nil {
		return fmt.Errorf("create zstd decoder: %w", err)
	}
	defer dec.Close()

	var hdr snapshotHeader
	if err := binary.Read(dec, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("read snapshot header: %w", err)
	}
	if hdr.Magic != snapshotMagic || hdr.Version != snapshotVersion {
		return fmt.Errorf("%w: bad magic %#x version %d", ErrSnapshotMismatch, hdr.Magic, hdr.Version)
	}
	layout := c.layout()
	if int(hdr.Tiers) != len(layout) {
		return fmt.Errorf("%w: %d tiers, cache has %d", ErrSnapshotMismatch, hdr.Tiers, len(layout))
	}
	for _, want := range layout {
		var th tierHeader
		if err := binary.Read(dec, binary.LittleEndian, &th); err != nil {
			return fmt.Errorf("read tier header: %w", err)
		}
		if th != want {
			return fmt.Errorf("%w: tier %+v, cache has %+v", ErrSnapshotMismatch, th, want)
		}
		slots := c.tiers[th.Depth].slots
		for off := 0; off < len(slots); off += snapshotChunk {
			if err := binary.Read(dec, binary.LittleEndian, slots[off:min(off+snapshotChunk, len(slots))]); err != nil {
				return fmt.Errorf("read tier %d: %w", th.Depth, err)
			}
		}
	}
	return nil
}
