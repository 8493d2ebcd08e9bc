package bitmg

import (
	"encoding/binary"

	"lukechampine.com/frand"
)

// keyStream is a deterministic ChaCha stream used to fill zobrist keys and
// to draw magic candidates. A fixed seed keeps tables identical across runs.
type keyStream struct {
	rng *frand.RNG
	buf [8]byte
}

func newKeyStream(label string) *keyStream {
	seed := make([]byte, 32)
	copy(seed, label)
	return &keyStream{rng: frand.NewCustom(seed, 1024, 12)}
}

func (k *keyStream) Uint64() uint64 {
	_, _ = k.rng.Read(k.buf[:])
	return binary.LittleEndian.Uint64(k.buf[:])
}

// sparse returns a value with roughly an eighth of its bits set, which
// makes good magic candidates.
func (k *keyStream) sparse() uint64 {
	return k.Uint64() & k.Uint64() & k.Uint64()
}
