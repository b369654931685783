package cache

import (
	"encoding/binary"
	"encoding/hex"
	"math"

	"github.com/twmb/murmur3"
)

// QueryKey identifies one search against one generation of a named index.
// Rebuilding an index under the same name bumps its generation, so results
// cached for the old build are never returned.
func QueryKey(index string, generation uint64, vector []float64, k, b int) string {
	h := murmur3.New128()
	var buf [8]byte

	binary.LittleEndian.PutUint64(buf[:], uint64(len(index)))
	h.Write(buf[:])
	h.Write([]byte(index))
	binary.LittleEndian.PutUint64(buf[:], generation)
	h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], uint64(k))
	h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], uint64(b))
	h.Write(buf[:])
	for _, x := range vector {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(x))
		h.Write(buf[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}
