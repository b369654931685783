package ecp

import "math/rand/v2"

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// pick draws k distinct elements of pool in random order with a partial
// Fisher-Yates shuffle. pool is left untouched.
func pick(rng *rand.Rand, pool []int, k int) []int {
	if k > len(pool) {
		k = len(pool)
	}
	buf := append([]int(nil), pool...)
	for i := 0; i < k; i++ {
		j := i + rng.IntN(len(buf)-i)
		buf[i], buf[j] = buf[j], buf[i]
	}
	return buf[:k:k]
}

// seq returns 0..n-1.
func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
