// Package convert upcasts the float32 vectors produced by benchmark harnesses
// into the float64 points the index works on.
package convert

// Float64s widens v. A nil input yields nil.
func Float64s(v []float32) []float64 {
	if v == nil {
		return nil
	}
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

// Float64Matrix widens every row of m into one contiguous block.
func Float64Matrix(m [][]float32) [][]float64 {
	if m == nil {
		return nil
	}
	total := 0
	for _, row := range m {
		total += len(row)
	}
	block := make([]float64, total)
	out := make([][]float64, len(m))
	off := 0
	for i, row := range m {
		dst := block[off : off+len(row) : off+len(row)]
		for j, x := range row {
			dst[j] = float64(x)
		}
		out[i] = dst
		off += len(row)
	}
	return out
}
