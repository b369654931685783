package bench

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	pkgerrors "ecpbench/pkg/errors"
)

// maxFvecsDim bounds the per-record dimension so a corrupt header cannot force
// a huge allocation.
const maxFvecsDim = 1 << 16

// ReadFvecs decodes the fvecs layout: each record is a little-endian int32
// dimension followed by that many float32 values. limit <= 0 reads everything.
func ReadFvecs(r io.Reader, limit int) ([][]float32, error) {
	br := bufio.NewReader(r)
	var out [][]float32
	for limit <= 0 || len(out) < limit {
		var dim int32
		if err := binary.Read(br, binary.LittleEndian, &dim); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("%w: record %d header: %v", pkgerrors.ErrMalformedInput, len(out), err)
		}
		if dim <= 0 || dim > maxFvecsDim {
			return nil, fmt.Errorf("%w: record %d has dimension %d", pkgerrors.ErrMalformedInput, len(out), dim)
		}
		if len(out) > 0 && int(dim) != len(out[0]) {
			return nil, fmt.Errorf("%w: record %d has dimension %d, expected %d",
				pkgerrors.ErrDimensionMismatch, len(out), dim, len(out[0]))
		}
		v := make([]float32, dim)
		if err := binary.Read(br, binary.LittleEndian, v); err != nil {
			return nil, fmt.Errorf("%w: record %d body: %v", pkgerrors.ErrMalformedInput, len(out), err)
		}
		out = append(out, v)
	}
	return out, nil
}

// WriteFvecs encodes vectors in the fvecs layout.
func WriteFvecs(w io.Writer, vectors [][]float32) error {
	bw := bufio.NewWriter(w)
	for _, v := range vectors {
		if err := binary.Write(bw, binary.LittleEndian, int32(len(v))); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// LoadVectors reads a .fvecs file or a JSON array of arrays, chosen by extension.
func LoadVectors(path string, limit int) ([][]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var vectors [][]float32
	switch strings.ToLower(filepath.Ext(path)) {
	case ".fvecs":
		vectors, err = ReadFvecs(f, limit)
	case ".json":
		err = json.NewDecoder(f).Decode(&vectors)
		if err != nil {
			err = fmt.Errorf("%w: %v", pkgerrors.ErrMalformedInput, err)
		}
		if limit > 0 && len(vectors) > limit {
			vectors = vectors[:limit]
		}
	default:
		return nil, fmt.Errorf("%w: unknown dataset extension %q", pkgerrors.ErrInvalidArgument, filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("load %s: %w", path, pkgerrors.ErrEmptyDataset)
	}
	return vectors, nil
}

// GenerateDescriptors returns count vectors whose coordinates are integers
// drawn uniformly from [0, upperBound).
func GenerateDescriptors(rng *rand.Rand, count, dim, upperBound int) [][]float32 {
	upperBound = max(upperBound, 1)
	block := make([]float32, count*dim)
	out := make([][]float32, count)
	for i := range out {
		v := block[i*dim : (i+1)*dim : (i+1)*dim]
		for j := range v {
			v[j] = float32(rng.IntN(upperBound))
		}
		out[i] = v
	}
	return out
}

// Split carves the last n vectors off as queries. n is capped so at least one
// point remains.
func Split(vectors [][]float32, n int) (data, queries [][]float32) {
	n = min(max(n, 0), len(vectors)-1)
	if n <= 0 {
		return vectors, nil
	}
	cut := len(vectors) - n
	return vectors[:cut], vectors[cut:]
}

// finite reports whether every coordinate is a real number.
func finite(vectors [][]float64) error {
	for i, v := range vectors {
		for j, x := range v {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return fmt.Errorf("%w: vector %d coordinate %d is %v", pkgerrors.ErrMalformedInput, i, j, x)
			}
		}
	}
	return nil
}
