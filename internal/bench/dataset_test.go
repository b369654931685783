package bench

import (
	"bytes"
	"encoding/binary"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	pkgerrors "ecpbench/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFvecsRoundTrip(t *testing.T) {
	vectors := [][]float32{{1, 2, 3}, {4.5, -6, 0}}
	var buf bytes.Buffer
	require.NoError(t, WriteFvecs(&buf, vectors))
	assert.Equal(t, 2*(4+3*4), buf.Len())

	got, err := ReadFvecs(bytes.NewReader(buf.Bytes()), 0)
	require.NoError(t, err)
	assert.Equal(t, vectors, got)

	got, err = ReadFvecs(bytes.NewReader(buf.Bytes()), 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestReadFvecsRejectsCorruptInput(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFvecs(&buf, [][]float32{{1, 2}}))

	truncated := buf.Bytes()[:buf.Len()-2]
	_, err := ReadFvecs(bytes.NewReader(truncated), 0)
	assert.ErrorIs(t, err, pkgerrors.ErrMalformedInput)

	require.NoError(t, WriteFvecs(&buf, [][]float32{{1, 2, 3}}))
	_, err = ReadFvecs(bytes.NewReader(buf.Bytes()), 0)
	assert.ErrorIs(t, err, pkgerrors.ErrDimensionMismatch)

	var neg bytes.Buffer
	require.NoError(t, binary.Write(&neg, binary.LittleEndian, int32(-1)))
	_, err = ReadFvecs(&neg, 0)
	assert.ErrorIs(t, err, pkgerrors.ErrMalformedInput)

	var huge bytes.Buffer
	require.NoError(t, binary.Write(&huge, binary.LittleEndian, int32(0x7fffffff)))
	_, err = ReadFvecs(&huge, 0)
	assert.ErrorIs(t, err, pkgerrors.ErrMalformedInput)

	var big bytes.Buffer
	require.NoError(t, binary.Write(&big, binary.LittleEndian, int32(maxFvecsDim+1)))
	_, err = ReadFvecs(&big, 0)
	assert.ErrorIs(t, err, pkgerrors.ErrMalformedInput)
}

func TestLoadVectors(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "data.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`[[1,2],[3,4],[5,6]]`), 0644))
	got, err := LoadVectors(jsonPath, 2)
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 2}, {3, 4}}, got)

	fvecsPath := filepath.Join(dir, "data.fvecs")
	f, err := os.Create(fvecsPath)
	require.NoError(t, err)
	require.NoError(t, WriteFvecs(f, [][]float32{{7, 8, 9}}))
	require.NoError(t, f.Close())
	got, err = LoadVectors(fvecsPath, 0)
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{7, 8, 9}}, got)

	_, err = LoadVectors(filepath.Join(dir, "data.csv"), 0)
	assert.Error(t, err)

	emptyPath := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(emptyPath, []byte(`[]`), 0644))
	_, err = LoadVectors(emptyPath, 0)
	assert.ErrorIs(t, err, pkgerrors.ErrEmptyDataset)

	badPath := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(badPath, []byte(`{"x":1}`), 0644))
	_, err = LoadVectors(badPath, 0)
	assert.ErrorIs(t, err, pkgerrors.ErrMalformedInput)
}

func TestGenerateDescriptors(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	vectors := GenerateDescriptors(rng, 200, 5, 7)
	require.Len(t, vectors, 200)
	for _, v := range vectors {
		require.Len(t, v, 5)
		for _, x := range v {
			assert.GreaterOrEqual(t, x, float32(0))
			assert.Less(t, x, float32(7))
			assert.Equal(t, float32(math.Trunc(float64(x))), x)
		}
	}

	again := GenerateDescriptors(rand.New(rand.NewPCG(1, 2)), 200, 5, 7)
	assert.Equal(t, vectors, again)
}

func TestSplit(t *testing.T) {
	vectors := [][]float32{{1}, {2}, {3}, {4}}

	data, queries := Split(vectors, 1)
	assert.Equal(t, [][]float32{{1}, {2}, {3}}, data)
	assert.Equal(t, [][]float32{{4}}, queries)

	data, queries = Split(vectors, 10)
	assert.Len(t, data, 1)
	assert.Len(t, queries, 3)

	data, queries = Split(vectors, 0)
	assert.Len(t, data, 4)
	assert.Nil(t, queries)
}
