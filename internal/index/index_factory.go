package index

import (
	"context"
	"fmt"

	pkgerrors "ecpbench/pkg/errors"
)

// NewIndex builds the index named by config.Type over vectors.
func NewIndex(ctx context.Context, config *IndexConfig, vectors [][]float64) (VectorIndex, error) {
	switch config.Type {
	case ECPIndex, "":
		return newECPIndex(ctx, config, vectors)
	case FLATIndex:
		return newFlatIndex(config, vectors)
	default:
		return nil, fmt.Errorf("%w: %s", pkgerrors.ErrUnsupportedIndexType, config.Type)
	}
}
