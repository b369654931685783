package errors

import "errors"

var (
	// Parameter errors
	ErrConfiguration     = errors.New("invalid index configuration")
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrInvalidArgument   = errors.New("invalid argument")

	// Index errors
	ErrIndexExists          = errors.New("index already exists")
	ErrIndexNotFound        = errors.New("index not found")
	ErrUnsupportedIndexType = errors.New("unsupported index type")

	// Dataset errors
	ErrEmptyDataset   = errors.New("dataset is empty")
	ErrMalformedInput = errors.New("malformed dataset file")
)
