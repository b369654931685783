package index

// IndexType names an index implementation.
type IndexType string

const (
	ECPIndex  IndexType = "ecp"
	FLATIndex IndexType = "flat"
)
