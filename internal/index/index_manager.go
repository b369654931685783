package index

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"ecpbench/internal/cache"
	"ecpbench/internal/config"
	"ecpbench/internal/metrics"
	pkgerrors "ecpbench/pkg/errors"
	"ecpbench/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
)

// Manager is the registry of built indexes, keyed by name. Search results are
// cached per index generation.
type Manager struct {
	conf    *config.Config
	mu      sync.RWMutex
	indices map[string]*entry
	nextGen uint64
	cache   *cache.LRUCache
	metrics *metrics.Metrics
}

type entry struct {
	index      VectorIndex // nil while the build is running
	config     IndexConfig
	generation uint64
	createdAt  time.Time
}

// NewIndexManager creates a manager. A nil m registers fresh instruments on a
// private registry.
func NewIndexManager(conf *config.Config, m *metrics.Metrics) *Manager {
	if m == nil {
		m = metrics.New(prometheus.NewRegistry())
	}
	return &Manager{
		conf:    conf,
		indices: make(map[string]*entry),
		cache:   cache.NewLRUCache(conf.Server.CacheSize),
		metrics: m,
	}
}

// CreateIndex builds a new index under name. The name is reserved while the
// build runs so concurrent creates of the same name fail fast.
func (m *Manager) CreateIndex(ctx context.Context, name string, config *IndexConfig, vectors [][]float64) (VectorIndex, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: index name is empty", pkgerrors.ErrInvalidArgument)
	}

	m.mu.Lock()
	if _, exists := m.indices[name]; exists {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", pkgerrors.ErrIndexExists, name)
	}
	m.nextGen++
	e := &entry{config: *config, generation: m.nextGen}
	m.indices[name] = e
	m.mu.Unlock()

	start := time.Now()
	index, err := NewIndex(ctx, config, vectors)
	if err != nil {
		m.mu.Lock()
		delete(m.indices, name)
		m.mu.Unlock()
		logger.Warn("Failed to build index", "index", name, "error", err)
		return nil, err
	}
	elapsed := time.Since(start)

	m.mu.Lock()
	e.index = index
	e.createdAt = time.Now()
	m.mu.Unlock()

	info := index.Info()
	leaves := 0
	if info.Stats != nil {
		leaves = info.Stats.Leaves
	}
	m.metrics.ObserveBuild(name, string(info.Type), elapsed, info.Points, leaves)
	logger.Info("Created vector index", "index", name, "type", info.Type, "points", info.Points, "duration", elapsed)
	return index, nil
}

func (m *Manager) lookup(name string) (*entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, exists := m.indices[name]
	if !exists || e.index == nil {
		return nil, fmt.Errorf("%w: %s", pkgerrors.ErrIndexNotFound, name)
	}
	return e, nil
}

// GetIndex retrieves an existing vector index
func (m *Manager) GetIndex(name string) (VectorIndex, error) {
	e, err := m.lookup(name)
	if err != nil {
		return nil, err
	}
	return e.index, nil
}

// Describe returns the info and creation time of a named index.
func (m *Manager) Describe(name string) (Info, time.Time, error) {
	e, err := m.lookup(name)
	if err != nil {
		return Info{}, time.Time{}, err
	}
	return e.index.Info(), e.createdAt, nil
}

// ListIndexes returns the names of all built indexes, sorted.
func (m *Manager) ListIndexes() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.indices))
	for name, e := range m.indices {
		if e.index != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// DeleteIndex removes a vector index
func (m *Manager) DeleteIndex(name string) error {
	m.mu.Lock()
	e, exists := m.indices[name]
	if !exists || e.index == nil {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", pkgerrors.ErrIndexNotFound, name)
	}
	delete(m.indices, name)
	m.mu.Unlock()

	if err := e.index.Close(); err != nil {
		return fmt.Errorf("failed to close index %s: %w", name, err)
	}
	m.metrics.Forget(name)
	logger.Info("Deleted vector index", "index", name)
	return nil
}

// Search runs one query against a named index. A zero k or b falls back to the
// configured default; a negative k is rejected.
func (m *Manager) Search(ctx context.Context, name string, vector []float64, k, b int) (*SearchResult, error) {
	if k < 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", pkgerrors.ErrInvalidArgument, k)
	}
	e, err := m.lookup(name)
	if err != nil {
		return nil, err
	}
	q := m.conf.SearchParams(k, b)

	key := cache.QueryKey(name, e.generation, vector, q.K, q.B)
	if cached, ok := m.cache.Get(key); ok {
		m.metrics.CacheHits.Inc()
		return cached.(*SearchResult), nil
	}

	start := time.Now()
	res, err := e.index.Search(ctx, vector, q)
	m.metrics.ObserveSearch(name, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	m.cache.Set(key, res)
	return res, nil
}

// Close closes all indices
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for name, e := range m.indices {
		if e.index == nil {
			continue
		}
		if err := e.index.Close(); err != nil {
			logger.Error("Failed to close index", "index", name, "error", err)
		}
	}
	m.indices = make(map[string]*entry)
	m.cache.Purge()
	return nil
}
