package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// SolverCache caches solve results keyed by graph topology and algorithm.
type SolverCache struct {
	cache      Cache
	defaultTTL time.Duration
}

// CachedResult is the JSON-encoded shape stored for one cached solve.
type CachedResult struct {
	FlowValue         float64         `json:"flow_value"`
	TotalCost         int64           `json:"total_cost"`
	Status            string          `json:"status"`
	Iterations        int             `json:"iterations"`
	ComputationTimeMs float64         `json:"computation_time_ms"`
	FlowArcs          []CachedFlowArc `json:"flow_arcs,omitempty"`
	ComputedAt        time.Time       `json:"computed_at"`
}

// CachedFlowArc is one arc's flow value in a cached result.
type CachedFlowArc struct {
	Tail     int32   `json:"tail"`
	Head     int32   `json:"head"`
	Flow     float64 `json:"flow"`
	Capacity float64 `json:"capacity"`
}

// NewSolverCache wraps cache with solve-result-specific key building.
func NewSolverCache(cache Cache, defaultTTL time.Duration) *SolverCache {
	if defaultTTL <= 0 {
		defaultTTL = 10 * time.Minute
	}
	return &SolverCache{
		cache:      cache,
		defaultTTL: defaultTTL,
	}
}

// Get looks up a cached result for the given graph and algorithm.
func (sc *SolverCache) Get(ctx context.Context, graph GraphInput, algorithm string) (*CachedResult, bool, error) {
	key := BuildSolveKey(GraphHash(graph), algorithm)

	data, err := sc.cache.Get(ctx, key)
	if err != nil {
		if err == ErrKeyNotFound {
			return nil, false, nil
		}
		return nil, false, err
	}

	var result CachedResult
	if err := json.Unmarshal(data, &result); err != nil {
		_ = sc.cache.Delete(ctx, key) //nolint:errcheck // best effort cleanup of a corrupted entry
		return nil, false, nil
	}

	return &result, true, nil
}

// Set stores a result for the given graph and algorithm. ttl <= 0 uses the
// cache's default TTL.
func (sc *SolverCache) Set(ctx context.Context, graph GraphInput, algorithm string, result *CachedResult, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = sc.defaultTTL
	}

	key := BuildSolveKey(GraphHash(graph), algorithm)
	result.ComputedAt = time.Now()

	data, err := json.Marshal(result)
	if err != nil {
		return err
	}

	return sc.cache.Set(ctx, key, data, ttl)
}

// Invalidate removes all cached algorithm results for the given graph.
func (sc *SolverCache) Invalidate(ctx context.Context, graph GraphInput) error {
	pattern := fmt.Sprintf("solve:*:%s", GraphHash(graph))
	_, err := sc.cache.DeleteByPattern(ctx, pattern)
	return err
}

// InvalidateAll removes every cached solve result.
func (sc *SolverCache) InvalidateAll(ctx context.Context) (int64, error) {
	return sc.cache.DeleteByPattern(ctx, "solve:*")
}
