package cache

import (
	"context"
	"testing"
	"time"
)

func TestSolverCache_SetGet(t *testing.T) {
	memCache := NewMemoryCache(nil)
	defer memCache.Close()

	solverCache := NewSolverCache(memCache, 5*time.Minute)

	ctx := context.Background()
	graph := GraphInput{
		SourceID: 1,
		SinkID:   3,
		Arcs: []GraphArc{
			{Tail: 1, Head: 2, Capacity: 10, Cost: 1},
			{Tail: 2, Head: 3, Capacity: 10, Cost: 1},
		},
	}

	result := &CachedResult{
		FlowValue:         10,
		TotalCost:         20,
		Status:            "Optimal",
		Iterations:        5,
		ComputationTimeMs: 1.5,
		FlowArcs: []CachedFlowArc{
			{Tail: 1, Head: 2, Flow: 10, Capacity: 10},
			{Tail: 2, Head: 3, Flow: 10, Capacity: 10},
		},
	}

	err := solverCache.Set(ctx, graph, "maxflow", result, 0)
	if err != nil {
		t.Fatalf("failed to set: %v", err)
	}

	got, found, err := solverCache.Get(ctx, graph, "maxflow")
	if err != nil {
		t.Fatalf("failed to get: %v", err)
	}
	if !found {
		t.Fatal("expected to find cached result")
	}

	if got.FlowValue != result.FlowValue {
		t.Errorf("expected flow value %f, got %f", result.FlowValue, got.FlowValue)
	}
	if got.TotalCost != result.TotalCost {
		t.Errorf("expected total cost %d, got %d", result.TotalCost, got.TotalCost)
	}
	if len(got.FlowArcs) != 2 {
		t.Errorf("expected 2 flow arcs, got %d", len(got.FlowArcs))
	}
}

func TestSolverCache_GetNotFound(t *testing.T) {
	memCache := NewMemoryCache(nil)
	defer memCache.Close()

	solverCache := NewSolverCache(memCache, 5*time.Minute)

	ctx := context.Background()
	graph := GraphInput{SourceID: 1, SinkID: 2}

	result, found, err := solverCache.Get(ctx, graph, "maxflow")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Error("expected not found")
	}
	if result != nil {
		t.Error("expected nil result")
	}
}

func TestSolverCache_DifferentAlgorithm(t *testing.T) {
	memCache := NewMemoryCache(nil)
	defer memCache.Close()

	solverCache := NewSolverCache(memCache, 5*time.Minute)

	ctx := context.Background()
	graph := GraphInput{SourceID: 1, SinkID: 2}

	result := &CachedResult{FlowValue: 10}

	solverCache.Set(ctx, graph, "maxflow", result, 0)

	_, found, _ := solverCache.Get(ctx, graph, "mincostflow")
	if found {
		t.Error("should not find result for different algorithm")
	}
}

func TestSolverCache_Invalidate(t *testing.T) {
	memCache := NewMemoryCache(nil)
	defer memCache.Close()

	solverCache := NewSolverCache(memCache, 5*time.Minute)

	ctx := context.Background()
	graph := GraphInput{SourceID: 1, SinkID: 2}

	result := &CachedResult{FlowValue: 10}

	solverCache.Set(ctx, graph, "maxflow", result, 0)
	solverCache.Set(ctx, graph, "mincostflow", result, 0)

	err := solverCache.Invalidate(ctx, graph)
	if err != nil {
		t.Fatalf("failed to invalidate: %v", err)
	}

	_, found1, _ := solverCache.Get(ctx, graph, "maxflow")
	_, found2, _ := solverCache.Get(ctx, graph, "mincostflow")

	if found1 || found2 {
		t.Error("expected cache to be invalidated")
	}
}

func TestSolverCache_InvalidateAll(t *testing.T) {
	memCache := NewMemoryCache(nil)
	defer memCache.Close()

	solverCache := NewSolverCache(memCache, 5*time.Minute)

	ctx := context.Background()

	graph1 := GraphInput{SourceID: 1, SinkID: 2}
	graph2 := GraphInput{SourceID: 3, SinkID: 4}

	result := &CachedResult{FlowValue: 10}

	solverCache.Set(ctx, graph1, "maxflow", result, 0)
	solverCache.Set(ctx, graph2, "mincostflow", result, 0)

	count, err := solverCache.InvalidateAll(ctx)
	if err != nil {
		t.Fatalf("failed to invalidate all: %v", err)
	}

	if count != 2 {
		t.Errorf("expected 2 invalidated, got %d", count)
	}
}
