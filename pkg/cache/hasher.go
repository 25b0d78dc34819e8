package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
)

// GraphArc is one arc of a graph being hashed for cache lookup.
type GraphArc struct {
	Tail     int32
	Head     int32
	Capacity float64
	Cost     int64
}

// GraphInput is the minimal description of a solve request needed to
// derive a stable cache key: topology plus source/sink.
type GraphInput struct {
	SourceID int32
	SinkID   int32
	Arcs     []GraphArc
}

// GraphHash computes a cache key fragment identifying the graph's topology,
// independent of arc insertion order.
func GraphHash(g GraphInput) string {
	data := graphToCanonical(g)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:16])
}

func graphToCanonical(g GraphInput) []byte {
	arcs := make([]GraphArc, len(g.Arcs))
	copy(arcs, g.Arcs)
	sort.Slice(arcs, func(i, j int) bool {
		if arcs[i].Tail != arcs[j].Tail {
			return arcs[i].Tail < arcs[j].Tail
		}
		if arcs[i].Head != arcs[j].Head {
			return arcs[i].Head < arcs[j].Head
		}
		if arcs[i].Capacity != arcs[j].Capacity {
			return arcs[i].Capacity < arcs[j].Capacity
		}
		return arcs[i].Cost < arcs[j].Cost
	})

	var result []byte
	result = append(result, []byte(fmt.Sprintf("s:%d,t:%d;", g.SourceID, g.SinkID))...)
	for _, a := range arcs {
		result = append(result, []byte(fmt.Sprintf("e:%d:%d:%.6f:%d;", a.Tail, a.Head, a.Capacity, a.Cost))...)
	}
	return result
}

// BuildSolveKey builds the cache key for a solve result.
func BuildSolveKey(graphHash, algorithm string) string {
	return fmt.Sprintf("solve:%s:%s", algorithm, graphHash)
}

// BuildSolveKeyWithOptions builds a cache key that also accounts for
// solver options that affect the result (e.g. a non-default alpha).
func BuildSolveKeyWithOptions(graphHash, algorithm, optionsHash string) string {
	if optionsHash == "" {
		return BuildSolveKey(graphHash, algorithm)
	}
	return fmt.Sprintf("solve:%s:%s:%s", algorithm, graphHash, optionsHash)
}

// QuickHash hashes arbitrary bytes to a full SHA-256 hex digest.
func QuickHash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// ShortHash hashes arbitrary bytes to a 16-character hex digest.
func ShortHash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:8])
}
