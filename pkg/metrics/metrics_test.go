package metrics

import (
	"runtime"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNew(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg, "test", "service")

	if m == nil {
		t.Fatal("New returned nil")
	}
	if m.SolveOperationsTotal == nil {
		t.Error("SolveOperationsTotal should not be nil")
	}
	if m.RelabelsTotal == nil {
		t.Error("RelabelsTotal should not be nil")
	}
}

func TestRecordSolve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg, "test", "solve")

	m.RecordSolve("maxflow", true, 500*time.Millisecond, 100.5)
	m.RecordSolve("mincostflow", false, 1*time.Second, 0)
}

func TestRecordGraphSize(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg, "test", "graph")

	m.RecordGraphSize("maxflow", 100, 500)
	m.RecordGraphSize("bidijkstra", 50, 200)
}

func TestAddCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg, "test", "counters")

	m.AddRelabels("maxflow", 3)
	m.AddPushes("maxflow", 10)
	m.AddGlobalUpdates("maxflow", 1)
}

func TestSetBuildInfo(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg, "test", "info")

	m.SetBuildInfo("1.0.0")
}

func TestRuntimeCollector(t *testing.T) {
	collector := NewRuntimeCollector("test", "runtime")

	descCh := make(chan *prometheus.Desc, 10)
	collector.Describe(descCh)
	close(descCh)

	count := 0
	for range descCh {
		count++
	}
	if count < 5 {
		t.Errorf("expected at least 5 descriptors, got %d", count)
	}

	metricCh := make(chan prometheus.Metric, 10)
	collector.Collect(metricCh)
	close(metricCh)

	count = 0
	for range metricCh {
		count++
	}
	if count < 5 {
		t.Errorf("expected at least 5 metrics, got %d", count)
	}
}

func TestRuntimeCollector_GCPause(t *testing.T) {
	runtime.GC()

	collector := NewRuntimeCollector("test", "gc")
	metricCh := make(chan prometheus.Metric, 10)
	collector.Collect(metricCh)
	close(metricCh)

	found := false
	for range metricCh {
		found = true
	}
	if !found {
		t.Error("should have collected at least one metric")
	}
}

func TestTimer(t *testing.T) {
	histogram := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "test_duration",
			Buckets: []float64{.01, .1, 1},
		},
		[]string{"algorithm"},
	)

	timer := NewTimer(histogram, "maxflow")

	time.Sleep(10 * time.Millisecond)

	duration := timer.ObserveDuration()
	if duration < 10*time.Millisecond {
		t.Errorf("duration = %v, expected >= 10ms", duration)
	}
}
