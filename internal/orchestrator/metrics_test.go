package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestPrometheusMetricsRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	rec.Observe(context.Background(), "incidents", true, 120*time.Millisecond)
	rec.Observe(context.Background(), "incidents", false, 40*time.Millisecond)

	fams, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	byName := map[string]bool{}
	for _, mf := range fams {
		byName[mf.GetName()] = true
	}
	for _, name := range []string{"labsynth_family_generations_total", "labsynth_family_generation_seconds"} {
		if !byName[name] {
			t.Errorf("metric %s not registered", name)
		}
	}

	// Registering the same metrics twice on one registry must fail.
	if _, err := NewPrometheusMetricsRecorder(reg); err == nil {
		t.Fatal("duplicate registration accepted")
	}
}

func TestExpvarMetricsRecorder(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	if rec.Name() == "" {
		t.Fatal("generated name is empty")
	}
	rec.Observe(context.Background(), "qc_trending", true, 100*time.Millisecond)
	rec.Observe(context.Background(), "qc_trending", true, 50*time.Millisecond)
	rec.Observe(context.Background(), "qc_trending", false, 10*time.Millisecond)
	rec.Observe(context.Background(), "", true, time.Second) // ignored

	snap := rec.Snapshot()
	if got := snap.DurationsMS["qc_trending"]; got != 160 {
		t.Fatalf("durations = %v ms, want 160", got)
	}
	if snap.Results["qc_trending"]["success"] != 2 || snap.Results["qc_trending"]["error"] != 1 {
		t.Fatalf("results = %+v", snap.Results)
	}
	if len(snap.DurationsMS) != 1 {
		t.Fatalf("empty family recorded: %+v", snap.DurationsMS)
	}
}
