package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"labsynth/internal/blob/core"
	"labsynth/internal/infra/blob/memory"
	"labsynth/internal/infra/runlog"
	"labsynth/pkg/dataset"
)

func testOptions() Options {
	return Options{
		Seed:  7,
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
	}
}

func newTestOrchestrator(store core.Store, runs runlog.Store) *Orchestrator {
	return New(store, runs, nil, zerolog.Nop())
}

func readKey(t *testing.T, store core.Store, key string) []byte {
	t.Helper()
	_, rc, err := store.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("get %s: %v", key, err)
	}
	defer rc.Close()
	body, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read %s: %v", key, err)
	}
	return body
}

func TestRunGeneratesAndPersists(t *testing.T) {
	store := memory.New()
	runs := runlog.NewMemoryStore()
	o := newTestOrchestrator(store, runs)

	opts := testOptions()
	opts.Families = []string{"activity_volume"}
	report, err := o.Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !report.OK() {
		t.Fatalf("run failed: %+v", report.Failed())
	}
	if len(report.Families) != 1 {
		t.Fatalf("family results = %d, want 1", len(report.Families))
	}
	fr := report.Families[0]
	if fr.Status != StatusSuccess || fr.Rows == 0 || fr.Tables == 0 {
		t.Fatalf("unexpected result: %+v", fr)
	}
	// Every table gets CSV, JSON, and the family one manifest.
	if want := fr.Tables*2 + 1; len(fr.Artifacts) != want {
		t.Fatalf("artifacts = %d, want %d: %v", len(fr.Artifacts), want, fr.Artifacts)
	}
	for _, key := range fr.Artifacts {
		if _, err := store.Head(context.Background(), key); err != nil {
			t.Errorf("head %s: %v", key, err)
		}
	}

	var man manifest
	if err := json.Unmarshal(readKey(t, store, "activity_volume/manifest.json"), &man); err != nil {
		t.Fatalf("decode manifest: %v", err)
	}
	if man.RunID != report.RunID || man.Seed != 7 || len(man.Tables) != fr.Tables {
		t.Fatalf("manifest provenance mismatch: %+v", man)
	}

	recorded, err := runs.List(context.Background())
	if err != nil || len(recorded) != 1 {
		t.Fatalf("run log entries = %d (err %v), want 1", len(recorded), err)
	}
	if recorded[0].ID != report.RunID || recorded[0].Families[0].Status != runlog.StatusSuccess {
		t.Fatalf("recorded run mismatch: %+v", recorded[0])
	}
}

func TestRunUnknownFamilyFailsIndividually(t *testing.T) {
	store := memory.New()
	o := newTestOrchestrator(store, nil)

	opts := testOptions()
	opts.Families = []string{"activity_volume", "billing"}
	report, err := o.Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.OK() {
		t.Fatal("run with unknown family reported OK")
	}

	byName := map[string]FamilyResult{}
	for _, fr := range report.Families {
		byName[fr.Family] = fr
	}
	if byName["activity_volume"].Status != StatusSuccess {
		t.Fatalf("known family did not succeed: %+v", byName["activity_volume"])
	}
	bad := byName["billing"]
	if bad.Status != StatusFailure || !errors.Is(bad.Err, dataset.ErrUnknownFamily) {
		t.Fatalf("unknown family result: %+v", bad)
	}

	stray, err := store.List(context.Background(), "billing/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stray) != 0 {
		t.Fatalf("failed family persisted %d artifacts", len(stray))
	}
}

func TestRunRejectsBadConfiguration(t *testing.T) {
	o := newTestOrchestrator(memory.New(), nil)

	t.Run("reversed range", func(t *testing.T) {
		opts := testOptions()
		opts.Start, opts.End = opts.End, opts.Start
		_, err := o.Run(context.Background(), opts)
		if !errors.Is(err, dataset.ErrInvalidConfiguration) {
			t.Fatalf("err = %v, want ErrInvalidConfiguration", err)
		}
	})

	t.Run("unknown mode", func(t *testing.T) {
		opts := testOptions()
		opts.Mode = "quantum"
		_, err := o.Run(context.Background(), opts)
		if !errors.Is(err, dataset.ErrInvalidConfiguration) {
			t.Fatalf("err = %v, want ErrInvalidConfiguration", err)
		}
	})
}

func TestRunModelBasedWithoutSourceFails(t *testing.T) {
	o := newTestOrchestrator(memory.New(), nil)
	opts := testOptions()
	opts.Mode = dataset.ModeModelBased
	opts.Families = []string{"critical_values"}

	report, err := o.Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	fr := report.Families[0]
	if fr.Status != StatusFailure || !errors.Is(fr.Err, dataset.ErrInvalidConfiguration) {
		t.Fatalf("missing source result: %+v", fr)
	}
}

func TestRunCancelledContextSkipsFamilies(t *testing.T) {
	store := memory.New()
	o := newTestOrchestrator(store, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opts := testOptions()
	opts.Families = []string{"activity_volume", "incidents"}
	report, err := o.Run(ctx, opts)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, fr := range report.Families {
		if fr.Status != StatusSkipped {
			t.Fatalf("family %s status = %s, want skipped", fr.Family, fr.Status)
		}
	}
	infos, err := store.List(context.Background(), "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 0 {
		t.Fatalf("skipped run persisted %d artifacts", len(infos))
	}
}

func TestRunDefaults(t *testing.T) {
	o := newTestOrchestrator(memory.New(), nil)
	opts := testOptions()
	opts.Seed = 0
	opts.Families = []string{"incidents"}

	report, err := o.Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Seed != 42 {
		t.Fatalf("default seed = %d, want 42", report.Seed)
	}
	if report.Mode != dataset.ModeParametric {
		t.Fatalf("default mode = %s, want parametric", report.Mode)
	}
}

func TestRunReportOrderFollowsRegistry(t *testing.T) {
	o := newTestOrchestrator(memory.New(), nil)
	opts := testOptions()
	opts.Families = []string{"incidents", "activity_volume", "critical_values"}

	report, err := o.Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	got := make([]string, len(report.Families))
	for i, fr := range report.Families {
		got[i] = fr.Family
	}
	want := []string{"activity_volume", "critical_values", "incidents"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("report order = %v, want %v", got, want)
		}
	}
}

func TestRunReproducibleArtifacts(t *testing.T) {
	opts := testOptions()
	opts.Families = []string{"critical_values"}

	render := func() map[string][]byte {
		store := memory.New()
		o := newTestOrchestrator(store, nil)
		report, err := o.Run(context.Background(), opts)
		if err != nil || !report.OK() {
			t.Fatalf("run: err=%v failed=%+v", err, report.Failed())
		}
		out := map[string][]byte{}
		for _, key := range report.Families[0].Artifacts {
			if strings.HasSuffix(key, "manifest.json") {
				continue // carries the run id
			}
			out[key] = readKey(t, store, key)
		}
		return out
	}

	first := render()
	second := render()
	if len(first) == 0 || len(first) != len(second) {
		t.Fatalf("artifact sets differ: %d vs %d", len(first), len(second))
	}
	for key, body := range first {
		if !bytes.Equal(body, second[key]) {
			t.Fatalf("artifact %s differs between identically seeded runs", key)
		}
	}
}
