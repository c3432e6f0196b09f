// Package orchestrator coordinates multi-family generation runs: it fans the
// requested families out across workers, validates and persists the results,
// and reports per-family outcomes so one failed family never aborts the rest.
package orchestrator

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"labsynth/internal/blob/core"
	"labsynth/internal/infra/runlog"
	"labsynth/internal/registry"
	"labsynth/internal/synth"
	"labsynth/internal/synth/modelbased"
	"labsynth/internal/synth/parametric"
	"labsynth/internal/validation"
	"labsynth/pkg/dataset"
)

// ValidationPolicy decides what a validation violation does to a family.
type ValidationPolicy string

const (
	// ValidationStrict fails the family; nothing is persisted for it.
	ValidationStrict ValidationPolicy = "strict"
	// ValidationWarn logs the violations and persists the family anyway.
	ValidationWarn ValidationPolicy = "warn"
)

// Family outcome states reported by Run.
const (
	StatusSuccess = runlog.StatusSuccess
	StatusFailure = runlog.StatusFailure
	StatusSkipped = runlog.StatusSkipped
)

// Options configures one generation run.
type Options struct {
	Mode  dataset.Mode
	Seed  int64
	Start time.Time
	End   time.Time
	// Families restricts the run to a subset; empty means every registered
	// family. Unknown names fail individually without aborting the run.
	Families   []string
	Validation ValidationPolicy
	// Sources supplies per-family source tables for model-based runs.
	Sources map[string]modelbased.Source
	// SampleRows overrides the model-based per-table sample size.
	SampleRows int
}

// FamilyResult is the outcome of one family within a run.
type FamilyResult struct {
	Family    string
	Status    string
	Err       error
	Rows      int
	Tables    int
	Artifacts []string
	Duration  time.Duration
}

// Report summarises a whole run.
type Report struct {
	RunID      string
	Mode       dataset.Mode
	Seed       int64
	Start      time.Time
	End        time.Time
	StartedAt  time.Time
	FinishedAt time.Time
	Families   []FamilyResult
}

// OK reports whether every family succeeded.
func (r Report) OK() bool {
	for _, fr := range r.Families {
		if fr.Status != StatusSuccess {
			return false
		}
	}
	return true
}

// Failed returns the families that did not succeed.
func (r Report) Failed() []FamilyResult {
	var out []FamilyResult
	for _, fr := range r.Families {
		if fr.Status != StatusSuccess {
			out = append(out, fr)
		}
	}
	return out
}

// Orchestrator runs generation across families and persists the artifacts.
type Orchestrator struct {
	artifacts core.Store
	runs      runlog.Store
	engine    *validation.Engine
	metrics   MetricsRecorder
	log       zerolog.Logger
}

// New constructs an orchestrator. runs and metrics may be nil; a memory run
// log and a no-op recorder are used in that case.
func New(artifacts core.Store, runs runlog.Store, metrics MetricsRecorder, log zerolog.Logger) *Orchestrator {
	if runs == nil {
		runs = runlog.NewMemoryStore()
	}
	if metrics == nil {
		metrics = NoopMetricsRecorder{}
	}
	return &Orchestrator{
		artifacts: artifacts,
		runs:      runs,
		engine:    validation.NewEngine(),
		metrics:   metrics,
		log:       log,
	}
}

// Run executes one generation run. Configuration errors that predate any
// generation (bad mode, bad date range) abort the whole run; everything after
// that is partial-failure: each family succeeds or fails on its own.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (Report, error) {
	if opts.Seed == 0 {
		opts.Seed = 42
	}
	if opts.Validation == "" {
		opts.Validation = ValidationStrict
	}
	if opts.Mode == "" {
		opts.Mode = dataset.ModeParametric
	}
	if opts.Mode != dataset.ModeParametric && opts.Mode != dataset.ModeModelBased {
		return Report{}, fmt.Errorf("%w: unknown mode %q", dataset.ErrInvalidConfiguration, opts.Mode)
	}
	if err := (synth.Config{Start: opts.Start, End: opts.End, Seed: opts.Seed}).Validate(); err != nil {
		return Report{}, err
	}
	families := opts.Families
	if len(families) == 0 {
		families = registry.FamilyNames()
	}

	report := Report{
		RunID:     uuid.NewString(),
		Mode:      opts.Mode,
		Seed:      opts.Seed,
		Start:     opts.Start,
		End:       opts.End,
		StartedAt: time.Now().UTC(),
		Families:  make([]FamilyResult, len(families)),
	}
	log := o.log.With().Str("run_id", report.RunID).Str("mode", string(opts.Mode)).Int64("seed", opts.Seed).Logger()
	log.Info().Strs("families", families).Time("start", opts.Start).Time("end", opts.End).Msg("generation run started")

	var wg sync.WaitGroup
	for i, family := range families {
		wg.Add(1)
		go func(i int, family string) {
			defer wg.Done()
			report.Families[i] = o.runFamily(ctx, log, report.RunID, family, opts)
		}(i, family)
	}
	wg.Wait()
	report.FinishedAt = time.Now().UTC()

	sort.SliceStable(report.Families, func(i, j int) bool {
		oi, erri := registry.FamilyOffset(report.Families[i].Family)
		oj, errj := registry.FamilyOffset(report.Families[j].Family)
		if erri != nil || errj != nil {
			return report.Families[i].Family < report.Families[j].Family
		}
		return oi < oj
	})

	if err := o.recordRun(ctx, report); err != nil {
		log.Error().Err(err).Msg("record run")
	}
	log.Info().Bool("ok", report.OK()).Dur("elapsed", report.FinishedAt.Sub(report.StartedAt)).Msg("generation run finished")
	return report, nil
}

func (o *Orchestrator) runFamily(ctx context.Context, log zerolog.Logger, runID, family string, opts Options) FamilyResult {
	started := time.Now()
	result := func(status string, err error, rows, tables int, artifacts []string) FamilyResult {
		fr := FamilyResult{
			Family:    family,
			Status:    status,
			Err:       err,
			Rows:      rows,
			Tables:    tables,
			Artifacts: artifacts,
			Duration:  time.Since(started),
		}
		o.metrics.Observe(ctx, family, status == StatusSuccess, fr.Duration)
		switch status {
		case StatusSuccess:
			log.Info().Str("family", family).Int("rows", rows).Dur("elapsed", fr.Duration).Msg("family generated")
		case StatusSkipped:
			log.Warn().Str("family", family).Msg("family skipped")
		default:
			log.Error().Str("family", family).Err(err).Msg("family failed")
		}
		return fr
	}

	if err := ctx.Err(); err != nil {
		return result(StatusSkipped, err, 0, 0, nil)
	}

	gen, err := o.generator(family, opts)
	if err != nil {
		return result(StatusFailure, err, 0, 0, nil)
	}
	offset, err := registry.FamilyOffset(family)
	if err != nil {
		return result(StatusFailure, err, 0, 0, nil)
	}
	cfg := synth.Config{Start: opts.Start, End: opts.End, Seed: opts.Seed + offset}

	instance, err := gen.Generate(ctx, cfg)
	if err != nil {
		return result(StatusFailure, err, 0, 0, nil)
	}

	desc, err := registry.Family(family)
	if err != nil {
		return result(StatusFailure, err, 0, 0, nil)
	}
	if res := o.engine.Validate(desc, instance); !res.OK() {
		if opts.Validation == ValidationStrict {
			return result(StatusFailure, res.Error(), 0, 0, nil)
		}
		log.Warn().Str("family", family).Int("violations", len(res.Violations)).Msg("validation violations tolerated")
	}

	rows := 0
	for _, t := range instance.Tables {
		rows += len(t.Rows)
	}
	artifacts, err := o.persist(ctx, runID, instance)
	if err != nil {
		return result(StatusFailure, fmt.Errorf("%w: %v", dataset.ErrPersistenceFailure, err), rows, len(instance.Tables), nil)
	}
	return result(StatusSuccess, nil, rows, len(instance.Tables), artifacts)
}

func (o *Orchestrator) generator(family string, opts Options) (synth.Generator, error) {
	if opts.Mode == dataset.ModeParametric {
		return parametric.New(family)
	}
	source, ok := opts.Sources[family]
	if !ok {
		return nil, fmt.Errorf("%w: no source configured for family %s", dataset.ErrInvalidConfiguration, family)
	}
	gen, err := modelbased.NewGenerator(family, source)
	if err != nil {
		return nil, err
	}
	gen.SampleRows = opts.SampleRows
	return gen, nil
}

// persist renders every table as CSV and JSON and writes them plus a
// provenance manifest through the artifact store.
func (o *Orchestrator) persist(ctx context.Context, runID string, in dataset.Instance) ([]string, error) {
	meta := map[string]string{
		"run_id": runID,
		"family": in.Family,
		"mode":   string(in.Mode),
		"seed":   fmt.Sprintf("%d", in.Seed),
	}
	man := manifest{RunID: runID, Family: in.Family, Mode: in.Mode, Seed: in.Seed, GeneratedAt: in.GeneratedAt}
	var keys []string
	for _, t := range in.Tables {
		csvBody, err := renderCSV(t)
		if err != nil {
			return nil, fmt.Errorf("render %s csv: %w", t.Name, err)
		}
		jsonBody, err := renderJSON(t)
		if err != nil {
			return nil, fmt.Errorf("render %s json: %w", t.Name, err)
		}
		mt := manifestTable{Name: t.Name, Rows: len(t.Rows)}
		for _, artifact := range []struct {
			format      dataset.Format
			body        []byte
			contentType string
		}{
			{dataset.FormatCSV, csvBody, "text/csv"},
			{dataset.FormatJSON, jsonBody, "application/json"},
		} {
			key := artifactKey(in.Family, t.Name, artifact.format)
			if _, err := o.artifacts.Put(ctx, key, bytes.NewReader(artifact.body), core.PutOptions{ContentType: artifact.contentType, Metadata: meta}); err != nil {
				return nil, fmt.Errorf("store %s: %w", key, err)
			}
			keys = append(keys, key)
			mt.Artifacts = append(mt.Artifacts, key)
		}
		man.Tables = append(man.Tables, mt)
	}
	manBody, err := renderManifest(man)
	if err != nil {
		return nil, err
	}
	key := manifestKey(in.Family)
	if _, err := o.artifacts.Put(ctx, key, bytes.NewReader(manBody), core.PutOptions{ContentType: "application/json", Metadata: meta}); err != nil {
		return nil, fmt.Errorf("store %s: %w", key, err)
	}
	keys = append(keys, key)
	return keys, nil
}

func (o *Orchestrator) recordRun(ctx context.Context, report Report) error {
	run := runlog.Run{
		ID:         report.RunID,
		Mode:       string(report.Mode),
		Seed:       report.Seed,
		Start:      report.Start.Format("2006-01-02"),
		End:        report.End.Format("2006-01-02"),
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
	}
	for _, fr := range report.Families {
		rec := runlog.FamilyRecord{Family: fr.Family, Status: fr.Status, Rows: fr.Rows, Tables: fr.Tables, Duration: fr.Duration}
		if fr.Err != nil {
			rec.Error = fr.Err.Error()
		}
		run.Families = append(run.Families, rec)
	}
	return o.runs.Record(ctx, run)
}
