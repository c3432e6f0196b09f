package parametric

import (
	"context"
	"fmt"
	"sort"
	"time"

	"labsynth/internal/registry"
	"labsynth/internal/synth"
	"labsynth/pkg/dataset"
)

// criticalValuesGenerator produces the critical_values family: 2500 critical
// result events with notification outcomes over the date range.
type criticalValuesGenerator struct {
	desc dataset.FamilyDescriptor
}

func (g *criticalValuesGenerator) Family() string { return g.desc.Name }

const criticalEventCount = 2500

var attemptWeights = []float64{0.7, 0.2, 0.08, 0.02}

func (g *criticalValuesGenerator) Generate(ctx context.Context, cfg synth.Config) (dataset.Instance, error) {
	if err := cfg.Validate(); err != nil {
		return dataset.Instance{}, err
	}
	if err := ctx.Err(); err != nil {
		return dataset.Instance{}, err
	}
	rng := synth.NewStream(cfg.Seed, 0)

	testWeights := make([]float64, len(registry.CriticalTests))
	for i, ct := range registry.CriticalTests {
		testWeights[i] = ct.Weight
	}
	unitWeights := make([]float64, len(registry.OrderingUnits))
	for i, u := range registry.OrderingUnits {
		unitWeights[i] = u.Weight
	}
	days := cfg.Days()

	type event struct {
		at  time.Time
		row map[string]any
	}
	events := make([]event, 0, criticalEventCount)

	for i := 0; i < criticalEventCount; i++ {
		day := cfg.Start.AddDate(0, 0, rng.IntN(days))
		at := day.Add(time.Duration(rng.IntN(24*60*60)) * time.Second)

		ct := registry.CriticalTests[rng.WeightedIndex(testWeights)]

		// 40% of events are low-critical when a low threshold exists;
		// single-sided tests always use their only threshold.
		var thresholdType string
		var threshold float64
		switch {
		case ct.Low != nil && ct.High != nil:
			if rng.Float64() < 0.4 {
				thresholdType, threshold = "low", *ct.Low
			} else {
				thresholdType, threshold = "high", *ct.High
			}
		case ct.Low != nil:
			thresholdType, threshold = "low", *ct.Low
		default:
			thresholdType, threshold = "high", *ct.High
		}
		var result float64
		if thresholdType == "low" {
			result = round2(threshold * rng.Uniform(0.6, 0.95))
		} else {
			result = round2(threshold * rng.Uniform(1.05, 1.5))
		}

		unit := registry.OrderingUnits[rng.WeightedIndex(unitWeights)].Name

		notified := rng.Bernoulli(0.96)
		minutes := 0.0
		attempts := 0
		within30 := false
		if notified {
			startDelay := rng.Uniform(1, 10)
			minutes = round2(startDelay + rng.Exponential(8))
			within30 = minutes <= 30
			attempts = rng.WeightedIndex(attemptWeights) + 1
		}

		events = append(events, event{at: at, row: map[string]any{
			"event_time":           at.Format(time.RFC3339),
			"test":                 ct.Test,
			"threshold_type":       thresholdType,
			"threshold_value":      threshold,
			"result_value":         result,
			"ordering_unit":        unit,
			"notified":             notified,
			"notification_minutes": minutes,
			"within_30_min":        within30,
			"attempts":             attempts,
		}})
	}

	sort.SliceStable(events, func(i, j int) bool { return events[i].at.Before(events[j].at) })

	table := newTable(g.desc, "events")
	for i, e := range events {
		e.row["event_id"] = fmt.Sprintf("CV-%06d", i+1)
		table.Rows = append(table.Rows, e.row)
	}

	return newInstance(g.desc, cfg, []dataset.Table{table}), nil
}
