package parametric

import (
	"context"

	"labsynth/internal/registry"
	"labsynth/internal/synth"
	"labsynth/pkg/dataset"
)

// scorecardGenerator produces the executive_scorecard family: each metric is
// a monthly cumulative-sum random walk clipped to its realistic band, with a
// target-distance status and an overall weighted score.
type scorecardGenerator struct {
	desc dataset.FamilyDescriptor
}

func (g *scorecardGenerator) Family() string { return g.desc.Name }

// metricStatus grades a value against its target: within target is Green,
// within 5% relative shortfall is Yellow, beyond that Red.
func metricStatus(m registry.ScorecardMetric, value float64) string {
	var shortfall float64
	if m.LowerIsBetter {
		shortfall = (value - m.Target) / m.Target
	} else {
		shortfall = (m.Target - value) / m.Target
	}
	switch {
	case shortfall <= 0:
		return "Green"
	case shortfall <= 0.05:
		return "Yellow"
	default:
		return "Red"
	}
}

// metricScore normalises a metric to a 0-100 contribution, inverting
// lower-is-better metrics.
func metricScore(m registry.ScorecardMetric, value float64) float64 {
	switch {
	case m.LowerIsBetter:
		return clip(m.Target/value*100, 0, 100)
	case m.Normalise:
		return clip(value/m.Target*100, 0, 100)
	default:
		return clip(value, 0, 100)
	}
}

func (g *scorecardGenerator) Generate(ctx context.Context, cfg synth.Config) (dataset.Instance, error) {
	if err := cfg.Validate(); err != nil {
		return dataset.Instance{}, err
	}
	if err := ctx.Err(); err != nil {
		return dataset.Instance{}, err
	}
	rng := synth.NewStream(cfg.Seed, 0)
	months := cfg.Months()

	// Walks are generated metric-by-metric so each metric's draws form a
	// contiguous, reproducible block of the stream.
	walks := make(map[string][]float64, len(registry.ScorecardMetrics))
	for _, m := range registry.ScorecardMetrics {
		values := make([]float64, len(months))
		v := m.Start
		for i := range months {
			v = clip(v+rng.Normal(0, m.StepSD), m.Min, m.Max)
			values[i] = round2(v)
		}
		walks[m.Name] = values
	}

	metrics := newTable(g.desc, "metrics")
	summary := newTable(g.desc, "summary")
	for i, month := range months {
		var overall float64
		for _, m := range registry.ScorecardMetrics {
			value := walks[m.Name][i]
			metrics.Rows = append(metrics.Rows, map[string]any{
				"month":  synth.FormatMonth(month),
				"metric": m.Name,
				"value":  value,
				"target": m.Target,
				"status": metricStatus(m, value),
			})
			overall += m.Weight * metricScore(m, value)
		}
		summary.Rows = append(summary.Rows, map[string]any{
			"month":         synth.FormatMonth(month),
			"overall_score": round2(overall),
		})
	}

	return newInstance(g.desc, cfg, []dataset.Table{metrics, summary}), nil
}
