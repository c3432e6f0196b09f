package parametric

import (
	"context"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"labsynth/internal/registry"
	"labsynth/internal/synth"
	"labsynth/pkg/dataset"
)

// qcTrendingGenerator produces the qc_trending family: daily QC results per
// (analyte, level, instrument) with Westgard flags and running control
// statistics. The running mean/SD/CV are cumulative over all results up to
// the row's date, not a sliding window; downstream consumers expect exactly
// that behaviour.
type qcTrendingGenerator struct {
	desc dataset.FamilyDescriptor
}

func (g *qcTrendingGenerator) Family() string { return g.desc.Name }

func (g *qcTrendingGenerator) Generate(ctx context.Context, cfg synth.Config) (dataset.Instance, error) {
	if err := cfg.Validate(); err != nil {
		return dataset.Instance{}, err
	}
	if err := ctx.Err(); err != nil {
		return dataset.Instance{}, err
	}
	rng := synth.NewStream(cfg.Seed, 0)

	results := newTable(g.desc, "results")
	for _, analyte := range registry.QCAnalytes {
		for _, level := range registry.QCLevels {
			target := registry.QCLevelTargets[level]
			for _, instrument := range registry.Instruments {
				// Expected SD is fixed per control group at 2-5% of target.
				expectedSD := round2(rng.Uniform(0.02, 0.05) * target)

				var history []float64
				cfg.EachDay(func(day time.Time) {
					sd := expectedSD
					// Occasional assay drift inflates dispersion.
					if rng.Float64() < 0.03 {
						sd *= 2.5
					}
					result := rng.Normal(target, sd)
					z := (result - target) / expectedSD

					history = append(history, result)
					mean, cumSD := stat.MeanStdDev(history, nil)
					if len(history) < 2 {
						cumSD = 0
					}
					cv := 0.0
					if mean != 0 {
						cv = cumSD / mean * 100
					}

					results.Rows = append(results.Rows, map[string]any{
						"date":            synth.FormatDate(day),
						"analyte":         analyte,
						"level":           level,
						"instrument":      instrument,
						"target_value":    target,
						"expected_sd":     expectedSD,
						"result":          result,
						"z_score":         z,
						"westgard_1_2s":   math.Abs(z) > 2,
						"westgard_1_3s":   math.Abs(z) > 3,
						"cumulative_mean": mean,
						"cumulative_sd":   cumSD,
						"cumulative_cv":   cv,
					})
				})
			}
		}
	}

	return newInstance(g.desc, cfg, []dataset.Table{results}), nil
}
