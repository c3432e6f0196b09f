package parametric

import (
	"context"

	"labsynth/internal/registry"
	"labsynth/internal/synth"
	"labsynth/pkg/dataset"
)

// qualityGenerator produces the quality_indicators family: three
// independently-sampled phase tables per (month, section) plus a derived
// composite summary. All rate columns are recomputed from counts, never
// drawn directly.
type qualityGenerator struct {
	desc dataset.FamilyDescriptor
}

func (g *qualityGenerator) Family() string { return g.desc.Name }

// preanalyticalError pairs a count column with its mean and SD rates.
type preanalyticalError struct {
	column   string
	meanRate float64
	sdRate   float64
}

var preanalyticalErrors = []preanalyticalError{
	{column: "rejected_count", meanRate: 0.008, sdRate: 0.0015},
	{column: "hemolyzed_count", meanRate: 0.015, sdRate: 0.003},
	{column: "mislabeled_count", meanRate: 0.0008, sdRate: 0.0002},
	{column: "missing_count", meanRate: 0.0005, sdRate: 0.00015},
	{column: "inadequate_volume_count", meanRate: 0.012, sdRate: 0.0025},
}

func rate100(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total) * 100
}

func (g *qualityGenerator) Generate(ctx context.Context, cfg synth.Config) (dataset.Instance, error) {
	if err := cfg.Validate(); err != nil {
		return dataset.Instance{}, err
	}
	if err := ctx.Err(); err != nil {
		return dataset.Instance{}, err
	}
	rng := synth.NewStream(cfg.Seed, 0)
	months := cfg.Months()

	type cellKey struct{ month, section string }
	rejection := make(map[cellKey]float64)
	qcPass := make(map[cellKey]float64)
	tat := make(map[cellKey]float64)
	criticalNotif := make(map[cellKey]float64)
	amendment := make(map[cellKey]float64)

	pre := newTable(g.desc, "preanalytical")
	for _, m := range months {
		for _, section := range registry.Sections {
			total := rng.UniformInt(8000, 15000)
			row := map[string]any{
				"month":           synth.FormatMonth(m),
				"section":         section.Code,
				"total_specimens": total,
			}
			for _, e := range preanalyticalErrors {
				count := clampCount(rng.Normal(e.meanRate*float64(total), e.sdRate*float64(total)), total)
				row[e.column] = count
				switch e.column {
				case "rejected_count":
					row["rejection_rate"] = rate100(count, total)
					rejection[cellKey{synth.FormatMonth(m), section.Code}] = rate100(count, total)
				case "hemolyzed_count":
					row["hemolysis_rate"] = rate100(count, total)
				case "mislabeled_count":
					row["mislabeling_rate"] = rate100(count, total)
				case "missing_count":
					row["missing_rate"] = rate100(count, total)
				case "inadequate_volume_count":
					row["inadequate_volume_rate"] = rate100(count, total)
				}
			}
			pre.Rows = append(pre.Rows, row)
		}
	}

	analytical := newTable(g.desc, "analytical")
	for _, m := range months {
		for _, section := range registry.Sections {
			qcEvents := rng.UniformInt(500, 1500)
			qcPassCount := clampCount(rng.Normal(0.97, 0.01)*float64(qcEvents), qcEvents)
			results := rng.UniformInt(15000, 40000)
			autoValidated := clampCount(rng.Normal(0.82, 0.05)*float64(results), results)
			reruns := clampCount(rng.Normal(0.02, 0.005)*float64(results), results)

			key := cellKey{synth.FormatMonth(m), section.Code}
			qcPass[key] = rate100(qcPassCount, qcEvents)

			analytical.Rows = append(analytical.Rows, map[string]any{
				"month":                synth.FormatMonth(m),
				"section":              section.Code,
				"qc_events":            qcEvents,
				"qc_pass_count":        qcPassCount,
				"qc_pass_rate":         rate100(qcPassCount, qcEvents),
				"results_reported":     results,
				"auto_validated_count": autoValidated,
				"auto_validation_rate": rate100(autoValidated, results),
				"rerun_count":          reruns,
				"rerun_rate":           rate100(reruns, results),
			})
		}
	}

	post := newTable(g.desc, "postanalytical")
	for _, m := range months {
		for _, section := range registry.Sections {
			results := rng.UniformInt(15000, 40000)
			tatWithin := clampCount(rng.Normal(0.92, 0.03)*float64(results), results)
			criticalCount := rng.UniformInt(80, 300)
			criticalNotified := clampCount(rng.Normal(0.96, 0.02)*float64(criticalCount), criticalCount)
			amended := clampCount(rng.Normal(0.003, 0.001)*float64(results), results)
			corrected := clampCount(rng.Normal(0.0008, 0.0003)*float64(results), results)

			key := cellKey{synth.FormatMonth(m), section.Code}
			tat[key] = rate100(tatWithin, results)
			criticalNotif[key] = rate100(criticalNotified, criticalCount)
			amendment[key] = rate100(amended, results)

			post.Rows = append(post.Rows, map[string]any{
				"month":                      synth.FormatMonth(m),
				"section":                    section.Code,
				"results_reported":           results,
				"tat_within_target":          tatWithin,
				"tat_compliance_rate":        rate100(tatWithin, results),
				"critical_values_count":      criticalCount,
				"critical_notified_count":    criticalNotified,
				"critical_notification_rate": rate100(criticalNotified, criticalCount),
				"amended_count":              amended,
				"amendment_rate":             rate100(amended, results),
				"corrected_count":            corrected,
				"correction_rate":            rate100(corrected, results),
			})
		}
	}

	// Composite index over the five sub-rates; rejection and amendment are
	// inverted so that higher is always better.
	summary := newTable(g.desc, "summary")
	for _, m := range months {
		for _, section := range registry.Sections {
			key := cellKey{synth.FormatMonth(m), section.Code}
			index := 0.20*(100-rejection[key]) +
				0.25*criticalNotif[key] +
				0.25*tat[key] +
				0.15*(100-amendment[key]) +
				0.15*qcPass[key]
			summary.Rows = append(summary.Rows, map[string]any{
				"month":                      key.month,
				"section":                    key.section,
				"rejection_rate":             rejection[key],
				"critical_notification_rate": criticalNotif[key],
				"tat_compliance_rate":        tat[key],
				"amendment_rate":             amendment[key],
				"qc_pass_rate":               qcPass[key],
				"quality_index":              clip(index, 0, 100),
			})
		}
	}

	return newInstance(g.desc, cfg, []dataset.Table{pre, analytical, post, summary}), nil
}
