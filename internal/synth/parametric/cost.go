package parametric

import (
	"context"

	"labsynth/internal/registry"
	"labsynth/internal/synth"
	"labsynth/pkg/dataset"
)

// costGenerator produces the cost_analysis family: a per-test cost reference
// table, a monthly expansion applying volume growth and cost inflation, and
// exact section-level rollups. Rollups are sums of the monthly rows, never
// independently sampled.
type costGenerator struct {
	desc dataset.FamilyDescriptor
}

func (g *costGenerator) Family() string { return g.desc.Name }

type testCost struct {
	test          string
	section       string
	total         float64
	reimbursement float64
	baseVolume    int
}

func (g *costGenerator) Generate(ctx context.Context, cfg synth.Config) (dataset.Instance, error) {
	if err := cfg.Validate(); err != nil {
		return dataset.Instance{}, err
	}
	if err := ctx.Err(); err != nil {
		return dataset.Instance{}, err
	}
	rng := synth.NewStream(cfg.Seed, 0)

	costs := newTable(g.desc, "test_costs")
	var ref []testCost
	for _, section := range registry.Sections {
		for _, category := range section.Categories {
			for _, test := range registry.TestsByCategory[category] {
				reagent := round2(rng.Uniform(1.5, 12))
				labor := round2(rng.Uniform(2, 8))
				overhead := round2(rng.Uniform(1, 5))
				total := round2(reagent + labor + overhead)
				reimbursement := round2(total * rng.Uniform(1.1, 1.8))
				baseVolume := rng.UniformInt(100, 3000)

				costs.Rows = append(costs.Rows, map[string]any{
					"test":          test,
					"section":       section.Code,
					"reagent_cost":  reagent,
					"labor_cost":    labor,
					"overhead_cost": overhead,
					"total_cost":    total,
					"reimbursement": reimbursement,
				})
				ref = append(ref, testCost{
					test:          test,
					section:       section.Code,
					total:         total,
					reimbursement: reimbursement,
					baseVolume:    baseVolume,
				})
			}
		}
	}

	type rollup struct {
		volume  int
		expense float64
		revenue float64
	}
	type rollupKey struct{ month, section string }
	rollups := make(map[rollupKey]*rollup)
	var rollupOrder []rollupKey

	monthly := newTable(g.desc, "monthly")
	for _, m := range cfg.Months() {
		years := yearsSince(cfg.Start, m)
		volumeFactor := 1 + 0.03*years
		inflation := 1 + 0.02*years
		for _, tc := range ref {
			volume := countOf(float64(tc.baseVolume) * volumeFactor)
			costPerTest := round2(tc.total * inflation)
			reimbPerTest := round2(tc.reimbursement * inflation)
			expense := round2(float64(volume) * costPerTest)
			revenue := round2(float64(volume) * reimbPerTest)
			margin := round2(revenue - expense)

			monthly.Rows = append(monthly.Rows, map[string]any{
				"month":                  synth.FormatMonth(m),
				"section":                tc.section,
				"test":                   tc.test,
				"volume":                 volume,
				"cost_per_test":          costPerTest,
				"reimbursement_per_test": reimbPerTest,
				"expense":                expense,
				"revenue":                revenue,
				"margin":                 margin,
			})

			key := rollupKey{synth.FormatMonth(m), tc.section}
			r, ok := rollups[key]
			if !ok {
				r = &rollup{}
				rollups[key] = r
				rollupOrder = append(rollupOrder, key)
			}
			r.volume += volume
			r.expense = round2(r.expense + expense)
			r.revenue = round2(r.revenue + revenue)
		}
	}

	summary := newTable(g.desc, "section_summary")
	for _, key := range rollupOrder {
		r := rollups[key]
		costPerTest := 0.0
		if r.volume > 0 {
			costPerTest = round2(r.expense / float64(r.volume))
		}
		summary.Rows = append(summary.Rows, map[string]any{
			"month":         key.month,
			"section":       key.section,
			"total_volume":  r.volume,
			"total_expense": r.expense,
			"total_revenue": r.revenue,
			"margin":        round2(r.revenue - r.expense),
			"cost_per_test": costPerTest,
		})
	}

	return newInstance(g.desc, cfg, []dataset.Table{costs, monthly, summary}), nil
}
