package parametric

import (
	"context"
	"math"

	"labsynth/internal/registry"
	"labsynth/internal/synth"
	"labsynth/pkg/dataset"
)

// utilizationGenerator produces the utilization family: per-department
// ordering patterns over a sampled test subset, plus the send-out sub-table.
type utilizationGenerator struct {
	desc dataset.FamilyDescriptor
}

func (g *utilizationGenerator) Family() string { return g.desc.Name }

// testsPerDepartment is the size of the sampled test subset per (month, department).
const testsPerDepartment = 8

func volumeClass(orderCount int) string {
	switch {
	case orderCount > 200:
		return "High"
	case orderCount > 50:
		return "Medium"
	default:
		return "Low"
	}
}

func (g *utilizationGenerator) Generate(ctx context.Context, cfg synth.Config) (dataset.Instance, error) {
	if err := cfg.Validate(); err != nil {
		return dataset.Instance{}, err
	}
	if err := ctx.Err(); err != nil {
		return dataset.Instance{}, err
	}
	rng := synth.NewStream(cfg.Seed, 0)
	allTests := registry.AllTests()

	orders := newTable(g.desc, "orders")
	for _, m := range cfg.Months() {
		for _, dept := range registry.OrderingUnits {
			perm := rng.Perm(len(allTests))
			for i := 0; i < testsPerDepartment && i < len(perm); i++ {
				test := allTests[perm[i]]
				orderCount := rng.UniformInt(10, 300)
				// Duplicate rate is drawn, the count derived from it, and the
				// stored rate recomputed from the count so the derivation
				// invariant holds exactly.
				drawnRate := rng.Uniform(2, 15)
				duplicates := countOf(float64(orderCount) * drawnRate / 100)
				orders.Rows = append(orders.Rows, map[string]any{
					"month":                 synth.FormatMonth(m),
					"department":            dept.Name,
					"test":                  test,
					"order_count":           orderCount,
					"duplicate_count":       duplicates,
					"duplicate_rate":        rate100(duplicates, orderCount),
					"guideline_appropriate": rng.Bernoulli(0.85),
					"volume_class":          volumeClass(orderCount),
				})
			}
		}
	}

	sendOuts := newTable(g.desc, "send_outs")
	for _, m := range cfg.Months() {
		for _, test := range registry.SendOutTests {
			count := rng.UniformInt(1, 40)
			costPerTest := round2(rng.Uniform(50, 400))
			sendOuts.Rows = append(sendOuts.Rows, map[string]any{
				"month":         synth.FormatMonth(m),
				"test":          test,
				"reference_lab": registry.ReferenceLabs[rng.IntN(len(registry.ReferenceLabs))],
				"sendout_count": count,
				"cost_per_test": costPerTest,
				"total_cost":    round2(float64(count) * costPerTest),
				"avg_tat_days":  math.Round(rng.Uniform(3, 14)*10) / 10,
			})
		}
	}

	return newInstance(g.desc, cfg, []dataset.Table{orders, sendOuts}), nil
}
