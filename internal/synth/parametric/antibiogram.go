package parametric

import (
	"context"
	"math"

	"labsynth/internal/registry"
	"labsynth/internal/synth"
	"labsynth/pkg/dataset"
)

// antibiogramGenerator produces the antibiogram family: a base
// organism/antibiotic susceptibility table encoding known clinical
// patterns, expanded quarterly with a small resistance trend. The resistant
// count is always the remainder isolate - susceptible - intermediate and can
// never go negative.
type antibiogramGenerator struct {
	desc dataset.FamilyDescriptor
}

func (g *antibiogramGenerator) Family() string { return g.desc.Name }

func (g *antibiogramGenerator) Generate(ctx context.Context, cfg synth.Config) (dataset.Instance, error) {
	if err := cfg.Validate(); err != nil {
		return dataset.Instance{}, err
	}
	if err := ctx.Err(); err != nil {
		return dataset.Instance{}, err
	}
	rng := synth.NewStream(cfg.Seed, 0)

	// Base susceptibility per pair: intrinsic resistance forces 0 and marks
	// the pair untested; explicit overrides encode known patterns; everything
	// else draws from the default band.
	type pair struct{ organism, antibiotic string }
	base := make(map[pair]float64)
	for _, organism := range registry.Organisms {
		for _, antibiotic := range registry.Antibiotics {
			if registry.IsIntrinsicResistant(organism, antibiotic) {
				base[pair{organism, antibiotic}] = 0
				continue
			}
			if override, ok := registry.SusceptibilityOverride(organism, antibiotic); ok {
				base[pair{organism, antibiotic}] = override
				continue
			}
			base[pair{organism, antibiotic}] = rng.Uniform(0.6, 0.95)
		}
	}

	table := newTable(g.desc, "susceptibility")
	for _, q := range cfg.Quarters() {
		years := yearsSince(cfg.Start, q)
		for _, organism := range registry.Organisms {
			for _, antibiotic := range registry.Antibiotics {
				if registry.IsIntrinsicResistant(organism, antibiotic) {
					table.Rows = append(table.Rows, map[string]any{
						"quarter":             synth.FormatQuarter(q),
						"organism":            organism,
						"antibiotic":          antibiotic,
						"tested":              false,
						"susceptibility_rate": 0.0,
						"isolate_count":       0,
						"susceptible_count":   0,
						"intermediate_count":  0,
						"resistant_count":     0,
					})
					continue
				}

				rate := base[pair{organism, antibiotic}]
				if registry.TrendedAntibiotics[antibiotic] {
					rate -= 0.02 * years
				}
				rate = clip(rate+rng.Normal(0, 0.03), 0, 1)

				isolates := rng.UniformInt(10, 150)
				susceptible := int(math.Round(rate * float64(isolates)))
				intermediate := int(math.Round(0.04 * float64(isolates)))
				if susceptible+intermediate > isolates {
					intermediate = isolates - susceptible
				}
				resistant := isolates - susceptible - intermediate

				table.Rows = append(table.Rows, map[string]any{
					"quarter":             synth.FormatQuarter(q),
					"organism":            organism,
					"antibiotic":          antibiotic,
					"tested":              true,
					"susceptibility_rate": rate,
					"isolate_count":       isolates,
					"susceptible_count":   susceptible,
					"intermediate_count":  intermediate,
					"resistant_count":     resistant,
				})
			}
		}
	}

	return newInstance(g.desc, cfg, []dataset.Table{table}), nil
}
