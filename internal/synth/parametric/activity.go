package parametric

import (
	"context"
	"time"

	"labsynth/internal/registry"
	"labsynth/internal/synth"
	"labsynth/pkg/dataset"
)

// activityGenerator produces the activity_volume family: daily volumes per
// section built from a chain of multiplicative effects, category splits, and
// exact weekly aggregates.
type activityGenerator struct {
	desc dataset.FamilyDescriptor
}

func (g *activityGenerator) Family() string { return g.desc.Name }

func dayOfWeekFactor(d time.Time) float64 {
	switch d.Weekday() {
	case time.Saturday, time.Sunday:
		return 0.4
	case time.Monday:
		return 1.15
	default:
		return 1.0
	}
}

// seasonalFactor applies the microbiology winter surge and summer lull.
func seasonalFactor(section string, d time.Time) float64 {
	if section != "KMA" {
		return 1.0
	}
	switch d.Month() {
	case time.December, time.January, time.February:
		return 1.25
	case time.June, time.July, time.August:
		return 0.85
	default:
		return 1.0
	}
}

func (g *activityGenerator) Generate(ctx context.Context, cfg synth.Config) (dataset.Instance, error) {
	if err := cfg.Validate(); err != nil {
		return dataset.Instance{}, err
	}
	if err := ctx.Err(); err != nil {
		return dataset.Instance{}, err
	}
	rng := synth.NewStream(cfg.Seed, 0)

	daily := newTable(g.desc, "daily")
	byCategory := newTable(g.desc, "by_category")

	type weekKey struct {
		week    string
		section string
	}
	weekSums := make(map[weekKey]int)
	var weekOrder []weekKey

	cfg.EachDay(func(day time.Time) {
		for _, section := range registry.Sections {
			growth := 1 + 0.03*yearsSince(cfg.Start, day)
			noise := rng.Normal(1, 0.08)
			if noise < 0.7 {
				noise = 0.7
			}
			volume := section.BaseDailyVolume *
				dayOfWeekFactor(day) *
				seasonalFactor(section.Code, day) *
				growth *
				noise
			count := countOf(volume)

			daily.Rows = append(daily.Rows, map[string]any{
				"date":       synth.FormatDate(day),
				"section":    section.Code,
				"test_count": count,
			})

			key := weekKey{week: synth.FormatDate(synth.WeekStart(day)), section: section.Code}
			if _, seen := weekSums[key]; !seen {
				weekOrder = append(weekOrder, key)
			}
			weekSums[key] += count

			// Split the day's total across the section's categories by the
			// fixed shares, truncated to the category count, with 5% noise.
			for i, category := range section.Categories {
				if i >= len(registry.CategoryShares) {
					break
				}
				share := registry.CategoryShares[i]
				catCount := countOf(float64(count) * share * rng.Normal(1, 0.05))
				byCategory.Rows = append(byCategory.Rows, map[string]any{
					"date":       synth.FormatDate(day),
					"section":    section.Code,
					"category":   category,
					"test_count": catCount,
				})
			}
		}
	})

	weekly := newTable(g.desc, "weekly")
	for _, key := range weekOrder {
		weekly.Rows = append(weekly.Rows, map[string]any{
			"week_start": key.week,
			"section":    key.section,
			"test_count": weekSums[key],
		})
	}

	return newInstance(g.desc, cfg, []dataset.Table{daily, weekly, byCategory}), nil
}
