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

// incidentsGenerator produces the incidents family: 800 taxonomy-drawn
// events with severity-dependent resolution times.
type incidentsGenerator struct {
	desc dataset.FamilyDescriptor
}

func (g *incidentsGenerator) Family() string { return g.desc.Name }

const incidentEventCount = 800

func (g *incidentsGenerator) Generate(ctx context.Context, cfg synth.Config) (dataset.Instance, error) {
	if err := cfg.Validate(); err != nil {
		return dataset.Instance{}, err
	}
	if err := ctx.Err(); err != nil {
		return dataset.Instance{}, err
	}
	rng := synth.NewStream(cfg.Seed, 0)

	typeWeights := make([]float64, len(registry.IncidentTaxonomy))
	for i, it := range registry.IncidentTaxonomy {
		typeWeights[i] = it.Weight
	}
	sectionCodes := registry.SectionCodes()
	sectionWeights := make([]float64, len(sectionCodes))
	for i, code := range sectionCodes {
		sectionWeights[i] = registry.IncidentSectionWeights[code]
	}
	days := cfg.Days()
	// Incidents resolve against the end of the reporting range.
	rangeEnd := cfg.End.AddDate(0, 0, 1)

	type event struct {
		at  time.Time
		row map[string]any
	}
	events := make([]event, 0, incidentEventCount)

	for i := 0; i < incidentEventCount; i++ {
		day := cfg.Start.AddDate(0, 0, rng.IntN(days))
		taxon := registry.IncidentTaxonomy[rng.WeightedIndex(typeWeights)]
		section := sectionCodes[rng.WeightedIndex(sectionWeights)]

		resolutionHours := round1(rng.Exponential(registry.ResolutionMeanHours[taxon.Severity]))
		resolvedAt := day.Add(time.Duration(resolutionHours * float64(time.Hour)))
		status := "Open"
		if !resolvedAt.After(rangeEnd) {
			status = "Resolved"
		}

		events = append(events, event{at: day, row: map[string]any{
			"occurred_at":      synth.FormatDate(day),
			"section":          section,
			"category":         taxon.Category,
			"incident_type":    taxon.Type,
			"severity":         taxon.Severity,
			"resolution_hours": resolutionHours,
			"status":           status,
		}})
	}

	sort.SliceStable(events, func(i, j int) bool { return events[i].at.Before(events[j].at) })

	table := newTable(g.desc, "events")
	for i, e := range events {
		e.row["incident_id"] = fmt.Sprintf("INC-%04d", i+1)
		table.Rows = append(table.Rows, e.row)
	}

	return newInstance(g.desc, cfg, []dataset.Table{table}), nil
}
