// Package parametric implements the nine family generators that synthesise
// tables directly from distributional assumptions, with no real input data.
package parametric

import (
	"fmt"
	"math"
	"time"

	"labsynth/internal/registry"
	"labsynth/internal/synth"
	"labsynth/pkg/dataset"
)

// New returns the parametric generator for the named family.
func New(family string) (synth.Generator, error) {
	desc, err := registry.Family(family)
	if err != nil {
		return nil, err
	}
	switch family {
	case registry.FamilyActivityVolume:
		return &activityGenerator{desc: desc}, nil
	case registry.FamilyQualityIndicators:
		return &qualityGenerator{desc: desc}, nil
	case registry.FamilyQCTrending:
		return &qcTrendingGenerator{desc: desc}, nil
	case registry.FamilyCriticalValues:
		return &criticalValuesGenerator{desc: desc}, nil
	case registry.FamilyIncidents:
		return &incidentsGenerator{desc: desc}, nil
	case registry.FamilyCostAnalysis:
		return &costGenerator{desc: desc}, nil
	case registry.FamilyUtilization:
		return &utilizationGenerator{desc: desc}, nil
	case registry.FamilyAntibiogram:
		return &antibiogramGenerator{desc: desc}, nil
	case registry.FamilyScorecard:
		return &scorecardGenerator{desc: desc}, nil
	}
	return nil, fmt.Errorf("%w: %s", dataset.ErrUnknownFamily, family)
}

// All returns generators for every registered family in generation order.
func All() []synth.Generator {
	names := registry.FamilyNames()
	gens := make([]synth.Generator, 0, len(names))
	for _, name := range names {
		g, err := New(name)
		if err != nil {
			// Registry order and the factory switch cover the same set.
			panic(err)
		}
		gens = append(gens, g)
	}
	return gens
}

func newInstance(desc dataset.FamilyDescriptor, cfg synth.Config, tables []dataset.Table) dataset.Instance {
	return dataset.Instance{
		Family:      desc.Name,
		Mode:        dataset.ModeParametric,
		Seed:        cfg.Seed,
		Tables:      tables,
		GeneratedAt: time.Now().UTC(),
	}
}

func newTable(desc dataset.FamilyDescriptor, name string) dataset.Table {
	ts, _ := desc.Schema(name)
	return dataset.Table{Name: name, Columns: ts.Columns}
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func round1(v float64) float64 { return math.Round(v*10) / 10 }

// countOf converts a real-valued draw to a non-negative integer count.
func countOf(v float64) int {
	n := int(math.Round(v))
	if n < 0 {
		return 0
	}
	return n
}

// clampCount bounds a count draw to [0, total].
func clampCount(v float64, total int) int {
	n := countOf(v)
	if n > total {
		return total
	}
	return n
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// yearsSince measures elapsed years as days/365, the convention used by all
// linear growth and inflation factors.
func yearsSince(start, t time.Time) float64 {
	return t.Sub(start).Hours() / 24 / 365
}
