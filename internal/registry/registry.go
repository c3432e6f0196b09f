// Package registry holds the canonical schema definitions of the nine
// dataset families and the fixed reference enumerations the generators
// draw from. Everything here is read-only after process start.
package registry

import (
	"fmt"
	"sort"

	"labsynth/pkg/dataset"
)

// Family name constants, in generation order. The index of a family in
// FamilyNames doubles as its deterministic sub-seed offset.
const (
	FamilyActivityVolume    = "activity_volume"
	FamilyQualityIndicators = "quality_indicators"
	FamilyQCTrending        = "qc_trending"
	FamilyCriticalValues    = "critical_values"
	FamilyIncidents         = "incidents"
	FamilyCostAnalysis      = "cost_analysis"
	FamilyUtilization       = "utilization"
	FamilyAntibiogram       = "antibiogram"
	FamilyScorecard         = "executive_scorecard"
)

var familyOrder = []string{
	FamilyActivityVolume,
	FamilyQualityIndicators,
	FamilyQCTrending,
	FamilyCriticalValues,
	FamilyIncidents,
	FamilyCostAnalysis,
	FamilyUtilization,
	FamilyAntibiogram,
	FamilyScorecard,
}

func col(name string, typ dataset.ColumnType) dataset.Column {
	return dataset.Column{Name: name, Type: typ}
}

func enumCol(name, enum string) dataset.Column {
	return dataset.Column{Name: name, Type: dataset.TypeEnum, Enum: enum}
}

func rateCol(name string, min, max float64) dataset.Column {
	return dataset.Column{Name: name, Type: dataset.TypeRate, RateMin: min, RateMax: max}
}

func ratioOf(column, count, total string) dataset.Derivation {
	return dataset.Derivation{Column: column, Kind: dataset.DeriveRate, Inputs: []string{count, total}, Scale: 100, Tolerance: 0.01}
}

var descriptors = map[string]dataset.FamilyDescriptor{
	FamilyActivityVolume: {
		Name:        FamilyActivityVolume,
		Title:       "Laboratory Activity Volume",
		Description: "Daily, weekly and per-category test volumes by section.",
		Tables: []dataset.TableSchema{
			{
				Name: "daily",
				Columns: []dataset.Column{
					col("date", dataset.TypeDate),
					enumCol("section", "sections"),
					col("test_count", dataset.TypeCount),
				},
			},
			{
				Name: "weekly",
				Columns: []dataset.Column{
					col("week_start", dataset.TypeDate),
					enumCol("section", "sections"),
					col("test_count", dataset.TypeCount),
				},
			},
			{
				Name: "by_category",
				Columns: []dataset.Column{
					col("date", dataset.TypeDate),
					enumCol("section", "sections"),
					enumCol("category", "categories"),
					col("test_count", dataset.TypeCount),
				},
			},
		},
	},
	FamilyQualityIndicators: {
		Name:        FamilyQualityIndicators,
		Title:       "Quality Indicators",
		Description: "Monthly pre-analytical, analytical and post-analytical quality metrics.",
		Tables: []dataset.TableSchema{
			{
				Name: "preanalytical",
				Columns: []dataset.Column{
					col("month", dataset.TypeMonth),
					enumCol("section", "sections"),
					col("total_specimens", dataset.TypeCount),
					col("rejected_count", dataset.TypeCount),
					rateCol("rejection_rate", 0, 100),
					col("hemolyzed_count", dataset.TypeCount),
					rateCol("hemolysis_rate", 0, 100),
					col("mislabeled_count", dataset.TypeCount),
					rateCol("mislabeling_rate", 0, 100),
					col("missing_count", dataset.TypeCount),
					rateCol("missing_rate", 0, 100),
					col("inadequate_volume_count", dataset.TypeCount),
					rateCol("inadequate_volume_rate", 0, 100),
				},
				Derivations: []dataset.Derivation{
					ratioOf("rejection_rate", "rejected_count", "total_specimens"),
					ratioOf("hemolysis_rate", "hemolyzed_count", "total_specimens"),
					ratioOf("mislabeling_rate", "mislabeled_count", "total_specimens"),
					ratioOf("missing_rate", "missing_count", "total_specimens"),
					ratioOf("inadequate_volume_rate", "inadequate_volume_count", "total_specimens"),
				},
			},
			{
				Name: "analytical",
				Columns: []dataset.Column{
					col("month", dataset.TypeMonth),
					enumCol("section", "sections"),
					col("qc_events", dataset.TypeCount),
					col("qc_pass_count", dataset.TypeCount),
					rateCol("qc_pass_rate", 0, 100),
					col("results_reported", dataset.TypeCount),
					col("auto_validated_count", dataset.TypeCount),
					rateCol("auto_validation_rate", 0, 100),
					col("rerun_count", dataset.TypeCount),
					rateCol("rerun_rate", 0, 100),
				},
				Derivations: []dataset.Derivation{
					ratioOf("qc_pass_rate", "qc_pass_count", "qc_events"),
					ratioOf("auto_validation_rate", "auto_validated_count", "results_reported"),
					ratioOf("rerun_rate", "rerun_count", "results_reported"),
				},
			},
			{
				Name: "postanalytical",
				Columns: []dataset.Column{
					col("month", dataset.TypeMonth),
					enumCol("section", "sections"),
					col("results_reported", dataset.TypeCount),
					col("tat_within_target", dataset.TypeCount),
					rateCol("tat_compliance_rate", 0, 100),
					col("critical_values_count", dataset.TypeCount),
					col("critical_notified_count", dataset.TypeCount),
					rateCol("critical_notification_rate", 0, 100),
					col("amended_count", dataset.TypeCount),
					rateCol("amendment_rate", 0, 100),
					col("corrected_count", dataset.TypeCount),
					rateCol("correction_rate", 0, 100),
				},
				Derivations: []dataset.Derivation{
					ratioOf("tat_compliance_rate", "tat_within_target", "results_reported"),
					ratioOf("critical_notification_rate", "critical_notified_count", "critical_values_count"),
					ratioOf("amendment_rate", "amended_count", "results_reported"),
					ratioOf("correction_rate", "corrected_count", "results_reported"),
				},
			},
			{
				Name: "summary",
				Columns: []dataset.Column{
					col("month", dataset.TypeMonth),
					enumCol("section", "sections"),
					rateCol("rejection_rate", 0, 100),
					rateCol("critical_notification_rate", 0, 100),
					rateCol("tat_compliance_rate", 0, 100),
					rateCol("amendment_rate", 0, 100),
					rateCol("qc_pass_rate", 0, 100),
					rateCol("quality_index", 0, 100),
				},
				Derivations: []dataset.Derivation{
					{
						Column:    "quality_index",
						Kind:      dataset.DeriveWeighted,
						Inputs:    []string{"rejection_rate", "critical_notification_rate", "tat_compliance_rate", "amendment_rate", "qc_pass_rate"},
						Weights:   []float64{0.20, 0.25, 0.25, 0.15, 0.15},
						Invert:    []bool{true, false, false, true, false},
						Tolerance: 0.01,
					},
				},
			},
		},
	},
	FamilyQCTrending: {
		Name:        FamilyQCTrending,
		Title:       "QC Trending",
		Description: "Daily internal QC results with Westgard flags and cumulative control statistics.",
		Tables: []dataset.TableSchema{
			{
				Name: "results",
				Columns: []dataset.Column{
					col("date", dataset.TypeDate),
					enumCol("analyte", "qc_analytes"),
					col("level", dataset.TypeCount),
					enumCol("instrument", "instruments"),
					col("target_value", dataset.TypeFloat),
					col("expected_sd", dataset.TypeFloat),
					col("result", dataset.TypeFloat),
					col("z_score", dataset.TypeFloat),
					col("westgard_1_2s", dataset.TypeBool),
					col("westgard_1_3s", dataset.TypeBool),
					col("cumulative_mean", dataset.TypeFloat),
					col("cumulative_sd", dataset.TypeFloat),
					col("cumulative_cv", dataset.TypeFloat),
				},
				Derivations: []dataset.Derivation{
					{Column: "z_score", Kind: dataset.DeriveZScore, Inputs: []string{"result", "target_value", "expected_sd"}, Tolerance: 0.01},
				},
			},
		},
	},
	FamilyCriticalValues: {
		Name:        FamilyCriticalValues,
		Title:       "Critical Value Notifications",
		Description: "Critical result events with notification outcomes and timeliness.",
		Tables: []dataset.TableSchema{
			{
				Name: "events",
				Columns: []dataset.Column{
					col("event_id", dataset.TypeIdentifier),
					col("event_time", dataset.TypeTimestamp),
					enumCol("test", "critical_tests"),
					enumCol("threshold_type", "threshold_types"),
					col("threshold_value", dataset.TypeFloat),
					col("result_value", dataset.TypeFloat),
					enumCol("ordering_unit", "ordering_units"),
					col("notified", dataset.TypeBool),
					col("notification_minutes", dataset.TypeFloat),
					col("within_30_min", dataset.TypeBool),
					col("attempts", dataset.TypeCount),
				},
			},
		},
	},
	FamilyIncidents: {
		Name:        FamilyIncidents,
		Title:       "Laboratory Incidents",
		Description: "Incident events drawn from the fixed taxonomy with resolution outcomes.",
		Tables: []dataset.TableSchema{
			{
				Name: "events",
				Columns: []dataset.Column{
					col("incident_id", dataset.TypeIdentifier),
					col("occurred_at", dataset.TypeDate),
					enumCol("section", "sections"),
					enumCol("category", "incident_categories"),
					enumCol("incident_type", "incident_types"),
					enumCol("severity", "severities"),
					col("resolution_hours", dataset.TypeFloat),
					enumCol("status", "incident_statuses"),
				},
			},
		},
	},
	FamilyCostAnalysis: {
		Name:        FamilyCostAnalysis,
		Title:       "Cost Analysis",
		Description: "Per-test cost structure, monthly expansion and section rollups.",
		Tables: []dataset.TableSchema{
			{
				Name: "test_costs",
				Columns: []dataset.Column{
					enumCol("test", "tests"),
					enumCol("section", "sections"),
					col("reagent_cost", dataset.TypeFloat),
					col("labor_cost", dataset.TypeFloat),
					col("overhead_cost", dataset.TypeFloat),
					col("total_cost", dataset.TypeFloat),
					col("reimbursement", dataset.TypeFloat),
				},
				Derivations: []dataset.Derivation{
					{Column: "total_cost", Kind: dataset.DeriveSum, Inputs: []string{"reagent_cost", "labor_cost", "overhead_cost"}, Tolerance: 0.01},
				},
			},
			{
				Name: "monthly",
				Columns: []dataset.Column{
					col("month", dataset.TypeMonth),
					enumCol("section", "sections"),
					enumCol("test", "tests"),
					col("volume", dataset.TypeCount),
					col("cost_per_test", dataset.TypeFloat),
					col("reimbursement_per_test", dataset.TypeFloat),
					col("expense", dataset.TypeFloat),
					col("revenue", dataset.TypeFloat),
					col("margin", dataset.TypeFloat),
				},
				Derivations: []dataset.Derivation{
					{Column: "expense", Kind: dataset.DeriveProduct, Inputs: []string{"volume", "cost_per_test"}, Tolerance: 0.01},
					{Column: "revenue", Kind: dataset.DeriveProduct, Inputs: []string{"volume", "reimbursement_per_test"}, Tolerance: 0.01},
					{Column: "margin", Kind: dataset.DeriveRemainder, Inputs: []string{"revenue", "expense"}, Tolerance: 0.01},
				},
			},
			{
				Name: "section_summary",
				Columns: []dataset.Column{
					col("month", dataset.TypeMonth),
					enumCol("section", "sections"),
					col("total_volume", dataset.TypeCount),
					col("total_expense", dataset.TypeFloat),
					col("total_revenue", dataset.TypeFloat),
					col("margin", dataset.TypeFloat),
					col("cost_per_test", dataset.TypeFloat),
				},
				Derivations: []dataset.Derivation{
					{Column: "margin", Kind: dataset.DeriveRemainder, Inputs: []string{"total_revenue", "total_expense"}, Tolerance: 0.01},
					{Column: "cost_per_test", Kind: dataset.DeriveRate, Inputs: []string{"total_expense", "total_volume"}, Scale: 1, Tolerance: 0.01},
				},
			},
		},
	},
	FamilyUtilization: {
		Name:        FamilyUtilization,
		Title:       "Test Utilization",
		Description: "Ordering patterns, duplicate testing and send-out volumes by department.",
		Tables: []dataset.TableSchema{
			{
				Name: "orders",
				Columns: []dataset.Column{
					col("month", dataset.TypeMonth),
					enumCol("department", "ordering_units"),
					enumCol("test", "tests"),
					col("order_count", dataset.TypeCount),
					col("duplicate_count", dataset.TypeCount),
					rateCol("duplicate_rate", 0, 100),
					col("guideline_appropriate", dataset.TypeBool),
					enumCol("volume_class", "volume_classes"),
				},
				Derivations: []dataset.Derivation{
					ratioOf("duplicate_rate", "duplicate_count", "order_count"),
				},
			},
			{
				Name: "send_outs",
				Columns: []dataset.Column{
					col("month", dataset.TypeMonth),
					enumCol("test", "sendout_tests"),
					enumCol("reference_lab", "reference_labs"),
					col("sendout_count", dataset.TypeCount),
					col("cost_per_test", dataset.TypeFloat),
					col("total_cost", dataset.TypeFloat),
					col("avg_tat_days", dataset.TypeFloat),
				},
				Derivations: []dataset.Derivation{
					{Column: "total_cost", Kind: dataset.DeriveProduct, Inputs: []string{"sendout_count", "cost_per_test"}, Tolerance: 0.01},
				},
			},
		},
	},
	FamilyAntibiogram: {
		Name:        FamilyAntibiogram,
		Title:       "Cumulative Antibiogram",
		Description: "Quarterly organism/antibiotic susceptibility with derived isolate counts.",
		Tables: []dataset.TableSchema{
			{
				Name: "susceptibility",
				Columns: []dataset.Column{
					col("quarter", dataset.TypeQuarter),
					enumCol("organism", "organisms"),
					enumCol("antibiotic", "antibiotics"),
					col("tested", dataset.TypeBool),
					rateCol("susceptibility_rate", 0, 1),
					col("isolate_count", dataset.TypeCount),
					col("susceptible_count", dataset.TypeCount),
					col("intermediate_count", dataset.TypeCount),
					col("resistant_count", dataset.TypeCount),
				},
				Derivations: []dataset.Derivation{
					{Column: "resistant_count", Kind: dataset.DeriveRemainder, Inputs: []string{"isolate_count", "susceptible_count", "intermediate_count"}, Tolerance: 0.01},
				},
			},
		},
	},
	FamilyScorecard: {
		Name:        FamilyScorecard,
		Title:       "Executive Scorecard",
		Description: "Monthly random-walk composites with target status and overall weighted score.",
		Tables: []dataset.TableSchema{
			{
				Name: "metrics",
				Columns: []dataset.Column{
					col("month", dataset.TypeMonth),
					enumCol("metric", "scorecard_metrics"),
					col("value", dataset.TypeFloat),
					col("target", dataset.TypeFloat),
					enumCol("status", "scorecard_statuses"),
				},
			},
			{
				Name: "summary",
				Columns: []dataset.Column{
					col("month", dataset.TypeMonth),
					rateCol("overall_score", 0, 100),
				},
			},
		},
	},
}

// FamilyNames returns the nine family names in generation order.
func FamilyNames() []string {
	return append([]string(nil), familyOrder...)
}

// Family returns the descriptor of the named family.
func Family(name string) (dataset.FamilyDescriptor, error) {
	d, ok := descriptors[name]
	if !ok {
		return dataset.FamilyDescriptor{}, fmt.Errorf("%w: %s", dataset.ErrUnknownFamily, name)
	}
	return d, nil
}

// Families returns every descriptor in generation order.
func Families() []dataset.FamilyDescriptor {
	out := make([]dataset.FamilyDescriptor, 0, len(familyOrder))
	for _, name := range familyOrder {
		out = append(out, descriptors[name])
	}
	return out
}

// FamilyOffset returns the deterministic sub-seed offset of the family:
// its index in generation order.
func FamilyOffset(name string) (int64, error) {
	for i, n := range familyOrder {
		if n == name {
			return int64(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %s", dataset.ErrUnknownFamily, name)
}

// enumSets resolves Column.Enum names to their value domains.
var enumSets = map[string]func() []string{
	"sections": SectionCodes,
	"categories": func() []string {
		var out []string
		for _, s := range Sections {
			out = append(out, s.Categories...)
		}
		return out
	},
	"tests":         AllTests,
	"sendout_tests": func() []string { return append([]string(nil), SendOutTests...) },
	"instruments":   func() []string { return append([]string(nil), Instruments...) },
	"qc_analytes":   func() []string { return append([]string(nil), QCAnalytes...) },
	"critical_tests": func() []string {
		out := make([]string, len(CriticalTests))
		for i, ct := range CriticalTests {
			out[i] = ct.Test
		}
		return out
	},
	"threshold_types": func() []string { return []string{"low", "high"} },
	"ordering_units": func() []string {
		out := make([]string, len(OrderingUnits))
		for i, u := range OrderingUnits {
			out[i] = u.Name
		}
		return out
	},
	"incident_categories": func() []string {
		seen := map[string]bool{}
		var out []string
		for _, it := range IncidentTaxonomy {
			if !seen[it.Category] {
				seen[it.Category] = true
				out = append(out, it.Category)
			}
		}
		return out
	},
	"incident_types": func() []string {
		out := make([]string, len(IncidentTaxonomy))
		for i, it := range IncidentTaxonomy {
			out[i] = it.Type
		}
		return out
	},
	"severities":        func() []string { return []string{"High", "Medium", "Low"} },
	"incident_statuses": func() []string { return []string{"Resolved", "Open"} },
	"organisms":         func() []string { return append([]string(nil), Organisms...) },
	"antibiotics":       func() []string { return append([]string(nil), Antibiotics...) },
	"volume_classes":    func() []string { return []string{"High", "Medium", "Low"} },
	"reference_labs":    func() []string { return append([]string(nil), ReferenceLabs...) },
	"scorecard_metrics": func() []string {
		out := make([]string, len(ScorecardMetrics))
		for i, m := range ScorecardMetrics {
			out[i] = m.Name
		}
		return out
	},
	"scorecard_statuses": func() []string { return []string{"Green", "Yellow", "Red"} },
}

// EnumValues returns the value domain of a named reference set.
func EnumValues(name string) ([]string, bool) {
	fn, ok := enumSets[name]
	if !ok {
		return nil, false
	}
	return fn(), true
}

// EnumNames returns the registered reference-set names, sorted.
func EnumNames() []string {
	names := make([]string, 0, len(enumSets))
	for n := range enumSets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
