package registry

import (
	"fmt"

	"labsynth/pkg/dataset"
)

// Section describes one laboratory section and its volume profile.
type Section struct {
	Code            string
	Name            string
	BaseDailyVolume float64
	Categories      []string
}

// Sections in registry order. Codes double as the categorical domain for
// every section column in every family.
var Sections = []Section{
	{
		Code:            "KBA",
		Name:            "Clinical Biochemistry",
		BaseDailyVolume: 800,
		Categories:      []string{"Clinical Chemistry", "Hematology", "Coagulation", "Immunoassay", "Urinalysis"},
	},
	{
		Code:            "KMA",
		Name:            "Clinical Microbiology",
		BaseDailyVolume: 300,
		Categories:      []string{"Bacteriology", "Virology", "Mycology", "Parasitology"},
	},
	{
		Code:            "KPA",
		Name:            "Clinical Pathology",
		BaseDailyVolume: 150,
		Categories:      []string{"Histopathology", "Cytology", "Molecular Pathology"},
	},
}

// CategoryShares splits a section's daily volume across its categories,
// truncated to however many categories the section has.
var CategoryShares = []float64{0.35, 0.25, 0.20, 0.12, 0.08}

// TestsByCategory enumerates the orderable tests within each category.
var TestsByCategory = map[string][]string{
	"Clinical Chemistry":  {"Glucose", "Creatinine", "ALT", "AST", "Sodium", "Potassium"},
	"Hematology":          {"Complete Blood Count", "Hemoglobin", "Platelet Count", "WBC Differential"},
	"Coagulation":         {"PT-INR", "APTT", "Fibrinogen", "D-Dimer"},
	"Immunoassay":         {"TSH", "Troponin T", "Ferritin", "Vitamin D"},
	"Urinalysis":          {"Urine Dipstick", "Urine Microscopy", "Urine Albumin"},
	"Bacteriology":        {"Blood Culture", "Urine Culture", "Wound Culture", "Gram Stain"},
	"Virology":            {"SARS-CoV-2 PCR", "Influenza PCR", "HIV Serology", "Hepatitis Panel"},
	"Mycology":            {"Fungal Culture", "Fungal Microscopy"},
	"Parasitology":        {"Ova and Parasites", "Malaria Smear"},
	"Histopathology":      {"Biopsy H&E", "Frozen Section", "Immunohistochemistry"},
	"Cytology":            {"Pap Smear", "FNA Cytology"},
	"Molecular Pathology": {"HER2 FISH", "EGFR Mutation Panel"},
}

// Instruments lists the analysers appearing in QC trending data.
var Instruments = []string{"Cobas 8000", "Architect i2000SR", "Sysmex XN-1000"}

// QCAnalytes are the analytes tracked on daily QC material.
var QCAnalytes = []string{"Glucose", "Creatinine", "Potassium", "ALT"}

// QCLevelTargets maps QC material level to its assigned target value.
var QCLevelTargets = map[int]float64{1: 50, 2: 100, 3: 200}

// QCLevels in generation order.
var QCLevels = []int{1, 2, 3}

// CriticalTest defines one critical-value test: thresholds (nil when the
// test has no critical limit on that side) and its share of critical events.
type CriticalTest struct {
	Test   string
	Unit   string
	Low    *float64
	High   *float64
	Weight float64
}

func f(v float64) *float64 { return &v }

// CriticalTests is the fixed frequency-weight distribution over the ten
// critical tests. Weights sum to 1.
var CriticalTests = []CriticalTest{
	{Test: "Potassium", Unit: "mmol/L", Low: f(2.8), High: f(6.2), Weight: 0.20},
	{Test: "Glucose", Unit: "mmol/L", Low: f(2.2), High: f(25.0), Weight: 0.15},
	{Test: "Sodium", Unit: "mmol/L", Low: f(120), High: f(160), Weight: 0.12},
	{Test: "Hemoglobin", Unit: "g/L", Low: f(50), High: nil, Weight: 0.10},
	{Test: "Troponin T", Unit: "ng/L", Low: nil, High: f(100), Weight: 0.10},
	{Test: "Calcium", Unit: "mmol/L", Low: f(1.5), High: f(3.5), Weight: 0.08},
	{Test: "Platelet Count", Unit: "10^9/L", Low: f(20), High: f(1000), Weight: 0.08},
	{Test: "WBC", Unit: "10^9/L", Low: f(1.0), High: f(50), Weight: 0.07},
	{Test: "Lactate", Unit: "mmol/L", Low: nil, High: f(4.0), Weight: 0.05},
	{Test: "INR", Unit: "ratio", Low: nil, High: f(5.0), Weight: 0.05},
}

// OrderingUnit is a clinical unit that orders tests, with its share of
// critical-value events.
type OrderingUnit struct {
	Name   string
	Weight float64
}

// OrderingUnits is the six-unit weighted distribution for critical values
// and the department dimension for utilization.
var OrderingUnits = []OrderingUnit{
	{Name: "Emergency", Weight: 0.30},
	{Name: "ICU", Weight: 0.20},
	{Name: "Internal Medicine", Weight: 0.18},
	{Name: "Surgery", Weight: 0.12},
	{Name: "Pediatrics", Weight: 0.10},
	{Name: "Outpatient Clinics", Weight: 0.10},
}

// IncidentType is one row of the incident taxonomy.
type IncidentType struct {
	Category string
	Type     string
	Severity string
	Weight   float64
}

// IncidentTaxonomy is the 13-row category x type x severity x weight table
// from which incident events are drawn. Weights sum to 1.
var IncidentTaxonomy = []IncidentType{
	{Category: "Preanalytical", Type: "Specimen Mislabeling", Severity: "High", Weight: 0.10},
	{Category: "Preanalytical", Type: "Hemolyzed Specimen", Severity: "Low", Weight: 0.15},
	{Category: "Preanalytical", Type: "Lost Specimen", Severity: "Medium", Weight: 0.08},
	{Category: "Preanalytical", Type: "Insufficient Volume", Severity: "Low", Weight: 0.12},
	{Category: "Analytical", Type: "QC Failure", Severity: "Medium", Weight: 0.10},
	{Category: "Analytical", Type: "Instrument Breakdown", Severity: "High", Weight: 0.07},
	{Category: "Analytical", Type: "Calibration Drift", Severity: "Medium", Weight: 0.08},
	{Category: "Postanalytical", Type: "Delayed Result Reporting", Severity: "Medium", Weight: 0.10},
	{Category: "Postanalytical", Type: "Erroneous Result Released", Severity: "High", Weight: 0.05},
	{Category: "Postanalytical", Type: "Critical Value Not Notified", Severity: "High", Weight: 0.04},
	{Category: "Safety", Type: "Needlestick Injury", Severity: "High", Weight: 0.03},
	{Category: "Safety", Type: "Chemical Spill", Severity: "Medium", Weight: 0.03},
	{Category: "IT", Type: "LIS Downtime", Severity: "High", Weight: 0.05},
}

// IncidentSectionWeights splits incidents 50/30/20 across sections.
var IncidentSectionWeights = map[string]float64{"KBA": 0.50, "KMA": 0.30, "KPA": 0.20}

// ResolutionMeanHours maps incident severity to the mean of the exponential
// resolution-time distribution.
var ResolutionMeanHours = map[string]float64{"High": 5, "Medium": 14, "Low": 28}

// Organisms tracked in the antibiogram.
var Organisms = []string{
	"Escherichia coli",
	"Klebsiella pneumoniae",
	"Pseudomonas aeruginosa",
	"Staphylococcus aureus (MRSA)",
	"Staphylococcus aureus (MSSA)",
	"Enterococcus faecalis",
}

// Antibiotics tested in the antibiogram.
var Antibiotics = []string{
	"Ampicillin",
	"Ceftriaxone",
	"Ciprofloxacin",
	"Gentamicin",
	"Meropenem",
	"Nitrofurantoin",
	"Oxacillin",
	"Vancomycin",
}

type organismAntibiotic struct {
	Organism   string
	Antibiotic string
}

// IntrinsicResistance marks organism/antibiotic pairs that are never tested:
// susceptibility is forced to 0 and the pair is reported untested.
var IntrinsicResistance = map[organismAntibiotic]bool{
	{"Klebsiella pneumoniae", "Ampicillin"}:      true,
	{"Pseudomonas aeruginosa", "Ampicillin"}:     true,
	{"Pseudomonas aeruginosa", "Ceftriaxone"}:    true,
	{"Pseudomonas aeruginosa", "Nitrofurantoin"}: true,
	{"Enterococcus faecalis", "Oxacillin"}:       true,
	{"Enterococcus faecalis", "Ceftriaxone"}:     true,
}

// SusceptibilityOverrides encodes known clinical resistance patterns that
// replace the default Uniform(0.6,0.95) base rate.
var SusceptibilityOverrides = map[organismAntibiotic]float64{
	{"Escherichia coli", "Ampicillin"}:                0.55,
	{"Escherichia coli", "Ciprofloxacin"}:             0.78,
	{"Escherichia coli", "Nitrofurantoin"}:            0.96,
	{"Staphylococcus aureus (MRSA)", "Oxacillin"}:     0.0,
	{"Staphylococcus aureus (MRSA)", "Vancomycin"}:    1.0,
	{"Staphylococcus aureus (MRSA)", "Ciprofloxacin"}: 0.35,
	{"Pseudomonas aeruginosa", "Ciprofloxacin"}:       0.75,
	{"Pseudomonas aeruginosa", "Meropenem"}:           0.85,
	{"Pseudomonas aeruginosa", "Gentamicin"}:          0.82,
}

// TrendedAntibiotics receive the -2%/year susceptibility trend in the
// quarterly antibiogram expansion.
var TrendedAntibiotics = map[string]bool{"Ciprofloxacin": true, "Ceftriaxone": true}

// IsIntrinsicResistant reports whether the pair is intrinsically resistant.
func IsIntrinsicResistant(organism, antibiotic string) bool {
	return IntrinsicResistance[organismAntibiotic{organism, antibiotic}]
}

// SusceptibilityOverride returns the override base rate for the pair, if any.
func SusceptibilityOverride(organism, antibiotic string) (float64, bool) {
	v, ok := SusceptibilityOverrides[organismAntibiotic{organism, antibiotic}]
	return v, ok
}

// ScorecardMetric parameterises one executive-scorecard random walk.
type ScorecardMetric struct {
	Name   string
	Target float64
	Start  float64
	StepSD float64
	Min    float64
	Max    float64
	Weight float64
	// LowerIsBetter flips both the status bands and the score normalisation.
	LowerIsBetter bool
	// Normalise divides the value by the target before weighting (used for
	// metrics not already on a 0-100 scale).
	Normalise bool
}

// ScorecardMetrics in generation and weighting order. Weights sum to 1.
var ScorecardMetrics = []ScorecardMetric{
	{Name: "quality_index", Target: 90, Start: 91, StepSD: 0.6, Min: 82, Max: 99, Weight: 0.30},
	{Name: "tat_compliance", Target: 92, Start: 92, StepSD: 0.8, Min: 85, Max: 99, Weight: 0.25},
	{Name: "critical_compliance", Target: 95, Start: 95.5, StepSD: 0.7, Min: 88, Max: 100, Weight: 0.20},
	{Name: "cost_per_test", Target: 12.0, Start: 12.5, StepSD: 0.25, Min: 8, Max: 20, Weight: 0.15, LowerIsBetter: true, Normalise: true},
	{Name: "tests_per_fte", Target: 1700, Start: 1650, StepSD: 35, Min: 1200, Max: 2400, Weight: 0.10, Normalise: true},
}

// ReferenceLabs receive send-out testing in the utilization family.
var ReferenceLabs = []string{"National Reference Laboratory", "University Hospital Laboratory", "SynLab Partner Facility"}

// SendOutTests are the esoteric assays referred to external laboratories.
var SendOutTests = []string{
	"Homocysteine", "Ceruloplasmin", "ACTH Stimulation Panel", "JAK2 Mutation",
	"Heavy Metal Screen", "Aldosterone-Renin Ratio", "Chromogranin A", "Anti-NMDA Receptor Antibody",
}

// CategoriesForSection returns the valid categories of a section code.
func CategoriesForSection(code string) ([]string, error) {
	for _, s := range Sections {
		if s.Code == code {
			return append([]string(nil), s.Categories...), nil
		}
	}
	return nil, fmt.Errorf("%w: %s", dataset.ErrUnknownSection, code)
}

// TestsForCategory returns the valid tests of a category.
func TestsForCategory(category string) ([]string, error) {
	tests, ok := TestsByCategory[category]
	if !ok {
		return nil, fmt.Errorf("%w: %s", dataset.ErrUnknownCategory, category)
	}
	return append([]string(nil), tests...), nil
}

// SectionCodes returns the section codes in registry order.
func SectionCodes() []string {
	codes := make([]string, len(Sections))
	for i, s := range Sections {
		codes[i] = s.Code
	}
	return codes
}

// AllTests returns the union of every category's tests in a stable order.
func AllTests() []string {
	var tests []string
	for _, s := range Sections {
		for _, c := range s.Categories {
			tests = append(tests, TestsByCategory[c]...)
		}
	}
	return tests
}

// SectionForCategory returns the section owning the category.
func SectionForCategory(category string) (string, error) {
	for _, s := range Sections {
		for _, c := range s.Categories {
			if c == category {
				return s.Code, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %s", dataset.ErrUnknownCategory, category)
}
