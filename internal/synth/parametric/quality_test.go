package parametric

import (
	"math"
	"testing"

	"labsynth/internal/registry"
)

func TestQualityRowCounts(t *testing.T) {
	cfg := testConfig()
	instance := generate(t, registry.FamilyQualityIndicators, cfg)
	months := len(cfg.Months())
	want := months * len(registry.Sections)
	for _, name := range []string{"preanalytical", "analytical", "postanalytical", "summary"} {
		table, ok := instance.Table(name)
		if !ok {
			t.Fatalf("%s table missing", name)
		}
		if len(table.Rows) != want {
			t.Fatalf("%s rows = %d, want %d", name, len(table.Rows), want)
		}
	}
}

func TestQualityIndexComposite(t *testing.T) {
	instance := generate(t, registry.FamilyQualityIndicators, testConfig())
	summary, _ := instance.Table("summary")
	for i, row := range summary.Rows {
		index := row["quality_index"].(float64)
		if index < 0 || index > 100 {
			t.Fatalf("row %d: quality_index %v outside [0,100]", i, index)
		}
		want := 0.20*(100-row["rejection_rate"].(float64)) +
			0.25*row["critical_notification_rate"].(float64) +
			0.25*row["tat_compliance_rate"].(float64) +
			0.15*(100-row["amendment_rate"].(float64)) +
			0.15*row["qc_pass_rate"].(float64)
		if math.Abs(index-want) > 0.01 {
			t.Fatalf("row %d: quality_index %v, recomputed %v", i, index, want)
		}
	}
}

func TestQualitySummaryMatchesPhaseTables(t *testing.T) {
	instance := generate(t, registry.FamilyQualityIndicators, testConfig())
	summary, _ := instance.Table("summary")
	pre, _ := instance.Table("preanalytical")
	post, _ := instance.Table("postanalytical")

	type key struct{ month, section string }
	rejection := make(map[key]float64)
	for _, row := range pre.Rows {
		rejection[key{row["month"].(string), row["section"].(string)}] = row["rejection_rate"].(float64)
	}
	tat := make(map[key]float64)
	for _, row := range post.Rows {
		tat[key{row["month"].(string), row["section"].(string)}] = row["tat_compliance_rate"].(float64)
	}
	for i, row := range summary.Rows {
		k := key{row["month"].(string), row["section"].(string)}
		if row["rejection_rate"].(float64) != rejection[k] {
			t.Fatalf("row %d: summary rejection_rate diverges from preanalytical", i)
		}
		if row["tat_compliance_rate"].(float64) != tat[k] {
			t.Fatalf("row %d: summary tat_compliance_rate diverges from postanalytical", i)
		}
	}
}
