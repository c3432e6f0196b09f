package modelbased

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"labsynth/internal/registry"
	"labsynth/internal/synth"
	"labsynth/pkg/dataset"
)

// sourceTable builds a plausible critical-values source with real-looking
// identifiers and correlated numeric columns.
func sourceTable(t *testing.T, rows int) (dataset.Table, dataset.TableSchema) {
	t.Helper()
	desc, err := registry.Family(registry.FamilyCriticalValues)
	if err != nil {
		t.Fatal(err)
	}
	schema, ok := desc.Schema("events")
	if !ok {
		t.Fatal("events schema missing")
	}
	table := dataset.Table{Name: "events", Columns: schema.Columns}
	rng := synth.NewStream(7, 0)
	base := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < rows; i++ {
		threshold := 6.2
		result := threshold * rng.Uniform(1.05, 1.5)
		minutes := rng.Uniform(2, 40)
		table.Rows = append(table.Rows, map[string]any{
			"event_id":             fmt.Sprintf("REAL-%05d", i+1),
			"event_time":           base.Add(time.Duration(i) * time.Hour).Format(time.RFC3339),
			"test":                 registry.CriticalTests[rng.IntN(len(registry.CriticalTests))].Test,
			"threshold_type":       "high",
			"threshold_value":      threshold,
			"result_value":         result,
			"ordering_unit":        registry.OrderingUnits[rng.IntN(len(registry.OrderingUnits))].Name,
			"notified":             true,
			"notification_minutes": minutes,
			"within_30_min":        minutes <= 30,
			"attempts":             1 + rng.IntN(3),
		})
	}
	return table, schema
}

func TestFitRejectsSchemaMismatch(t *testing.T) {
	table, schema := sourceTable(t, 50)
	var trimmed []dataset.Column
	for _, c := range table.Columns {
		if c.Name != "result_value" {
			trimmed = append(trimmed, c)
		}
	}
	table.Columns = trimmed
	for i := range table.Rows {
		delete(table.Rows[i], "result_value")
	}
	_, err := Fit(table, schema)
	if !errors.Is(err, dataset.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestFitRejectsUndeclaredColumn(t *testing.T) {
	table, schema := sourceTable(t, 50)
	table.Columns = append(table.Columns, dataset.Column{Name: "extra", Type: dataset.TypeFloat})
	for i := range table.Rows {
		table.Rows[i]["extra"] = 1.0
	}
	_, err := Fit(table, schema)
	if !errors.Is(err, dataset.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestSampleShapeAndIdentifiers(t *testing.T) {
	table, schema := sourceTable(t, 120)
	model, err := Fit(table, schema)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	rng := synth.NewStream(42, 0)
	out, err := model.Sample(rng, 0)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if len(out.Rows) != len(table.Rows) {
		t.Fatalf("sampled %d rows, want source count %d", len(out.Rows), len(table.Rows))
	}
	for i, row := range out.Rows {
		id := row["event_id"].(string)
		if !strings.HasPrefix(id, "SYN-") {
			t.Fatalf("row %d: identifier %q not regenerated", i, id)
		}
	}
}

// Synthetic rows must stay within the empirical ranges of the source and keep
// the declared value domains, but no synthetic row may simply copy a source
// identifier.
func TestSampleValuesWithinEmpiricalRange(t *testing.T) {
	table, schema := sourceTable(t, 200)
	model, err := Fit(table, schema)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	out, err := model.Sample(synth.NewStream(42, 0), 100)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	sourceIDs := make(map[string]bool, len(table.Rows))
	for _, row := range table.Rows {
		sourceIDs[row["event_id"].(string)] = true
	}
	for i, row := range out.Rows {
		if sourceIDs[row["event_id"].(string)] {
			t.Fatalf("row %d: source identifier leaked into synthetic data", i)
		}
		v := row["result_value"].(float64)
		if v < 6.2*1.05-0.01 || v > 6.2*1.5+0.01 {
			t.Fatalf("row %d: result_value %v outside source range", i, v)
		}
		if a := row["attempts"].(int); a < 1 || a > 3 {
			t.Fatalf("row %d: attempts %d outside source range", i, a)
		}
	}
}

func TestSampleReproducible(t *testing.T) {
	table, schema := sourceTable(t, 100)
	model, err := Fit(table, schema)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	a, err := model.Sample(synth.NewStream(42, 0), 50)
	if err != nil {
		t.Fatal(err)
	}
	b, err := model.Sample(synth.NewStream(42, 0), 50)
	if err != nil {
		t.Fatal(err)
	}
	for i := range a.Rows {
		for _, col := range a.Columns {
			if a.Rows[i][col.Name] != b.Rows[i][col.Name] {
				t.Fatalf("row %d column %s differs between identical seeds", i, col.Name)
			}
		}
	}
}

// Marginals are sampled through the copula, not jointly exact, so a low
// total can land next to a high sibling. Sampling must reconcile the inputs:
// remainder counts stay non-negative and rates stay within declared bounds,
// with the derivation equality intact.
func TestSampleReconcilesDerivedInputs(t *testing.T) {
	schema := dataset.TableSchema{
		Name: "orders",
		Columns: []dataset.Column{
			{Name: "ordered", Type: dataset.TypeCount},
			{Name: "resulted", Type: dataset.TypeCount},
			{Name: "pending", Type: dataset.TypeCount},
			{Name: "completion_rate", Type: dataset.TypeRate, RateMin: 0, RateMax: 100},
		},
		Derivations: []dataset.Derivation{
			{Column: "pending", Kind: dataset.DeriveRemainder, Inputs: []string{"ordered", "resulted"}},
			{Column: "completion_rate", Kind: dataset.DeriveRate, Inputs: []string{"resulted", "ordered"}, Scale: 100, Tolerance: 0.01},
		},
	}
	source := dataset.Table{Name: "orders", Columns: schema.Columns}
	rng := synth.NewStream(3, 0)
	for i := 0; i < 100; i++ {
		ordered := rng.UniformInt(10, 60)
		resulted := rng.IntN(ordered + 1)
		source.Rows = append(source.Rows, map[string]any{
			"ordered":         ordered,
			"resulted":        resulted,
			"pending":         ordered - resulted,
			"completion_rate": float64(resulted) / float64(ordered) * 100,
		})
	}

	model, err := Fit(source, schema)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	out, err := model.Sample(synth.NewStream(42, 0), 2000)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	for i, row := range out.Rows {
		ordered := row["ordered"].(int)
		resulted := row["resulted"].(int)
		pending := row["pending"].(int)
		if pending < 0 {
			t.Fatalf("row %d: negative remainder count %d (ordered=%d resulted=%d)", i, pending, ordered, resulted)
		}
		if ordered-resulted != pending {
			t.Fatalf("row %d: pending %d != ordered %d - resulted %d", i, pending, ordered, resulted)
		}
		rate := row["completion_rate"].(float64)
		if rate < 0 || rate > 100 {
			t.Fatalf("row %d: completion_rate %v outside [0, 100]", i, rate)
		}
		if ordered > 0 {
			want := float64(resulted) / float64(ordered) * 100
			if math.Abs(rate-want) > 0.01 {
				t.Fatalf("row %d: completion_rate %v differs from recomputed %v", i, rate, want)
			}
		}
	}
}

func TestGeneratorAbortsOnSchemaMismatch(t *testing.T) {
	table, _ := sourceTable(t, 50)
	var trimmed []dataset.Column
	for _, c := range table.Columns {
		if c.Name != "result_value" {
			trimmed = append(trimmed, c)
		}
	}
	table.Columns = trimmed
	for i := range table.Rows {
		delete(table.Rows[i], "result_value")
	}
	gen, err := NewGenerator(registry.FamilyCriticalValues, staticSource{table: table})
	if err != nil {
		t.Fatal(err)
	}
	cfg := synth.Config{
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		Seed:  42,
	}
	if _, err := gen.Generate(context.Background(), cfg); !errors.Is(err, dataset.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

type staticSource struct {
	table dataset.Table
}

func (s staticSource) ReadTable(_ context.Context, _, _ string, _ dataset.TableSchema) (dataset.Table, error) {
	return s.table, nil
}
