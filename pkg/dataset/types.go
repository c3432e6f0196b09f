// Package dataset defines the public contract between the synthesis engine
// and its consumers: family descriptors, typed table schemas, generated
// instances, and the shared error taxonomy.
package dataset

import "time"

// Mode selects how a family's tables are produced.
type Mode string

const (
	// ModeParametric synthesises tables directly from distributional assumptions.
	ModeParametric Mode = "parametric"
	// ModeModelBased fits a statistical model to a real source table and samples from it.
	ModeModelBased Mode = "model-based"
)

// Format identifies a serialisation for persisted tables.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ColumnType is the semantic type of a schema column.
type ColumnType string

const (
	TypeDate       ColumnType = "date"
	TypeMonth      ColumnType = "month"   // calendar month, rendered YYYY-MM
	TypeQuarter    ColumnType = "quarter" // calendar quarter, rendered YYYY-Qn
	TypeEnum       ColumnType = "enum"
	TypeCount      ColumnType = "count" // integer >= 0
	TypeFloat      ColumnType = "float"
	TypeRate       ColumnType = "rate" // float within [RateMin, RateMax]
	TypeBool       ColumnType = "bool"
	TypeIdentifier ColumnType = "identifier"
	TypeString     ColumnType = "string"
	TypeTimestamp  ColumnType = "timestamp"
)

// Column declares one field of a sub-table schema.
type Column struct {
	Name        string     `json:"name"`
	Type        ColumnType `json:"type"`
	Unit        string     `json:"unit,omitempty"`
	Description string     `json:"description,omitempty"`
	// Enum names the reference set constraining the column's values.
	Enum string `json:"enum,omitempty"`
	// RateMin/RateMax bound TypeRate columns ([0,100] or [0,1] by family).
	RateMin float64 `json:"rate_min,omitempty"`
	RateMax float64 `json:"rate_max,omitempty"`
}

// DerivationKind identifies how a derived column is recomputed from its inputs.
type DerivationKind string

const (
	// DeriveSum recomputes the column as the sum of its inputs.
	DeriveSum DerivationKind = "sum"
	// DeriveRate recomputes the column as inputs[0]/inputs[1]*scale.
	DeriveRate DerivationKind = "rate"
	// DeriveRemainder recomputes the column as inputs[0] minus the rest.
	DeriveRemainder DerivationKind = "remainder"
	// DeriveProduct recomputes the column as the product of its inputs.
	DeriveProduct DerivationKind = "product"
	// DeriveWeighted recomputes the column as a weighted sum of its inputs,
	// inverting (100-x) the inputs flagged in Invert.
	DeriveWeighted DerivationKind = "weighted"
	// DeriveZScore recomputes the column as (inputs[0]-inputs[1])/inputs[2].
	DeriveZScore DerivationKind = "zscore"
)

// Derivation declares that a column is always recomputed from sibling
// columns, never synthesised independently. The model-based path strips
// derived columns before fitting and reapplies the rule after sampling.
type Derivation struct {
	Column    string         `json:"column"`
	Kind      DerivationKind `json:"kind"`
	Inputs    []string       `json:"inputs"`
	Scale     float64        `json:"scale,omitempty"`   // rate multiplier, 100 for percentages
	Weights   []float64      `json:"weights,omitempty"` // DeriveWeighted coefficients
	Invert    []bool         `json:"invert,omitempty"`  // DeriveWeighted inversion flags
	Tolerance float64        `json:"tolerance"`         // absolute tolerance for validation
}

// TableSchema is the per-sub-table contract: ordered columns plus declared
// derivation relationships.
type TableSchema struct {
	Name        string       `json:"name"`
	Columns     []Column     `json:"columns"`
	Derivations []Derivation `json:"derivations,omitempty"`
}

// FamilyDescriptor describes one of the dataset families served by the registry.
type FamilyDescriptor struct {
	Name        string        `json:"name"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Tables      []TableSchema `json:"tables"`
}

// Schema returns the sub-table schema with the given name.
func (d FamilyDescriptor) Schema(table string) (TableSchema, bool) {
	for _, ts := range d.Tables {
		if ts.Name == table {
			return ts, true
		}
	}
	return TableSchema{}, false
}

// Table is a named, ordered collection of typed rows. Row maps are keyed by
// column name; iteration order is always taken from Columns.
type Table struct {
	Name    string           `json:"name"`
	Columns []Column         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// Instance is one generated dataset family: its sub-tables plus provenance.
type Instance struct {
	Family      string    `json:"family"`
	Mode        Mode      `json:"mode"`
	Seed        int64     `json:"seed"`
	Tables      []Table   `json:"tables"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Table returns the sub-table with the given name.
func (in Instance) Table(name string) (Table, bool) {
	for _, t := range in.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}
