package validation

import (
	"fmt"
	"math"

	"labsynth/internal/registry"
	"labsynth/pkg/dataset"
)

// tablePresenceRule verifies that every sub-table the schema declares is
// present in the instance, and that the instance carries no strays.
type tablePresenceRule struct{}

func (tablePresenceRule) Name() string { return "table-presence" }

func (tablePresenceRule) Check(desc dataset.FamilyDescriptor, in dataset.Instance) Result {
	var res Result
	for _, ts := range desc.Tables {
		if _, ok := in.Table(ts.Name); !ok {
			res.Violations = append(res.Violations, Violation{
				Rule:    "table-presence",
				Family:  in.Family,
				Table:   ts.Name,
				Row:     -1,
				Message: "required sub-table is missing",
			})
		}
	}
	for _, t := range in.Tables {
		if _, ok := desc.Schema(t.Name); !ok {
			res.Violations = append(res.Violations, Violation{
				Rule:    "table-presence",
				Family:  in.Family,
				Table:   t.Name,
				Row:     -1,
				Message: "sub-table is not declared by the family schema",
			})
		}
	}
	return res
}

// columnPresenceRule verifies that every row carries every declared column.
type columnPresenceRule struct{}

func (columnPresenceRule) Name() string { return "column-presence" }

func (columnPresenceRule) Check(desc dataset.FamilyDescriptor, in dataset.Instance) Result {
	var res Result
	for _, t := range in.Tables {
		ts, ok := desc.Schema(t.Name)
		if !ok {
			continue
		}
		for i, row := range t.Rows {
			for _, col := range ts.Columns {
				if _, ok := row[col.Name]; !ok {
					res.Violations = append(res.Violations, Violation{
						Rule:    "column-presence",
						Family:  in.Family,
						Table:   t.Name,
						Row:     i,
						Column:  col.Name,
						Message: "declared column is absent from row",
					})
				}
			}
		}
	}
	return res
}

// nonNegativeCountRule verifies that count-typed fields are integral and >= 0.
type nonNegativeCountRule struct{}

func (nonNegativeCountRule) Name() string { return "non-negative-count" }

func (nonNegativeCountRule) Check(desc dataset.FamilyDescriptor, in dataset.Instance) Result {
	var res Result
	for _, t := range in.Tables {
		ts, ok := desc.Schema(t.Name)
		if !ok {
			continue
		}
		for i, row := range t.Rows {
			for _, col := range ts.Columns {
				if col.Type != dataset.TypeCount {
					continue
				}
				v, ok := row[col.Name]
				if !ok {
					continue
				}
				fv, err := dataset.Float(v)
				if err != nil {
					res.Violations = append(res.Violations, Violation{
						Rule:    "non-negative-count",
						Family:  in.Family,
						Table:   t.Name,
						Row:     i,
						Column:  col.Name,
						Message: fmt.Sprintf("count field is not numeric: %v", v),
					})
					continue
				}
				if fv < 0 {
					res.Violations = append(res.Violations, Violation{
						Rule:    "non-negative-count",
						Family:  in.Family,
						Table:   t.Name,
						Row:     i,
						Column:  col.Name,
						Message: fmt.Sprintf("count field is negative: %v", fv),
					})
				}
				if fv != math.Trunc(fv) {
					res.Violations = append(res.Violations, Violation{
						Rule:    "non-negative-count",
						Family:  in.Family,
						Table:   t.Name,
						Row:     i,
						Column:  col.Name,
						Message: fmt.Sprintf("count field is not integral: %v", fv),
					})
				}
			}
		}
	}
	return res
}

// rateBoundsRule verifies that rate-typed fields lie within their declared bounds.
type rateBoundsRule struct{}

func (rateBoundsRule) Name() string { return "rate-bounds" }

func (rateBoundsRule) Check(desc dataset.FamilyDescriptor, in dataset.Instance) Result {
	var res Result
	for _, t := range in.Tables {
		ts, ok := desc.Schema(t.Name)
		if !ok {
			continue
		}
		for i, row := range t.Rows {
			for _, col := range ts.Columns {
				if col.Type != dataset.TypeRate {
					continue
				}
				v, ok := row[col.Name]
				if !ok {
					continue
				}
				fv, err := dataset.Float(v)
				if err != nil {
					res.Violations = append(res.Violations, Violation{
						Rule:    "rate-bounds",
						Family:  in.Family,
						Table:   t.Name,
						Row:     i,
						Column:  col.Name,
						Message: fmt.Sprintf("rate field is not numeric: %v", v),
					})
					continue
				}
				if fv < col.RateMin || fv > col.RateMax {
					res.Violations = append(res.Violations, Violation{
						Rule:    "rate-bounds",
						Family:  in.Family,
						Table:   t.Name,
						Row:     i,
						Column:  col.Name,
						Message: fmt.Sprintf("rate %v outside [%v, %v]", fv, col.RateMin, col.RateMax),
					})
				}
			}
		}
	}
	return res
}

// categoricalClosureRule verifies that enum-constrained fields only take
// values from their reference set, and that a category column drawn from the
// test-category set belongs to the row's section when both are present.
type categoricalClosureRule struct{}

func (categoricalClosureRule) Name() string { return "categorical-closure" }

func (categoricalClosureRule) Check(desc dataset.FamilyDescriptor, in dataset.Instance) Result {
	var res Result
	for _, t := range in.Tables {
		ts, ok := desc.Schema(t.Name)
		if !ok {
			continue
		}
		var categoryCol, sectionCol string
		for _, col := range ts.Columns {
			switch col.Enum {
			case "categories":
				categoryCol = col.Name
			case "sections":
				sectionCol = col.Name
			}
		}
		for i, row := range t.Rows {
			for _, col := range ts.Columns {
				if col.Enum == "" {
					continue
				}
				values, ok := registry.EnumValues(col.Enum)
				if !ok {
					res.Violations = append(res.Violations, Violation{
						Rule:    "categorical-closure",
						Family:  in.Family,
						Table:   t.Name,
						Row:     i,
						Column:  col.Name,
						Message: fmt.Sprintf("schema references unknown enum set %q", col.Enum),
					})
					continue
				}
				raw, ok := row[col.Name]
				if !ok {
					continue
				}
				sv, ok := raw.(string)
				if !ok {
					res.Violations = append(res.Violations, Violation{
						Rule:    "categorical-closure",
						Family:  in.Family,
						Table:   t.Name,
						Row:     i,
						Column:  col.Name,
						Message: fmt.Sprintf("enum field is not a string: %v", raw),
					})
					continue
				}
				if !contains(values, sv) {
					res.Violations = append(res.Violations, Violation{
						Rule:    "categorical-closure",
						Family:  in.Family,
						Table:   t.Name,
						Row:     i,
						Column:  col.Name,
						Message: fmt.Sprintf("value %q is not in enum set %q", sv, col.Enum),
					})
				}
			}
			if categoryCol != "" && sectionCol != "" {
				category, _ := row[categoryCol].(string)
				section, _ := row[sectionCol].(string)
				if category != "" && section != "" {
					members, err := registry.CategoriesForSection(section)
					if err == nil && !contains(members, category) {
						res.Violations = append(res.Violations, Violation{
							Rule:    "categorical-closure",
							Family:  in.Family,
							Table:   t.Name,
							Row:     i,
							Column:  categoryCol,
							Message: fmt.Sprintf("category %q does not belong to section %q", category, section),
						})
					}
				}
			}
		}
	}
	return res
}

// derivationRule re-evaluates every declared derivation and compares the
// stored value against the recomputed one within the declared tolerance.
type derivationRule struct{}

func (derivationRule) Name() string { return "derivation" }

func (derivationRule) Check(desc dataset.FamilyDescriptor, in dataset.Instance) Result {
	var res Result
	for _, t := range in.Tables {
		ts, ok := desc.Schema(t.Name)
		if !ok {
			continue
		}
		for _, d := range ts.Derivations {
			for i, row := range t.Rows {
				want, err := d.Eval(row)
				if err != nil {
					res.Violations = append(res.Violations, Violation{
						Rule:    "derivation",
						Family:  in.Family,
						Table:   t.Name,
						Row:     i,
						Column:  d.Column,
						Message: fmt.Sprintf("derivation inputs unavailable: %v", err),
					})
					continue
				}
				raw, ok := row[d.Column]
				if !ok {
					continue
				}
				got, err := dataset.Float(raw)
				if err != nil {
					res.Violations = append(res.Violations, Violation{
						Rule:    "derivation",
						Family:  in.Family,
						Table:   t.Name,
						Row:     i,
						Column:  d.Column,
						Message: fmt.Sprintf("derived field is not numeric: %v", raw),
					})
					continue
				}
				tol := d.Tolerance
				if tol == 0 {
					tol = 0.01
				}
				if math.Abs(got-want) > tol {
					res.Violations = append(res.Violations, Violation{
						Rule:    "derivation",
						Family:  in.Family,
						Table:   t.Name,
						Row:     i,
						Column:  d.Column,
						Message: fmt.Sprintf("stored %v differs from recomputed %v by more than %v", got, want, tol),
					})
				}
			}
		}
	}
	return res
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
