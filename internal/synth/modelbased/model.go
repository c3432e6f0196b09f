// Package modelbased synthesises tables from real source data: a Gaussian
// copula is fitted to the source's base columns and sampled to produce a
// synthetic table that approximates the source's marginal and joint
// distributions without copying any record. Derived columns are excluded
// from the fit and recomputed from the sampled base fields, identically to
// the parametric path.
package modelbased

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"labsynth/internal/synth"
	"labsynth/pkg/dataset"
)

// Model captures the fitted joint structure of one source table.
type Model struct {
	schema dataset.TableSchema
	rows   int

	// Gaussian copula over the numeric base columns.
	numericCols []string
	marginals   map[string][]float64 // sorted empirical marginals
	chol        mat.Cholesky

	// Categorical base columns are sampled jointly from the empirical tuple
	// distribution, preserving their cross-column dependence.
	catCols    []string
	catTuples  [][]any
	catWeights []float64

	// Identifier columns are regenerated, never learned: retaining them
	// would link synthetic rows back to source row identities.
	idCols []string
}

func derivedColumns(schema dataset.TableSchema) map[string]bool {
	derived := make(map[string]bool, len(schema.Derivations))
	for _, d := range schema.Derivations {
		derived[d.Column] = true
	}
	return derived
}

func numericType(t dataset.ColumnType) bool {
	switch t {
	case dataset.TypeCount, dataset.TypeFloat, dataset.TypeRate, dataset.TypeTimestamp:
		return true
	}
	return false
}

// Fit learns a model from the source table. It fails with ErrSchemaMismatch
// when any non-derived schema column is absent from the source; no fitting
// work happens in that case.
func Fit(source dataset.Table, schema dataset.TableSchema) (*Model, error) {
	present := make(map[string]bool, len(source.Columns))
	for _, c := range source.Columns {
		present[c.Name] = true
	}
	derived := derivedColumns(schema)
	for _, c := range schema.Columns {
		if derived[c.Name] {
			continue
		}
		if !present[c.Name] {
			return nil, fmt.Errorf("%w: table %s missing column %s", dataset.ErrSchemaMismatch, schema.Name, c.Name)
		}
	}
	declared := make(map[string]bool, len(schema.Columns))
	for _, c := range schema.Columns {
		declared[c.Name] = true
	}
	for _, c := range source.Columns {
		if !declared[c.Name] {
			return nil, fmt.Errorf("%w: table %s has undeclared column %s", dataset.ErrSchemaMismatch, schema.Name, c.Name)
		}
	}
	if len(source.Rows) == 0 {
		return nil, fmt.Errorf("%w: table %s has no rows to fit", dataset.ErrSchemaMismatch, schema.Name)
	}

	m := &Model{
		schema:    schema,
		rows:      len(source.Rows),
		marginals: make(map[string][]float64),
	}
	for _, c := range schema.Columns {
		if derived[c.Name] {
			continue
		}
		switch {
		case c.Type == dataset.TypeIdentifier:
			m.idCols = append(m.idCols, c.Name)
		case numericType(c.Type):
			m.numericCols = append(m.numericCols, c.Name)
		default:
			m.catCols = append(m.catCols, c.Name)
		}
	}

	if err := m.fitNumeric(source); err != nil {
		return nil, err
	}
	m.fitCategorical(source)
	return m, nil
}

func numericValue(c dataset.Column, v any) (float64, error) {
	if c.Type == dataset.TypeTimestamp {
		if s, ok := v.(string); ok {
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				return 0, err
			}
			return float64(t.Unix()), nil
		}
	}
	return dataset.Float(v)
}

func (m *Model) fitNumeric(source dataset.Table) error {
	dim := len(m.numericCols)
	if dim == 0 {
		return nil
	}
	n := len(source.Rows)
	columns := make(map[string][]float64, dim)
	for _, name := range m.numericCols {
		c := m.column(name)
		values := make([]float64, n)
		for i, row := range source.Rows {
			v, err := numericValue(c, row[name])
			if err != nil {
				return fmt.Errorf("%w: column %s row %d: %v", dataset.ErrSchemaMismatch, name, i, err)
			}
			values[i] = v
		}
		sorted := append([]float64(nil), values...)
		sort.Float64s(sorted)
		m.marginals[name] = sorted
		columns[name] = values
	}

	// Normal scores of the empirical ranks feed the copula correlation.
	scores := mat.NewDense(n, dim, nil)
	normal := distuv.UnitNormal
	for j, name := range m.numericCols {
		values := columns[name]
		sorted := m.marginals[name]
		for i, v := range values {
			rank := sort.SearchFloat64s(sorted, v)
			u := (float64(rank) + 0.5) / float64(n)
			scores.Set(i, j, normal.Quantile(clipUnit(u)))
		}
	}
	var corr mat.SymDense
	stat.CorrelationMatrix(&corr, scores, nil)
	// Constant columns have zero variance and produce NaN correlations;
	// treat them as uncorrelated.
	for i := 0; i < dim; i++ {
		for j := i; j < dim; j++ {
			if math.IsNaN(corr.At(i, j)) {
				if i == j {
					corr.SetSym(i, j, 1)
				} else {
					corr.SetSym(i, j, 0)
				}
			}
		}
	}

	// Shrink towards identity until the matrix factors; rank-deficient
	// sources otherwise break the Cholesky.
	for shrink := 0.0; shrink <= 0.5; shrink += 0.05 {
		adjusted := shrinkCorrelation(&corr, shrink)
		if m.chol.Factorize(adjusted) {
			return nil
		}
	}
	return fmt.Errorf("fit %s: correlation matrix not positive definite", m.schema.Name)
}

func shrinkCorrelation(corr *mat.SymDense, lambda float64) *mat.SymDense {
	n := corr.SymmetricDim()
	out := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := corr.At(i, j) * (1 - lambda)
			if i == j {
				v = 1
			}
			out.SetSym(i, j, v)
		}
	}
	return out
}

func clipUnit(u float64) float64 {
	const eps = 1e-9
	return math.Min(math.Max(u, eps), 1-eps)
}

func (m *Model) fitCategorical(source dataset.Table) {
	if len(m.catCols) == 0 {
		return
	}
	index := make(map[string]int)
	for _, row := range source.Rows {
		key := ""
		tuple := make([]any, len(m.catCols))
		for i, name := range m.catCols {
			tuple[i] = row[name]
			key += fmt.Sprintf("%v\x00", row[name])
		}
		if at, ok := index[key]; ok {
			m.catWeights[at]++
			continue
		}
		index[key] = len(m.catTuples)
		m.catTuples = append(m.catTuples, tuple)
		m.catWeights = append(m.catWeights, 1)
	}
}

func (m *Model) column(name string) dataset.Column {
	for _, c := range m.schema.Columns {
		if c.Name == name {
			return c
		}
	}
	return dataset.Column{Name: name}
}

// Rows returns the fitted source row count, the default sample size.
func (m *Model) Rows() int { return m.rows }

// Sample draws n synthetic rows from the fitted model and recomputes every
// derived column from the sampled base fields.
func (m *Model) Sample(rng *synth.Stream, n int) (dataset.Table, error) {
	if n <= 0 {
		n = m.rows
	}
	table := dataset.Table{Name: m.schema.Name, Columns: m.schema.Columns}
	dim := len(m.numericCols)
	normal := distuv.UnitNormal
	latent := make([]float64, dim)
	correlated := mat.NewVecDense(max(dim, 1), nil)

	var lower mat.TriDense
	if dim > 0 {
		m.chol.LTo(&lower)
	}

	for i := 0; i < n; i++ {
		row := make(map[string]any, len(m.schema.Columns))

		if dim > 0 {
			for j := range latent {
				latent[j] = rng.Normal(0, 1)
			}
			correlated.MulVec(&lower, mat.NewVecDense(dim, latent))
			for j, name := range m.numericCols {
				u := normal.CDF(correlated.AtVec(j))
				row[name] = m.quantile(name, u)
			}
		}

		if len(m.catCols) > 0 {
			tuple := m.catTuples[rng.WeightedIndex(m.catWeights)]
			for j, name := range m.catCols {
				row[name] = tuple[j]
			}
		}

		for _, name := range m.idCols {
			row[name] = fmt.Sprintf("SYN-%06d", i+1)
		}

		for _, d := range m.schema.Derivations {
			m.reconcileInputs(row, d)
			v, err := d.Eval(row)
			if err != nil {
				return dataset.Table{}, fmt.Errorf("sample %s: %w", m.schema.Name, err)
			}
			if m.column(d.Column).Type == dataset.TypeCount {
				row[d.Column] = int(math.Round(v))
			} else {
				row[d.Column] = v
			}
		}

		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// reconcileInputs adjusts sampled base fields so the recomputed derivation
// satisfies the derived column's own constraints. Marginals are sampled
// through the copula, not jointly exact, so a low total can land next to a
// high sibling: a remainder count would go negative, a rate would leave its
// declared bounds. Capping the inputs keeps the derivation equality intact.
func (m *Model) reconcileInputs(row map[string]any, d dataset.Derivation) {
	c := m.column(d.Column)
	switch d.Kind {
	case dataset.DeriveRemainder:
		if c.Type != dataset.TypeCount || len(d.Inputs) < 2 {
			return
		}
		remaining, err := dataset.Float(row[d.Inputs[0]])
		if err != nil {
			return
		}
		for _, name := range d.Inputs[1:] {
			v, err := dataset.Float(row[name])
			if err != nil {
				return
			}
			if v > remaining {
				v = remaining
				row[name] = m.castNumeric(name, v)
			}
			remaining -= v
		}
	case dataset.DeriveRate:
		if c.Type != dataset.TypeRate || len(d.Inputs) != 2 {
			return
		}
		num, err := dataset.Float(row[d.Inputs[0]])
		if err != nil {
			return
		}
		den, err := dataset.Float(row[d.Inputs[1]])
		if err != nil || den == 0 {
			return
		}
		scale := d.Scale
		if scale == 0 {
			scale = 1
		}
		lo := den * c.RateMin / scale
		hi := den * c.RateMax / scale
		clamped := math.Min(math.Max(num, lo), hi)
		if m.column(d.Inputs[0]).Type == dataset.TypeCount {
			clamped = math.Round(clamped)
			if clamped > hi {
				clamped = math.Floor(hi)
			}
			if clamped < lo {
				clamped = math.Ceil(lo)
			}
		}
		if clamped != num {
			row[d.Inputs[0]] = m.castNumeric(d.Inputs[0], clamped)
		}
	}
}

func (m *Model) castNumeric(name string, v float64) any {
	if m.column(name).Type == dataset.TypeCount {
		return int(math.Round(v))
	}
	return v
}

// quantile inverts the empirical marginal of the column, respecting its
// semantic type: counts round to non-negative integers, rates clip to their
// declared bounds, timestamps render back to RFC3339.
func (m *Model) quantile(name string, u float64) any {
	sorted := m.marginals[name]
	v := stat.Quantile(clipUnit(u), stat.Empirical, sorted, nil)
	c := m.column(name)
	switch c.Type {
	case dataset.TypeCount:
		iv := int(math.Round(v))
		if iv < 0 {
			iv = 0
		}
		return iv
	case dataset.TypeRate:
		return math.Min(math.Max(v, c.RateMin), c.RateMax)
	case dataset.TypeTimestamp:
		return time.Unix(int64(math.Round(v)), 0).UTC().Format(time.RFC3339)
	default:
		return v
	}
}
