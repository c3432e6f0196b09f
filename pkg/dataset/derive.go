package dataset

import (
	"fmt"
	"strconv"
)

// Float coerces a row value to float64. Counts are stored as int, rates and
// money as float64; serialised tables may carry strings.
func Float(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case string:
		return strconv.ParseFloat(x, 64)
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("value %v (%T) is not numeric", v, v)
}

// Eval recomputes the derived column from the row's input columns.
func (d Derivation) Eval(row map[string]any) (float64, error) {
	inputs := make([]float64, len(d.Inputs))
	for i, name := range d.Inputs {
		v, ok := row[name]
		if !ok {
			return 0, fmt.Errorf("derivation %s: input column %s missing", d.Column, name)
		}
		f, err := Float(v)
		if err != nil {
			return 0, fmt.Errorf("derivation %s: input %s: %w", d.Column, name, err)
		}
		inputs[i] = f
	}

	switch d.Kind {
	case DeriveSum:
		var sum float64
		for _, v := range inputs {
			sum += v
		}
		return sum, nil
	case DeriveRemainder:
		out := inputs[0]
		for _, v := range inputs[1:] {
			out -= v
		}
		return out, nil
	case DeriveProduct:
		out := 1.0
		for _, v := range inputs {
			out *= v
		}
		return out, nil
	case DeriveRate:
		if len(inputs) != 2 {
			return 0, fmt.Errorf("derivation %s: rate needs two inputs", d.Column)
		}
		if inputs[1] == 0 {
			return 0, nil
		}
		scale := d.Scale
		if scale == 0 {
			scale = 1
		}
		return inputs[0] / inputs[1] * scale, nil
	case DeriveWeighted:
		if len(d.Weights) != len(inputs) {
			return 0, fmt.Errorf("derivation %s: %d weights for %d inputs", d.Column, len(d.Weights), len(inputs))
		}
		var out float64
		for i, v := range inputs {
			if i < len(d.Invert) && d.Invert[i] {
				v = 100 - v
			}
			out += d.Weights[i] * v
		}
		return out, nil
	case DeriveZScore:
		if len(inputs) != 3 {
			return 0, fmt.Errorf("derivation %s: zscore needs three inputs", d.Column)
		}
		if inputs[2] == 0 {
			return 0, nil
		}
		return (inputs[0] - inputs[1]) / inputs[2], nil
	}
	return 0, fmt.Errorf("derivation %s: unsupported kind %q", d.Column, d.Kind)
}
