package orchestrator

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"labsynth/pkg/dataset"
)

// artifactKey lays out persisted tables as <family>/data/<family>.<table>.<ext>.
func artifactKey(family, table string, format dataset.Format) string {
	return fmt.Sprintf("%s/data/%s.%s.%s", family, family, table, format)
}

func manifestKey(family string) string {
	return fmt.Sprintf("%s/manifest.json", family)
}

// renderCSV serialises a table with the schema's column order. Every run of
// the same instance produces byte-identical output.
func renderCSV(t dataset.Table) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	header := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		header[i] = col.Name
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}
	record := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, col := range t.Columns {
			record[i] = formatValue(row[col.Name])
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// renderJSON serialises a table as an array of objects with the schema's
// column order preserved inside each object.
func renderJSON(t dataset.Table) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("[\n")
	for i, row := range t.Rows {
		if i > 0 {
			buf.WriteString(",\n")
		}
		buf.WriteString("  {")
		for j, col := range t.Columns {
			if j > 0 {
				buf.WriteString(", ")
			}
			name, err := json.Marshal(col.Name)
			if err != nil {
				return nil, err
			}
			value, err := json.Marshal(row[col.Name])
			if err != nil {
				return nil, fmt.Errorf("encode %s: %w", col.Name, err)
			}
			buf.Write(name)
			buf.WriteString(": ")
			buf.Write(value)
		}
		buf.WriteString("}")
	}
	buf.WriteString("\n]\n")
	return buf.Bytes(), nil
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", x)
	}
}

// manifest is the per-family provenance artifact written next to the data.
type manifest struct {
	RunID       string          `json:"run_id"`
	Family      string          `json:"family"`
	Mode        dataset.Mode    `json:"mode"`
	Seed        int64           `json:"seed"`
	GeneratedAt time.Time       `json:"generated_at"`
	Tables      []manifestTable `json:"tables"`
}

type manifestTable struct {
	Name      string   `json:"name"`
	Rows      int      `json:"rows"`
	Artifacts []string `json:"artifacts"`
}

func renderManifest(m manifest) ([]byte, error) {
	body, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	return append(body, '\n'), nil
}
