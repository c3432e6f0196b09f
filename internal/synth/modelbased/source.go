package modelbased

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"labsynth/pkg/dataset"
)

// Source supplies real tables for model fitting. Implementations only read;
// the engine never writes back to source data.
type Source interface {
	ReadTable(ctx context.Context, family, table string, schema dataset.TableSchema) (dataset.Table, error)
}

// CSVSource reads source tables from <root>/<family>.<table>.csv.
type CSVSource struct {
	Root string
}

func (s CSVSource) ReadTable(_ context.Context, family, table string, schema dataset.TableSchema) (dataset.Table, error) {
	path := filepath.Join(s.Root, fmt.Sprintf("%s.%s.csv", family, table))
	f, err := os.Open(path)
	if err != nil {
		return dataset.Table{}, fmt.Errorf("open source table: %w", err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return dataset.Table{}, fmt.Errorf("read source table %s: %w", path, err)
	}
	if len(records) == 0 {
		return dataset.Table{}, fmt.Errorf("source table %s is empty", path)
	}

	header := records[0]
	columns := make([]dataset.Column, len(header))
	for i, name := range header {
		columns[i] = schemaColumn(schema, name)
	}
	out := dataset.Table{Name: table, Columns: columns}
	for _, record := range records[1:] {
		row := make(map[string]any, len(header))
		for i, name := range header {
			if i >= len(record) {
				continue
			}
			row[name] = parseValue(columns[i], record[i])
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

// SQLiteSource reads source tables from a SQLite database; table names are
// <family>_<table>.
type SQLiteSource struct {
	Path string
}

func (s SQLiteSource) ReadTable(ctx context.Context, family, table string, schema dataset.TableSchema) (dataset.Table, error) {
	db, err := sql.Open("sqlite", s.Path)
	if err != nil {
		return dataset.Table{}, fmt.Errorf("open source database: %w", err)
	}
	defer func() { _ = db.Close() }()

	name := fmt.Sprintf("%s_%s", family, table)
	if !validTableName(name) {
		return dataset.Table{}, fmt.Errorf("invalid source table name %q", name)
	}
	rows, err := db.QueryContext(ctx, "SELECT * FROM "+name) //nolint:gosec // name validated above
	if err != nil {
		return dataset.Table{}, fmt.Errorf("query source table %s: %w", name, err)
	}
	defer func() { _ = rows.Close() }()

	header, err := rows.Columns()
	if err != nil {
		return dataset.Table{}, fmt.Errorf("source table columns: %w", err)
	}
	columns := make([]dataset.Column, len(header))
	for i, col := range header {
		columns[i] = schemaColumn(schema, col)
	}
	out := dataset.Table{Name: table, Columns: columns}
	values := make([]any, len(header))
	scan := make([]any, len(header))
	for i := range values {
		scan[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(scan...); err != nil {
			return dataset.Table{}, fmt.Errorf("scan source row: %w", err)
		}
		row := make(map[string]any, len(header))
		for i, col := range header {
			row[col] = normaliseSQLValue(columns[i], values[i])
		}
		out.Rows = append(out.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return dataset.Table{}, fmt.Errorf("iterate source rows: %w", err)
	}
	return out, nil
}

func validTableName(name string) bool {
	for _, r := range name {
		if r != '_' && (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return name != ""
}

func schemaColumn(schema dataset.TableSchema, name string) dataset.Column {
	for _, c := range schema.Columns {
		if c.Name == name {
			return c
		}
	}
	return dataset.Column{Name: name, Type: dataset.TypeString}
}

func parseValue(c dataset.Column, raw string) any {
	switch c.Type {
	case dataset.TypeCount:
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	case dataset.TypeFloat, dataset.TypeRate:
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			return v
		}
	case dataset.TypeBool:
		return strings.EqualFold(raw, "true")
	}
	return raw
}

func normaliseSQLValue(c dataset.Column, v any) any {
	switch x := v.(type) {
	case []byte:
		return parseValue(c, string(x))
	case string:
		return parseValue(c, x)
	case int64:
		if c.Type == dataset.TypeCount {
			return int(x)
		}
		if c.Type == dataset.TypeBool {
			return x != 0
		}
		return float64(x)
	case float64:
		if c.Type == dataset.TypeCount {
			return int(x)
		}
		return x
	case bool:
		return x
	}
	return v
}
