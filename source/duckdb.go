//go:build cgo

package source

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/chazu/gametags/tags"
)

// DuckDBAvailable reports whether this build can read CSV and Parquet
// tables.
const DuckDBAvailable = true

// DuckDBTable scans a CSV (with header) or Parquet file through an
// in-memory DuckDB connection.
type DuckDBTable struct {
	Path string
}

// Name returns the file path.
func (d DuckDBTable) Name() string { return d.Path }

// Rows scans the file.
func (d DuckDBTable) Rows(ctx context.Context) ([]tags.TableRow, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("opening duckdb: %w", err)
	}
	defer db.Close()

	scan := "read_csv_auto"
	if strings.EqualFold(filepath.Ext(d.Path), ".parquet") {
		scan = "read_parquet"
	}
	path := strings.ReplaceAll(d.Path, "'", "''")
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`SELECT * FROM %s('%s')`, scan, path))
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", d.Path, err)
	}
	defer rows.Close()
	return scanRows(rows)
}
