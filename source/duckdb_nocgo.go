//go:build !cgo

package source

import (
	"context"
	"errors"

	"github.com/chazu/gametags/tags"
)

// DuckDBAvailable reports whether this build can read CSV and Parquet
// tables.
const DuckDBAvailable = false

// DuckDBTable scans a CSV or Parquet file. This build has no cgo, so
// Rows always fails.
type DuckDBTable struct {
	Path string
}

// Name returns the file path.
func (d DuckDBTable) Name() string { return d.Path }

// Rows reports that DuckDB is unavailable.
func (d DuckDBTable) Rows(context.Context) ([]tags.TableRow, error) {
	return nil, errors.New("reading " + d.Path + ": DuckDB tables need a cgo build")
}
