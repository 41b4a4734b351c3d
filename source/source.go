// Package source provides tag table sources for the registry.
//
// A table is a list of rows (tag, category, dev comment). Tables can come
// from TOML files, SQLite databases, CSV or Parquet files read through
// DuckDB, or CBOR snapshots written by the archive package. Open picks
// the reader from the file extension.
package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/chazu/gametags/archive"
	"github.com/chazu/gametags/tags"
)

var log = commonlog.GetLogger("gametags.source")

// ErrUnknownTableFormat is returned by Open for an unrecognized extension.
var ErrUnknownTableFormat = errors.New("unknown tag table format")

// Static is an in-memory table.
type Static struct {
	Label string
	Table []tags.TableRow
}

// Name returns the label.
func (s Static) Name() string { return s.Label }

// Rows returns the rows as given.
func (s Static) Rows(ctx context.Context) ([]tags.TableRow, error) {
	return s.Table, ctx.Err()
}

// Names builds a static table from bare tag names.
func Names(label string, names ...string) Static {
	rows := make([]tags.TableRow, len(names))
	for i, n := range names {
		rows[i] = tags.TableRow{Tag: n}
	}
	return Static{Label: label, Table: rows}
}

// Snapshot reads a CBOR table snapshot.
type Snapshot struct {
	Path string
}

// Name returns the file path.
func (s Snapshot) Name() string { return s.Path }

// Rows decodes the snapshot file.
func (s Snapshot) Rows(ctx context.Context) ([]tags.TableRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	return archive.UnmarshalTable(data)
}

// Open returns the source for a table file, chosen by extension:
//
//	.toml           TOML [[tag]] rows
//	.db .sqlite     SQLite gameplay_tags table
//	.csv .parquet   DuckDB scan (cgo builds only)
//	.cbor           archive snapshot
func Open(path string) (tags.Source, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		return TOMLTable{Path: path}, nil
	case ".db", ".sqlite", ".sqlite3":
		return SQLiteTable{Path: path}, nil
	case ".csv", ".parquet":
		return DuckDBTable{Path: path}, nil
	case ".cbor":
		return Snapshot{Path: path}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTableFormat, path)
	}
}

// OpenAll opens each path relative to dir.
func OpenAll(dir string, paths []string) ([]tags.Source, error) {
	sources := make([]tags.Source, 0, len(paths))
	for _, p := range paths {
		if !filepath.IsAbs(p) {
			p = filepath.Join(dir, p)
		}
		src, err := Open(p)
		if err != nil {
			return nil, err
		}
		log.Debugf("tag table %s", p)
		sources = append(sources, src)
	}
	return sources, nil
}
