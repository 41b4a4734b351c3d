package source

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/chazu/gametags/tags"
)

// DefaultSQLiteTable is the table read when SQLiteTable.Table is empty.
const DefaultSQLiteTable = "gameplay_tags"

// SQLiteTable reads rows from a table with columns tag, category and
// dev_comment, in rowid order.
type SQLiteTable struct {
	Path  string
	Table string
}

// Name returns the database path.
func (s SQLiteTable) Name() string { return s.Path }

func (s SQLiteTable) table() string {
	if s.Table == "" {
		return DefaultSQLiteTable
	}
	return s.Table
}

// uriEscaper escapes the characters SQLite treats specially in a file:
// URI path.
var uriEscaper = strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23")

// readOnlyDSN opens path without creating it when it does not exist.
func readOnlyDSN(path string) string {
	return "file:" + uriEscaper.Replace(path) + "?mode=ro"
}

// quoteIdent quotes a table name for SQL.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Rows queries the table. The database is opened read-only.
func (s SQLiteTable) Rows(ctx context.Context) ([]tags.TableRow, error) {
	db, err := sql.Open("sqlite", readOnlyDSN(s.Path))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, fmt.Sprintf(`SELECT * FROM %s ORDER BY rowid`, quoteIdent(s.table())))
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", s.table(), err)
	}
	defer rows.Close()
	return scanRows(rows)
}

// WriteSQLite creates (or replaces) the table at path and fills it with
// rows.
func WriteSQLite(ctx context.Context, path, table string, rows []tags.TableRow) error {
	if table == "" {
		table = DefaultSQLiteTable
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	ident := quoteIdent(table)
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS `+ident); err != nil {
		return fmt.Errorf("dropping table: %w", err)
	}
	_, err = tx.ExecContext(ctx, `CREATE TABLE `+ident+` (
		tag TEXT NOT NULL,
		category TEXT,
		dev_comment TEXT
	)`)
	if err != nil {
		return fmt.Errorf("creating table: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO `+ident+` (tag, category, dev_comment) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r.Tag, r.Category, r.DevComment); err != nil {
			return fmt.Errorf("inserting %q: %w", r.Tag, err)
		}
	}
	return tx.Commit()
}
