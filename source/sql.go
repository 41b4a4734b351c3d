package source

import (
	"database/sql"
	"fmt"

	"github.com/chazu/gametags/tags"
)

// scanRows maps result columns named tag, category and dev_comment onto
// table rows. Only tag is required; other columns are ignored.
func scanRows(rows *sql.Rows) ([]tags.TableRow, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	tagCol, catCol, devCol := -1, -1, -1
	for i, c := range cols {
		switch c {
		case "tag":
			tagCol = i
		case "category":
			catCol = i
		case "dev_comment":
			devCol = i
		}
	}
	if tagCol < 0 {
		return nil, fmt.Errorf("table has no tag column (columns %v)", cols)
	}

	var out []tags.TableRow
	vals := make([]sql.NullString, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := tags.TableRow{Tag: vals[tagCol].String}
		if catCol >= 0 {
			row.Category = vals[catCol].String
		}
		if devCol >= 0 {
			row.DevComment = vals[devCol].String
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
