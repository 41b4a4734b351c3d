package source

import (
	"context"
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/chazu/gametags/tags"
)

// TOMLTable reads a table file of the form:
//
//	[[tag]]
//	tag = "Damage.Physical"
//	category = "Physical damage"
//	dev-comment = "applied by melee hits"
type TOMLTable struct {
	Path string
}

type tomlTable struct {
	Tag []tags.TableRow `toml:"tag"`
}

// Name returns the file path.
func (t TOMLTable) Name() string { return t.Path }

// Rows parses the file.
func (t TOMLTable) Rows(ctx context.Context) ([]tags.TableRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var tbl tomlTable
	md, err := toml.DecodeFile(t.Path, &tbl)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", t.Path, err)
	}
	for _, key := range md.Undecoded() {
		log.Warningf("%s: unknown key %s", t.Path, key)
	}
	return tbl.Tag, nil
}
