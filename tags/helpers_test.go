package tags

import (
	"context"
	"testing"
)

// rowSource is an in-memory tag table.
type rowSource struct {
	name string
	rows []TableRow
	err  error
}

func (s *rowSource) Name() string { return s.name }

func (s *rowSource) Rows(ctx context.Context) ([]TableRow, error) {
	return s.rows, s.err
}

func rowsOf(names ...string) []TableRow {
	rows := make([]TableRow, len(names))
	for i, n := range names {
		rows[i] = TableRow{Tag: n}
	}
	return rows
}

// buildRegistry builds a registry holding the given tag names.
func buildRegistry(t *testing.T, names []string, opts ...Option) *Registry {
	t.Helper()
	opts = append([]Option{WithSources(&rowSource{name: "test", rows: rowsOf(names...)})}, opts...)
	r := NewRegistry(opts...)
	if err := r.ConstructTree(context.Background()); err != nil {
		t.Fatalf("ConstructTree: %v", err)
	}
	return r
}

func weaponRegistry(t *testing.T) *Registry {
	t.Helper()
	return buildRegistry(t, []string{"Weapon", "Weapon.Melee", "Weapon.Ranged.Pistol"})
}

func container(r *Registry, names ...string) Container {
	var c Container
	for _, n := range names {
		c.AddTag(r.MustTag(n))
	}
	return c
}
