package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chazu/gametags/archive"
	"github.com/chazu/gametags/source"
	"github.com/chazu/gametags/tags"
)

// printTree writes one line per node, indented by depth, with the
// category when one is set.
func printTree(w io.Writer, reg *tags.Registry) {
	reg.Walk(func(t tags.Tag, depth int) bool {
		line := strings.Repeat("  ", depth) + reg.SimpleName(t)
		if cat := reg.Category(t); cat != "" {
			line += "  # " + cat
		}
		fmt.Fprintln(w, line)
		return true
	})
}

// printNetTable writes the net index table followed by the replication
// report.
func printNetTable(w io.Writer, reg *tags.Registry) {
	for i, name := range reg.NetIndexTable() {
		fmt.Fprintf(w, "%5d  %s\n", i, name)
	}
	rep := reg.NetIndexReport()
	fmt.Fprintf(w, "\ntags:               %d\n", rep.TableSize)
	fmt.Fprintf(w, "invalid index:      %d\n", reg.InvalidNetIndex())
	fmt.Fprintf(w, "true bits:          %d\n", rep.TrueBits)
	fmt.Fprintf(w, "first segment:      %d\n", rep.FirstSegment)
	fmt.Fprintf(w, "commonly in front:  %d\n", rep.CommonlyInFront)
	fmt.Fprintf(w, "bits (common/worst): %d/%d, saving %d per common tag\n",
		rep.CommonBits, rep.WorstBits, rep.SavedBitsPerTag)
	fmt.Fprintf(w, "digest:             %x\n", reg.NetIndexDigest())
}

func writeSnapshot(path string, reg *tags.Registry) error {
	data, err := archive.MarshalTable(reg)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

func exportSQLite(ctx context.Context, path string, reg *tags.Registry) error {
	var rows []tags.TableRow
	reg.AllTags().Each(func(t tags.Tag) bool {
		rows = append(rows, tags.TableRow{Tag: t.Name(), Category: reg.Category(t)})
		return true
	})
	return source.WriteSQLite(ctx, path, "", rows)
}
