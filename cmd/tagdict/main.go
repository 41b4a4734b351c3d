// tagdict loads a gametags.toml dictionary and inspects, exports or
// serves it.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/gametags/manifest"
	"github.com/chazu/gametags/server"
	"github.com/chazu/gametags/tags"
)

func main() {
	dir := flag.String("C", ".", "Directory to search upward for gametags.toml")
	developer := flag.String("dev", os.Getenv("USER"), "Developer whose override list is merged")
	showTree := flag.Bool("tree", false, "Print the tag tree")
	showNet := flag.Bool("net", false, "Print the net index table and replication report")
	snapshot := flag.String("snapshot", "", "Write a CBOR table snapshot to this file")
	export := flag.String("export", "", "Write the table to this SQLite database")
	check := flag.String("check", "", "Compare net indices with the tag service at this URL")
	serveAddr := flag.String("serve", "", "Serve the dictionary over Connect on this address")
	rebuild := flag.Bool("allow-rebuild", false, "Allow clients to trigger a dictionary rebuild (with -serve)")
	verbose := flag.Bool("v", false, "Verbose output")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: tagdict [options]\n\n")
		fmt.Fprintf(os.Stderr, "Builds the tag dictionary described by gametags.toml.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  tagdict -tree                         # Print the hierarchy\n")
		fmt.Fprintf(os.Stderr, "  tagdict -net                          # Show net index assignment\n")
		fmt.Fprintf(os.Stderr, "  tagdict -snapshot tags.cbor           # Freeze the table\n")
		fmt.Fprintf(os.Stderr, "  tagdict -check http://host:4568       # Verify replication parity\n")
		fmt.Fprintf(os.Stderr, "  tagdict -serve :4568 -allow-rebuild   # Serve lookups and queries\n")
	}
	flag.Parse()

	verbosity := 0
	if *verbose {
		verbosity = 2
	}
	commonlog.Configure(verbosity, nil)

	ctx := context.Background()
	reg, err := load(ctx, *dir, *developer)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *verbose {
		fmt.Printf("Loaded %d tags\n", reg.NumTags())
	}

	if *showTree {
		printTree(os.Stdout, reg)
	}
	if *showNet {
		printNetTable(os.Stdout, reg)
	}
	if *snapshot != "" {
		if err := writeSnapshot(*snapshot, reg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
	if *export != "" {
		if err := exportSQLite(ctx, *export, reg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
	if *check != "" {
		client := server.NewClient(nil, *check)
		if err := client.CheckParity(ctx, reg); err != nil {
			fmt.Fprintf(os.Stderr, "Parity check failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Net index tables match")
	}

	if *serveAddr != "" {
		var opts []server.ServerOption
		if *rebuild {
			opts = append(opts, server.WithRebuild())
		}
		srv := server.New(reg, opts...)
		defer srv.Stop()
		if err := srv.ListenAndServe(*serveAddr); err != nil {
			fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
			os.Exit(1)
		}
	}
}

// load finds gametags.toml above dir and builds its registry. Without a
// manifest the registry is empty.
func load(ctx context.Context, dir, developer string) (*tags.Registry, error) {
	m, err := manifest.FindAndLoad(dir)
	if err != nil {
		return nil, err
	}
	var reg *tags.Registry
	if m == nil {
		fmt.Fprintf(os.Stderr, "Warning: no %s found above %s\n", manifest.FileName, dir)
		reg = tags.NewRegistry()
	} else {
		reg, err = m.NewRegistry(developer)
		if err != nil {
			return nil, err
		}
	}
	if err := reg.ConstructTree(ctx); err != nil {
		return nil, err
	}
	return reg, nil
}
