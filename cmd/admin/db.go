package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"slices"
	"strings"

	"voxelmap.ai/internal/persistence/sqlitestore"
)

// dbCmd reports the layout and per-LOD chunk counts of a sqlite map file.
func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "map.sqlite", "sqlite map path, relative to -data")
	_ = fs.Parse(args)

	path := under(*dataDir, *dbPath)
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintln(os.Stderr, "stat:", err)
		os.Exit(1)
	}
	db, err := sqlitestore.Open(path, log.New(io.Discard, "", 0))
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()
	layout, err := db.Layout(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "layout:", err)
		os.Exit(1)
	}
	counts, err := db.Count(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "count:", err)
		os.Exit(1)
	}
	printJSON(dbSummary(path, layout, counts))
}

type lodCount struct {
	LOD    uint8 `json:"lod"`
	Chunks int   `json:"chunks"`
}

type summary struct {
	Path   string     `json:"path"`
	Layout string     `json:"layout"`
	Total  int        `json:"total"`
	LODs   []lodCount `json:"lods"`
}

func dbSummary(path, layout string, counts map[uint8]int) summary {
	out := summary{Path: path, Layout: strings.TrimSpace(layout), LODs: []lodCount{}}
	for lod, n := range counts {
		out.LODs = append(out.LODs, lodCount{LOD: lod, Chunks: n})
		out.Total += n
	}
	slices.SortFunc(out.LODs, func(a, b lodCount) int { return int(a.LOD) - int(b.LOD) })
	return out
}
