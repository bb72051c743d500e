package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	persistlog "voxelmap.ai/internal/persistence/log"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "db":
			dbCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "snapshot":
			snapshotCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

// listCmd prints the snapshots and event files under the data directory.
func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	eventsDir := fs.String("events", "events", "event log directory, relative to -data")
	snapDir := fs.String("snapshots", "snapshots", "snapshot directory, relative to -data")
	_ = fs.Parse(args)

	snaps, err := filepath.Glob(filepath.Join(under(*dataDir, *snapDir), "*.snap.zst"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "glob:", err)
		os.Exit(1)
	}
	for _, p := range snaps {
		fmt.Println(p)
	}
	files, err := persistlog.ListFiles(under(*dataDir, *eventsDir), "events")
	if err != nil && !os.IsNotExist(err) {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, p := range files {
		fmt.Println(p)
	}
}

func under(dataDir, p string) string {
	p = strings.TrimSpace(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dataDir, p)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
