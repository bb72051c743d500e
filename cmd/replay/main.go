package main

import (
	"flag"
	"fmt"
	"os"
	"slices"

	persistlog "voxelmap.ai/internal/persistence/log"
	"voxelmap.ai/internal/persistence/snapshot"
)

func main() {
	var (
		snapPath  = flag.String("snapshot", "", "path to .snap.zst (optional)")
		eventsDir = flag.String("events", "", "events dir containing events-*.jsonl.zst (optional)")
		budget    = flag.Int("budget", 0, "chunks_processed_per_frame the log was written with (0 skips the check)")
		headOnly  = flag.Bool("header", false, "only read the snapshot header")
	)
	flag.Parse()

	if *snapPath == "" && *eventsDir == "" {
		fmt.Fprintln(os.Stderr, "need -snapshot and/or -events")
		os.Exit(2)
	}

	if *snapPath != "" {
		if err := describeSnapshot(*snapPath, *headOnly); err != nil {
			fmt.Fprintln(os.Stderr, "snapshot:", err)
			os.Exit(1)
		}
	}
	if *eventsDir == "" {
		return
	}

	files, err := persistlog.ListFiles(*eventsDir, "events")
	if err != nil {
		fmt.Fprintln(os.Stderr, "list events:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no events files found in", *eventsDir)
		os.Exit(1)
	}
	r, err := checkFiles(files, *budget)
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
	fmt.Printf("events: files=%d entries=%d sessions=%d frames=%d max_per_frame=%d\n",
		len(files), r.Entries, r.Sessions, r.Frames, r.MaxBatch)
	for _, kind := range []string{"load", "unload", "split", "merge"} {
		fmt.Printf("  %-6s %d\n", kind, r.ByKind[kind])
	}
	lods := make([]uint8, 0, len(r.ByLOD))
	for lod := range r.ByLOD {
		lods = append(lods, lod)
	}
	slices.Sort(lods)
	for _, lod := range lods {
		fmt.Printf("  lod %d: %d\n", lod, r.ByLOD[lod])
	}
	if len(r.Problems) > 0 {
		for _, p := range r.Problems {
			fmt.Fprintln(os.Stderr, "problem:", p)
		}
		os.Exit(1)
	}
	fmt.Println("replay ok")
}

func checkFiles(files []string, budget int) (*report, error) {
	r := newReport(budget)
	for _, path := range files {
		err := persistlog.ReadEvents(path, func(e persistlog.EventEntry) error {
			r.add(e)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	r.finish()
	return r, nil
}

func describeSnapshot(path string, headOnly bool) error {
	h, err := snapshot.ReadHeader(path)
	if err != nil {
		return err
	}
	fmt.Printf("snapshot v%d dim=%d chunk_shape=%v root_lod=%d chunks=%d created_unix=%d\n",
		h.Version, h.Dim, h.ChunkShape, h.RootLOD, h.Chunks, h.CreatedUnix)
	if headOnly {
		return nil
	}
	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		return err
	}
	if len(snap.Chunks) != h.Chunks {
		return fmt.Errorf("header says %d chunks, body has %d", h.Chunks, len(snap.Chunks))
	}
	perLOD := make([]int, int(snap.Header.RootLOD)+1)
	bytes := 0
	for _, c := range snap.Chunks {
		if int(c.LOD) >= len(perLOD) {
			return fmt.Errorf("chunk %v at lod %d above root %d", c.Coord, c.LOD, snap.Header.RootLOD)
		}
		perLOD[c.LOD]++
		bytes += len(c.Data)
	}
	for lod, n := range perLOD {
		fmt.Printf("  lod %d: %d chunks\n", lod, n)
	}
	fmt.Printf("  payload bytes: %d\n", bytes)
	return nil
}
