// Package sqlitestore is a chunk.Storage backend persisted in a SQLite file.
//
// Each Store keeps its LOD's nodes in memory and writes through on Insert and
// Remove. Inserted nodes and nodes handed out by GetMut are marked dirty and
// rewritten by Flush.
package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"voxelmap.ai/internal/geom"
	"voxelmap.ai/internal/voxel/chunk"
	"voxelmap.ai/internal/voxel/codec"
)

type DB struct {
	db     *sql.DB
	logger *log.Logger
}

func Open(path string, logger *log.Logger) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(os.Stdout, "[sqlitestore] ", log.LstdFlags|log.Lmicroseconds)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &DB{db: db, logger: logger}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS chunks (
			lod INTEGER NOT NULL,
			key TEXT NOT NULL,
			state INTEGER NOT NULL,
			payload BLOB NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (lod, key)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (d *DB) Close() error { return d.db.Close() }

// EnsureLayout records layout on first use and rejects a file written with a
// different one, since chunk payloads depend on the chunk shape.
func (d *DB) EnsureLayout(layout string) error {
	var have string
	err := d.db.QueryRow(`SELECT value FROM meta WHERE key='layout'`).Scan(&have)
	switch {
	case err == sql.ErrNoRows:
		_, err = d.db.Exec(`INSERT INTO meta(key,value) VALUES('layout',?)`, layout)
		return err
	case err != nil:
		return err
	case have != layout:
		return fmt.Errorf("db layout %q does not match %q", have, layout)
	}
	return nil
}

// Layout returns the recorded layout, or "" for a file no map has used yet.
func (d *DB) Layout(ctx context.Context) (string, error) {
	var have string
	err := d.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key='layout'`).Scan(&have)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return have, err
}

// Count returns the number of persisted chunks per LOD.
func (d *DB) Count(ctx context.Context) (map[uint8]int, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT lod, COUNT(*) FROM chunks GROUP BY lod`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[uint8]int{}
	for rows.Next() {
		var lod, n int
		if err := rows.Scan(&lod, &n); err != nil {
			return nil, err
		}
		out[uint8(lod)] = n
	}
	return out, rows.Err()
}

type Store[P geom.Point[P], C any] struct {
	db     *DB
	lod    uint8
	extent func(chunk.Key[P]) geom.Extent[P]
	codec  codec.NodeCodec[P, C]

	nodes map[P]*chunk.Node[C]
	dirty map[P]struct{}
	err   error
}

// NewStore loads every persisted chunk of lod. extent maps a key to its chunk
// extent (chunk.Map.ChunkExtent). Clip state does not survive a restart.
func NewStore[P geom.Point[P], C any](db *DB, lod uint8, extent func(chunk.Key[P]) geom.Extent[P], nc codec.NodeCodec[P, C]) (*Store[P, C], error) {
	s := &Store[P, C]{
		db:     db,
		lod:    lod,
		extent: extent,
		codec:  nc,
		nodes:  map[P]*chunk.Node[C]{},
		dirty:  map[P]struct{}{},
	}
	rows, err := db.db.Query(`SELECT key, payload FROM chunks WHERE lod=?`, int(lod))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var payload []byte
		if err := rows.Scan(&key, &payload); err != nil {
			return nil, err
		}
		coord, err := parseCoord[P](key)
		if err != nil {
			return nil, fmt.Errorf("lod %d: %w", lod, err)
		}
		n, err := nc.Decode(extent(chunk.NewKey(lod, coord)), payload)
		if err != nil {
			return nil, fmt.Errorf("lod %d key %s: %w", lod, key, err)
		}
		n.State = 0
		s.nodes[coord] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store[P, C]) Get(coord P) (*chunk.Node[C], bool) {
	n, ok := s.nodes[coord]
	return n, ok
}

func (s *Store[P, C]) GetMut(coord P) (*chunk.Node[C], bool) {
	n, ok := s.nodes[coord]
	if ok {
		s.dirty[coord] = struct{}{}
	}
	return n, ok
}

func (s *Store[P, C]) Insert(coord P, n *chunk.Node[C]) (*chunk.Node[C], bool) {
	prev, ok := s.nodes[coord]
	s.nodes[coord] = n
	// Fresh chunks are usually filled right after insertion.
	s.dirty[coord] = struct{}{}
	s.record(s.write(coord, n))
	return prev, ok
}

func (s *Store[P, C]) Remove(coord P) (*chunk.Node[C], bool) {
	prev, ok := s.nodes[coord]
	if !ok {
		return nil, false
	}
	delete(s.nodes, coord)
	delete(s.dirty, coord)
	_, err := s.db.db.Exec(`DELETE FROM chunks WHERE lod=? AND key=?`, int(s.lod), formatCoord(coord))
	s.record(err)
	return prev, true
}

func (s *Store[P, C]) Len() int { return len(s.nodes) }

func (s *Store[P, C]) Keys() []P {
	keys := make([]P, 0, len(s.nodes))
	for k := range s.nodes {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, geom.Compare[P])
	return keys
}

// Flush writes every node touched through GetMut in one transaction and
// returns the first write error seen since the last Flush.
func (s *Store[P, C]) Flush(ctx context.Context) error {
	if len(s.dirty) > 0 {
		tx, err := s.db.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()
		for coord := range s.dirty {
			if err := s.writeTx(tx, coord, s.nodes[coord]); err != nil {
				return err
			}
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		clear(s.dirty)
	}
	err := s.err
	s.err = nil
	return err
}

func (s *Store[P, C]) Dirty() int { return len(s.dirty) }

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func (s *Store[P, C]) write(coord P, n *chunk.Node[C]) error {
	return s.writeTx(s.db.db, coord, n)
}

// Placeholders only exist in memory; writing one clears any stale row.
func (s *Store[P, C]) writeTx(ex execer, coord P, n *chunk.Node[C]) error {
	key := formatCoord(coord)
	if n == nil || !n.HasChunk {
		_, err := ex.Exec(`DELETE FROM chunks WHERE lod=? AND key=?`, int(s.lod), key)
		return err
	}
	payload, err := s.codec.Encode(n)
	if err != nil {
		return fmt.Errorf("encode lod %d key %s: %w", s.lod, key, err)
	}
	_, err = ex.Exec(`INSERT OR REPLACE INTO chunks(lod,key,state,payload,updated_at) VALUES(?,?,?,?,?)`,
		int(s.lod), key, int(n.State), payload, time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

func (s *Store[P, C]) record(err error) {
	if err == nil {
		return
	}
	s.db.logger.Printf("lod %d write: %v", s.lod, err)
	if s.err == nil {
		s.err = err
	}
}

func formatCoord[P geom.Point[P]](p P) string {
	parts := make([]string, p.Dim())
	for i := range parts {
		parts[i] = strconv.FormatInt(int64(p.At(i)), 10)
	}
	return strings.Join(parts, ",")
}

func parseCoord[P geom.Point[P]](s string) (P, error) {
	parts := strings.Split(s, ",")
	axes := make([]int32, len(parts))
	for i, part := range parts {
		v, err := strconv.ParseInt(part, 10, 32)
		if err != nil {
			var zero P
			return zero, fmt.Errorf("bad key %q: %w", s, err)
		}
		axes[i] = int32(v)
	}
	p, ok := geom.FromSlice[P](axes)
	if !ok {
		return p, fmt.Errorf("bad key %q: wrong arity", s)
	}
	return p, nil
}
