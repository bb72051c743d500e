package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"voxelmap.ai/internal/geom"
	"voxelmap.ai/internal/voxel/chunk"
	"voxelmap.ai/internal/voxel/clipmap"
)

// JSONLZstdWriter appends JSON lines to one zstd file per UTC hour.
type JSONLZstdWriter struct {
	baseDir string
	prefix  string
	now     func() time.Time

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
		now:     time.Now,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := w.now().UTC().Format("2006-01-02-15")
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	return w.w.WriteByte('\n')
}

// Flush pushes buffered lines into the current zstd frame.
func (w *JSONLZstdWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.w == nil {
		return nil
	}
	if err := w.w.Flush(); err != nil {
		return err
	}
	return w.enc.Flush()
}

func (w *JSONLZstdWriter) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	path := w.pathForHour(hour)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 128*1024)
	w.curHour = hour
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	w.curHour = ""
	return err1
}

func (w *JSONLZstdWriter) pathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

// KeyV1 is a dimension-agnostic chunk key.
type KeyV1 struct {
	LOD   uint8   `json:"lod"`
	Coord []int32 `json:"coord"`
}

func KeyFrom[P geom.Point[P]](k chunk.Key[P]) KeyV1 {
	return KeyV1{LOD: k.LOD, Coord: geom.Slice(k.Coord)}
}

// EventEntry is one delivered clipmap event.
type EventEntry struct {
	Seq      uint64  `json:"seq"`
	Frame    uint64  `json:"frame"`
	Kind     string  `json:"kind"`
	Key      KeyV1   `json:"key"`
	Parent   *KeyV1  `json:"parent,omitempty"`
	Children []KeyV1 `json:"children,omitempty"`
}

func EntryFrom[P geom.Point[P]](frame uint64, e clipmap.Event[P]) EventEntry {
	out := EventEntry{Frame: frame, Kind: e.Kind.String(), Key: KeyFrom(e.Key)}
	if e.Kind == clipmap.KindSplit {
		p := KeyFrom(e.Parent)
		out.Parent = &p
	}
	for _, c := range e.Children {
		out.Children = append(out.Children, KeyFrom(c))
	}
	return out
}

// EventLogger writes events-YYYY-MM-DD-HH.jsonl.zst under dir.
type EventLogger struct {
	w   *JSONLZstdWriter
	mu  sync.Mutex
	seq uint64
}

func NewEventLogger(dir string) *EventLogger {
	return &EventLogger{w: NewJSONLZstdWriter(dir, "events")}
}

// WriteEvent assigns the next sequence number and appends the entry.
func (l *EventLogger) WriteEvent(e EventEntry) error {
	l.mu.Lock()
	l.seq++
	e.Seq = l.seq
	l.mu.Unlock()
	return l.w.Write(e)
}

func (l *EventLogger) Flush() error { return l.w.Flush() }
func (l *EventLogger) Close() error { return l.w.Close() }
