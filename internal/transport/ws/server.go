// Package ws serves the clipmap event stream over websockets and accepts
// camera updates from loopback clients.
package ws

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorilla/websocket"

	"voxelmap.ai/internal/geom"
	plog "voxelmap.ai/internal/persistence/log"
	"voxelmap.ai/internal/voxel/clipmap"
)

type subscriber struct {
	out    chan []byte
	minLOD uint8
	maxLOD uint8
}

// Hub fans events out to connected clients. Publish never blocks: a client
// whose queue is full is disconnected.
type Hub struct {
	log     *log.Logger
	welcome WelcomeMsg

	upgrader websocket.Upgrader
	nextID   atomic.Uint64

	mu     sync.Mutex
	subs   map[uint64]*subscriber
	seq    uint64
	camera *mgl32.Vec3
}

func NewHub(welcome WelcomeMsg, logger *log.Logger) *Hub {
	welcome.Type = "WELCOME"
	welcome.ProtocolVersion = Version
	return &Hub{
		log:     logger,
		welcome: welcome,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		subs: map[uint64]*subscriber{},
	}
}

// Camera returns the last position sent by a client.
func (h *Hub) Camera() (mgl32.Vec3, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.camera == nil {
		return mgl32.Vec3{}, false
	}
	return *h.camera, true
}

func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Publish matches stream.Listener.
func (h *Hub) Publish(frame uint64, e clipmap.Event[geom.Point3i]) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.subs) == 0 {
		return
	}
	h.seq++
	msg := EventMsg{Type: "EVENT", EventEntry: plog.EntryFrom(frame, e)}
	msg.Seq = h.seq
	b, err := json.Marshal(msg)
	if err != nil {
		h.log.Printf("ws: marshal event: %v", err)
		return
	}
	for id, s := range h.subs {
		if e.Key.LOD < s.minLOD || e.Key.LOD > s.maxLOD {
			continue
		}
		select {
		case s.out <- b:
		default:
			h.log.Printf("ws: client %d too slow, dropping", id)
			delete(h.subs, id)
			close(s.out)
		}
	}
}

func (h *Hub) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		conn, err := h.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var sub SubscribeMsg
		if err := json.Unmarshal(msg, &sub); err != nil || sub.Type != "SUBSCRIBE" || sub.ProtocolVersion != Version {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected SUBSCRIBE"), time.Now().Add(time.Second))
			return
		}

		id := h.nextID.Add(1)
		s := &subscriber{out: make(chan []byte, 4096)}
		h.applyFilter(s, sub)
		welcome, _ := json.Marshal(h.welcome)
		s.out <- welcome
		h.mu.Lock()
		h.subs[id] = s
		h.mu.Unlock()
		defer h.unsubscribe(id)

		// Writer goroutine.
		writerDone := make(chan struct{})
		go func() {
			defer close(writerDone)
			for b := range s.out {
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					break
				}
			}
			// Dropped or failed: unblock the reader.
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "bye"), time.Now().Add(time.Second))
			_ = conn.Close()
		}()

		// Reader loop: SUBSCRIBE updates and FOCUS.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			var env envelope
			if err := json.Unmarshal(msg, &env); err != nil || env.ProtocolVersion != Version {
				continue
			}
			switch env.Type {
			case "SUBSCRIBE":
				var sub SubscribeMsg
				if json.Unmarshal(msg, &sub) == nil {
					h.mu.Lock()
					h.applyFilter(s, sub)
					h.mu.Unlock()
				}
			case "FOCUS":
				var f FocusMsg
				if json.Unmarshal(msg, &f) == nil {
					pos := mgl32.Vec3(f.Pos)
					h.mu.Lock()
					h.camera = &pos
					h.mu.Unlock()
				}
			}
		}

		h.unsubscribe(id)
		// Best-effort wait for the writer to stop so it doesn't outlive conn.
		select {
		case <-writerDone:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func (h *Hub) applyFilter(s *subscriber, sub SubscribeMsg) {
	s.minLOD = sub.MinLOD
	s.maxLOD = h.welcome.RootLOD
	if sub.MaxLOD != nil && *sub.MaxLOD < s.maxLOD {
		s.maxLOD = *sub.MaxLOD
	}
}

func (h *Hub) unsubscribe(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(s.out)
	}
}

// StatusHandler serves status() as JSON to loopback clients.
func StatusHandler(status func() any) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(status())
	}
}

// ActionHandler runs action for loopback POSTs and replies with its result as
// JSON. A failed action is reported as 500 with {"error": ...}.
func ActionHandler(action func(ctx context.Context) (any, error)) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		out, err := action(r.Context())
		rw.Header().Set("Content-Type", "application/json")
		if err != nil {
			rw.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(rw).Encode(map[string]string{"error": err.Error()})
			return
		}
		_ = json.NewEncoder(rw).Encode(out)
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
