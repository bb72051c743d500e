package main

import (
	"encoding/json"
	"flag"
	"log"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorilla/websocket"

	"voxelmap.ai/internal/transport/ws"
)

// bot walks a camera through the map and tallies the events it is sent.
func main() {
	var (
		url    = flag.String("url", "ws://localhost:8080/v1/events", "ws url")
		speed  = flag.Float64("speed", 8, "world units moved per step")
		stepMS = flag.Int("step_ms", 100, "milliseconds between FOCUS messages")
		minLOD = flag.Int("min_lod", 0, "finest LOD to receive")
		seed   = flag.Int64("seed", time.Now().UnixNano(), "walk seed")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	sub := ws.SubscribeMsg{Type: "SUBSCRIBE", ProtocolVersion: ws.Version, MinLOD: uint8(*minLOD)}
	if err := conn.WriteJSON(sub); err != nil {
		logger.Fatalf("send SUBSCRIBE: %v", err)
	}

	msgs := make(chan []byte, 256)
	go func() {
		defer close(msgs)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			msgs <- msg
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	step := time.NewTicker(time.Duration(max(*stepMS, 1)) * time.Millisecond)
	defer step.Stop()
	report := time.NewTicker(5 * time.Second)
	defer report.Stop()

	w := newWalker(*seed, float32(*speed))
	tally := map[string]int{}
	for {
		select {
		case <-stop:
			return
		case msg, ok := <-msgs:
			if !ok {
				logger.Printf("connection closed; tally=%v", tally)
				return
			}
			handle(logger, msg, tally)
		case <-step.C:
			pos := w.next()
			f := ws.FocusMsg{Type: "FOCUS", ProtocolVersion: ws.Version, Pos: [3]float32(pos)}
			if err := conn.WriteJSON(f); err != nil {
				logger.Printf("send FOCUS: %v", err)
				return
			}
		case <-report.C:
			logger.Printf("at %v events=%v", w.pos, tally)
		}
	}
}

func handle(logger *log.Logger, msg []byte, tally map[string]int) {
	var base struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(msg, &base); err != nil {
		return
	}
	switch base.Type {
	case "WELCOME":
		var wm ws.WelcomeMsg
		if err := json.Unmarshal(msg, &wm); err != nil {
			return
		}
		logger.Printf("WELCOME chunk_shape=%v root_lod=%d clip_radius=%.0f", wm.ChunkShape, wm.RootLOD, wm.ClipRadius)
	case "EVENT":
		var ev ws.EventMsg
		if err := json.Unmarshal(msg, &ev); err != nil {
			return
		}
		tally[ev.Kind]++
	}
}

// walker drifts on the ground plane, turning a little each step.
type walker struct {
	r       *rand.Rand
	pos     mgl32.Vec3
	heading float64
	speed   float32
}

func newWalker(seed int64, speed float32) *walker {
	r := rand.New(rand.NewSource(seed))
	return &walker{r: r, heading: r.Float64() * 2 * math.Pi, speed: speed}
}

func (w *walker) next() mgl32.Vec3 {
	w.heading += (w.r.Float64() - 0.5) * 0.3
	dir := mgl32.Rotate2D(float32(w.heading)).Mul2x1(mgl32.Vec2{1, 0})
	w.pos = w.pos.Add(mgl32.Vec3{dir.X(), 0, dir.Y()}.Mul(w.speed))
	return w.pos
}
