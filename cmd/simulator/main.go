// Command simulator drives the ingest endpoint without a camera: it
// synthesizes eye-landmark frames with random blinks and doze-offs, runs
// them through the same openness detector the real client uses and streams
// the resulting focus hints as status updates. Useful for demoing the
// backend and for eyeballing the classifier under load.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/foxseedlab/shuchurin/internal/classifier"
	"github.com/foxseedlab/shuchurin/internal/landmark"
	"github.com/gorilla/websocket"
)

const (
	frameInterval     = 500 * time.Millisecond
	heartbeatInterval = 5 * time.Second

	// probability per frame of starting a closed-eye stretch, and how long
	// it lasts in frames. A short stretch is a blink, a long one a doze.
	closeChance          = 0.04
	blinkFrames          = 1
	dozeFramesMin        = 6
	dozeFramesMax        = 20
	dozeChanceGivenClose = 0.3
)

type outboundMessage struct {
	Type      string  `json:"type"`
	UserID    string  `json:"user_id,omitempty"`
	IsFocused *bool   `json:"is_focused,omitempty"`
	Timestamp float64 `json:"timestamp"`
}

func main() {
	serverURL := flag.String("server", "ws://localhost:8000/ws", "websocket endpoint")
	userID := flag.String("user", "simulator-1", "user id to stream as")
	duration := flag.Duration("duration", 0, "stop after this long (0 = until interrupted)")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	conn, _, err := websocket.DefaultDialer.Dial(*serverURL, nil)
	if err != nil {
		slog.Error("dial failed", "url", *serverURL, "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	// drain replies so the peer's write buffer never fills
	go func() {
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var reply struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			}
			if json.Unmarshal(raw, &reply) == nil && reply.Type == "error" {
				slog.Warn("server reported error", "reason", reply.Reason)
			}
		}
	}()

	send := func(msg outboundMessage) error {
		msg.Timestamp = nowSeconds()
		return conn.WriteJSON(msg)
	}

	if err := send(outboundMessage{Type: "session_start", UserID: *userID}); err != nil {
		slog.Error("session_start failed", "error", err)
		os.Exit(1)
	}
	slog.Info("session started", "user", *userID)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var deadline <-chan time.Time
	if *duration > 0 {
		deadline = time.After(*duration)
	}

	// debounce locally the way the real camera client does, so the server
	// sees already-stable hints
	detector := landmark.NewDetector(landmark.DefaultOpennessThreshold, landmark.DefaultHistorySize)
	stabilizer := classifier.New(classifier.DefaultDebounceWindow)
	frames := time.NewTicker(frameInterval)
	defer frames.Stop()
	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	closedFor := 0
	lastFocused := true
loop:
	for {
		select {
		case <-frames.C:
			if closedFor == 0 && rand.Float64() < closeChance {
				closedFor = blinkFrames
				if rand.Float64() < dozeChanceGivenClose {
					closedFor = dozeFramesMin + rand.Intn(dozeFramesMax-dozeFramesMin)
				}
			}
			eyesOpen := closedFor == 0
			if closedFor > 0 {
				closedFor--
			}

			left, right := syntheticEyes(eyesOpen)
			hint, err := detector.ObserveFrame(left, right)
			if err != nil {
				continue
			}
			if _, err := stabilizer.Observe(hint, time.Now()); err != nil {
				continue
			}
			focused := stabilizer.Current()
			if focused != lastFocused {
				slog.Info("focus state changed", "focused", focused)
				lastFocused = focused
			}
			if err := send(outboundMessage{Type: "status_update", IsFocused: &focused}); err != nil {
				slog.Error("status_update failed", "error", err)
				break loop
			}
		case <-heartbeat.C:
			if err := send(outboundMessage{Type: "ping"}); err != nil {
				slog.Error("ping failed", "error", err)
				break loop
			}
		case <-sigCh:
			slog.Info("interrupted")
			break loop
		case <-deadline:
			slog.Info("duration elapsed")
			break loop
		}
	}

	if err := send(outboundMessage{Type: "session_end"}); err != nil {
		slog.Error("session_end failed", "error", err)
		os.Exit(1)
	}
	// give the server a moment to reply before tearing the socket down
	time.Sleep(200 * time.Millisecond)
	fmt.Println("session ended cleanly")
}

func nowSeconds() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}

// syntheticEyes returns landmark points for a plausibly proportioned eye.
// Open eyes get lid distances well above the openness threshold, closed
// eyes nearly zero, with a little jitter on every point.
func syntheticEyes(open bool) (left, right []landmark.Point) {
	lidGap := 0.005
	if open {
		lidGap = 0.030
	}
	makeEye := func(x float64) []landmark.Point {
		eye := make([]landmark.Point, landmark.EyePointCount)
		eye[landmark.OuterCorner] = jitter(landmark.Point{X: x, Y: 0.5})
		eye[landmark.InnerCorner] = jitter(landmark.Point{X: x + 0.06, Y: 0.5})
		eye[landmark.UpperLid] = jitter(landmark.Point{X: x + 0.02, Y: 0.5 - lidGap/2})
		eye[landmark.LowerLid] = jitter(landmark.Point{X: x + 0.02, Y: 0.5 + lidGap/2})
		eye[landmark.UpperMid] = jitter(landmark.Point{X: x + 0.04, Y: 0.5 - lidGap/2})
		eye[landmark.LowerMid] = jitter(landmark.Point{X: x + 0.04, Y: 0.5 + lidGap/2})
		return eye
	}
	return makeEye(0.30), makeEye(0.55)
}

func jitter(p landmark.Point) landmark.Point {
	return landmark.Point{
		X: p.X + (rand.Float64()-0.5)*0.002,
		Y: p.Y + (rand.Float64()-0.5)*0.002,
	}
}
