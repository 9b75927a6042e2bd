// proctor-sim drives a proctor server the way a browser would: it opens a
// session, walks through calibration, then replays gaze samples and face
// counts while printing everything the server sends back.
//
// Usage:
//
//	proctor-sim -server http://localhost:8080
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-proctor/internal/httpc"
	"github.com/teslashibe/go-proctor/internal/log"
	"github.com/teslashibe/go-proctor/pkg/protocol"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "Proctor server URL")
	rate := flag.Duration("rate", 50*time.Millisecond, "Gaze sample period")
	width := flag.Float64("width", 1280, "Simulated viewport width")
	height := flag.Float64("height", 800, "Simulated viewport height")
	logLevel := flag.String("log-level", "info", "Log level")
	flag.Parse()

	log.Init(*logLevel)
	logger := log.With("component", "sim")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	id, err := createSession(ctx, *server)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create session: %v\n", err)
		os.Exit(1)
	}
	logger.Info("session created", "id", id)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL(*server, "/ws/session/"+id), nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	targets := make(chan int, 16)
	calibrated := make(chan struct{})
	go readLoop(conn, targets, calibrated)

	send := func(msg *protocol.Message, err error) {
		if err != nil {
			logger.Error("encode", "error", err)
			return
		}
		data, err := msg.Bytes()
		if err != nil {
			logger.Error("encode", "error", err)
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			logger.Error("write", "error", err)
		}
	}

	send(protocol.NewMessage(protocol.TypeCalibrate, protocol.CalibrateData{}))

	// Confirm each target as it appears
calibration:
	for {
		select {
		case idx := <-targets:
			time.Sleep(300 * time.Millisecond)
			send(protocol.NewConfirmMessage(idx))
		case <-calibrated:
			break calibration
		case <-ctx.Done():
			return
		case <-time.After(10 * time.Second):
			logger.Error("calibration stalled")
			return
		}
	}
	logger.Info("calibration complete, replaying gaze")

	zone := &protocol.ZoneData{Left: *width * 0.25, Top: *height * 0.2, Right: *width * 0.75, Bottom: *height * 0.7}
	cx, cy := *width/2, *height/2

	ticker := time.NewTicker(*rate)
	defer ticker.Stop()
	for step := 0; ; step++ {
		select {
		case <-ctx.Done():
			send(protocol.NewMessage(protocol.TypeFaces, protocol.FacesData{Count: -1}))
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case <-ticker.C:
		}

		x, y := gazeAt(step, cx, cy, *width)
		send(protocol.NewGazeMessage(x, y, *width, *height, zone))

		// A second person shows up for a while every 200 samples
		if step%20 == 0 {
			count := 1
			if (step/200)%2 == 1 {
				count = 2
			}
			send(protocol.NewFacesMessage(count))
		}
	}
}

// gazeAt walks the gaze around the center, then drifts to the right edge
// and holds there before coming back.
func gazeAt(step int, cx, cy, width float64) (float64, float64) {
	phase := step % 120
	switch {
	case phase < 60:
		return cx + float64(phase%10-5)*4, cy + float64(phase%7-3)*4
	case phase < 70:
		t := float64(phase-60) / 10
		return cx + t*(width-10-cx), cy
	default:
		return width - 10, cy
	}
}

func readLoop(conn *websocket.Conn, targets chan<- int, calibrated chan<- struct{}) {
	done := false
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				fmt.Fprintf(os.Stderr, "read: %v\n", err)
			}
			os.Exit(0)
		}
		msg, err := protocol.ParseMessage(data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "bad message: %v\n", err)
			continue
		}
		fmt.Printf("%s %-12s %s\n", time.UnixMilli(msg.Timestamp).Format("15:04:05.000"), msg.Type, msg.Data)

		switch msg.Type {
		case protocol.TypeTarget:
			if t, err := msg.GetTargetData(); err == nil {
				targets <- t.Index
			}
		case protocol.TypeCalibration:
			if c, err := msg.GetCalibrationData(); err == nil && c.State == "complete" && !done {
				done = true
				close(calibrated)
			}
		}
	}
}

func createSession(ctx context.Context, server string) (string, error) {
	resp, err := httpc.PostJSON(ctx, nil, strings.TrimRight(server, "/")+"/api/sessions", struct{}{})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}
	var snap struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return "", err
	}
	return snap.ID, nil
}

func wsURL(server, path string) string {
	u, err := url.Parse(server)
	if err != nil {
		return server + path
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + path
	return u.String()
}
