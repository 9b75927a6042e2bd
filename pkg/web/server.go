// Package web serves the proctoring API and the session websockets, plus
// an optional directory of static files.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teslashibe/go-proctor/internal/log"
	"github.com/teslashibe/go-proctor/pkg/detection"
	"github.com/teslashibe/go-proctor/pkg/hub"
	"github.com/teslashibe/go-proctor/pkg/metrics"
	"github.com/teslashibe/go-proctor/pkg/protocol"
	"github.com/teslashibe/go-proctor/pkg/session"
	"github.com/teslashibe/go-proctor/pkg/violation"
)

// Config holds server settings
type Config struct {
	Port      string
	StaticDir string // Served at /; skipped when empty or missing

	// Sessions configures every session. NewNotifier and OnClose are
	// set by the server.
	Sessions session.ManagerConfig

	// HistorySize bounds the cross-session violation log
	HistorySize int

	// Debug enables request logging
	Debug bool
}

// Server is the HTTP and websocket front end
type Server struct {
	app    *fiber.App
	port   string
	ctx    context.Context
	logger *slog.Logger

	sessions *session.Manager
	detector detection.Detector

	// All violations across sessions
	history       *violation.Recorder
	violationsHub *hub.Hub

	// Per-session fan-out
	hubsMu sync.Mutex
	hubs   map[string]sessionHub
}

type sessionHub struct {
	hub    *hub.Hub
	cancel context.CancelFunc
}

// NewServer creates a server. Sessions and hubs stop when ctx is cancelled.
func NewServer(ctx context.Context, cfg Config) *Server {
	s := &Server{
		port:          cfg.Port,
		ctx:           ctx,
		logger:        log.With("component", "web"),
		detector:      cfg.Sessions.Detector,
		history:       violation.NewRecorder(cfg.HistorySize),
		violationsHub: hub.New("violations"),
		hubs:          make(map[string]sessionHub),
	}

	mcfg := cfg.Sessions
	mcfg.NewNotifier = s.sessionNotifier
	mcfg.OnClose = s.sessionClosed
	mcfg.Sinks = append(append([]violation.Sink(nil), mcfg.Sinks...), violation.SinkFunc(s.recordViolation))
	s.sessions = session.NewManager(ctx, mcfg)

	app := fiber.New(fiber.Config{
		AppName:               "Proctor",
		DisableStartupMessage: true,
		BodyLimit:             8 * 1024 * 1024, // base64 camera frames
		ErrorHandler:          errorHandler,
	})

	app.Use(recover.New())
	app.Use(cors.New())
	if cfg.Debug {
		app.Use(logger.New())
	}
	app.Use(s.observe)

	app.Get("/health", s.handleHealth)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Post("/frame", s.handleFrame)

	api := app.Group("/api")
	api.Post("/sessions", s.handleCreateSession)
	api.Get("/sessions", s.handleListSessions)
	api.Get("/sessions/:id", s.handleGetSession)
	api.Delete("/sessions/:id", s.handleDeleteSession)
	api.Get("/sessions/:id/violations", s.handleSessionViolations)
	api.Post("/sessions/:id/mute", s.handleMute)
	api.Post("/sessions/:id/calibration", s.handleCalibration)
	api.Get("/violations", s.handleViolations)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/session/:id", websocket.New(s.handleSessionWS))
	app.Get("/ws/violations", websocket.New(s.handleViolationsWS))

	if cfg.StaticDir != "" {
		if _, err := os.Stat(cfg.StaticDir); err == nil {
			app.Static("/", cfg.StaticDir)
		}
	}

	s.app = app
	go s.violationsHub.Run(ctx)
	return s
}

// App exposes the fiber app, mainly for tests
func (s *Server) App() *fiber.App {
	return s.app
}

// Sessions returns the session manager
func (s *Server) Sessions() *session.Manager {
	return s.sessions
}

// Start listens on the configured port and blocks
func (s *Server) Start() error {
	s.logger.Info("listening", "addr", "http://localhost:"+s.port)
	return s.app.Listen(":" + s.port)
}

// Serve accepts connections on ln and blocks
func (s *Server) Serve(ln net.Listener) error {
	return s.app.Listener(ln)
}

// Shutdown closes every session and stops the server
func (s *Server) Shutdown() error {
	s.sessions.CloseAll()
	return s.app.ShutdownWithTimeout(5 * time.Second)
}

// errorHandler renders errors as {"error": "..."}
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := err.Error()
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	}
	return c.Status(code).JSON(fiber.Map{"error": msg})
}

// observe records request durations
func (s *Server) observe(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	status := c.Response().StatusCode()
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
	}
	metrics.ObserveRequest(c.Method(), c.Route().Path, strconv.Itoa(status), time.Since(start).Seconds())
	return err
}

// sessionNotifier gives each session its own broadcast hub
func (s *Server) sessionNotifier(id string) session.Notifier {
	ctx, cancel := context.WithCancel(s.ctx)
	h := hub.New("session")

	s.hubsMu.Lock()
	s.hubs[id] = sessionHub{hub: h, cancel: cancel}
	s.hubsMu.Unlock()

	go h.Run(ctx)

	return session.NotifierFunc(func(msg *protocol.Message) {
		data, err := msg.Bytes()
		if err != nil {
			s.logger.Error("encode session message", "session", id, "error", err)
			return
		}
		h.Broadcast(hub.NewJSONMessage(data))
	})
}

func (s *Server) sessionClosed(id string) {
	s.hubsMu.Lock()
	sh, ok := s.hubs[id]
	delete(s.hubs, id)
	s.hubsMu.Unlock()
	if ok {
		sh.cancel()
	}
}

func (s *Server) sessionHub(id string) (*hub.Hub, bool) {
	s.hubsMu.Lock()
	defer s.hubsMu.Unlock()
	sh, ok := s.hubs[id]
	return sh.hub, ok
}

// recordViolation keeps the cross-session log and feeds /ws/violations
func (s *Server) recordViolation(e violation.Event) {
	s.history.Record(e)
	msg, err := protocol.NewMessage(protocol.TypeViolation, session.ViolationData(e))
	if err != nil {
		return
	}
	data, err := msg.Bytes()
	if err != nil {
		return
	}
	s.violationsHub.Broadcast(hub.NewJSONMessage(data))
}
