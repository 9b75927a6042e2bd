package web

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-proctor/pkg/detection"
	"github.com/teslashibe/go-proctor/pkg/protocol"
	"github.com/teslashibe/go-proctor/pkg/session"
	"github.com/teslashibe/go-proctor/pkg/violation"
)

// handleHealth reports liveness
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":   "ok",
		"sessions": s.sessions.Len(),
		"detector": s.detector != nil,
	})
}

// FrameRequest is the body of POST /frame
type FrameRequest struct {
	Image     string `json:"image"`
	SessionID string `json:"session_id"`
}

// handleFrame runs face detection on one frame. When the frame names an
// open session, its face count also feeds that session's presence monitor.
func (s *Server) handleFrame(c *fiber.Ctx) error {
	var req FrameRequest
	if err := c.BodyParser(&req); err != nil || req.Image == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "no image"})
	}

	if s.detector == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "face detector unavailable"})
	}

	jpeg, err := detection.DecodeImage(req.Image)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid image"})
	}

	report, err := detection.Analyze(s.detector, jpeg, time.Now().UTC())
	if err != nil {
		s.logger.Debug("frame analysis failed", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid image"})
	}

	if req.SessionID != "" {
		if sess, err := s.sessions.Get(req.SessionID); err == nil {
			sess.SubmitFrame(jpeg)
			sess.ReportFaces(report.FaceCount)
		}
	}

	return c.JSON(report)
}

// handleCreateSession opens a new session
func (s *Server) handleCreateSession(c *fiber.Ctx) error {
	sess := s.sessions.Create()
	snap, err := sess.Snapshot(c.UserContext())
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(snap)
}

// handleListSessions returns a snapshot of every open session
func (s *Server) handleListSessions(c *fiber.Ctx) error {
	list := s.sessions.List()
	out := make([]session.Snapshot, 0, len(list))
	for _, sess := range list {
		snap, err := sess.Snapshot(c.UserContext())
		if err != nil {
			// Closed between List and Snapshot
			continue
		}
		out = append(out, snap)
	}
	return c.JSON(out)
}

// handleGetSession returns one session snapshot
func (s *Server) handleGetSession(c *fiber.Ctx) error {
	sess, err := s.lookup(c)
	if err != nil {
		return err
	}
	snap, err := sess.Snapshot(c.UserContext())
	if err != nil {
		return sessionError(err)
	}
	return c.JSON(snap)
}

// handleDeleteSession closes a session
func (s *Server) handleDeleteSession(c *fiber.Ctx) error {
	if err := s.sessions.Close(c.Params("id")); err != nil {
		return sessionError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// handleSessionViolations returns a session's recent violations
func (s *Server) handleSessionViolations(c *fiber.Ctx) error {
	sess, err := s.lookup(c)
	if err != nil {
		return err
	}
	return c.JSON(wireEvents(sess.Violations(), c.QueryInt("limit", 0)))
}

// handleMute sets the mute flag, or toggles it without a body
func (s *Server) handleMute(c *fiber.Ctx) error {
	sess, err := s.lookup(c)
	if err != nil {
		return err
	}

	var req protocol.MuteData
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid body")
		}
	}

	if req.Muted == nil {
		err = sess.ToggleMute()
	} else {
		err = sess.SetMuted(*req.Muted)
	}
	if err != nil {
		return sessionError(err)
	}

	snap, err := sess.Snapshot(c.UserContext())
	if err != nil {
		return sessionError(err)
	}
	return c.JSON(fiber.Map{"muted": snap.Muted})
}

// handleCalibration starts calibration; {"restart": true} bypasses the
// control debounce
func (s *Server) handleCalibration(c *fiber.Ctx) error {
	sess, err := s.lookup(c)
	if err != nil {
		return err
	}

	var req protocol.CalibrateData
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid body")
		}
	}

	if req.Restart {
		err = sess.RestartCalibration()
	} else {
		err = sess.RequestCalibration()
	}
	if err != nil {
		return sessionError(err)
	}

	snap, err := sess.Snapshot(c.UserContext())
	if err != nil {
		return sessionError(err)
	}
	return c.Status(fiber.StatusAccepted).JSON(snap.Calibration)
}

// handleViolations returns recent violations across all sessions
func (s *Server) handleViolations(c *fiber.Ctx) error {
	return c.JSON(wireEvents(s.history.Events(), c.QueryInt("limit", 0)))
}

func (s *Server) lookup(c *fiber.Ctx) (*session.Session, error) {
	sess, err := s.sessions.Get(c.Params("id"))
	if err != nil {
		return nil, sessionError(err)
	}
	return sess, nil
}

func sessionError(err error) error {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "session not found")
	case errors.Is(err, session.ErrClosed):
		return fiber.NewError(fiber.StatusGone, "session closed")
	}
	return err
}

// wireEvents converts events, newest last, keeping at most limit
func wireEvents(events []violation.Event, limit int) []protocol.ViolationData {
	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}
	out := make([]protocol.ViolationData, 0, len(events))
	for _, e := range events {
		out = append(out, session.ViolationData(e))
	}
	return out
}
