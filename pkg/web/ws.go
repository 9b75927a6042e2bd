package web

import (
	"github.com/gofiber/contrib/websocket"

	"github.com/teslashibe/go-proctor/pkg/hub"
	"github.com/teslashibe/go-proctor/pkg/protocol"
	"github.com/teslashibe/go-proctor/pkg/session"
)

// handleSessionWS is the bidirectional socket of one session. Outbound
// session messages fan out to every socket open on the session.
func (s *Server) handleSessionWS(c *websocket.Conn) {
	id := c.Params("id")

	sess, err := s.sessions.Get(id)
	h, ok := s.sessionHub(id)
	if err != nil || !ok {
		writeError(c, session.ErrNotFound)
		c.Close()
		return
	}

	var client *hub.Client
	client = hub.NewClient(h, c, func(data []byte) {
		s.handleInbound(sess, client, data)
	})

	// Bring the new socket up to date
	sess.Sync()

	client.Run()
}

// handleInbound applies one client message and answers the sender
func (s *Server) handleInbound(sess *session.Session, client *hub.Client, data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err == nil {
		var reply *protocol.Message
		reply, err = sess.Handle(msg)
		if err == nil {
			if reply != nil {
				sendTo(client, reply)
			}
			return
		}
	}

	s.logger.Debug("rejected client message", "session", sess.ID(), "error", err)
	if m, e := protocol.NewErrorMessage(err); e == nil {
		sendTo(client, m)
	}
}

// handleViolationsWS streams violations from every session
func (s *Server) handleViolationsWS(c *websocket.Conn) {
	hub.NewClient(s.violationsHub, c, nil).Run()
}

func sendTo(client *hub.Client, msg *protocol.Message) {
	data, err := msg.Bytes()
	if err != nil {
		return
	}
	client.Send(hub.NewJSONMessage(data))
}

func writeError(c *websocket.Conn, err error) {
	msg, e := protocol.NewErrorMessage(err)
	if e != nil {
		return
	}
	data, e := msg.Bytes()
	if e != nil {
		return
	}
	c.WriteMessage(websocket.TextMessage, data)
}
