package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"roi-calculator/costmodel"
	customerrors "roi-calculator/errors"
	"roi-calculator/logging"
	"roi-calculator/metrics"
	"roi-calculator/models"
	"roi-calculator/session"
)

// Message types sent to live session clients.
const (
	MessageResults = "results"
	MessageError   = "error"
)

const writeWait = 10 * time.Second

// LiveMessage is what the server pushes after connecting and after every edit.
type LiveMessage struct {
	Type      string           `json:"type"`
	SessionID string           `json:"session_id"`
	Scenario  *models.Scenario `json:"scenario,omitempty"`
	Results   *models.Results  `json:"results,omitempty"`
	Error     string           `json:"error,omitempty"`
	Code      string           `json:"code,omitempty"`
}

// handleLiveSession upgrades to a websocket and serves one session. The client
// sends session.Edit messages; each accepted edit is answered with the full
// recomputed results, each rejected one with an error message.
func (s *Server) handleLiveSession(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WarnContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sess := session.New(s.initial, s.logger)
	ctx := logging.WithSessionID(context.WithoutCancel(r.Context()), sess.ID)

	metrics.SessionsActive.Inc()
	defer metrics.SessionsActive.Dec()
	s.logger.InfoContext(ctx, "live session opened", "remote_addr", r.RemoteAddr)

	conn.SetReadLimit(s.cfg.WebSocket.MaxMessageBytes)
	pongWait := s.cfg.WebSocket.PongWait
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go keepAlive(conn, pongWait, done)

	if err := s.sendResults(conn, sess, sess.Results()); err != nil {
		return
	}

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.WarnContext(ctx, "live session read failed", "error", err)
			}
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		var edit session.Edit
		if err := json.Unmarshal(payload, &edit); err != nil {
			err = fmt.Errorf("%w: %v", customerrors.ErrInvalidEdit, err)
			s.logger.WarnContext(ctx, "edit message rejected", "error", err)
			if werr := s.sendError(conn, sess, err); werr != nil {
				break
			}
			continue
		}

		results, err := sess.Apply(ctx, edit)
		if err == nil {
			err = costmodel.CheckFinite(results)
		}
		if err != nil {
			if werr := s.sendError(conn, sess, err); werr != nil {
				break
			}
			continue
		}
		if err := s.sendResults(conn, sess, results); err != nil {
			break
		}
	}

	s.logger.InfoContext(ctx, "live session closed")
}

// sendResults encodes before writing so an unencodable result is reported to
// the client as an error message instead of failing the connection.
func (s *Server) sendResults(conn *websocket.Conn, sess *session.Session, r models.Results) error {
	scenario := sess.Scenario()
	payload, err := json.Marshal(LiveMessage{
		Type:      MessageResults,
		SessionID: sess.ID,
		Scenario:  &scenario,
		Results:   &r,
	})
	if err != nil {
		return s.sendError(conn, sess, fmt.Errorf("%w: %v", customerrors.ErrNonFiniteResult, err))
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, payload)
}

func (s *Server) sendError(conn *websocket.Conn, sess *session.Session, err error) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(LiveMessage{
		Type:      MessageError,
		SessionID: sess.ID,
		Error:     err.Error(),
		Code:      editErrorCode(err),
	})
}

func editErrorCode(err error) string {
	switch {
	case errors.Is(err, customerrors.ErrUnknownChannel):
		return "UNKNOWN_CHANNEL"
	case errors.Is(err, customerrors.ErrUnknownField):
		return "UNKNOWN_FIELD"
	case errors.Is(err, customerrors.ErrUnknownPreset):
		return "UNKNOWN_PRESET"
	case errors.Is(err, customerrors.ErrUnknownOp):
		return "UNKNOWN_OP"
	case errors.Is(err, customerrors.ErrInvalidValue):
		return "INVALID_VALUE"
	case errors.Is(err, customerrors.ErrInvalidEdit):
		return "INVALID_EDIT"
	case errors.Is(err, customerrors.ErrNonFiniteResult):
		return "NON_FINITE_RESULT"
	default:
		return "EDIT_REJECTED"
	}
}

// keepAlive pings the peer until done is closed. WriteControl may run
// concurrently with the session's own writes.
func keepAlive(conn *websocket.Conn, pongWait time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(pongWait * 9 / 10)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// checkOrigin allows every origin in development, same-origin and non-browser
// clients always, and otherwise only the configured hosts ("*.example.com"
// matches subdomains).
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || s.cfg.IsDevelopment() {
		return true
	}

	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := parsed.Host

	for _, allowed := range s.cfg.WebSocket.AllowedOrigins {
		if strings.HasPrefix(allowed, "*.") {
			if strings.HasSuffix(host, allowed[1:]) || host == allowed[2:] {
				return true
			}
		} else if host == allowed {
			return true
		}
	}
	s.logger.Warn("websocket connection rejected due to origin", "origin", origin)
	return false
}
