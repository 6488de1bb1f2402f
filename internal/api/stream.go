package api

import (
	"context"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	codeerr "github.com/matzehuels/codeflow/pkg/errors"
	"github.com/matzehuels/codeflow/pkg/session"
)

const (
	streamWriteWait = 10 * time.Second
	streamPongWait  = 60 * time.Second
	streamPingEvery = (streamPongWait * 9) / 10
)

func newUpgrader(allowed []string) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(r, allowed)
		},
	}
}

// originAllowed accepts clients that send no Origin (non-browser tools),
// pages served from the API's own host, and the configured origins. "*" in
// allowed accepts every origin.
func originAllowed(r *http.Request, allowed []string) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || slices.Contains(allowed, "*") {
		return true
	}
	if slices.ContainsFunc(allowed, func(a string) bool {
		return strings.EqualFold(strings.TrimSuffix(a, "/"), origin)
	}) {
		return true
	}
	u, err := url.Parse(origin)
	return err == nil && strings.EqualFold(u.Host, r.Host)
}

// Stream actions.
const (
	actionNext = "next"
	actionPrev = "prev"
	actionSeek = "seek"
)

type streamRequest struct {
	Action string `json:"action"`
	Step   int    `json:"step,omitempty"`
}

type streamMessage struct {
	Type  string        `json:"type"`
	View  *session.View `json:"view,omitempty"`
	Error *errorBody    `json:"error,omitempty"`
}

func viewMessage(v *session.View) streamMessage {
	return streamMessage{Type: "step", View: v}
}

func errorMessage(err error) streamMessage {
	body := toErrorBody(err)
	return streamMessage{Type: "error", Error: &body}
}

// handleStream steps a session over a websocket. The current view is sent
// on connect and after every request.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	sess, err := s.loadSession(r)
	if err != nil {
		writeError(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("stream upgrade failed", "origin", r.Header.Get("Origin"), "err", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	// Closing the connection unblocks ReadJSON once the writer gives up.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if err := conn.SetReadDeadline(time.Now().Add(streamPongWait)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})

	out := make(chan streamMessage, 16)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		defer cancel()
		ticker := time.NewTicker(streamPingEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-out:
				if err := conn.SetWriteDeadline(time.Now().Add(streamWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(msg); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(streamWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	send := func(msg streamMessage) {
		select {
		case out <- msg:
		case <-ctx.Done():
		}
	}

	if view, err := sess.View(sess.Current); err == nil {
		send(viewMessage(view))
	}
	s.logger.Debug("stream opened", "session", sess.ID)

	for ctx.Err() == nil {
		var req streamRequest
		if err := conn.ReadJSON(&req); err != nil {
			break
		}
		var m move
		switch req.Action {
		case actionNext:
			m = moveNext
		case actionPrev:
			m = movePrev
		case actionSeek:
			target := req.Step
			m = func(sess *session.Session) { sess.Seek(target) }
		default:
			send(errorMessage(codeerr.New(codeerr.ErrCodeInvalidInput,
				"unknown action %q (must be one of: next, prev, seek)", req.Action)))
			continue
		}
		view, err := s.step(r.WithContext(ctx), sess, m)
		if err != nil {
			send(errorMessage(err))
			continue
		}
		send(viewMessage(view))
	}

	cancel()
	<-writerDone
	s.logger.Debug("stream closed", "session", sess.ID)
}
