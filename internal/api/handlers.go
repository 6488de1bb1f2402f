package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/codeflow/pkg/buildinfo"
	codeerr "github.com/matzehuels/codeflow/pkg/errors"
	"github.com/matzehuels/codeflow/pkg/flow"
	"github.com/matzehuels/codeflow/pkg/pipeline"
	"github.com/matzehuels/codeflow/pkg/session"
	"github.com/matzehuels/codeflow/pkg/trace"
)

var contentTypes = map[string]string{
	pipeline.FormatSVG: "image/svg+xml",
	pipeline.FormatPNG: "image/png",
	pipeline.FormatPDF: "application/pdf",
}

type flowchartRequest struct {
	Code string `json:"code"`
}

type renderRequest struct {
	Graph      json.RawMessage `json:"graph,omitempty"`
	Code       string          `json:"code,omitempty"`
	ActiveLine int             `json:"active_line,omitempty"`
	Variables  trace.Variables `json:"variables,omitempty"`
	Format     string          `json:"format,omitempty"`
}

type renderResponse struct {
	Format  string `json:"format"`
	Diagram string `json:"diagram"`
}

type createSessionRequest struct {
	Code   string          `json:"code"`
	Trace  json.RawMessage `json:"trace,omitempty"`
	Inputs []string        `json:"inputs,omitempty"`
}

// sessionSummary is the session without its source and trace bodies.
type sessionSummary struct {
	ID        string      `json:"id"`
	Steps     int         `json:"steps"`
	Current   int         `json:"current"`
	Graph     *flow.Graph `json:"graph"`
	ExpiresAt time.Time   `json:"expires_at"`
}

func summarize(sess *session.Session) sessionSummary {
	return sessionSummary{
		ID:        sess.ID,
		Steps:     sess.Len(),
		Current:   sess.Current,
		Graph:     sess.Graph,
		ExpiresAt: sess.ExpiresAt,
	}
}

type healthResponse struct {
	Status string         `json:"status"`
	Build  buildinfo.Info `json:"build"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Build: buildinfo.Get()})
}

func (s *Server) handleFlowchart(w http.ResponseWriter, r *http.Request) {
	var req flowchartRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	g, err := s.runner.Build(r.Context(), req.Code)
	if err != nil {
		writeError(w, err)
		return
	}
	data, err := flow.Marshal(g)
	if err != nil {
		writeError(w, codeerr.Wrap(codeerr.ErrCodeInternal, err, "encode graph"))
		return
	}
	writeRaw(w, "application/json", data)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	var req renderRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Format == "" {
		req.Format = pipeline.DefaultFormat
	}

	var g *flow.Graph
	var err error
	switch {
	case len(req.Graph) > 0:
		g, err = flow.Unmarshal(req.Graph)
		if err == nil && !g.IsError() {
			err = g.Validate()
		}
		if err != nil {
			err = codeerr.Wrap(codeerr.ErrCodeInvalidGraph, err, "invalid graph")
		}
	case req.Code != "":
		g, err = s.runner.Build(r.Context(), req.Code)
	default:
		err = codeerr.New(codeerr.ErrCodeInvalidInput, "either graph or code is required")
	}
	if err != nil {
		writeError(w, err)
		return
	}

	opts := pipeline.Options{
		Formats:    []string{req.Format},
		ActiveLine: req.ActiveLine,
		Variables:  req.Variables.Bindings(),
		Logger:     s.logger,
	}
	artifacts, _, err := s.runner.RenderWithCacheInfo(r.Context(), g, "", opts)
	if err != nil {
		writeError(w, err)
		return
	}
	data := artifacts[req.Format]
	if ct, ok := contentTypes[req.Format]; ok {
		writeRaw(w, ct, data)
		return
	}
	writeJSON(w, http.StatusOK, renderResponse{Format: req.Format, Diagram: string(data)})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	ctx := r.Context()

	g, err := s.runner.Build(ctx, req.Code)
	if err != nil {
		writeError(w, err)
		return
	}
	if g.IsError() {
		writeError(w, codeerr.New(codeerr.ErrCodeSyntax, "%s (line %d)", g.Nodes[0].Label, g.Nodes[0].Line))
		return
	}

	treq := trace.Request{Code: req.Code, Inputs: req.Inputs}
	var t *trace.Trace
	if len(req.Trace) > 0 {
		t, err = trace.Parse(req.Trace)
		if err == nil {
			err = t.Validate(treq.LineCount())
		}
		if err != nil {
			err = codeerr.Wrap(codeerr.ErrCodeInvalidTrace, err, "invalid trace")
		}
	} else {
		t, err = s.runner.Trace(ctx, treq)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	pipeline.LinkSteps(t, g)

	sess, err := session.New(req.Code, g, t, req.Inputs, s.ttl)
	if err != nil {
		writeError(w, codeerr.Wrap(codeerr.ErrCodeInvalidTrace, err, "cannot start session"))
		return
	}
	if err := s.sessions.Set(ctx, sess); err != nil {
		writeError(w, sessionErr(sess.ID, err))
		return
	}
	s.logger.Info("created session", "id", sess.ID, "steps", sess.Len())
	writeJSON(w, http.StatusCreated, summarize(sess))
}

// loadSession validates the {id} URL parameter and fetches the session.
func (s *Server) loadSession(r *http.Request) (*session.Session, error) {
	id := chi.URLParam(r, "id")
	if err := codeerr.ValidateSessionID(id); err != nil {
		return nil, err
	}
	sess, err := s.sessions.Get(r.Context(), id)
	if err != nil {
		return nil, sessionErr(id, err)
	}
	return sess, nil
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.loadSession(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summarize(sess))
}

func (s *Server) handleGetStep(w http.ResponseWriter, r *http.Request) {
	sess, err := s.loadSession(r)
	if err != nil {
		writeError(w, err)
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(chi.URLParam(r, "n")))
	if err != nil {
		writeError(w, codeerr.New(codeerr.ErrCodeInvalidInput, "step must be an integer"))
		return
	}
	view, err := sess.View(n)
	if err != nil {
		writeError(w, sessionErr(sess.ID, err))
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type move func(*session.Session)

func moveNext(sess *session.Session) { sess.Next() }
func movePrev(sess *session.Session) { sess.Prev() }

func (s *Server) handleMove(m move) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.loadSession(r)
		if err != nil {
			writeError(w, err)
			return
		}
		view, err := s.step(r, sess, m)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

// step applies m, persists the session and returns the new view.
func (s *Server) step(r *http.Request, sess *session.Session, m move) (*session.View, error) {
	m(sess)
	if err := s.sessions.Set(r.Context(), sess); err != nil {
		return nil, sessionErr(sess.ID, err)
	}
	view, err := sess.View(sess.Current)
	if err != nil {
		return nil, sessionErr(sess.ID, err)
	}
	return view, nil
}
