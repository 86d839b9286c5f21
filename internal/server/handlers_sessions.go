package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/jonathan/persona-shift/internal/generation"
	"github.com/jonathan/persona-shift/internal/server/middleware"
	"github.com/jonathan/persona-shift/internal/session"
	"github.com/jonathan/persona-shift/internal/types"
)

// CreateSessionResponse is returned by POST /sessions
type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
	Token     string `json:"token"`
}

// SessionResponse is the observable state of a session
type SessionResponse struct {
	SessionID      string          `json:"session_id"`
	Phase          types.Phase     `json:"phase"`
	Progress       int             `json:"progress"`
	Label          string          `json:"label,omitempty"`
	CompletedCount int             `json:"completed_count"`
	Target         int             `json:"target"`
	Professions    string          `json:"professions"`
	Context        string          `json:"context"`
	Personas       []types.Persona `json:"personas"`
}

// SamplesResponse lists the quick-select professions
type SamplesResponse struct {
	Professions []string `json:"professions"`
}

// ProfessionsResponse carries the accumulated professions text
type ProfessionsResponse struct {
	Professions string `json:"professions"`
}

func newSessionResponse(snap session.Snapshot) SessionResponse {
	return SessionResponse{
		SessionID:      snap.ID,
		Phase:          snap.State.Phase,
		Progress:       snap.State.Progress,
		Label:          snap.State.Label,
		CompletedCount: snap.State.CompletedCount,
		Target:         snap.State.Target,
		Professions:    snap.Professions,
		Context:        snap.Context,
		Personas:       snap.Personas,
	}
}

// handleSamples lists the sample professions
func (s *Server) handleSamples(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, SamplesResponse{Professions: types.Samples()})
}

// handleCreateSession stores the base portrait and issues a session token
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	// base64 inflates by 4/3; leave room for the data URL header and JSON framing
	r.Body = http.MaxBytesReader(w, r.Body, s.maxImageBytes*4/3+4096)

	var req types.CreateSessionRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.writeError(w, validationError(err))
		return
	}

	image, err := generation.ParseDataURL(req.Image)
	if err != nil {
		s.writeError(w, &ErrValidation{Field: "image", Message: err.Error()})
		return
	}
	if int64(len(image.Data)) > s.maxImageBytes {
		s.writeError(w, &ErrValidation{Field: "image", Message: fmt.Sprintf("image exceeds %d bytes", s.maxImageBytes)})
		return
	}

	sess := s.store.Create(image)
	token, err := s.jwtService.GenerateToken(sess.ID)
	if err != nil {
		_ = s.store.Delete(sess.ID)
		s.writeError(w, err)
		return
	}

	s.logger.Info("session created",
		zap.String("session_id", sess.ID),
		zap.String("mime", image.MIMEType),
		zap.Int("bytes", len(image.Data)),
	)
	s.jsonResponse(w, http.StatusCreated, CreateSessionResponse{SessionID: sess.ID, Token: token})
}

// handleGetSession returns the session state and personas so far
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.lookupSession(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, newSessionResponse(sess.Snapshot()))
}

// handleUpdateInput replaces the professions and context text
func (s *Server) handleUpdateInput(w http.ResponseWriter, r *http.Request) {
	sess, err := s.lookupSession(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var req types.UpdateInputRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.writeError(w, validationError(err))
		return
	}

	sess.SetInput(req.Professions, req.Context)
	s.jsonResponse(w, http.StatusOK, newSessionResponse(sess.Snapshot()))
}

// handleAddProfession appends a quick-select profession unless already present
func (s *Server) handleAddProfession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.lookupSession(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var req types.AddProfessionRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.writeError(w, validationError(err))
		return
	}

	s.jsonResponse(w, http.StatusOK, ProfessionsResponse{Professions: sess.AddProfession(req.Profession)})
}

// handleReset cancels any run and returns the session to idle
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sess, err := s.lookupSession(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	sess.Reset()
	s.jsonResponse(w, http.StatusOK, newSessionResponse(sess.Snapshot()))
}

// handleDeleteSession cancels any run and forgets the session
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.lookupSession(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.store.Delete(sess.ID); err != nil {
		s.writeError(w, &ErrSessionNotFound{SessionID: sess.ID})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// lookupSession resolves the authenticated session for a session route
func (s *Server) lookupSession(r *http.Request) (*session.Session, error) {
	id := r.PathValue("id")
	authID, err := middleware.GetSessionID(r)
	if err != nil || authID != id {
		return nil, &ErrForbidden{}
	}

	sess, err := s.store.Get(id)
	if err != nil {
		return nil, &ErrSessionNotFound{SessionID: id}
	}
	return sess, nil
}

// decodeJSON decodes a request body, rejecting unknown fields and trailing data
func decodeJSON(body io.Reader, v any) error {
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return err
		}
		return &ErrValidation{Field: "body", Message: "invalid JSON: " + err.Error()}
	}
	if dec.More() {
		return &ErrValidation{Field: "body", Message: "unexpected data after JSON object"}
	}
	return nil
}
