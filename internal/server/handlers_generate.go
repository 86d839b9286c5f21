package server

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/jonathan/persona-shift/internal/pipeline"
)

// SSE event names sent by the generate stream
const (
	sseEventPhase       = "phase"
	sseEventProgress    = "progress"
	sseEventPersona     = "persona"
	sseEventFirstResult = "first_result"
	sseEventComplete    = "complete"
	sseEventError       = "error"
)

// handleGenerate runs the pipeline for the session and streams progress via SSE.
// A second generate on the same session cancels the first, whose stream ends
// with an error event. A client disconnect cancels the run.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	sess, err := s.lookupSession(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	logger := s.logger.With(zap.String("session_id", sess.ID))
	logger.Info("starting generation run")

	onEvent := func(event pipeline.ProgressEvent) {
		var writeErr error
		switch event.Type {
		case pipeline.EventFailed:
			writeErr = sse.WriteError(event.Message, event.State)
		case pipeline.EventComplete:
			writeErr = sse.WriteEvent(sseEventComplete, event.State)
		case pipeline.EventPersona:
			writeErr = sse.WriteEvent(sseEventPersona, event)
		case pipeline.EventFirstResult:
			writeErr = sse.WriteEvent(sseEventFirstResult, event.State)
		case pipeline.EventProgress:
			writeErr = sse.WriteEvent(sseEventProgress, event.State)
		default:
			writeErr = sse.WriteEvent(sseEventPhase, event.State)
		}
		if writeErr != nil {
			logger.Debug("failed to write SSE event", zap.String("event", string(event.Type)), zap.Error(writeErr))
		}
	}

	// The run is bound to the request: a disconnect cancels it
	run, err := sess.Start(r.Context(), s.runner, onEvent)
	if err != nil {
		if !run.State().Phase.Terminal() {
			_ = sse.WriteError(pipeline.FailureMessage, run.State())
		}
		logger.Warn("generation run failed",
			zap.String("kind", pipeline.ErrorKind(err)),
			zap.Int("completed", run.State().CompletedCount),
			zap.Error(err),
		)
		return
	}
	logger.Info("generation run complete", zap.Int("personas", run.State().CompletedCount))
}
