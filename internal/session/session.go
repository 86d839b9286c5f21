// Package session holds interactive user sessions: the base portrait, the
// preserved input text, and the current generation run.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jonathan/persona-shift/internal/generation"
	"github.com/jonathan/persona-shift/internal/input"
	"github.com/jonathan/persona-shift/internal/pipeline"
	"github.com/jonathan/persona-shift/internal/types"
)

// ErrNotFound is returned when a session ID is unknown or expired
var ErrNotFound = errors.New("session not found")

// ErrRunReplaced is the cancellation cause of a run superseded by a newer one
var ErrRunReplaced = errors.New("run replaced by a newer run")

// ErrReset is the cancellation cause of a run stopped by Reset
var ErrReset = errors.New("session reset")

// Runner executes a run. *pipeline.Controller satisfies it.
type Runner interface {
	Run(ctx context.Context, in pipeline.RunInput, run *pipeline.Run) error
}

// Snapshot is a consistent read of a session
type Snapshot struct {
	ID          string
	Professions string
	Context     string
	State       types.PipelineState
	Personas    []types.Persona
	UpdatedAt   time.Time
}

// Session is one interactive user context
type Session struct {
	ID string

	mu          sync.Mutex
	image       generation.Image
	professions string
	context     string
	run         *pipeline.Run
	cancel      context.CancelCauseFunc
	seq         uint64
	updatedAt   time.Time
}

func newSession(id string, image generation.Image) *Session {
	return &Session{ID: id, image: image, updatedAt: time.Now()}
}

// Image returns the base portrait
func (s *Session) Image() generation.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.image
}

// SetInput replaces the stored professions and context text
func (s *Session) SetInput(professions, styleContext string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.professions = professions
	s.context = styleContext
	s.touch()
}

// AddProfession appends a quick-select profession unless the text already contains it.
// It returns the resulting professions text.
func (s *Session) AddProfession(prof string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.professions = input.AddProfession(s.professions, prof)
	s.touch()
	return s.professions
}

// Snapshot returns the session state. Before any run the state is idle.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:          s.ID,
		Professions: s.professions,
		Context:     s.context,
		State:       types.IdleState(),
		Personas:    []types.Persona{},
		UpdatedAt:   s.updatedAt,
	}
	if s.run != nil {
		snap.State = s.run.State()
		snap.Personas = s.run.Personas()
	}
	return snap
}

// Run returns the current run, or nil
func (s *Session) Run() *pipeline.Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run
}

// Start begins a new run, cancelling any run already in flight on this session,
// and blocks until it finishes. The stored text is de-duplicated before the run.
// Once refinement succeeds the refined professions and context replace the
// stored text, even if a later item fails; if refinement fails the entered
// text is kept.
func (s *Session) Start(ctx context.Context, runner Runner, onEvent pipeline.ProgressCallback) (*pipeline.Run, error) {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel(ErrRunReplaced)
	}
	runCtx, cancel := context.WithCancelCause(ctx)
	s.seq++
	seq := s.seq
	var run *pipeline.Run
	run = pipeline.NewRun(func(event pipeline.ProgressEvent) {
		if event.Type == pipeline.EventPhase && event.State.Phase == types.PhaseGenerating {
			s.writeBack(seq, run.Refined())
		}
		if onEvent != nil {
			onEvent(event)
		}
	})
	s.run = run
	s.cancel = cancel
	s.professions = input.Dedupe(s.professions)
	in := pipeline.RunInput{
		Professions: s.professions,
		Context:     s.context,
		BaseImage:   s.image,
	}
	s.touch()
	s.mu.Unlock()

	err := runner.Run(runCtx, in, run)
	if err != nil {
		if cause := context.Cause(runCtx); cause != nil && !errors.Is(err, cause) {
			err = errors.Join(err, cause)
		}
	}
	cancel(nil)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seq == seq {
		s.cancel = nil
		s.touch()
	}
	return run, err
}

// writeBack replaces the stored text with the refined input unless run seq
// has been superseded.
func (s *Session) writeBack(seq uint64, refined *types.RefinedInput) {
	if refined == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seq != seq {
		return
	}
	s.professions = joinProfessions(refined.Professions)
	s.context = refined.Context
	s.touch()
}

// Reset cancels any run in flight and returns the session to idle.
// The stored text and base image are kept.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel(ErrReset)
		s.cancel = nil
	}
	s.seq++
	s.run = nil
	s.touch()
}

func (s *Session) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel(ErrNotFound)
		s.cancel = nil
	}
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return 0
	}
	return now.Sub(s.updatedAt)
}

// touch must be called with mu held
func (s *Session) touch() {
	s.updatedAt = time.Now()
}

func joinProfessions(fields []string) string {
	return strings.Join(fields, ", ")
}
