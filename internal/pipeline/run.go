package pipeline

import (
	"fmt"
	"math"
	"sync"

	"github.com/jonathan/persona-shift/internal/types"
)

// EventType identifies a progress event
type EventType string

// Event types emitted during a run
const (
	EventPhase       EventType = "phase"
	EventProgress    EventType = "progress"
	EventPersona     EventType = "persona"
	EventFirstResult EventType = "first_result"
	EventComplete    EventType = "complete"
	EventFailed      EventType = "failed"
)

// ProgressEvent represents a progress update during a run
type ProgressEvent struct {
	Type    EventType           `json:"type"`
	State   types.PipelineState `json:"state"`
	Index   int                 `json:"index"`
	Persona *types.Persona      `json:"persona,omitempty"`
	Message string              `json:"message,omitempty"`
}

// ProgressCallback is called synchronously for every event of a run
type ProgressCallback func(event ProgressEvent)

// Run is the observable record of one generation run: its state and the
// ordered personas appended so far. The controller is its only writer;
// readers take snapshots.
type Run struct {
	mu       sync.RWMutex
	state    types.PipelineState
	personas []types.Persona
	refined  *types.RefinedInput
	err      error
	done     chan struct{}
	onEvent  ProgressCallback
}

// NewRun creates an idle run. onEvent may be nil.
func NewRun(onEvent ProgressCallback) *Run {
	return &Run{
		state:   types.IdleState(),
		done:    make(chan struct{}),
		onEvent: onEvent,
	}
}

// State returns a snapshot of the run state
func (r *Run) State() types.PipelineState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// Personas returns a copy of the personas appended so far, in profession order
func (r *Run) Personas() []types.Persona {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.Persona, len(r.personas))
	copy(out, r.personas)
	return out
}

// Refined returns the refinement result, or nil if refinement has not succeeded
func (r *Run) Refined() *types.RefinedInput {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.refined == nil {
		return nil
	}
	cp := *r.refined
	cp.Professions = append([]string(nil), r.refined.Professions...)
	return &cp
}

// Err returns the error that failed the run, if any
func (r *Run) Err() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.err
}

// Done is closed once the run reaches a terminal phase
func (r *Run) Done() <-chan struct{} {
	return r.done
}

func (r *Run) emit(event ProgressEvent) {
	if r.onEvent != nil {
		r.onEvent(event)
	}
}

// update applies fn under the lock and emits an event carrying the new state
func (r *Run) update(event ProgressEvent, fn func(s *types.PipelineState)) {
	r.mu.Lock()
	fn(&r.state)
	event.State = r.state
	r.mu.Unlock()
	r.emit(event)
}

func (r *Run) beginRefining() {
	r.update(ProgressEvent{Type: EventPhase, Index: -1}, func(s *types.PipelineState) {
		s.Phase = types.PhaseRefining
		s.Label = "Refining your input with AI..."
	})
}

func (r *Run) beginGenerating(refined *types.RefinedInput) {
	r.mu.Lock()
	r.refined = refined
	r.personas = make([]types.Persona, 0, len(refined.Professions))
	r.mu.Unlock()

	r.update(ProgressEvent{Type: EventPhase, Index: -1}, func(s *types.PipelineState) {
		s.Phase = types.PhaseGenerating
		s.CompletedCount = 0
		s.Target = len(refined.Professions)
	})
}

// beginItem reports progress before work on item i starts
func (r *Run) beginItem(i int, field string) {
	r.update(ProgressEvent{Type: EventProgress, Index: i}, func(s *types.PipelineState) {
		s.Label = itemLabel(field, i, s.Target)
		if p := progressBefore(i, s.Target); p > s.Progress {
			s.Progress = p
		}
	})
}

func (r *Run) appendPersona(i int, p types.Persona) {
	r.mu.Lock()
	r.personas = append(r.personas, p)
	r.state.CompletedCount = len(r.personas)
	state := r.state
	r.mu.Unlock()

	r.emit(ProgressEvent{Type: EventPersona, State: state, Index: i, Persona: &p})
	if i == 0 {
		r.emit(ProgressEvent{Type: EventFirstResult, State: state, Index: i})
	}
}

func (r *Run) complete() {
	r.update(ProgressEvent{Type: EventComplete, Index: -1}, func(s *types.PipelineState) {
		s.Phase = types.PhaseComplete
		s.Progress = 100
		s.Label = "All Ready"
	})
	close(r.done)
}

func (r *Run) fail(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()

	r.update(ProgressEvent{Type: EventFailed, Index: -1, Message: FailureMessage}, func(s *types.PipelineState) {
		s.Phase = types.PhaseFailed
		s.Label = FailureMessage
	})
	close(r.done)
}

func itemLabel(field string, i, target int) string {
	return fmt.Sprintf("Crafting your \"%s\" identity... (%d/%d)", field, i+1, target)
}

// progressBefore is the percentage shown before item i starts: round(i/target*100)
func progressBefore(i, target int) int {
	if target <= 0 {
		return 0
	}
	return int(math.Round(float64(i) / float64(target) * 100))
}
