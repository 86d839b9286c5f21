package types

// Phase is the lifecycle stage of a generation run.
type Phase string

// Phase constants
const (
	PhaseIdle       Phase = "idle"
	PhaseRefining   Phase = "refining"
	PhaseGenerating Phase = "generating"
	PhaseComplete   Phase = "complete"
	PhaseFailed     Phase = "failed"
)

// Terminal reports whether no further progress will happen in this phase.
func (p Phase) Terminal() bool {
	return p == PhaseComplete || p == PhaseFailed
}

// PipelineState is the observable state of one generation run.
type PipelineState struct {
	Phase          Phase  `json:"phase"`
	CompletedCount int    `json:"completed_count"`
	Target         int    `json:"target"`
	Progress       int    `json:"progress"` // 0-100
	Label          string `json:"label,omitempty"`
}

// IdleState returns the state before any run has started.
func IdleState() PipelineState {
	return PipelineState{Phase: PhaseIdle}
}
