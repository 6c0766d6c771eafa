package domain

// Phase defines where the orchestrator is in its transition lifecycle.
type Phase string

const (
	PhaseIdle     Phase = "idle"      // Mutations apply immediately
	PhaseArmed    Phase = "armed"     // A request is set, capture not started yet
	PhaseInFlight Phase = "in_flight" // Capture requested, waiting for the platform to finish
)

// CanArm reports whether a new request may be accepted in this phase.
func (p Phase) CanArm() bool {
	return p == PhaseIdle || p == PhaseArmed
}
