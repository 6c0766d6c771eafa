package domain

import "time"

// Record is the journal entry of one completed transition.
type Record struct {
	SessionID  string    `json:"session_id"`
	Names      []string  `json:"names"`
	Applied    int       `json:"applied"`
	Degraded   bool      `json:"degraded"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Duration returns how long the transition was in flight.
func (r Record) Duration() time.Duration {
	if r.FinishedAt.IsZero() || r.StartedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
