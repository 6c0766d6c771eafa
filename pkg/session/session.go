package session

import (
	"time"

	"github.com/aretw0/vista"
	"github.com/aretw0/vista/pkg/ports"
)

// Session is one live transitioner together with the document it renders into.
type Session struct {
	ID        string
	Document  ports.Document
	T         *vista.Transitioner
	CreatedAt time.Time

	// Release is called after the transitioner was closed. Optional.
	Release func() error

	unbind []func()
}

// Snapshotter is implemented by documents that can serialize themselves.
type Snapshotter interface {
	HTML() string
}

// Snapshot returns the serialized document, or an empty string when the
// document cannot serialize itself.
func (s *Session) Snapshot() string {
	if sn, ok := s.Document.(Snapshotter); ok {
		return sn.HTML()
	}
	return ""
}
