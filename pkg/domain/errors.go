package domain

import "errors"

// ErrTransitionInFlight is returned when a transition is requested while another one
// has not finished yet.
var ErrTransitionInFlight = errors.New("transition already in flight")

// ErrPlatformUnavailable is returned by platforms that cannot run view transitions.
var ErrPlatformUnavailable = errors.New("view transition primitive unavailable")

// ErrSessionNotFound is returned when a session ID cannot be found.
var ErrSessionNotFound = errors.New("session not found")

// ErrNotChild is returned by trees when the node given as child or reference is not
// a child of the receiver.
var ErrNotChild = errors.New("node is not a child of this node")

// ErrForeignNode is returned when a node from another tree implementation is handed
// to a tree operation.
var ErrForeignNode = errors.New("node belongs to a different tree implementation")
