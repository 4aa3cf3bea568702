// Package line wraps the single physical output line driven by the controller.
package line

import "errors"

var (
	// ErrNotFound is returned when no line with the requested name exists.
	ErrNotFound = errors.New("line not found")
	// ErrLineBusy is returned when the line is already claimed by another consumer.
	ErrLineBusy = errors.New("line already claimed")
	// ErrUnavailable is returned when the platform cannot provide lines at all.
	ErrUnavailable = errors.New("line provider unavailable")
	// ErrReleased is returned by set operations after Release.
	ErrReleased = errors.New("line released")
)

// Handle is exclusive control of one physical output line.
type Handle interface {
	// SetHigh drives the line to the physical high level.
	SetHigh() error

	// SetLow drives the line to the physical low level.
	SetLow() error

	// Release returns the line to the platform. Must be called exactly once;
	// no set operation is valid afterwards.
	Release() error
}

// Provider locates and claims lines on the host platform.
type Provider interface {
	// FindLineByName claims the line with the given name as an output.
	// The initial physical level is given by initial.
	FindLineByName(name string, initial Level) (Handle, error)
}

// Level is a physical line level.
type Level int

const (
	Low  Level = 0
	High Level = 1
)

func (l Level) String() string {
	if l == High {
		return "high"
	}
	return "low"
}
