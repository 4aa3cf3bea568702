// Package command decodes the one-byte LED write protocol.
package command

import (
	"errors"
	"fmt"
	"io"

	"github.com/smazurov/gpioled/internal/guard"
)

// Command is a decoded write.
type Command byte

const (
	// Off drives the LED to its inactive level.
	Off Command = 0
	// On drives the LED to its active level.
	On Command = 1
)

// MaxPayload bounds how much of a single write is read.
const MaxPayload = 4096

var (
	// ErrTransferFault is returned when the write payload cannot be read.
	ErrTransferFault = errors.New("transfer fault")
	// ErrNoSession is returned for writes outside an active session.
	ErrNoSession = errors.New("no active session")
)

func (c Command) String() string {
	switch c {
	case On:
		return "on"
	case Off:
		return "off"
	default:
		return fmt.Sprintf("unknown(%d)", byte(c))
	}
}

// Decode returns the command carried by the first byte of p. The boolean is
// false for empty input and for values other than On and Off.
func Decode(p []byte) (Command, bool) {
	if len(p) == 0 {
		return 0, false
	}
	switch c := Command(p[0]); c {
	case On, Off:
		return c, true
	default:
		return c, false
	}
}

// Driver is the line operation a command maps onto.
type Driver interface {
	Drive(on bool) error
}

// Processor applies decoded writes to a Driver.
type Processor struct {
	driver  Driver
	observe func(s *guard.Session, c Command)
}

// Option configures a Processor.
type Option func(*Processor)

// WithObserver registers fn to run after each applied command.
func WithObserver(fn func(s *guard.Session, c Command)) Option {
	return func(p *Processor) {
		p.observe = fn
	}
}

// NewProcessor creates a processor driving d.
func NewProcessor(d Driver, opts ...Option) *Processor {
	p := &Processor{driver: d}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// HandleWrite reads one write payload from src and applies it. The payload
// is read in full before the line is touched, so a read failure returns
// ErrTransferFault with no line change.
func (p *Processor) HandleWrite(s *guard.Session, src io.Reader) error {
	if !s.Active() {
		return ErrNoSession
	}
	data, err := ReadPayload(src)
	if err != nil {
		return err
	}
	return p.apply(s, data)
}

// ReadPayload reads up to MaxPayload bytes of one write from src. Any read
// error is reported as ErrTransferFault.
func ReadPayload(src io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(src, MaxPayload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransferFault, err)
	}
	return data, nil
}

// HandleBytes applies an in-memory payload.
func (p *Processor) HandleBytes(s *guard.Session, data []byte) error {
	if !s.Active() {
		return ErrNoSession
	}
	return p.apply(s, data)
}

func (p *Processor) apply(s *guard.Session, data []byte) error {
	c, ok := Decode(data)
	if !ok {
		// Unknown commands are ignored.
		return nil
	}
	if err := p.driver.Drive(c == On); err != nil {
		return fmt.Errorf("failed to drive LED %s: %w", c, err)
	}
	if p.observe != nil {
		p.observe(s, c)
	}
	return nil
}
