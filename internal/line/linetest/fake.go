// Package linetest provides in-memory line fakes for tests.
package linetest

import (
	"fmt"
	"sync"

	"github.com/smazurov/gpioled/internal/line"
)

// Op is a recorded Handle call.
type Op string

const (
	OpHigh    Op = "high"
	OpLow     Op = "low"
	OpRelease Op = "release"
)

// Handle records every call made on it.
type Handle struct {
	mu       sync.Mutex
	ops      []Op
	released bool

	// SetErr, when non-nil, is returned by SetHigh and SetLow.
	SetErr error
}

func (h *Handle) SetHigh() error { return h.record(OpHigh) }

func (h *Handle) SetLow() error { return h.record(OpLow) }

func (h *Handle) record(op Op) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return line.ErrReleased
	}
	if h.SetErr != nil {
		return h.SetErr
	}
	h.ops = append(h.ops, op)
	return nil
}

func (h *Handle) Release() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return line.ErrReleased
	}
	h.released = true
	h.ops = append(h.ops, OpRelease)
	return nil
}

// Ops returns a copy of the recorded calls in order.
func (h *Handle) Ops() []Op {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Op(nil), h.ops...)
}

// Reset clears the recorded calls.
func (h *Handle) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ops = nil
}

// Released reports whether Release was called.
func (h *Handle) Released() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.released
}

// Provider serves named fake handles.
type Provider struct {
	mu      sync.Mutex
	Lines   map[string]*Handle
	Err     error
	Initial map[string]line.Level
}

// NewProvider returns a provider that knows the given line names.
func NewProvider(names ...string) *Provider {
	p := &Provider{
		Lines:   make(map[string]*Handle),
		Initial: make(map[string]line.Level),
	}
	for _, n := range names {
		p.Lines[n] = &Handle{}
	}
	return p
}

// FindLineByName returns the named fake handle or line.ErrNotFound.
func (p *Provider) FindLineByName(name string, initial line.Level) (line.Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return nil, p.Err
	}
	h, ok := p.Lines[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", line.ErrNotFound, name)
	}
	p.Initial[name] = initial
	return h, nil
}
