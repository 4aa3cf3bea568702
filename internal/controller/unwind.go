package controller

import (
	"errors"
	"fmt"
)

// Stage is a resource acquired during Init before the line, such as the
// control endpoint node.
type Stage struct {
	Name    string
	Acquire func() error
	Release func() error
}

type cleanup struct {
	name string
	fn   func() error
}

// cleanups releases resources in reverse acquisition order.
type cleanups []cleanup

func (c *cleanups) push(name string, fn func() error) {
	*c = append(*c, cleanup{name: name, fn: fn})
}

// unwind runs every cleanup newest first, empties the stack and joins the
// errors.
func (c *cleanups) unwind() error {
	var errs []error
	for i := len(*c) - 1; i >= 0; i-- {
		cl := (*c)[i]
		if cl.fn == nil {
			continue
		}
		if err := cl.fn(); err != nil {
			errs = append(errs, fmt.Errorf("release %s: %w", cl.name, err))
		}
	}
	*c = nil
	return errors.Join(errs...)
}
