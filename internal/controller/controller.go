// Package controller owns the LED line and the single-session guard, and
// drives the Uninitialized → Ready → ShuttingDown → Terminated lifecycle.
package controller

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/smazurov/gpioled/internal/command"
	"github.com/smazurov/gpioled/internal/events"
	"github.com/smazurov/gpioled/internal/guard"
	"github.com/smazurov/gpioled/internal/line"
)

// ErrNotReady is returned for operations outside the Ready state.
var ErrNotReady = errors.New("controller not ready")

// Config describes what the controller acquires during Init.
type Config struct {
	// LineName is the platform name of the LED line.
	LineName string
	// Polarity is the LED wiring.
	Polarity line.Polarity
	// Provider claims the line.
	Provider line.Provider
	// Stages are acquired in order before the line and released in reverse
	// order after it.
	Stages []Stage
	// EventBus receives lifecycle, session and line events. Optional.
	EventBus *events.Bus
	Logger   *slog.Logger
}

// Status is a point-in-time view of the controller.
type Status struct {
	State       State
	Held        bool
	LineName    string
	Polarity    line.Polarity
	LastCommand *command.Command
}

// Controller is the process-wide controller state. It is created once and
// handed to the boundary layers that need it.
type Controller struct {
	cfg    Config
	logger *slog.Logger

	state atomic.Int32
	// life is held shared while a write drives the line and exclusively by
	// Init and Shutdown, so the line stays valid for every write that
	// observed Ready.
	life sync.RWMutex

	guard     *guard.Guard
	driver    *line.Driver
	processor *command.Processor
	identity  cleanups

	lastCommand atomic.Int32
}

// New creates an uninitialized controller.
func New(cfg Config) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{
		cfg:    cfg,
		logger: logger,
		guard:  guard.New(),
	}
	c.lastCommand.Store(-1)
	return c
}

// Init acquires the identity stages and then the line, leaving the LED off.
// On any failure everything acquired so far is released newest first and the
// controller ends Terminated.
func (c *Controller) Init() error {
	c.life.Lock()
	defer c.life.Unlock()

	if c.State() != Uninitialized {
		return fmt.Errorf("init in state %s: %w", c.State(), ErrNotReady)
	}

	var acquired cleanups
	fail := func(err error) error {
		if unwindErr := acquired.unwind(); unwindErr != nil {
			c.logger.Error("Failed to unwind partial init", "error", unwindErr)
			err = errors.Join(err, unwindErr)
		}
		c.setState(Terminated)
		return err
	}

	for _, stage := range c.cfg.Stages {
		if stage.Acquire != nil {
			if err := stage.Acquire(); err != nil {
				return fail(fmt.Errorf("acquire %s: %w", stage.Name, err))
			}
		}
		acquired.push(stage.Name, stage.Release)
		c.logger.Debug("Stage acquired", "stage", stage.Name)
	}

	if c.cfg.Provider == nil {
		return fail(fmt.Errorf("acquire line %q: %w", c.cfg.LineName, line.ErrUnavailable))
	}
	driver, err := line.Acquire(c.cfg.Provider, c.cfg.LineName, c.cfg.Polarity)
	if err != nil {
		return fail(fmt.Errorf("acquire line %q: %w", c.cfg.LineName, err))
	}
	acquired.push("line", driver.Release)

	if err := driver.Drive(false); err != nil {
		return fail(fmt.Errorf("initial off for line %q: %w", c.cfg.LineName, err))
	}

	// The line is released on its own during Shutdown; only the identity
	// stages remain on the stack.
	c.identity = acquired[:len(acquired)-1]
	c.driver = driver
	c.processor = command.NewProcessor(driver, command.WithObserver(c.onCommand))
	c.setState(Ready)

	c.logger.Info("Controller ready",
		"line", c.cfg.LineName,
		"polarity", c.cfg.Polarity.String())
	return nil
}

// Open admits a client session. It returns guard.ErrBusy without waiting if
// another session holds the LED.
func (c *Controller) Open() (*guard.Session, error) {
	if c.State() != Ready {
		return nil, ErrNotReady
	}

	s, err := c.guard.TryAcquire()
	if err != nil {
		c.cfg.EventBus.Publish(events.SessionRejectedEvent{
			Reason:    err.Error(),
			Timestamp: now(),
		})
		return nil, err
	}

	c.logger.Debug("Session opened", "session_id", s.ID())
	c.cfg.EventBus.Publish(events.SessionOpenedEvent{
		SessionID: s.ID(),
		Timestamp: now(),
	})
	return s, nil
}

// Close releases the session. Closing twice, or closing after shutdown, is
// harmless.
func (c *Controller) Close(s *guard.Session) {
	if !s.Active() {
		return
	}
	c.guard.Release(s)

	c.logger.Debug("Session closed", "session_id", s.ID())
	c.cfg.EventBus.Publish(events.SessionClosedEvent{
		SessionID: s.ID(),
		Timestamp: now(),
	})
}

// Write applies one write payload read from src. The payload is read before
// the lifecycle lock is taken, so a slow client never holds up Shutdown.
func (c *Controller) Write(s *guard.Session, src io.Reader) error {
	if c.State() != Ready {
		return ErrNotReady
	}
	if !s.Active() {
		return command.ErrNoSession
	}

	data, err := command.ReadPayload(src)
	if err != nil {
		c.cfg.EventBus.Publish(events.TransferFaultEvent{
			SessionID: s.ID(),
			Error:     err.Error(),
			Timestamp: now(),
		})
		return err
	}
	return c.WriteBytes(s, data)
}

// WriteBytes applies an in-memory write payload.
func (c *Controller) WriteBytes(s *guard.Session, p []byte) error {
	c.life.RLock()
	defer c.life.RUnlock()

	if c.State() != Ready {
		return ErrNotReady
	}
	return c.processor.HandleBytes(s, p)
}

// Shutdown turns the LED off regardless of any held session, releases the
// line and then the identity stages in reverse order. Shutting down a
// controller that is not Ready returns ErrNotReady.
func (c *Controller) Shutdown() error {
	if !c.state.CompareAndSwap(int32(Ready), int32(ShuttingDown)) {
		return fmt.Errorf("shutdown in state %s: %w", c.State(), ErrNotReady)
	}
	c.publishState(Ready, ShuttingDown)

	var errs []error
	c.life.Lock()
	if err := c.driver.Drive(false); err != nil {
		errs = append(errs, fmt.Errorf("turn off line %q: %w", c.cfg.LineName, err))
	} else {
		c.cfg.EventBus.Publish(events.LineChangedEvent{
			Command:   command.Off.String(),
			Level:     c.cfg.Polarity.Level(false).String(),
			Timestamp: now(),
		})
	}
	if err := c.driver.Release(); err != nil {
		errs = append(errs, fmt.Errorf("release line %q: %w", c.cfg.LineName, err))
	}
	// Endpoint teardown waits for connection handlers, which may be queued
	// on life; they observe ShuttingDown once it is released.
	c.life.Unlock()

	if err := c.identity.unwind(); err != nil {
		errs = append(errs, err)
	}

	c.setState(Terminated)
	c.logger.Info("Controller terminated", "line", c.cfg.LineName)
	return errors.Join(errs...)
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Status returns a snapshot for reporting.
func (c *Controller) Status() Status {
	st := Status{
		State:    c.State(),
		Held:     c.guard.Held(),
		LineName: c.cfg.LineName,
		Polarity: c.cfg.Polarity,
	}
	if v := c.lastCommand.Load(); v >= 0 {
		cmd := command.Command(v)
		st.LastCommand = &cmd
	}
	return st
}

func (c *Controller) onCommand(s *guard.Session, cmd command.Command) {
	c.lastCommand.Store(int32(cmd))
	c.logger.Debug("LED command applied", "session_id", s.ID(), "command", cmd.String())
	c.cfg.EventBus.Publish(events.LineChangedEvent{
		SessionID: s.ID(),
		Command:   cmd.String(),
		Level:     c.cfg.Polarity.Level(cmd == command.On).String(),
		Timestamp: now(),
	})
}

func (c *Controller) setState(to State) {
	from := State(c.state.Swap(int32(to)))
	if from != to {
		c.publishState(from, to)
	}
}

func (c *Controller) publishState(from, to State) {
	c.cfg.EventBus.Publish(events.StateChangedEvent{
		From:      from.String(),
		To:        to.String(),
		Timestamp: now(),
	})
}

func now() string {
	return time.Now().Format(time.RFC3339)
}
