package line

import (
	"errors"
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"
	"golang.org/x/sys/unix"
)

// DefaultConsumer is the label attached to the line request.
const DefaultConsumer = "gpioled"

// ChipProvider claims lines through the Linux GPIO character device.
type ChipProvider struct {
	consumer string
}

// NewChipProvider creates a provider that labels its requests with consumer.
func NewChipProvider(consumer string) *ChipProvider {
	if consumer == "" {
		consumer = DefaultConsumer
	}
	return &ChipProvider{consumer: consumer}
}

// FindLineByName searches every gpiochip for the named line and requests it
// as an output.
func (p *ChipProvider) FindLineByName(name string, initial Level) (Handle, error) {
	if len(gpiocdev.Chips()) == 0 {
		return nil, fmt.Errorf("%w: no gpiochip devices", ErrUnavailable)
	}

	chip, offset, err := gpiocdev.FindLine(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrNotFound, name, err)
	}

	l, err := gpiocdev.RequestLine(chip, offset,
		gpiocdev.WithConsumer(p.consumer),
		gpiocdev.AsOutput(int(initial)))
	if err != nil {
		return nil, requestError(chip, offset, err)
	}

	return &chipHandle{line: l}, nil
}

// requestError maps a line request failure onto the package sentinels.
func requestError(chip string, offset int, err error) error {
	switch {
	case errors.Is(err, unix.EBUSY):
		return fmt.Errorf("%w: %s:%d", ErrLineBusy, chip, offset)
	case errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM):
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, chip, err)
	default:
		return fmt.Errorf("failed to request line %s:%d: %w", chip, offset, err)
	}
}

// chipHandle implements Handle over a requested gpiocdev line.
type chipHandle struct {
	mu       sync.Mutex
	line     *gpiocdev.Line
	released bool
}

func (h *chipHandle) SetHigh() error { return h.set(High) }

func (h *chipHandle) SetLow() error { return h.set(Low) }

func (h *chipHandle) set(level Level) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return ErrReleased
	}
	if err := h.line.SetValue(int(level)); err != nil {
		return fmt.Errorf("failed to set line %s: %w", level, err)
	}
	return nil
}

func (h *chipHandle) Release() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return ErrReleased
	}
	h.released = true
	return h.line.Close()
}

// Lookup describes where a named line lives and who holds it.
type Lookup struct {
	Name     string
	Chip     string
	Offset   int
	Used     bool
	Consumer string
	Output   bool
}

// Find resolves a line name without claiming it.
func Find(name string) (Lookup, error) {
	chip, offset, err := gpiocdev.FindLine(name)
	if err != nil {
		return Lookup{}, fmt.Errorf("%w: %q: %v", ErrNotFound, name, err)
	}

	c, err := gpiocdev.NewChip(chip)
	if err != nil {
		return Lookup{}, fmt.Errorf("%w: %s: %v", ErrUnavailable, chip, err)
	}
	defer c.Close()

	info, err := c.LineInfo(offset)
	if err != nil {
		return Lookup{}, fmt.Errorf("failed to read line info %s:%d: %w", chip, offset, err)
	}

	return Lookup{
		Name:     name,
		Chip:     chip,
		Offset:   offset,
		Used:     info.Used,
		Consumer: info.Consumer,
		Output:   info.Config.Direction == gpiocdev.LineDirectionOutput,
	}, nil
}
