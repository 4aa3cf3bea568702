package line

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// SysfsRoot is the kernel LED class directory.
const SysfsRoot = "/sys/class/leds"

// SysfsProvider drives LEDs exposed by the kernel LED class. The kernel
// already applies the LED's wiring, so High means lit; pair it with
// ActiveHigh.
type SysfsProvider struct {
	// Root defaults to SysfsRoot.
	Root string
}

// NewSysfsProvider returns a provider rooted at SysfsRoot.
func NewSysfsProvider() *SysfsProvider {
	return &SysfsProvider{Root: SysfsRoot}
}

// FindLineByName takes over /sys/class/leds/<name>: the trigger is switched
// to "none" so the kernel stops driving it, then brightness is set to
// initial. High writes max_brightness. Release restores the previous trigger.
func (p *SysfsProvider) FindLineByName(name string, initial Level) (Handle, error) {
	root := p.Root
	if root == "" {
		root = SysfsRoot
	}
	if name == "" || strings.ContainsRune(name, '/') {
		return nil, fmt.Errorf("%w: invalid LED name %q", ErrNotFound, name)
	}
	dir := filepath.Join(root, name)

	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %q not under %s", ErrNotFound, name, root)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	h := &sysfsHandle{dir: dir, on: "1"}
	if data, err := os.ReadFile(filepath.Join(dir, "max_brightness")); err == nil {
		if v := strings.TrimSpace(string(data)); v != "" && v != "0" {
			h.on = v
		}
	}
	prev, err := h.currentTrigger()
	if err != nil {
		return nil, err
	}
	if err := h.write("trigger", "none"); err != nil {
		return nil, err
	}
	h.prevTrigger = prev

	if err := h.set(initial); err != nil {
		_ = h.write("trigger", prev)
		return nil, err
	}
	return h, nil
}

type sysfsHandle struct {
	dir         string
	on          string
	prevTrigger string

	mu       sync.Mutex
	released bool
}

func (h *sysfsHandle) SetHigh() error { return h.setChecked(High) }

func (h *sysfsHandle) SetLow() error { return h.setChecked(Low) }

func (h *sysfsHandle) setChecked(level Level) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return ErrReleased
	}
	return h.set(level)
}

func (h *sysfsHandle) set(level Level) error {
	value := "0"
	if level == High {
		value = h.on
	}
	return h.write("brightness", value)
}

func (h *sysfsHandle) Release() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return ErrReleased
	}
	h.released = true
	if h.prevTrigger == "" || h.prevTrigger == "none" {
		return nil
	}
	return h.write("trigger", h.prevTrigger)
}

// currentTrigger parses "none [heartbeat] default-on" into "heartbeat".
func (h *sysfsHandle) currentTrigger() (string, error) {
	data, err := os.ReadFile(filepath.Join(h.dir, "trigger"))
	if err != nil {
		return "", h.mapErr("trigger", err)
	}
	for _, f := range strings.Fields(string(data)) {
		if strings.HasPrefix(f, "[") && strings.HasSuffix(f, "]") {
			return strings.Trim(f, "[]"), nil
		}
	}
	return "none", nil
}

func (h *sysfsHandle) write(attr, value string) error {
	if err := os.WriteFile(filepath.Join(h.dir, attr), []byte(value), 0o644); err != nil {
		return h.mapErr(attr, err)
	}
	return nil
}

func (h *sysfsHandle) mapErr(attr string, err error) error {
	if errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("%w: %s/%s: %v", ErrUnavailable, h.dir, attr, err)
	}
	return fmt.Errorf("failed to access LED %s/%s: %w", h.dir, attr, err)
}

// NewProvider returns the provider for backend "gpiocdev" (the default)
// or "sysfs".
func NewProvider(backend, consumer string) (Provider, error) {
	switch backend {
	case "", "gpiocdev":
		return NewChipProvider(consumer), nil
	case "sysfs":
		return NewSysfsProvider(), nil
	default:
		return nil, fmt.Errorf("unknown line backend %q", backend)
	}
}

// BackendPolarity returns the polarity to drive a backend with. The sysfs
// LED class already applies the board wiring, so asking it for active-low
// would invert the LED and is rejected.
func BackendPolarity(backend string, activeLow bool) (Polarity, error) {
	if backend == "sysfs" && activeLow {
		return ActiveHigh, fmt.Errorf("line backend sysfs is driven by the kernel LED class and cannot be active-low; set line.active_low = false")
	}
	return PolarityFromActiveLow(activeLow), nil
}
