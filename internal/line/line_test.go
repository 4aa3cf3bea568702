package line_test

import (
	"errors"
	"testing"

	"github.com/smazurov/gpioled/internal/line"
	"github.com/smazurov/gpioled/internal/line/linetest"
)

func TestPolarity_Level(t *testing.T) {
	tests := []struct {
		name     string
		polarity line.Polarity
		on       bool
		want     line.Level
	}{
		{"active-low on", line.ActiveLow, true, line.Low},
		{"active-low off", line.ActiveLow, false, line.High},
		{"active-high on", line.ActiveHigh, true, line.High},
		{"active-high off", line.ActiveHigh, false, line.Low},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.polarity.Level(tt.on); got != tt.want {
				t.Errorf("Level(%v) = %s, want %s", tt.on, got, tt.want)
			}
		})
	}
}

func TestPolarityFromActiveLow(t *testing.T) {
	if got := line.PolarityFromActiveLow(true); got != line.ActiveLow {
		t.Errorf("PolarityFromActiveLow(true) = %s", got)
	}
	if got := line.PolarityFromActiveLow(false); got != line.ActiveHigh {
		t.Errorf("PolarityFromActiveLow(false) = %s", got)
	}
}

func TestDriver_Drive(t *testing.T) {
	h := &linetest.Handle{}
	d := line.NewDriver(h, line.ActiveLow)

	if err := d.Drive(true); err != nil {
		t.Fatalf("Drive(true) error: %v", err)
	}
	if err := d.Drive(false); err != nil {
		t.Fatalf("Drive(false) error: %v", err)
	}

	ops := h.Ops()
	want := []linetest.Op{linetest.OpLow, linetest.OpHigh}
	if len(ops) != len(want) {
		t.Fatalf("ops = %v, want %v", ops, want)
	}
	for i := range want {
		if ops[i] != want[i] {
			t.Errorf("ops[%d] = %s, want %s", i, ops[i], want[i])
		}
	}
}

func TestDriver_DriveAfterRelease(t *testing.T) {
	h := &linetest.Handle{}
	d := line.NewDriver(h, line.ActiveHigh)

	if err := d.Release(); err != nil {
		t.Fatalf("Release() error: %v", err)
	}
	if err := d.Drive(true); !errors.Is(err, line.ErrReleased) {
		t.Errorf("Drive after release = %v, want ErrReleased", err)
	}
}

func TestAcquire(t *testing.T) {
	p := linetest.NewProvider("led1")

	d, err := line.Acquire(p, "led1", line.ActiveLow)
	if err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}
	if d.Polarity() != line.ActiveLow {
		t.Errorf("Polarity() = %s, want active-low", d.Polarity())
	}
	// LED starts off: physical high on active-low wiring.
	if got := p.Initial["led1"]; got != line.High {
		t.Errorf("initial level = %s, want high", got)
	}

	if _, err := line.Acquire(p, "missing", line.ActiveLow); !errors.Is(err, line.ErrNotFound) {
		t.Errorf("Acquire(missing) = %v, want ErrNotFound", err)
	}
}
