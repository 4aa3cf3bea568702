package line

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warthog618/go-gpiosim"
	"golang.org/x/sys/unix"
)

const (
	simLED    = "GPIOLED_TEST_LED"
	simHogged = "GPIOLED_TEST_HOG"
	ledOffset = 3
)

// newSim builds a gpio-sim chip with a free LED line and a line already
// held by the kernel. It skips the test when gpio-sim cannot be used.
func newSim(t *testing.T) *gpiosim.Sim {
	t.Helper()
	if os.Geteuid() != 0 {
		t.Skip("gpio-sim requires root")
	}
	s, err := gpiosim.NewSim(
		gpiosim.WithName("gpioled_test"),
		gpiosim.WithBank(gpiosim.NewBank("gpioled", 8,
			gpiosim.WithNamedLine(ledOffset, simLED),
			gpiosim.WithNamedLine(5, simHogged),
			gpiosim.WithHoggedLine(5, "kernel", gpiosim.HogDirectionOutputLow),
		)),
	)
	if err != nil {
		t.Skipf("gpio-sim unavailable: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func simLevel(t *testing.T, s *gpiosim.Sim) int {
	t.Helper()
	v, err := s.Chips[0].Level(ledOffset)
	require.NoError(t, err)
	return v
}

func TestChipProvider_Request(t *testing.T) {
	for _, initial := range []Level{Low, High} {
		t.Run(initial.String(), func(t *testing.T) {
			s := newSim(t)
			p := NewChipProvider("gpioled-test")

			h, err := p.FindLineByName(simLED, initial)
			require.NoError(t, err)
			assert.Equal(t, int(initial), simLevel(t, s))

			require.NoError(t, h.SetHigh())
			assert.Equal(t, 1, simLevel(t, s))
			require.NoError(t, h.SetLow())
			assert.Equal(t, 0, simLevel(t, s))

			require.NoError(t, h.Release())
			assert.ErrorIs(t, h.SetHigh(), ErrReleased)
			assert.ErrorIs(t, h.SetLow(), ErrReleased)
			assert.ErrorIs(t, h.Release(), ErrReleased)
		})
	}
}

func TestChipProvider_Busy(t *testing.T) {
	newSim(t)
	p := NewChipProvider("")

	h, err := p.FindLineByName(simLED, Low)
	require.NoError(t, err)
	defer h.Release()

	_, err = p.FindLineByName(simLED, Low)
	assert.ErrorIs(t, err, ErrLineBusy)

	_, err = p.FindLineByName(simHogged, Low)
	assert.ErrorIs(t, err, ErrLineBusy)
}

func TestChipProvider_NotFound(t *testing.T) {
	newSim(t)

	_, err := NewChipProvider("").FindLineByName("GPIOLED_TEST_MISSING", Low)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = Find("GPIOLED_TEST_MISSING")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFind(t *testing.T) {
	newSim(t)

	info, err := Find(simLED)
	require.NoError(t, err)
	assert.Equal(t, ledOffset, info.Offset)
	assert.False(t, info.Used)

	h, err := NewChipProvider("gpioled-test").FindLineByName(simLED, High)
	require.NoError(t, err)
	defer h.Release()

	info, err = Find(simLED)
	require.NoError(t, err)
	assert.True(t, info.Used)
	assert.True(t, info.Output)
	assert.Equal(t, "gpioled-test", info.Consumer)
}

func TestRequestError(t *testing.T) {
	tests := []struct {
		err  error
		want error
	}{
		{err: unix.EBUSY, want: ErrLineBusy},
		{err: fmt.Errorf("request: %w", unix.EBUSY), want: ErrLineBusy},
		{err: unix.EACCES, want: ErrUnavailable},
		{err: unix.EPERM, want: ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.ErrorIs(t, requestError("gpiochip0", 3, tt.err), tt.want)
		})
	}

	err := requestError("gpiochip0", 3, unix.EINVAL)
	assert.ErrorIs(t, err, unix.EINVAL)
	assert.False(t, errors.Is(err, ErrLineBusy) || errors.Is(err, ErrUnavailable))
}
