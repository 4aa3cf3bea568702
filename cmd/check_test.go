package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/smazurov/gpioled/internal/line"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, find LineFinder, args ...string) (string, error) {
	t.Helper()
	return runConfigured(t, find, nil, args...)
}

func runConfigured(t *testing.T, find LineFinder, configured ConfiguredLine, args ...string) (string, error) {
	t.Helper()
	c := CreateCheckLineCmd(find, configured)
	var out bytes.Buffer
	c.SetOut(&out)
	c.SetErr(&out)
	c.SetArgs(args)
	err := c.Execute()
	return out.String(), err
}

func TestCheckLine(t *testing.T) {
	var asked string
	find := func(name string) (line.Lookup, error) {
		asked = name
		return line.Lookup{Name: name, Chip: "gpiochip0", Offset: 17, Used: true, Consumer: "gpioled", Output: true}, nil
	}

	out, err := run(t, find, "LED2")
	require.NoError(t, err)
	assert.Equal(t, "LED2", asked)
	assert.Contains(t, out, "chip:      gpiochip0")
	assert.Contains(t, out, "offset:    17")
	assert.Contains(t, out, "direction: output")
	assert.Contains(t, out, "consumer:  gpioled")
}

func TestCheckLineUsesConfiguredName(t *testing.T) {
	var asked []string
	find := func(name string) (line.Lookup, error) {
		asked = append(asked, name)
		return line.Lookup{Name: name}, nil
	}
	configured := func(*cobra.Command) string { return "STATUS_LED" }

	out, err := runConfigured(t, find, configured)
	require.NoError(t, err)
	assert.Contains(t, out, "line:      STATUS_LED")
	assert.Contains(t, out, "consumer:  -")
	assert.Contains(t, out, "direction: input")

	// An explicit argument wins over the configured name.
	_, err = runConfigured(t, find, configured, "OTHER")
	require.NoError(t, err)

	assert.Equal(t, []string{"STATUS_LED", "OTHER"}, asked)
}

func TestCheckLineNotFound(t *testing.T) {
	find := func(name string) (line.Lookup, error) {
		return line.Lookup{}, fmt.Errorf("%w: %q", line.ErrNotFound, name)
	}

	_, err := run(t, find, "NOPE")
	assert.True(t, errors.Is(err, line.ErrNotFound))

	_, err = run(t, find)
	assert.EqualError(t, err, "line name required")
}
