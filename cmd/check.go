package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/smazurov/gpioled/internal/line"
	"github.com/spf13/cobra"
)

// LineFinder resolves a line name without claiming it.
type LineFinder func(name string) (line.Lookup, error)

// ConfiguredLine returns the line name the daemon is configured with, after
// flags, environment and config file have been applied.
type ConfiguredLine func(cmd *cobra.Command) string

// CreateCheckLineCmd returns the check-line command. It reports where the
// named line lives and who holds it, and never requests the line. Without an
// argument it checks the configured line.
func CreateCheckLineCmd(find LineFinder, configured ConfiguredLine) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-line [name]",
		Short: "Show which chip and offset a GPIO line name resolves to",
		Long:  `Resolves the LED line name on the GPIO character devices and prints its chip, offset, direction and current consumer. The line is not requested.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var name string
			if configured != nil {
				name = configured(cmd)
			}
			if len(args) == 1 {
				name = args[0]
			}
			if name == "" {
				return errors.New("line name required")
			}

			info, err := find(name)
			if err != nil {
				return err
			}
			printLookup(cmd.OutOrStdout(), info)
			return nil
		},
	}
	return cmd
}

func printLookup(w io.Writer, info line.Lookup) {
	direction := "input"
	if info.Output {
		direction = "output"
	}
	consumer := "-"
	if info.Used {
		consumer = info.Consumer
		if consumer == "" {
			consumer = "(unnamed)"
		}
	}
	fmt.Fprintf(w, "line:      %s\n", info.Name)
	fmt.Fprintf(w, "chip:      %s\n", info.Chip)
	fmt.Fprintf(w, "offset:    %d\n", info.Offset)
	fmt.Fprintf(w, "direction: %s\n", direction)
	fmt.Fprintf(w, "consumer:  %s\n", consumer)
}
