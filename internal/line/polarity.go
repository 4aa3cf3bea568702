package line

import "fmt"

// Polarity describes how the LED is wired to the line.
type Polarity int

const (
	// ActiveLow means the LED lights when the line is driven low.
	ActiveLow Polarity = iota
	// ActiveHigh means the LED lights when the line is driven high.
	ActiveHigh
)

// PolarityFromActiveLow maps the boolean config flag to a Polarity.
func PolarityFromActiveLow(activeLow bool) Polarity {
	if activeLow {
		return ActiveLow
	}
	return ActiveHigh
}

// Level returns the physical level that puts the LED in the requested state.
// This is the only place logical on/off is translated to a physical level.
func (p Polarity) Level(on bool) Level {
	if on == (p == ActiveHigh) {
		return High
	}
	return Low
}

func (p Polarity) String() string {
	switch p {
	case ActiveLow:
		return "active-low"
	case ActiveHigh:
		return "active-high"
	default:
		return fmt.Sprintf("polarity(%d)", int(p))
	}
}
