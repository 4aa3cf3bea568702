package line

// Driver drives a Handle in logical on/off terms.
type Driver struct {
	handle   Handle
	polarity Polarity
}

// NewDriver wraps handle with the given wiring polarity.
func NewDriver(handle Handle, polarity Polarity) *Driver {
	return &Driver{handle: handle, polarity: polarity}
}

// Acquire claims the named line from provider with the LED initially off.
func Acquire(provider Provider, name string, polarity Polarity) (*Driver, error) {
	h, err := provider.FindLineByName(name, polarity.Level(false))
	if err != nil {
		return nil, err
	}
	return NewDriver(h, polarity), nil
}

// Drive sets the LED on or off.
func (d *Driver) Drive(on bool) error {
	if d.polarity.Level(on) == High {
		return d.handle.SetHigh()
	}
	return d.handle.SetLow()
}

// Polarity returns the wiring polarity of the driver.
func (d *Driver) Polarity() Polarity {
	return d.polarity
}

// Release returns the underlying line to the platform.
func (d *Driver) Release() error {
	return d.handle.Release()
}
