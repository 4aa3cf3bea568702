// Package systemd integrates the daemon with the service manager: readiness
// notification and socket activation.
package systemd

import (
	"fmt"
	"net"

	"github.com/coreos/go-systemd/v22/activation"
	"github.com/coreos/go-systemd/v22/daemon"
)

// Notifier sends sd_notify state updates. The zero value is usable.
type Notifier struct {
	// notify is swapped in tests.
	notify func(unsetEnv bool, state string) (bool, error)
}

// NewNotifier returns a notifier backed by NOTIFY_SOCKET.
func NewNotifier() *Notifier {
	return &Notifier{notify: daemon.SdNotify}
}

func (n *Notifier) send(state string) (bool, error) {
	if n == nil {
		return false, nil
	}
	fn := n.notify
	if fn == nil {
		fn = daemon.SdNotify
	}
	sent, err := fn(false, state)
	if err != nil {
		return false, fmt.Errorf("sd_notify %q: %w", state, err)
	}
	return sent, nil
}

// Ready reports READY=1. It returns false when not running under systemd.
func (n *Notifier) Ready() (bool, error) {
	return n.send(daemon.SdNotifyReady)
}

// Stopping reports STOPPING=1.
func (n *Notifier) Stopping() (bool, error) {
	return n.send(daemon.SdNotifyStopping)
}

// Status reports a free-form STATUS= line.
func (n *Notifier) Status(msg string) (bool, error) {
	return n.send("STATUS=" + msg)
}

// ActivatedListener returns the single socket passed by systemd socket
// activation, or nil when the process was not socket-activated.
func ActivatedListener() (net.Listener, error) {
	listeners, err := activation.Listeners()
	if err != nil {
		return nil, fmt.Errorf("failed to read activated sockets: %w", err)
	}

	var found net.Listener
	for _, l := range listeners {
		if l == nil {
			continue
		}
		if found != nil {
			l.Close()
			found.Close()
			return nil, fmt.Errorf("expected one activated socket, got %d", len(listeners))
		}
		found = l
	}
	return found, nil
}
