package events

// Event type constants for kelindar/event.
const (
	TypeSessionOpened uint32 = iota + 1
	TypeSessionRejected
	TypeSessionClosed
	TypeLineChanged
	TypeTransferFault
	TypeStateChanged
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// SessionOpenedEvent is published when a client is admitted.
type SessionOpenedEvent struct {
	SessionID uint64 `json:"session_id" example:"1" doc:"Admitted session number"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for SessionOpenedEvent.
func (e SessionOpenedEvent) Type() uint32 { return TypeSessionOpened }

// SessionRejectedEvent is published when an open attempt finds the LED held.
type SessionRejectedEvent struct {
	Reason    string `json:"reason" example:"device busy" doc:"Why the session was refused"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for SessionRejectedEvent.
func (e SessionRejectedEvent) Type() uint32 { return TypeSessionRejected }

// SessionClosedEvent is published when a session releases the LED.
type SessionClosedEvent struct {
	SessionID uint64 `json:"session_id" example:"1" doc:"Released session number"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for SessionClosedEvent.
func (e SessionClosedEvent) Type() uint32 { return TypeSessionClosed }

// LineChangedEvent is published after a command drove the line.
type LineChangedEvent struct {
	SessionID uint64 `json:"session_id" example:"1" doc:"Session that issued the command, 0 for the controller itself"`
	Command   string `json:"command" example:"on" doc:"Applied command: on or off"`
	Level     string `json:"level" example:"low" doc:"Physical level the line was driven to"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for LineChangedEvent.
func (e LineChangedEvent) Type() uint32 { return TypeLineChanged }

// TransferFaultEvent is published when a write payload could not be read.
type TransferFaultEvent struct {
	SessionID uint64 `json:"session_id" example:"1" doc:"Session whose write failed"`
	Error     string `json:"error" example:"transfer fault: connection reset" doc:"Read error"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for TransferFaultEvent.
func (e TransferFaultEvent) Type() uint32 { return TypeTransferFault }

// StateChangedEvent is published on every lifecycle transition.
type StateChangedEvent struct {
	From      string `json:"from" example:"uninitialized" doc:"Previous lifecycle state"`
	To        string `json:"to" example:"ready" doc:"New lifecycle state"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for StateChangedEvent.
func (e StateChangedEvent) Type() uint32 { return TypeStateChanged }
