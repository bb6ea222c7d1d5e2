package core

import (
	"github.com/charmbracelet/log"
)

// ---- Port-mapped I/O ----

// PortIO performs single-byte port I/O.
type PortIO interface {
	ReadPort(port uint16) (uint8, error)
	WritePort(port uint16, v uint8) error
}

// ---- Device → HAL telemetry (single shape) ----
// By default, an Event represents a "value-like" update for a capability that
// HAL should publish to .../value (retained). If IsEvent is true, HAL instead
// publishes to .../event (non-retained). Err, when non-empty, causes HAL to
// publish only .../status=degraded (retained).

type Event struct {
	Addr     CapAddr
	Payload  any    // typed value payload (e.g. types.RTCValue)
	TSms     int64  // ms timestamp
	Err      string // "io_error","unsupported",...
	IsEvent  bool   // true => publish to .../event (non-retained)
	EventTag string // optional subtopic tag for events
}

// ---- Event emission (devices → HAL) ----

type EventEmitter interface {
	// Emit tries to enqueue an Event for HAL publication.
	// It must be non-blocking; false indicates a drop under pressure.
	Emit(ev Event) bool
}

// ---- HAL-injected resources ----

type Resources struct {
	Reg ResourceRegistry
	Pub EventEmitter // provided by HAL; devices use it to emit values/events
	Log *log.Logger
}

// ---- Unified registry interface ----

type ResourceRegistry interface {
	// ClaimPorts reserves ports [first, first+n) for devID. The returned
	// PortIO rejects ports outside the claim.
	ClaimPorts(devID string, first uint16, n int) (PortIO, error)
	ReleasePorts(devID string, first uint16, n int)
}
