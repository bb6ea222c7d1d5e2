// Package hal runs the hardware abstraction layer service: it builds devices
// from the retained config/hal message and exposes their capabilities on the
// bus under hal/cap/<domain>/<kind>/<name>/...
package hal

import (
	"context"

	"github.com/charmbracelet/log"

	"cmosrtc-go/bus"
	"cmosrtc-go/services/hal/internal/core"
	"cmosrtc-go/services/hal/internal/provider"

	// Device builders register themselves.
	_ "cmosrtc-go/services/hal/devices/cmos_rtc"
)

// PortIO is the port backend shared by all port-mapped devices.
type PortIO = core.PortIO

type Options struct {
	Ports  PortIO // nil: port-mapped devices fail to build
	Logger *log.Logger
}

// -----------------------------------------------------------------------------
// Entry point
// -----------------------------------------------------------------------------

// Run blocks until ctx is cancelled.
func Run(ctx context.Context, conn *bus.Connection, opts Options) {
	res := core.Resources{
		Reg: provider.NewPortRegistry(opts.Ports),
		Log: opts.Logger,
	}
	core.NewHAL(conn, res).Run(ctx)
}

// Topic helpers for clients.

func TopicState() bus.Topic { return core.TopicHALState() }

func TopicConfig() bus.Topic { return core.TopicConfigHAL() }

func CapValue(domain, kind, name string) bus.Topic { return core.CapValue(domain, kind, name) }

func CapStatus(domain, kind, name string) bus.Topic { return core.CapStatus(domain, kind, name) }

func CapCtrl(domain, kind, name, verb string) bus.Topic {
	return core.CapCtrl(domain, kind, name, verb)
}
