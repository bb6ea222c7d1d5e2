package cmosrtcdev

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
	"tinygo.org/x/drivers"

	"cmosrtc-go/drivers/cmosrtc"
	"cmosrtc-go/errcode"
	"cmosrtc-go/services/hal/internal/core"
	"cmosrtc-go/types"
	"cmosrtc-go/x/timex"
)

// address and data port
const portCount = 2

type Device struct {
	id  string
	drv *cmosrtc.Device
	pub core.EventEmitter
	reg core.ResourceRegistry
	log *log.Logger

	addr core.CapAddr

	mu      sync.Mutex
	busy    bool // one read in flight
	closing bool // ports go back once no read is in flight
}

func (d *Device) ID() string { return d.id }

func (d *Device) Capabilities() []core.CapabilitySpec {
	return []core.CapabilitySpec{{
		Domain: d.addr.Domain,
		Kind:   types.KindRTC,
		Name:   d.addr.Name,
		Info: types.Info{
			SchemaVersion: 1, Driver: "cmos_rtc",
			Detail: types.RTCInfo{
				Chip:  "cmos",
				Class: cmosrtc.Class.Path(),
				Ports: []uint16{cmosrtc.AddressPort, cmosrtc.DataPort},
			},
		},
	}}
}

// Init does not touch the ports; the first read happens on request.
func (d *Device) Init(ctx context.Context) error { return nil }

// Close releases the ports. A read still spinning on the chip keeps them
// until it returns; Close never waits for it.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closing {
		return nil
	}
	d.closing = true
	if !d.busy {
		d.release()
	}
	return nil
}

func (d *Device) release() {
	if d.reg != nil {
		d.reg.ReleasePorts(d.id, cmosrtc.AddressPort, portCount)
	}
}

// tryStart claims the single read slot.
func (d *Device) tryStart() errcode.Code {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch {
	case d.closing:
		return errcode.Unsupported
	case d.busy:
		return errcode.Busy
	}
	d.busy = true
	return ""
}

// finish frees the read slot, handing the ports back if Close came first.
func (d *Device) finish() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.busy = false
	if d.closing {
		d.release()
	}
}

func (d *Device) Control(_ core.CapAddr, verb string, payload any) (core.EnqueueResult, error) {
	switch verb {
	case "read":
		if code := d.tryStart(); code != "" {
			return core.EnqueueResult{OK: false, Error: code}, nil
		}
		go d.read()
		return core.EnqueueResult{OK: true}, nil
	case "stats":
		s := d.drv.Stats()
		if !d.pub.Emit(core.Event{
			Addr:     d.addr,
			Payload:  types.RTCStats{Snapshots: s.Snapshots, Retries: s.Retries, Polls: s.Polls},
			TSms:     timex.NowMs(),
			IsEvent:  true,
			EventTag: "stats",
		}) {
			return core.EnqueueResult{OK: false, Error: errcode.Busy}, nil
		}
		return core.EnqueueResult{OK: true}, nil
	default:
		return core.EnqueueResult{OK: false, Error: errcode.Unsupported}, nil
	}
}

func (d *Device) read() {
	before := d.drv.Stats().Retries
	err := d.drv.Update(drivers.Time)
	tp := d.drv.TimePoint()
	bcd := d.drv.LastReadBCD()
	retries := d.drv.Stats().Retries - before
	// Free the slot before emitting so a consumer of the event can read again.
	d.finish()

	if err != nil {
		code := errcode.MapDriverErr(err)
		if d.log != nil {
			d.log.Error("read failed", "err", err)
		}
		d.pub.Emit(core.Event{Addr: d.addr, Err: string(code), TSms: timex.NowMs()})
		return
	}
	d.pub.Emit(core.Event{
		Addr: d.addr,
		Payload: types.RTCValue{
			Seconds:    tp.Seconds,
			Minutes:    tp.Minutes,
			Hours:      tp.Hours,
			DayOfMonth: tp.DayOfMonth,
			Month:      tp.Month,
			Year:       tp.Year,
			BCD:        bcd,
			Retries:    retries,
		},
		TSms: timex.NowMs(),
	})
}
