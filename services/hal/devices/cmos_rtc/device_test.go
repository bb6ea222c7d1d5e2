package cmosrtcdev

import (
	"context"
	"errors"
	"testing"
	"time"

	"cmosrtc-go/drivers/cmosrtc"
	"cmosrtc-go/drivers/cmosrtc/cmossim"
	"cmosrtc-go/drivers/rtc"
	"cmosrtc-go/errcode"
	"cmosrtc-go/services/hal/internal/core"
	"cmosrtc-go/services/hal/internal/provider"
	"cmosrtc-go/types"
)

type chanEmitter struct{ ch chan core.Event }

func (e chanEmitter) Emit(ev core.Event) bool {
	select {
	case e.ch <- ev:
		return true
	default:
		return false
	}
}

var sample = rtc.TimePoint{Seconds: 0x45, Minutes: 0x30, Hours: 0x12, DayOfMonth: 0x25, Month: 0x09, Year: 0x23}

func build(t *testing.T, chip *cmossim.Chip, params any) (*Device, chan core.Event, *provider.PortRegistry) {
	t.Helper()
	reg := provider.NewPortRegistry(chip)
	ev := make(chan core.Event, 4)
	dev, err := builder{}.Build(context.Background(), core.BuilderInput{
		ID: "rtc0", Type: "cmos_rtc", Params: params,
		Res: core.Resources{Reg: reg, Pub: chanEmitter{ev}},
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if err := dev.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	return dev.(*Device), ev, reg
}

func recvEvent(t *testing.T, ch <-chan core.Event) core.Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for event")
	}
	return core.Event{}
}

func TestBuildDefaultsAndInfo(t *testing.T) {
	d, _, reg := build(t, cmossim.NewScripted(nil, []rtc.TimePoint{sample}, false), nil)
	want := core.CapAddr{Domain: "time", Kind: "rtc", Name: "rtc0"}
	if d.addr != want {
		t.Fatalf("addr = %+v, want %+v", d.addr, want)
	}
	caps := d.Capabilities()
	if len(caps) != 1 || caps[0].Kind != types.KindRTC {
		t.Fatalf("caps = %+v", caps)
	}
	info, ok := caps[0].Info.Detail.(types.RTCInfo)
	if !ok || info.Class != "rtc/cmos-rtc" || len(info.Ports) != 2 {
		t.Fatalf("info detail = %#v", caps[0].Info.Detail)
	}
	if o, _ := reg.Owner(0x71); o != "rtc0" {
		t.Fatalf("port 0x71 owner = %q", o)
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	if _, held := reg.Owner(0x70); held {
		t.Fatal("ports not released on close")
	}
}

func TestBuildDecodesMapParams(t *testing.T) {
	d, _, _ := build(t, &cmossim.Chip{}, map[string]any{"name": "clock", "domain": "sys"})
	if d.addr.Name != "clock" || d.addr.Domain != "sys" {
		t.Fatalf("addr = %+v", d.addr)
	}
}

func TestBuildRejectsSecondClaim(t *testing.T) {
	chip := &cmossim.Chip{}
	reg := provider.NewPortRegistry(chip)
	in := core.BuilderInput{Type: "cmos_rtc", Res: core.Resources{Reg: reg}}
	in.ID = "rtc0"
	if _, err := (builder{}).Build(context.Background(), in); err != nil {
		t.Fatal(err)
	}
	in.ID = "rtc1"
	if _, err := (builder{}).Build(context.Background(), in); errcode.Of(err) != errcode.PortsInUse {
		t.Fatalf("got %v, want ports_in_use", err)
	}
}

func TestReadEmitsNormalizedValue(t *testing.T) {
	d, ev, _ := build(t, cmossim.NewScripted(nil, []rtc.TimePoint{sample}, false), Params{Name: "clock"})

	res, err := d.Control(d.addr, "read", nil)
	if err != nil || !res.OK {
		t.Fatalf("control: %+v %v", res, err)
	}
	e := recvEvent(t, ev)
	v, ok := e.Payload.(types.RTCValue)
	if !ok || e.Err != "" || e.IsEvent {
		t.Fatalf("event = %+v", e)
	}
	want := types.RTCValue{Seconds: 45, Minutes: 30, Hours: 12, DayOfMonth: 25, Month: 9, Year: 23, BCD: true}
	if v != want {
		t.Fatalf("value = %+v, want %+v", v, want)
	}
	if e.Addr.Name != "clock" {
		t.Fatalf("addr = %+v", e.Addr)
	}
}

func TestSecondReadWhileBusy(t *testing.T) {
	chip := cmossim.NewScripted([]uint8{0xA6}, []rtc.TimePoint{sample}, true)
	d, ev, _ := build(t, chip, nil)

	if res, _ := d.Control(d.addr, "read", nil); !res.OK {
		t.Fatalf("first read rejected: %+v", res)
	}
	res, err := d.Control(d.addr, "read", nil)
	if err != nil || res.OK || res.Error != errcode.Busy {
		t.Fatalf("second read: %+v %v", res, err)
	}

	chip.SetStatusA(0x26)
	if v := recvEvent(t, ev).Payload.(types.RTCValue); v.Seconds != 0x45 || v.BCD {
		t.Fatalf("binary value = %+v", v)
	}
	if res, _ := d.Control(d.addr, "read", nil); !res.OK {
		t.Fatalf("read after completion rejected: %+v", res)
	}
	recvEvent(t, ev)
}

func TestPortFailureEmitsIOError(t *testing.T) {
	chip := cmossim.NewScripted(nil, []rtc.TimePoint{sample}, false)
	chip.Fail = errors.New("permission denied")
	d, ev, _ := build(t, chip, nil)

	if res, _ := d.Control(d.addr, "read", nil); !res.OK {
		t.Fatalf("read rejected: %+v", res)
	}
	e := recvEvent(t, ev)
	if e.Err != string(errcode.IOError) || e.Payload != nil {
		t.Fatalf("event = %+v", e)
	}
}

func TestStatsAndUnknownVerb(t *testing.T) {
	d, ev, _ := build(t, cmossim.NewScripted([]uint8{0x80, 0x00}, []rtc.TimePoint{sample}, false), nil)

	if res, _ := d.Control(d.addr, "read", nil); !res.OK {
		t.Fatal("read rejected")
	}
	recvEvent(t, ev)

	if res, _ := d.Control(d.addr, "stats", nil); !res.OK {
		t.Fatal("stats rejected")
	}
	e := recvEvent(t, ev)
	if !e.IsEvent || e.EventTag != "stats" {
		t.Fatalf("event = %+v", e)
	}
	if s := e.Payload.(types.RTCStats); s != (types.RTCStats{Snapshots: 2, Retries: 0, Polls: 3}) {
		t.Fatalf("stats = %+v", s)
	}

	res, err := d.Control(d.addr, "set", nil)
	if err != nil || res.OK || res.Error != errcode.Unsupported {
		t.Fatalf("set: %+v %v", res, err)
	}
}

func TestCloseDoesNotWaitForStuckRead(t *testing.T) {
	chip := cmossim.NewScripted([]uint8{0x80}, []rtc.TimePoint{sample}, false)
	d, ev, reg := build(t, chip, nil)
	// Let the worker finish before the next test takes the process-wide guard.
	t.Cleanup(func() { chip.SetStatusA(0x00) })

	if res, _ := d.Control(d.addr, "read", nil); !res.OK {
		t.Fatalf("read rejected: %+v", res)
	}
	for chip.Reads(cmosrtc.RegStatusA) == 0 {
		time.Sleep(time.Millisecond)
	}

	done := make(chan error, 1)
	go func() { done <- d.Close() }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(time.Second):
		t.Fatal("Close blocked on a read spinning on the update flag")
	}

	// The spinning read still owns the ports.
	if o, _ := reg.Owner(cmosrtc.AddressPort); o != "rtc0" {
		t.Fatalf("ports released under a running read: owner %q", o)
	}
	if res, _ := d.Control(d.addr, "read", nil); res.OK || res.Error != errcode.Unsupported {
		t.Fatalf("read after close: %+v", res)
	}

	// Once the flag clears the worker hands the ports back.
	chip.SetStatusA(0x00)
	recvEvent(t, ev)
	deadline := time.Now().Add(time.Second)
	for {
		if _, held := reg.Owner(cmosrtc.AddressPort); !held {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("ports not released after the read finished")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestRetriesArePerReading(t *testing.T) {
	first := sample
	first.Seconds = 0x44
	chip := cmossim.NewScripted(nil, []rtc.TimePoint{first, sample}, true)
	d, ev, _ := build(t, chip, nil)

	read := func() types.RTCValue {
		t.Helper()
		if res, _ := d.Control(d.addr, "read", nil); !res.OK {
			t.Fatalf("read rejected: %+v", res)
		}
		return recvEvent(t, ev).Payload.(types.RTCValue)
	}

	v1 := read()
	if v1.Retries != 1 || v1.Seconds != 0x45 {
		t.Fatalf("first reading = %+v", v1)
	}
	v2 := read()
	if v2.Retries != 0 {
		t.Fatalf("second reading retries = %d, want 0", v2.Retries)
	}
	// The cached reading behind drivers.Sensor is what got published.
	if tp := d.drv.TimePoint(); tp != sample {
		t.Fatalf("cached reading = %+v", tp)
	}
	if s := d.drv.Stats(); s.Retries != 1 {
		t.Fatalf("cumulative retries = %d", s.Retries)
	}
}
