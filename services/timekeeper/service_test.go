package timekeeper

import (
	"context"
	"testing"
	"time"

	"cmosrtc-go/bus"
	"cmosrtc-go/drivers/cmosrtc/cmossim"
	"cmosrtc-go/services/hal"
	"cmosrtc-go/types"
)

func TestDecodeConfig(t *testing.T) {
	cfg, err := decodeConfig(map[string]any{"interval": 2.5, "rtc": "clock"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg != (Config{Interval: 2.5, RTC: "clock", Domain: "time"}) {
		t.Fatalf("cfg = %+v", cfg)
	}
	if interval(cfg) != 2500*time.Millisecond {
		t.Fatalf("interval = %v", interval(cfg))
	}
	if cfg, _ := decodeConfig(nil); cfg != defaultConfig {
		t.Fatalf("nil cfg = %+v", cfg)
	}
	if _, err := decodeConfig(map[string]any{"interval": "soon"}); err == nil {
		t.Fatal("expected decode error")
	}
	if interval(Config{}) != 100*time.Millisecond {
		t.Fatal("interval floor")
	}
}

func TestLatestWithoutReading(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b := bus.NewBus(16)
	conn := b.NewConnection("test")
	defer conn.Disconnect()

	svc := &Service{}
	_ = svc.Start(ctx, b.NewConnection("timekeeper"))

	rctx, rcancel := context.WithTimeout(ctx, 2*time.Second)
	defer rcancel()
	var r *bus.Message
	var err error
	// The service may not be subscribed yet; retry until it answers.
	for r == nil {
		qctx, qcancel := context.WithTimeout(rctx, 50*time.Millisecond)
		r, err = conn.RequestWait(qctx, conn.NewMessage(TopicLatest, nil, false))
		qcancel()
		if rctx.Err() != nil {
			t.Fatalf("no reply: %v", err)
		}
	}
	if e, ok := r.Payload.(types.ErrorReply); !ok || e.Error != "no_value" {
		t.Fatalf("reply = %#v", r.Payload)
	}
}

func TestTracksHALReadings(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b := bus.NewBus(16)
	conn := b.NewConnection("test")
	defer conn.Disconnect()

	chip := &cmossim.Chip{Now: func() time.Time { return time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC) }}
	go hal.Run(ctx, b.NewConnection("hal"), hal.Options{Ports: chip})

	svc := &Service{}
	_ = svc.Start(ctx, b.NewConnection("timekeeper"))

	conn.Publish(conn.NewMessage(bus.T("config", "timekeeper"), map[string]any{"interval": 0.1, "rtc": "clock"}, true))
	conn.Publish(conn.NewMessage(hal.TopicConfig(), types.HALConfig{Devices: []types.HALDevice{
		{ID: "rtc0", Type: "cmos_rtc", Params: map[string]any{"name": "clock"}},
	}}, true))

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if v, ok := svc.Latest(); ok {
			want := types.RTCValue{Seconds: 5, Minutes: 4, Hours: 3, DayOfMonth: 2, Month: 1, Year: 30, BCD: true}
			if v != want {
				t.Fatalf("latest = %+v, want %+v", v, want)
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("no reading within 3s")
}

func TestStoreReportsOnlyChanges(t *testing.T) {
	s := &Service{}
	v := types.RTCValue{Seconds: 1, Minutes: 2, Hours: 3, DayOfMonth: 4, Month: 5, Year: 6, BCD: true}
	if !s.store(v) {
		t.Fatal("first reading not reported")
	}
	if s.store(v) {
		t.Fatal("identical reading reported as a change")
	}
	v.Seconds++
	if !s.store(v) {
		t.Fatal("new second not reported")
	}
}
