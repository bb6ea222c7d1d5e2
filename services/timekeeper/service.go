// Package timekeeper keeps the most recent RTC reading. It asks the HAL for
// a read at start-up and on every tick, and answers timekeeper/latest.
package timekeeper

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-viper/mapstructure/v2"

	"cmosrtc-go/bus"
	"cmosrtc-go/drivers/rtc"
	"cmosrtc-go/errcode"
	"cmosrtc-go/services/hal"
	"cmosrtc-go/types"
)

var (
	topicConfigTimekeeper = bus.T("config", "timekeeper")
	TopicLatest           = bus.T("timekeeper", "latest")
)

// Config is the config/timekeeper payload.
type Config struct {
	Interval float64 `mapstructure:"interval"` // seconds
	RTC      string  `mapstructure:"rtc"`      // capability name
	Domain   string  `mapstructure:"domain"`
}

var defaultConfig = Config{Interval: 1, RTC: "rtc0", Domain: "time"}

type Service struct {
	Log *log.Logger

	mu     sync.Mutex
	latest types.RTCValue
	have   bool
}

// Latest returns the last reading and whether one has arrived.
func (s *Service) Latest() (types.RTCValue, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest, s.have
}

func (s *Service) store(v types.RTCValue) (changed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed = !s.have || v != s.latest
	s.latest, s.have = v, true
	return changed
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	lg := s.Log
	if lg == nil {
		lg = log.Default().WithPrefix("timekeeper")
	}

	cfgSub := conn.Subscribe(topicConfigTimekeeper)
	defer conn.Unsubscribe(cfgSub)
	latestSub := conn.Subscribe(TopicLatest)
	defer conn.Unsubscribe(latestSub)
	stateSub := conn.Subscribe(hal.TopicState())
	defer conn.Unsubscribe(stateSub)

	cfg := defaultConfig
	valSub := conn.Subscribe(hal.CapValue(cfg.Domain, string(types.KindRTC), cfg.RTC))
	defer func() { conn.Unsubscribe(valSub) }()

	tick := time.NewTicker(interval(cfg))
	defer tick.Stop()

	// Boot-time reading.
	s.requestRead(conn, cfg)

	// loop until context is cancelled, respond to tick and config changes
	for {
		select {
		case <-ctx.Done():
			lg.Info("stopping")
			return
		case <-tick.C:
			s.requestRead(conn, cfg)
		case msg := <-cfgSub.Channel():
			next, err := decodeConfig(msg.Payload)
			if err != nil {
				lg.Warn("ignoring config", "err", err)
				continue
			}
			if next.RTC != cfg.RTC || next.Domain != cfg.Domain {
				conn.Unsubscribe(valSub)
				valSub = conn.Subscribe(hal.CapValue(next.Domain, string(types.KindRTC), next.RTC))
			}
			cfg = next
			tick.Reset(interval(cfg))
			lg.Info("configured", "rtc", cfg.RTC, "interval", interval(cfg))
			s.requestRead(conn, cfg)
		case msg := <-stateSub.Channel():
			// HAL rejects controls until configured; read as soon as it is.
			if st, ok := msg.Payload.(types.HALState); ok && st.Level == "ready" {
				s.requestRead(conn, cfg)
			}
		case msg := <-valSub.Channel():
			v, ok := msg.Payload.(types.RTCValue)
			if !ok {
				continue
			}
			if s.store(v) {
				lg.Debug("rtc", "time", toTimePoint(v).String(), "bcd", v.BCD)
			}
		case msg := <-latestSub.Channel():
			if v, ok := s.Latest(); ok {
				conn.Reply(msg, v, false)
			} else {
				conn.Reply(msg, types.ErrorReply{OK: false, Error: string(errcode.NoValue)}, false)
			}
		}
	}
}

// requestRead is fire-and-forget; the result arrives on the value topic.
func (s *Service) requestRead(conn *bus.Connection, cfg Config) {
	conn.Publish(conn.NewMessage(hal.CapCtrl(cfg.Domain, string(types.KindRTC), cfg.RTC, "read"), nil, false))
}

// Start the timekeeper service.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	go s.serviceLoop(ctx, conn)
	return nil
}

func decodeConfig(p any) (Config, error) {
	cfg := defaultConfig
	if p == nil {
		return cfg, nil
	}
	if c, ok := p.(Config); ok {
		cfg = c
	} else if err := mapstructure.WeakDecode(p, &cfg); err != nil {
		return defaultConfig, err
	}
	if cfg.RTC == "" {
		cfg.RTC = defaultConfig.RTC
	}
	if cfg.Domain == "" {
		cfg.Domain = defaultConfig.Domain
	}
	return cfg, nil
}

func interval(c Config) time.Duration {
	d := time.Duration(c.Interval * float64(time.Second))
	if d < 100*time.Millisecond {
		d = 100 * time.Millisecond
	}
	return d
}

func toTimePoint(v types.RTCValue) rtc.TimePoint {
	return rtc.TimePoint{
		Seconds: v.Seconds, Minutes: v.Minutes, Hours: v.Hours,
		DayOfMonth: v.DayOfMonth, Month: v.Month, Year: v.Year,
	}
}
