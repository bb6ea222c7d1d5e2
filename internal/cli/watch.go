package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"cmosrtc-go/bus"
	"cmosrtc-go/drivers/rtc"
	"cmosrtc-go/services/config"
	"cmosrtc-go/services/hal"
	"cmosrtc-go/services/timekeeper"
	"cmosrtc-go/types"
)

var watchInterval time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the HAL and timekeeper and print every new reading",
	Long: `Watch starts the in-process bus with the config, HAL and timekeeper
services. The timekeeper asks the HAL for a reading on each tick; every
reading that differs from the previous one is printed. Stop with Ctrl-C.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "read interval (default from config)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	v, err := config.Load(config.DefaultDevice, cfgFile)
	if err != nil {
		return err
	}
	domain := v.GetString("timekeeper.domain")
	if domain == "" {
		domain = "time"
	}
	name := v.GetString("timekeeper.rtc")

	ports, err := openPorts()
	if err != nil {
		return err
	}
	defer ports.Close()

	b := bus.NewBus(16)
	conn := b.NewConnection("rtcctl")
	defer conn.Disconnect()
	values := conn.Subscribe(hal.CapValue(domain, string(types.KindRTC), name))
	status := conn.Subscribe(hal.CapStatus(domain, string(types.KindRTC), name))

	cfgSvc := config.NewConfigService()
	cfgSvc.File = cfgFile
	cfgSvc.Log = logger.WithPrefix("config")
	if watchInterval > 0 {
		cfgSvc.Overrides = map[string]any{"timekeeper.interval": watchInterval.Seconds()}
	}
	cfgCtx := context.WithValue(ctx, config.CtxDeviceKey, config.DefaultDevice)
	cfgSvc.Start(cfgCtx, b.NewConnection("config"))

	halDone := make(chan struct{})
	go func() {
		defer close(halDone)
		hal.Run(ctx, b.NewConnection("hal"), hal.Options{Ports: ports, Logger: logger})
	}()

	tk := &timekeeper.Service{Log: logger.WithPrefix("timekeeper")}
	_ = tk.Start(ctx, b.NewConnection("timekeeper"))

	logger.Info("watching", "rtc", name, "domain", domain)
	var last rtc.TimePoint
	seen := false
	for {
		select {
		case <-ctx.Done():
			// HAL waits for an in-flight read before releasing the ports.
			<-halDone
			return nil
		case m := <-status.Channel():
			if st, ok := m.Payload.(types.CapabilityStatus); ok && st.Link == types.LinkDegraded {
				logger.Warn("rtc degraded", "err", st.Error)
			}
		case m := <-values.Channel():
			val, ok := m.Payload.(types.RTCValue)
			if !ok {
				continue
			}
			tp := rtc.TimePoint{
				Seconds: val.Seconds, Minutes: val.Minutes, Hours: val.Hours,
				DayOfMonth: val.DayOfMonth, Month: val.Month, Year: val.Year,
			}
			if seen && tp == last {
				continue
			}
			last, seen = tp, true
			if err := printReading(cmd.OutOrStdout(), tp, val.BCD, val.Retries); err != nil {
				return err
			}
		}
	}
}
