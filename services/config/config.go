package config

import (
	"bytes"
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"

	"cmosrtc-go/bus"
)

const (
	serviceName  = "config"
	configPrefix = "config"
	envPrefix    = "RTCCTL"
	CtxDeviceKey = "device" // context key used for device ID
)

// EmbeddedConfigLookup allows overriding how configs are resolved.
var EmbeddedConfigLookup = func(device string) ([]byte, bool) {
	b, ok := embeddedConfigs[device]
	return b, ok
}

// Load layers the embedded config for device, the optional file and the
// environment. Keys are lower-cased by viper.
func Load(device, file string) (*viper.Viper, error) {
	raw, ok := EmbeddedConfigLookup(device)
	if !ok || len(raw) == 0 {
		return nil, errors.New("no embedded config for device: " + device)
	}
	v := viper.New()
	v.SetConfigType("json")
	if err := v.ReadConfig(bytes.NewReader(raw)); err != nil {
		return nil, err
	}
	if file != "" {
		v.SetConfigFile(file)
		if err := v.MergeInConfig(); err != nil {
			return nil, err
		}
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v, nil
}

// -----------------------------------------------------------------------------
// Config Service
// -----------------------------------------------------------------------------

type ConfigService struct {
	Name string
	File string // optional override file
	// Overrides are dotted keys set last, e.g. from command-line flags.
	Overrides map[string]any
	Log       *log.Logger
}

func NewConfigService() *ConfigService {
	return &ConfigService{Name: serviceName, Log: log.Default().WithPrefix(serviceName)}
}

// publishConfig publishes each top-level key retained on config/<key>.
func (s *ConfigService) publishConfig(ctx context.Context, conn *bus.Connection) error {
	device, _ := ctx.Value(CtxDeviceKey).(string)
	if device == "" {
		return errors.New("missing device ID in context")
	}
	v, err := Load(device, s.File)
	if err != nil {
		return err
	}
	for k, val := range s.Overrides {
		v.Set(k, val)
	}
	for k, val := range v.AllSettings() {
		conn.Publish(conn.NewMessage(bus.T(configPrefix, k), val, true))
	}
	return nil
}

// Start launches the config publisher in a goroutine.
func (s *ConfigService) Start(ctx context.Context, conn *bus.Connection) {
	go func() {
		if err := s.publishConfig(ctx, conn); err != nil {
			s.Log.Error("publish failed", "err", err)
		}
	}()
}
