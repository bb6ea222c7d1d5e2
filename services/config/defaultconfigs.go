package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Key: device ID (same value placed in ctx under CtxDeviceKey)
// Val: raw JSON for that device. A config file and RTCCTL_* environment
// variables are layered on top.
// -----------------------------------------------------------------------------

const cfgPC = `{
  "hal": {
    "devices": [
      {"id": "rtc0", "type": "cmos_rtc", "params": {"name": "rtc0", "domain": "time"}}
    ]
  },
  "timekeeper": {
    "interval": 1,
    "rtc": "rtc0"
  },
  "log": {
    "level": "info"
  }
}`

const DefaultDevice = "pc"

var embeddedConfigs = map[string][]byte{
	DefaultDevice: []byte(cfgPC),
}
