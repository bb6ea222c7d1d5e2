package types

// RTCInfo is the retained detail for an rtc capability.
type RTCInfo struct {
	Chip  string   `json:"chip"`  // e.g. "cmos"
	Class string   `json:"class"` // device class path, e.g. "rtc/cmos-rtc"
	Ports []uint16 `json:"ports,omitempty"`
}

// RTCValue is one normalized clock reading. Year has no century.
type RTCValue struct {
	Seconds    uint8  `json:"seconds"`
	Minutes    uint8  `json:"minutes"`
	Hours      uint8  `json:"hours"`
	DayOfMonth uint8  `json:"day_of_month"`
	Month      uint8  `json:"month"`
	Year       uint8  `json:"year"`
	BCD        bool   `json:"bcd"`     // chip was in BCD mode
	Retries    uint32 `json:"retries"` // snapshots rejected while taking this reading
}

// RTCStats mirrors the driver's register activity counters.
type RTCStats struct {
	Snapshots uint32 `json:"snapshots"`
	Retries   uint32 `json:"retries"`
	Polls     uint32 `json:"polls"`
}
