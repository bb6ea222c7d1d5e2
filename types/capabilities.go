package types

// ------------------------
// Capability addressing & kinds
// ------------------------

type Kind string

const (
	KindRTC Kind = "rtc"
)
