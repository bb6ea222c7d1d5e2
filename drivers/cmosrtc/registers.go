package cmosrtc

// I/O ports, register indices and status bits of the MC146818-compatible
// CMOS clock.

const (
	// I/O ports.
	AddressPort = 0x70 // register select
	DataPort    = 0x71 // register data

	// --- Time registers ---
	RegSeconds    = 0x00
	RegMinutes    = 0x02
	RegHours      = 0x04
	RegDayOfMonth = 0x07
	RegMonth      = 0x08
	RegYear       = 0x09

	// --- Status registers ---
	RegStatusA = 0x0A // R
	RegStatusB = 0x0B // R/W

	// Bit positions.
	StatusAUpdateInProgress = 7 // 1 while the chip is updating the time registers
	StatusBBinaryMode       = 2 // 0 = BCD, 1 = binary
)
