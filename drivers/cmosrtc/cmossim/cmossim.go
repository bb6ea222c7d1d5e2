// Package cmossim emulates the index/data port pair of a CMOS real-time clock.
// It serves tests and hosts without port access.
//
// Three sources feed the time registers, in priority order:
//
//   - Snapshots: a scripted list of raw readings; each read of the seconds
//     register advances to the next entry, the last entry sticks.
//   - Now: a wall clock, encoded as BCD unless Binary is set.
//   - Regs: the raw register file.
//
// StatusA, when non-empty, scripts the values returned for status register A
// the same way.
package cmossim

import (
	"sync"
	"time"

	"cmosrtc-go/drivers/cmosrtc"
	"cmosrtc-go/drivers/rtc"
)

const regCount = 128

// Chip is a simulated CMOS clock. The zero value reads all zeros, i.e. a BCD
// clock at 00-00-00 00:00:00 with no update in progress.
type Chip struct {
	mu sync.Mutex

	Regs      [regCount]uint8
	StatusA   []uint8
	Snapshots []rtc.TimePoint
	Now       func() time.Time
	Binary    bool // clock mode only: encode Now in binary and set status B bit 2

	// Fail, when set, is returned by every port access.
	Fail error

	index  uint8
	reads  [regCount]int
	writes int
}

var _ cmosrtc.Ports = (*Chip)(nil)

// NewClock returns a chip that reports time.Now.
func NewClock(binary bool) *Chip {
	return &Chip{Now: time.Now, Binary: binary}
}

// NewScripted returns a chip that replays the given status-A values and raw
// snapshots. binary sets status B bit 2.
func NewScripted(statusA []uint8, snaps []rtc.TimePoint, binary bool) *Chip {
	c := &Chip{StatusA: statusA, Snapshots: snaps}
	if binary {
		c.Regs[cmosrtc.RegStatusB] |= 1 << cmosrtc.StatusBBinaryMode
	}
	return c
}

// WritePort implements cmosrtc.Ports.
func (c *Chip) WritePort(port uint16, v uint8) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Fail != nil {
		return c.Fail
	}
	switch port {
	case cmosrtc.AddressPort:
		// Bit 7 is the NMI mask on real hardware.
		c.index = v & 0x7F
	case cmosrtc.DataPort:
		c.Regs[c.index] = v
		c.writes++
	}
	return nil
}

// ReadPort implements cmosrtc.Ports.
func (c *Chip) ReadPort(port uint16) (uint8, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Fail != nil {
		return 0, c.Fail
	}
	switch port {
	case cmosrtc.AddressPort:
		return c.index, nil
	case cmosrtc.DataPort:
		c.reads[c.index]++
		return c.register(c.index), nil
	}
	return 0xFF, nil
}

func (c *Chip) register(idx uint8) uint8 {
	switch idx {
	case cmosrtc.RegStatusA:
		if len(c.StatusA) > 0 {
			v := c.StatusA[0]
			if len(c.StatusA) > 1 {
				c.StatusA = c.StatusA[1:]
			}
			return v
		}
	case cmosrtc.RegStatusB:
		if c.Now != nil && c.Binary {
			return c.Regs[idx] | 1<<cmosrtc.StatusBBinaryMode
		}
	case cmosrtc.RegSeconds, cmosrtc.RegMinutes, cmosrtc.RegHours,
		cmosrtc.RegDayOfMonth, cmosrtc.RegMonth, cmosrtc.RegYear:
		if len(c.Snapshots) > 0 {
			if idx == cmosrtc.RegSeconds {
				c.loadSnapshot()
			}
			break
		}
		if c.Now != nil {
			return c.clockField(idx, c.Now())
		}
	}
	return c.Regs[idx]
}

// loadSnapshot copies the head of the script into the register file.
func (c *Chip) loadSnapshot() {
	tp := c.Snapshots[0]
	if len(c.Snapshots) > 1 {
		c.Snapshots = c.Snapshots[1:]
	}
	c.Regs[cmosrtc.RegSeconds] = tp.Seconds
	c.Regs[cmosrtc.RegMinutes] = tp.Minutes
	c.Regs[cmosrtc.RegHours] = tp.Hours
	c.Regs[cmosrtc.RegDayOfMonth] = tp.DayOfMonth
	c.Regs[cmosrtc.RegMonth] = tp.Month
	c.Regs[cmosrtc.RegYear] = tp.Year
}

func (c *Chip) clockField(idx uint8, t time.Time) uint8 {
	var v int
	switch idx {
	case cmosrtc.RegSeconds:
		v = t.Second()
	case cmosrtc.RegMinutes:
		v = t.Minute()
	case cmosrtc.RegHours:
		v = t.Hour()
	case cmosrtc.RegDayOfMonth:
		v = t.Day()
	case cmosrtc.RegMonth:
		v = int(t.Month())
	case cmosrtc.RegYear:
		v = t.Year() % 100
	}
	if c.Binary {
		return uint8(v)
	}
	return cmosrtc.ToBCD(uint8(v))
}

// SetStatusA replaces the status-A script. Safe while a reader is spinning.
func (c *Chip) SetStatusA(vals ...uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.StatusA = vals
}

// Reads returns how many times register idx was read through the data port.
func (c *Chip) Reads(idx uint8) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads[idx&0x7F]
}

// Writes returns the number of data-port writes.
func (c *Chip) Writes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes
}
