// Package cmosrtc provides a driver for the PC CMOS real-time clock reached
// through I/O ports 0x70 (register select) and 0x71 (data). It reads the
// current date and time only; setting the clock, alarms, periodic interrupts
// and century handling remain unimplemented.
//
// A read spins until the update-in-progress flag clears, takes a snapshot
// of the six time registers, and repeats until two consecutive snapshots
// agree. The result is converted from BCD when status register B says so.
//
// The spin has no timeout: the chip clears the flag within about 2 ms of
// setting it once per second.
package cmosrtc

import (
	"sync"
	"sync/atomic"

	"cmosrtc-go/drivers/rtc"
	"cmosrtc-go/x/irq"

	"tinygo.org/x/drivers"
)

// Ports performs single-byte port I/O. Bare-metal implementations never fail;
// hosted ones (e.g. /dev/port) may.
type Ports interface {
	ReadPort(port uint16) (uint8, error)
	WritePort(port uint16, v uint8) error
}

// Class is the device class of this driver, a child of rtc.ClassRTC.
var Class = &rtc.Class{Name: "cmos-rtc", Parent: rtc.ClassRTC}

// Config controls non-hardware behaviour. All fields are optional.
type Config struct {
	// Lock is held for each snapshot attempt and for each mode-bit read.
	// Defaults to an irq.Guard.
	Lock sync.Locker
}

// Stats counts register activity since the device was created.
type Stats struct {
	Snapshots uint32 // complete six-field snapshots taken
	Retries   uint32 // snapshots rejected by the consistency check
	Polls     uint32 // reads of the update-in-progress flag
}

// Device is a CMOS RTC behind a pair of I/O ports.
type Device struct {
	ports Ports
	lock  sync.Locker

	last atomic.Pointer[rtc.TimePoint] // reading cached by Update
	bcd  atomic.Bool                   // mode seen by the last successful read

	snapshots atomic.Uint32
	retries   atomic.Uint32
	polls     atomic.Uint32
}

var (
	_ rtc.Clock      = (*Device)(nil)
	_ drivers.Sensor = (*Device)(nil)
)

// New creates a Device on the given ports. It does not touch the hardware.
func New(ports Ports, cfg Config) *Device {
	d := &Device{ports: ports, lock: cfg.Lock}
	if d.lock == nil {
		d.lock = &irq.Guard{}
	}
	return d
}

// DeviceClass returns Class.
func (d *Device) DeviceClass() *rtc.Class { return Class }

// ReadRegister selects reg and returns its value. The caller must hold the
// lock when the read is part of a larger sequence.
func (d *Device) ReadRegister(reg uint8) (uint8, error) {
	if err := d.ports.WritePort(AddressPort, reg); err != nil {
		return 0, err
	}
	return d.ports.ReadPort(DataPort)
}

// RegisterBit returns bit (0 = least significant) of reg as 0 or 1.
func (d *Device) RegisterBit(reg, bit uint8) (uint8, error) {
	v, err := d.ReadRegister(reg)
	if err != nil {
		return 0, err
	}
	return (v >> bit) & 1, nil
}

// waitForUpdate spins until the update-in-progress flag reads 0.
// Must be called with the lock held.
func (d *Device) waitForUpdate() error {
	for {
		uip, err := d.RegisterBit(RegStatusA, StatusAUpdateInProgress)
		if err != nil {
			return err
		}
		d.polls.Add(1)
		if uip == 0 {
			return nil
		}
	}
}

// snapshot waits out any update in progress and reads the six raw time
// registers, all within one lock acquisition.
func (d *Device) snapshot(tp *rtc.TimePoint) error {
	d.lock.Lock()
	defer d.lock.Unlock()

	if err := d.waitForUpdate(); err != nil {
		return err
	}
	fields := [...]struct {
		reg uint8
		dst *uint8
	}{
		{RegSeconds, &tp.Seconds},
		{RegMinutes, &tp.Minutes},
		{RegHours, &tp.Hours},
		{RegDayOfMonth, &tp.DayOfMonth},
		{RegMonth, &tp.Month},
		{RegYear, &tp.Year},
	}
	for _, f := range fields {
		v, err := d.ReadRegister(f.reg)
		if err != nil {
			return err
		}
		*f.dst = v
	}
	d.snapshots.Add(1)
	return nil
}

// consistentSnapshot takes snapshots until two in a row match in every field.
func (d *Device) consistentSnapshot(tp *rtc.TimePoint) error {
	var cur rtc.TimePoint
	if err := d.snapshot(&cur); err != nil {
		return err
	}
	for {
		prev := cur
		if err := d.snapshot(&cur); err != nil {
			return err
		}
		if cur == prev {
			break
		}
		d.retries.Add(1)
	}
	*tp = cur
	return nil
}

// IsBCD reports whether the chip returns BCD digits (status B bit 2 clear).
func (d *Device) IsBCD() (bool, error) {
	d.lock.Lock()
	defer d.lock.Unlock()

	bin, err := d.RegisterBit(RegStatusB, StatusBBinaryMode)
	if err != nil {
		return false, err
	}
	return bin == 0, nil
}

// ReadTimePoint fills tp with the current date and time in binary. Errors
// come only from the port backend; the chip itself cannot fail a read.
func (d *Device) ReadTimePoint(tp *rtc.TimePoint) error {
	var raw rtc.TimePoint
	if err := d.consistentSnapshot(&raw); err != nil {
		return err
	}
	bcd, err := d.IsBCD()
	if err != nil {
		return err
	}
	if bcd {
		Normalize(&raw)
	}
	d.bcd.Store(bcd)
	*tp = raw
	return nil
}

// Update implements drivers.Sensor. Only drivers.Time triggers a read.
func (d *Device) Update(which drivers.Measurement) error {
	if which&drivers.Time == 0 {
		return nil
	}
	var tp rtc.TimePoint
	if err := d.ReadTimePoint(&tp); err != nil {
		return err
	}
	d.last.Store(&tp)
	return nil
}

// TimePoint returns the reading cached by the last successful Update, or the
// zero value before the first one.
func (d *Device) TimePoint() rtc.TimePoint {
	if tp := d.last.Load(); tp != nil {
		return *tp
	}
	return rtc.TimePoint{}
}

// LastReadBCD reports whether the chip was in BCD mode at the last read.
func (d *Device) LastReadBCD() bool { return d.bcd.Load() }

// Stats returns the register activity counters.
func (d *Device) Stats() Stats {
	return Stats{
		Snapshots: d.snapshots.Load(),
		Retries:   d.retries.Load(),
		Polls:     d.polls.Load(),
	}
}
