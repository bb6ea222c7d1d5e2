package cmossim

import (
	"sync"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"cmosrtc-go/drivers/cmosrtc"
	"cmosrtc-go/drivers/rtc"
)

func fixedNow() time.Time { return time.Date(2031, time.July, 4, 18, 7, 59, 0, time.UTC) }

func TestClockModeBCD(t *testing.T) {
	c := qt.New(t)
	chip := &Chip{Now: fixedNow}
	d := cmosrtc.New(chip, cmosrtc.Config{Lock: &sync.Mutex{}})

	bcd, err := d.IsBCD()
	c.Assert(err, qt.IsNil)
	c.Assert(bcd, qt.IsTrue)

	v, err := d.ReadRegister(cmosrtc.RegSeconds)
	c.Assert(err, qt.IsNil)
	c.Assert(v, qt.Equals, uint8(0x59))

	var tp rtc.TimePoint
	c.Assert(d.ReadTimePoint(&tp), qt.IsNil)
	c.Assert(tp, qt.Equals, rtc.TimePoint{Seconds: 59, Minutes: 7, Hours: 18, DayOfMonth: 4, Month: 7, Year: 31})
}

func TestClockModeBinary(t *testing.T) {
	c := qt.New(t)
	chip := &Chip{Now: fixedNow, Binary: true}
	d := cmosrtc.New(chip, cmosrtc.Config{Lock: &sync.Mutex{}})

	v, err := d.ReadRegister(cmosrtc.RegSeconds)
	c.Assert(err, qt.IsNil)
	c.Assert(v, qt.Equals, uint8(59))

	var tp rtc.TimePoint
	c.Assert(d.ReadTimePoint(&tp), qt.IsNil)
	c.Assert(tp, qt.Equals, rtc.TimePoint{Seconds: 59, Minutes: 7, Hours: 18, DayOfMonth: 4, Month: 7, Year: 31})
	c.Assert(d.LastReadBCD(), qt.IsFalse)
}

func TestScriptAdvancesOnSecondsRead(t *testing.T) {
	c := qt.New(t)
	a := rtc.TimePoint{Seconds: 1, Minutes: 2}
	b := rtc.TimePoint{Seconds: 3, Minutes: 4}
	chip := NewScripted([]uint8{0x80, 0x00}, []rtc.TimePoint{a, b}, false)

	read := func(reg uint8) uint8 {
		c.Assert(chip.WritePort(cmosrtc.AddressPort, reg), qt.IsNil)
		v, err := chip.ReadPort(cmosrtc.DataPort)
		c.Assert(err, qt.IsNil)
		return v
	}

	c.Assert(read(cmosrtc.RegStatusA), qt.Equals, uint8(0x80))
	c.Assert(read(cmosrtc.RegStatusA), qt.Equals, uint8(0x00))
	c.Assert(read(cmosrtc.RegStatusA), qt.Equals, uint8(0x00))

	c.Assert(read(cmosrtc.RegSeconds), qt.Equals, uint8(1))
	c.Assert(read(cmosrtc.RegMinutes), qt.Equals, uint8(2))
	c.Assert(read(cmosrtc.RegMinutes), qt.Equals, uint8(2))
	c.Assert(read(cmosrtc.RegSeconds), qt.Equals, uint8(3))
	c.Assert(read(cmosrtc.RegSeconds), qt.Equals, uint8(3))
	c.Assert(read(cmosrtc.RegMinutes), qt.Equals, uint8(4))

	c.Assert(chip.Reads(cmosrtc.RegSeconds), qt.Equals, 3)
}

func TestAddressPortMasksNMIBit(t *testing.T) {
	c := qt.New(t)
	chip := &Chip{}
	chip.Regs[cmosrtc.RegStatusB] = 0x06
	c.Assert(chip.WritePort(cmosrtc.AddressPort, 0x80|cmosrtc.RegStatusB), qt.IsNil)
	v, err := chip.ReadPort(cmosrtc.DataPort)
	c.Assert(err, qt.IsNil)
	c.Assert(v, qt.Equals, uint8(0x06))
}

func TestDataPortWrite(t *testing.T) {
	c := qt.New(t)
	chip := &Chip{}
	c.Assert(chip.WritePort(cmosrtc.AddressPort, 0x40), qt.IsNil)
	c.Assert(chip.WritePort(cmosrtc.DataPort, 0xAB), qt.IsNil)
	c.Assert(chip.Regs[0x40], qt.Equals, uint8(0xAB))
	c.Assert(chip.Writes(), qt.Equals, 1)
}
