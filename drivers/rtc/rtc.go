// Package rtc holds the pieces shared by every real-time clock driver: the
// normalized TimePoint, the Clock contract and the device class hierarchy
// used to discover clocks by category.
package rtc

import "strconv"

// TimePoint is one reading of a real-time clock. All fields are binary
// (never BCD) once a driver hands the value out. Year has no century.
type TimePoint struct {
	Seconds    uint8
	Minutes    uint8
	Hours      uint8
	DayOfMonth uint8
	Month      uint8
	Year       uint8
}

// String renders the reading as YY-MM-DD hh:mm:ss.
func (tp TimePoint) String() string {
	b := make([]byte, 0, 17)
	b = appendTwo(b, tp.Year)
	b = append(b, '-')
	b = appendTwo(b, tp.Month)
	b = append(b, '-')
	b = appendTwo(b, tp.DayOfMonth)
	b = append(b, ' ')
	b = appendTwo(b, tp.Hours)
	b = append(b, ':')
	b = appendTwo(b, tp.Minutes)
	b = append(b, ':')
	b = appendTwo(b, tp.Seconds)
	return string(b)
}

// appendTwo zero-pads to two digits; wider values are printed in full.
func appendTwo(b []byte, v uint8) []byte {
	if v < 10 {
		b = append(b, '0')
	}
	return strconv.AppendUint(b, uint64(v), 10)
}

// Class names a device category. Classes form a tree through Parent.
type Class struct {
	Name   string
	Parent *Class
}

// ClassRTC is the generic real-time clock category.
var ClassRTC = &Class{Name: "rtc"}

// Is reports whether c is other or descends from it.
func (c *Class) Is(other *Class) bool {
	for k := c; k != nil; k = k.Parent {
		if k == other {
			return true
		}
	}
	return false
}

// Path returns the class names from the root down, e.g. "rtc/cmos-rtc".
func (c *Class) Path() string {
	if c == nil {
		return ""
	}
	if c.Parent == nil {
		return c.Name
	}
	return c.Parent.Path() + "/" + c.Name
}

// Clock is implemented by every real-time clock driver.
type Clock interface {
	DeviceClass() *Class
	// ReadTimePoint fills tp with the current date and time.
	ReadTimePoint(tp *TimePoint) error
}
