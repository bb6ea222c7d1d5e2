package cmosrtc

import "cmosrtc-go/drivers/rtc"

// FromBCD converts one packed BCD byte (tens in the high nibble, units in the
// low nibble) to binary. Nibbles above 9 are not rejected; they run through
// the same arithmetic and yield an out-of-range value.
func FromBCD(v uint8) uint8 {
	return (v>>4)*10 + (v & 0x0F)
}

// ToBCD packs a binary value 0..99 as BCD.
func ToBCD(v uint8) uint8 {
	return (v/10)<<4 | v%10
}

// Normalize converts every field of a raw BCD reading to binary in place.
func Normalize(tp *rtc.TimePoint) {
	tp.Seconds = FromBCD(tp.Seconds)
	tp.Minutes = FromBCD(tp.Minutes)
	tp.Hours = FromBCD(tp.Hours)
	tp.DayOfMonth = FromBCD(tp.DayOfMonth)
	tp.Month = FromBCD(tp.Month)
	tp.Year = FromBCD(tp.Year)
}
