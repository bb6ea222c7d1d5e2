// Package portio gives hosted programs byte-wide access to x86 I/O ports.
// On Linux it goes through /dev/port, where the file offset is the port
// number. The process needs CAP_SYS_RAWIO (usually root).
package portio

// DefaultPath is the Linux port device.
const DefaultPath = "/dev/port"
