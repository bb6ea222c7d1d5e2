package portio

import "strconv"

// PortError records a failed port device operation.
type PortError struct {
	Op   string // "open", "read", "write"
	Path string
	Port uint16 // unset for open
	Err  error
}

func (e *PortError) Error() string {
	s := "portio: " + e.Op + " " + e.Path
	if e.Op != "open" {
		s += " port 0x" + strconv.FormatUint(uint64(e.Port), 16)
	}
	return s + ": " + e.Err.Error()
}

func (e *PortError) Unwrap() error { return e.Err }
