//go:build linux

package portio

import (
	"golang.org/x/sys/unix"
)

// DevPort reads and writes I/O ports through /dev/port.
type DevPort struct {
	fd   int
	path string
}

// Open opens the port device at path (DefaultPath if empty).
func Open(path string) (*DevPort, error) {
	if path == "" {
		path = DefaultPath
	}
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, &PortError{Op: "open", Path: path, Err: err}
	}
	return &DevPort{fd: fd, path: path}, nil
}

// ReadPort reads one byte from port.
func (p *DevPort) ReadPort(port uint16) (uint8, error) {
	var b [1]byte
	n, err := unix.Pread(p.fd, b[:], int64(port))
	if err != nil {
		return 0, &PortError{Op: "read", Path: p.path, Port: port, Err: err}
	}
	if n != 1 {
		return 0, &PortError{Op: "read", Path: p.path, Port: port, Err: unix.EIO}
	}
	return b[0], nil
}

// WritePort writes one byte to port.
func (p *DevPort) WritePort(port uint16, v uint8) error {
	b := [1]byte{v}
	n, err := unix.Pwrite(p.fd, b[:], int64(port))
	if err != nil {
		return &PortError{Op: "write", Path: p.path, Port: port, Err: err}
	}
	if n != 1 {
		return &PortError{Op: "write", Path: p.path, Port: port, Err: unix.EIO}
	}
	return nil
}

// Close releases the device.
func (p *DevPort) Close() error {
	if p.fd < 0 {
		return nil
	}
	err := unix.Close(p.fd)
	p.fd = -1
	return err
}
