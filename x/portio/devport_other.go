//go:build !linux

package portio

import "cmosrtc-go/errcode"

// DevPort is unavailable off Linux.
type DevPort struct{}

// Open always fails with errcode.Unsupported.
func Open(path string) (*DevPort, error) {
	if path == "" {
		path = DefaultPath
	}
	return nil, &PortError{Op: "open", Path: path, Err: errcode.Unsupported}
}

func (*DevPort) ReadPort(port uint16) (uint8, error) { return 0, errcode.Unsupported }

func (*DevPort) WritePort(port uint16, v uint8) error { return errcode.Unsupported }

func (*DevPort) Close() error { return nil }
