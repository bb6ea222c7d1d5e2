package provider

import (
	"sync"

	"cmosrtc-go/errcode"
	"cmosrtc-go/services/hal/internal/core"
)

var _ core.ResourceRegistry = (*PortRegistry)(nil)

// PortRegistry hands out exclusive ranges of one port backend.
type PortRegistry struct {
	mu    sync.Mutex
	io    core.PortIO
	owner map[uint16]string // port -> devID
}

// NewPortRegistry wraps io. A nil io makes every claim fail with Unsupported.
func NewPortRegistry(io core.PortIO) *PortRegistry {
	return &PortRegistry{io: io, owner: map[uint16]string{}}
}

func (r *PortRegistry) ClaimPorts(devID string, first uint16, n int) (core.PortIO, error) {
	if r.io == nil {
		return nil, errcode.Unsupported
	}
	if n <= 0 || int(first)+n > 0x10000 {
		return nil, errcode.InvalidParams
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := 0; i < n; i++ {
		if o, ok := r.owner[first+uint16(i)]; ok && o != devID {
			return nil, errcode.PortsInUse
		}
	}
	for i := 0; i < n; i++ {
		r.owner[first+uint16(i)] = devID
	}
	return &claimedPorts{io: r.io, first: first, n: n}, nil
}

func (r *PortRegistry) ReleasePorts(devID string, first uint16, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := 0; i < n; i++ {
		p := first + uint16(i)
		if r.owner[p] == devID {
			delete(r.owner, p)
		}
	}
}

// Owner reports which device holds port p.
func (r *PortRegistry) Owner(p uint16) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.owner[p]
	return o, ok
}

// claimedPorts restricts a backend to one claimed range.
type claimedPorts struct {
	io    core.PortIO
	first uint16
	n     int
}

func (c *claimedPorts) in(port uint16) bool {
	return port >= c.first && int(port-c.first) < c.n
}

func (c *claimedPorts) ReadPort(port uint16) (uint8, error) {
	if !c.in(port) {
		return 0, errcode.Unsupported
	}
	return c.io.ReadPort(port)
}

func (c *claimedPorts) WritePort(port uint16, v uint8) error {
	if !c.in(port) {
		return errcode.Unsupported
	}
	return c.io.WritePort(port, v)
}
