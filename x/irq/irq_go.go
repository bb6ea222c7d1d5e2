//go:build !tinygo

package irq

import "sync"

// Hosted Go cannot mask interrupts; every Guard in the process shares one
// mutex instead so port sequences from different goroutines never interleave.
var hostMu sync.Mutex

// Guard serializes hardware sequences across the whole process.
type Guard struct{}

func (*Guard) Lock() { hostMu.Lock() }

func (*Guard) Unlock() { hostMu.Unlock() }
