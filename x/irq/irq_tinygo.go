//go:build tinygo

package irq

import "runtime/interrupt"

// Guard disables interrupts on Lock and restores the previous state on
// Unlock. Lock and Unlock must pair on the same goroutine.
type Guard struct {
	state interrupt.State
}

func (g *Guard) Lock() { g.state = interrupt.Disable() }

func (g *Guard) Unlock() { interrupt.Restore(g.state) }
