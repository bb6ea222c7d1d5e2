// Package irq provides a scoped guard that keeps interrupt handlers (and, on
// hosted Go, other goroutines) away from hardware while a multi-step register
// sequence runs.
//
//	var g irq.Guard
//	g.Lock()
//	defer g.Unlock()
//
// Guard implements sync.Locker so drivers can accept any locker for testing.
package irq

import "sync"

var _ sync.Locker = (*Guard)(nil)
