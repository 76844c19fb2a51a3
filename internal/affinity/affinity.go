// Package affinity pins the calling goroutine's OS thread to one CPU.
// Pinning is a latency hint only; callers treat failures as warnings.
package affinity

import (
	"fmt"
	"runtime"
)

// Pin locks the calling goroutine to its OS thread and restricts that thread
// to cpu. The goroutine stays locked even when pinning fails.
func Pin(cpu int) error {
	if cpu < 0 {
		return fmt.Errorf("affinity: invalid cpu %d", cpu)
	}
	runtime.LockOSThread()
	return pinPlatform(cpu)
}
