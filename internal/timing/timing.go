// Package timing reports where a wbstrack invocation spends its startup time:
// config loading, telemetry setup, opening the database and applying its
// migrations. Output goes to stderr when WBSTRACK_DEBUG_TIMING=1.
package timing

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

var (
	mu        sync.Mutex
	enabled   = os.Getenv("WBSTRACK_DEBUG_TIMING") == "1"
	out       io.Writer = os.Stderr
	startTime = time.Now()
	lastTime  = startTime
)

// Log prints a checkpoint with the time since the previous checkpoint and
// since process start.
func Log(label string) {
	mu.Lock()
	defer mu.Unlock()
	if !enabled {
		return
	}
	now := time.Now()
	fmt.Fprintf(out, "[TIMING] %s: +%dms (total: %dms)\n", label, now.Sub(lastTime).Milliseconds(), now.Sub(startTime).Milliseconds())
	lastTime = now
}

// Phase times one startup phase. Call the returned func when it ends:
//
//	defer timing.Phase("sqlite migrations")()
func Phase(label string) func() {
	begin := time.Now()
	return func() {
		mu.Lock()
		defer mu.Unlock()
		if !enabled {
			return
		}
		fmt.Fprintf(out, "[TIMING] %s took %dms\n", label, time.Since(begin).Milliseconds())
	}
}
