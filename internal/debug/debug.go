// Package debug writes diagnostics to stderr when WBSTRACK_DEBUG=1 or --debug
// is set.
package debug

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

var (
	mu      sync.Mutex
	enabled = os.Getenv("WBSTRACK_DEBUG") == "1"
	out     io.Writer = os.Stderr
)

// Logf writes one timestamped line when debugging is on.
func Logf(format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	if !enabled {
		return
	}
	fmt.Fprintf(out, "[DEBUG %s] %s\n", time.Now().Format("15:04:05.000"), fmt.Sprintf(format, args...))
}

// Enabled reports whether debugging is on.
func Enabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

// SetEnabled overrides WBSTRACK_DEBUG.
func SetEnabled(on bool) {
	mu.Lock()
	enabled = on
	mu.Unlock()
}

// SetOutput redirects diagnostics and returns a func restoring the previous
// writer.
func SetOutput(w io.Writer) (restore func()) {
	mu.Lock()
	prev := out
	out = w
	mu.Unlock()
	return func() {
		mu.Lock()
		out = prev
		mu.Unlock()
	}
}
