package common

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// CrashReporter writes a crash-<timestamp>.log when the process panics on its
// main goroutine. Worker goroutines use SafeGo and never reach it.
type CrashReporter struct {
	Dir string
	now func() time.Time
}

// NewCrashReporter targets dir, falling back to the log directory next to the
// executable when dir is empty.
func NewCrashReporter(dir string) *CrashReporter {
	if dir == "" {
		if logsDir, err := logDirectory(); err == nil {
			dir = logsDir
		} else {
			dir = "logs"
		}
	}
	return &CrashReporter{Dir: dir, now: time.Now}
}

// Recover is deferred at the top of main. It records the panic and exits 2.
func (c *CrashReporter) Recover() {
	r := recover()
	if r == nil {
		return
	}
	path, err := c.Write(r, currentStack())
	if err != nil {
		fmt.Fprintf(os.Stderr, "CRASH: %v\npanic: %v\n", err, r)
	} else {
		fmt.Fprintf(os.Stderr, "\n!!! FATAL CRASH - report saved to %s !!!\npanic: %v\n", path, r)
	}
	os.Exit(2)
}

// Write renders the report and returns the file it was saved to.
func (c *CrashReporter) Write(panicVal interface{}, stack string) (string, error) {
	now := c.now()
	if err := os.MkdirAll(c.Dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create crash directory: %w", err)
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	var report bytes.Buffer
	fmt.Fprintf(&report, "=== VALUATOR CRASH REPORT ===\n")
	fmt.Fprintf(&report, "Time: %s\nVersion: %s\n\n", now.Format(time.RFC3339), GetFullVersion())
	fmt.Fprintf(&report, "=== PANIC ===\n%v\n\n", panicVal)
	fmt.Fprintf(&report, "=== STACK ===\n%s\n\n", stack)
	fmt.Fprintf(&report, "=== RUNTIME ===\nGoroutines: %d\nGOOS/GOARCH: %s/%s\nAlloc: %d MB\nNumGC: %d\n\n",
		runtime.NumGoroutine(), runtime.GOOS, runtime.GOARCH, memStats.Alloc/1024/1024, memStats.NumGC)
	fmt.Fprintf(&report, "=== ALL GOROUTINES ===\n%s\n", allStacks())

	path := filepath.Join(c.Dir, fmt.Sprintf("crash-%s.log", now.Format("2006-01-02T15-04-05")))
	if err := os.WriteFile(path, report.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("failed to write crash file: %w", err)
	}
	return path, nil
}

func currentStack() string {
	buf := make([]byte, 8192)
	return string(buf[:runtime.Stack(buf, false)])
}

func allStacks() string {
	buf := make([]byte, 64*1024)
	for {
		n := runtime.Stack(buf, true)
		if n < len(buf) || len(buf) >= 16*1024*1024 {
			return string(buf[:n])
		}
		buf = make([]byte, len(buf)*2)
	}
}
