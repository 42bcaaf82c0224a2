package common

import (
	"fmt"
	"os"
	"runtime"

	"github.com/ternarybob/arbor"
)

// SafeGo runs fn in a goroutine, logging instead of crashing if it panics.
// onPanic, when non-nil, receives the recovered value after logging.
func SafeGo(logger arbor.ILogger, name string, fn func(), onPanic ...func(recovered interface{})) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				buf := make([]byte, 4096)
				n := runtime.Stack(buf, false)

				if logger != nil {
					logger.Error().
						Str("goroutine", name).
						Str("panic", fmt.Sprintf("%v", r)).
						Str("stack", string(buf[:n])).
						Msg("Recovered from panic in goroutine")
				} else {
					fmt.Fprintf(os.Stderr, "PANIC in goroutine %s: %v\n%s\n", name, r, buf[:n])
				}

				for _, handler := range onPanic {
					if handler != nil {
						handler(r)
					}
				}
			}
		}()

		fn()
	}()
}
