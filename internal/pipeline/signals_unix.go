//go:build !windows

package pipeline

import (
	"os"
	"syscall"
)

// cancellationSignals includes SIGTSTP so a suspended process does not
// park with audio routing still mutated; suspend cancels like a
// termination would.
func cancellationSignals() []os.Signal {
	return []os.Signal{syscall.SIGINT, syscall.SIGTERM, syscall.SIGTSTP}
}
