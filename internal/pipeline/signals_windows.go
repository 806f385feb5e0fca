//go:build windows

package pipeline

import (
	"os"
	"syscall"
)

func cancellationSignals() []os.Signal {
	return []os.Signal{os.Interrupt, syscall.SIGTERM}
}
