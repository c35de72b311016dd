package daemon

import (
	"github.com/sidkik/dirmirror/pkg/errors"
)

// Spawn isn't supported on Windows. Use `start --foreground` with a service
// manager instead.
func Spawn(executable string, args []string, logPath string) (int, error) {
	return 0, errors.NewFriendlyError("Running in the background isn't " +
		"supported on Windows. Use --foreground instead.")
}
