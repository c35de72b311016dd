//go:build !windows

package daemon

import (
	"os"
	"os/exec"
	"syscall"

	"github.com/sidkik/dirmirror/pkg/errors"
)

// Spawn starts `executable` with `args` in a new session, detached from the
// terminal. The child's output is appended to `logPath`, or discarded if it's
// empty. It returns the child's PID without waiting for it.
func Spawn(executable string, args []string, logPath string) (int, error) {
	outPath := logPath
	if outPath == "" {
		outPath = os.DevNull
	}

	out, err := os.OpenFile(outPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return 0, errors.WithContext(err, "open daemon output")
	}
	defer out.Close()

	cmd := exec.Command(executable, args...)
	cmd.Dir = "/"
	cmd.Stdout = out
	cmd.Stderr = out
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true,
	}

	if err := cmd.Start(); err != nil {
		return 0, errors.WithContext(err, "start daemon")
	}

	pid := cmd.Process.Pid
	if err := cmd.Process.Release(); err != nil {
		return pid, errors.WithContext(err, "release daemon")
	}
	return pid, nil
}
