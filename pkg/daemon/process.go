package daemon

import (
	"time"

	"github.com/shirou/gopsutil/v3/process"
	log "github.com/sirupsen/logrus"

	"github.com/sidkik/dirmirror/pkg/errors"
)

type processManager interface {
	Exists(pid int) (bool, error)
	Terminate(pid int) error
}

type gopsutilManager struct{}

func (gopsutilManager) Exists(pid int) (bool, error) {
	return process.PidExists(int32(pid))
}

func (gopsutilManager) Terminate(pid int) error {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return err
	}
	return p.Terminate()
}

// procs is overridden in tests.
var procs processManager = gopsutilManager{}

// How long Stop waits for the daemon to exit, and WaitForPID waits for it
// to start.
var (
	stopTimeout      = 10 * time.Second
	startTimeout     = 5 * time.Second
	stopPollInterval = 100 * time.Millisecond
)

// Running returns the PID of the daemon recorded in `pidFile`, and whether
// that process is still alive.
func Running(pidFile string) (int, bool, error) {
	pid, err := ReadPID(pidFile)
	if err != nil {
		if _, ok := err.(errors.FileNotFound); ok {
			return 0, false, nil
		}
		return 0, false, err
	}

	exists, err := procs.Exists(pid)
	if err != nil {
		return pid, false, errors.WithContext(err, "check process")
	}
	return pid, exists, nil
}

// Stop asks the daemon recorded in `pidFile` to shut down, and waits for it
// to exit. The PID file is removed once the daemon is gone.
func Stop(pidFile string) (int, error) {
	pid, running, err := Running(pidFile)
	if err != nil {
		return 0, err
	}

	if pid == 0 {
		return 0, errors.NewFriendlyError("The daemon isn't running: "+
			"no PID file found at %q.", pidFile)
	}

	if !running {
		log.WithField("pid", pid).Warn("Removing stale PID file")
		return pid, RemovePID(pidFile)
	}

	if err := procs.Terminate(pid); err != nil {
		return pid, errors.WithContext(err, "signal daemon")
	}

	deadline := time.Now().Add(stopTimeout)
	for {
		exists, err := procs.Exists(pid)
		if err == nil && !exists {
			break
		}

		if time.Now().After(deadline) {
			return pid, errors.NewFriendlyError("The daemon (PID %d) didn't "+
				"exit within %s.", pid, stopTimeout)
		}
		time.Sleep(stopPollInterval)
	}
	return pid, RemovePID(pidFile)
}

// WaitForPID waits for the daemon with the given PID to record itself in
// `pidFile`. The daemon only writes the file once its config is loaded, and
// removes it if it exits, so a timeout means that it failed to start.
func WaitForPID(pidFile string, pid int) error {
	deadline := time.Now().Add(startTimeout)
	for {
		recorded, err := ReadPID(pidFile)
		if err == nil && recorded == pid {
			return nil
		}

		if time.Now().After(deadline) {
			return errors.NewFriendlyError("The daemon (PID %d) didn't start "+
				"within %s. Check its log for details.", pid, startTimeout)
		}
		time.Sleep(stopPollInterval)
	}
}
