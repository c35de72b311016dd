package start

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/dirmirror/cmd/run"
	"github.com/sidkik/dirmirror/cmd/util"
	"github.com/sidkik/dirmirror/pkg/daemon"
	"github.com/sidkik/dirmirror/pkg/errors"
)

// New creates a new `start` command.
func New() *cobra.Command {
	var flags util.ConfigFlags
	var foreground bool
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start mirroring the watch root to the remote server",
		Long: "Start the mirror daemon in the background. The daemon's PID is\n" +
			"recorded in the PID file so that it can be stopped with `dirmirror stop`.",
		Run: func(_ *cobra.Command, _ []string) {
			if err := start(flags, foreground); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	flags.Register(cmd)
	cmd.Flags().BoolVar(&foreground, "foreground", false,
		"Run in the foreground rather than as a background daemon.")
	return cmd
}

func start(flags util.ConfigFlags, foreground bool) error {
	cfg, err := flags.Load()
	if err != nil {
		return err
	}

	pid, running, err := daemon.Running(cfg.PIDFile)
	if err != nil {
		return errors.WithContext(err, "check daemon")
	}
	if running {
		return errors.NewFriendlyError("The daemon is already running (PID %d).", pid)
	}

	if foreground {
		logFile, err := util.SetupLogging(cfg)
		if err != nil {
			return err
		}
		defer logFile.Close()
		return run.Run(cfg)
	}

	executable, err := os.Executable()
	if err != nil {
		return errors.WithContext(err, "find executable")
	}

	args, err := flags.Args(cfg)
	if err != nil {
		return errors.WithContext(err, "resolve paths")
	}

	pid, err = daemon.Spawn(executable, append([]string{"run"}, args...), cfg.LogPath())
	if err != nil {
		return errors.WithContext(err, "spawn daemon")
	}

	// The daemon writes its own PID file, and removes it if it exits, so
	// writing it here could leave a stale file behind.
	if err := daemon.WaitForPID(cfg.PIDFile, pid); err != nil {
		return err
	}

	log.WithField("pid", pid).Debug("Spawned daemon")
	fmt.Printf("Started dirmirror (PID %d), mirroring %s\n", pid, cfg.WatchRoot)
	return nil
}
