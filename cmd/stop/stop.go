package stop

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sidkik/dirmirror/cmd/util"
	"github.com/sidkik/dirmirror/pkg/config"
	"github.com/sidkik/dirmirror/pkg/daemon"
	"github.com/sidkik/dirmirror/pkg/errors"
)

// New creates a new `stop` command.
func New() *cobra.Command {
	var configPath, pidFile string
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the mirror daemon",
		Run: func(_ *cobra.Command, _ []string) {
			if err := stop(configPath, pidFile); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().StringVar(&configPath, "config", config.DefaultConfigPath,
		"The path to the config file.")
	cmd.Flags().StringVar(&pidFile, "pid-file", "",
		"The daemon's PID file. Overrides pidFile.")
	return cmd
}

func stop(configPath, pidFile string) error {
	if pidFile == "" {
		pidFile = config.DefaultPIDFile

		// The daemon may have been started with a different PID file, but
		// the rest of the config doesn't need to be valid to stop it.
		if cfg, err := config.Parse(configPath); err == nil && cfg.PIDFile != "" {
			pidFile = cfg.PIDFile
		}
	}

	pid, err := daemon.Stop(pidFile)
	if err != nil {
		return errors.WithContext(err, "stop daemon")
	}

	fmt.Printf("Stopped dirmirror (PID %d)\n", pid)
	return nil
}
