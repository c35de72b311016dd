package run

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/sidkik/dirmirror/cmd/util"
	"github.com/sidkik/dirmirror/pkg/config"
	"github.com/sidkik/dirmirror/pkg/daemon"
	"github.com/sidkik/dirmirror/pkg/errors"
	"github.com/sidkik/dirmirror/pkg/filter"
	"github.com/sidkik/dirmirror/pkg/fswatch"
	"github.com/sidkik/dirmirror/pkg/metrics"
	"github.com/sidkik/dirmirror/pkg/remote"
	"github.com/sidkik/dirmirror/pkg/remote/ftp"
	"github.com/sidkik/dirmirror/pkg/remote/sftp"
	mirror "github.com/sidkik/dirmirror/pkg/sync"
)

// New creates a new `run` command. It's what `start` executes in the
// background, so it's hidden from the help output.
func New() *cobra.Command {
	var flags util.ConfigFlags
	cmd := &cobra.Command{
		Use:    "run",
		Short:  "Mirror the watch root in the foreground",
		Hidden: true,
		Run: func(_ *cobra.Command, _ []string) {
			cfg, err := flags.Load()
			if err != nil {
				util.HandleFatalError(err)
			}

			logFile, err := util.SetupLogging(cfg)
			if err != nil {
				util.HandleFatalError(err)
			}
			defer logFile.Close()

			if err := Run(cfg); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	flags.Register(cmd)
	return cmd
}

// Run mirrors `cfg.WatchRoot` until the process receives SIGINT or SIGTERM.
// Logging must already be set up.
func Run(cfg config.Config) error {
	if err := daemon.WritePID(cfg.PIDFile, os.Getpid()); err != nil {
		return errors.WithContext(err, "write pid file")
	}
	defer func() {
		if err := daemon.RemovePID(cfg.PIDFile); err != nil {
			log.WithError(err).Warn("Failed to remove PID file")
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fs := afero.NewOsFs()
	policy, err := filter.NewPolicy(cfg.Filter.Types, cfg.Filter.Extensions,
		filter.NewMimeResolver(fs))
	if err != nil {
		return errors.WithContext(err, "create filter")
	}

	source, err := fswatch.NewSource()
	if err != nil {
		return errors.WithContext(err, "create watch source")
	}
	defer source.Close()

	client := remote.NewResilient(ctx, fs, newDialer(cfg.Remote), log.StandardLogger())
	defer func() {
		if err := client.Close(); err != nil {
			log.WithError(err).Debug("Failed to close remote session")
		}
	}()

	// The first change will retry the connection, so an unreachable server
	// isn't fatal.
	if err := client.Connect(); err != nil {
		log.WithError(err).
			WithField("host", cfg.Remote.Host).
			Warn("Failed to connect to remote server")
	}

	go func() {
		if err := metrics.Serve(ctx, cfg.MetricsAddress); err != nil {
			log.WithError(err).Error("Metrics server failed")
		}
	}()

	engine := mirror.New(mirror.Config{
		Root:       cfg.WatchRoot,
		MoveWindow: cfg.MoveWindowDuration(),
		Policy:     policy,
		Client:     client,
		Source:     source,
		Fs:         fs,
		Log:        log.StandardLogger(),
	})
	if err := engine.Run(ctx); err != nil {
		return errors.WithContext(err, "mirror")
	}

	log.Info("Shutting down")
	return nil
}

func newDialer(cfg config.Remote) remote.Dialer {
	if cfg.Protocol == config.SFTP {
		return sftp.NewDialer(sftp.Config{
			Host:         cfg.Host,
			Port:         cfg.Port,
			User:         cfg.User,
			Password:     cfg.Password,
			IdentityFile: cfg.IdentityFile,
			KnownHosts:   cfg.KnownHosts,
			Dir:          cfg.Dir,
			Timeout:      cfg.TimeoutDuration(),
		})
	}

	return ftp.NewDialer(ftp.Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		User:     cfg.User,
		Password: cfg.Password,
		Dir:      cfg.Dir,
		Timeout:  cfg.TimeoutDuration(),
	})
}
