package util

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/mitchellh/go-homedir"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/dirmirror/pkg/config"
	"github.com/sidkik/dirmirror/pkg/errors"
)

// exit is overridden in tests.
var exit = os.Exit

// HandleFatalError handles errors that are severe enough to terminate the
// program.
func HandleFatalError(err error) {
	log.WithError(err).Debug("Fatal error")
	fmt.Fprintln(os.Stderr, errors.GetPrintableMessage(err))
	exit(1)
}

// HandlePanic logs panics that escape the main goroutine along with their
// stack trace, and exits with a non-zero status. It must be deferred.
func HandlePanic() {
	if r := recover(); r != nil {
		log.WithField("panic", r).
			WithField("stack", string(debug.Stack())).
			Error("Unhandled fault. Exiting.")
		exit(2)
	}
}

// ConfigFlags are the flags that override fields in the config file.
type ConfigFlags struct {
	Path    string
	Root    string
	LogFile string
	PIDFile string
	Debug   bool
}

// Register adds the flags to `cmd`.
func (f *ConfigFlags) Register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.Path, "config", config.DefaultConfigPath,
		"The path to the config file.")
	cmd.Flags().StringVar(&f.Root, "root", "",
		"The local directory to mirror. Overrides watchRoot.")
	cmd.Flags().StringVar(&f.LogFile, "log-file", "",
		"The file to write logs to. Overrides logFile.")
	cmd.Flags().StringVar(&f.PIDFile, "pid-file", "",
		"The file to record the daemon's PID in. Overrides pidFile.")
	cmd.Flags().BoolVar(&f.Debug, "debug", false,
		"Log at debug level.")
}

// Load parses the config file, applies the flag overrides, and validates the
// result.
func (f ConfigFlags) Load() (config.Config, error) {
	cfg, err := config.Parse(f.Path)
	if err != nil {
		return config.Config{}, err
	}

	if f.Root != "" {
		cfg.WatchRoot = f.Root
	}
	if f.LogFile != "" {
		cfg.LogFile = f.LogFile
	}
	if f.PIDFile != "" {
		cfg.PIDFile = f.PIDFile
	}
	if f.Debug {
		cfg.Debug = true
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// Args returns the flags that make a child process load the same config as
// `cfg`. Paths are absolute since the child doesn't share our working
// directory.
func (f ConfigFlags) Args(cfg config.Config) ([]string, error) {
	configPath, err := absPath(f.Path)
	if err != nil {
		return nil, err
	}

	args := []string{"--config", configPath, "--root", cfg.WatchRoot}
	if cfg.LogFile != "" {
		logFile, err := absPath(cfg.LogFile)
		if err != nil {
			return nil, err
		}
		args = append(args, "--log-file", logFile)
	}

	pidFile, err := absPath(cfg.PIDFile)
	if err != nil {
		return nil, err
	}
	args = append(args, "--pid-file", pidFile)

	if cfg.Debug {
		args = append(args, "--debug")
	}
	return args, nil
}

func absPath(path string) (string, error) {
	path, err := homedir.Expand(path)
	if err != nil {
		return "", err
	}
	return filepath.Abs(path)
}

// SetupLogging configures the global logger according to `cfg`. The returned
// closer releases the log file, if any.
func SetupLogging(cfg config.Config) (io.Closer, error) {
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	logPath := cfg.LogPath()
	if logPath == "" {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
		return nopCloser{}, nil
	}

	logFile, err := os.OpenFile(logPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, errors.WithContext(err, "open log file")
	}

	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,

		// Disable colors since we're logging to a file.
		DisableColors: true,
	})
	log.SetOutput(logFile)
	return logFile, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
