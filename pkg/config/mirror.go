package config

import (
	"path/filepath"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"

	"github.com/sidkik/dirmirror/pkg/errors"
	"github.com/sidkik/dirmirror/pkg/filter"
)

const (
	// DefaultConfigPath is the default path to the config file.
	DefaultConfigPath = "~/.dirmirror.yaml"

	// SupportedVersion is the config version understood by this binary.
	// Config files that don't specify a version default to it.
	SupportedVersion = "v1alpha1"

	// DefaultPIDFile is where the daemon records its process ID.
	DefaultPIDFile = "/var/run/dirmirror.pid"

	// DefaultKnownHosts is used to verify SFTP servers.
	DefaultKnownHosts = "~/.ssh/known_hosts"

	defaultMoveWindow = 2 * time.Second
	defaultTimeout    = 30 * time.Second
)

// Protocols supported by the remote store.
const (
	FTP  = "ftp"
	SFTP = "sftp"
)

// Config is the configuration for the mirror daemon.
type Config struct {
	Version string `json:"version,omitempty"`

	// WatchRoot is the local directory that's mirrored.
	WatchRoot string `json:"watchRoot"`

	Remote Remote `json:"remote"`
	Filter Filter `json:"filter,omitempty"`

	// MoveWindow is how long to wait for the second half of a move, as a
	// duration string.
	MoveWindow string `json:"moveWindow,omitempty"`

	Debug bool `json:"debug,omitempty"`

	// LogFile is where logs are written. Logs go to stderr if it's empty.
	LogFile string `json:"logFile,omitempty"`

	PIDFile string `json:"pidFile,omitempty"`

	// MetricsAddress is the address to serve Prometheus metrics on. Metrics
	// are disabled if it's empty.
	MetricsAddress string `json:"metricsAddress,omitempty"`

	moveWindow time.Duration
}

// Remote contains the connection settings for the remote store.
type Remote struct {
	Protocol     string `json:"protocol,omitempty"`
	Host         string `json:"host"`
	Port         int    `json:"port,omitempty"`
	User         string `json:"user"`
	Password     string `json:"password,omitempty"`
	IdentityFile string `json:"identityFile,omitempty"`
	KnownHosts   string `json:"knownHosts,omitempty"`

	// Dir is the remote directory that mirrors WatchRoot.
	Dir string `json:"dir,omitempty"`

	Timeout string `json:"timeout,omitempty"`

	timeout time.Duration
}

// Filter restricts which files are mirrored. Both fields are comma separated
// lists.
type Filter struct {
	Types      string `json:"types,omitempty"`
	Extensions string `json:"extensions,omitempty"`
}

func (c Config) getVersion() string {
	return c.Version
}

// homedirExpand will be overridden in mock tests
var homedirExpand = homedir.Expand

// Parse reads the config file at `path`. The result must be validated before
// it's used.
func Parse(path string) (Config, error) {
	path, err := homedirExpand(path)
	if err != nil {
		return Config{}, errors.WithContext(err, "expand config path")
	}

	config := Config{Version: SupportedVersion}
	if err := parseConfig(path, &config, SupportedVersion); err != nil {
		if _, ok := err.(errors.FileNotFound); ok {
			return Config{}, errors.NewFriendlyError("The config file doesn't "+
				"exist at %q. Create it, or point to another file with --config.", path)
		}
		return Config{}, errors.WithContext(err, "parse")
	}
	return config, nil
}

// Validate checks the config for errors, fills in defaults, and expands
// paths. All problems are reported as errors.ConfigError.
func (c *Config) Validate() error {
	if c.WatchRoot == "" {
		return errors.ConfigError{Field: "watchRoot", Reason: "must be set"}
	}

	root, err := expandPath("watchRoot", c.WatchRoot)
	if err != nil {
		return err
	}
	root, err = filepath.Abs(root)
	if err != nil {
		return errors.ConfigError{Field: "watchRoot", Reason: "invalid path", Err: err}
	}

	fi, err := fs.Stat(root)
	if err != nil {
		return errors.ConfigError{Field: "watchRoot", Reason: "does not exist", Err: err}
	}
	if !fi.IsDir() {
		return errors.ConfigError{Field: "watchRoot", Reason: "is not a directory"}
	}
	c.WatchRoot = root

	if err := c.Remote.validate(); err != nil {
		return err
	}

	if c.moveWindow, err = parseDuration("moveWindow", c.MoveWindow, defaultMoveWindow); err != nil {
		return err
	}

	if _, err := filter.NewPolicy(c.Filter.Types, c.Filter.Extensions, nil); err != nil {
		return err
	}

	if c.LogFile != "" {
		if c.LogFile, err = expandPath("logFile", c.LogFile); err != nil {
			return err
		}
		if err := checkWritableDir("logFile", filepath.Dir(c.LogFile)); err != nil {
			return err
		}
	}

	if c.PIDFile == "" {
		c.PIDFile = DefaultPIDFile
	}
	if c.PIDFile, err = expandPath("pidFile", c.PIDFile); err != nil {
		return err
	}
	return nil
}

func (r *Remote) validate() error {
	if r.Protocol == "" {
		r.Protocol = FTP
	}
	if r.Protocol != FTP && r.Protocol != SFTP {
		return errors.ConfigError{Field: "remote.protocol",
			Reason: "must be either ftp or sftp"}
	}

	if r.Host == "" {
		return errors.ConfigError{Field: "remote.host", Reason: "must be set"}
	}
	if r.User == "" {
		return errors.ConfigError{Field: "remote.user", Reason: "must be set"}
	}
	if r.Port < 0 || r.Port > 65535 {
		return errors.ConfigError{Field: "remote.port", Reason: "out of range"}
	}

	switch r.Protocol {
	case FTP:
		if r.Password == "" {
			return errors.ConfigError{Field: "remote.password", Reason: "must be set"}
		}
	case SFTP:
		if r.Password == "" && r.IdentityFile == "" {
			return errors.ConfigError{Field: "remote.password",
				Reason: "either a password or an identityFile must be set"}
		}

		var err error
		if r.IdentityFile != "" {
			if r.IdentityFile, err = expandPath("remote.identityFile", r.IdentityFile); err != nil {
				return err
			}
		}
		if r.KnownHosts == "" {
			r.KnownHosts = DefaultKnownHosts
		}
		if r.KnownHosts, err = expandPath("remote.knownHosts", r.KnownHosts); err != nil {
			return err
		}
	}

	var err error
	r.timeout, err = parseDuration("remote.timeout", r.Timeout, defaultTimeout)
	return err
}

func expandPath(field, path string) (string, error) {
	expanded, err := homedirExpand(path)
	if err != nil {
		return "", errors.ConfigError{Field: field, Reason: "failed to expand path", Err: err}
	}
	return expanded, nil
}

func parseDuration(field, value string, def time.Duration) (time.Duration, error) {
	if value == "" {
		return def, nil
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, errors.ConfigError{Field: field, Reason: "invalid duration", Err: err}
	}
	if d <= 0 {
		return 0, errors.ConfigError{Field: field, Reason: "must be positive"}
	}
	return d, nil
}

// checkWritableDir creates `dir` if it doesn't exist, and checks that files
// can be created in it.
func checkWritableDir(field, dir string) error {
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return errors.ConfigError{Field: field, Reason: "failed to create log directory", Err: err}
	}

	f, err := afero.TempFile(fs, dir, ".dirmirror-check")
	if err != nil {
		return errors.ConfigError{Field: field, Reason: "log directory is not writable", Err: err}
	}
	f.Close()
	fs.Remove(f.Name())
	return nil
}

// MoveWindowDuration returns the parsed MoveWindow. Only valid after Validate.
func (c Config) MoveWindowDuration() time.Duration {
	return c.moveWindow
}

// TimeoutDuration returns the parsed Timeout. Only valid after Validate.
func (r Remote) TimeoutDuration() time.Duration {
	return r.timeout
}

// LogPath returns the file that logs should be written to. Debug logs are
// kept separately from the regular log.
func (c Config) LogPath() string {
	if c.LogFile == "" || !c.Debug {
		return c.LogFile
	}
	return c.LogFile + ".debug"
}
