package config

import (
	"fmt"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/dirmirror/pkg/errors"
)

func mockHomedir() {
	homedirExpand = func(path string) (string, error) {
		if len(path) > 0 && path[0] == '~' {
			return "/home/user" + path[1:], nil
		}
		return path, nil
	}
}

func TestParse(t *testing.T) {
	out := "/home/user/.dirmirror.yaml"
	tests := []struct {
		name      string
		input     string
		expConfig Config
		expError  error
	}{
		{
			name: "Full config",
			input: `
version: v1alpha1
watchRoot: /srv/www
remote:
  protocol: ftp
  host: ftp.example.com
  user: mirror
  password: secret
  dir: /public
filter:
  types: image,text
  extensions: jpg,png
moveWindow: 5s
debug: true
logFile: /var/log/dirmirror/daily.log
`,
			expConfig: Config{
				Version:   SupportedVersion,
				WatchRoot: "/srv/www",
				Remote: Remote{
					Protocol: "ftp",
					Host:     "ftp.example.com",
					User:     "mirror",
					Password: "secret",
					Dir:      "/public",
				},
				Filter: Filter{
					Types:      "image,text",
					Extensions: "jpg,png",
				},
				MoveWindow: "5s",
				Debug:      true,
				LogFile:    "/var/log/dirmirror/daily.log",
			},
		},
		{
			name:  "Missing version",
			input: "watchRoot: /srv/www",
			expConfig: Config{
				Version:   SupportedVersion,
				WatchRoot: "/srv/www",
			},
		},
		{
			name:  "Incorrect version",
			input: "version: v2\nwatchRoot: /srv/www",
			expError: errors.WithContext(incompatibleVersionError{
				path:   out,
				exp:    SupportedVersion,
				actual: "v2",
			}, "parse"),
		},
		{
			name:  "Extra fields",
			input: fmt.Sprintf("version: %s\nextra: fields", SupportedVersion),
			expError: errors.WithContext(
				errors.NewFriendlyError(parseConfigErrTemplate, out,
					errors.New("error unmarshaling JSON: while decoding JSON: "+
						`json: unknown field "extra"`)),
				"parse"),
		},
	}

	mockHomedir()
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			fs = afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fs, out, []byte(test.input), 0644))

			config, err := Parse(DefaultConfigPath)
			assert.Equal(t, test.expError, err)
			if test.expError == nil {
				assert.Equal(t, test.expConfig, config)
			}
		})
	}
}

func TestParseMissingFile(t *testing.T) {
	mockHomedir()
	fs = afero.NewMemMapFs()

	_, err := Parse(DefaultConfigPath)
	assert.EqualError(t, err, `The config file doesn't exist at "/home/user/.dirmirror.yaml". `+
		"Create it, or point to another file with --config.")
}

func validConfig() Config {
	return Config{
		WatchRoot: "/srv/www",
		Remote: Remote{
			Host:     "ftp.example.com",
			User:     "mirror",
			Password: "secret",
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		expField string
	}{
		{
			name:   "Valid",
			mutate: func(*Config) {},
		},
		{
			name:     "Missing watch root",
			mutate:   func(c *Config) { c.WatchRoot = "" },
			expField: "watchRoot",
		},
		{
			name:     "Watch root doesn't exist",
			mutate:   func(c *Config) { c.WatchRoot = "/missing" },
			expField: "watchRoot",
		},
		{
			name:     "Watch root is a file",
			mutate:   func(c *Config) { c.WatchRoot = "/srv/file" },
			expField: "watchRoot",
		},
		{
			name:     "Unknown protocol",
			mutate:   func(c *Config) { c.Remote.Protocol = "http" },
			expField: "remote.protocol",
		},
		{
			name:     "Missing host",
			mutate:   func(c *Config) { c.Remote.Host = "" },
			expField: "remote.host",
		},
		{
			name:     "Missing user",
			mutate:   func(c *Config) { c.Remote.User = "" },
			expField: "remote.user",
		},
		{
			name:     "FTP requires a password",
			mutate:   func(c *Config) { c.Remote.Password = "" },
			expField: "remote.password",
		},
		{
			name: "SFTP accepts an identity file",
			mutate: func(c *Config) {
				c.Remote.Protocol = SFTP
				c.Remote.Password = ""
				c.Remote.IdentityFile = "~/.ssh/id_ed25519"
			},
		},
		{
			name: "SFTP requires a credential",
			mutate: func(c *Config) {
				c.Remote.Protocol = SFTP
				c.Remote.Password = ""
			},
			expField: "remote.password",
		},
		{
			name:     "Invalid move window",
			mutate:   func(c *Config) { c.MoveWindow = "soon" },
			expField: "moveWindow",
		},
		{
			name:     "Negative move window",
			mutate:   func(c *Config) { c.MoveWindow = "-1s" },
			expField: "moveWindow",
		},
		{
			name:     "Invalid timeout",
			mutate:   func(c *Config) { c.Remote.Timeout = "10 seconds" },
			expField: "remote.timeout",
		},
		{
			name:     "Invalid type pattern",
			mutate:   func(c *Config) { c.Filter.Types = "image,(" },
			expField: "filter.types",
		},
		{
			name:     "Invalid extension pattern",
			mutate:   func(c *Config) { c.Filter.Extensions = "[" },
			expField: "filter.extensions",
		},
		{
			name:     "Port out of range",
			mutate:   func(c *Config) { c.Remote.Port = 70000 },
			expField: "remote.port",
		},
		{
			name:   "Log directory is created",
			mutate: func(c *Config) { c.LogFile = "/var/log/dirmirror/daily.log" },
		},
	}

	mockHomedir()
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			fs = afero.NewMemMapFs()
			require.NoError(t, fs.MkdirAll("/srv/www", 0755))
			require.NoError(t, afero.WriteFile(fs, "/srv/file", nil, 0644))

			config := validConfig()
			test.mutate(&config)
			err := config.Validate()

			if test.expField == "" {
				assert.NoError(t, err)
				return
			}

			var configErr errors.ConfigError
			require.True(t, errors.As(err, &configErr), "unexpected error: %v", err)
			assert.Equal(t, test.expField, configErr.Field)
		})
	}
}

func TestValidateDefaults(t *testing.T) {
	mockHomedir()
	fs = afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/srv/www", 0755))

	config := validConfig()
	config.WatchRoot = "/srv/www/"
	require.NoError(t, config.Validate())

	assert.Equal(t, "/srv/www", config.WatchRoot)
	assert.Equal(t, FTP, config.Remote.Protocol)
	assert.Equal(t, DefaultPIDFile, config.PIDFile)
	assert.Equal(t, 2*time.Second, config.MoveWindowDuration())
	assert.Equal(t, 30*time.Second, config.Remote.TimeoutDuration())

	config = validConfig()
	config.Remote.Protocol = SFTP
	config.MoveWindow = "500ms"
	require.NoError(t, config.Validate())
	assert.Equal(t, "/home/user/.ssh/known_hosts", config.Remote.KnownHosts)
	assert.Equal(t, 500*time.Millisecond, config.MoveWindowDuration())
}

func TestLogPath(t *testing.T) {
	assert.Equal(t, "", Config{Debug: true}.LogPath())
	assert.Equal(t, "/var/log/daily.log", Config{LogFile: "/var/log/daily.log"}.LogPath())
	assert.Equal(t, "/var/log/daily.log.debug",
		Config{LogFile: "/var/log/daily.log", Debug: true}.LogPath())
}
