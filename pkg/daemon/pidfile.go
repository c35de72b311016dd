// Package daemon manages the lifecycle of the background mirror process.
package daemon

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/sidkik/dirmirror/pkg/errors"
)

// fs is used for mock tests. It will be overridden by afero.NewMemMapFs()
// in the tests.
var fs = afero.NewOsFs()

// WritePID records `pid` in the file at `path`.
func WritePID(path string, pid int) error {
	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.WithContext(err, "create pid directory")
	}

	contents := []byte(strconv.Itoa(pid) + "\n")
	if err := afero.WriteFile(fs, path, contents, 0644); err != nil {
		return errors.WithContext(err, "write pid file")
	}
	return nil
}

// ReadPID returns the process ID recorded in `path`. It returns
// errors.FileNotFound if there's no PID file.
func ReadPID(path string) (int, error) {
	contents, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, errors.FileNotFound{Path: path}
		}
		return 0, errors.WithContext(err, "read pid file")
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(contents)))
	if err != nil || pid <= 0 {
		return 0, errors.NewFriendlyError("The PID file %q is corrupt. "+
			"Remove it and try again.", path)
	}
	return pid, nil
}

// RemovePID removes the PID file. It's not an error if it doesn't exist.
func RemovePID(path string) error {
	if err := fs.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.WithContext(err, "remove pid file")
	}
	return nil
}
