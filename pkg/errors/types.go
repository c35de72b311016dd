package errors

import (
	"fmt"
)

// MissingFieldError represents a missing required field.
type MissingFieldError struct {
	Field string
}

func (err MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field: %s", err.Field)
}

// FileNotFound represents when we were unable to access a file
// because the path didn't exist.
type FileNotFound struct {
	Path string
}

func (err FileNotFound) Error() string {
	return fmt.Sprintf("%q does not exist", err.Path)
}

// ConfigError is returned when the configuration is invalid or incomplete.
// It is always fatal, and is raised before any events are processed.
type ConfigError struct {
	Field  string
	Reason string
	Err    error
}

func (err ConfigError) Error() string {
	msg := fmt.Sprintf("invalid configuration: %s: %s", err.Field, err.Reason)
	if err.Err != nil {
		msg += fmt.Sprintf(" (%s)", err.Err)
	}
	return msg
}

func (err ConfigError) Unwrap() error {
	return err.Err
}

// FriendlyMessage implements the friendly error interface so that startup
// failures are printed without the wrapping context.
func (err ConfigError) FriendlyMessage() string {
	return err.Error()
}

// WatchError is returned when adding or removing a directory watch fails.
// The most common cause is the directory disappearing between the
// notification and the watch update, so it is never fatal.
type WatchError struct {
	Op   string
	Path string
	Err  error
}

func (err WatchError) Error() string {
	return fmt.Sprintf("%s watch %q: %s", err.Op, err.Path, err.Err)
}

func (err WatchError) Unwrap() error {
	return err.Err
}

// RemoteOperationError is returned when a remote operation fails even after
// reconnecting and retrying.
type RemoteOperationError struct {
	Op         string
	RemotePath string
	Err        error
}

func (err RemoteOperationError) Error() string {
	return fmt.Sprintf("remote %s %q: %s", err.Op, err.RemotePath, err.Err)
}

func (err RemoteOperationError) Unwrap() error {
	return err.Err
}
