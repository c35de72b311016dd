// Package remote contains the connection to the remote file store.
//
// Transports implement Session and Dialer. The Resilient client owns a single
// Session, and transparently replaces it when an operation fails.
package remote

//go:generate mockery -name Session
//go:generate mockery -name Dialer
//go:generate mockery -name Client

import (
	"context"
	"io"

	"github.com/sidkik/dirmirror/pkg/errors"
)

// TransferMode is the representation used to store a file remotely.
type TransferMode int

const (
	// Binary transfers copy the file byte for byte.
	Binary TransferMode = iota

	// Text transfers send the file line by line, and let the server convert
	// line endings.
	Text
)

func (mode TransferMode) String() string {
	if mode == Text {
		return "text"
	}
	return "binary"
}

// Session is an authenticated connection to the remote store. All paths are
// relative to the remote base directory.
type Session interface {
	Store(remotePath string, contents io.Reader, mode TransferMode) error
	Delete(remotePath string) error
	RemoveDir(remotePath string) error
	MakeDir(remotePath string) error
	Rename(from, to string) error
	Close() error
}

// Dialer opens and authenticates new sessions.
type Dialer interface {
	Dial(context.Context) (Session, error)
}

// Client performs operations against the remote store.
type Client interface {
	Upload(localPath, remotePath string) error
	Remove(remotePath string) error
	RemoveDir(remotePath string) error
	MakeDir(remotePath string) error
	Rename(from, to string) error
	Close() error
}

type permanentError struct {
	err error
}

func (err permanentError) Error() string {
	return err.err.Error()
}

func (err permanentError) Unwrap() error {
	return err.err
}

// Permanent marks `err` as a failure that reconnecting can't fix, such as a
// local file that can't be read.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err}
}

// IsPermanent returns whether `err` was marked with Permanent.
func IsPermanent(err error) bool {
	var perm permanentError
	return errors.As(err, &perm)
}
