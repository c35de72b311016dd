package remote

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/dirmirror/pkg/errors"
	"github.com/sidkik/dirmirror/pkg/metrics"
)

var errNotConnected = errors.New("not connected")

// Resilient is a Client that keeps a single session open. When an operation
// fails, it reconnects and retries the operation exactly once. It never
// reconnects proactively.
type Resilient struct {
	ctx    context.Context
	fs     afero.Fs
	dialer Dialer
	log    logrus.FieldLogger

	lock    sync.Mutex
	session Session
}

// NewResilient creates a Resilient client. No connection is made until
// Connect is called, or the first operation runs.
func NewResilient(ctx context.Context, fs afero.Fs, dialer Dialer, log logrus.FieldLogger) *Resilient {
	return &Resilient{
		ctx:    ctx,
		fs:     fs,
		dialer: dialer,
		log:    log,
	}
}

// Connect opens the initial session.
func (c *Resilient) Connect() error {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.reconnect()
}

// Upload stores the contents of `localPath` at `remotePath`. Text files are
// sent line by line, and everything else as raw binary.
func (c *Resilient) Upload(localPath, remotePath string) error {
	return c.do("upload", remotePath, func(session Session) error {
		f, err := c.fs.Open(localPath)
		if err != nil {
			return Permanent(errors.WithContext(err, "open local file"))
		}
		defer f.Close()

		mode, contents, err := Classify(f)
		if err != nil {
			return Permanent(errors.WithContext(err, "read local file"))
		}

		c.log.WithFields(logrus.Fields{
			"path":       localPath,
			"remotePath": remotePath,
			"mode":       mode,
		}).Debug("Uploading file")
		return session.Store(remotePath, contents, mode)
	})
}

// Remove deletes the file at `remotePath`.
func (c *Resilient) Remove(remotePath string) error {
	return c.do("delete", remotePath, func(session Session) error {
		return session.Delete(remotePath)
	})
}

// RemoveDir deletes the directory at `remotePath`.
func (c *Resilient) RemoveDir(remotePath string) error {
	return c.do("rmdir", remotePath, func(session Session) error {
		return session.RemoveDir(remotePath)
	})
}

// MakeDir creates the directory at `remotePath`.
func (c *Resilient) MakeDir(remotePath string) error {
	return c.do("mkdir", remotePath, func(session Session) error {
		return session.MakeDir(remotePath)
	})
}

// Rename moves `from` to `to`.
func (c *Resilient) Rename(from, to string) error {
	return c.do("rename", from, func(session Session) error {
		return session.Rename(from, to)
	})
}

// Close closes the current session, if any.
func (c *Resilient) Close() error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.session == nil {
		return nil
	}
	err := c.session.Close()
	c.session = nil
	return err
}

func (c *Resilient) do(op, remotePath string, fn func(Session) error) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	start := time.Now()
	err := c.attempt(fn)
	if err != nil && !IsPermanent(err) {
		c.log.WithError(err).WithFields(logrus.Fields{
			"op":         op,
			"remotePath": remotePath,
		}).Warn("Remote operation failed. Reconnecting and retrying.")

		if reconnectErr := c.reconnect(); reconnectErr != nil {
			err = errors.WithContext(reconnectErr, "reconnect")
		} else {
			err = c.attempt(fn)
		}
	}

	metrics.RecordRemoteOperation(op, err == nil, time.Since(start))
	if err != nil {
		return errors.RemoteOperationError{Op: op, RemotePath: remotePath, Err: err}
	}
	return nil
}

func (c *Resilient) attempt(fn func(Session) error) error {
	if c.session == nil {
		return errNotConnected
	}
	return fn(c.session)
}

// reconnect replaces the current session. The caller must hold the lock.
func (c *Resilient) reconnect() error {
	if c.session != nil {
		if err := c.session.Close(); err != nil {
			c.log.WithError(err).Debug("Failed to close stale session")
		}
		c.session = nil
	}

	session, err := c.dialer.Dial(c.ctx)
	metrics.RecordReconnect(err == nil)
	if err != nil {
		return err
	}

	c.session = session
	c.log.Info("Connected to remote server")
	return nil
}
