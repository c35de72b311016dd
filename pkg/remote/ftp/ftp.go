// Package ftp implements the remote store transport over FTP.
package ftp

import (
	"context"
	"io"
	"net"
	"strconv"
	"time"

	ftplib "github.com/jlaffaye/ftp"

	"github.com/sidkik/dirmirror/pkg/errors"
	"github.com/sidkik/dirmirror/pkg/remote"
)

// DefaultPort is used when no port is configured.
const DefaultPort = 21

// Binary uploads are sent in blocks of this size.
const blockSize = 1024

// Config contains the connection settings for an FTP server.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string

	// Dir is the remote base directory. All paths are relative to it.
	Dir string

	Timeout time.Duration
}

// Dialer connects to an FTP server.
type Dialer struct {
	config Config
}

// NewDialer creates a Dialer for the given server.
func NewDialer(config Config) Dialer {
	if config.Port == 0 {
		config.Port = DefaultPort
	}
	return Dialer{config: config}
}

// Dial connects, logs in, and changes into the base directory.
func (d Dialer) Dial(ctx context.Context) (remote.Session, error) {
	addr := net.JoinHostPort(d.config.Host, strconv.Itoa(d.config.Port))
	opts := []ftplib.DialOption{ftplib.DialWithContext(ctx)}
	if d.config.Timeout > 0 {
		opts = append(opts, ftplib.DialWithTimeout(d.config.Timeout))
	}

	conn, err := ftplib.Dial(addr, opts...)
	if err != nil {
		return nil, errors.WithContext(err, "dial")
	}

	if err := conn.Login(d.config.User, d.config.Password); err != nil {
		conn.Quit()
		return nil, errors.WithContext(err, "login")
	}

	if d.config.Dir != "" {
		if err := conn.ChangeDir(d.config.Dir); err != nil {
			conn.Quit()
			return nil, errors.WithContext(err, "change to base directory")
		}
	}
	return &session{conn: conn}, nil
}

type session struct {
	conn *ftplib.ServerConn
}

func (s *session) Store(remotePath string, contents io.Reader, mode remote.TransferMode) error {
	if mode == remote.Binary {
		return s.conn.Stor(remotePath, newChunkReader(contents, blockSize))
	}

	if err := s.conn.Type(ftplib.TransferTypeASCII); err != nil {
		return errors.WithContext(err, "set ascii mode")
	}
	storErr := s.conn.Stor(remotePath, newLineReader(contents))

	// The connection stays in binary mode between transfers.
	if err := s.conn.Type(ftplib.TransferTypeBinary); err != nil && storErr == nil {
		return errors.WithContext(err, "set binary mode")
	}
	return storErr
}

func (s *session) Delete(remotePath string) error {
	return s.conn.Delete(remotePath)
}

func (s *session) RemoveDir(remotePath string) error {
	return s.conn.RemoveDir(remotePath)
}

func (s *session) MakeDir(remotePath string) error {
	return s.conn.MakeDir(remotePath)
}

func (s *session) Rename(from, to string) error {
	return s.conn.Rename(from, to)
}

func (s *session) Close() error {
	return s.conn.Quit()
}
