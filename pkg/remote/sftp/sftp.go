// Package sftp implements the remote store transport over SFTP.
package sftp

import (
	"context"
	"io"
	"net"
	"path"
	"strconv"
	"time"

	sftplib "github.com/pkg/sftp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"golang.org/x/crypto/ssh"

	"github.com/sidkik/dirmirror/pkg/errors"
	"github.com/sidkik/dirmirror/pkg/remote"
)

// DefaultPort is used when no port is configured.
const DefaultPort = 22

var fs = afero.NewOsFs()

// Config contains the connection settings for an SFTP server.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string

	// IdentityFile is the path to a private key. It's used instead of, or in
	// addition to, the password.
	IdentityFile string

	// KnownHosts is the path to the known_hosts file used to verify the
	// server. Unknown hosts are trusted on first use and recorded.
	KnownHosts string

	// Dir is the remote base directory. All paths are relative to it.
	Dir string

	Timeout time.Duration
}

// Dialer connects to an SFTP server.
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

// Dial opens an SSH connection and starts the SFTP subsystem on it.
func (d Dialer) Dial(ctx context.Context) (remote.Session, error) {
	auth, err := d.authMethods()
	if err != nil {
		return nil, err
	}

	hostKeyCallback, err := trustOnFirstUse(d.config.KnownHosts)
	if err != nil {
		return nil, errors.WithContext(err, "load known hosts")
	}

	sshConfig := &ssh.ClientConfig{
		User:            d.config.User,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
		Timeout:         d.config.Timeout,
	}

	addr := net.JoinHostPort(d.config.Host, strconv.Itoa(d.config.Port))
	dialer := net.Dialer{Timeout: d.config.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.WithContext(err, "dial")
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, sshConfig)
	if err != nil {
		conn.Close()
		return nil, errors.WithContext(err, "ssh handshake")
	}
	sshClient := ssh.NewClient(sshConn, chans, reqs)

	sftpClient, err := sftplib.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return nil, errors.WithContext(err, "start sftp")
	}

	return &session{
		ssh:  sshClient,
		sftp: sftpClient,
		dir:  d.config.Dir,
	}, nil
}

func (d Dialer) authMethods() ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod
	if d.config.IdentityFile != "" {
		key, err := afero.ReadFile(fs, d.config.IdentityFile)
		if err != nil {
			return nil, remote.Permanent(errors.WithContext(err, "read identity file"))
		}

		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, remote.Permanent(errors.WithContext(err, "parse identity file"))
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}

	if d.config.Password != "" {
		methods = append(methods, ssh.Password(d.config.Password))
	}

	if len(methods) == 0 {
		return nil, remote.Permanent(errors.New("no authentication method configured"))
	}
	return methods, nil
}

type session struct {
	ssh  *ssh.Client
	sftp *sftplib.Client
	dir  string
}

func (s *session) path(remotePath string) string {
	return path.Join(s.dir, remotePath)
}

// Store writes the contents verbatim. SFTP has no text mode, so `mode` is
// ignored.
func (s *session) Store(remotePath string, contents io.Reader, _ remote.TransferMode) error {
	f, err := s.sftp.Create(s.path(remotePath))
	if err != nil {
		return errors.WithContext(err, "create")
	}

	if _, err := io.Copy(f, contents); err != nil {
		f.Close()
		return errors.WithContext(err, "write")
	}
	return f.Close()
}

func (s *session) Delete(remotePath string) error {
	return s.sftp.Remove(s.path(remotePath))
}

func (s *session) RemoveDir(remotePath string) error {
	return s.sftp.RemoveDirectory(s.path(remotePath))
}

func (s *session) MakeDir(remotePath string) error {
	return s.sftp.Mkdir(s.path(remotePath))
}

func (s *session) Rename(from, to string) error {
	return s.sftp.Rename(s.path(from), s.path(to))
}

func (s *session) Close() error {
	if err := s.sftp.Close(); err != nil {
		log.WithError(err).Debug("Failed to close sftp client")
	}
	return s.ssh.Close()
}
