package sftp

import (
	"fmt"
	"net"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/sidkik/dirmirror/pkg/errors"
)

// trustOnFirstUse returns a HostKeyCallback that verifies hosts against the
// `path` known_hosts file. Unknown hosts are accepted and appended to the
// file. A host whose key changed is rejected.
func trustOnFirstUse(path string) (ssh.HostKeyCallback, error) {
	if err := fs.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, err
	}

	f, err := fs.OpenFile(path, os.O_CREATE|os.O_RDONLY, 0600)
	if err != nil {
		return nil, err
	}
	f.Close()

	check, err := knownhosts.New(path)
	if err != nil {
		return nil, err
	}

	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		err := check(hostname, remote, key)
		if err == nil {
			return nil
		}

		var keyErr *knownhosts.KeyError
		if !errors.As(err, &keyErr) || len(keyErr.Want) != 0 {
			return errors.NewFriendlyError("Host key verification failed for %s (%s). "+
				"If the server was reinstalled, remove its entry from %s.",
				hostname, ssh.FingerprintSHA256(key), path)
		}

		log.WithField("host", hostname).
			WithField("fingerprint", ssh.FingerprintSHA256(key)).
			Info("Adding new host key to known hosts")
		if err := appendKnownHost(path, hostname, key); err != nil {
			log.WithError(err).Warn("Failed to record host key")
		}
		return nil
	}, nil
}

func appendKnownHost(path, hostname string, key ssh.PublicKey) error {
	f, err := fs.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	line := knownhosts.Line([]string{knownhosts.Normalize(hostname)}, key)
	_, err = fmt.Fprintln(f, line)
	return err
}
