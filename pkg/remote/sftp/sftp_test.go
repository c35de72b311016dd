package sftp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionPath(t *testing.T) {
	s := &session{dir: "/srv/mirror"}
	assert.Equal(t, "/srv/mirror/a/b.txt", s.path("a/b.txt"))

	s = &session{}
	assert.Equal(t, "a/b.txt", s.path("a/b.txt"))
}

func TestNewDialerDefaultPort(t *testing.T) {
	assert.Equal(t, DefaultPort, NewDialer(Config{}).config.Port)
	assert.Equal(t, 2222, NewDialer(Config{Port: 2222}).config.Port)
}
