package sync

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestRenameCorrelatorPairs(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := NewRenameCorrelator(clock, 2*time.Second)

	assert.Empty(t, c.MovedFrom(7, "/root/a", true))
	assert.Equal(t, 1, c.Len())

	clock.Advance(time.Second)
	assert.Empty(t, c.Expire())
	assert.Equal(t, Rename("/root/a", "/root/c", true), c.MovedTo(7, "/root/c", true))
	assert.Equal(t, 0, c.Len())

	// Nothing is left to expire after the pair completes.
	clock.Advance(time.Minute)
	assert.Empty(t, c.Expire())
}

func TestRenameCorrelatorExpire(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := NewRenameCorrelator(clock, 2*time.Second)

	c.MovedFrom(1, "/root/old.txt", false)
	clock.Advance(500 * time.Millisecond)
	c.MovedFrom(2, "/root/dir", true)

	clock.Advance(1499 * time.Millisecond)
	assert.Empty(t, c.Expire())

	clock.Advance(time.Millisecond)
	assert.Equal(t, []Action{Delete("/root/old.txt", false)}, c.Expire())
	assert.Equal(t, 1, c.Len())

	clock.Advance(time.Second)
	assert.Equal(t, []Action{Delete("/root/dir", true)}, c.Expire())
	assert.Equal(t, 0, c.Len())

	// The destination of an expired move is treated as new.
	assert.Equal(t, Create("/root/new.txt", false), c.MovedTo(1, "/root/new.txt", false))
}

func TestRenameCorrelatorReusedToken(t *testing.T) {
	c := NewRenameCorrelator(clockwork.NewFakeClock(), time.Second)

	assert.Empty(t, c.MovedFrom(3, "/root/first", false))
	assert.Equal(t, []Action{Delete("/root/first", false)}, c.MovedFrom(3, "/root/second", false))
	assert.Equal(t, Rename("/root/second", "/root/third", false), c.MovedTo(3, "/root/third", false))
}

func TestRenameCorrelatorDefaultWindow(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := NewRenameCorrelator(clock, 0)

	c.MovedFrom(1, "/root/a", false)
	clock.Advance(DefaultMoveWindow - time.Millisecond)
	assert.Empty(t, c.Expire())
	clock.Advance(time.Millisecond)
	assert.Len(t, c.Expire(), 1)
}

func TestPathMapper(t *testing.T) {
	tests := []struct {
		root  string
		local string
		exp   string
	}{
		{"/root", "/root/a", "a"},
		{"/root/", "/root/a/b.txt", "a/b.txt"},
		{"/root", "/root/root/a", "root/a"},
		{"/srv/data", "/srv/data/x y/.hidden", "x y/.hidden"},
		{"/root", "/root/a//b", "a//b"},
	}

	for _, test := range tests {
		assert.Equal(t, test.exp, NewPathMapper(test.root).RemotePath(test.local),
			"root %q, local %q", test.root, test.local)
	}
}
