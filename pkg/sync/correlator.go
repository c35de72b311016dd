package sync

import (
	"sort"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultMoveWindow is how long a move's source is kept waiting for its
// destination.
const DefaultMoveWindow = 2 * time.Second

// PendingMove is the source half of a move that hasn't been paired yet.
type PendingMove struct {
	Token uint32
	From  string
	IsDir bool
	Seen  time.Time
}

// RenameCorrelator pairs MovedFrom and MovedTo notifications that share a
// token. The kernel only shares tokens between the two halves when both
// paths are watched, so an unpaired source means the path left the tree, and
// an unpaired destination means it entered the tree.
//
// A RenameCorrelator is not safe for concurrent use.
type RenameCorrelator struct {
	clock   clockwork.Clock
	window  time.Duration
	pending map[uint32]PendingMove
}

// NewRenameCorrelator creates a RenameCorrelator that expires moves after
// `window`.
func NewRenameCorrelator(clock clockwork.Clock, window time.Duration) *RenameCorrelator {
	if window <= 0 {
		window = DefaultMoveWindow
	}
	return &RenameCorrelator{
		clock:   clock,
		window:  window,
		pending: map[uint32]PendingMove{},
	}
}

// MovedFrom records the source half of a move. If a move with the same token
// was already pending, it can no longer be paired and is returned as a
// Delete.
func (c *RenameCorrelator) MovedFrom(token uint32, path string, isDir bool) []Action {
	var actions []Action
	if old, ok := c.pending[token]; ok {
		actions = append(actions, Delete(old.From, old.IsDir))
	}

	c.pending[token] = PendingMove{
		Token: token,
		From:  path,
		IsDir: isDir,
		Seen:  c.clock.Now(),
	}
	return actions
}

// MovedTo completes the move with the same token. Without a pending source,
// the path came from outside the tree and is treated as created.
func (c *RenameCorrelator) MovedTo(token uint32, path string, isDir bool) Action {
	move, ok := c.pending[token]
	if !ok {
		return Create(path, isDir)
	}

	delete(c.pending, token)
	return Rename(move.From, path, isDir)
}

// Expire returns a Delete for every move that has waited at least the window,
// oldest first.
func (c *RenameCorrelator) Expire() []Action {
	now := c.clock.Now()

	var expired []PendingMove
	for token, move := range c.pending {
		if now.Sub(move.Seen) >= c.window {
			expired = append(expired, move)
			delete(c.pending, token)
		}
	}

	sort.Slice(expired, func(i, j int) bool {
		if !expired[i].Seen.Equal(expired[j].Seen) {
			return expired[i].Seen.Before(expired[j].Seen)
		}
		return expired[i].From < expired[j].From
	})

	var actions []Action
	for _, move := range expired {
		actions = append(actions, Delete(move.From, move.IsDir))
	}
	return actions
}

// Len returns the number of pending moves.
func (c *RenameCorrelator) Len() int {
	return len(c.pending)
}
