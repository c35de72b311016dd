package fswatch

import (
	"fmt"

	"github.com/sidkik/dirmirror/pkg/errors"
)

// Op is the kind of a raw filesystem notification.
type Op int

const (
	// Create is sent when a file or directory is created in a watched
	// directory.
	Create Op = iota + 1

	// Delete is sent when a file or directory is removed from a watched
	// directory.
	Delete

	// CloseWrite is sent when a file that was opened for writing is closed.
	CloseWrite

	// MovedFrom is sent for the source half of a rename.
	MovedFrom

	// MovedTo is sent for the destination half of a rename.
	MovedTo
)

func (op Op) String() string {
	switch op {
	case Create:
		return "CREATE"
	case Delete:
		return "DELETE"
	case CloseWrite:
		return "CLOSE_WRITE"
	case MovedFrom:
		return "MOVED_FROM"
	case MovedTo:
		return "MOVED_TO"
	default:
		return fmt.Sprintf("Op(%d)", int(op))
	}
}

// Event is a raw notification from the event source. Sources don't turn
// events into paths: the directory behind Watch may have been renamed by the
// time the event is processed, so WatchTree.Resolve looks it up then.
type Event struct {
	Op Op

	// Watch is the directory watch that reported the event, and Name is the
	// entry's name within that directory.
	Watch Handle
	Name  string

	IsDir bool

	// Cookie is shared by the MovedFrom and MovedTo halves of a single rename
	// if and only if both halves happened inside the watched tree. It's zero
	// for all other events.
	Cookie uint32
}

// Handle identifies a single directory watch in the event source.
type Handle int

// ErrOverflow is sent on the error channel when the kernel dropped
// notifications because the queue was full.
var ErrOverflow = errors.New("notification queue overflow, events were lost")

// Source is a per-directory filesystem notification source. Watches are not
// recursive: every directory must be added individually.
type Source interface {
	Add(path string) (Handle, error)
	Remove(Handle) error
	Events() <-chan Event
	Errors() <-chan error
	Close() error
}

const eventChannelBuffer = 1024
