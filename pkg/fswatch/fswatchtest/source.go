// Package fswatchtest provides an in-memory fswatch.Source for tests.
package fswatchtest

import (
	"path/filepath"
	"sort"
	"sync"

	"github.com/sidkik/dirmirror/pkg/errors"
	"github.com/sidkik/dirmirror/pkg/fswatch"
)

// Source is a fake fswatch.Source. Events are injected with Send, and the
// currently watched paths can be inspected with Watched.
type Source struct {
	mu      sync.Mutex
	next    fswatch.Handle
	watched map[fswatch.Handle]string

	// FailAdd contains paths for which Add returns an error.
	FailAdd map[string]bool

	// FailRemove contains paths for which Remove returns an error.
	FailRemove map[string]bool

	events chan fswatch.Event
	errors chan error
}

// NewSource creates a fake Source.
func NewSource() *Source {
	return &Source{
		watched:    map[fswatch.Handle]string{},
		FailAdd:    map[string]bool{},
		FailRemove: map[string]bool{},
		events:     make(chan fswatch.Event, 64),
		errors:     make(chan error, 8),
	}
}

func (src *Source) Add(path string) (fswatch.Handle, error) {
	src.mu.Lock()
	defer src.mu.Unlock()

	if src.FailAdd[path] {
		return 0, errors.FileNotFound{Path: path}
	}
	src.next++
	src.watched[src.next] = path
	return src.next, nil
}

func (src *Source) Remove(h fswatch.Handle) error {
	src.mu.Lock()
	defer src.mu.Unlock()

	path := src.watched[h]
	delete(src.watched, h)
	if src.FailRemove[path] {
		return errors.New("remove failed")
	}
	return nil
}

func (src *Source) Events() <-chan fswatch.Event {
	return src.events
}

func (src *Source) Errors() <-chan error {
	return src.errors
}

// Close closes the event and error channels.
func (src *Source) Close() error {
	close(src.events)
	close(src.errors)
	return nil
}

// Send queues an event.
func (src *Source) Send(ev fswatch.Event) {
	src.events <- ev
}

// SendError queues an error.
func (src *Source) SendError(err error) {
	src.errors <- err
}

// Handle returns the newest watch that was added for `path`, or zero if it
// isn't watched. Events built from it resolve to wherever the directory is
// now, even after a rename.
func (src *Source) Handle(path string) fswatch.Handle {
	src.mu.Lock()
	defer src.mu.Unlock()

	var newest fswatch.Handle
	for h, watched := range src.watched {
		if watched == path && h > newest {
			newest = h
		}
	}
	return newest
}

// Event builds an event for `path` as reported by the watch on its parent
// directory.
func (src *Source) Event(op fswatch.Op, path string, isDir bool) fswatch.Event {
	return fswatch.Event{
		Op:    op,
		Watch: src.Handle(filepath.Dir(path)),
		Name:  filepath.Base(path),
		IsDir: isDir,
	}
}

// Watched returns the sorted list of paths with an active watch.
func (src *Source) Watched() []string {
	src.mu.Lock()
	defer src.mu.Unlock()

	var paths []string
	for _, path := range src.watched {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}
