//go:build !linux

package fswatch

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/sidkik/dirmirror/pkg/errors"
)

// fsnotifySource is the portable Source used on platforms without inotify.
// fsnotify doesn't report rename cookies, so the source half of a move is
// reported as a Delete and the destination half as a Create.
type fsnotifySource struct {
	watcher *fsnotify.Watcher
	events  chan Event
	errors  chan error

	mu     sync.Mutex
	next   Handle
	byID   map[Handle]string
	byPath map[string]Handle
}

// NewSource returns an fsnotify backed Source.
func NewSource() (Source, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.WithContext(err, "create watcher")
	}

	src := &fsnotifySource{
		watcher: watcher,
		events:  make(chan Event, eventChannelBuffer),
		errors:  make(chan error, 16),
		byID:    map[Handle]string{},
		byPath:  map[string]Handle{},
	}
	go src.convertEvents()
	return src, nil
}

func (src *fsnotifySource) Add(path string) (Handle, error) {
	if err := src.watcher.Add(path); err != nil {
		return 0, err
	}

	src.mu.Lock()
	defer src.mu.Unlock()
	src.next++
	src.byID[src.next] = path
	src.byPath[path] = src.next
	return src.next, nil
}

func (src *fsnotifySource) Remove(h Handle) error {
	src.mu.Lock()
	path, ok := src.byID[h]
	delete(src.byID, h)
	if src.byPath[path] == h {
		delete(src.byPath, path)
	}
	src.mu.Unlock()

	if !ok {
		return nil
	}
	if err := src.watcher.Remove(path); err != nil && !errors.Is(err, fsnotify.ErrNonExistentWatch) {
		return err
	}
	return nil
}

func (src *fsnotifySource) Events() <-chan Event {
	return src.events
}

func (src *fsnotifySource) Errors() <-chan error {
	return src.errors
}

func (src *fsnotifySource) Close() error {
	return src.watcher.Close()
}

func (src *fsnotifySource) convertEvents() {
	defer close(src.events)
	defer close(src.errors)

	for {
		select {
		case event, ok := <-src.watcher.Events:
			if !ok {
				return
			}
			if ev, ok := src.convert(event); ok {
				src.events <- ev
			}
		case err, ok := <-src.watcher.Errors:
			if !ok {
				return
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				err = ErrOverflow
			}
			src.errors <- err
		}
	}
}

func (src *fsnotifySource) convert(event fsnotify.Event) (Event, bool) {
	src.mu.Lock()
	watch, ok := src.byPath[filepath.Dir(event.Name)]
	_, isDir := src.byPath[event.Name]
	src.mu.Unlock()
	if !ok {
		return Event{}, false
	}

	ev := Event{Watch: watch, Name: filepath.Base(event.Name)}
	switch {
	case event.Has(fsnotify.Create):
		ev.Op = Create
		if fi, err := os.Lstat(event.Name); err == nil {
			ev.IsDir = fi.IsDir()
		}
	case event.Has(fsnotify.Write):
		ev.Op = CloseWrite
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		ev.Op = Delete
		ev.IsDir = isDir
	default:
		return Event{}, false
	}
	return ev, true
}
