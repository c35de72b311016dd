package fswatch

import (
	"os"
	"strings"
	"sync"
	"unsafe"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/sidkik/dirmirror/pkg/errors"
)

// watchMask is the set of notifications the mirror reacts to.
const watchMask = unix.IN_CREATE | unix.IN_DELETE | unix.IN_CLOSE_WRITE |
	unix.IN_MOVED_FROM | unix.IN_MOVED_TO | unix.IN_ONLYDIR | unix.IN_DONT_FOLLOW

// inotifySource reads notifications straight from inotify rather than going
// through fsnotify, because fsnotify doesn't expose the rename cookie that
// pairs the two halves of a move.
type inotifySource struct {
	file   *os.File
	fd     int
	events chan Event
	errors chan error

	// paths records the path each watch was added with. It goes stale when
	// a directory is renamed, so it's only used in error messages.
	mu    sync.Mutex
	paths map[int]string
	done  chan struct{}
	once  sync.Once
}

// NewSource returns an inotify backed Source.
func NewSource() (Source, error) {
	// The fd is non-blocking so that the runtime poller handles reads, which
	// lets Close interrupt a pending Read.
	fd, err := unix.InotifyInit1(unix.IN_CLOEXEC | unix.IN_NONBLOCK)
	if err != nil {
		return nil, errors.WithContext(err, "inotify init")
	}

	src := &inotifySource{
		file:   os.NewFile(uintptr(fd), "inotify"),
		fd:     fd,
		events: make(chan Event, eventChannelBuffer),
		errors: make(chan error, 16),
		paths:  map[int]string{},
		done:   make(chan struct{}),
	}
	go src.readEvents()
	return src, nil
}

func (src *inotifySource) Add(path string) (Handle, error) {
	src.mu.Lock()
	defer src.mu.Unlock()

	wd, err := unix.InotifyAddWatch(src.fd, path, watchMask)
	if err != nil {
		return 0, &os.PathError{Op: "inotify_add_watch", Path: path, Err: err}
	}
	src.paths[wd] = path
	return Handle(wd), nil
}

func (src *inotifySource) Remove(h Handle) error {
	src.mu.Lock()
	path, ok := src.paths[int(h)]
	delete(src.paths, int(h))
	src.mu.Unlock()

	// The kernel drops the watch by itself when the directory is deleted, and
	// the IN_IGNORED that follows may already have been processed.
	if !ok {
		return nil
	}

	if _, err := unix.InotifyRmWatch(src.fd, uint32(h)); err != nil && err != unix.EINVAL {
		return &os.PathError{Op: "inotify_rm_watch", Path: path, Err: err}
	}
	return nil
}

func (src *inotifySource) Events() <-chan Event {
	return src.events
}

func (src *inotifySource) Errors() <-chan error {
	return src.errors
}

func (src *inotifySource) Close() error {
	var err error
	src.once.Do(func() {
		close(src.done)
		err = src.file.Close()
	})
	return err
}

func (src *inotifySource) readEvents() {
	defer close(src.events)
	defer close(src.errors)

	var buf [unix.SizeofInotifyEvent * 4096]byte
	for {
		n, err := src.file.Read(buf[:])
		if err != nil {
			select {
			case <-src.done:
			default:
				src.sendError(errors.WithContext(err, "read inotify"))
			}
			return
		}

		if n < unix.SizeofInotifyEvent {
			src.sendError(errors.New("short inotify read"))
			continue
		}

		var offset uint32
		for offset <= uint32(n-unix.SizeofInotifyEvent) {
			raw := (*unix.InotifyEvent)(unsafe.Pointer(&buf[offset]))
			nameLen := raw.Len
			var name string
			if nameLen > 0 {
				nameBytes := (*[unix.PathMax]byte)(unsafe.Pointer(&buf[offset+unix.SizeofInotifyEvent]))[:nameLen:nameLen]
				name = strings.TrimRight(string(nameBytes), "\x00")
			}
			offset += unix.SizeofInotifyEvent + nameLen

			if ev, ok := src.convert(raw, name); ok {
				select {
				case src.events <- ev:
				case <-src.done:
					return
				}
			}
		}
	}
}

func (src *inotifySource) convert(raw *unix.InotifyEvent, name string) (Event, bool) {
	mask := raw.Mask
	if mask&unix.IN_Q_OVERFLOW != 0 {
		src.sendError(ErrOverflow)
		return Event{}, false
	}

	if mask&unix.IN_IGNORED != 0 {
		src.mu.Lock()
		delete(src.paths, int(raw.Wd))
		src.mu.Unlock()
	}

	// Events about the watched directory itself have no name.
	if name == "" {
		return Event{}, false
	}

	ev := Event{
		Watch:  Handle(raw.Wd),
		Name:   name,
		IsDir:  mask&unix.IN_ISDIR != 0,
		Cookie: raw.Cookie,
	}
	switch {
	case mask&unix.IN_CREATE != 0:
		ev.Op = Create
	case mask&unix.IN_DELETE != 0:
		ev.Op = Delete
	case mask&unix.IN_CLOSE_WRITE != 0:
		ev.Op = CloseWrite
	case mask&unix.IN_MOVED_FROM != 0:
		ev.Op = MovedFrom
	case mask&unix.IN_MOVED_TO != 0:
		ev.Op = MovedTo
	default:
		log.WithField("mask", mask).Debug("Ignoring unexpected inotify event")
		return Event{}, false
	}
	return ev, true
}

func (src *inotifySource) sendError(err error) {
	select {
	case src.errors <- err:
	default:
		log.WithError(err).Warn("Dropping watch error because nobody is listening")
	}
}
