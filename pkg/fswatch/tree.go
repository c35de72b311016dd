package fswatch

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/dirmirror/pkg/errors"
)

// WatchTree tracks the directories that are watched by a Source. Watches
// aren't recursive, so the tree walks new subtrees and adds every directory
// individually.
//
// A WatchTree is not safe for concurrent use. It's owned by the goroutine
// that processes events.
type WatchTree struct {
	fs       afero.Fs
	source   Source
	log      logrus.FieldLogger
	watches  map[string]Handle
	byHandle map[Handle]string
}

// NewWatchTree creates an empty WatchTree backed by `source`.
func NewWatchTree(fs afero.Fs, source Source, log logrus.FieldLogger) *WatchTree {
	return &WatchTree{
		fs:       fs,
		source:   source,
		log:      log,
		watches:  map[string]Handle{},
		byHandle: map[Handle]string{},
	}
}

// AddRecursive watches `root` and every directory beneath it that isn't
// already watched. It returns the directories that were newly added, parents
// before children.
// Failures are logged rather than returned because they're almost always
// caused by a directory being removed right after it was created.
func (tree *WatchTree) AddRecursive(root string) (added []string) {
	root = filepath.Clean(root)
	_ = afero.Walk(tree.fs, root, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			tree.log.WithError(errors.WatchError{Op: "add", Path: path, Err: err}).
				Warn("Failed to scan directory. It was probably removed.")
			return nil
		}

		if !fi.IsDir() {
			return nil
		}

		if _, ok := tree.watches[path]; ok {
			return nil
		}

		handle, err := tree.source.Add(path)
		if err != nil {
			tree.log.WithError(errors.WatchError{Op: "add", Path: path, Err: err}).
				Warn("Failed to add directory to watch list")
			return filepath.SkipDir
		}

		// inotify hands back the existing watch if the directory is already
		// watched under a path that we missed a rename of.
		if stale, ok := tree.byHandle[handle]; ok && stale != path {
			delete(tree.watches, stale)
		}

		tree.watches[path] = handle
		tree.byHandle[handle] = path
		added = append(added, path)
		tree.log.WithField("path", path).Debug("Added directory to watch list")
		return nil
	})
	return added
}

// RemoveRecursive stops watching `root` and every watched directory beneath
// it. The directories are forgotten even if the source fails to remove the
// watch, since they no longer exist at that path.
func (tree *WatchTree) RemoveRecursive(root string) (removed []string) {
	root = filepath.Clean(root)
	prefix := root + string(filepath.Separator)

	var paths []string
	for path := range tree.watches {
		if path == root || strings.HasPrefix(path, prefix) {
			paths = append(paths, path)
		}
	}

	// Remove children before their parents.
	sort.Sort(sort.Reverse(sort.StringSlice(paths)))
	for _, path := range paths {
		handle := tree.watches[path]
		delete(tree.watches, path)
		if tree.byHandle[handle] == path {
			delete(tree.byHandle, handle)
		}
		removed = append(removed, path)

		if err := tree.source.Remove(handle); err != nil {
			tree.log.WithError(errors.WatchError{Op: "remove", Path: path, Err: err}).
				Warn("Failed to remove directory from watch list")
			continue
		}
		tree.log.WithField("path", path).Debug("Removed directory from watch list")
	}
	return removed
}

// Move updates the tree after the watched directory `from` was renamed to
// `to`. Watches follow the renamed directories, so the handles are kept and
// only their paths change. Any watches that were left at `to` are dropped
// first, since the rename replaced that directory. It returns the new paths
// of the moved directories.
func (tree *WatchTree) Move(from, to string) (moved []string) {
	from, to = filepath.Clean(from), filepath.Clean(to)
	tree.RemoveRecursive(to)

	prefix := from + string(filepath.Separator)
	var paths []string
	for path := range tree.watches {
		if path == from || strings.HasPrefix(path, prefix) {
			paths = append(paths, path)
		}
	}

	sort.Strings(paths)
	for _, path := range paths {
		handle := tree.watches[path]
		newPath := to + strings.TrimPrefix(path, from)

		delete(tree.watches, path)
		tree.watches[newPath] = handle
		tree.byHandle[handle] = newPath
		moved = append(moved, newPath)
	}

	if len(moved) > 0 {
		tree.log.WithField("from", from).
			WithField("to", to).
			WithField("directories", len(moved)).
			Debug("Moved directories in watch list")
	}
	return moved
}

// Resolve returns the path of the entry that `ev` refers to, according to
// where its directory is now. It returns false if the event came from a
// watch that has since been removed.
func (tree *WatchTree) Resolve(ev Event) (string, bool) {
	dir, ok := tree.byHandle[ev.Watch]
	if !ok {
		return "", false
	}
	return filepath.Join(dir, ev.Name), true
}

// Watched returns whether `path` is currently watched.
func (tree *WatchTree) Watched(path string) bool {
	_, ok := tree.watches[filepath.Clean(path)]
	return ok
}

// Paths returns the watched directories in sorted order.
func (tree *WatchTree) Paths() []string {
	paths := make([]string, 0, len(tree.watches))
	for path := range tree.watches {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Len returns the number of watched directories.
func (tree *WatchTree) Len() int {
	return len(tree.watches)
}
