package sync

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/dirmirror/pkg/filter"
	"github.com/sidkik/dirmirror/pkg/fswatch"
	"github.com/sidkik/dirmirror/pkg/metrics"
	"github.com/sidkik/dirmirror/pkg/remote"
)

// Executor replays actions on the remote store, and keeps the watch tree up
// to date with directory activity.
//
// Failures are logged and the action is dropped, except that a failed rename
// falls back to uploading the destination. Nothing is returned to the
// caller, so a single bad path can't stop the mirror.
type Executor struct {
	fs     afero.Fs
	tree   *fswatch.WatchTree
	policy *filter.Policy
	mapper PathMapper
	client remote.Client
	log    logrus.FieldLogger
}

// NewExecutor creates an Executor.
func NewExecutor(fs afero.Fs, tree *fswatch.WatchTree, policy *filter.Policy,
	mapper PathMapper, client remote.Client, log logrus.FieldLogger) *Executor {
	return &Executor{
		fs:     fs,
		tree:   tree,
		policy: policy,
		mapper: mapper,
		client: client,
		log:    log,
	}
}

// Execute filters `action` and then performs it.
func (e *Executor) Execute(action Action) {
	if e.ignored(action.Path, action.IsDir) {
		e.log.WithField("path", action.Path).
			WithField("action", action.Kind).
			Info("Ignoring path")
		metrics.RecordFiltered()
		return
	}

	metrics.RecordAction(action.Kind.String())
	switch action.Kind {
	case CreateAction:
		if action.IsDir {
			e.createDir(action.Path)
		} else {
			// Files that are created in place are uploaded once they're
			// closed. A create without a close only happens when the file
			// was moved in from outside the tree.
			e.upload(action.Path)
		}
	case WriteAction:
		e.upload(action.Path)
	case DeleteAction:
		if action.IsDir {
			e.tree.RemoveRecursive(action.Path)
			e.run("Removed directory", "Failed to remove directory", action.Path, e.client.RemoveDir)
		} else {
			e.run("Removed file", "Failed to remove file", action.Path, e.client.Remove)
		}
	case RenameAction:
		e.renamePath(action)
	default:
		e.log.WithField("action", action).Warn("Unknown action")
	}

	metrics.SetWatchedDirectories(e.tree.Len())
}

func (e *Executor) ignored(path string, isDir bool) bool {
	_, err := e.fs.Stat(path)
	return e.policy.ShouldIgnore(path, isDir, err == nil)
}

// createDir watches the new directory, and mirrors it along with any
// subdirectories and files that already exist inside it. The directory may
// already have contents if it was moved in from outside the tree, or if
// files were created before the watch was added.
func (e *Executor) createDir(path string) {
	added := e.tree.AddRecursive(path)
	if len(added) == 0 {
		if e.tree.Watched(path) {
			e.log.WithField("path", path).Debug("Directory is already watched")
			return
		}
		// The watch couldn't be added, but the directory should still be
		// mirrored.
		added = []string{filepath.Clean(path)}
	}

	e.mirrorDirs(added)
}

// mirrorDirs creates each of `dirs` remotely, parents first, and uploads the
// files already inside them.
func (e *Executor) mirrorDirs(dirs []string) {
	for _, dir := range dirs {
		// The directory may already exist remotely, so its contents are
		// uploaded even if this fails.
		e.run("Created directory", "Failed to create directory", dir, e.client.MakeDir)

		files, err := afero.ReadDir(e.fs, dir)
		if err != nil {
			e.log.WithError(err).WithField("path", dir).Debug("Failed to list new directory")
			continue
		}

		for _, f := range files {
			if !f.Mode().IsRegular() {
				continue
			}

			filePath := filepath.Join(dir, f.Name())
			if e.policy.ShouldIgnore(filePath, false, true) {
				e.log.WithField("path", filePath).Info("Ignoring path")
				metrics.RecordFiltered()
				continue
			}
			e.upload(filePath)
		}
	}
}

func (e *Executor) upload(path string) {
	if fi, err := e.fs.Stat(path); err == nil && !fi.Mode().IsRegular() {
		e.log.WithField("path", path).
			WithField("mode", fi.Mode()).
			Debug("Skipping upload of irregular file")
		return
	} else if os.IsNotExist(err) {
		e.log.WithField("path", path).Debug("Skipping upload of removed file")
		return
	}

	remotePath := e.mapper.RemotePath(path)
	fields := logrus.Fields{"path": path, "remotePath": remotePath}
	if err := e.client.Upload(path, remotePath); err != nil {
		e.log.WithError(err).WithFields(fields).Error("Failed to upload file")
		return
	}
	e.log.WithFields(fields).Info("Uploaded file")
}

// renamePath mirrors a rename that happened inside the tree. If the remote
// rename fails, for example because the source was filtered out and never
// uploaded, the destination is uploaded instead.
func (e *Executor) renamePath(action Action) {
	var moved, added []string
	if action.IsDir {
		moved = e.tree.Move(action.From, action.Path)

		// Directories created inside the source before the rename was
		// processed aren't watched yet, and may be missing remotely.
		added = e.tree.AddRecursive(action.Path)
	}

	if e.rename(action.From, action.Path) {
		e.mirrorDirs(added)
		return
	}

	e.log.WithField("path", action.Path).Info("Uploading rename destination instead")
	if !action.IsDir {
		e.upload(action.Path)
		return
	}

	dirs := append(moved, added...)
	if len(dirs) == 0 {
		dirs = []string{filepath.Clean(action.Path)}
	}
	sort.Strings(dirs)
	e.mirrorDirs(dirs)
}

func (e *Executor) rename(from, to string) bool {
	remoteFrom, remoteTo := e.mapper.RemotePath(from), e.mapper.RemotePath(to)
	fields := logrus.Fields{
		"from":       from,
		"to":         to,
		"remoteFrom": remoteFrom,
		"remoteTo":   remoteTo,
	}
	if err := e.client.Rename(remoteFrom, remoteTo); err != nil {
		e.log.WithError(err).WithFields(fields).Error("Failed to rename")
		return false
	}
	e.log.WithFields(fields).Info("Renamed")
	return true
}

// run performs a single-path remote operation, and logs the result.
func (e *Executor) run(successMsg, failureMsg, path string, op func(string) error) {
	remotePath := e.mapper.RemotePath(path)
	fields := logrus.Fields{"path": path, "remotePath": remotePath}
	if err := op(remotePath); err != nil {
		e.log.WithError(err).WithFields(fields).Error(failureMsg)
		return
	}
	e.log.WithFields(fields).Info(successMsg)
}
