package sync

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/dirmirror/pkg/errors"
	"github.com/sidkik/dirmirror/pkg/filter"
	"github.com/sidkik/dirmirror/pkg/fswatch"
	"github.com/sidkik/dirmirror/pkg/metrics"
	"github.com/sidkik/dirmirror/pkg/remote"
)

// minExpiryInterval bounds how often pending moves are checked for expiry.
const minExpiryInterval = time.Millisecond

// Config contains the dependencies of an Engine.
type Config struct {
	// Root is the local directory to mirror.
	Root string

	// MoveWindow is how long to wait for the destination of a move. Defaults
	// to DefaultMoveWindow.
	MoveWindow time.Duration

	Policy *filter.Policy
	Client remote.Client
	Source fswatch.Source

	Fs    afero.Fs
	Clock clockwork.Clock
	Log   logrus.FieldLogger
}

// Engine consumes notifications from the watch source and mirrors them. All
// of its state is owned by the goroutine that calls Run.
type Engine struct {
	root       string
	window     time.Duration
	source     fswatch.Source
	tree       *fswatch.WatchTree
	correlator *RenameCorrelator
	executor   *Executor
	clock      clockwork.Clock
	log        logrus.FieldLogger
}

// New creates an Engine. Nothing is watched until Run is called.
func New(config Config) *Engine {
	if config.MoveWindow <= 0 {
		config.MoveWindow = DefaultMoveWindow
	}
	if config.Clock == nil {
		config.Clock = clockwork.NewRealClock()
	}
	if config.Fs == nil {
		config.Fs = afero.NewOsFs()
	}
	if config.Log == nil {
		config.Log = logrus.StandardLogger()
	}
	if config.Policy == nil {
		config.Policy, _ = filter.NewPolicy("", "", nil)
	}

	tree := fswatch.NewWatchTree(config.Fs, config.Source, config.Log)
	return &Engine{
		root:       config.Root,
		window:     config.MoveWindow,
		source:     config.Source,
		tree:       tree,
		correlator: NewRenameCorrelator(config.Clock, config.MoveWindow),
		executor: NewExecutor(config.Fs, tree, config.Policy,
			NewPathMapper(config.Root), config.Client, config.Log),
		clock: config.Clock,
		log:   config.Log,
	}
}

// Run watches the tree and mirrors changes until `ctx` is cancelled. It only
// returns an error if the root can't be watched, or the source stops.
func (e *Engine) Run(ctx context.Context) error {
	e.tree.AddRecursive(e.root)
	if !e.tree.Watched(e.root) {
		return errors.WatchError{Op: "add", Path: e.root, Err: errors.New("failed to watch root")}
	}
	metrics.SetWatchedDirectories(e.tree.Len())
	e.log.WithField("path", e.root).
		WithField("directories", e.tree.Len()).
		Info("Watching for changes")

	// Tick more often than the window so that moves expire close to on time
	// even when no other events arrive.
	interval := e.window / 2
	if interval < minExpiryInterval {
		interval = minExpiryInterval
	}
	ticker := e.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if n := e.correlator.Len(); n > 0 {
				e.log.WithField("pending", n).Debug("Dropping uncorrelated moves")
			}
			return nil
		case ev, ok := <-e.source.Events():
			if !ok {
				return errors.New("watch source closed")
			}
			e.handleEvent(ev)
		case err, ok := <-e.source.Errors():
			if !ok {
				return errors.New("watch source closed")
			}
			e.handleError(err)
		case <-ticker.Chan():
			e.expire()
		}
	}
}

func (e *Engine) handleEvent(ev fswatch.Event) {
	e.expire()

	// Resolve the path now rather than when the event was read, so that
	// events from inside a renamed directory follow it.
	path, ok := e.tree.Resolve(ev)
	if !ok {
		e.log.WithField("op", ev.Op).
			WithField("name", ev.Name).
			Debug("Dropping event from a directory that's no longer watched")
		return
	}

	e.log.WithFields(logrus.Fields{
		"op":    ev.Op,
		"path":  path,
		"isDir": ev.IsDir,
	}).Debug("Received event")

	var actions []Action
	switch ev.Op {
	case fswatch.Create:
		// Files are uploaded when they're closed after writing.
		if ev.IsDir {
			actions = append(actions, Create(path, true))
		}
	case fswatch.CloseWrite:
		if !ev.IsDir {
			actions = append(actions, Write(path))
		}
	case fswatch.Delete:
		actions = append(actions, Delete(path, ev.IsDir))
	case fswatch.MovedFrom:
		actions = append(actions, e.correlator.MovedFrom(ev.Cookie, path, ev.IsDir)...)
	case fswatch.MovedTo:
		actions = append(actions, e.correlator.MovedTo(ev.Cookie, path, ev.IsDir))
	default:
		e.log.WithField("op", ev.Op).Warn("Unknown event")
	}

	for _, action := range actions {
		e.execute(action)
	}
	metrics.SetPendingMoves(e.correlator.Len())
}

func (e *Engine) handleError(err error) {
	if errors.Is(err, fswatch.ErrOverflow) {
		metrics.RecordOverflow()
		e.log.WithError(err).Error("Notification queue overflowed. " +
			"Some changes were not mirrored.")
		return
	}
	e.log.WithError(err).Warn("Watch error")
}

// expire turns moves that were never completed into deletes.
func (e *Engine) expire() {
	for _, action := range e.correlator.Expire() {
		e.log.WithField("path", action.Path).Debug("Move left the watched tree")
		e.execute(action)
	}
	metrics.SetPendingMoves(e.correlator.Len())
}

func (e *Engine) execute(action Action) {
	e.log.WithField("action", action).Debug("Executing action")
	e.executor.Execute(action)
}
