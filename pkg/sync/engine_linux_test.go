package sync

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logrusTest "github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/dirmirror/pkg/fswatch"
	"github.com/sidkik/dirmirror/pkg/remote/mocks"
)

// startEngine runs an engine on a real notification source until the test
// finishes. Expectations on the returned client must be set before the
// directory is modified.
func startEngine(t *testing.T) (string, *mocks.Client) {
	root := t.TempDir()
	src, err := fswatch.NewSource()
	require.NoError(t, err)

	client := &mocks.Client{}
	logger, hook := logrusTest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	engine := New(Config{
		Root:   root,
		Client: client,
		Source: src,
		Fs:     afero.NewOsFs(),
		Log:    logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- engine.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
		src.Close()
	})

	require.Eventually(t, func() bool {
		for _, entry := range hook.AllEntries() {
			if entry.Message == "Watching for changes" {
				return true
			}
		}
		return false
	}, 5*time.Second, 10*time.Millisecond)
	return root, client
}

func notify(ch chan<- struct{}) func(mock.Arguments) {
	return func(mock.Arguments) {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func waitFor(t *testing.T, ch <-chan struct{}, what string) {
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestWriteAfterDirectoryRename(t *testing.T) {
	root, client := startEngine(t)

	created := make(chan struct{}, 1)
	uploaded := make(chan struct{}, 1)
	client.On("MakeDir", "a").Run(notify(created)).Return(nil)
	client.On("Rename", "a", "c").Return(nil)
	client.On("Upload", filepath.Join(root, "c", "f.txt"), "c/f.txt").
		Run(notify(uploaded)).Return(nil)

	require.NoError(t, os.Mkdir(filepath.Join(root, "a"), 0755))
	waitFor(t, created, "mkdir")

	// The write is queued before the rename is processed, so it's reported
	// by the watch that was added for `a`.
	require.NoError(t, os.Rename(filepath.Join(root, "a"), filepath.Join(root, "c")))
	require.NoError(t, os.WriteFile(filepath.Join(root, "c", "f.txt"), []byte("f"), 0644))
	waitFor(t, uploaded, "upload")

	client.AssertCalled(t, "Rename", "a", "c")
}

func TestWriteAfterNestedMkdir(t *testing.T) {
	root, client := startEngine(t)

	uploaded := make(chan struct{}, 1)
	client.On("MakeDir", "a").Return(nil)
	client.On("MakeDir", "a/b").Return(nil)
	client.On("MakeDir", "a/b/c").Return(nil)
	client.On("Upload", filepath.Join(root, "a", "b", "c", "f.txt"), "a/b/c/f.txt").
		Run(notify(uploaded)).Return(nil)

	require.NoError(t, os.MkdirAll(filepath.Join(root, "a", "b", "c"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a", "b", "c", "f.txt"), []byte("f"), 0644))
	waitFor(t, uploaded, "upload")

	// Every level is created before the file inside it is uploaded.
	client.AssertCalled(t, "MakeDir", "a")
	client.AssertCalled(t, "MakeDir", "a/b")
	client.AssertCalled(t, "MakeDir", "a/b/c")
}
