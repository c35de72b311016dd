package daemon

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/dirmirror/pkg/errors"
)

const pidFile = "/var/run/dirmirror.pid"

type fakeProcesses struct {
	alive      map[int]bool
	terminated []int

	// exitOnTerminate controls whether processes exit when signalled.
	exitOnTerminate bool
}

func (f *fakeProcesses) Exists(pid int) (bool, error) {
	return f.alive[pid], nil
}

func (f *fakeProcesses) Terminate(pid int) error {
	f.terminated = append(f.terminated, pid)
	if f.exitOnTerminate {
		delete(f.alive, pid)
	}
	return nil
}

func setup(t *testing.T, alive ...int) *fakeProcesses {
	fs = afero.NewMemMapFs()
	fake := &fakeProcesses{alive: map[int]bool{}, exitOnTerminate: true}
	for _, pid := range alive {
		fake.alive[pid] = true
	}
	procs = fake
	stopTimeout = 50 * time.Millisecond
	startTimeout = 50 * time.Millisecond
	stopPollInterval = time.Millisecond
	return fake
}

func TestPIDFile(t *testing.T) {
	setup(t)

	_, err := ReadPID(pidFile)
	assert.Equal(t, errors.FileNotFound{Path: pidFile}, err)

	require.NoError(t, WritePID(pidFile, 1234))
	pid, err := ReadPID(pidFile)
	assert.NoError(t, err)
	assert.Equal(t, 1234, pid)

	require.NoError(t, RemovePID(pidFile))
	require.NoError(t, RemovePID(pidFile))
	_, err = ReadPID(pidFile)
	assert.Error(t, err)

	require.NoError(t, afero.WriteFile(fs, pidFile, []byte("garbage"), 0644))
	_, err = ReadPID(pidFile)
	assert.Error(t, err)
}

func TestStop(t *testing.T) {
	fake := setup(t, 1234)
	require.NoError(t, WritePID(pidFile, 1234))

	pid, err := Stop(pidFile)
	assert.NoError(t, err)
	assert.Equal(t, 1234, pid)
	assert.Equal(t, []int{1234}, fake.terminated)

	exists, _ := afero.Exists(fs, pidFile)
	assert.False(t, exists)
}

func TestStopNotRunning(t *testing.T) {
	setup(t)

	_, err := Stop(pidFile)
	assert.Error(t, err)
}

func TestStopStalePIDFile(t *testing.T) {
	fake := setup(t)
	require.NoError(t, WritePID(pidFile, 1234))

	pid, err := Stop(pidFile)
	assert.NoError(t, err)
	assert.Equal(t, 1234, pid)
	assert.Empty(t, fake.terminated)

	exists, _ := afero.Exists(fs, pidFile)
	assert.False(t, exists)
}

func TestStopTimeout(t *testing.T) {
	fake := setup(t, 1234)
	fake.exitOnTerminate = false
	require.NoError(t, WritePID(pidFile, 1234))

	_, err := Stop(pidFile)
	assert.Error(t, err)

	// The PID file is kept since the daemon is still alive.
	exists, _ := afero.Exists(fs, pidFile)
	assert.True(t, exists)
}

func TestRunning(t *testing.T) {
	setup(t, 1234)

	_, running, err := Running(pidFile)
	assert.NoError(t, err)
	assert.False(t, running)

	require.NoError(t, WritePID(pidFile, 1234))
	pid, running, err := Running(pidFile)
	assert.NoError(t, err)
	assert.True(t, running)
	assert.Equal(t, 1234, pid)
}

func TestWaitForPID(t *testing.T) {
	setup(t)

	// The daemon never wrote its PID, for example because its config was
	// invalid.
	assert.Error(t, WaitForPID(pidFile, 1234))

	// A PID file left by another process doesn't count.
	require.NoError(t, WritePID(pidFile, 99))
	assert.Error(t, WaitForPID(pidFile, 1234))

	require.NoError(t, WritePID(pidFile, 1234))
	assert.NoError(t, WaitForPID(pidFile, 1234))
}

func TestSpawn(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "daemon.log")
	pid, err := Spawn("/bin/sh", []string{"-c", "echo started"}, logPath)
	require.NoError(t, err)
	assert.NotZero(t, pid)

	_, err = Spawn(filepath.Join(t.TempDir(), "missing"), nil, logPath)
	assert.Error(t, err)
}
