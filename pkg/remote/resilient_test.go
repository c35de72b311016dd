package remote_test

import (
	"context"
	"io"
	"io/ioutil"
	"testing"

	logrusTest "github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/sidkik/dirmirror/pkg/errors"
	"github.com/sidkik/dirmirror/pkg/remote"
	"github.com/sidkik/dirmirror/pkg/remote/mocks"
)

func newClient(t *testing.T, dialer remote.Dialer) (*remote.Resilient, afero.Fs) {
	fs := afero.NewMemMapFs()
	logger, _ := logrusTest.NewNullLogger()
	return remote.NewResilient(context.Background(), fs, dialer, logger), fs
}

func TestRetryOnce(t *testing.T) {
	tests := []struct {
		name          string
		firstErr      error
		retryErr      error
		dialErr       error
		expReconnects int
		expError      bool
	}{
		{
			name:          "Success",
			expReconnects: 0,
		},
		{
			name:          "Recovered by reconnecting",
			firstErr:      errors.New("connection reset"),
			expReconnects: 1,
		},
		{
			name:          "Retry fails",
			firstErr:      errors.New("connection reset"),
			retryErr:      errors.New("connection reset"),
			expReconnects: 1,
			expError:      true,
		},
		{
			name:          "Reconnect fails",
			firstErr:      errors.New("connection reset"),
			dialErr:       errors.New("connection refused"),
			expReconnects: 1,
			expError:      true,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			stale := &mocks.Session{}
			fresh := &mocks.Session{}
			dialer := &mocks.Dialer{}

			dialer.On("Dial", mock.Anything).Return(stale, nil).Once()
			client, _ := newClient(t, dialer)
			assert.NoError(t, client.Connect())

			stale.On("Delete", "a/b.txt").Return(test.firstErr).Once()
			stale.On("Close").Return(nil)
			if test.dialErr != nil {
				dialer.On("Dial", mock.Anything).Return(nil, test.dialErr).Once()
			} else {
				dialer.On("Dial", mock.Anything).Return(fresh, nil).Once()
			}
			fresh.On("Delete", "a/b.txt").Return(test.retryErr).Once()

			err := client.Remove("a/b.txt")
			if test.expError {
				var remoteErr errors.RemoteOperationError
				assert.True(t, errors.As(err, &remoteErr))
				assert.Equal(t, "delete", remoteErr.Op)
				assert.Equal(t, "a/b.txt", remoteErr.RemotePath)
			} else {
				assert.NoError(t, err)
			}

			dialer.AssertNumberOfCalls(t, "Dial", 1+test.expReconnects)
			stale.AssertNumberOfCalls(t, "Delete", 1)
			stale.AssertNumberOfCalls(t, "Close", test.expReconnects)
			if test.expReconnects > 0 && test.dialErr == nil {
				fresh.AssertNumberOfCalls(t, "Delete", 1)
			} else {
				fresh.AssertNotCalled(t, "Delete", mock.Anything)
			}
		})
	}
}

func TestNotConnected(t *testing.T) {
	session := &mocks.Session{}
	dialer := &mocks.Dialer{}
	client, _ := newClient(t, dialer)

	// The first operation dials because there's no session yet.
	dialer.On("Dial", mock.Anything).Return(session, nil).Once()
	session.On("MakeDir", "dir").Return(nil).Once()
	assert.NoError(t, client.MakeDir("dir"))
	dialer.AssertNumberOfCalls(t, "Dial", 1)

	// The session is reused afterwards.
	session.On("Rename", "a", "b").Return(nil).Once()
	assert.NoError(t, client.Rename("a", "b"))
	dialer.AssertNumberOfCalls(t, "Dial", 1)
}

func TestUpload(t *testing.T) {
	tests := []struct {
		name     string
		contents []byte
		expMode  remote.TransferMode
	}{
		{
			name:     "Text",
			contents: []byte("line one\nline two\n"),
			expMode:  remote.Text,
		},
		{
			name:     "Empty",
			contents: nil,
			expMode:  remote.Text,
		},
		{
			name:     "Binary",
			contents: []byte{0x89, 'P', 'N', 'G', 0, 0, 0, 0x0d},
			expMode:  remote.Binary,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			session := &mocks.Session{}
			dialer := &mocks.Dialer{}
			dialer.On("Dial", mock.Anything).Return(session, nil)
			client, fs := newClient(t, dialer)
			assert.NoError(t, afero.WriteFile(fs, "/root/file", test.contents, 0644))

			var stored []byte
			session.On("Store", "file", mock.Anything, test.expMode).
				Run(func(args mock.Arguments) {
					stored, _ = ioutil.ReadAll(args.Get(1).(io.Reader))
				}).Return(nil).Once()

			assert.NoError(t, client.Upload("/root/file", "file"))
			assert.Equal(t, string(test.contents), string(stored))
			session.AssertExpectations(t)
		})
	}
}

func TestUploadUnreadable(t *testing.T) {
	session := &mocks.Session{}
	dialer := &mocks.Dialer{}
	dialer.On("Dial", mock.Anything).Return(session, nil).Once()
	client, _ := newClient(t, dialer)
	assert.NoError(t, client.Connect())

	// A missing local file is reported without reconnecting.
	err := client.Upload("/root/missing", "missing")
	assert.Error(t, err)
	assert.True(t, remote.IsPermanent(err))
	dialer.AssertNumberOfCalls(t, "Dial", 1)
	session.AssertNotCalled(t, "Store", mock.Anything, mock.Anything, mock.Anything)
	session.AssertNotCalled(t, "Close")
}

func TestClose(t *testing.T) {
	session := &mocks.Session{}
	dialer := &mocks.Dialer{}
	dialer.On("Dial", mock.Anything).Return(session, nil).Once()
	session.On("Close").Return(nil).Once()

	client, _ := newClient(t, dialer)
	assert.NoError(t, client.Close())
	assert.NoError(t, client.Connect())
	assert.NoError(t, client.Close())
	assert.NoError(t, client.Close())
	session.AssertNumberOfCalls(t, "Close", 1)
}
