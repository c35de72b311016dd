package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecord(t *testing.T) {
	before := testutil.ToFloat64(actionsTotal.WithLabelValues("rename"))
	RecordAction("rename")
	assert.Equal(t, before+1, testutil.ToFloat64(actionsTotal.WithLabelValues("rename")))

	before = testutil.ToFloat64(remoteOperationsTotal.WithLabelValues("upload", "failure"))
	RecordRemoteOperation("upload", false, time.Second)
	assert.Equal(t, before+1, testutil.ToFloat64(remoteOperationsTotal.WithLabelValues("upload", "failure")))

	SetWatchedDirectories(3)
	assert.Equal(t, float64(3), testutil.ToFloat64(watchedDirectories))

	SetPendingMoves(2)
	assert.Equal(t, float64(2), testutil.ToFloat64(pendingMoves))
}

func TestServeDisabled(t *testing.T) {
	assert.NoError(t, Serve(context.Background(), ""))
}
