package metrics

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordPass(t *testing.T) {
	slots := testutil.ToFloat64(SlotsForwardedTotal.WithLabelValues("test_dir"))
	bytes := testutil.ToFloat64(BytesForwardedTotal.WithLabelValues("test_dir"))
	full := testutil.ToFloat64(PassesTotal.WithLabelValues("test_dir", "sink_full"))

	RecordPass("test_dir", "sink_full", 3, 1692, time.Microsecond)
	RecordPass("test_dir", "idle", 0, 0, time.Microsecond)

	assert.Equal(t, slots+3, testutil.ToFloat64(SlotsForwardedTotal.WithLabelValues("test_dir")))
	assert.Equal(t, bytes+1692, testutil.ToFloat64(BytesForwardedTotal.WithLabelValues("test_dir")))
	assert.Equal(t, full+1, testutil.ToFloat64(PassesTotal.WithLabelValues("test_dir", "sink_full")))
	assert.Equal(t, 1.0, testutil.ToFloat64(PassesTotal.WithLabelValues("test_dir", "idle")))
}

func TestServerServesMetrics(t *testing.T) {
	PollTotal.WithLabelValues(PollTimeout).Inc()

	s := NewServer("127.0.0.1:0", "")
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	resp, err := http.Get("http://" + s.Addr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `nmbridge_poll_total{result="timeout"}`))
}

func TestServerListenError(t *testing.T) {
	s := NewServer("256.0.0.1:bad", "/metrics")
	assert.Error(t, s.Start(context.Background()))
	assert.NoError(t, s.Stop(context.Background()))
}

func TestStopWithoutStart(t *testing.T) {
	assert.NoError(t, NewServer(":0", "/m").Stop(context.Background()))
}
