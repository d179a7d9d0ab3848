package report

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psantana5/procwatch/internal/discover"
)

var now = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func testSession() *discover.Session {
	s := discover.NewSession("worker", now.Add(-time.Minute))
	s.Phase = discover.PhaseMonitoring
	s.Tracked[20] = discover.TrackedProcess{PID: 20, Name: "worker", StartTime: now.Add(-90 * time.Second), TimeoutCount: 1}
	s.Tracked[10] = discover.TrackedProcess{PID: 10, Name: "worker", StartTime: now.Add(-time.Hour)}
	return s
}

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()
	m.RecordEvent("process_end_notification")
	m.RecordEvent("process_end_notification")
	m.RecordNotification("process_end_notification", "sent")
	m.RecordAttempt("process_end_notification", errors.New("x"))
	m.RecordExternal("end", nil)
	m.SetTracked(2)
	m.SetPhase(discover.PhaseMonitoring)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.events.WithLabelValues("process_end_notification")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.attempts.WithLabelValues("process_end_notification", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.external.WithLabelValues("end", "started")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.tracked))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.phase.WithLabelValues("monitoring")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.phase.WithLabelValues("waiting_for_start")))
}

func TestMetrics_RecordOverruns(t *testing.T) {
	m := NewMetrics()
	m.RecordOverruns(discover.PhaseMonitoring, 2)
	m.RecordOverruns(discover.PhaseMonitoring, 1)
	m.RecordOverruns(discover.PhaseWaiting, 0)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.overruns.WithLabelValues("monitoring")))

	n, err := testutil.GatherAndCount(m.Registry(), "procwatch_tick_overruns_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMetrics_WatchScanner(t *testing.T) {
	m := NewMetrics()
	var sm discover.ScanMetrics
	m.WatchScanner(&sm)

	sm.Scans.Add(3)
	sm.Vanished.Add(1)

	out, err := testutil.GatherAndCount(m.Registry(), "procwatch_scans_total", "procwatch_scan_skipped_total")
	require.NoError(t, err)
	assert.Equal(t, 4, out) // one scans series, three skipped series

	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(`
# HELP procwatch_scans_total Process table scans
# TYPE procwatch_scans_total counter
procwatch_scans_total 3
`), "procwatch_scans_total"))
}

func TestNewStatus(t *testing.T) {
	st := NewStatus(testSession(), now, "process_timeout_warning")

	assert.Equal(t, "worker", st.ProcessName)
	assert.Equal(t, discover.PhaseMonitoring, st.Phase)
	require.Len(t, st.Tracked, 2)
	assert.Equal(t, int32(10), st.Tracked[0].PID)
	assert.Equal(t, "01:00:00", st.Tracked[0].RunTime)
	assert.Equal(t, "00:01:30", st.Tracked[1].RunTime)
	assert.Equal(t, 1, st.Tracked[1].TimeoutCount)
}

func TestStatusBoard_GetReturnsCopy(t *testing.T) {
	b := NewStatusBoard()
	_, ok := b.Get()
	assert.False(t, ok)

	b.Publish(NewStatus(testSession(), now, ""))
	st, ok := b.Get()
	require.True(t, ok)
	st.Tracked[0].Name = "changed"

	again, _ := b.Get()
	assert.Equal(t, "worker", again.Tracked[0].Name)
}

func TestRouter(t *testing.T) {
	m := NewMetrics()
	m.SetTracked(2)
	board := NewStatusBoard()
	srv := httptest.NewServer(Router(m, board, nil))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/status")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	board.Publish(NewStatus(testSession(), now, ""))
	resp, err = http.Get(srv.URL + "/status")
	require.NoError(t, err)
	var st Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	resp.Body.Close()
	assert.Len(t, st.Tracked, 2)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), "procwatch_tracked_processes 2")

	resp, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/healthz", "text/plain", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestRouter_Healthz(t *testing.T) {
	health := discover.NewHealthCheck(2)
	srv := httptest.NewServer(Router(NewMetrics(), NewStatusBoard(), health))
	defer srv.Close()

	get := func() (int, discover.HealthReport) {
		resp, err := http.Get(srv.URL + "/healthz")
		require.NoError(t, err)
		defer resp.Body.Close()
		var r discover.HealthReport
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&r))
		return resp.StatusCode, r
	}

	code, r := get()
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", r.Status)

	health.RecordScanFailure(discover.NewDiscoveryError(discover.ErrorTypeTransient, "scan", 0, "list processes", errors.New("boom")))
	code, r = get()
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "degraded", r.Status)

	health.RecordScanFailure(nil)
	code, r = get()
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", r.Status)
	assert.Equal(t, 2, r.ConsecutiveFailures)
}

func TestWriteTextfile(t *testing.T) {
	m := NewMetrics()
	m.RecordEvent("process_wait_timeout_warning")

	path := filepath.Join(t.TempDir(), "procwatch.prom")
	require.NoError(t, WriteTextfile(m.Registry(), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `procwatch_events_total{kind="process_wait_timeout_warning"} 1`)

	matches, _ := filepath.Glob(path + ".*.tmp")
	assert.Empty(t, matches)
}

func TestServer_StartAndShutdown(t *testing.T) {
	srv := NewServer("127.0.0.1:0", NewMetrics(), NewStatusBoard(), nil, nil)
	require.NoError(t, srv.Start())
	assert.NoError(t, srv.Shutdown(context.Background()))

	bad := NewServer("256.0.0.1:1", NewMetrics(), NewStatusBoard(), nil, nil)
	assert.Error(t, bad.Start())
}
