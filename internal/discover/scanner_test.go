package discover

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProc struct {
	pid     int32
	name    string
	nameErr error
	created int64
	ctErr   error
	ctReads *int
}

func (f fakeProc) PID() int32 { return f.pid }

func (f fakeProc) Name(context.Context) (string, error) { return f.name, f.nameErr }

func (f fakeProc) CreateTime(context.Context) (int64, error) {
	if f.ctReads != nil {
		*f.ctReads++
	}
	return f.created, f.ctErr
}

func fakeScanner(procs ...procHandle) *Scanner {
	s := NewScanner(nil)
	s.ownPID = 1
	s.list = func(context.Context) ([]procHandle, error) { return procs, nil }
	return s
}

func TestScanner_FiltersByName(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var reads int
	s := fakeScanner(
		fakeProc{pid: 10, name: "worker", created: created.UnixMilli()},
		fakeProc{pid: 11, name: "other", ctReads: &reads},
		fakeProc{pid: 12, name: "worker", created: created.UnixMilli()},
	)

	snap := s.Snapshot(context.Background(), "worker")
	assert.Equal(t, []int32{10, 12}, snap.PIDs())
	assert.True(t, snap[10].CreateTime.Equal(created))
	assert.Zero(t, reads, "non-matching processes are not inspected further")
}

func TestScanner_ExcludesSelf(t *testing.T) {
	s := fakeScanner(fakeProc{pid: 1, name: "procwatch"}, fakeProc{pid: 2, name: "procwatch"})
	assert.Equal(t, []int32{2}, s.Snapshot(context.Background(), "procwatch").PIDs())
}

func TestScanner_SkipsUnreadableProcesses(t *testing.T) {
	s := fakeScanner(
		fakeProc{pid: 2, nameErr: process.ErrorProcessNotRunning},
		fakeProc{pid: 3, name: "worker", ctErr: &fs.PathError{Op: "open", Path: "/proc/3/stat", Err: fs.ErrPermission}},
		fakeProc{pid: 4, name: "worker", ctErr: errors.New("weird")},
		fakeProc{pid: 5, name: "worker"},
	)

	snap := s.Snapshot(context.Background(), "worker")
	assert.Equal(t, []int32{5}, snap.PIDs())

	m := s.Metrics()
	assert.EqualValues(t, 1, m.Vanished.Load())
	assert.EqualValues(t, 1, m.AccessDenied.Load())
	assert.EqualValues(t, 1, m.OtherSkipped.Load())
}

func TestScanner_ListFailureIsEmptySnapshot(t *testing.T) {
	s := NewScanner(nil)
	s.list = func(context.Context) ([]procHandle, error) { return nil, errors.New("boom") }

	snap := s.Snapshot(context.Background(), "worker")
	require.NotNil(t, snap)
	assert.Empty(t, snap)
	assert.EqualValues(t, 1, s.Metrics().ListFailures.Load())
	assert.Equal(t, HealthStatusHealthy, s.Health().Status())
}

func TestScanner_HealthFollowsListFailures(t *testing.T) {
	fail := true
	s := NewScanner(nil)
	s.list = func(context.Context) ([]procHandle, error) {
		if fail {
			return nil, errors.New("boom")
		}
		return nil, nil
	}

	for i := 0; i < 3; i++ {
		s.Snapshot(context.Background(), "worker")
	}
	assert.Equal(t, HealthStatusDegraded, s.Health().Status())

	for i := 0; i < 2; i++ {
		s.Snapshot(context.Background(), "worker")
	}
	assert.False(t, s.Health().IsHealthy())
	r := s.Health().Report()
	assert.Equal(t, "unhealthy", r.Status)
	assert.Equal(t, 5, r.ConsecutiveFailures)
	assert.Contains(t, r.LastError, "boom")

	fail = false
	s.Snapshot(context.Background(), "worker")
	assert.Equal(t, HealthStatusHealthy, s.Health().Status())
	assert.EqualValues(t, 5, s.Health().Report().TotalFailures)
}

func TestHealthCheck_Thresholds(t *testing.T) {
	hc := NewHealthCheck(1)
	assert.True(t, hc.IsHealthy())
	hc.RecordScanFailure(nil)
	assert.Equal(t, HealthStatusUnhealthy, hc.Status())
	assert.Empty(t, hc.Report().LastError)
	hc.RecordScanSuccess()
	assert.True(t, hc.IsHealthy())
	assert.Equal(t, "degraded", HealthStatusDegraded.String())
}

func TestScanner_CaseFolding(t *testing.T) {
	s := fakeScanner(fakeProc{pid: 2, name: "Notepad.EXE"})
	assert.Empty(t, s.Snapshot(context.Background(), "notepad.exe"))

	s.foldCase = true
	assert.Len(t, s.Snapshot(context.Background(), "notepad.exe"), 1)
}

func TestErrorClassifier(t *testing.T) {
	var c ErrorClassifier
	assert.Equal(t, ErrorTypeVanished, c.Classify(fmt.Errorf("read: %w", fs.ErrNotExist)))
	assert.Equal(t, ErrorTypeAccessDenied, c.Classify(errors.New("Access is denied.")))
	assert.Equal(t, ErrorTypeTransient, c.Classify(NewDiscoveryError(ErrorTypeTransient, "scan", 0, "list", nil)))
	assert.Equal(t, ErrorTypeUnknown, c.Classify(errors.New("weird")))
	assert.Equal(t, "access_denied", ErrorTypeAccessDenied.String())
}

func TestScanner_RealProcess(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("uses a shell script")
	}

	// a uniquely named script so other processes on the host do not match
	bin := filepath.Join(t.TempDir(), "pwsleep")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\nwhile :; do sleep 1; done\n"), 0755))

	cmd := exec.Command(bin)
	require.NoError(t, cmd.Start())
	defer func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	}()

	s := NewScanner(nil)
	var snap Snapshot
	require.Eventually(t, func() bool {
		snap = s.Snapshot(context.Background(), "pwsleep")
		return len(snap) == 1
	}, 5*time.Second, 50*time.Millisecond)

	info := snap[int32(cmd.Process.Pid)]
	assert.Equal(t, "pwsleep", info.Name)
	assert.WithinDuration(t, time.Now(), info.CreateTime, time.Minute)
}
