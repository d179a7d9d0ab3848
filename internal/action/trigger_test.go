package action

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkDir(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "run.sh")
	require.NoError(t, os.WriteFile(file, []byte("exit 0\n"), 0755))

	getwd := func() (string, error) { return "/cwd", nil }

	assert.Equal(t, dir, WorkDir(file, getwd))
	assert.Equal(t, dir, WorkDir(dir, getwd))
	assert.Equal(t, "/cwd", WorkDir(filepath.Join(dir, "missing"), getwd))
	assert.Equal(t, ".", WorkDir(filepath.Join(dir, "missing"), func() (string, error) { return "", errors.New("gone") }))
}

func TestCommand_ByExtension(t *testing.T) {
	tr := NewTrigger(nil)

	tests := []struct {
		path string
		args []string
	}{
		{`C:\jobs\end.bat`, []string{"cmd.exe", "/c", `C:\jobs\end.bat`}},
		{`C:\jobs\END.CMD`, []string{"cmd.exe", "/c", `C:\jobs\END.CMD`}},
		{"/opt/jobs/end.sh", []string{"/bin/sh", "/opt/jobs/end.sh"}},
		{`C:\jobs\end.ps1`, []string{"powershell", "-NoProfile", "-ExecutionPolicy", "Bypass", "-File", `C:\jobs\end.ps1`}},
		{"/opt/jobs/end", []string{"/opt/jobs/end"}},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.args, tr.Command(tt.path).Args)
		})
	}
}

func TestFallback_ByPlatform(t *testing.T) {
	tr := NewTrigger(nil)

	tr.goos = "windows"
	assert.Equal(t, []string{"cmd", "/c", "start", "", "x"}, tr.Fallback("x").Args)
	tr.goos = "darwin"
	assert.Equal(t, []string{"open", "x"}, tr.Fallback("x").Args)
	tr.goos = "linux"
	assert.Equal(t, []string{"xdg-open", "x"}, tr.Fallback("x").Args)
	tr.goos = "plan9"
	assert.Nil(t, tr.Fallback("x"))
}

func recordingTrigger(results ...error) (*Trigger, *[]*exec.Cmd) {
	tr := NewTrigger(nil)
	tr.goos = "linux"
	var started []*exec.Cmd
	tr.start = func(cmd *exec.Cmd) error {
		started = append(started, cmd)
		if len(results) == 0 {
			return nil
		}
		err := results[0]
		results = results[1:]
		return err
	}
	return tr, &started
}

func TestLaunch_SetsWorkDir(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "end.sh")
	require.NoError(t, os.WriteFile(file, []byte("exit 0\n"), 0755))

	tr, started := recordingTrigger()
	require.NoError(t, tr.Launch(file))

	require.Len(t, *started, 1)
	assert.Equal(t, dir, (*started)[0].Dir)
	assert.Equal(t, []string{"/bin/sh", file}, (*started)[0].Args)
}

func TestLaunch_FallbackOnFailure(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "report.txt")
	require.NoError(t, os.WriteFile(file, []byte("hi"), 0644))

	tr, started := recordingTrigger(errors.New("permission denied"))
	require.NoError(t, tr.Launch(file))

	require.Len(t, *started, 2)
	assert.Equal(t, []string{"xdg-open", file}, (*started)[1].Args)
	assert.Equal(t, dir, (*started)[1].Dir)
}

func TestLaunch_FallbackAlsoFails(t *testing.T) {
	file := filepath.Join(t.TempDir(), "report.txt")
	require.NoError(t, os.WriteFile(file, []byte("hi"), 0644))

	primary := errors.New("permission denied")
	tr, started := recordingTrigger(primary, errors.New("no opener"))

	err := tr.Launch(file)
	var le *LaunchError
	require.ErrorAs(t, err, &le)
	assert.ErrorIs(t, err, primary)
	assert.Error(t, le.FallbackErr)
	assert.Len(t, *started, 2)
}

func TestLaunch_MissingFile(t *testing.T) {
	tr, started := recordingTrigger()

	err := tr.Launch(filepath.Join(t.TempDir(), "nope.sh"))
	var le *LaunchError
	require.ErrorAs(t, err, &le)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Empty(t, *started)

	assert.Error(t, tr.Launch("  "))
}

func TestLaunch_RunsScriptDetached(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses /bin/sh")
	}

	dir := t.TempDir()
	script := filepath.Join(dir, "touch.sh")
	require.NoError(t, os.WriteFile(script, []byte("echo done > marker\n"), 0644))

	require.NoError(t, NewTrigger(nil).Launch(script))

	// relative path resolves against the script's directory
	assert.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(dir, "marker"))
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)
}
