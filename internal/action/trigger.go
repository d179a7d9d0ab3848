package action

// The launched program is never waited on by the caller and is not tied
// to the monitor's lifetime. Only failures to start it are reported.

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/psantana5/procwatch/internal/logging"
)

// LaunchError is returned when neither the program nor the open fallback
// could be started
type LaunchError struct {
	Path        string
	Err         error
	FallbackErr error
}

func (e *LaunchError) Error() string {
	if e.FallbackErr != nil {
		return fmt.Sprintf("failed to launch %s: %v (fallback: %v)", e.Path, e.Err, e.FallbackErr)
	}
	return fmt.Sprintf("failed to launch %s: %v", e.Path, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// Trigger launches external programs
type Trigger struct {
	logger *logging.Logger
	goos   string
	getwd  func() (string, error)
	// start begins cmd; the child is reaped in the background
	start func(cmd *exec.Cmd) error
}

// NewTrigger creates a trigger for the current platform
func NewTrigger(logger *logging.Logger) *Trigger {
	if logger == nil {
		logger = logging.Discard()
	}
	t := &Trigger{
		logger: logger,
		goos:   runtime.GOOS,
		getwd:  os.Getwd,
	}
	t.start = t.startDetached
	return t
}

// Launch starts path detached from the monitor. Scripts run through the
// platform interpreter chosen by extension. If the primary launch fails one
// platform "open" fallback is tried.
func (t *Trigger) Launch(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return &LaunchError{Path: path, Err: fmt.Errorf("empty path")}
	}
	if _, err := os.Stat(path); err != nil {
		return &LaunchError{Path: path, Err: err}
	}
	// a bare file name must not be looked up in PATH
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	dir := WorkDir(path, t.getwd)
	log := t.logger.WithField("program", path)

	cmd := t.Command(path)
	cmd.Dir = dir
	err := t.start(cmd)
	if err == nil {
		log.Info("External program started", map[string]interface{}{
			"pid":     pidOf(cmd),
			"workdir": dir,
		})
		return nil
	}

	log.Warn("External program failed to start, trying fallback", map[string]interface{}{"error": err.Error()})

	fb := t.Fallback(path)
	if fb == nil {
		return &LaunchError{Path: path, Err: err}
	}
	fb.Dir = dir
	if fbErr := t.start(fb); fbErr != nil {
		return &LaunchError{Path: path, Err: err, FallbackErr: fbErr}
	}

	log.Info("External program opened via fallback", map[string]interface{}{"opener": fb.Path})
	return nil
}

// Command builds the primary launch command for path
func (t *Trigger) Command(path string) *exec.Cmd {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".bat", ".cmd":
		return exec.Command("cmd.exe", "/c", path)
	case ".sh":
		return exec.Command("/bin/sh", path)
	case ".ps1":
		return exec.Command("powershell", "-NoProfile", "-ExecutionPolicy", "Bypass", "-File", path)
	default:
		return exec.Command(path)
	}
}

// Fallback builds the platform "open" command, or nil when there is none
func (t *Trigger) Fallback(path string) *exec.Cmd {
	switch t.goos {
	case "windows":
		return exec.Command("cmd", "/c", "start", "", path)
	case "darwin":
		return exec.Command("open", path)
	case "linux", "freebsd", "openbsd", "netbsd":
		return exec.Command("xdg-open", path)
	default:
		return nil
	}
}

// WorkDir resolves the working directory for path: the containing
// directory of a file, the path itself for a directory, otherwise the
// current working directory.
func WorkDir(path string, getwd func() (string, error)) string {
	if info, err := os.Stat(path); err == nil {
		if info.IsDir() {
			return path
		}
		return filepath.Dir(path)
	}
	if getwd != nil {
		if wd, err := getwd(); err == nil {
			return wd
		}
	}
	return "."
}

func (t *Trigger) startDetached(cmd *exec.Cmd) error {
	detach(cmd)
	// no stdio wiring to the monitor
	cmd.Stdin, cmd.Stdout, cmd.Stderr = nil, nil, nil

	if err := cmd.Start(); err != nil {
		return err
	}

	go func() {
		err := cmd.Wait()
		fields := map[string]interface{}{"program": cmd.Path, "pid": pidOf(cmd)}
		if err != nil {
			fields["error"] = err.Error()
		}
		t.logger.Debug("External program exited", fields)
	}()
	return nil
}

func pidOf(cmd *exec.Cmd) int {
	if cmd.Process == nil {
		return 0
	}
	return cmd.Process.Pid
}
