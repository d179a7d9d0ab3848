package notify

import (
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/psantana5/procwatch/internal/observe"
)

// Kind identifies a notification template
type Kind string

const (
	KindWaitTimeout     Kind = "process_wait_timeout_warning"
	KindTimeoutWarning  Kind = "process_timeout_warning"
	KindProcessEnd      Kind = "process_end_notification"
	KindExternalProgram Kind = "external_program_execution_notification"
)

// Kinds lists every template kind in a stable order
var Kinds = []Kind{KindWaitTimeout, KindTimeoutWarning, KindProcessEnd, KindExternalProgram}

// Variables supplied by the dispatcher for every kind
const (
	VarHostName         = "host_name"
	VarCurrentTime      = "current_time"
	VarShortCurrentTime = "short_current_time"
)

var commonVariables = []string{VarHostName, VarCurrentTime, VarShortCurrentTime}

// kindVariables is the closed set of event variables each kind may reference
var kindVariables = map[Kind][]string{
	KindWaitTimeout:     {"process_name", "process_wait_time", "other_running_processes", "process_list"},
	KindTimeoutWarning:  {"process_name", "process_pid", "process_run_time", "other_running_processes"},
	KindProcessEnd:      {"process_name", "process_pid", "process_run_time", "other_running_processes"},
	KindExternalProgram: {"process_name", "external_program_name", "external_program_path"},
}

// AllowedVariables returns every placeholder a template of kind may use
func AllowedVariables(kind Kind) []string {
	vars := kindVariables[kind]
	out := make([]string, 0, len(commonVariables)+len(vars))
	out = append(out, commonVariables...)
	return append(out, vars...)
}

// Valid reports whether k is a known kind
func (k Kind) Valid() bool {
	_, ok := kindVariables[k]
	return ok
}

// Event is an immutable notification request. Each kind is its own type
// carrying only the fields that kind can produce.
type Event interface {
	Kind() Kind
	Variables() map[string]string
}

// WaitTimeoutEvent: the watched process did not start in time
type WaitTimeoutEvent struct {
	ProcessName  string
	WaitTime     time.Duration
	OtherRunning string
	Missing      []string
}

func (e WaitTimeoutEvent) Kind() Kind { return KindWaitTimeout }

func (e WaitTimeoutEvent) Variables() map[string]string {
	return map[string]string{
		"process_name":            e.ProcessName,
		"process_wait_time":       observe.FormatDuration(e.WaitTime),
		"other_running_processes": e.OtherRunning,
		"process_list":            strings.Join(e.Missing, ", "),
	}
}

// TimeoutWarningEvent: a tracked instance has been running past the warning interval
type TimeoutWarningEvent struct {
	ProcessName  string
	PID          int32
	RunTime      time.Duration
	OtherRunning string
}

func (e TimeoutWarningEvent) Kind() Kind { return KindTimeoutWarning }

func (e TimeoutWarningEvent) Variables() map[string]string {
	return map[string]string{
		"process_name":            e.ProcessName,
		"process_pid":             strconv.Itoa(int(e.PID)),
		"process_run_time":        observe.FormatDuration(e.RunTime),
		"other_running_processes": e.OtherRunning,
	}
}

// ProcessEndEvent: a tracked instance is gone
type ProcessEndEvent struct {
	ProcessName  string
	PID          int32
	RunTime      time.Duration
	OtherRunning string
}

func (e ProcessEndEvent) Kind() Kind { return KindProcessEnd }

func (e ProcessEndEvent) Variables() map[string]string {
	return map[string]string{
		"process_name":            e.ProcessName,
		"process_pid":             strconv.Itoa(int(e.PID)),
		"process_run_time":        observe.FormatDuration(e.RunTime),
		"other_running_processes": e.OtherRunning,
	}
}

// ExternalProgramEvent: an external program was launched
type ExternalProgramEvent struct {
	ProcessName string
	ProgramPath string
}

func (e ExternalProgramEvent) Kind() Kind { return KindExternalProgram }

func (e ExternalProgramEvent) Variables() map[string]string {
	return map[string]string{
		"process_name":          e.ProcessName,
		"external_program_name": filepath.Base(e.ProgramPath),
		"external_program_path": e.ProgramPath,
	}
}
