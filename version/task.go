package version

import (
	"fmt"
	"maps"
	"time"

	"github.com/hupe1980/indexlib/status"
)

// IndexTaskState is the state of a long-running index task.
type IndexTaskState uint8

const (
	TaskReady IndexTaskState = iota
	TaskSuspended
	TaskAborted
	TaskDone
)

var taskStateNames = [...]string{
	TaskReady:     "ready",
	TaskSuspended: "suspended",
	TaskAborted:   "aborted",
	TaskDone:      "done",
}

func (s IndexTaskState) String() string {
	if int(s) < len(taskStateNames) {
		return taskStateNames[s]
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// ParseIndexTaskState parses the names returned by IndexTaskState.String.
func ParseIndexTaskState(s string) (IndexTaskState, error) {
	for i, name := range taskStateNames {
		if name == s {
			return IndexTaskState(i), nil
		}
	}
	return 0, status.NewParseError("task state", fmt.Errorf("unknown state %q", s))
}

// MarshalText implements encoding.TextMarshaler.
func (s IndexTaskState) MarshalText() ([]byte, error) {
	if int(s) >= len(taskStateNames) {
		return nil, status.InvalidArgsf("unknown task state %d", uint8(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *IndexTaskState) UnmarshalText(text []byte) error {
	parsed, err := ParseIndexTaskState(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

type stateTransfer struct {
	from, to IndexTaskState
}

var allowedTransfers = map[stateTransfer]struct{}{
	{TaskDone, TaskDone}: {},

	{TaskReady, TaskReady}:     {},
	{TaskReady, TaskSuspended}: {},
	{TaskReady, TaskAborted}:   {},
	{TaskReady, TaskDone}:      {},

	{TaskSuspended, TaskSuspended}: {},
	{TaskSuspended, TaskReady}:     {},
	{TaskSuspended, TaskAborted}:   {},

	{TaskAborted, TaskAborted}: {},
}

// ValidateStateTransfer reports whether a task may move from one state to another.
func ValidateStateTransfer(from, to IndexTaskState) bool {
	_, ok := allowedTransfers[stateTransfer{from, to}]
	return ok
}

// IndexTaskMeta is one entry of a version's index task queue.
//
// A task is identified by (TaskType, TaskName). Times are Unix microseconds.
type IndexTaskMeta struct {
	TaskType  string            `json:"task_type"`
	TaskName  string            `json:"task_name"`
	State     IndexTaskState    `json:"state"`
	Params    map[string]string `json:"params,omitempty"`
	Comment   string            `json:"comment,omitempty"`
	BeginTime int64             `json:"begin_time,omitempty"`
	EndTime   int64             `json:"end_time,omitempty"`
}

// Same reports whether m and other describe the same task identity.
func (m IndexTaskMeta) Same(taskType, taskName string) bool {
	return m.TaskType == taskType && m.TaskName == taskName
}

// Equal reports whether both entries are identical.
func (m IndexTaskMeta) Equal(other IndexTaskMeta) bool {
	return m.TaskType == other.TaskType &&
		m.TaskName == other.TaskName &&
		m.State == other.State &&
		maps.Equal(m.Params, other.Params) &&
		m.Comment == other.Comment &&
		m.BeginTime == other.BeginTime &&
		m.EndTime == other.EndTime
}

func (m IndexTaskMeta) clone() IndexTaskMeta {
	m.Params = maps.Clone(m.Params)
	return m
}

// BeginTimeAsTime returns BeginTime as a time.Time.
func (m IndexTaskMeta) BeginTimeAsTime() time.Time {
	return time.UnixMicro(m.BeginTime)
}
