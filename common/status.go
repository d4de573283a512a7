package common

import (
	"encoding/json"
	"fmt"
)

// JobState is the lifecycle state of a long-running job (download,
// processing). A job is started only from JobIdle and always reaches
// JobCompleted or JobFailed.
type JobState int

const (
	JobIdle JobState = iota
	JobRunning
	JobCompleted
	JobFailed
)

var jobStateNames = map[JobState]string{
	JobIdle:      "Idle",
	JobRunning:   "Running",
	JobCompleted: "Completed",
	JobFailed:    "Failed",
}

func (s JobState) String() string {
	if n, ok := jobStateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("JobState(%d)", int(s))
}

func (s JobState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *JobState) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for js, n := range jobStateNames {
		if n == name {
			*s = js
			return nil
		}
	}
	return fmt.Errorf("unknown JobState %q", name)
}

// Terminal reports whether the state is final.
func (s JobState) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

func (s JobState) Color() string {
	switch s {
	case JobIdle:
		return "gray"
	case JobRunning:
		return "orange"
	case JobCompleted:
		return "green"
	case JobFailed:
		return "red"
	}
	return "white"
}
