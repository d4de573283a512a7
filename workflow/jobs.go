package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sarlab/insar-analyzer/common"
)

// JobKind identifies the long-running operations of a session. At most one
// job of each kind runs at a time.
type JobKind string

const (
	JobDownload JobKind = "download"
	JobProcess  JobKind = "process"
)

// ErrJobRunning is returned when a job of the same kind has not reached a
// terminal state yet.
type ErrJobRunning struct {
	Kind JobKind
}

func (e ErrJobRunning) Error() string {
	return fmt.Sprintf("a %s job is already running", e.Kind)
}

// Job is the observable state of one background operation.
type Job struct {
	ID         string          `json:"id"`
	Kind       JobKind         `json:"kind"`
	State      common.JobState `json:"state"`
	Color      string          `json:"color"`
	Phase      string          `json:"phase,omitempty"`
	Message    string          `json:"message,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
}

type jobRunner struct {
	mu   sync.Mutex
	jobs map[JobKind]*Job
}

func newJobRunner() *jobRunner {
	return &jobRunner{jobs: map[JobKind]*Job{}}
}

// start launches fn in a goroutine under a fresh job. The job always
// reaches Completed or Failed, panics included.
func (r *jobRunner) start(ctx context.Context, kind JobKind, fn func(ctx context.Context, setPhase func(string)) error) (Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if j, ok := r.jobs[kind]; ok && j.State == common.JobRunning {
		return Job{}, ErrJobRunning{Kind: kind}
	}
	job := &Job{
		ID:        uuid.New().String(),
		Kind:      kind,
		State:     common.JobRunning,
		Color:     common.JobRunning.Color(),
		StartedAt: time.Now(),
	}
	r.jobs[kind] = job

	setPhase := func(phase string) {
		r.mu.Lock()
		if r.jobs[kind] == job {
			job.Phase = phase
		}
		r.mu.Unlock()
	}

	go func() {
		var err error
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("panic: %v", p)
			}
			now := time.Now()
			r.mu.Lock()
			job.FinishedAt = &now
			if err != nil {
				job.State = common.JobFailed
				job.Message = err.Error()
			} else {
				job.State = common.JobCompleted
			}
			job.Color = job.State.Color()
			r.mu.Unlock()
		}()
		err = fn(ctx, setPhase)
	}()
	return *job, nil
}

// status returns a copy of the last job of the given kind.
func (r *jobRunner) status(kind JobKind) (Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[kind]
	if !ok {
		return Job{}, false
	}
	return *j, true
}
