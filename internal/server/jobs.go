package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"skymatch/internal/pipeline"
)

// === Job System ===

type JobStatus string

const (
	StatusRunning   JobStatus = "running"
	StatusDone      JobStatus = "done"
	StatusError     JobStatus = "error"
	StatusCancelled JobStatus = "cancelled"
)

type JobResult struct {
	Rows      int              `json:"rows"`
	Sheet     string           `json:"sheet"`
	Output    string           `json:"output"`   // Full path
	Filename  string           `json:"filename"` // Just filename for download
	RadiusArc float64          `json:"radius_arcsec"`
	Stats     *pipeline.Result `json:"stats"`
}

type Job struct {
	ID        string
	Status    JobStatus
	Logs      []string
	Progress  int // 0-100
	Result    *JobResult
	Error     string
	CancelFn  context.CancelFunc
	Mutex     sync.RWMutex
	CreatedAt time.Time
}

func NewJob() *Job {
	return &Job{
		ID:        uuid.New().String(),
		Status:    StatusRunning,
		Logs:      []string{},
		CreatedAt: time.Now(),
	}
}

func (j *Job) Log(msg string) {
	j.Mutex.Lock()
	defer j.Mutex.Unlock()
	j.appendLog(msg)
}

func (j *Job) appendLog(msg string) {
	ts := time.Now().Format("15:04:05")
	j.Logs = append(j.Logs, fmt.Sprintf("[%s] %s", ts, msg))
}

func (j *Job) SetProgress(current, total int, msg string) {
	j.Mutex.Lock()
	defer j.Mutex.Unlock()
	if total > 0 {
		j.Progress = int(float64(current) / float64(total) * 100)
	}
	if msg != "" {
		j.appendLog(msg)
	}
}

// Cancel requests cancellation of a running job. It reports whether the job
// was still running.
func (j *Job) Cancel() bool {
	j.Mutex.Lock()
	defer j.Mutex.Unlock()
	if j.Status != StatusRunning || j.CancelFn == nil {
		return false
	}
	j.appendLog("Cancellation requested by user...")
	j.CancelFn()
	return true
}

func (j *Job) fail(status JobStatus, msg string) {
	j.Mutex.Lock()
	defer j.Mutex.Unlock()
	j.Status = status
	j.Error = msg
	j.Logs = append(j.Logs, "[ERROR] "+msg)
}

func (j *Job) finish(res *JobResult) {
	j.Mutex.Lock()
	defer j.Mutex.Unlock()
	j.Status = StatusDone
	j.appendLog("Job completed successfully.")
	j.Result = res
	j.Progress = 100
}

// Snapshot is a consistent copy of a job's public state.
type Snapshot struct {
	ID       string     `json:"id"`
	Status   JobStatus  `json:"status"`
	Logs     []string   `json:"logs"`
	Progress int        `json:"progress"`
	Error    string     `json:"error,omitempty"`
	Result   *JobResult `json:"result,omitempty"`
}

func (j *Job) Snapshot() Snapshot {
	j.Mutex.RLock()
	defer j.Mutex.RUnlock()
	logs := make([]string, len(j.Logs))
	copy(logs, j.Logs)
	return Snapshot{
		ID:       j.ID,
		Status:   j.Status,
		Logs:     logs,
		Progress: j.Progress,
		Error:    j.Error,
		Result:   j.Result,
	}
}

// JobStore keeps jobs in memory.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]*Job)}
}

func (s *JobStore) Add(j *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[j.ID] = j
}

func (s *JobStore) Get(id string) *Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jobs[id]
}

// Prune drops finished jobs older than maxAge and returns how many went.
func (s *JobStore) Prune(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().Add(-maxAge)
	n := 0
	for id, j := range s.jobs {
		j.Mutex.RLock()
		done := j.Status != StatusRunning
		old := j.CreatedAt.Before(cutoff)
		j.Mutex.RUnlock()
		if done && old {
			delete(s.jobs, id)
			n++
		}
	}
	return n
}
