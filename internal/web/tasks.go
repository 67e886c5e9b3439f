package web

// tasks.go tracks conversion tasks for status polling.
//
// Tasks live in memory for the duration of one server process: the status
// endpoint is a short-lived polling target for the upload page, not durable
// state (the optional history store covers that). Completed and failed
// tasks expire after a TTL so abandoned polls do not leak entries.

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/FeedConvert/internal/converter"
)

// Task lifecycle statuses, as reported to polling clients.
const (
	StatusUploading  = "uploading"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// Task is one conversion job.
type Task struct {
	ID         string           `json:"task_id"`
	Status     string           `json:"status"`
	Progress   int              `json:"progress"`
	Total      int              `json:"total"`
	Message    string           `json:"message"`
	OutputFile string           `json:"output_file"`
	Stats      *converter.Stats `json:"stats"`
	Error      string           `json:"error,omitempty"`
}

// TaskRegistry is a mutex-guarded in-memory task store.
type TaskRegistry struct {
	mu    sync.Mutex
	tasks map[string]*Task
	ttl   time.Duration
}

// NewTaskRegistry creates a registry whose finished tasks expire after ttl.
func NewTaskRegistry(ttl time.Duration) *TaskRegistry {
	return &TaskRegistry{
		tasks: make(map[string]*Task),
		ttl:   ttl,
	}
}

// Create registers a new task in the uploading state and returns its ID.
func (r *TaskRegistry) Create(outputFile string, total int) string {
	id := uuid.NewString()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[id] = &Task{
		ID:         id,
		Status:     StatusUploading,
		Total:      total,
		Message:    "Uploading files...",
		OutputFile: outputFile,
	}
	return id
}

// Get returns a snapshot of the task, or false if it does not exist.
func (r *TaskRegistry) Get(id string) (Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok {
		return Task{}, false
	}
	return *task, true
}

// Update applies fn to the task under the registry lock. Finishing a task
// (completed or error) schedules its expiry.
func (r *TaskRegistry) Update(id string, fn func(*Task)) {
	r.mu.Lock()
	task, ok := r.tasks[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	fn(task)
	finished := task.Status == StatusCompleted || task.Status == StatusError
	r.mu.Unlock()

	if finished {
		time.AfterFunc(r.ttl, func() { r.remove(id) })
	}
}

// Len returns the number of tracked tasks.
func (r *TaskRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

func (r *TaskRegistry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tasks, id)
}
