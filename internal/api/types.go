package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Task describes a transcription task in a transport-friendly format.
type Task struct {
	ID            int64             `json:"id"`
	TaskID        string            `json:"taskId"`
	BatchID       string            `json:"batchId,omitempty"`
	Filename      string            `json:"filename"`
	Method        string            `json:"method"`
	Language      string            `json:"language,omitempty"`
	Formats       []string          `json:"formats"`
	Status        string            `json:"status"`
	Progress      TaskProgress      `json:"progress"`
	ErrorMessage  string            `json:"errorMessage,omitempty"`
	Segments      SegmentCounts     `json:"segments"`
	Entries       int               `json:"entries"`
	Files         map[string]string `json:"files,omitempty"`
	CreatedAt     string            `json:"createdAt,omitempty"`
	UpdatedAt     string            `json:"updatedAt,omitempty"`
	LastHeartbeat string            `json:"lastHeartbeat,omitempty"`
}

// TaskProgress captures stage progress information for a task.
type TaskProgress struct {
	Stage   string  `json:"stage"`
	Percent float64 `json:"percent"`
	Message string  `json:"message"`
}

// SegmentCounts summarizes per-segment transcription outcomes.
type SegmentCounts struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Empty     int `json:"empty"`
	Failed    int `json:"failed"`
}

// Plugin describes an available transcription back-end.
type Plugin struct {
	Name        string `json:"name"`
	Model       string `json:"model,omitempty"`
	Description string `json:"description,omitempty"`
	Remote      bool   `json:"remote"`
	Default     bool   `json:"default"`
	Ready       bool   `json:"ready"`
	Detail      string `json:"detail,omitempty"`
}

// WorkflowStatus summarizes workflow execution state.
type WorkflowStatus struct {
	Running     bool           `json:"running"`
	QueueStats  map[string]int `json:"queueStats"`
	LastError   string         `json:"lastError,omitempty"`
	LastTask    *Task          `json:"lastTask,omitempty"`
	StageHealth []StageHealth  `json:"stageHealth"`
}

// StageHealth mirrors readiness reporting for workflow stages.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool           `json:"running"`
	PID          int            `json:"pid"`
	QueueDBPath  string         `json:"queueDbPath"`
	LockFilePath string         `json:"lockFilePath"`
	Workflow     WorkflowStatus `json:"workflow"`
	Plugins      []Plugin       `json:"plugins"`
}

// ProcessResponse acknowledges a single-file submission.
type ProcessResponse struct {
	Task Task `json:"task"`
}

// BatchResponse acknowledges a batch submission.
type BatchResponse struct {
	BatchID string `json:"batchId"`
	Tasks   []Task `json:"tasks"`
}

// BatchReport summarizes the state of a batch.
type BatchReport struct {
	BatchID       string `json:"batchId"`
	Total         int    `json:"total"`
	Completed     int    `json:"completed"`
	Failed        int    `json:"failed"`
	InProgress    int    `json:"inProgress"`
	TotalSegments int    `json:"totalSegments"`
	TotalEntries  int    `json:"totalEntries"`
	Tasks         []Task `json:"tasks"`
}

// TaskListResponse wraps a collection of tasks for API responses.
type TaskListResponse struct {
	Tasks []Task `json:"tasks"`
}

// TaskResponse wraps a single task.
type TaskResponse struct {
	Task Task `json:"task"`
}

// TaskStatsResponse provides a normalized queue stats payload.
type TaskStatsResponse struct {
	Counts map[string]int `json:"counts"`
}
