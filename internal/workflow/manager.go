package workflow

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"scribe/internal/config"
	"scribe/internal/logging"
	"scribe/internal/notifications"
	"scribe/internal/progress"
	"scribe/internal/queue"
	"scribe/internal/stage"
)

// pipelineStage binds a stage handler to its status transitions.
type pipelineStage struct {
	name       string
	handler    stage.Handler
	start      queue.Status
	processing queue.Status
	done       queue.Status
}

// Manager coordinates task processing using registered stage handlers.
type Manager struct {
	cfg    *config.Config
	store  *queue.Store
	logger *slog.Logger
	hub    *progress.Hub

	stages     map[queue.Status]pipelineStage
	claimOrder []queue.Status

	pollInterval  time.Duration
	errorInterval time.Duration
	workers       int

	heartbeat *HeartbeatMonitor
	notifier  notifications.Service

	mu       sync.RWMutex
	running  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	lastErr  error
	lastTask *queue.Task
}

// StageSet holds the concrete handlers for each pipeline stage.
type StageSet struct {
	Segmenter   stage.Handler
	Exporter    stage.Handler
	Transcriber stage.Handler
	Assembler   stage.Handler
}

// NewManager constructs a workflow manager with the given stage handlers.
func NewManager(cfg *config.Config, store *queue.Store, hub *progress.Hub, set StageSet, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &Manager{
		cfg:           cfg,
		store:         store,
		hub:           hub,
		logger:        logger.With(logging.String(logging.FieldComponent, "workflow")),
		stages:        make(map[queue.Status]pipelineStage),
		pollInterval:  time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		errorInterval: time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
		workers:       cfg.Workflow.TaskConcurrency,
		heartbeat:     NewHeartbeatMonitor(store, logger),
	}
	m.register("segmenter", set.Segmenter, queue.StatusPending, queue.StatusSegmenting, queue.StatusSegmented)
	m.register("exporter", set.Exporter, queue.StatusSegmented, queue.StatusExporting, queue.StatusExported)
	m.register("transcriber", set.Transcriber, queue.StatusExported, queue.StatusTranscribing, queue.StatusTranscribed)
	m.register("assembler", set.Assembler, queue.StatusTranscribed, queue.StatusAssembling, queue.StatusCompleted)
	return m
}

// SetNotifier installs a push notification service for terminal task states.
// Must be called before Start.
func (m *Manager) SetNotifier(notifier notifications.Service) {
	m.notifier = notifier
}

func (m *Manager) notifyCompleted(ctx context.Context, task *queue.Task) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.NotifyTaskCompleted(ctx, task.Filename, task.FormatList()); err != nil {
		m.logger.Warn("completion notification failed", logging.Error(err))
	}
}

func (m *Manager) notifyFailed(ctx context.Context, task *queue.Task) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.NotifyTaskFailed(ctx, task.Filename, task.ErrorMessage); err != nil {
		m.logger.Warn("failure notification failed", logging.Error(err))
	}
}

func (m *Manager) register(name string, handler stage.Handler, start, processing, done queue.Status) {
	if handler == nil {
		return
	}
	m.stages[start] = pipelineStage{
		name:       name,
		handler:    handler,
		start:      start,
		processing: processing,
		done:       done,
	}
	m.claimOrder = append(m.claimOrder, start)
}

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running     bool
	LastError   string
	LastTask    *queue.Task
	QueueStats  map[queue.Status]int
	StageHealth map[string]stage.Health
}

// Status returns the latest workflow information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	running := m.running
	lastErr := m.lastErr
	lastTask := m.lastTask
	stageSet := make([]pipelineStage, 0, len(m.claimOrder))
	for _, start := range m.claimOrder {
		stageSet = append(stageSet, m.stages[start])
	}
	m.mu.RUnlock()

	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("failed to read queue stats", logging.Error(err))
	}

	health := make(map[string]stage.Health, len(stageSet))
	for _, stg := range stageSet {
		health[stg.name] = stg.handler.HealthCheck(ctx)
	}

	summary := StatusSummary{Running: running, QueueStats: stats, StageHealth: health}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	if lastTask != nil {
		copied := *lastTask
		summary.LastTask = &copied
	}
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastTask(task *queue.Task) {
	m.mu.Lock()
	if task != nil {
		copied := *task
		m.lastTask = &copied
	} else {
		m.lastTask = nil
	}
	m.mu.Unlock()
}

var stageTitle = cases.Title(language.English)

// stageLabel renders a status as a human-facing progress label.
func stageLabel(status queue.Status) string {
	if status == "" {
		return ""
	}
	return stageTitle.String(strings.ReplaceAll(string(status), "_", " "))
}
