package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"scribe/internal/logging"
	"scribe/internal/progress"
	"scribe/internal/queue"
)

// Start begins background processing with the configured worker pool.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	if len(m.claimOrder) == 0 {
		m.mu.Unlock()
		return errors.New("workflow stages not configured")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	workers := m.workers
	if workers < 1 {
		workers = 1
	}
	m.wg.Add(workers)
	m.mu.Unlock()

	for i := 0; i < workers; i++ {
		go m.runWorker(runCtx, i)
	}
	return nil
}

// Stop terminates background processing and waits for in-flight tasks to
// drain.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) runWorker(ctx context.Context, id int) {
	defer m.wg.Done()
	logger := m.logger.With(logging.Int("worker", id))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		task, err := m.store.NextForStatuses(ctx, m.claimOrder...)
		if err != nil {
			m.setLastError(err)
			logger.Error("failed to fetch next task", logging.Error(err))
			m.sleep(ctx, m.errorInterval)
			continue
		}
		if task == nil {
			m.sleep(ctx, m.pollInterval)
			continue
		}

		stg, ok := m.stages[task.Status]
		if !ok {
			logger.Warn("no stage configured for status", logging.String("status", string(task.Status)))
			m.sleep(ctx, m.pollInterval)
			continue
		}

		claimed, err := m.store.Claim(ctx, task.ID, stg.start, stg.processing)
		if err != nil {
			m.setLastError(err)
			logger.Error("failed to claim task", logging.Error(err))
			m.sleep(ctx, m.errorInterval)
			continue
		}
		if !claimed {
			// Another worker got there first.
			continue
		}
		task.Status = stg.processing

		if err := m.processTask(ctx, logger, task); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
		}
	}
}

// processTask drives one claimed task through every remaining stage until
// it reaches a terminal state.
func (m *Manager) processTask(ctx context.Context, logger *slog.Logger, task *queue.Task) error {
	pub := progress.NewPublisher(m.hub, task.TaskID)
	taskLogger := logger.With(logging.String(logging.FieldTaskID, task.TaskID))

	for {
		stg, ok := m.stageForProcessing(task.Status)
		if !ok {
			return fmt.Errorf("no stage for processing status %s", task.Status)
		}

		if err := m.runStage(ctx, taskLogger, pub, stg, task); err != nil {
			if errors.Is(err, context.Canceled) {
				m.failTaskOnShutdown(task, pub)
				return err
			}
			m.failTask(ctx, taskLogger, pub, stg.name, task, err)
			return err
		}

		if task.Status == queue.StatusCompleted {
			pub.Completed(task.ProgressMessage)
			m.setLastTask(task)
			m.notifyCompleted(ctx, task)
			return nil
		}

		// Advance into the next stage's processing status.
		next, ok := m.stages[task.Status]
		if !ok {
			return fmt.Errorf("no stage registered after status %s", task.Status)
		}
		task.Status = next.processing
		now := time.Now().UTC()
		task.LastHeartbeat = &now
		if err := m.store.Update(ctx, task); err != nil {
			m.setLastError(err)
			return fmt.Errorf("persist stage transition: %w", err)
		}
	}
}

func (m *Manager) stageForProcessing(status queue.Status) (pipelineStage, bool) {
	for _, stg := range m.stages {
		if stg.processing == status {
			return stg, true
		}
	}
	return pipelineStage{}, false
}

func (m *Manager) runStage(ctx context.Context, logger *slog.Logger, pub *progress.Publisher, stg pipelineStage, task *queue.Task) error {
	stageStart := time.Now()
	stageLogger := logger.With(logging.String(logging.FieldStage, stg.name))
	stageLogger.Info("stage started",
		logging.String("processing_status", string(stg.processing)),
		logging.String("source_file", strings.TrimSpace(task.SourcePath)),
	)

	label := stageLabel(stg.processing)
	task.SetProgress(label, label+" started", queue.BasePercent(stg.processing))
	task.ErrorMessage = ""
	if err := m.store.Update(ctx, task); err != nil {
		return fmt.Errorf("persist processing state: %w", err)
	}
	pub.Progress(label, task.ProgressPercent, task.ProgressMessage)
	m.setLastTask(task)

	if err := stg.handler.Prepare(ctx, task); err != nil {
		return err
	}
	if err := m.store.Update(ctx, task); err != nil {
		return fmt.Errorf("persist stage preparation: %w", err)
	}

	if err := m.executeWithHeartbeat(ctx, stg, task); err != nil {
		return err
	}

	if task.Status == stg.processing || task.Status == "" {
		task.Status = stg.done
	}
	task.LastHeartbeat = nil
	if task.Status == queue.StatusCompleted {
		if task.ProgressPercent < 100 {
			task.ProgressPercent = 100
		}
		if strings.TrimSpace(task.ProgressMessage) == "" {
			task.ProgressMessage = stageLabel(queue.StatusCompleted)
		}
		task.ProgressStage = stageLabel(queue.StatusCompleted)
	}
	if err := m.store.Update(ctx, task); err != nil {
		return fmt.Errorf("persist stage result: %w", err)
	}

	stageLogger.Info("stage completed",
		logging.String("next_status", string(task.Status)),
		logging.Duration("stage_duration", time.Since(stageStart)),
	)
	m.setLastTask(task)
	return nil
}

func (m *Manager) executeWithHeartbeat(ctx context.Context, stg pipelineStage, task *queue.Task) error {
	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &hbWG, task.ID)

	execErr := stg.handler.Execute(ctx, task)
	hbCancel()
	hbWG.Wait()
	return execErr
}

func (m *Manager) failTask(ctx context.Context, logger *slog.Logger, pub *progress.Publisher, stageName string, task *queue.Task, stageErr error) {
	message := strings.TrimSpace(stageErr.Error())
	if message == "" {
		message = fmt.Sprintf("%s failed", stageName)
	}
	task.SetFailed(message)

	logger.Error("stage failed",
		logging.String(logging.FieldStage, stageName),
		logging.Error(stageErr),
	)
	if err := m.store.Update(ctx, task); err != nil {
		logger.Error("failed to persist stage failure", logging.Error(err))
	}
	m.setLastError(stageErr)
	m.setLastTask(task)
	pub.Failed(stageName, message)
	m.notifyFailed(ctx, task)
}

// failTaskOnShutdown persists a failure for a task interrupted by daemon
// shutdown. The run context is already cancelled, so persistence uses a
// short independent deadline.
func (m *Manager) failTaskOnShutdown(task *queue.Task, pub *progress.Publisher) {
	task.SetFailed(queue.DaemonStopReason)

	persistCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.store.Update(persistCtx, task); err != nil {
		m.logger.Error("failed to persist shutdown failure", logging.Error(err))
	}
	m.setLastTask(task)
	pub.Failed("shutdown", queue.DaemonStopReason)
}

func (m *Manager) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		d = time.Second
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
