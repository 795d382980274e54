package daemon_test

import (
	"context"
	"testing"
	"time"

	"scribe/internal/config"
	"scribe/internal/daemon"
	"scribe/internal/queue"
	"scribe/internal/stage"
	"scribe/internal/testsupport"
	"scribe/internal/workflow"
)

type noopHandler struct{}

func (noopHandler) Prepare(ctx context.Context, task *queue.Task) error { return nil }

func (noopHandler) Execute(ctx context.Context, task *queue.Task) error { return nil }

func (noopHandler) HealthCheck(ctx context.Context) stage.Health { return stage.Healthy("noop") }

func newDaemon(t *testing.T, cfg *config.Config, store *queue.Store) *daemon.Daemon {
	t.Helper()
	set := workflow.StageSet{
		Segmenter:   noopHandler{},
		Exporter:    noopHandler{},
		Transcriber: noopHandler{},
		Assembler:   noopHandler{},
	}
	mgr := workflow.NewManager(cfg, store, nil, set, nil)
	d, err := daemon.New(cfg, store, nil, mgr, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	return d
}

func TestStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	d := newDaemon(t, cfg, store)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	status := d.Status(context.Background())
	if !status.Running {
		t.Fatal("daemon not running after Start")
	}

	d.Stop()
	if d.Status(context.Background()).Running {
		t.Fatal("daemon still running after Stop")
	}
}

func TestStartRecoversStuckTasks(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	task := testsupport.NewTask(t, store, "/uploads/a.wav")
	task.Status = queue.StatusTranscribing
	if err := store.Update(ctx, task); err != nil {
		t.Fatal(err)
	}

	d := newDaemon(t, cfg, store)
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	// The stuck task goes back to pending on startup, so the worker pool
	// claims it and the noop stages drive it to completion.
	deadline := time.Now().Add(10 * time.Second)
	for {
		recovered, err := store.GetByID(ctx, task.ID)
		if err != nil {
			t.Fatal(err)
		}
		if recovered.Status == queue.StatusCompleted {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("task never recovered, status %s", recovered.Status)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestDoubleStartRejected(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	d := newDaemon(t, cfg, store)

	if err := d.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer d.Stop()

	if err := d.Start(context.Background()); err == nil {
		t.Fatal("second Start succeeded")
	}
}
