package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"scribe/internal/config"
	"scribe/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyTaskCompleted(context.Background(), "lecture.wav", []string{"srt"}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

type captured struct {
	title    string
	message  string
	tags     string
	priority string
}

func newCaptureServer(t *testing.T, sink *[]captured) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		*sink = append(*sink, captured{
			title:    r.Header.Get("Title"),
			message:  string(body),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
		})
		w.WriteHeader(http.StatusOK)
	}))
}

func newNtfyService(t *testing.T, endpoint string) notifications.Service {
	t.Helper()
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = endpoint
	return notifications.NewService(&cfg)
}

func TestNotifyTaskCompleted(t *testing.T) {
	var got []captured
	srv := newCaptureServer(t, &got)
	defer srv.Close()

	svc := newNtfyService(t, srv.URL)
	if err := svc.NotifyTaskCompleted(context.Background(), "lecture.wav", []string{"srt", "vtt"}); err != nil {
		t.Fatalf("NotifyTaskCompleted: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("requests = %d, want 1", len(got))
	}
	if got[0].title != "Scribe - Complete" {
		t.Errorf("title = %q", got[0].title)
	}
	if want := "Transcription complete: lecture.wav (srt, vtt)"; got[0].message != want {
		t.Errorf("message = %q, want %q", got[0].message, want)
	}
	if got[0].tags != "scribe,task,completed" {
		t.Errorf("tags = %q", got[0].tags)
	}
}

func TestNotifyTaskFailedUsesHighPriority(t *testing.T) {
	var got []captured
	srv := newCaptureServer(t, &got)
	defer srv.Close()

	svc := newNtfyService(t, srv.URL)
	if err := svc.NotifyTaskFailed(context.Background(), "lecture.wav", "asr backend unreachable"); err != nil {
		t.Fatalf("NotifyTaskFailed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("requests = %d, want 1", len(got))
	}
	if got[0].priority != "high" {
		t.Errorf("priority = %q, want high", got[0].priority)
	}
	if !strings.Contains(got[0].message, "asr backend unreachable") {
		t.Errorf("message = %q missing failure reason", got[0].message)
	}
}

func TestNotifyBatchCompletedSummaries(t *testing.T) {
	var got []captured
	srv := newCaptureServer(t, &got)
	defer srv.Close()

	svc := newNtfyService(t, srv.URL)
	ctx := context.Background()
	if err := svc.NotifyBatchCompleted(ctx, 3, 0, 90*time.Second); err != nil {
		t.Fatal(err)
	}
	if err := svc.NotifyBatchCompleted(ctx, 2, 1, time.Minute); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("requests = %d, want 2", len(got))
	}
	if want := "Batch complete: 3 files transcribed in 1m30s"; got[0].message != want {
		t.Errorf("message = %q, want %q", got[0].message, want)
	}
	if got[1].title != "Scribe - Batch Complete (with errors)" {
		t.Errorf("title = %q", got[1].title)
	}
	if want := "Batch complete: 2 succeeded, 1 failed in 1m0s"; got[1].message != want {
		t.Errorf("message = %q, want %q", got[1].message, want)
	}
}

func TestSendSurfacesServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	svc := newNtfyService(t, srv.URL)
	err := svc.Test(context.Background())
	if err == nil {
		t.Fatal("expected error from 429 response")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("err = %v, want status code in message", err)
	}
}
