package asr_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"scribe/internal/asr"
	"scribe/internal/config"
	"scribe/internal/services"
	"scribe/internal/testsupport"
)

func writeClip(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "segment_0001.wav")
	testsupport.WriteToneWAV(t, path, testsupport.TonePart{Speech: true, Duration: 200 * time.Millisecond})
	return path
}

func TestWhisperTranscribeSendsMultipart(t *testing.T) {
	var gotModel, gotLanguage string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(16 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		gotModel = r.FormValue("model")
		gotLanguage = r.FormValue("language")
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("missing file part: %v", err)
		}
		w.Write([]byte("hello world\n\nsecond line\n"))
	}))
	defer server.Close()

	plugin := asr.NewWhisperPlugin(config.Whisper{
		Endpoint: server.URL,
		Model:    "Systran/faster-whisper-large-v2",
	})

	text, err := plugin.Transcribe(context.Background(), writeClip(t), asr.Options{Language: "en"})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "hello world second line" {
		t.Fatalf("text = %q", text)
	}
	if gotModel != "Systran/faster-whisper-large-v2" {
		t.Fatalf("model = %q", gotModel)
	}
	if gotLanguage != "en" {
		t.Fatalf("language = %q", gotLanguage)
	}
}

func TestWhisperRequestOverridesWinOverConfig(t *testing.T) {
	var gotModel, gotAuth string
	override := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(16 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		gotModel = r.FormValue("model")
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte("override served\n"))
	}))
	defer override.Close()

	// The configured endpoint is unreachable: only the per-request
	// endpoint can have served the response.
	plugin := asr.NewWhisperPlugin(config.Whisper{
		Endpoint: "http://127.0.0.1:1",
		APIKey:   "configured-key",
		Model:    "configured-model",
	})

	text, err := plugin.Transcribe(context.Background(), writeClip(t), asr.Options{
		Endpoint: override.URL,
		APIKey:   "request-key",
		Model:    "request-model",
	})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "override served" {
		t.Fatalf("text = %q", text)
	}
	if gotModel != "request-model" {
		t.Fatalf("model = %q", gotModel)
	}
	if gotAuth != "Bearer request-key" {
		t.Fatalf("authorization = %q", gotAuth)
	}
}

func TestWhisperEmptyResponseIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("\n  \n"))
	}))
	defer server.Close()

	plugin := asr.NewWhisperPlugin(config.Whisper{Endpoint: server.URL, Model: "m"})
	text, err := plugin.Transcribe(context.Background(), writeClip(t), asr.Options{})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "" {
		t.Fatalf("text = %q, want empty", text)
	}
}

func TestWhisperTimeoutClassified(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer server.Close()

	plugin := asr.NewWhisperPlugin(config.Whisper{Endpoint: server.URL, Model: "m"})
	_, err := plugin.Transcribe(context.Background(), writeClip(t), asr.Options{Timeout: 30 * time.Millisecond})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestWhisperAuthFailureClassified(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad token", http.StatusUnauthorized)
	}))
	defer server.Close()

	plugin := asr.NewWhisperPlugin(config.Whisper{Endpoint: server.URL, Model: "m"})
	_, err := plugin.Transcribe(context.Background(), writeClip(t), asr.Options{})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestWhisperServerErrorClassifiedTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	plugin := asr.NewWhisperPlugin(config.Whisper{Endpoint: server.URL, Model: "m"})
	_, err := plugin.Transcribe(context.Background(), writeClip(t), asr.Options{})
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected ErrTransient, got %v", err)
	}
}

func TestWhisperMissingClip(t *testing.T) {
	plugin := asr.NewWhisperPlugin(config.Whisper{Endpoint: "http://127.0.0.1:1", Model: "m"})
	_, err := plugin.Transcribe(context.Background(), filepath.Join(t.TempDir(), "absent.wav"), asr.Options{})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestWhisperValidateRejectsRelativeEndpoint(t *testing.T) {
	plugin := asr.NewWhisperPlugin(config.Whisper{Endpoint: "not-a-url"})
	if err := plugin.Validate(); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}
