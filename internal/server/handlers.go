package server

import (
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"scribe/internal/api"
	"scribe/internal/batch"
	"scribe/internal/fileutil"
	"scribe/internal/language"
	"scribe/internal/logging"
	"scribe/internal/queue"
	"scribe/internal/services"
	"scribe/internal/subtitle"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health, err := s.store.CheckHealth(r.Context())
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	status := http.StatusOK
	if !health.DatabaseReadable || !health.TableExists || !health.IntegrityCheck {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, health)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	payload := api.DaemonStatus{
		Running:     s.status != nil,
		PID:         os.Getpid(),
		QueueDBPath: filepath.Join(s.cfg.Paths.LogDir, "tasks.db"),
		Plugins:     s.pluginList(),
	}
	if s.status != nil {
		payload.Workflow = api.FromStatusSummary(s.status.Status(r.Context()))
		payload.Running = payload.Workflow.Running
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handlePlugins(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string][]api.Plugin{"plugins": s.pluginList()})
}

func (s *Server) pluginList() []api.Plugin {
	descriptors := s.registry.Describe()
	plugins := make([]api.Plugin, 0, len(descriptors))
	for _, desc := range descriptors {
		entry := api.Plugin{
			Name:        desc.Name,
			Model:       desc.Model,
			Description: desc.Description,
			Remote:      desc.Remote,
			Default:     desc.Name == s.registry.Default(),
			Ready:       true,
		}
		if _, err := s.registry.Resolve(desc.Name); err != nil {
			entry.Ready = false
			entry.Detail = err.Error()
		}
		plugins = append(plugins, entry)
	}
	return plugins
}

// submissionParams carries the shared form fields of process requests.
type submissionParams struct {
	Method   string
	Language string
	Formats  []string
	Options  queue.TaskOptions
}

func (s *Server) parseSubmission(r *http.Request) (submissionParams, error) {
	params := submissionParams{
		Method:   strings.TrimSpace(r.FormValue("method")),
		Language: strings.TrimSpace(r.FormValue("language")),
	}
	if raw := strings.TrimSpace(r.FormValue("formats")); raw != "" {
		params.Formats = strings.Split(raw, ",")
	}
	if params.Method == "" {
		params.Method = s.registry.Default()
	}
	if _, err := s.registry.Resolve(params.Method); err != nil {
		return params, err
	}
	if _, err := subtitle.ParseFormats(params.Formats); err != nil {
		return params, err
	}
	hint, ok := language.NormalizeHint(params.Language)
	if !ok {
		return params, services.Wrap(services.ErrValidation, "server", "submit",
			fmt.Sprintf("unrecognized language %q", params.Language), nil)
	}
	params.Language = hint

	options, err := parseTaskOptions(r)
	if err != nil {
		return params, err
	}
	params.Options = options
	return params, nil
}

// parseTaskOptions reads the per-task override fields. All of them are
// optional; thresholds are validated against the accepted range before the
// upload is staged.
func parseTaskOptions(r *http.Request) (queue.TaskOptions, error) {
	options := queue.TaskOptions{
		ASREndpoint: strings.TrimSpace(r.FormValue("asr_api_url")),
		ASRAPIKey:   strings.TrimSpace(r.FormValue("asr_api_key")),
		ASRModel:    strings.TrimSpace(r.FormValue("asr_model")),
	}
	var err error
	if options.MinSpeechMs, err = formInt(r, "min_speech_duration_ms"); err != nil {
		return options, err
	}
	if options.MinSilenceMs, err = formInt(r, "min_silence_duration_ms"); err != nil {
		return options, err
	}
	if err := options.Validate(); err != nil {
		return options, err
	}
	return options, nil
}

func formInt(r *http.Request, field string) (int, error) {
	raw := strings.TrimSpace(r.FormValue(field))
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return 0, services.Wrap(services.ErrValidation, "server", "submit",
			fmt.Sprintf("%s must be a positive integer, got %q", field, raw), nil)
	}
	return value, nil
}

// saveUpload streams one multipart file into a fresh upload directory.
func (s *Server) saveUpload(header *multipart.FileHeader) (string, error) {
	src, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	name := fileutil.SanitizeName(header.Filename, "upload.wav")
	dst := filepath.Join(s.cfg.Paths.UploadDir, uuid.NewString(), name)
	written, err := fileutil.WriteStream(dst, src)
	if err != nil {
		return "", fmt.Errorf("store upload: %w", err)
	}
	s.logger.Info("upload stored",
		logging.String("filename", name),
		logging.Int64("bytes", written),
	)
	return dst, nil
}

func (s *Server) maxUploadBytes() int64 {
	return int64(s.cfg.Server.MaxUploadMB) << 20
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes())
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds size limit or is not multipart")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	params, err := s.parseSubmission(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	files := r.MultipartForm.File["file"]
	if len(files) != 1 {
		s.writeError(w, http.StatusBadRequest, "exactly one file is required")
		return
	}
	path, err := s.saveUpload(files[0])
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	task, err := s.store.NewTask(r.Context(), queue.NewTaskParams{
		SourcePath: path,
		Method:     params.Method,
		Language:   params.Language,
		Formats:    params.Formats,
		Options:    params.Options,
	})
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusAccepted, api.ProcessResponse{Task: api.FromTask(task)})
}

func (s *Server) handleProcessBatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes())
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds size limit or is not multipart")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	params, err := s.parseSubmission(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		s.writeError(w, http.StatusBadRequest, "at least one file is required")
		return
	}
	if max := s.cfg.Batch.MaxFiles; len(files) > max {
		s.writeError(w, http.StatusBadRequest,
			fmt.Sprintf("batch of %d files exceeds the %d file limit", len(files), max))
		return
	}

	paths := make([]string, 0, len(files))
	for _, header := range files {
		path, err := s.saveUpload(header)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		paths = append(paths, path)
	}

	sub, err := s.batches.Submit(r.Context(), batch.Request{
		SourcePaths: paths,
		Method:      params.Method,
		Language:    params.Language,
		Formats:     params.Formats,
		Options:     params.Options,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, api.BatchResponse{
		BatchID: sub.BatchID,
		Tasks:   api.FromTasks(sub.Tasks),
	})
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	var statuses []queue.Status
	for _, value := range r.URL.Query()["status"] {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		status, ok := queue.ParseStatus(trimmed)
		if !ok {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", trimmed))
			return
		}
		statuses = append(statuses, status)
	}

	tasks, err := s.store.List(r.Context(), statuses...)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.TaskListResponse{Tasks: api.FromTasks(tasks)})
}

func (s *Server) handleTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.lookupTask(w, r)
	if task == nil || err != nil {
		return
	}
	s.writeJSON(w, http.StatusOK, api.TaskResponse{Task: api.FromTask(task)})
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	report, err := s.batches.Report(r.Context(), r.PathValue("batchID"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.BatchReport{
		BatchID:       report.BatchID,
		Total:         report.Total,
		Completed:     report.Completed,
		Failed:        report.Failed,
		InProgress:    report.InProgress,
		TotalSegments: report.TotalSegments,
		TotalEntries:  report.TotalEntries,
		Tasks:         api.FromTasks(report.Tasks),
	})
}

func (s *Server) handleTaskFile(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(strings.TrimSpace(r.PathValue("format")))
	if _, err := subtitle.ParseFormats([]string{format}); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.serveTaskArtifact(w, r, format)
}

func (s *Server) handleTaskBundle(w http.ResponseWriter, r *http.Request) {
	s.serveTaskArtifact(w, r, "zip")
}

// serveTaskArtifact serves a file recorded on the task. Only paths written
// by the assembly stage are served; the request never names a path
// directly.
func (s *Server) serveTaskArtifact(w http.ResponseWriter, r *http.Request, key string) {
	task, err := s.lookupTask(w, r)
	if task == nil || err != nil {
		return
	}

	var files map[string]string
	if raw := strings.TrimSpace(task.FilesJSON); raw != "" {
		if err := json.Unmarshal([]byte(raw), &files); err != nil {
			s.writeError(w, http.StatusInternalServerError, "task file index is corrupted")
			return
		}
	}
	path := files[key]
	if path == "" {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("no %s file for task %s", key, task.TaskID))
		return
	}
	if _, err := os.Stat(path); err != nil {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("%s file is missing from disk", key))
		return
	}

	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	http.ServeFile(w, r, path)
}

// lookupTask resolves the request's task or writes the error response and
// returns nil.
func (s *Server) lookupTask(w http.ResponseWriter, r *http.Request) (*queue.Task, error) {
	taskID := strings.TrimSpace(r.PathValue("taskID"))
	task, err := s.store.GetByTaskID(r.Context(), taskID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return nil, err
	}
	if task == nil {
		err := services.Wrap(services.ErrNotFound, "server", "lookup",
			fmt.Sprintf("no task %s", taskID), nil)
		s.writeError(w, http.StatusNotFound, err.Error())
		return nil, err
	}
	return task, nil
}
