package web

// handlers.go implements the conversion endpoints: upload-and-convert,
// status polling, result download, and the optional run history view.
//
// POST /convert stages the uploaded JSON files to disk, registers a task,
// and runs the conversion in the background so the handler can return the
// task ID immediately. The upload page polls GET /status/{taskID} until the
// task reports completed or error, then fetches GET /download/{taskID}.

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/FeedConvert/internal/converter"
	"github.com/JonMunkholm/FeedConvert/internal/history"
	"github.com/JonMunkholm/FeedConvert/internal/logging"
)

// handleIndex serves the upload page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page, err := staticFiles.ReadFile("static/index.html")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "page unavailable")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

// handleConvert accepts a multipart upload of JSON files and starts a
// background conversion task.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Convert.MaxUploadSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid upload: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["json_files"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "No files selected")
		return
	}

	outputName := normalizeOutputName(r.FormValue("output_filename"))
	taskID := s.tasks.Create(outputName, len(files))
	logger = logger.With("task_id", taskID)

	stagingDir := filepath.Join(s.cfg.Storage.UploadDir, taskID)
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		s.failTask(taskID, fmt.Errorf("create staging directory: %w", err))
		writeError(w, http.StatusInternalServerError, "could not stage upload")
		return
	}

	var staged []string
	for i, fh := range files {
		name := sanitizeFilename(fh.Filename)
		if name == "" {
			logger.Warn("skipping non-JSON upload", "filename", fh.Filename)
			continue
		}

		dst := filepath.Join(stagingDir, fmt.Sprintf("%d_%s", i, name))
		if err := saveUpload(fh, dst); err != nil {
			s.failTask(taskID, fmt.Errorf("stage %s: %w", name, err))
			writeError(w, http.StatusInternalServerError, "could not stage upload")
			return
		}
		staged = append(staged, dst)

		done := i + 1
		s.tasks.Update(taskID, func(t *Task) {
			t.Progress = done
			t.Message = fmt.Sprintf("Uploaded %d of %d files", done, len(files))
		})
	}

	if len(staged) == 0 {
		os.RemoveAll(stagingDir)
		s.failTask(taskID, fmt.Errorf("no valid JSON files uploaded"))
		writeError(w, http.StatusBadRequest, "No valid JSON files uploaded")
		return
	}

	if err := s.limiter.Acquire(r.Context()); err != nil {
		os.RemoveAll(stagingDir)
		s.failTask(taskID, err)
		if err == converter.ErrTooManyTasks {
			w.Header().Set("Retry-After", "30")
			writeError(w, http.StatusTooManyRequests, err.Error())
		} else {
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	total := len(staged)
	s.tasks.Update(taskID, func(t *Task) {
		t.Status = StatusProcessing
		t.Progress = 0
		t.Total = total
		t.Message = "Starting conversion..."
	})

	logger.Info("conversion task started", "files", total, "output", outputName)
	go s.runConversion(taskID, stagingDir, staged, outputName)

	writeJSON(w, map[string]string{
		"status":  StatusProcessing,
		"message": "Conversion started",
		"task_id": taskID,
	})
}

// runConversion executes one conversion task in the background and records
// the outcome in the task registry (and, when configured, the history store).
func (s *Server) runConversion(taskID, stagingDir string, files []string, outputName string) {
	defer s.limiter.Release()
	defer os.RemoveAll(stagingDir)

	logger := logging.WithFields(context.Background(), "task_id", taskID)

	outPath := filepath.Join(s.cfg.Storage.OutputDir, outputName)
	if err := os.MkdirAll(s.cfg.Storage.OutputDir, 0o755); err != nil {
		s.failTask(taskID, fmt.Errorf("create output directory: %w", err))
		return
	}

	out, err := os.Create(outPath)
	if err != nil {
		s.failTask(taskID, fmt.Errorf("create output file: %w", err))
		return
	}

	conv := converter.New(converter.Options{
		Workers:   s.cfg.Convert.Workers,
		BatchSize: s.cfg.Convert.BatchSize,
		Progress: func(done, total int, message string) {
			s.tasks.Update(taskID, func(t *Task) {
				t.Progress = done
				t.Total = total
				t.Message = message
			})
		},
	})

	stats, runErr := conv.Run(context.Background(), converter.Input{Paths: files}, converter.NewCSVSink(out))
	if closeErr := out.Close(); runErr == nil {
		runErr = closeErr
	}

	if runErr != nil {
		os.Remove(outPath)
		logger.Error("conversion failed", "error", runErr)
		s.failTask(taskID, runErr)
		return
	}

	s.tasks.Update(taskID, func(t *Task) {
		t.Status = StatusCompleted
		t.Progress = t.Total
		t.Message = "Conversion complete"
		t.Stats = &stats
	})
	logger.Info("conversion task complete",
		"output", outputName,
		"records", stats.RecordsProcessed,
		"duplicates_skipped", stats.DuplicatesSkipped,
	)

	s.recordRun(taskID, outputName, stats)
}

// recordRun persists a run summary when a history store is configured.
// Failures are logged, never surfaced to the task.
func (s *Server) recordRun(taskID, outputName string, stats converter.Stats) {
	if s.history == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := s.history.RecordRun(ctx, history.RunRecord{
		TaskID:            taskID,
		OutputFile:        outputName,
		FilesProcessed:    stats.FilesProcessed,
		FilesWithErrors:   stats.FilesWithErrors,
		RecordsProcessed:  stats.RecordsProcessed,
		DuplicatesSkipped: stats.DuplicatesSkipped,
		Elapsed:           stats.Elapsed,
		Errors:            stats.Errors,
	})
	if err != nil {
		logging.FromContext(ctx).Warn("history record failed", "task_id", taskID, "error", err)
	}
}

// failTask marks the task as errored.
func (s *Server) failTask(taskID string, err error) {
	s.tasks.Update(taskID, func(t *Task) {
		t.Status = StatusError
		t.Error = err.Error()
		t.Message = "Error: " + err.Error()
	})
}

// handleStatus reports the current state of a task.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")

	task, ok := s.tasks.Get(taskID)
	if !ok {
		writeTaskNotFound(w)
		return
	}
	writeJSON(w, task)
}

// handleDownload streams the generated CSV for a completed task.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")

	task, ok := s.tasks.Get(taskID)
	if !ok {
		writeTaskNotFound(w)
		return
	}
	if task.Status != StatusCompleted {
		writeError(w, http.StatusBadRequest, "Conversion not yet complete")
		return
	}

	path := filepath.Join(s.cfg.Storage.OutputDir, task.OutputFile)
	f, err := os.Open(path)
	if err != nil {
		writeError(w, http.StatusNotFound, "Output file not found")
		return
	}
	defer f.Close()

	// The file already starts with a UTF-8 BOM; the charset label tells
	// browsers and Excel to expect it.
	w.Header().Set("Content-Type", "text/csv; charset=utf-8-sig")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", task.OutputFile))
	io.Copy(w, f)
}

// handleHistory lists recent conversion runs from the history store.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, "history not configured")
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	runs, err := s.history.RecentRuns(r.Context(), limit)
	if err != nil {
		logging.FromContext(r.Context()).Error("history query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not load history")
		return
	}
	writeJSON(w, map[string]any{"runs": runs})
}

// writeTaskNotFound writes the 404 payload the polling page expects.
func writeTaskNotFound(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	fmt.Fprint(w, `{"status":"error","message":"Task not found"}`)
}

// sanitizeFilename reduces an uploaded filename to a safe base name,
// returning "" for anything that is not a .json file.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == ".." || name == "" {
		return ""
	}
	if !strings.EqualFold(filepath.Ext(name), ".json") {
		return ""
	}
	return name
}

// normalizeOutputName turns the user-supplied output name into a safe CSV
// filename, defaulting to output.csv.
func normalizeOutputName(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	name = strings.TrimSuffix(name, filepath.Ext(name))
	if name == "" || name == "." || name == ".." {
		name = "output"
	}
	return name + ".csv"
}

// saveUpload copies one multipart file to dst.
func saveUpload(fh *multipart.FileHeader, dst string) error {
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
