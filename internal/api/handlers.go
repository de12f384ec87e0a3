package api

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"lukechampine.com/blake3"

	"scribe/internal/jobs"
	"scribe/internal/logging"
	"scribe/internal/render"
	"scribe/internal/stats"
)

var supportedExtensions = map[string]struct{}{
	".mp3": {}, ".wav": {}, ".m4a": {}, ".aac": {}, ".ogg": {}, ".flac": {}, ".wma": {},
	".mp4": {}, ".avi": {}, ".mov": {}, ".mkv": {}, ".webm": {},
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Limits.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Limits.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("parse upload: %v", err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "no file provided")
		return
	}

	options, err := parseSubmitOptions(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if options.diarize && !s.cfg.Diarization.Enabled {
		writeError(w, http.StatusBadRequest, "diarization is disabled")
		return
	}

	accepted := make([]jobs.Job, 0, len(files))
	for _, header := range files {
		job, err := s.acceptUpload(header, options)
		if err != nil {
			var httpErr *httpError
			if errors.As(err, &httpErr) {
				writeError(w, httpErr.status, httpErr.message)
			} else {
				writeError(w, http.StatusInternalServerError, err.Error())
			}
			return
		}
		accepted = append(accepted, job)
	}

	for _, job := range accepted {
		s.submitter.Submit(r.Context(), job)
		s.logger.Info("job submitted",
			logging.String(logging.FieldJobID, job.ID),
			logging.String("filename", job.Filename),
			logging.Int64("bytes", job.ByteSize))
	}

	if len(accepted) == 1 {
		writeJSON(w, http.StatusAccepted, accepted[0])
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"jobs": accepted})
}

type submitOptions struct {
	diarize      bool
	speakerCount int
	formats      []string
}

func parseSubmitOptions(r *http.Request) (submitOptions, error) {
	options := submitOptions{}

	if raw := r.FormValue("diarize"); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			return options, fmt.Errorf("invalid diarize value %q", raw)
		}
		options.diarize = value
	}
	if raw := r.FormValue("speakers"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			return options, fmt.Errorf("invalid speakers value %q", raw)
		}
		options.speakerCount = value
	}
	if raw := r.FormValue("formats"); raw != "" {
		for _, name := range strings.Split(raw, ",") {
			format, err := render.ParseFormat(name)
			if err != nil {
				return options, err
			}
			options.formats = append(options.formats, string(format))
		}
	}
	return options, nil
}

type httpError struct {
	status  int
	message string
}

func (e *httpError) Error() string { return e.message }

// acceptUpload persists one uploaded file and registers its job. The file is
// synced to disk before the job is handed to the scheduler so the pipeline
// never races the upload write.
func (s *Server) acceptUpload(header *multipart.FileHeader, options submitOptions) (jobs.Job, error) {
	filename := filepath.Base(header.Filename)
	extension := strings.ToLower(filepath.Ext(filename))
	if _, ok := supportedExtensions[extension]; !ok {
		return jobs.Job{}, &httpError{http.StatusBadRequest, fmt.Sprintf("unsupported file format %q", extension)}
	}

	src, err := header.Open()
	if err != nil {
		return jobs.Job{}, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	jobID := uuid.NewString()
	targetPath := filepath.Join(s.cfg.Paths.UploadDir, jobID+extension)
	dst, err := os.Create(targetPath)
	if err != nil {
		return jobs.Job{}, fmt.Errorf("store upload: %w", err)
	}

	hasher := blake3.New(32, nil)
	written, err := io.Copy(io.MultiWriter(dst, hasher), src)
	if err == nil {
		err = dst.Sync()
	}
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(targetPath)
		return jobs.Job{}, fmt.Errorf("store upload: %w", err)
	}

	job, err := s.store.Create(jobs.Job{
		ID:           jobID,
		Filename:     filename,
		SourcePath:   targetPath,
		ByteSize:     written,
		Fingerprint:  hex.EncodeToString(hasher.Sum(nil)),
		Formats:      options.formats,
		Diarize:      options.diarize,
		SpeakerCount: options.speakerCount,
	})
	if err != nil {
		_ = os.Remove(targetPath)
		if errors.Is(err, jobs.ErrStoreFull) {
			return jobs.Job{}, &httpError{http.StatusServiceUnavailable, "job store is full"}
		}
		return jobs.Job{}, err
	}
	return job, nil
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	state := jobs.State(r.URL.Query().Get("state"))
	listed := s.store.List(state)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", raw))
			return
		}
		if limit < len(listed) {
			listed = listed[:limit]
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": listed})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	job, err := s.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	job, err := s.store.Delete(chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, jobs.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, jobs.ErrJobActive):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.removeJobFiles(job)
	writeJSON(w, http.StatusOK, map[string]string{"deleted": job.ID})
}

func (s *Server) removeJobFiles(job jobs.Job) {
	if job.SourcePath != "" {
		if err := os.Remove(job.SourcePath); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("remove upload", logging.String(logging.FieldJobID, job.ID), logging.Error(err))
		}
	}
	if job.ResultDir != "" {
		if err := os.RemoveAll(job.ResultDir); err != nil {
			s.logger.Warn("remove results", logging.String(logging.FieldJobID, job.ID), logging.Error(err))
		}
	}
}

type resultPayload struct {
	ID        string            `json:"id"`
	Artifacts map[string]string `json:"artifacts"`
	Files     map[string]string `json:"files"`
	Warning   string            `json:"warning,omitempty"`
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	payload, status, err := s.loadResult(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleBatchResult(w http.ResponseWriter, r *http.Request) {
	var request struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("parse request: %v", err))
		return
	}
	if len(request.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "no job ids provided")
		return
	}

	results := make([]resultPayload, 0, len(request.IDs))
	failures := map[string]string{}
	for _, id := range request.IDs {
		payload, _, err := s.loadResult(id)
		if err != nil {
			failures[id] = err.Error()
			continue
		}
		results = append(results, payload)
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results, "failures": failures})
}

func (s *Server) loadResult(id string) (resultPayload, int, error) {
	job, err := s.store.Get(id)
	if err != nil {
		return resultPayload{}, http.StatusNotFound, err
	}
	if job.State != jobs.StateCompleted {
		return resultPayload{}, http.StatusConflict, fmt.Errorf("job %s is %s, results require completion", id, job.State)
	}

	payload := resultPayload{
		ID:        job.ID,
		Artifacts: job.Artifacts,
		Files:     map[string]string{},
		Warning:   job.Warning,
	}
	for format, name := range job.Artifacts {
		content, readErr := os.ReadFile(filepath.Join(job.ResultDir, name))
		if readErr != nil {
			return resultPayload{}, http.StatusInternalServerError, fmt.Errorf("read artifact %s: %w", name, readErr)
		}
		payload.Files[format] = string(content)
	}
	return payload, http.StatusOK, nil
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	job, err := s.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if job.State != jobs.StateCompleted {
		writeError(w, http.StatusConflict, fmt.Sprintf("job %s is %s, downloads require completion", job.ID, job.State))
		return
	}

	formatName := r.URL.Query().Get("format")
	if formatName == "" {
		formatName = string(render.FormatText)
	}
	format, err := render.ParseFormat(formatName)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	name, ok := job.Artifacts[string(format)]
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("job %s has no %s artifact", job.ID, format))
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeFile(w, r, filepath.Join(job.ResultDir, name))
}

func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Files []stats.FileHint `json:"files"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("parse request: %v", err))
		return
	}
	if len(request.Files) == 0 {
		writeError(w, http.StatusBadRequest, "no files provided")
		return
	}

	perFile := make([]float64, 0, len(request.Files))
	for _, hint := range request.Files {
		perFile = append(perFile, s.estimator.Estimate(hint.Extension, hint.MediaDuration))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"estimated_seconds": s.estimator.EstimateBatch(request.Files),
		"per_file":          perFile,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	profiles, global := s.estimator.Summary()
	writeJSON(w, http.StatusOK, map[string]any{
		"extensions": profiles,
		"global":     global,
	})
}
