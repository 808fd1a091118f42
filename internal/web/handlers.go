package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/sheetdb/internal/core"
	"github.com/JonMunkholm/sheetdb/internal/logging"
)

const (
	// maxJSONBody bounds small JSON request bodies.
	maxJSONBody = 1 << 20

	// multipartOverhead is allowed on top of the file size limit for the
	// multipart framing and form fields.
	multipartOverhead = 1 << 20

	// maxMultipartMemory is kept in memory before spilling to temp files.
	maxMultipartMemory = 32 << 20

	msgNoSheetData = "No data found in this sheet."
)

// handleHealth reports database reachability and upload slot usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]any{
		"status":  "ok",
		"uploads": s.service.LimiterStatus(),
	}
	if err := s.service.Ping(r.Context()); err != nil {
		status = http.StatusServiceUnavailable
		body["status"] = "unavailable"
		logging.FromContext(r.Context()).Warn("health check failed", "error", err)
	}
	writeJSON(w, r, status, body)
}

type createProjectRequest struct {
	ProjectName string `json:"project_name"`
}

// handleCreateProject creates a project from {"project_name": "..."}.
func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, r, &core.ValidationError{Message: "invalid request body: " + err.Error()})
		return
	}

	p, err := s.service.CreateProject(r.Context(), req.ProjectName)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, Response{
		Message: "Project created successfully",
		Data:    p,
	})
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.service.ListProjects(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, projects)
}

// handleUpload ingests the multipart "file" field into the project named
// by the path, replacing the project's previous sheets.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathID(r, "projectId", "project")
	if err != nil {
		respondError(w, r, err)
		return
	}

	maxSize := s.cfg.Upload.MaxFileSize
	if maxSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		respondError(w, r, formError(err, maxSize))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, &core.ValidationError{Code: core.CodeNoFile, Message: "no file provided"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, r, formError(err, maxSize))
		return
	}

	result, err := s.service.Ingest(r.Context(), projectID, header.Filename, data)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, Response{
		Message: "File uploaded and data inserted successfully",
		Data:    result,
	})
}

func (s *Server) handleListSheets(w http.ResponseWriter, r *http.Request) {
	sheets, err := s.service.ListSheets(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, sheets)
}

func (s *Server) handleListProjectSheets(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathID(r, "projectId", "project")
	if err != nil {
		respondError(w, r, err)
		return
	}

	sheets, err := s.service.ListSheetsByProject(r.Context(), projectID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, sheets)
}

// handleGetSheet returns the stored rows of one sheet.
func (s *Server) handleGetSheet(w http.ResponseWriter, r *http.Request) {
	sheetID, err := pathID(r, "sheetId", "sheet")
	if err != nil {
		respondError(w, r, err)
		return
	}

	rows, err := s.service.GetSheetRows(r.Context(), sheetID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if len(rows) == 0 {
		writeJSON(w, r, http.StatusOK, Response{Message: msgNoSheetData})
		return
	}
	writeJSON(w, r, http.StatusOK, rows)
}

// pathID parses a positive integer URL parameter.
func pathID(r *http.Request, param, label string) (int64, error) {
	raw := chi.URLParam(r, param)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, &core.ValidationError{Code: core.CodeMissingID, Message: fmt.Sprintf("%s id is required, got %q", label, raw)}
	}
	return id, nil
}

// formError classifies multipart read failures.
func formError(err error, maxSize int64) error {
	var tooBig *http.MaxBytesError
	switch {
	case errors.As(err, &tooBig):
		return &core.ValidationError{Code: core.CodeFileTooLarge, Message: fmt.Sprintf("file too large: upload exceeds the %d byte limit", maxSize)}
	case errors.Is(err, http.ErrNotMultipart), errors.Is(err, http.ErrMissingFile):
		return &core.ValidationError{Code: core.CodeNoFile, Message: "no file provided"}
	default:
		return &core.ValidationError{Message: "invalid upload form: " + err.Error()}
	}
}
