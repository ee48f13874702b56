package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Leolion08/ctom-sub000/internal/field"
	"github.com/Leolion08/ctom-sub000/internal/importer"
	"github.com/Leolion08/ctom-sub000/internal/store"
)

func (s *Server) handleImportCustomers(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	ext := filepath.Ext(filename)
	if !importer.SupportedImportExtensions[ext] {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", ext), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	now := time.Now()
	job := &importer.Job{
		ID:        store.NewID(),
		Filename:  filename,
		Status:    importer.StatusQueued,
		Phase:     "queued",
		CreatedAt: now,
		UpdatedAt: now,
	}
	job.SetFileData(data)

	if err := s.imports.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":   job.ID,
		"status":   job.Status,
		"poll_url": fmt.Sprintf("/api/v1/customers/import/%s/status", job.ID),
	})
}

func (s *Server) handleImportStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.imports.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	snap := job.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"job_id":   snap.ID,
		"status":   snap.Status,
		"phase":    snap.Phase,
		"progress": snap.Progress,
	})
}

func (s *Server) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"customers": s.customers.List()})
}

type customerRequest struct {
	Values map[string]string `json:"values"`
}

func (c customerRequest) validate() error {
	if len(c.Values) == 0 {
		return fmt.Errorf("values are required")
	}
	for name := range c.Values {
		if !field.ValidName(name) {
			return fmt.Errorf("invalid field name %q", name)
		}
	}
	return nil
}

func (s *Server) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := req.validate(); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	c, err := s.customers.Create(req.Values)
	if err != nil {
		jsonError(w, "failed to store customer", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleGetCustomer(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lookupCustomer(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleUpdateCustomer(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lookupCustomer(w, r)
	if !ok {
		return
	}
	var req customerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := req.validate(); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	updated, err := s.customers.Update(c.ID, req.Values)
	if err != nil {
		jsonError(w, "failed to update customer", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteCustomer(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lookupCustomer(w, r)
	if !ok {
		return
	}
	if err := s.customers.Delete(c.ID); err != nil {
		jsonError(w, "failed to delete customer", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) lookupCustomer(w http.ResponseWriter, r *http.Request) (*store.Customer, bool) {
	id := chi.URLParam(r, "customerID")
	c, err := s.customers.Get(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			jsonError(w, "customer not found", http.StatusNotFound)
		} else {
			jsonError(w, "failed to load customer", http.StatusInternalServerError)
		}
		return nil, false
	}
	return c, true
}
