package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/yuin/goldmark"

	"github.com/Leolion08/ctom-sub000/internal/extract"
	"github.com/Leolion08/ctom-sub000/internal/field"
	"github.com/Leolion08/ctom-sub000/internal/insert"
	"github.com/Leolion08/ctom-sub000/internal/render"
	"github.com/Leolion08/ctom-sub000/internal/store"
)

// notesMarkdown converts operator notes to HTML for the detail endpoint.
var notesMarkdown = goldmark.New()

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

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
	if !extract.IsDOCX(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
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

	ex, err := extract.FromDOCX(data)
	if err != nil {
		jsonError(w, "not a readable docx: "+err.Error(), http.StatusBadRequest)
		return
	}

	name := r.FormValue("name")
	if name == "" {
		name = strings.TrimSuffix(filename, filepath.Ext(filename))
	}

	tpl, err := s.templates.Create(store.Template{
		Name:        name,
		Description: r.FormValue("description"),
		Filename:    filename,
		Fields:      discoveredFields(ex.Text),
		SearchText:  ex.Text,
	}, data)
	if err != nil {
		s.log.Error("template create failed", "error", err)
		jsonError(w, "failed to store template", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, tpl)
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	var templates []*store.Template
	if q != "" {
		templates = s.templates.Search(q)
	} else {
		templates = s.templates.List()
	}
	writeJSON(w, http.StatusOK, map[string]any{"templates": templates})
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	tpl, ok := s.lookupTemplate(w, r)
	if !ok {
		return
	}

	notesHTML := ""
	if tpl.Notes != "" {
		var buf bytes.Buffer
		if err := notesMarkdown.Convert([]byte(tpl.Notes), &buf); err != nil {
			s.log.Warn("notes render failed", "template_id", tpl.ID, "error", err)
		} else {
			notesHTML = buf.String()
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"template":   tpl,
		"notes_html": notesHTML,
	})
}

type updateTemplateRequest struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Notes       string      `json:"notes"`
	Fields      []field.Def `json:"fields"`
}

func (s *Server) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	tpl, ok := s.lookupTemplate(w, r)
	if !ok {
		return
	}

	var req updateTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		req.Name = tpl.Name
	}
	for _, f := range req.Fields {
		if !field.ValidName(f.Name) {
			jsonError(w, fmt.Sprintf("invalid field name %q", f.Name), http.StatusBadRequest)
			return
		}
	}

	updated, err := s.templates.UpdateMeta(tpl.ID, req.Name, req.Description, req.Notes, req.Fields)
	if err != nil {
		jsonError(w, "failed to update template", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	tpl, ok := s.lookupTemplate(w, r)
	if !ok {
		return
	}
	if err := s.templates.Delete(tpl.ID); err != nil {
		jsonError(w, "failed to delete template", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDownloadTemplate(w http.ResponseWriter, r *http.Request) {
	tpl, ok := s.lookupTemplate(w, r)
	if !ok {
		return
	}
	data, err := s.templates.Document(tpl.ID)
	if err != nil {
		jsonError(w, "failed to read document", http.StatusInternalServerError)
		return
	}
	serveDocx(w, tpl.Filename, data)
}

func (s *Server) handleRenderTemplate(w http.ResponseWriter, r *http.Request) {
	tpl, ok := s.lookupTemplate(w, r)
	if !ok {
		return
	}
	mode := r.URL.Query().Get("mode")
	if mode == "" {
		mode = "view"
	}
	if mode != "view" && mode != "mapping" {
		jsonError(w, "mode must be view or mapping", http.StatusBadRequest)
		return
	}

	data, err := s.templates.Document(tpl.ID)
	if err != nil {
		jsonError(w, "failed to read document", http.StatusInternalServerError)
		return
	}

	start := time.Now()
	html, err := render.HTML(data, render.Options{
		MaxTableNestingLevel: s.cfg.MaxTableNestingLevel,
		Mapping:              mode == "mapping",
	})
	s.renderStats.Observe(start)
	if err != nil {
		s.log.Error("render failed", "template_id", tpl.ID, "error", err)
		jsonError(w, "failed to render document", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"template_id": tpl.ID,
		"version":     tpl.Version,
		"mode":        mode,
		"html":        html,
	})
}

func (s *Server) handleListFields(w http.ResponseWriter, r *http.Request) {
	tpl, ok := s.lookupTemplate(w, r)
	if !ok {
		return
	}
	data, err := s.templates.Document(tpl.ID)
	if err != nil {
		jsonError(w, "failed to read document", http.StatusInternalServerError)
		return
	}
	ex, err := extract.FromDOCX(data)
	if err != nil {
		jsonError(w, "failed to read document text", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"declared": tpl.Fields,
		"in_use":   field.Names(ex.Text),
	})
}

type insertFieldsRequest struct {
	Bindings []insert.Binding `json:"bindings"`
}

func (s *Server) handleInsertFields(w http.ResponseWriter, r *http.Request) {
	tpl, ok := s.lookupTemplate(w, r)
	if !ok {
		return
	}
	var req insertFieldsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Bindings) == 0 {
		jsonError(w, "bindings are required", http.StatusBadRequest)
		return
	}

	data, err := s.templates.Document(tpl.ID)
	if err != nil {
		jsonError(w, "failed to read document", http.StatusInternalServerError)
		return
	}

	start := time.Now()
	res, err := s.engine.Insert(data, req.Bindings)
	s.insertStats.Observe(start)
	if err != nil {
		var nle *insert.NestingLimitError
		if errors.As(err, &nle) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":  nle.Error(),
				"fields": nle.Fields,
			})
			return
		}
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	searchText := tpl.SearchText
	if ex, err := extract.FromDOCX(res.Data); err == nil {
		searchText = ex.Text
	}
	updated, err := s.templates.UpdateDocument(tpl.ID, res.Data, searchText)
	if err != nil {
		jsonError(w, "failed to store document", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"template_id": updated.ID,
		"version":     updated.Version,
		"inserted":    res.Inserted,
		"unresolved":  res.Unresolved,
	})
}

func (s *Server) lookupTemplate(w http.ResponseWriter, r *http.Request) (*store.Template, bool) {
	id := chi.URLParam(r, "templateID")
	tpl, err := s.templates.Get(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			jsonError(w, "template not found", http.StatusNotFound)
		} else {
			jsonError(w, "failed to load template", http.StatusInternalServerError)
		}
		return nil, false
	}
	return tpl, true
}

// discoveredFields turns the field names found in document text into TEXT
// typed defs; operators refine types afterwards.
func discoveredFields(text string) []field.Def {
	var defs []field.Def
	for _, name := range field.Names(text) {
		defs = append(defs, field.Def{Name: name, Type: field.TypeText})
	}
	return defs
}

func serveDocx(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Write(data)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
