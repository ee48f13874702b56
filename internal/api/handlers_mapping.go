package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Leolion08/ctom-sub000/internal/merge"
	"github.com/Leolion08/ctom-sub000/internal/render"
	"github.com/Leolion08/ctom-sub000/internal/store"
)

type mergeRequest struct {
	// CustomerID loads values from the customer store; Values override or
	// replace them per field.
	CustomerID string            `json:"customer_id,omitempty"`
	Values     map[string]string `json:"values,omitempty"`
}

// resolveValues merges customer record values with per-request overrides.
func (s *Server) resolveValues(req mergeRequest) (map[string]string, error) {
	values := make(map[string]string)
	if req.CustomerID != "" {
		c, err := s.customers.Get(req.CustomerID)
		if err != nil {
			return nil, err
		}
		for k, v := range c.Values {
			values[k] = v
		}
	}
	for k, v := range req.Values {
		values[k] = v
	}
	return values, nil
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	tpl, ok := s.lookupTemplate(w, r)
	if !ok {
		return
	}
	var req mergeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	values, err := s.resolveValues(req)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			jsonError(w, "customer not found", http.StatusNotFound)
		} else {
			jsonError(w, "failed to load customer", http.StatusInternalServerError)
		}
		return
	}

	data, err := s.templates.Document(tpl.ID)
	if err != nil {
		jsonError(w, "failed to read document", http.StatusInternalServerError)
		return
	}

	start := time.Now()
	fragment, err := render.HTML(data, render.Options{
		MaxTableNestingLevel: s.cfg.MaxTableNestingLevel,
		Mapping:              true,
	})
	if err == nil {
		fragment, err = merge.RenderHTML(fragment, tpl.Fields, values)
	}
	s.mergeStats.Observe(start)
	if err != nil {
		s.log.Error("preview failed", "template_id", tpl.ID, "error", err)
		jsonError(w, "failed to build preview", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"template_id": tpl.ID,
		"version":     tpl.Version,
		"html":        fragment,
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	tpl, ok := s.lookupTemplate(w, r)
	if !ok {
		return
	}
	var req mergeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	values, err := s.resolveValues(req)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			jsonError(w, "customer not found", http.StatusNotFound)
		} else {
			jsonError(w, "failed to load customer", http.StatusInternalServerError)
		}
		return
	}

	data, err := s.templates.Document(tpl.ID)
	if err != nil {
		jsonError(w, "failed to read document", http.StatusInternalServerError)
		return
	}

	start := time.Now()
	filled, n, err := merge.FillDocument(data, tpl.Fields, values)
	s.mergeStats.Observe(start)
	if err != nil {
		s.log.Error("export failed", "template_id", tpl.ID, "error", err)
		jsonError(w, "failed to fill document", http.StatusInternalServerError)
		return
	}
	s.log.Info("document exported", "template_id", tpl.ID, "replacements", n)

	base := strings.TrimSuffix(tpl.Filename, ".docx")
	serveDocx(w, fmt.Sprintf("%s-filled.docx", base), filled)
}
