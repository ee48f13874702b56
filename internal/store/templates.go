// Package store persists templates and customer records on the local
// filesystem. Each template is a DOCX file plus a JSON sidecar with its
// metadata; an in-memory index over the sidecars is rebuilt at startup and
// guarded by a mutex, so the store is safe for concurrent handlers.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Leolion08/ctom-sub000/internal/field"
)

// ErrNotFound reports a lookup for an id the store does not hold.
var ErrNotFound = fmt.Errorf("not found")

// Template is the stored metadata of one uploaded DOCX template.
type Template struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Filename    string      `json:"filename"`
	Version     int         `json:"version"`
	Fields      []field.Def `json:"fields,omitempty"`
	// Notes holds operator-entered markdown shown on the template detail
	// page.
	Notes string `json:"notes,omitempty"`
	// SearchText is the extracted plain text of the current document
	// version, matched by Search.
	SearchText string    `json:"searchText,omitempty"`
	SizeBytes  int64     `json:"sizeBytes"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// TemplateStore keeps templates under one directory: <id>.docx next to
// <id>.json.
type TemplateStore struct {
	dir string

	mu   sync.RWMutex
	byID map[string]*Template
}

// OpenTemplates opens (creating if needed) a template directory and rebuilds
// the index from the sidecars found there.
func OpenTemplates(dir string) (*TemplateStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create template dir: %w", err)
	}
	s := &TemplateStore{dir: dir, byID: make(map[string]*Template)}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan template dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read sidecar %s: %w", e.Name(), err)
		}
		var t Template
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("decode sidecar %s: %w", e.Name(), err)
		}
		s.byID[t.ID] = &t
	}
	return s, nil
}

func (s *TemplateStore) docPath(id string) string {
	return filepath.Join(s.dir, id+".docx")
}

func (s *TemplateStore) sidecarPath(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Create stores a new template and its document bytes.
func (s *TemplateStore) Create(t Template, doc []byte) (*Template, error) {
	now := time.Now().UTC()
	t.ID = NewID()
	t.Version = 1
	t.SizeBytes = int64(len(doc))
	t.CreatedAt = now
	t.UpdatedAt = now

	if err := writeFileAtomic(s.docPath(t.ID), doc); err != nil {
		return nil, err
	}
	if err := s.writeSidecar(&t); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.byID[t.ID] = &t
	s.mu.Unlock()
	return cloneTemplate(&t), nil
}

// Get returns a template's metadata.
func (s *TemplateStore) Get(id string) (*Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("template %s: %w", id, ErrNotFound)
	}
	return cloneTemplate(t), nil
}

// Document returns the current DOCX bytes of a template.
func (s *TemplateStore) Document(id string) ([]byte, error) {
	if _, err := s.Get(id); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.docPath(id))
	if err != nil {
		return nil, fmt.Errorf("read template document: %w", err)
	}
	return data, nil
}

// UpdateDocument replaces a template's document bytes and bumps its
// version. searchText replaces the indexed text of the new version.
func (s *TemplateStore) UpdateDocument(id string, doc []byte, searchText string) (*Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("template %s: %w", id, ErrNotFound)
	}
	if err := writeFileAtomic(s.docPath(id), doc); err != nil {
		return nil, err
	}
	t.Version++
	t.SizeBytes = int64(len(doc))
	t.SearchText = searchText
	t.UpdatedAt = time.Now().UTC()
	if err := s.writeSidecar(t); err != nil {
		return nil, err
	}
	return cloneTemplate(t), nil
}

// UpdateMeta rewrites the editable metadata of a template. Nil slices and
// empty strings passed through apply verbatim; callers merge beforehand.
func (s *TemplateStore) UpdateMeta(id, name, description, notes string, fields []field.Def) (*Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("template %s: %w", id, ErrNotFound)
	}
	t.Name = name
	t.Description = description
	t.Notes = notes
	t.Fields = fields
	t.UpdatedAt = time.Now().UTC()
	if err := s.writeSidecar(t); err != nil {
		return nil, err
	}
	return cloneTemplate(t), nil
}

// Delete removes a template and its document.
func (s *TemplateStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return fmt.Errorf("template %s: %w", id, ErrNotFound)
	}
	delete(s.byID, id)
	if err := os.Remove(s.sidecarPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove sidecar: %w", err)
	}
	if err := os.Remove(s.docPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove document: %w", err)
	}
	return nil
}

// List returns all templates, newest first.
func (s *TemplateStore) List() []*Template {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Template, 0, len(s.byID))
	for _, t := range s.byID {
		out = append(out, cloneTemplate(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

// Search matches q case-insensitively against template names, descriptions
// and extracted document text.
func (s *TemplateStore) Search(q string) []*Template {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return s.List()
	}
	var out []*Template
	for _, t := range s.List() {
		if strings.Contains(strings.ToLower(t.Name), q) ||
			strings.Contains(strings.ToLower(t.Description), q) ||
			strings.Contains(strings.ToLower(t.SearchText), q) {
			out = append(out, t)
		}
	}
	return out
}

func (s *TemplateStore) writeSidecar(t *Template) error {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("encode sidecar: %w", err)
	}
	return writeFileAtomic(s.sidecarPath(t.ID), data)
}

func cloneTemplate(t *Template) *Template {
	c := *t
	if t.Fields != nil {
		c.Fields = append([]field.Def(nil), t.Fields...)
	}
	return &c
}

// writeFileAtomic writes via a temp file in the target directory and
// renames it into place, so readers never observe a partial file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
