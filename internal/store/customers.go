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
)

// Customer is one imported data record. Values are keyed by field name and
// stored raw; formatting happens at merge time.
type Customer struct {
	ID        string            `json:"id"`
	Values    map[string]string `json:"values"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// CustomerStore keeps one JSON file per customer under a directory.
type CustomerStore struct {
	dir string

	mu   sync.RWMutex
	byID map[string]*Customer
}

// OpenCustomers opens (creating if needed) a customer directory and
// rebuilds the index from the records found there.
func OpenCustomers(dir string) (*CustomerStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create customer dir: %w", err)
	}
	s := &CustomerStore{dir: dir, byID: make(map[string]*Customer)}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan customer dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read customer %s: %w", e.Name(), err)
		}
		var c Customer
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("decode customer %s: %w", e.Name(), err)
		}
		s.byID[c.ID] = &c
	}
	return s, nil
}

// Create stores a new customer record.
func (s *CustomerStore) Create(values map[string]string) (*Customer, error) {
	now := time.Now().UTC()
	c := &Customer{
		ID:        NewID(),
		Values:    cloneValues(values),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.write(c); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.byID[c.ID] = c
	s.mu.Unlock()
	return cloneCustomer(c), nil
}

// Get returns one customer.
func (s *CustomerStore) Get(id string) (*Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("customer %s: %w", id, ErrNotFound)
	}
	return cloneCustomer(c), nil
}

// Update replaces a customer's values.
func (s *CustomerStore) Update(id string, values map[string]string) (*Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("customer %s: %w", id, ErrNotFound)
	}
	c.Values = cloneValues(values)
	c.UpdatedAt = time.Now().UTC()
	if err := s.write(c); err != nil {
		return nil, err
	}
	return cloneCustomer(c), nil
}

// Delete removes a customer record.
func (s *CustomerStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return fmt.Errorf("customer %s: %w", id, ErrNotFound)
	}
	delete(s.byID, id)
	if err := os.Remove(filepath.Join(s.dir, id+".json")); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove customer: %w", err)
	}
	return nil
}

// List returns all customers, newest first.
func (s *CustomerStore) List() []*Customer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Customer, 0, len(s.byID))
	for _, c := range s.byID {
		out = append(out, cloneCustomer(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (s *CustomerStore) write(c *Customer) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encode customer: %w", err)
	}
	return writeFileAtomic(filepath.Join(s.dir, c.ID+".json"), data)
}

func cloneCustomer(c *Customer) *Customer {
	out := *c
	out.Values = cloneValues(c.Values)
	return &out
}

func cloneValues(values map[string]string) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out
}
