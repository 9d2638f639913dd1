package repository

import (
	"context"
	"errors"
	"sync"

	"github.com/codraft/codraft/internal/document"
)

var (
	ErrNotFound    = errors.New("document not found")
	ErrTitleExists = errors.New("document title already exists")
)

// Repository is the document store contract consumed by the service layer.
// Save overwrites the whole stored document (last-writer-wins at the store).
type Repository interface {
	Insert(ctx context.Context, d *document.Document) error
	Find(ctx context.Context, id string) (*document.Document, error)
	FindAll(ctx context.Context) ([]*document.Document, error)
	Save(ctx context.Context, d *document.Document) error
}

// MemoryRepo is an in-memory repository used for development and unit tests.
type MemoryRepo struct {
	mu     sync.RWMutex
	store  map[string]*document.Document
	titles map[string]string // title -> id, enforces the unique-title constraint
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{store: make(map[string]*document.Document), titles: make(map[string]string)}
}

func (m *MemoryRepo) Insert(ctx context.Context, d *document.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.titles[d.Title]; taken {
		return ErrTitleExists
	}
	m.store[d.ID] = d.Clone()
	m.titles[d.Title] = d.ID
	return nil
}

func (m *MemoryRepo) Find(ctx context.Context, id string) (*document.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if d, ok := m.store[id]; ok {
		return d.Clone(), nil
	}
	return nil, ErrNotFound
}

func (m *MemoryRepo) FindAll(ctx context.Context) ([]*document.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*document.Document, 0, len(m.store))
	for _, d := range m.store {
		out = append(out, d.Clone())
	}
	return out, nil
}

func (m *MemoryRepo) Save(ctx context.Context, d *document.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.store[d.ID]
	if !ok {
		return ErrNotFound
	}
	if old.Title != d.Title {
		if owner, taken := m.titles[d.Title]; taken && owner != d.ID {
			return ErrTitleExists
		}
		delete(m.titles, old.Title)
		m.titles[d.Title] = d.ID
	}
	m.store[d.ID] = d.Clone()
	return nil
}
