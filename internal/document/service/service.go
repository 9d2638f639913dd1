package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/codraft/codraft/internal/document"
	"github.com/codraft/codraft/internal/document/repository"
	"github.com/google/uuid"
)

var (
	ErrNotFound            = errors.New("document not found")
	ErrInvalidVersionIndex = errors.New("invalid version index")
	ErrTitleExists         = errors.New("document title already exists")
)

// Service owns all document read-modify-write paths. Save and Revert take a
// per-document lock so concurrent calls for the same id serialize: the dedup
// decision and the version append always operate on the freshest stored state,
// and a racing save degrades to a clean last-writer-wins outcome instead of an
// arbitrary interleaving.
type Service struct {
	repo  repository.Repository
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New(repo repository.Repository) *Service {
	return &Service{repo: repo, locks: make(map[string]*sync.Mutex)}
}

// NewMemoryService returns a Service backed by the in-memory repository.
func NewMemoryService() *Service {
	return New(repository.NewMemoryRepo())
}

func (s *Service) lock(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// Create stores a new document and records the initial version, even when the
// content is empty.
func (s *Service) Create(ctx context.Context, title, content, owner string) (*document.Document, error) {
	now := time.Now().UTC()
	d := &document.Document{
		ID:        uuid.NewString(),
		Title:     title,
		Content:   content,
		Owner:     owner,
		Versions:  []document.Version{{Content: content, Timestamp: now}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, d); err != nil {
		if errors.Is(err, repository.ErrTitleExists) {
			return nil, ErrTitleExists
		}
		return nil, fmt.Errorf("insert document: %w", err)
	}
	return d, nil
}

func (s *Service) Get(ctx context.Context, id string) (*document.Document, error) {
	d, err := s.repo.Find(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find document: %w", err)
	}
	return d, nil
}

func (s *Service) List(ctx context.Context) ([]*document.Document, error) {
	return s.repo.FindAll(ctx)
}

// Save overwrites current content and appends a version unless the last
// stored version already has identical content. UpdatedAt is refreshed either
// way.
func (s *Service) Save(ctx context.Context, id, content string) (*document.Document, error) {
	l := s.lock(id)
	l.Lock()
	defer l.Unlock()

	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	d.Content = content
	d.UpdatedAt = now
	d.AppendVersionIfChanged(content, now)
	if err := s.repo.Save(ctx, d); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}
	return d, nil
}

// Revert restores the content of versions[index] by appending it as a new
// version. History is never truncated, so indices already handed out remain
// valid after a revert.
func (s *Service) Revert(ctx context.Context, id string, index int) (*document.Document, error) {
	l := s.lock(id)
	l.Lock()
	defer l.Unlock()

	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(d.Versions) {
		return nil, ErrInvalidVersionIndex
	}
	now := time.Now().UTC()
	d.Content = d.Versions[index].Content
	d.UpdatedAt = now
	d.Versions = append(d.Versions, document.Version{Content: d.Content, Timestamp: now})
	if err := s.repo.Save(ctx, d); err != nil {
		return nil, fmt.Errorf("save reverted document: %w", err)
	}
	return d, nil
}

// Versions returns the ordered snapshot history for a document.
func (s *Service) Versions(ctx context.Context, id string) ([]document.Version, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return d.Versions, nil
}
