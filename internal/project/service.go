package project

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/abduss/mediahost/internal/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxNameLength = 128

// FileIndex lists every stored object of a project, originals and variants.
type FileIndex interface {
	ListObjectNames(ctx context.Context, projectID uuid.UUID) ([]string, error)
}

type repository interface {
	Create(ctx context.Context, ownerID uuid.UUID, name string, provider storage.Provider) (Project, error)
	List(ctx context.Context, ownerID uuid.UUID) ([]Project, error)
	Get(ctx context.Context, ownerID, projectID uuid.UUID) (Project, error)
	Delete(ctx context.Context, ownerID, projectID uuid.UUID) error
	Usage(ctx context.Context, projectID uuid.UUID) (Usage, error)
}

type adapterSource interface {
	ConfiguredAdapter(provider storage.Provider) (storage.Adapter, error)
	IsProviderAvailable(provider storage.Provider) bool
}

type usageInvalidator interface {
	InvalidateStorageCache(provider storage.Provider)
}

// Service orchestrates project operations.
type Service struct {
	repo     repository
	files    FileIndex
	adapters adapterSource
	quota    usageInvalidator
	logger   *zap.Logger
}

// NewService constructs a project service.
func NewService(repo repository, files FileIndex, adapters adapterSource, quota usageInvalidator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:     repo,
		files:    files,
		adapters: adapters,
		quota:    quota,
		logger:   logger.With(zap.String("component", "project")),
	}
}

// CreateProject creates a project bound to a configured provider.
func (s *Service) CreateProject(ctx context.Context, ownerID uuid.UUID, name string, provider storage.Provider) (Project, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return Project{}, ErrInvalidName
	}
	if !s.adapters.IsProviderAvailable(provider) {
		return Project{}, ErrProviderUnavailable
	}
	return s.repo.Create(ctx, ownerID, name, provider)
}

// ListProjects returns the user's projects.
func (s *Service) ListProjects(ctx context.Context, ownerID uuid.UUID) ([]Project, error) {
	return s.repo.List(ctx, ownerID)
}

// GetProject returns a project ensuring ownership.
func (s *Service) GetProject(ctx context.Context, ownerID, projectID uuid.UUID) (Project, error) {
	return s.repo.Get(ctx, ownerID, projectID)
}

// VerifyOwnership reports whether userID owns projectID. A missing project is
// reported the same way as a foreign one.
func (s *Service) VerifyOwnership(ctx context.Context, userID, projectID uuid.UUID) (bool, error) {
	if _, err := s.repo.Get(ctx, userID, projectID); err != nil {
		if errors.Is(err, ErrProjectNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Usage returns the display usage of a project owned by userID.
func (s *Service) Usage(ctx context.Context, userID, projectID uuid.UUID) (Usage, error) {
	ok, err := s.VerifyOwnership(ctx, userID, projectID)
	if err != nil {
		return Usage{}, err
	}
	if !ok {
		return Usage{}, ErrProjectNotFound
	}
	return s.repo.Usage(ctx, projectID)
}

// DeleteProject removes the project, its stored objects and its file records.
func (s *Service) DeleteProject(ctx context.Context, ownerID, projectID uuid.UUID) error {
	p, err := s.repo.Get(ctx, ownerID, projectID)
	if err != nil {
		return err
	}

	if err := s.deleteObjects(ctx, p); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, ownerID, projectID); err != nil {
		return err
	}

	if s.quota != nil {
		s.quota.InvalidateStorageCache(p.Provider)
	}
	return nil
}

func (s *Service) deleteObjects(ctx context.Context, p Project) error {
	if s.files == nil {
		return nil
	}
	names, err := s.files.ListObjectNames(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("list project objects: %w", err)
	}
	if len(names) == 0 {
		return nil
	}

	adapter, err := s.adapters.ConfiguredAdapter(p.Provider)
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := storage.EnsureProjectScope(p.ID, name); err != nil {
			s.logger.Warn("skipping object outside project", zap.String("project_id", p.ID.String()), zap.String("object", name))
			continue
		}
		if err := adapter.DeleteObject(ctx, name); err != nil {
			return fmt.Errorf("remove object %s: %w", name, err)
		}
	}
	return nil
}
