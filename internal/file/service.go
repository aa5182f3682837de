package file

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/abduss/mediahost/internal/project"
	"github.com/abduss/mediahost/internal/quota"
	"github.com/abduss/mediahost/internal/storage"
	"github.com/abduss/mediahost/internal/validation"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultMaxFileSize   = 50 * 1024 * 1024 // 50MB
	defaultPresignExpiry = 15 * time.Minute
)

type metadataStore interface {
	Create(ctx context.Context, f File) (File, error)
	Get(ctx context.Context, projectID, fileID uuid.UUID) (File, error)
	ListCompleted(ctx context.Context, projectID uuid.UUID) ([]File, error)
	Complete(ctx context.Context, f File) (File, error)
	Delete(ctx context.Context, projectID, fileID uuid.UUID) (File, error)
	DeletePending(ctx context.Context, projectID, fileID uuid.UUID) (bool, error)
}

type projectStore interface {
	GetProject(ctx context.Context, ownerID, projectID uuid.UUID) (project.Project, error)
}

type adapterSource interface {
	ConfiguredAdapter(provider storage.Provider) (storage.Adapter, error)
}

type quotaGate interface {
	CheckStorageQuota(ctx context.Context, provider storage.Provider, incoming int64) (quota.Check, error)
	InvalidateStorageCache(provider storage.Provider)
}

// Options bounds the upload protocol.
type Options struct {
	MaxFileSize   int64
	PresignExpiry time.Duration
}

// Service manages the presign and confirm lifecycle of files.
type Service struct {
	repo          metadataStore
	projects      projectStore
	adapters      adapterSource
	quota         quotaGate
	derivers      map[ContentKind]VariantDeriver
	maxFileSize   int64
	presignExpiry time.Duration
	logger        *zap.Logger
}

// NewService constructs a file service. prober may be nil, in which case videos
// complete without probing.
func NewService(repo metadataStore, projects projectStore, adapters adapterSource, gate quotaGate, prober videoProber, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "file"))
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = defaultMaxFileSize
	}
	if opts.PresignExpiry <= 0 {
		opts.PresignExpiry = defaultPresignExpiry
	}

	return &Service{
		repo:     repo,
		projects: projects,
		adapters: adapters,
		quota:    gate,
		derivers: map[ContentKind]VariantDeriver{
			KindImage: &imageDeriver{logger: logger},
			KindVideo: &videoDeriver{prober: prober, logger: logger},
			KindOther: otherDeriver{},
		},
		maxFileSize:   opts.MaxFileSize,
		presignExpiry: opts.PresignExpiry,
		logger:        logger,
	}
}

// Presign validates an upload intent, records it as PENDING and returns a
// presigned URL. The record is persisted before the URL is handed out.
func (s *Service) Presign(ctx context.Context, userID, projectID uuid.UUID, in PresignInput) (PresignResult, error) {
	p, err := s.projects.GetProject(ctx, userID, projectID)
	if err != nil {
		return PresignResult{}, err
	}

	name, err := s.validatePresign(in)
	if err != nil {
		return PresignResult{}, err
	}

	check, err := s.quota.CheckStorageQuota(ctx, p.Provider, in.FileSize)
	if err != nil {
		return PresignResult{}, fmt.Errorf("check quota: %w", err)
	}
	if !check.Allowed {
		return PresignResult{}, &QuotaError{Check: check}
	}

	adapter, err := s.adapters.ConfiguredAdapter(p.Provider)
	if err != nil {
		return PresignResult{}, err
	}

	fileID := uuid.New()
	kind := KindFor(in.ContentType)
	width, height := 0, 0
	if kind == KindImage && in.Width != nil && in.Height != nil {
		width, height = *in.Width, *in.Height
	}
	objectName := storage.ObjectName(projectID, fileID, name, width, height)

	presigned, err := adapter.CreatePresignedUpload(ctx, storage.PresignInput{
		ObjectName:  objectName,
		ContentType: validation.NormalizeContentType(in.ContentType),
		ExpiresIn:   s.presignExpiry,
	})
	if err != nil {
		return PresignResult{}, fmt.Errorf("presign upload: %w", err)
	}

	if _, err := s.repo.Create(ctx, File{
		ID:         fileID,
		ProjectID:  projectID,
		Name:       name,
		MimeType:   validation.NormalizeContentType(in.ContentType),
		IsImage:    kind == KindImage,
		Size:       in.FileSize,
		ObjectName: objectName,
		Status:     StatusPending,
	}); err != nil {
		return PresignResult{}, err
	}

	result := PresignResult{
		PresignedURL: presigned.URL,
		ObjectName:   objectName,
		ObjectURL:    presigned.ObjectURL,
		FileID:       fileID,
		ExpiresAt:    presigned.ExpiresAt,
	}
	if !check.Unlimited {
		result.Quota = &QuotaState{Remaining: check.Remaining}
	}
	return result, nil
}

func (s *Service) validatePresign(in PresignInput) (string, error) {
	res := validation.ValidateFile(in.FileName, in.ContentType, nil)
	messages := res.Errors

	switch {
	case in.FileSize <= 0:
		messages = append(messages, "file size must be positive")
	case in.FileSize > s.maxFileSize:
		messages = append(messages, fmt.Sprintf("file size exceeds the maximum of %d bytes", s.maxFileSize))
	}

	if (in.Width == nil) != (in.Height == nil) {
		messages = append(messages, "width and height must be provided together")
	} else if in.Width != nil && (*in.Width <= 0 || *in.Height <= 0) {
		messages = append(messages, "width and height must be positive")
	}

	if len(messages) > 0 {
		return "", validationError(messages...)
	}
	return res.SanitizedName, nil
}

// Confirm finalizes a PENDING upload: download, validate, derive, persist.
func (s *Service) Confirm(ctx context.Context, userID, projectID uuid.UUID, in ConfirmInput) (ConfirmResult, error) {
	p, err := s.projects.GetProject(ctx, userID, projectID)
	if err != nil {
		return ConfirmResult{}, err
	}

	res := validation.ValidateFile(in.FileName, in.ContentType, nil)
	if !res.Valid {
		return ConfirmResult{}, validationError(res.Errors...)
	}

	rec, err := s.repo.Get(ctx, projectID, in.FileID)
	if err != nil {
		return ConfirmResult{}, err
	}
	if rec.ObjectName != in.ObjectName {
		return ConfirmResult{}, ErrFileNotFound
	}
	switch rec.Status {
	case StatusPending:
	case StatusCompleted:
		return ConfirmResult{}, ErrAlreadyConfirmed
	default:
		return ConfirmResult{}, ErrFileNotFound
	}
	if err := storage.EnsureProjectScope(projectID, rec.ObjectName); err != nil {
		return ConfirmResult{}, err
	}
	contentType := validation.NormalizeContentType(in.ContentType)
	if contentType != rec.MimeType {
		return ConfirmResult{}, validationError(fmt.Sprintf("contentType %s does not match the presigned %s", contentType, rec.MimeType))
	}

	adapter, err := s.adapters.ConfiguredAdapter(p.Provider)
	if err != nil {
		return ConfirmResult{}, err
	}

	log := s.logger.With(zap.String("file_id", rec.ID.String()), zap.String("object", rec.ObjectName))

	data, err := adapter.DownloadObject(ctx, rec.ObjectName)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return ConfirmResult{}, ErrUploadIncomplete
		}
		return ConfirmResult{}, fmt.Errorf("download object: %w", err)
	}
	if len(data) == 0 {
		return ConfirmResult{}, ErrUploadIncomplete
	}
	if int64(len(data)) > s.maxFileSize {
		s.discard(ctx, adapter, rec, log)
		return ConfirmResult{}, ErrFileTooLarge
	}
	if size := int64(len(data)); size > rec.Size {
		// The quota was checked against the declared size at presign.
		check, err := s.quota.CheckStorageQuota(ctx, p.Provider, size)
		if err != nil {
			return ConfirmResult{}, fmt.Errorf("check quota: %w", err)
		}
		if !check.Allowed {
			log.Info("upload exceeds declared size and quota", zap.Int64("declared", rec.Size), zap.Int64("actual", size))
			s.discard(ctx, adapter, rec, log)
			return ConfirmResult{}, &QuotaError{Check: check}
		}
	}

	kind := KindFor(contentType)
	deriver := s.derivers[kind]
	job := &confirmJob{
		file:        rec,
		data:        data,
		contentType: contentType,
		requests:    in.Variants,
		adapter:     adapter,
		attempt:     storage.NewAttempt(),
	}

	if err := deriver.Validate(job); err != nil {
		if errors.Is(err, ErrContentMismatch) {
			log.Info("content mismatch, discarding upload", zap.Error(err))
			s.discard(ctx, adapter, rec, log)
			return ConfirmResult{}, ErrContentMismatch
		}
		return ConfirmResult{}, err
	}

	derived, err := deriver.Derive(ctx, job)
	if err != nil {
		log.Error("derive variants", zap.String("kind", string(kind)), zap.Error(err))
		return ConfirmResult{}, fmt.Errorf("derive variants: %w", err)
	}

	rec.Name = res.SanitizedName
	rec.MimeType = contentType
	rec.IsImage = kind == KindImage
	rec.Size = int64(len(data))
	rec.URL = derived.url
	rec.Variants = derived.variants

	stored, err := s.repo.Complete(ctx, rec)
	if err != nil {
		// A concurrent confirm may have won. Its renditions live under a
		// different attempt prefix, so only this attempt's objects go.
		s.discardVariants(context.WithoutCancel(ctx), adapter, rec, job.attempt, log)
		return ConfirmResult{}, err
	}

	s.quota.InvalidateStorageCache(p.Provider)
	log.Info("file confirmed", zap.String("kind", string(kind)), zap.Int("variants", len(stored.Variants)))

	return ConfirmResult{File: stored, Thumbnail: derived.thumbnail}, nil
}

// discard removes the record and the uploaded original of a rejected upload.
// Nothing is touched once another confirm has completed the record.
func (s *Service) discard(ctx context.Context, adapter storage.Adapter, rec File, log *zap.Logger) {
	ctx = context.WithoutCancel(ctx)
	removed, err := s.repo.DeletePending(ctx, rec.ProjectID, rec.ID)
	if err != nil {
		log.Warn("delete rejected record", zap.Error(err))
		return
	}
	if !removed {
		log.Info("record no longer pending, keeping object")
		return
	}
	if err := adapter.DeleteObject(ctx, rec.ObjectName); err != nil {
		log.Warn("delete rejected object", zap.Error(err))
	}
}

// discardVariants removes the objects derived by one confirm attempt.
func (s *Service) discardVariants(ctx context.Context, adapter storage.Adapter, rec File, attempt string, log *zap.Logger) {
	prefix := storage.AttemptPrefix(rec.ProjectID, rec.ID, attempt)
	for _, name := range rec.ObjectNames() {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		if err := adapter.DeleteObject(ctx, name); err != nil {
			log.Warn("discard variant", zap.String("variant", name), zap.Error(err))
		}
	}
}

// List returns the completed files of a project.
func (s *Service) List(ctx context.Context, userID, projectID uuid.UUID) ([]File, error) {
	if _, err := s.projects.GetProject(ctx, userID, projectID); err != nil {
		return nil, err
	}
	files, err := s.repo.ListCompleted(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if files == nil {
		files = []File{}
	}
	return files, nil
}

// Get returns a completed file.
func (s *Service) Get(ctx context.Context, userID, projectID, fileID uuid.UUID) (File, error) {
	if _, err := s.projects.GetProject(ctx, userID, projectID); err != nil {
		return File{}, err
	}
	f, err := s.repo.Get(ctx, projectID, fileID)
	if err != nil {
		return File{}, err
	}
	if f.Status != StatusCompleted {
		return File{}, ErrFileNotFound
	}
	return f, nil
}

// Delete removes a completed file's objects and then its record.
func (s *Service) Delete(ctx context.Context, userID, projectID, fileID uuid.UUID) error {
	p, err := s.projects.GetProject(ctx, userID, projectID)
	if err != nil {
		return err
	}
	f, err := s.repo.Get(ctx, projectID, fileID)
	if err != nil {
		return err
	}
	if f.Status != StatusCompleted {
		return ErrFileNotFound
	}

	adapter, err := s.adapters.ConfiguredAdapter(p.Provider)
	if err != nil {
		return err
	}

	names := f.ObjectNames()
	for _, name := range names {
		if err := storage.EnsureProjectScope(projectID, name); err != nil {
			return err
		}
	}
	for i := len(names) - 1; i >= 0; i-- {
		if err := adapter.DeleteObject(ctx, names[i]); err != nil {
			return fmt.Errorf("remove object: %w", err)
		}
	}

	if _, err := s.repo.Delete(ctx, projectID, fileID); err != nil {
		return err
	}
	s.quota.InvalidateStorageCache(p.Provider)
	return nil
}
