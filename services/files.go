package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/socialbbs/models"
	"github.com/cppla/socialbbs/storage"
)

// FileService records uploads and streams their bytes through a blob store.
type FileService struct {
	db       *gorm.DB
	logger   *zap.Logger
	store    storage.BlobStore
	maxBytes int64
	clock    Clock
}

// NewFileService creates a FileService. A non-positive maxBytes disables the size check.
func NewFileService(db *gorm.DB, logger *zap.Logger, store storage.BlobStore, maxBytes int64, clock Clock) *FileService {
	return &FileService{db: db, logger: logger, store: store, maxBytes: maxBytes, clock: clock}
}

// Upload stores data under a sanitized name and records its metadata.
func (s *FileService) Upload(ctx context.Context, actor Actor, filename, contentType string, data []byte) (*models.File, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return nil, ErrFileTooLarge
	}

	now := s.clock.now()
	name := storage.SanitizeFilename(filename)
	key, err := storage.NewKey(now, name)
	if err != nil {
		return nil, fmt.Errorf("generate storage key: %w", err)
	}
	storagePath, err := s.store.Put(ctx, key, data, contentType)
	if err != nil {
		return nil, fmt.Errorf("store blob: %w", err)
	}

	file := models.File{
		UserID:      actor.UserID,
		Filename:    name,
		StoragePath: storagePath,
		ContentType: contentType,
		Size:        int64(len(data)),
		UploadedAt:  now,
	}
	if err := s.db.WithContext(ctx).Create(&file).Error; err != nil {
		s.logger.Warn("file metadata insert failed after blob write",
			zap.String("storage_path", storagePath), zap.Error(err))
		return nil, fmt.Errorf("record file: %w", err)
	}
	return &file, nil
}

// Open returns a file's metadata and bytes.
func (s *FileService) Open(ctx context.Context, id uint) (*models.File, []byte, error) {
	var file models.File
	if err := s.db.WithContext(ctx).First(&file, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrFileNotFound
		}
		return nil, nil, fmt.Errorf("load file: %w", err)
	}
	data, err := s.store.Get(ctx, file.StoragePath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, ErrFileNotFound
		}
		return nil, nil, fmt.Errorf("read blob: %w", err)
	}
	return &file, data, nil
}

// ListForUser returns the files uploaded by userID, newest first.
func (s *FileService) ListForUser(ctx context.Context, userID uint) ([]models.File, error) {
	var files []models.File
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("uploaded_at DESC, id DESC").Find(&files).Error
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	return files, nil
}
