package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"clouddrive/config"
	"clouddrive/logger"
	"clouddrive/models"
	"clouddrive/repositories"
	"clouddrive/storage"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VersionService interface {
	CreateVersion(ctx context.Context, userID uint, fileID uint, file multipart.File, header *multipart.FileHeader) (models.FileVersion, error)
	ListVersions(ctx context.Context, userID uint, fileID uint) ([]models.FileVersion, error)
	RestoreVersion(ctx context.Context, userID uint, fileID uint, versionNumber int) (models.FileVersion, error)
}

type versionService struct {
	txManager TxManager
	files     repositories.FileRepository
	versions  repositories.VersionRepository
	quotas    repositories.QuotaRepository
	quota     QuotaService
	blob      storage.BlobStore
	notifier  Notifier
}

func NewVersionService(
	txManager TxManager,
	files repositories.FileRepository,
	versions repositories.VersionRepository,
	quotas repositories.QuotaRepository,
	quota QuotaService,
	blob storage.BlobStore,
	notifier Notifier,
) VersionService {
	return &versionService{
		txManager: txManager,
		files:     files,
		versions:  versions,
		quotas:    quotas,
		quota:     quota,
		blob:      blob,
		notifier:  notifier,
	}
}

// loadOwnedFile restricts version operations to the owner of an active,
// non-folder file.
func (s *versionService) loadOwnedFile(ctx context.Context, userID uint, fileID uint) (models.File, error) {
	file, err := s.files.GetByIDAndUser(ctx, nil, fileID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.File{}, newAppError(http.StatusNotFound, "file not found", nil)
		}
		return models.File{}, newAppError(http.StatusInternalServerError, "failed to query file", err)
	}
	if file.IsFolder {
		return models.File{}, newAppError(http.StatusBadRequest, "folders do not have versions", nil)
	}
	if file.IsDeleted {
		return models.File{}, newAppError(http.StatusNotFound, "file not found", nil)
	}
	return file, nil
}

func (s *versionService) CreateVersion(ctx context.Context, userID uint, fileID uint, file multipart.File, header *multipart.FileHeader) (models.FileVersion, error) {
	if header.Size > config.AppConfig.Storage.MaxUploadSize {
		return models.FileVersion{}, newAppError(http.StatusBadRequest, "file exceeds the upload size limit", nil)
	}

	record, err := s.loadOwnedFile(ctx, userID, fileID)
	if err != nil {
		return models.FileVersion{}, err
	}

	// A new version adds bytes but no catalog entry, so only the storage
	// ceiling applies.
	decision, err := s.quota.CheckUploadAllowed(ctx, userID, header.Size, 0)
	if err != nil {
		return models.FileVersion{}, err
	}
	if !decision.Allowed {
		return models.FileVersion{}, newAppErrorWithCode(http.StatusForbidden, decision.Code, decision.Reason)
	}

	name := sanitizeFilename(header.Filename)
	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = record.MimeType
	}

	key := fmt.Sprintf("users/%d/files/%s_%s", userID, uuid.New().String(), name)
	if err := s.blob.Put(ctx, key, file, mimeType); err != nil {
		return models.FileVersion{}, newAppError(http.StatusInternalServerError, "failed to store file", err)
	}

	var version models.FileVersion
	err = s.txManager.WithTransaction(ctx, func(tx *gorm.DB) error {
		maxNumber, err := s.versions.MaxVersionNumber(ctx, tx, record.ID)
		if err != nil {
			return err
		}
		version = models.FileVersion{
			FileID:        record.ID,
			VersionNumber: maxNumber + 1,
			Size:          header.Size,
			StoragePath:   key,
			MimeType:      mimeType,
			ChangeType:    models.ChangeTypeUpdate,
			CreatorID:     userID,
		}
		if err := s.versions.Create(ctx, tx, &version); err != nil {
			return err
		}
		updates := map[string]interface{}{
			"size":         header.Size,
			"storage_path": key,
			"mime_type":    mimeType,
		}
		if err := s.files.UpdateByIDAndUser(ctx, tx, record.ID, userID, updates); err != nil {
			return err
		}
		// New content adds bytes; the catalog entry count is unchanged.
		return s.quotas.AddUsage(ctx, tx, userID, header.Size, 0)
	})
	if err != nil {
		if delErr := s.blob.Delete(ctx, key); delErr != nil {
			logger.Errorf("orphan blob %s not removed: %v", key, delErr)
		}
		return models.FileVersion{}, newAppError(http.StatusInternalServerError, "failed to save version", err)
	}

	s.notifier.Notify(ctx, userID, Event{
		Type:   EventVersionCreated,
		FileID: record.ID,
		Name:   record.Name,
		Data:   map[string]interface{}{"version_number": version.VersionNumber},
	})
	return version, nil
}

func (s *versionService) ListVersions(ctx context.Context, userID uint, fileID uint) ([]models.FileVersion, error) {
	if _, err := s.loadOwnedFile(ctx, userID, fileID); err != nil {
		return nil, err
	}
	versions, err := s.versions.ListByFile(ctx, nil, fileID)
	if err != nil {
		return nil, newAppError(http.StatusInternalServerError, "failed to list versions", err)
	}
	return versions, nil
}

// RestoreVersion brings an older version's content back as the current one
// by appending a new version row. History is never rewritten, so the restore
// itself can be undone the same way.
func (s *versionService) RestoreVersion(ctx context.Context, userID uint, fileID uint, versionNumber int) (models.FileVersion, error) {
	record, err := s.loadOwnedFile(ctx, userID, fileID)
	if err != nil {
		return models.FileVersion{}, err
	}

	source, err := s.versions.GetByFileAndNumber(ctx, nil, fileID, versionNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.FileVersion{}, newAppError(http.StatusNotFound, "version not found", nil)
		}
		return models.FileVersion{}, newAppError(http.StatusInternalServerError, "failed to query version", err)
	}

	var restored models.FileVersion
	err = s.txManager.WithTransaction(ctx, func(tx *gorm.DB) error {
		maxNumber, err := s.versions.MaxVersionNumber(ctx, tx, record.ID)
		if err != nil {
			return err
		}
		restored = models.FileVersion{
			FileID:        record.ID,
			VersionNumber: maxNumber + 1,
			Size:          source.Size,
			StoragePath:   source.StoragePath,
			MimeType:      source.MimeType,
			ChangeType:    models.ChangeTypeRestore,
			CreatorID:     userID,
		}
		if err := s.versions.Create(ctx, tx, &restored); err != nil {
			return err
		}
		updates := map[string]interface{}{
			"size":         source.Size,
			"storage_path": source.StoragePath,
			"mime_type":    source.MimeType,
		}
		return s.files.UpdateByIDAndUser(ctx, tx, record.ID, userID, updates)
	})
	if err != nil {
		return models.FileVersion{}, newAppError(http.StatusInternalServerError, "failed to restore version", err)
	}

	s.notifier.Notify(ctx, userID, Event{
		Type:   EventVersionRestored,
		FileID: record.ID,
		Name:   record.Name,
		Data:   map[string]interface{}{"version_number": restored.VersionNumber, "restored_from": versionNumber},
	})
	return restored, nil
}
