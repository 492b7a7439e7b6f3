package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"clouddrive/config"
	"clouddrive/logger"
	"clouddrive/models"
	"clouddrive/repositories"
	"clouddrive/storage"
	"clouddrive/utils"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ListFilesParams struct {
	Deleted    bool
	ParentID   *uint
	ParentSet  bool
	Starred    *bool
	Recent     bool
	Search     string
	SortBy     string
	Order      string
	Page       int
	Limit      int
}

type FileListOutput struct {
	Files      []models.File        `json:"files"`
	Pagination utils.PaginationData `json:"pagination"`
	SearchMode string               `json:"search_mode,omitempty"`
}

type PatchFileInput struct {
	Name       *string
	ParentID   *uint
	MoveToRoot bool
	Starred    *bool
}

type FileService interface {
	Upload(ctx context.Context, userID uint, parentID *uint, file multipart.File, header *multipart.FileHeader) (models.File, error)
	ListFiles(ctx context.Context, userID uint, params ListFilesParams) (FileListOutput, error)
	CreateFolder(ctx context.Context, userID uint, name string, parentID *uint) (models.File, error)
	PatchFile(ctx context.Context, userID uint, fileID uint, in PatchFileInput) (models.File, error)
	SoftDelete(ctx context.Context, userID uint, fileID uint) error
	Restore(ctx context.Context, userID uint, fileID uint) error
	PermanentDelete(ctx context.Context, userID uint, fileID uint) error
	GetDownloadURL(ctx context.Context, userID uint, fileID uint) (string, error)
	GetThumbnailURL(ctx context.Context, userID uint, fileID uint) (string, error)
}

type fileService struct {
	txManager TxManager
	files     repositories.FileRepository
	versions  repositories.VersionRepository
	shares    repositories.ShareRepository
	quotas    repositories.QuotaRepository
	quota     QuotaService
	blob      storage.BlobStore
	notifier  Notifier
	resolver  accessResolver
	purger    filePurger
}

func NewFileService(
	txManager TxManager,
	users repositories.UserRepository,
	files repositories.FileRepository,
	versions repositories.VersionRepository,
	shares repositories.ShareRepository,
	quotas repositories.QuotaRepository,
	quota QuotaService,
	blob storage.BlobStore,
	notifier Notifier,
) FileService {
	return &fileService{
		txManager: txManager,
		files:     files,
		versions:  versions,
		shares:    shares,
		quotas:    quotas,
		quota:     quota,
		blob:      blob,
		notifier:  notifier,
		resolver:  accessResolver{users: users, shares: shares},
		purger: filePurger{
			txManager: txManager,
			files:     files,
			versions:  versions,
			shares:    shares,
			quotas:    quotas,
			blob:      blob,
		},
	}
}

// resolveParent validates that parentID names an owned, non-trashed folder.
func (s *fileService) resolveParent(ctx context.Context, userID uint, parentID *uint) error {
	if parentID == nil {
		return nil
	}
	parent, err := s.files.GetByIDAndUser(ctx, nil, *parentID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return newAppError(http.StatusNotFound, "parent folder not found", nil)
		}
		return newAppError(http.StatusInternalServerError, "failed to check parent folder", err)
	}
	if !parent.IsFolder {
		return newAppError(http.StatusBadRequest, "parent is not a folder", nil)
	}
	if parent.IsDeleted {
		return newAppError(http.StatusNotFound, "parent folder not found", nil)
	}
	return nil
}

func (s *fileService) Upload(ctx context.Context, userID uint, parentID *uint, file multipart.File, header *multipart.FileHeader) (models.File, error) {
	if header.Size > config.AppConfig.Storage.MaxUploadSize {
		return models.File{}, newAppError(http.StatusBadRequest, "file exceeds the upload size limit", nil)
	}
	if err := s.resolveParent(ctx, userID, parentID); err != nil {
		return models.File{}, err
	}

	decision, err := s.quota.CheckUploadAllowed(ctx, userID, header.Size, 1)
	if err != nil {
		return models.File{}, err
	}
	if !decision.Allowed {
		return models.File{}, newAppErrorWithCode(http.StatusForbidden, decision.Code, decision.Reason)
	}

	name := sanitizeFilename(header.Filename)
	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = getMimeType("." + fileExtension(name))
	}

	fileUUID := uuid.New().String()
	key := fmt.Sprintf("users/%d/files/%s_%s", userID, fileUUID, name)
	if err := s.blob.Put(ctx, key, file, mimeType); err != nil {
		return models.File{}, newAppError(http.StatusInternalServerError, "failed to store file", err)
	}

	thumbnailKey := s.maybeStoreThumbnail(ctx, userID, fileUUID, name, file)

	record := models.File{
		UserID:        userID,
		Name:          name,
		OriginalName:  header.Filename,
		Size:          header.Size,
		MimeType:      mimeType,
		Extension:     fileExtension(name),
		StoragePath:   key,
		ThumbnailPath: thumbnailKey,
		ParentID:      parentID,
	}

	err = s.txManager.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := s.files.Create(ctx, tx, &record); err != nil {
			return err
		}
		version := models.FileVersion{
			FileID:        record.ID,
			VersionNumber: 1,
			Size:          header.Size,
			StoragePath:   key,
			MimeType:      mimeType,
			ChangeType:    models.ChangeTypeUpdate,
			CreatorID:     userID,
		}
		if err := s.versions.Create(ctx, tx, &version); err != nil {
			return err
		}
		return s.quotas.AddUsage(ctx, tx, userID, header.Size, 1)
	})
	if err != nil {
		if delErr := s.blob.Delete(ctx, key); delErr != nil {
			logger.Errorf("orphan blob %s not removed: %v", key, delErr)
		}
		return models.File{}, newAppError(http.StatusInternalServerError, "failed to save file record", err)
	}

	s.notifier.Notify(ctx, userID, Event{Type: EventFileCreated, FileID: record.ID, Name: record.Name})
	return record, nil
}

// maybeStoreThumbnail renders and stores a JPEG thumbnail for image uploads.
// Any failure just means the file has no thumbnail.
func (s *fileService) maybeStoreThumbnail(ctx context.Context, userID uint, fileUUID string, name string, file multipart.File) string {
	if !isImageFile(name) {
		return ""
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return ""
	}

	img, err := imaging.Decode(file)
	if err != nil {
		logger.Debugf("thumbnail decode failed for %s: %v", name, err)
		return ""
	}
	thumb := imaging.Fit(img, 320, 320, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(80)); err != nil {
		return ""
	}

	key := fmt.Sprintf("users/%d/thumbnails/%s_thumb.jpg", userID, fileUUID)
	if err := s.blob.Put(ctx, key, &buf, "image/jpeg"); err != nil {
		logger.Debugf("thumbnail upload failed for %s: %v", name, err)
		return ""
	}
	return key
}

func (s *fileService) ListFiles(ctx context.Context, userID uint, params ListFilesParams) (FileListOutput, error) {
	cfg := config.AppConfig

	page := params.Page
	if page < 1 {
		page = 1
	}
	limit := params.Limit
	if limit < 1 || limit > cfg.Pagination.MaxPageSize {
		limit = cfg.Pagination.DefaultPageSize
	}

	allowedSortFields := map[string]bool{"name": true, "size": true, "created_at": true, "updated_at": true}
	sortBy := params.SortBy
	if !allowedSortFields[sortBy] {
		sortBy = "created_at"
	}
	order := params.Order
	if order != "asc" && order != "desc" {
		order = cfg.Pagination.DefaultOrder
	}

	in := repositories.ListFilesInput{
		UserID:    userID,
		Deleted:   params.Deleted,
		ParentID:  params.ParentID,
		ParentSet: params.ParentSet,
		Starred:   params.Starred,
		Recent:    params.Recent,
		Search:    params.Search,
		SortBy:    sortBy,
		Order:     order,
		Offset:    (page - 1) * limit,
		Limit:     limit,
	}

	if params.Search != "" {
		in.SearchMode = repositories.SearchModeSubstring
		if cfg.Search.FulltextEnabled && len([]rune(params.Search)) > 1 {
			in.SearchMode = repositories.SearchModeFulltext
		}
	}

	files, total, searchMode, err := s.listWithFallback(ctx, in)
	if err != nil {
		return FileListOutput{}, newAppError(http.StatusInternalServerError, "failed to list files", err)
	}

	return FileListOutput{
		Files:      files,
		Pagination: paginationData(page, limit, total),
		SearchMode: searchMode,
	}, nil
}

// listWithFallback runs the list+count pair, silently downgrading a failed
// fulltext search to the substring path. It returns the search mode that
// actually produced the result.
func (s *fileService) listWithFallback(ctx context.Context, in repositories.ListFilesInput) ([]models.File, int64, string, error) {
	total, err := s.files.Count(ctx, nil, in)
	if err == nil {
		var files []models.File
		files, err = s.files.List(ctx, nil, in)
		if err == nil {
			return files, total, in.SearchMode, nil
		}
	}

	if in.SearchMode != repositories.SearchModeFulltext {
		return nil, 0, "", err
	}
	logger.Debugf("fulltext search failed, falling back to substring: %v", err)

	in.SearchMode = repositories.SearchModeSubstring
	total, err = s.files.Count(ctx, nil, in)
	if err != nil {
		return nil, 0, "", err
	}
	files, err := s.files.List(ctx, nil, in)
	if err != nil {
		return nil, 0, "", err
	}
	return files, total, repositories.SearchModeSubstring, nil
}

func (s *fileService) CreateFolder(ctx context.Context, userID uint, name string, parentID *uint) (models.File, error) {
	if name == "" {
		return models.File{}, newAppError(http.StatusBadRequest, "folder name is required", nil)
	}
	if err := s.resolveParent(ctx, userID, parentID); err != nil {
		return models.File{}, err
	}

	folder := models.File{
		UserID:       userID,
		Name:         sanitizeFilename(name),
		OriginalName: name,
		ParentID:     parentID,
		IsFolder:     true,
	}
	if err := s.files.Create(ctx, nil, &folder); err != nil {
		return models.File{}, newAppError(http.StatusInternalServerError, "failed to create folder", err)
	}

	s.notifier.Notify(ctx, userID, Event{Type: EventFolderCreated, FileID: folder.ID, Name: folder.Name})
	return folder, nil
}

func (s *fileService) loadForAccess(ctx context.Context, userID uint, fileID uint, needed string) (models.File, error) {
	file, err := s.files.GetByID(ctx, nil, fileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.File{}, newAppError(http.StatusNotFound, "file not found", nil)
		}
		return models.File{}, newAppError(http.StatusInternalServerError, "failed to query file", err)
	}

	decision, err := s.resolver.resolve(ctx, nil, userID, file, needed)
	if err != nil {
		return models.File{}, newAppError(http.StatusInternalServerError, "failed to resolve permissions", err)
	}
	if !decision.allowed {
		if decision.level == "" {
			return models.File{}, newAppError(http.StatusNotFound, "file not found", nil)
		}
		return models.File{}, newAppError(http.StatusForbidden, "insufficient permissions", nil)
	}
	return file, nil
}

func (s *fileService) PatchFile(ctx context.Context, userID uint, fileID uint, in PatchFileInput) (models.File, error) {
	if in.Name == nil && in.ParentID == nil && !in.MoveToRoot && in.Starred == nil {
		return models.File{}, newAppError(http.StatusBadRequest, "at least one field is required", nil)
	}

	file, err := s.loadForAccess(ctx, userID, fileID, AccessEdit)
	if err != nil {
		return models.File{}, err
	}
	if file.IsDeleted {
		return models.File{}, newAppError(http.StatusNotFound, "file not found", nil)
	}

	updates := map[string]interface{}{}
	if in.Name != nil {
		if *in.Name == "" {
			return models.File{}, newAppError(http.StatusBadRequest, "name must not be empty", nil)
		}
		updates["name"] = sanitizeFilename(*in.Name)
	}
	if in.Starred != nil {
		updates["is_starred"] = *in.Starred
	}
	if in.MoveToRoot {
		updates["parent_id"] = nil
	} else if in.ParentID != nil {
		if err := s.validateMoveTarget(ctx, file, *in.ParentID); err != nil {
			return models.File{}, err
		}
		updates["parent_id"] = *in.ParentID
	}

	if err := s.files.UpdateByIDAndUser(ctx, nil, file.ID, file.UserID, updates); err != nil {
		return models.File{}, newAppError(http.StatusInternalServerError, "failed to update file", err)
	}

	updated, err := s.files.GetByID(ctx, nil, file.ID)
	if err != nil {
		return models.File{}, newAppError(http.StatusInternalServerError, "failed to reload file", err)
	}

	s.notifier.Notify(ctx, file.UserID, Event{Type: EventFileUpdated, FileID: file.ID, Name: updated.Name})
	return updated, nil
}

// validateMoveTarget refuses moves into self, into a non-folder, or into the
// node's own subtree. The walk runs toward the root, so a well-formed tree
// terminates.
func (s *fileService) validateMoveTarget(ctx context.Context, file models.File, targetID uint) error {
	if targetID == file.ID {
		return newAppError(http.StatusBadRequest, "cannot move a node into itself", nil)
	}

	target, err := s.files.GetByIDAndUser(ctx, nil, targetID, file.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return newAppError(http.StatusNotFound, "target folder not found", nil)
		}
		return newAppError(http.StatusInternalServerError, "failed to check target folder", err)
	}
	if !target.IsFolder || target.IsDeleted {
		return newAppError(http.StatusBadRequest, "target is not an active folder", nil)
	}

	ancestor := target
	for ancestor.ParentID != nil {
		if *ancestor.ParentID == file.ID {
			return newAppError(http.StatusBadRequest, "cannot move a folder into its own subtree", nil)
		}
		ancestor, err = s.files.GetByIDAndUser(ctx, nil, *ancestor.ParentID, file.UserID)
		if err != nil {
			return newAppError(http.StatusInternalServerError, "failed to walk folder tree", err)
		}
	}
	return nil
}

func (s *fileService) SoftDelete(ctx context.Context, userID uint, fileID uint) error {
	file, err := s.loadForAccess(ctx, userID, fileID, AccessOwner)
	if err != nil {
		return err
	}
	if file.IsDeleted {
		return newAppError(http.StatusConflict, "file is already in trash", nil)
	}

	// Trashing a folder trashes its whole subtree, otherwise the children
	// would stay visible in searches while being unreachable from the trash.
	nodes, err := s.purger.collectSubtree(ctx, file)
	if err != nil {
		return newAppError(http.StatusInternalServerError, "failed to walk folder tree", err)
	}

	now := time.Now()
	err = s.txManager.WithTransaction(ctx, func(tx *gorm.DB) error {
		return s.files.SetDeletedByIDs(ctx, tx, fileIDs(nodes), true, &now)
	})
	if err != nil {
		return newAppError(http.StatusInternalServerError, "failed to delete file", err)
	}

	s.notifier.Notify(ctx, userID, Event{Type: EventFileDeleted, FileID: file.ID, Name: file.Name})
	return nil
}

func fileIDs(nodes []models.File) []uint {
	ids := make([]uint, 0, len(nodes))
	for _, node := range nodes {
		ids = append(ids, node.ID)
	}
	return ids
}

func (s *fileService) Restore(ctx context.Context, userID uint, fileID uint) error {
	file, err := s.loadForAccess(ctx, userID, fileID, AccessOwner)
	if err != nil {
		return err
	}
	if !file.IsDeleted {
		return newAppError(http.StatusConflict, "file is not in trash", nil)
	}

	nodes, err := s.purger.collectSubtree(ctx, file)
	if err != nil {
		return newAppError(http.StatusInternalServerError, "failed to walk folder tree", err)
	}

	err = s.txManager.WithTransaction(ctx, func(tx *gorm.DB) error {
		return s.files.SetDeletedByIDs(ctx, tx, fileIDs(nodes), false, nil)
	})
	if err != nil {
		return newAppError(http.StatusInternalServerError, "failed to restore file", err)
	}

	s.notifier.Notify(ctx, userID, Event{Type: EventFileRestored, FileID: file.ID, Name: file.Name})
	return nil
}

func (s *fileService) PermanentDelete(ctx context.Context, userID uint, fileID uint) error {
	file, err := s.loadForAccess(ctx, userID, fileID, AccessOwner)
	if err != nil {
		return err
	}

	if err := s.purger.purge(ctx, file); err != nil {
		return newAppError(http.StatusInternalServerError, "failed to delete file permanently", err)
	}

	s.notifier.Notify(ctx, userID, Event{Type: EventFilePurged, FileID: file.ID, Name: file.Name})
	return nil
}

func (s *fileService) GetDownloadURL(ctx context.Context, userID uint, fileID uint) (string, error) {
	file, err := s.loadForAccess(ctx, userID, fileID, AccessView)
	if err != nil {
		return "", err
	}
	if file.IsFolder {
		return "", newAppError(http.StatusBadRequest, "folders cannot be downloaded", nil)
	}
	if file.IsDeleted {
		return "", newAppError(http.StatusNotFound, "file not found", nil)
	}

	expires := time.Duration(config.AppConfig.Storage.SignedURLMinutes) * time.Minute
	url, err := s.blob.SignedURL(ctx, file.StoragePath, file.Name, expires)
	if err != nil {
		return "", newAppError(http.StatusInternalServerError, "failed to sign download url", err)
	}
	return url, nil
}

func (s *fileService) GetThumbnailURL(ctx context.Context, userID uint, fileID uint) (string, error) {
	file, err := s.loadForAccess(ctx, userID, fileID, AccessView)
	if err != nil {
		return "", err
	}
	if file.ThumbnailPath == "" {
		return "", newAppError(http.StatusNotFound, "thumbnail not available", nil)
	}

	expires := time.Duration(config.AppConfig.Storage.SignedURLMinutes) * time.Minute
	url, err := s.blob.SignedURL(ctx, file.ThumbnailPath, "", expires)
	if err != nil {
		return "", newAppError(http.StatusInternalServerError, "failed to sign thumbnail url", err)
	}
	return url, nil
}
