package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"math"
	"net/http"
	"time"

	"clouddrive/config"
	"clouddrive/models"
	"clouddrive/repositories"
	"clouddrive/storage"
	"clouddrive/utils"

	"gorm.io/gorm"
)

type CreateShareInput struct {
	Email       string
	Permissions string
	ExpiresAt   *time.Time
}

type CreatePublicLinkInput struct {
	ExpiresAt *time.Time
}

type PublicLinkOutput struct {
	ShareID   uint       `json:"share_id"`
	Token     string     `json:"token"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type PublicFileOutput struct {
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	MimeType    string    `json:"mime_type"`
	DownloadURL string    `json:"download_url"`
	SharedAt    time.Time `json:"shared_at"`
}

type ListSharesParams struct {
	NameFilter     string
	RecipientEmail string
	Page           int
	Limit          int
}

type ShareListOutput struct {
	Shares     []models.Share       `json:"shares"`
	Pagination utils.PaginationData `json:"pagination"`
}

type ShareService interface {
	CreateShare(ctx context.Context, userID uint, fileID uint, in CreateShareInput) (models.Share, error)
	RevokeShare(ctx context.Context, userID uint, fileID uint, shareID uint) error
	CreatePublicLink(ctx context.Context, userID uint, fileID uint, in CreatePublicLinkInput) (PublicLinkOutput, error)
	RevokePublicLink(ctx context.Context, userID uint, fileID uint) error
	RevokePublicLinkByToken(ctx context.Context, userID uint, token string) error
	ResolvePublicLink(ctx context.Context, token string) (PublicFileOutput, error)
	ListSharedWithMe(ctx context.Context, userID uint, params ListSharesParams) (ShareListOutput, error)
	ListSharedByMe(ctx context.Context, userID uint, params ListSharesParams) (ShareListOutput, error)
}

type shareService struct {
	users    repositories.UserRepository
	files    repositories.FileRepository
	shares   repositories.ShareRepository
	blob     storage.BlobStore
	notifier Notifier
}

func NewShareService(
	users repositories.UserRepository,
	files repositories.FileRepository,
	shares repositories.ShareRepository,
	blob storage.BlobStore,
	notifier Notifier,
) ShareService {
	return &shareService{users: users, files: files, shares: shares, blob: blob, notifier: notifier}
}

// loadOwnedFile restricts share management to the file's owner. Non-owners
// get 404, never 403, so share state leaks nothing about foreign files.
func (s *shareService) loadOwnedFile(ctx context.Context, userID uint, fileID uint) (models.File, error) {
	file, err := s.files.GetByIDAndUser(ctx, nil, fileID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.File{}, newAppError(http.StatusNotFound, "file not found", nil)
		}
		return models.File{}, newAppError(http.StatusInternalServerError, "failed to query file", err)
	}
	if file.IsDeleted {
		return models.File{}, newAppError(http.StatusNotFound, "file not found", nil)
	}
	return file, nil
}

func (s *shareService) CreateShare(ctx context.Context, userID uint, fileID uint, in CreateShareInput) (models.Share, error) {
	switch in.Permissions {
	case models.PermissionView, models.PermissionEdit, models.PermissionAdmin:
	default:
		return models.Share{}, newAppError(http.StatusBadRequest, "permissions must be view, edit or admin", nil)
	}
	if in.ExpiresAt != nil && in.ExpiresAt.Before(time.Now()) {
		return models.Share{}, newAppError(http.StatusBadRequest, "expiry must be in the future", nil)
	}

	file, err := s.loadOwnedFile(ctx, userID, fileID)
	if err != nil {
		return models.Share{}, err
	}

	target, err := s.users.GetByEmail(ctx, nil, in.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Share{}, newAppError(http.StatusNotFound, "no account with that email", nil)
		}
		return models.Share{}, newAppError(http.StatusInternalServerError, "failed to query recipient", err)
	}
	if target.ID == userID {
		return models.Share{}, newAppError(http.StatusBadRequest, "cannot share a file with yourself", nil)
	}

	if existing, err := s.shares.GetPrivateByFileAndEmail(ctx, nil, file.ID, target.Email); err == nil {
		return models.Share{}, newAppErrorWithData(http.StatusConflict, "file is already shared with that user",
			map[string]interface{}{"share_id": existing.ID}, nil)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Share{}, newAppError(http.StatusInternalServerError, "failed to check existing share", err)
	}

	share := models.Share{
		FileID:          file.ID,
		OwnerID:         userID,
		SharedWithEmail: target.Email,
		Permissions:     in.Permissions,
		ShareType:       models.ShareTypePrivate,
		ExpiresAt:       in.ExpiresAt,
	}
	if err := s.shares.Create(ctx, nil, &share); err != nil {
		return models.Share{}, newAppError(http.StatusInternalServerError, "failed to create share", err)
	}

	s.notifier.Notify(ctx, target.ID, Event{Type: EventShareCreated, FileID: file.ID, ShareID: share.ID, Name: file.Name})
	return share, nil
}

func (s *shareService) RevokeShare(ctx context.Context, userID uint, fileID uint, shareID uint) error {
	file, err := s.loadOwnedFile(ctx, userID, fileID)
	if err != nil {
		return err
	}

	share, err := s.shares.GetByIDAndFile(ctx, nil, shareID, file.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return newAppError(http.StatusNotFound, "share not found", nil)
		}
		return newAppError(http.StatusInternalServerError, "failed to query share", err)
	}

	if err := s.shares.DeleteByID(ctx, nil, share.ID); err != nil {
		return newAppError(http.StatusInternalServerError, "failed to revoke share", err)
	}

	if share.ShareType == models.ShareTypePrivate {
		if recipient, err := s.users.GetByEmail(ctx, nil, share.SharedWithEmail); err == nil {
			s.notifier.Notify(ctx, recipient.ID, Event{Type: EventShareRevoked, FileID: file.ID, ShareID: share.ID, Name: file.Name})
		}
	}
	return nil
}

// generatePublicToken returns 192 bits of randomness as lowercase hex.
func generatePublicToken() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func (s *shareService) CreatePublicLink(ctx context.Context, userID uint, fileID uint, in CreatePublicLinkInput) (PublicLinkOutput, error) {
	if in.ExpiresAt != nil && in.ExpiresAt.Before(time.Now()) {
		return PublicLinkOutput{}, newAppError(http.StatusBadRequest, "expiry must be in the future", nil)
	}

	file, err := s.loadOwnedFile(ctx, userID, fileID)
	if err != nil {
		return PublicLinkOutput{}, err
	}
	if file.IsFolder {
		return PublicLinkOutput{}, newAppError(http.StatusBadRequest, "folders cannot be shared publicly", nil)
	}

	token, err := generatePublicToken()
	if err != nil {
		return PublicLinkOutput{}, newAppError(http.StatusInternalServerError, "failed to generate token", err)
	}

	share := models.Share{
		FileID:      file.ID,
		OwnerID:     userID,
		Permissions: models.PermissionView,
		ShareType:   models.ShareTypePublic,
		PublicToken: &token,
		ExpiresAt:   in.ExpiresAt,
	}
	if err := s.shares.Create(ctx, nil, &share); err != nil {
		return PublicLinkOutput{}, newAppError(http.StatusInternalServerError, "failed to create public link", err)
	}

	s.notifier.Notify(ctx, userID, Event{Type: EventShareCreated, FileID: file.ID, ShareID: share.ID, Name: file.Name})
	return PublicLinkOutput{ShareID: share.ID, Token: token, ExpiresAt: share.ExpiresAt}, nil
}

func (s *shareService) RevokePublicLink(ctx context.Context, userID uint, fileID uint) error {
	file, err := s.loadOwnedFile(ctx, userID, fileID)
	if err != nil {
		return err
	}

	if err := s.shares.DeletePublicByFile(ctx, nil, file.ID); err != nil {
		return newAppError(http.StatusInternalServerError, "failed to revoke public link", err)
	}

	s.notifier.Notify(ctx, userID, Event{Type: EventShareRevoked, FileID: file.ID, Name: file.Name})
	return nil
}

// RevokePublicLinkByToken removes exactly one link, so owners holding
// several links on the same file can retire them individually.
func (s *shareService) RevokePublicLinkByToken(ctx context.Context, userID uint, token string) error {
	share, err := s.shares.GetByToken(ctx, nil, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return newAppError(http.StatusNotFound, "link not found", nil)
		}
		return newAppError(http.StatusInternalServerError, "failed to query link", err)
	}
	if share.OwnerID != userID {
		return newAppError(http.StatusForbidden, "only the owner can revoke a public link", nil)
	}

	if err := s.shares.DeleteByID(ctx, nil, share.ID); err != nil {
		return newAppError(http.StatusInternalServerError, "failed to revoke public link", err)
	}

	s.notifier.Notify(ctx, userID, Event{Type: EventShareRevoked, FileID: share.FileID, ShareID: share.ID})
	return nil
}

func (s *shareService) ResolvePublicLink(ctx context.Context, token string) (PublicFileOutput, error) {
	share, err := s.shares.GetByToken(ctx, nil, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return PublicFileOutput{}, newAppError(http.StatusNotFound, "link not found", nil)
		}
		return PublicFileOutput{}, newAppError(http.StatusInternalServerError, "failed to query link", err)
	}
	if share.ExpiresAt != nil && share.ExpiresAt.Before(time.Now()) {
		return PublicFileOutput{}, newAppError(http.StatusGone, "link has expired", nil)
	}

	file, err := s.files.GetByID(ctx, nil, share.FileID)
	if err != nil || file.IsDeleted {
		return PublicFileOutput{}, newAppError(http.StatusNotFound, "link not found", nil)
	}

	expires := time.Duration(config.AppConfig.Storage.SignedURLMinutes) * time.Minute
	url, err := s.blob.SignedURL(ctx, file.StoragePath, file.Name, expires)
	if err != nil {
		return PublicFileOutput{}, newAppError(http.StatusInternalServerError, "failed to sign download url", err)
	}

	return PublicFileOutput{
		Name:        file.Name,
		Size:        file.Size,
		MimeType:    file.MimeType,
		DownloadURL: url,
		SharedAt:    share.CreatedAt,
	}, nil
}

func (s *shareService) listParams(params ListSharesParams) (page, limit int) {
	cfg := config.AppConfig.Pagination
	page = params.Page
	if page < 1 {
		page = 1
	}
	limit = params.Limit
	if limit < 1 || limit > cfg.MaxPageSize {
		limit = cfg.DefaultPageSize
	}
	return page, limit
}

func (s *shareService) ListSharedWithMe(ctx context.Context, userID uint, params ListSharesParams) (ShareListOutput, error) {
	user, err := s.users.GetByID(ctx, nil, userID)
	if err != nil {
		return ShareListOutput{}, newAppError(http.StatusInternalServerError, "failed to query user", err)
	}

	page, limit := s.listParams(params)
	shares, total, err := s.shares.ListSharedWith(ctx, nil, repositories.ListSharesInput{
		Email:      user.Email,
		NameFilter: params.NameFilter,
		Offset:     (page - 1) * limit,
		Limit:      limit,
	})
	if err != nil {
		return ShareListOutput{}, newAppError(http.StatusInternalServerError, "failed to list shares", err)
	}
	return ShareListOutput{Shares: shares, Pagination: paginationData(page, limit, total)}, nil
}

func (s *shareService) ListSharedByMe(ctx context.Context, userID uint, params ListSharesParams) (ShareListOutput, error) {
	page, limit := s.listParams(params)
	shares, total, err := s.shares.ListSharedBy(ctx, nil, repositories.ListSharesInput{
		OwnerID:        userID,
		NameFilter:     params.NameFilter,
		RecipientEmail: params.RecipientEmail,
		Offset:         (page - 1) * limit,
		Limit:          limit,
	})
	if err != nil {
		return ShareListOutput{}, newAppError(http.StatusInternalServerError, "failed to list shares", err)
	}
	return ShareListOutput{Shares: shares, Pagination: paginationData(page, limit, total)}, nil
}

func paginationData(page, limit int, total int64) utils.PaginationData {
	totalPages := int(math.Ceil(float64(total) / float64(limit)))
	if totalPages == 0 {
		totalPages = 1
	}
	return utils.PaginationData{
		Page:       page,
		PageSize:   limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}
