package services

import (
	"context"
	"errors"
	"net/http"

	"clouddrive/config"
	"clouddrive/models"
	"clouddrive/repositories"

	"gorm.io/gorm"
)

const (
	CodeStorageLimitExceeded   = "STORAGE_LIMIT_EXCEEDED"
	CodeFileCountLimitExceeded = "FILE_COUNT_LIMIT_EXCEEDED"
)

type QuotaDecision struct {
	Allowed bool   `json:"allowed"`
	Code    string `json:"code,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

type QuotaOutput struct {
	PlanID         string  `json:"plan_id"`
	StorageUsed    int64   `json:"storage_used"`
	StorageLimit   int64   `json:"storage_limit"`
	AvailableSpace int64   `json:"available_space"`
	FileCount      int64   `json:"file_count"`
	FileCountLimit int64   `json:"file_count_limit"`
	UsagePercent   float64 `json:"usage_percent"`
}

// QuotaService is the ledger gatekeeping uploads. The check is advisory:
// concurrent uploads may both pass before either usage update lands, so the
// counters themselves are maintained with atomic SQL expressions inside the
// same transaction as the row writes.
type QuotaService interface {
	CheckUploadAllowed(ctx context.Context, userID uint, incomingBytes int64, incomingFiles int64) (QuotaDecision, error)
	GetQuota(ctx context.Context, userID uint) (QuotaOutput, error)
	EnsureQuota(ctx context.Context, tx *gorm.DB, userID uint) (models.UserQuota, error)
}

type quotaService struct {
	quotas repositories.QuotaRepository
}

func NewQuotaService(quotas repositories.QuotaRepository) QuotaService {
	return &quotaService{quotas: quotas}
}

// EnsureQuota returns the user's quota row, materializing the free-tier
// baseline when none exists yet.
func (s *quotaService) EnsureQuota(ctx context.Context, tx *gorm.DB, userID uint) (models.UserQuota, error) {
	quota, err := s.quotas.GetByUser(ctx, tx, userID)
	if err == nil {
		return quota, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.UserQuota{}, err
	}

	quota = models.UserQuota{
		UserID:         userID,
		PlanID:         "free",
		StorageLimit:   config.AppConfig.Quota.DefaultStorageLimit,
		FileCountLimit: config.AppConfig.Quota.DefaultFileCountLimit,
	}
	if err := s.quotas.Create(ctx, tx, &quota); err != nil {
		return models.UserQuota{}, err
	}
	return quota, nil
}

// CheckUploadAllowed gates a blob write of incomingBytes that will add
// incomingFiles catalog entries. New versions of an existing file pass 0 so
// the file-count ceiling never blocks versioning.
func (s *quotaService) CheckUploadAllowed(ctx context.Context, userID uint, incomingBytes int64, incomingFiles int64) (QuotaDecision, error) {
	quota, err := s.EnsureQuota(ctx, nil, userID)
	if err != nil {
		return QuotaDecision{}, newAppError(http.StatusInternalServerError, "failed to load quota", err)
	}

	if quota.StorageUsed+incomingBytes > quota.StorageLimit {
		return QuotaDecision{
			Allowed: false,
			Code:    CodeStorageLimitExceeded,
			Reason:  "storage limit exceeded",
		}, nil
	}
	if incomingFiles > 0 && quota.FileCount+incomingFiles > quota.FileCountLimit {
		return QuotaDecision{
			Allowed: false,
			Code:    CodeFileCountLimitExceeded,
			Reason:  "file count limit exceeded",
		}, nil
	}
	return QuotaDecision{Allowed: true}, nil
}

func (s *quotaService) GetQuota(ctx context.Context, userID uint) (QuotaOutput, error) {
	quota, err := s.EnsureQuota(ctx, nil, userID)
	if err != nil {
		return QuotaOutput{}, newAppError(http.StatusInternalServerError, "failed to load quota", err)
	}

	usagePercent := 0.0
	if quota.StorageLimit > 0 {
		usagePercent = float64(quota.StorageUsed) / float64(quota.StorageLimit) * 100
	}

	return QuotaOutput{
		PlanID:         quota.PlanID,
		StorageUsed:    quota.StorageUsed,
		StorageLimit:   quota.StorageLimit,
		AvailableSpace: quota.StorageLimit - quota.StorageUsed,
		FileCount:      quota.FileCount,
		FileCountLimit: quota.FileCountLimit,
		UsagePercent:   usagePercent,
	}, nil
}
