package repositories

import (
	"context"
	"time"

	"clouddrive/models"

	"gorm.io/gorm"
)

type TxManager interface {
	WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type UserRepository interface {
	CountByEmail(ctx context.Context, email string) (int64, error)
	Create(ctx context.Context, tx *gorm.DB, user *models.User) error
	GetByEmail(ctx context.Context, tx *gorm.DB, email string) (models.User, error)
	GetByID(ctx context.Context, tx *gorm.DB, userID uint) (models.User, error)
	Update(ctx context.Context, tx *gorm.DB, userID uint, updates map[string]interface{}) error
}

// SearchModeFulltext asks for MATCH..AGAINST on (name, original_name);
// SearchModeSubstring asks for a case-insensitive LIKE. The service layer
// retries with substring when the fulltext attempt errors.
const (
	SearchModeFulltext  = "fulltext"
	SearchModeSubstring = "substring"
)

type ListFilesInput struct {
	UserID     uint
	Deleted    bool
	ParentID   *uint
	ParentSet  bool
	Starred    *bool
	Recent     bool
	Search     string
	SearchMode string
	SortBy     string
	Order      string
	Offset     int
	Limit      int
}

type FileRepository interface {
	Create(ctx context.Context, tx *gorm.DB, file *models.File) error
	GetByID(ctx context.Context, tx *gorm.DB, fileID uint) (models.File, error)
	GetByIDAndUser(ctx context.Context, tx *gorm.DB, fileID uint, userID uint) (models.File, error)
	List(ctx context.Context, tx *gorm.DB, in ListFilesInput) ([]models.File, error)
	Count(ctx context.Context, tx *gorm.DB, in ListFilesInput) (int64, error)
	ListByParent(ctx context.Context, tx *gorm.DB, userID uint, parentID uint) ([]models.File, error)
	UpdateByIDAndUser(ctx context.Context, tx *gorm.DB, fileID uint, userID uint, updates map[string]interface{}) error
	SetDeletedByIDs(ctx context.Context, tx *gorm.DB, fileIDs []uint, deleted bool, deletedAt *time.Time) error
	DeleteByID(ctx context.Context, tx *gorm.DB, fileID uint) error
	ListTrashedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) ([]models.File, error)
}

type VersionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, version *models.FileVersion) error
	MaxVersionNumber(ctx context.Context, tx *gorm.DB, fileID uint) (int, error)
	ListByFile(ctx context.Context, tx *gorm.DB, fileID uint) ([]models.FileVersion, error)
	GetByFileAndNumber(ctx context.Context, tx *gorm.DB, fileID uint, versionNumber int) (models.FileVersion, error)
	DeleteByFile(ctx context.Context, tx *gorm.DB, fileID uint) error
}

type ListSharesInput struct {
	Email          string
	OwnerID        uint
	NameFilter     string
	RecipientEmail string
	Offset         int
	Limit          int
}

type ShareRepository interface {
	Create(ctx context.Context, tx *gorm.DB, share *models.Share) error
	GetPrivateByFileAndEmail(ctx context.Context, tx *gorm.DB, fileID uint, email string) (models.Share, error)
	GetByIDAndFile(ctx context.Context, tx *gorm.DB, shareID uint, fileID uint) (models.Share, error)
	GetByToken(ctx context.Context, tx *gorm.DB, token string) (models.Share, error)
	ListSharedWith(ctx context.Context, tx *gorm.DB, in ListSharesInput) ([]models.Share, int64, error)
	ListSharedBy(ctx context.Context, tx *gorm.DB, in ListSharesInput) ([]models.Share, int64, error)
	ListExpiredPublic(ctx context.Context, tx *gorm.DB, now time.Time) ([]models.Share, error)
	DeleteByID(ctx context.Context, tx *gorm.DB, shareID uint) error
	DeleteByFile(ctx context.Context, tx *gorm.DB, fileID uint) error
	DeletePublicByFile(ctx context.Context, tx *gorm.DB, fileID uint) error
}

type QuotaRepository interface {
	GetByUser(ctx context.Context, tx *gorm.DB, userID uint) (models.UserQuota, error)
	Create(ctx context.Context, tx *gorm.DB, quota *models.UserQuota) error
	AddUsage(ctx context.Context, tx *gorm.DB, userID uint, bytes int64, files int64) error
	SubUsage(ctx context.Context, tx *gorm.DB, userID uint, bytes int64, files int64) error
	UpdatePlan(ctx context.Context, tx *gorm.DB, userID uint, planID string, storageLimit int64, fileCountLimit int64) error
}

// EventPublisher fans a serialized event out to whatever sessions listen on
// the user's channel. Implementations must never block request handling on
// delivery.
type EventPublisher interface {
	Publish(ctx context.Context, userID uint, payload []byte) error
}

type TokenBlacklist interface {
	Add(ctx context.Context, token string, ttl time.Duration) error
	Contains(ctx context.Context, token string) (bool, error)
}

type Container struct {
	TxManager TxManager
	Users     UserRepository
	Files     FileRepository
	Versions  VersionRepository
	Shares    ShareRepository
	Quotas    QuotaRepository
	Events    EventPublisher
	Blacklist TokenBlacklist
}
