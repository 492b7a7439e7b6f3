package repositories

import (
	"context"
	"strings"
	"time"

	"clouddrive/models"

	"gorm.io/gorm"
)

type GormShareRepository struct {
	db *gorm.DB
}

func NewGormShareRepository(db *gorm.DB) *GormShareRepository {
	return &GormShareRepository{db: db}
}

func (r *GormShareRepository) Create(_ context.Context, tx *gorm.DB, share *models.Share) error {
	return useTx(r.db, tx).Create(share).Error
}

func (r *GormShareRepository) GetPrivateByFileAndEmail(_ context.Context, tx *gorm.DB, fileID uint, email string) (models.Share, error) {
	var share models.Share
	err := useTx(r.db, tx).
		Where("file_id = ? AND shared_with_email = ? AND share_type = ?", fileID, email, models.ShareTypePrivate).
		First(&share).Error
	return share, err
}

func (r *GormShareRepository) GetByIDAndFile(_ context.Context, tx *gorm.DB, shareID uint, fileID uint) (models.Share, error) {
	var share models.Share
	err := useTx(r.db, tx).
		Where("id = ? AND file_id = ?", shareID, fileID).
		First(&share).Error
	return share, err
}

func (r *GormShareRepository) GetByToken(_ context.Context, tx *gorm.DB, token string) (models.Share, error) {
	var share models.Share
	err := useTx(r.db, tx).
		Where("public_token = ? AND share_type = ?", token, models.ShareTypePublic).
		First(&share).Error
	return share, err
}

func (r *GormShareRepository) ListSharedWith(_ context.Context, tx *gorm.DB, in ListSharesInput) ([]models.Share, int64, error) {
	db := useTx(r.db, tx)

	query := db.Model(&models.Share{}).
		Joins("JOIN files ON files.id = shares.file_id").
		Where("shares.shared_with_email = ? AND shares.share_type = ?", in.Email, models.ShareTypePrivate).
		Where("shares.expires_at IS NULL OR shares.expires_at > ?", time.Now()).
		Where("files.is_deleted = ?", false)
	if in.NameFilter != "" {
		pattern := "%" + strings.ToLower(in.NameFilter) + "%"
		query = query.Where("LOWER(files.name) LIKE ?", pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var shares []models.Share
	err := query.Preload("File").
		Order("shares.created_at DESC").
		Offset(in.Offset).Limit(in.Limit).
		Find(&shares).Error
	return shares, total, err
}

func (r *GormShareRepository) ListSharedBy(_ context.Context, tx *gorm.DB, in ListSharesInput) ([]models.Share, int64, error) {
	db := useTx(r.db, tx)

	query := db.Model(&models.Share{}).
		Joins("JOIN files ON files.id = shares.file_id").
		Where("shares.owner_id = ? AND shares.share_type = ?", in.OwnerID, models.ShareTypePrivate)
	if in.NameFilter != "" {
		pattern := "%" + strings.ToLower(in.NameFilter) + "%"
		query = query.Where("LOWER(files.name) LIKE ?", pattern)
	}
	if in.RecipientEmail != "" {
		query = query.Where("shares.shared_with_email LIKE ?", "%"+in.RecipientEmail+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var shares []models.Share
	err := query.Preload("File").
		Order("shares.created_at DESC").
		Offset(in.Offset).Limit(in.Limit).
		Find(&shares).Error
	return shares, total, err
}

func (r *GormShareRepository) ListExpiredPublic(_ context.Context, tx *gorm.DB, now time.Time) ([]models.Share, error) {
	var shares []models.Share
	err := useTx(r.db, tx).
		Where("share_type = ? AND expires_at IS NOT NULL AND expires_at < ?", models.ShareTypePublic, now).
		Find(&shares).Error
	return shares, err
}

func (r *GormShareRepository) DeleteByID(_ context.Context, tx *gorm.DB, shareID uint) error {
	return useTx(r.db, tx).Delete(&models.Share{}, shareID).Error
}

func (r *GormShareRepository) DeleteByFile(_ context.Context, tx *gorm.DB, fileID uint) error {
	return useTx(r.db, tx).Where("file_id = ?", fileID).Delete(&models.Share{}).Error
}

func (r *GormShareRepository) DeletePublicByFile(_ context.Context, tx *gorm.DB, fileID uint) error {
	return useTx(r.db, tx).
		Where("file_id = ? AND share_type = ?", fileID, models.ShareTypePublic).
		Delete(&models.Share{}).Error
}
