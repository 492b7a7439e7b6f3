package repositories

import (
	"context"

	"clouddrive/models"

	"gorm.io/gorm"
)

type GormQuotaRepository struct {
	db *gorm.DB
}

func NewGormQuotaRepository(db *gorm.DB) *GormQuotaRepository {
	return &GormQuotaRepository{db: db}
}

func (r *GormQuotaRepository) GetByUser(_ context.Context, tx *gorm.DB, userID uint) (models.UserQuota, error) {
	var quota models.UserQuota
	err := useTx(r.db, tx).Where("user_id = ?", userID).First(&quota).Error
	return quota, err
}

func (r *GormQuotaRepository) Create(_ context.Context, tx *gorm.DB, quota *models.UserQuota) error {
	return useTx(r.db, tx).Create(quota).Error
}

func (r *GormQuotaRepository) AddUsage(_ context.Context, tx *gorm.DB, userID uint, bytes int64, files int64) error {
	if bytes == 0 && files == 0 {
		return nil
	}
	return useTx(r.db, tx).Model(&models.UserQuota{}).
		Where("user_id = ?", userID).
		UpdateColumns(map[string]interface{}{
			"storage_used": gorm.Expr("storage_used + ?", bytes),
			"file_count":   gorm.Expr("file_count + ?", files),
		}).Error
}

func (r *GormQuotaRepository) SubUsage(_ context.Context, tx *gorm.DB, userID uint, bytes int64, files int64) error {
	if bytes <= 0 && files <= 0 {
		return nil
	}
	return useTx(r.db, tx).Model(&models.UserQuota{}).
		Where("user_id = ?", userID).
		UpdateColumns(map[string]interface{}{
			"storage_used": gorm.Expr("GREATEST(storage_used - ?, 0)", bytes),
			"file_count":   gorm.Expr("GREATEST(file_count - ?, 0)", files),
		}).Error
}

func (r *GormQuotaRepository) UpdatePlan(_ context.Context, tx *gorm.DB, userID uint, planID string, storageLimit int64, fileCountLimit int64) error {
	return useTx(r.db, tx).Model(&models.UserQuota{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"plan_id":          planID,
			"storage_limit":    storageLimit,
			"file_count_limit": fileCountLimit,
		}).Error
}
