package repositories

import (
	"context"

	"clouddrive/models"

	"gorm.io/gorm"
)

type GormVersionRepository struct {
	db *gorm.DB
}

func NewGormVersionRepository(db *gorm.DB) *GormVersionRepository {
	return &GormVersionRepository{db: db}
}

func (r *GormVersionRepository) Create(_ context.Context, tx *gorm.DB, version *models.FileVersion) error {
	return useTx(r.db, tx).Create(version).Error
}

func (r *GormVersionRepository) MaxVersionNumber(_ context.Context, tx *gorm.DB, fileID uint) (int, error) {
	var max int
	err := useTx(r.db, tx).Model(&models.FileVersion{}).
		Where("file_id = ?", fileID).
		Select("COALESCE(MAX(version_number), 0)").
		Scan(&max).Error
	return max, err
}

func (r *GormVersionRepository) ListByFile(_ context.Context, tx *gorm.DB, fileID uint) ([]models.FileVersion, error) {
	var versions []models.FileVersion
	err := useTx(r.db, tx).
		Where("file_id = ?", fileID).
		Order("version_number DESC").
		Find(&versions).Error
	return versions, err
}

func (r *GormVersionRepository) GetByFileAndNumber(_ context.Context, tx *gorm.DB, fileID uint, versionNumber int) (models.FileVersion, error) {
	var version models.FileVersion
	err := useTx(r.db, tx).
		Where("file_id = ? AND version_number = ?", fileID, versionNumber).
		First(&version).Error
	return version, err
}

func (r *GormVersionRepository) DeleteByFile(_ context.Context, tx *gorm.DB, fileID uint) error {
	return useTx(r.db, tx).Where("file_id = ?", fileID).Delete(&models.FileVersion{}).Error
}
