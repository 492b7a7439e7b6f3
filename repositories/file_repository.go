package repositories

import (
	"context"
	"strings"
	"time"

	"clouddrive/models"

	"gorm.io/gorm"
)

type GormFileRepository struct {
	db *gorm.DB
}

func NewGormFileRepository(db *gorm.DB) *GormFileRepository {
	return &GormFileRepository{db: db}
}

func (r *GormFileRepository) Create(_ context.Context, tx *gorm.DB, file *models.File) error {
	return useTx(r.db, tx).Create(file).Error
}

func (r *GormFileRepository) GetByID(_ context.Context, tx *gorm.DB, fileID uint) (models.File, error) {
	var file models.File
	err := useTx(r.db, tx).First(&file, fileID).Error
	return file, err
}

func (r *GormFileRepository) GetByIDAndUser(_ context.Context, tx *gorm.DB, fileID uint, userID uint) (models.File, error) {
	var file models.File
	err := useTx(r.db, tx).Where("id = ? AND user_id = ?", fileID, userID).First(&file).Error
	return file, err
}

func (r *GormFileRepository) listQuery(db *gorm.DB, in ListFilesInput) *gorm.DB {
	query := db.Model(&models.File{}).
		Where("user_id = ? AND is_deleted = ?", in.UserID, in.Deleted)

	// A search spans the whole tree; parent filtering only applies when
	// browsing.
	if in.Search != "" {
		if in.SearchMode == SearchModeFulltext {
			query = query.Where("MATCH(name, original_name) AGAINST (? IN NATURAL LANGUAGE MODE)", in.Search)
		} else {
			pattern := "%" + strings.ToLower(in.Search) + "%"
			query = query.Where("LOWER(name) LIKE ? OR LOWER(original_name) LIKE ?", pattern, pattern)
		}
	} else if in.ParentSet {
		if in.ParentID == nil {
			query = query.Where("parent_id IS NULL")
		} else {
			query = query.Where("parent_id = ?", *in.ParentID)
		}
	}

	if in.Starred != nil {
		query = query.Where("is_starred = ?", *in.Starred)
	}
	return query
}

func (r *GormFileRepository) List(_ context.Context, tx *gorm.DB, in ListFilesInput) ([]models.File, error) {
	query := r.listQuery(useTx(r.db, tx), in)

	sortColumns := map[string]string{
		"name":       "name",
		"size":       "size",
		"created_at": "created_at",
		"updated_at": "updated_at",
	}
	sortCol := sortColumns[in.SortBy]
	if sortCol == "" {
		sortCol = "created_at"
	}
	if in.Recent {
		sortCol = "updated_at"
	}

	order := strings.ToUpper(in.Order)
	if order != "ASC" {
		order = "DESC"
	}

	var files []models.File
	err := query.Order(sortCol + " " + order).Offset(in.Offset).Limit(in.Limit).Find(&files).Error
	return files, err
}

func (r *GormFileRepository) Count(_ context.Context, tx *gorm.DB, in ListFilesInput) (int64, error) {
	var total int64
	err := r.listQuery(useTx(r.db, tx), in).Count(&total).Error
	return total, err
}

func (r *GormFileRepository) ListByParent(_ context.Context, tx *gorm.DB, userID uint, parentID uint) ([]models.File, error) {
	var files []models.File
	err := useTx(r.db, tx).Where("user_id = ? AND parent_id = ?", userID, parentID).Find(&files).Error
	return files, err
}

func (r *GormFileRepository) UpdateByIDAndUser(_ context.Context, tx *gorm.DB, fileID uint, userID uint, updates map[string]interface{}) error {
	return useTx(r.db, tx).Model(&models.File{}).Where("id = ? AND user_id = ?", fileID, userID).Updates(updates).Error
}

func (r *GormFileRepository) SetDeletedByIDs(_ context.Context, tx *gorm.DB, fileIDs []uint, deleted bool, deletedAt *time.Time) error {
	if len(fileIDs) == 0 {
		return nil
	}
	return useTx(r.db, tx).Model(&models.File{}).
		Where("id IN ?", fileIDs).
		Updates(map[string]interface{}{"is_deleted": deleted, "deleted_at": deletedAt}).Error
}

func (r *GormFileRepository) DeleteByID(_ context.Context, tx *gorm.DB, fileID uint) error {
	return useTx(r.db, tx).Delete(&models.File{}, fileID).Error
}

func (r *GormFileRepository) ListTrashedBefore(_ context.Context, tx *gorm.DB, cutoff time.Time) ([]models.File, error) {
	var files []models.File
	err := useTx(r.db, tx).
		Where("is_deleted = ? AND deleted_at < ?", true, cutoff).
		Find(&files).Error
	return files, err
}
