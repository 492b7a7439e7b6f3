package services

import (
	"context"
	"errors"
	"time"

	"clouddrive/models"
	"clouddrive/repositories"

	"gorm.io/gorm"
)

const (
	AccessView  = "view"
	AccessEdit  = "edit"
	AccessOwner = "owner"
)

// accessDecision reports whether the caller may perform the requested
// operation and at which level. An empty level means the caller has no
// relationship to the file at all, which callers surface as 404 rather
// than 403.
type accessDecision struct {
	allowed bool
	level   string
}

// accessResolver is the single permission check consulted before every
// file-level operation. Ownership grants everything; otherwise the caller's
// email is matched against a live private share on the file. Admin shares
// resolve to edit.
type accessResolver struct {
	users  repositories.UserRepository
	shares repositories.ShareRepository
}

func (r accessResolver) resolve(ctx context.Context, tx *gorm.DB, userID uint, file models.File, needed string) (accessDecision, error) {
	if file.UserID == userID {
		return accessDecision{allowed: true, level: AccessOwner}, nil
	}

	user, err := r.users.GetByID(ctx, tx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return accessDecision{}, nil
		}
		return accessDecision{}, err
	}

	share, err := r.shares.GetPrivateByFileAndEmail(ctx, tx, file.ID, user.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return accessDecision{}, nil
		}
		return accessDecision{}, err
	}
	if share.ExpiresAt != nil && share.ExpiresAt.Before(time.Now()) {
		return accessDecision{}, nil
	}

	level := share.Permissions
	if level == models.PermissionAdmin {
		level = models.PermissionEdit
	}

	allowed := false
	switch needed {
	case AccessView:
		allowed = true
	case AccessEdit:
		allowed = level == models.PermissionEdit
	case AccessOwner:
		allowed = false
	}
	return accessDecision{allowed: allowed, level: level}, nil
}
