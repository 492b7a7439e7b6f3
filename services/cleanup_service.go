package services

import (
	"context"
	"time"

	"clouddrive/config"
	"clouddrive/logger"
	"clouddrive/repositories"
	"clouddrive/storage"

	"github.com/go-co-op/gocron"
)

// CleanupService runs the background janitor jobs: purging trashed files past
// the retention window and deleting expired public links.
type CleanupService interface {
	Start()
	Stop()
	PurgeExpiredTrash(ctx context.Context) (int, error)
	PurgeExpiredPublicLinks(ctx context.Context) (int, error)
}

type cleanupService struct {
	files     repositories.FileRepository
	shares    repositories.ShareRepository
	purger    filePurger
	scheduler *gocron.Scheduler
}

func NewCleanupService(
	txManager TxManager,
	files repositories.FileRepository,
	versions repositories.VersionRepository,
	shares repositories.ShareRepository,
	quotas repositories.QuotaRepository,
	blob storage.BlobStore,
) CleanupService {
	return &cleanupService{
		files:  files,
		shares: shares,
		purger: filePurger{
			txManager: txManager,
			files:     files,
			versions:  versions,
			shares:    shares,
			quotas:    quotas,
			blob:      blob,
		},
		scheduler: gocron.NewScheduler(time.UTC),
	}
}

func (s *cleanupService) Start() {
	_, err := s.scheduler.Every(1).Day().At("03:00").Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		if n, err := s.PurgeExpiredTrash(ctx); err != nil {
			logger.Errorf("trash purge failed: %v", err)
		} else if n > 0 {
			logger.Infof("trash purge removed %d items", n)
		}
	})
	if err != nil {
		logger.Errorf("failed to schedule trash purge: %v", err)
	}

	_, err = s.scheduler.Every(1).Hour().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if n, err := s.PurgeExpiredPublicLinks(ctx); err != nil {
			logger.Errorf("expired link purge failed: %v", err)
		} else if n > 0 {
			logger.Infof("expired link purge removed %d links", n)
		}
	})
	if err != nil {
		logger.Errorf("failed to schedule link purge: %v", err)
	}

	s.scheduler.StartAsync()
}

func (s *cleanupService) Stop() {
	s.scheduler.Stop()
}

// PurgeExpiredTrash permanently removes files that have sat in the trash
// longer than the configured retention. Children of a trashed folder go with
// it, so nodes already purged as part of an earlier subtree are skipped.
func (s *cleanupService) PurgeExpiredTrash(ctx context.Context) (int, error) {
	cutoff := time.Now().AddDate(0, 0, -config.AppConfig.Trash.RetentionDays)
	trashed, err := s.files.ListTrashedBefore(ctx, nil, cutoff)
	if err != nil {
		return 0, err
	}

	purged := 0
	for _, file := range trashed {
		if _, err := s.files.GetByID(ctx, nil, file.ID); err != nil {
			continue
		}
		if err := s.purger.purge(ctx, file); err != nil {
			logger.Errorf("failed to purge trashed file %d: %v", file.ID, err)
			continue
		}
		purged++
	}
	return purged, nil
}

func (s *cleanupService) PurgeExpiredPublicLinks(ctx context.Context) (int, error) {
	expired, err := s.shares.ListExpiredPublic(ctx, nil, time.Now())
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, share := range expired {
		if err := s.shares.DeleteByID(ctx, nil, share.ID); err != nil {
			logger.Errorf("failed to delete expired share %d: %v", share.ID, err)
			continue
		}
		removed++
	}
	return removed, nil
}
