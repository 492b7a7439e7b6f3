package services

import (
	"context"
	"testing"
	"time"

	"clouddrive/config"
	"clouddrive/models"
)

func newCleanupFixture() (CleanupService, *fakeFileRepo, *fakeShareRepo, *fakeQuotaRepo, *fakeBlobStore) {
	config.AppConfig = &config.Config{
		Quota: config.QuotaConfig{DefaultStorageLimit: 1 << 20, DefaultFileCountLimit: 100},
		Trash: config.TrashConfig{RetentionDays: 30},
	}

	files := newFakeFileRepo()
	versions := newFakeVersionRepo()
	shares := newFakeShareRepo()
	quotas := newFakeQuotaRepo()
	blob := newFakeBlobStore()

	svc := NewCleanupService(&fakeTxManager{}, files, versions, shares, quotas, blob)
	return svc, files, shares, quotas, blob
}

func TestPurgeExpiredTrashRemovesOldEntries(t *testing.T) {
	svc, files, _, quotas, blob := newCleanupFixture()
	quotas.quotas[1] = models.UserQuota{UserID: 1, StorageUsed: 10, FileCount: 2, StorageLimit: 1 << 20, FileCountLimit: 100}

	old := time.Now().AddDate(0, 0, -31)
	fresh := time.Now().AddDate(0, 0, -5)
	files.files[1] = models.File{ID: 1, UserID: 1, Name: "old.txt", Size: 6, StoragePath: "k1", IsDeleted: true, DeletedAt: &old}
	files.files[2] = models.File{ID: 2, UserID: 1, Name: "fresh.txt", Size: 4, StoragePath: "k2", IsDeleted: true, DeletedAt: &fresh}
	blob.objects["k1"] = []byte("abcdef")
	blob.objects["k2"] = []byte("abcd")

	purged, err := svc.PurgeExpiredTrash(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if purged != 1 {
		t.Fatalf("expected 1 purged item, got %d", purged)
	}
	if _, ok := files.files[1]; ok {
		t.Fatalf("expected old file removed")
	}
	if _, ok := files.files[2]; !ok {
		t.Fatalf("expected fresh trash kept")
	}
	if _, ok := blob.objects["k1"]; ok {
		t.Fatalf("expected old blob removed")
	}
	quota := quotas.quotas[1]
	if quota.StorageUsed != 4 || quota.FileCount != 1 {
		t.Fatalf("expected usage released for purged file, got %+v", quota)
	}
}

func TestPurgeExpiredPublicLinks(t *testing.T) {
	svc, _, shares, _, _ := newCleanupFixture()

	token1, token2 := "aaaa", "bbbb"
	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)
	shares.shares[1] = models.Share{ID: 1, FileID: 1, ShareType: models.ShareTypePublic, PublicToken: &token1, ExpiresAt: &past}
	shares.shares[2] = models.Share{ID: 2, FileID: 1, ShareType: models.ShareTypePublic, PublicToken: &token2, ExpiresAt: &future}

	removed, err := svc.PurgeExpiredPublicLinks(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed link, got %d", removed)
	}
	if _, ok := shares.shares[1]; ok {
		t.Fatalf("expected expired link removed")
	}
	if _, ok := shares.shares[2]; !ok {
		t.Fatalf("expected live link kept")
	}
}
