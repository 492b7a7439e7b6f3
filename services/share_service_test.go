package services

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"clouddrive/config"
	"clouddrive/models"
)

type shareServiceFixture struct {
	svc      ShareService
	users    *fakeUserRepo
	files    *fakeFileRepo
	shares   *fakeShareRepo
	blob     *fakeBlobStore
	notifier *fakeNotifier
}

func newShareServiceFixture() *shareServiceFixture {
	config.AppConfig = &config.Config{
		Storage:    config.StorageConfig{SignedURLMinutes: 60},
		Pagination: config.PaginationConfig{DefaultPageSize: 20, MaxPageSize: 100, DefaultOrder: "desc"},
	}

	f := &shareServiceFixture{
		users:    newFakeUserRepo(),
		files:    newFakeFileRepo(),
		shares:   newFakeShareRepo(),
		blob:     newFakeBlobStore(),
		notifier: &fakeNotifier{},
	}
	f.users.users[1] = models.User{ID: 1, Email: "owner@example.com"}
	f.users.users[2] = models.User{ID: 2, Email: "guest@example.com"}
	f.files.files[10] = models.File{ID: 10, UserID: 1, Name: "doc.txt", Size: 12, MimeType: "text/plain", StoragePath: "users/1/files/doc.txt"}

	f.svc = NewShareService(f.users, f.files, f.shares, f.blob, f.notifier)
	return f
}

func TestCreateShareHappyPath(t *testing.T) {
	f := newShareServiceFixture()

	share, err := f.svc.CreateShare(context.Background(), 1, 10, CreateShareInput{Email: "guest@example.com", Permissions: models.PermissionEdit})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if share.ShareType != models.ShareTypePrivate || share.Permissions != models.PermissionEdit {
		t.Fatalf("unexpected share: %+v", share)
	}
	if f.notifier.lastEventType() != EventShareCreated {
		t.Fatalf("expected share.created event, got %q", f.notifier.lastEventType())
	}
}

func TestCreateShareValidations(t *testing.T) {
	f := newShareServiceFixture()

	_, err := f.svc.CreateShare(context.Background(), 1, 10, CreateShareInput{Email: "guest@example.com", Permissions: "write"})
	if mustAppError(t, err).HTTPCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad permissions")
	}

	_, err = f.svc.CreateShare(context.Background(), 1, 10, CreateShareInput{Email: "owner@example.com", Permissions: models.PermissionView})
	if mustAppError(t, err).HTTPCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for self-share")
	}

	_, err = f.svc.CreateShare(context.Background(), 1, 10, CreateShareInput{Email: "nobody@example.com", Permissions: models.PermissionView})
	if mustAppError(t, err).HTTPCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown recipient")
	}

	_, err = f.svc.CreateShare(context.Background(), 2, 10, CreateShareInput{Email: "guest@example.com", Permissions: models.PermissionView})
	if mustAppError(t, err).HTTPCode != http.StatusNotFound {
		t.Fatalf("expected 404 for non-owner")
	}
}

func TestCreateShareDuplicateConflicts(t *testing.T) {
	f := newShareServiceFixture()

	if _, err := f.svc.CreateShare(context.Background(), 1, 10, CreateShareInput{Email: "guest@example.com", Permissions: models.PermissionView}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := f.svc.CreateShare(context.Background(), 1, 10, CreateShareInput{Email: "guest@example.com", Permissions: models.PermissionEdit})
	appErr := mustAppError(t, err)
	if appErr.HTTPCode != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate share")
	}
	data, ok := appErr.Data.(map[string]interface{})
	if !ok || data["share_id"] == nil {
		t.Fatalf("expected the existing share id in the error payload, got %+v", appErr.Data)
	}
}

func TestCreatePublicLinkGeneratesHexToken(t *testing.T) {
	f := newShareServiceFixture()

	link, err := f.svc.CreatePublicLink(context.Background(), 1, 10, CreatePublicLinkInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(link.Token) != 48 {
		t.Fatalf("expected 48 hex chars, got %d", len(link.Token))
	}
	if strings.ToLower(link.Token) != link.Token {
		t.Fatalf("expected lowercase hex token")
	}
}

func TestResolvePublicLink(t *testing.T) {
	f := newShareServiceFixture()
	link, err := f.svc.CreatePublicLink(context.Background(), 1, 10, CreatePublicLinkInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, err := f.svc.ResolvePublicLink(context.Background(), link.Token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Name != "doc.txt" || !strings.Contains(out.DownloadURL, "users/1/files/doc.txt") {
		t.Fatalf("unexpected output: %+v", out)
	}
}

func TestResolvePublicLinkExpiredReturnsGone(t *testing.T) {
	f := newShareServiceFixture()
	token := "deadbeef"
	past := time.Now().Add(-time.Minute)
	f.shares.shares[1] = models.Share{ID: 1, FileID: 10, OwnerID: 1, ShareType: models.ShareTypePublic, PublicToken: &token, ExpiresAt: &past}

	_, err := f.svc.ResolvePublicLink(context.Background(), token)
	if mustAppError(t, err).HTTPCode != http.StatusGone {
		t.Fatalf("expected 410 for expired link")
	}
}

func TestResolvePublicLinkUnknownTokenNotFound(t *testing.T) {
	f := newShareServiceFixture()

	_, err := f.svc.ResolvePublicLink(context.Background(), "nope")
	if mustAppError(t, err).HTTPCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown token")
	}
}

func TestRevokeShare(t *testing.T) {
	f := newShareServiceFixture()
	share, err := f.svc.CreateShare(context.Background(), 1, 10, CreateShareInput{Email: "guest@example.com", Permissions: models.PermissionView})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := f.svc.RevokeShare(context.Background(), 1, 10, share.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.shares.shares) != 0 {
		t.Fatalf("expected share removed")
	}
	if f.notifier.lastEventType() != EventShareRevoked {
		t.Fatalf("expected share.revoked event, got %q", f.notifier.lastEventType())
	}

	err = f.svc.RevokeShare(context.Background(), 1, 10, share.ID)
	if mustAppError(t, err).HTTPCode != http.StatusNotFound {
		t.Fatalf("expected 404 for already revoked share")
	}
}

func TestRevokePublicLinkByToken(t *testing.T) {
	f := newShareServiceFixture()
	first, err := f.svc.CreatePublicLink(context.Background(), 1, 10, CreatePublicLinkInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := f.svc.CreatePublicLink(context.Background(), 1, 10, CreatePublicLinkInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := f.svc.RevokePublicLinkByToken(context.Background(), 1, first.Token); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := f.shares.shares[first.ShareID]; ok {
		t.Fatalf("expected revoked link removed")
	}
	if _, ok := f.shares.shares[second.ShareID]; !ok {
		t.Fatalf("expected the other link on the same file to survive")
	}
	if f.notifier.lastEventType() != EventShareRevoked {
		t.Fatalf("expected share.revoked event, got %q", f.notifier.lastEventType())
	}
}

func TestRevokePublicLinkByTokenOwnerOnly(t *testing.T) {
	f := newShareServiceFixture()
	link, err := f.svc.CreatePublicLink(context.Background(), 1, 10, CreatePublicLinkInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = f.svc.RevokePublicLinkByToken(context.Background(), 2, link.Token)
	if mustAppError(t, err).HTTPCode != http.StatusForbidden {
		t.Fatalf("expected 403 for non-owner")
	}

	err = f.svc.RevokePublicLinkByToken(context.Background(), 1, "deadbeef")
	if mustAppError(t, err).HTTPCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown token")
	}
}

func TestListSharedWithMeSkipsExpired(t *testing.T) {
	f := newShareServiceFixture()
	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)
	f.shares.shares[1] = models.Share{ID: 1, FileID: 10, OwnerID: 1, SharedWithEmail: "guest@example.com", Permissions: models.PermissionView, ShareType: models.ShareTypePrivate, ExpiresAt: &past}
	f.shares.shares[2] = models.Share{ID: 2, FileID: 10, OwnerID: 1, SharedWithEmail: "guest@example.com", Permissions: models.PermissionView, ShareType: models.ShareTypePrivate, ExpiresAt: &future}

	out, err := f.svc.ListSharedWithMe(context.Background(), 2, ListSharesParams{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Shares) != 1 || out.Shares[0].ID != 2 {
		t.Fatalf("expected only the live share, got %+v", out.Shares)
	}
}
