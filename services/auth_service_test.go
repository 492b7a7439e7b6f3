package services

import (
	"context"
	"net/http"
	"testing"

	"clouddrive/config"
	"clouddrive/models"
	"clouddrive/utils"
)

func newAuthFixture() (AuthService, *fakeUserRepo, *fakeQuotaRepo, *fakeBlacklist) {
	config.AppConfig = &config.Config{
		JWT:   config.JWTConfig{Secret: "test-secret", ExpireHours: 1},
		Quota: config.QuotaConfig{DefaultStorageLimit: 1 << 20, DefaultFileCountLimit: 100},
	}

	users := newFakeUserRepo()
	quotas := newFakeQuotaRepo()
	blacklist := newFakeBlacklist()
	svc := NewAuthService(&fakeTxManager{}, users, blacklist, NewQuotaService(quotas))
	return svc, users, quotas, blacklist
}

func TestRegisterCreatesUserAndQuota(t *testing.T) {
	svc, users, quotas, _ := newAuthFixture()

	user, err := svc.Register(context.Background(), RegisterInput{Email: "a@example.com", Password: "hunter22", Name: "A"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID == 0 || user.Email != "a@example.com" {
		t.Fatalf("unexpected user: %+v", user)
	}

	stored := users.users[user.ID]
	if stored.Password == "hunter22" {
		t.Fatalf("expected password to be hashed")
	}
	quota, ok := quotas.quotas[user.ID]
	if !ok || quota.PlanID != "free" {
		t.Fatalf("expected free-tier quota row, got %+v", quota)
	}
}

func TestRegisterDuplicateEmailRejected(t *testing.T) {
	svc, users, _, _ := newAuthFixture()
	users.users[1] = models.User{ID: 1, Email: "a@example.com"}

	_, err := svc.Register(context.Background(), RegisterInput{Email: "a@example.com", Password: "hunter22", Name: "A"})
	if mustAppError(t, err).HTTPCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for duplicate email")
	}
}

func TestLoginWithWrongPassword(t *testing.T) {
	svc, _, _, _ := newAuthFixture()
	if _, err := svc.Register(context.Background(), RegisterInput{Email: "a@example.com", Password: "hunter22", Name: "A"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := svc.Login(context.Background(), LoginInput{Email: "a@example.com", Password: "wrong"})
	if mustAppError(t, err).HTTPCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password")
	}

	_, err = svc.Login(context.Background(), LoginInput{Email: "missing@example.com", Password: "hunter22"})
	if mustAppError(t, err).HTTPCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown email")
	}
}

func TestLoginReturnsParsableToken(t *testing.T) {
	svc, _, _, _ := newAuthFixture()
	if _, err := svc.Register(context.Background(), RegisterInput{Email: "a@example.com", Password: "hunter22", Name: "A"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, err := svc.Login(context.Background(), LoginInput{Email: "a@example.com", Password: "hunter22"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	claims, err := utils.ParseToken(out.Token)
	if err != nil {
		t.Fatalf("expected a valid token: %v", err)
	}
	if claims.UserID != out.User.ID || claims.Email != "a@example.com" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestLogoutBlacklistsToken(t *testing.T) {
	svc, _, _, blacklist := newAuthFixture()
	if _, err := svc.Register(context.Background(), RegisterInput{Email: "a@example.com", Password: "hunter22", Name: "A"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := svc.Login(context.Background(), LoginInput{Email: "a@example.com", Password: "hunter22"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.Logout(context.Background(), out.Token); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !blacklist.tokens[out.Token] {
		t.Fatalf("expected token to be blacklisted")
	}

	if err := svc.Logout(context.Background(), "garbage"); err == nil {
		t.Fatalf("expected error for malformed token")
	}
}
