package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"clouddrive/config"
	"clouddrive/models"
	"clouddrive/repositories"
	"clouddrive/utils"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"
)

type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

type LoginInput struct {
	Email    string
	Password string
}

type AuthUser struct {
	ID     uint   `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

type LoginOutput struct {
	Token string   `json:"token"`
	User  AuthUser `json:"user"`
}

type ProfileOutput struct {
	ID        uint      `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Avatar    string    `json:"avatar"`
	Provider  string    `json:"provider"`
	CreatedAt time.Time `json:"created_at"`
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (AuthUser, error)
	Login(ctx context.Context, in LoginInput) (LoginOutput, error)
	GetProfile(ctx context.Context, userID uint) (ProfileOutput, error)
	Logout(ctx context.Context, token string) error
	GoogleAuthURL(state string) string
	GoogleCallback(ctx context.Context, code string) (LoginOutput, error)
}

type authService struct {
	txManager TxManager
	users     repositories.UserRepository
	blacklist repositories.TokenBlacklist
	quota     QuotaService
}

func NewAuthService(txManager TxManager, users repositories.UserRepository, blacklist repositories.TokenBlacklist, quota QuotaService) AuthService {
	return &authService{txManager: txManager, users: users, blacklist: blacklist, quota: quota}
}

func (s *authService) Register(ctx context.Context, in RegisterInput) (AuthUser, error) {
	count, err := s.users.CountByEmail(ctx, in.Email)
	if err != nil {
		return AuthUser{}, newAppError(http.StatusInternalServerError, "failed to check email", err)
	}
	if count > 0 {
		return AuthUser{}, newAppError(http.StatusBadRequest, "email already registered", nil)
	}

	hashedPassword, err := utils.HashPassword(in.Password)
	if err != nil {
		return AuthUser{}, newAppError(http.StatusInternalServerError, "failed to hash password", err)
	}

	user := models.User{
		Email:    in.Email,
		Password: hashedPassword,
		Name:     in.Name,
		Provider: "local",
	}

	err = s.txManager.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := s.users.Create(ctx, tx, &user); err != nil {
			return err
		}
		_, err := s.quota.EnsureQuota(ctx, tx, user.ID)
		return err
	})
	if err != nil {
		return AuthUser{}, newAppError(http.StatusInternalServerError, "failed to create user", err)
	}

	return AuthUser{ID: user.ID, Email: user.Email, Name: user.Name}, nil
}

func (s *authService) Login(ctx context.Context, in LoginInput) (LoginOutput, error) {
	user, err := s.users.GetByEmail(ctx, nil, in.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LoginOutput{}, newAppError(http.StatusUnauthorized, "invalid email or password", nil)
		}
		return LoginOutput{}, newAppError(http.StatusInternalServerError, "failed to query user", err)
	}

	if !utils.CheckPassword(in.Password, user.Password) {
		return LoginOutput{}, newAppError(http.StatusUnauthorized, "invalid email or password", nil)
	}

	token, err := utils.GenerateToken(user.ID, user.Email)
	if err != nil {
		return LoginOutput{}, newAppError(http.StatusInternalServerError, "failed to generate token", err)
	}

	return LoginOutput{
		Token: token,
		User:  AuthUser{ID: user.ID, Email: user.Email, Name: user.Name, Avatar: user.Avatar},
	}, nil
}

func (s *authService) GetProfile(ctx context.Context, userID uint) (ProfileOutput, error) {
	user, err := s.users.GetByID(ctx, nil, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ProfileOutput{}, newAppError(http.StatusNotFound, "user not found", nil)
		}
		return ProfileOutput{}, newAppError(http.StatusInternalServerError, "failed to query user", err)
	}

	return ProfileOutput{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Avatar:    user.Avatar,
		Provider:  user.Provider,
		CreatedAt: user.CreatedAt,
	}, nil
}

// Logout blacklists the bearer token until its natural expiry.
func (s *authService) Logout(ctx context.Context, token string) error {
	claims, err := utils.ParseToken(token)
	if err != nil {
		return newAppError(http.StatusUnauthorized, "invalid token", err)
	}

	ttl := time.Minute
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if err := s.blacklist.Add(ctx, token, ttl); err != nil {
		return newAppError(http.StatusInternalServerError, "failed to revoke token", err)
	}
	return nil
}

func (s *authService) googleOAuthConfig() *oauth2.Config {
	cfg := config.AppConfig.OAuth
	return &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint:     google.Endpoint,
	}
}

func (s *authService) GoogleAuthURL(state string) string {
	return s.googleOAuthConfig().AuthCodeURL(state, oauth2.AccessTypeOnline)
}

type googleUserInfo struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func (s *authService) GoogleCallback(ctx context.Context, code string) (LoginOutput, error) {
	oauthCfg := s.googleOAuthConfig()

	token, err := oauthCfg.Exchange(ctx, code)
	if err != nil {
		return LoginOutput{}, newAppError(http.StatusUnauthorized, "oauth code exchange failed", err)
	}

	resp, err := oauthCfg.Client(ctx, token).Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		return LoginOutput{}, newAppError(http.StatusInternalServerError, "failed to fetch user info", err)
	}
	defer resp.Body.Close()

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return LoginOutput{}, newAppError(http.StatusInternalServerError, "failed to decode user info", err)
	}
	if info.Email == "" {
		return LoginOutput{}, newAppError(http.StatusUnauthorized, "oauth account has no email", nil)
	}

	user, err := s.users.GetByEmail(ctx, nil, info.Email)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return LoginOutput{}, newAppError(http.StatusInternalServerError, "failed to query user", err)
		}
		user = models.User{
			Email:    info.Email,
			Name:     info.Name,
			Avatar:   info.Picture,
			Provider: "google",
		}
		err = s.txManager.WithTransaction(ctx, func(tx *gorm.DB) error {
			if err := s.users.Create(ctx, tx, &user); err != nil {
				return err
			}
			_, err := s.quota.EnsureQuota(ctx, tx, user.ID)
			return err
		})
		if err != nil {
			return LoginOutput{}, newAppError(http.StatusInternalServerError, "failed to create user", err)
		}
	}

	jwtToken, err := utils.GenerateToken(user.ID, user.Email)
	if err != nil {
		return LoginOutput{}, newAppError(http.StatusInternalServerError, "failed to generate token", err)
	}

	return LoginOutput{
		Token: jwtToken,
		User:  AuthUser{ID: user.ID, Email: user.Email, Name: user.Name, Avatar: user.Avatar},
	}, nil
}
