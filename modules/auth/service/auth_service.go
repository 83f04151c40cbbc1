package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"echoloom-api/core/cache"
	"echoloom-api/core/config"
	"echoloom-api/core/constants"
	"echoloom-api/core/errors"
	"echoloom-api/core/logger"
	"echoloom-api/core/utils"
	"echoloom-api/modules/auth/dto"
	"echoloom-api/modules/auth/entity"
	"echoloom-api/modules/auth/repository"
	notifService "echoloom-api/modules/notification/service"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// AuthService handles accounts, sessions and guest upserts
type AuthService struct {
	repo   repository.AuthRepositoryInterface
	cache  cache.Cache
	mailer notifService.MailerInterface
}

// AuthServiceInterface defines the service contract
type AuthServiceInterface interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, *errors.AppError)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, *errors.AppError)
	Refresh(ctx context.Context, refreshToken string) (*dto.AuthResponse, *errors.AppError)
	Logout(ctx context.Context, accessToken, refreshToken string) *errors.AppError
	Me(ctx context.Context, userID uuid.UUID) (*dto.UserResponse, *errors.AppError)
	AttachGoogleIdentity(ctx context.Context, userID uuid.UUID, code string) (*dto.UserResponse, *errors.AppError)

	// EnsureUser is the create-if-absent upsert used by invites and guest
	// joins. The returned flag reports whether a new row was inserted.
	EnsureUser(ctx context.Context, email, name string) (*entity.User, bool, *errors.AppError)
}

func NewAuthService(repo repository.AuthRepositoryInterface, c cache.Cache, mailer notifService.MailerInterface) AuthServiceInterface {
	return &AuthService{
		repo:   repo,
		cache:  c,
		mailer: mailer,
	}
}

func (s *AuthService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, *errors.AppError) {
	email := strings.TrimSpace(req.Email)
	if !utils.IsValidEmail(email) {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "Invalid email address", nil)
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "Name is required", nil)
	}
	if len(req.Password) < 8 {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "Password must be at least 8 characters", nil)
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		logger.Error("AuthService:Register:HashPassword:Error:", err)
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to process password", err)
	}

	existing, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		logger.Error("AuthService:Register:GetUserByEmail:Error:", err)
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to look up account", err)
	}

	var user *entity.User
	switch {
	case existing == nil:
		user, err = s.repo.CreateUser(ctx, &entity.User{
			Email:        email,
			Name:         strings.TrimSpace(req.Name),
			PasswordHash: &hash,
		})
		if err != nil {
			logger.Error("AuthService:Register:CreateUser:Error:", err)
			return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to create account", err)
		}
		s.mailer.SendWelcome(ctx, user.Email, user.Name)

	case existing.IsGuest():
		// Guest rows are upgraded in place: same id, same email, meeting
		// history preserved.
		existing.Name = strings.TrimSpace(req.Name)
		existing.PasswordHash = &hash
		if err := s.repo.UpdateUser(ctx, existing); err != nil {
			logger.Error("AuthService:Register:UpdateUser:Error:", err)
			return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to upgrade account", err)
		}
		user = existing
		s.mailer.SendWelcome(ctx, user.Email, user.Name)

	default:
		return nil, errors.NewAppError(errors.ErrAlreadyExists, "An account with this email already exists", nil)
	}

	return s.issueTokens(user)
}

func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, *errors.AppError) {
	email := strings.TrimSpace(req.Email)

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		logger.Error("AuthService:Login:GetUserByEmail:Error:", err)
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to look up account", err)
	}
	if user == nil || user.PasswordHash == nil {
		return nil, errors.NewAppError(errors.ErrUnauthorized, "Invalid email or password", nil)
	}

	if err := utils.ComparePassword(*user.PasswordHash, req.Password); err != nil {
		return nil, errors.NewAppError(errors.ErrUnauthorized, "Invalid email or password", nil)
	}

	return s.issueTokens(user)
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*dto.AuthResponse, *errors.AppError) {
	blacklisted, err := s.cache.IsTokenBlacklisted(ctx, refreshToken)
	if err != nil {
		logger.Error("AuthService:Refresh:IsTokenBlacklisted:Error:", err)
	}
	if blacklisted {
		return nil, errors.NewAppError(errors.ErrUnauthorized, "Refresh token has been revoked", nil)
	}

	claims, err := utils.ValidateAndParseToken(refreshToken)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrUnauthorized, "Invalid or expired refresh token", err)
	}
	if claims.Scope != constants.ScopeTokenRefresh {
		return nil, errors.NewAppError(errors.ErrUnauthorized, "Token is not a refresh token", nil)
	}

	user, err := s.repo.GetUserByID(ctx, claims.UserID)
	if err != nil || user == nil {
		return nil, errors.NewAppError(errors.ErrUnauthorized, "Account no longer exists", err)
	}

	// Rotate: the presented refresh token is spent.
	if err := s.cache.AddToTokenBlacklist(ctx, refreshToken); err != nil {
		logger.Error("AuthService:Refresh:AddToTokenBlacklist:Error:", err)
	}

	return s.issueTokens(user)
}

func (s *AuthService) Logout(ctx context.Context, accessToken, refreshToken string) *errors.AppError {
	if err := s.cache.AddToTokenBlacklist(ctx, accessToken); err != nil {
		logger.Error("AuthService:Logout:AddToTokenBlacklist:Access:Error:", err)
	}
	if refreshToken != "" {
		if err := s.cache.AddToTokenBlacklist(ctx, refreshToken); err != nil {
			logger.Error("AuthService:Logout:AddToTokenBlacklist:Refresh:Error:", err)
		}
	}
	return nil
}

func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*dto.UserResponse, *errors.AppError) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		logger.Error("AuthService:Me:GetUserByID:Error:", err)
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to load account", err)
	}
	if user == nil {
		return nil, errors.NewAppError(errors.ErrNotFound, "Account not found", nil)
	}
	return dto.ToUserResponse(user), nil
}

func (s *AuthService) AttachGoogleIdentity(ctx context.Context, userID uuid.UUID, code string) (*dto.UserResponse, *errors.AppError) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil || user == nil {
		return nil, errors.NewAppError(errors.ErrNotFound, "Account not found", err)
	}
	if user.GoogleID != nil {
		return nil, errors.NewAppError(errors.ErrAlreadyExists, "A Google identity is already attached", nil)
	}

	wasGuest := user.IsGuest()

	googleID, err := s.exchangeGoogleCode(ctx, code)
	if err != nil {
		logger.Error("AuthService:AttachGoogleIdentity:Exchange:Error:", err)
		return nil, errors.NewAppError(errors.ErrUpstreamFailure, "Failed to verify Google identity", err)
	}

	user.GoogleID = &googleID
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		logger.Error("AuthService:AttachGoogleIdentity:UpdateUser:Error:", err)
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to attach identity", err)
	}

	if wasGuest {
		s.mailer.SendWelcome(ctx, user.Email, user.Name)
	}

	return dto.ToUserResponse(user), nil
}

func (s *AuthService) EnsureUser(ctx context.Context, email, name string) (*entity.User, bool, *errors.AppError) {
	email = strings.TrimSpace(email)
	if !utils.IsValidEmail(email) {
		return nil, false, errors.NewAppError(errors.ErrInvalidInput, "Invalid email address", nil)
	}

	existing, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		logger.Error("AuthService:EnsureUser:GetUserByEmail:Error:", err)
		return nil, false, errors.NewAppError(errors.ErrInternalServer, "Failed to look up account", err)
	}
	if existing != nil {
		return existing, false, nil
	}

	displayName := strings.TrimSpace(name)
	if displayName == "" {
		displayName = email
	}

	created, err := s.repo.CreateUser(ctx, &entity.User{
		Email: email,
		Name:  displayName,
	})
	if err != nil {
		logger.Error("AuthService:EnsureUser:CreateUser:Error:", err)
		return nil, false, errors.NewAppError(errors.ErrInternalServer, "Failed to create account", err)
	}

	s.mailer.SendWelcome(ctx, created.Email, created.Name)
	return created, true, nil
}

func (s *AuthService) issueTokens(user *entity.User) (*dto.AuthResponse, *errors.AppError) {
	access, err := utils.GenerateToken(user.ID, &user.Email, &user.Name, constants.ScopeTokenAccess)
	if err != nil {
		logger.Error("AuthService:issueTokens:Access:Error:", err)
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to issue tokens", err)
	}

	refresh, err := utils.GenerateToken(user.ID, &user.Email, nil, constants.ScopeTokenRefresh)
	if err != nil {
		logger.Error("AuthService:issueTokens:Refresh:Error:", err)
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to issue tokens", err)
	}

	return &dto.AuthResponse{
		User:         *dto.ToUserResponse(user),
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}

func (s *AuthService) exchangeGoogleCode(ctx context.Context, code string) (string, error) {
	cfg := config.Get()
	oauthCfg := &oauth2.Config{
		ClientID:     cfg.GoogleAPI.ClientID,
		ClientSecret: cfg.GoogleAPI.ClientSecret,
		RedirectURL:  cfg.GoogleAPI.RedirectURI,
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint:     google.Endpoint,
	}

	token, err := oauthCfg.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("exchange code: %w", err)
	}

	client := oauthCfg.Client(ctx, token)
	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		return "", fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("userinfo returned %d", resp.StatusCode)
	}

	var info struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("decode userinfo: %w", err)
	}
	if info.ID == "" {
		return "", fmt.Errorf("userinfo missing subject id")
	}

	return info.ID, nil
}
