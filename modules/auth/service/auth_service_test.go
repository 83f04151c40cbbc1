package service

import (
	"context"
	"testing"
	"time"

	"echoloom-api/core/config"
	"echoloom-api/core/constants"
	appErrors "echoloom-api/core/errors"
	"echoloom-api/core/utils"
	"echoloom-api/modules/auth/dto"
	"echoloom-api/modules/auth/entity"
	notifService "echoloom-api/modules/notification/service"

	"github.com/google/uuid"
)

func loadTestConfig(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
	if _, err := config.Load(); err != nil {
		t.Fatalf("load config: %v", err)
	}
}

// ===================== fakes =====================

type fakeAuthRepo struct {
	users map[uuid.UUID]*entity.User
}

func newFakeAuthRepo() *fakeAuthRepo {
	return &fakeAuthRepo{users: make(map[uuid.UUID]*entity.User)}
}

func (f *fakeAuthRepo) CreateUser(_ context.Context, u *entity.User) (*entity.User, error) {
	clone := *u
	clone.ID = uuid.New()
	f.users[clone.ID] = &clone
	return &clone, nil
}

func (f *fakeAuthRepo) GetUserByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	return u, nil
}

func (f *fakeAuthRepo) GetUserByEmail(_ context.Context, email string) (*entity.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeAuthRepo) UpdateUser(_ context.Context, u *entity.User) error {
	f.users[u.ID] = u
	return nil
}

func (f *fakeAuthRepo) AttachMeeting(context.Context, uuid.UUID, uuid.UUID) error { return nil }
func (f *fakeAuthRepo) DetachMeeting(context.Context, uuid.UUID, uuid.UUID) error { return nil }

type fakeBlacklistCache struct {
	blacklisted map[string]bool
}

func newFakeBlacklistCache() *fakeBlacklistCache {
	return &fakeBlacklistCache{blacklisted: make(map[string]bool)}
}

func (f *fakeBlacklistCache) Get(context.Context, string) (string, error) { return "", nil }
func (f *fakeBlacklistCache) SetWithTTL(context.Context, string, string, time.Duration) error {
	return nil
}
func (f *fakeBlacklistCache) Del(context.Context, ...string) error          { return nil }
func (f *fakeBlacklistCache) Expire(context.Context, string, time.Duration) error { return nil }

func (f *fakeBlacklistCache) AddToTokenBlacklist(_ context.Context, token string) error {
	f.blacklisted[token] = true
	return nil
}

func (f *fakeBlacklistCache) IsTokenBlacklisted(_ context.Context, token string) (bool, error) {
	return f.blacklisted[token], nil
}

type welcomeRecorder struct {
	welcomed []string
}

func (w *welcomeRecorder) SendInvite(context.Context, []notifService.Recipient, notifService.MeetingNotice) {
}
func (w *welcomeRecorder) SendUpdate(context.Context, []notifService.Recipient, notifService.MeetingNotice, []string) {
}
func (w *welcomeRecorder) SendCancellation(context.Context, []notifService.Recipient, notifService.MeetingNotice, string) {
}
func (w *welcomeRecorder) SendWelcome(_ context.Context, email, _ string) {
	w.welcomed = append(w.welcomed, email)
}

func newTestAuthService(t *testing.T) (AuthServiceInterface, *fakeAuthRepo, *fakeBlacklistCache, *welcomeRecorder) {
	t.Helper()
	loadTestConfig(t)
	repo := newFakeAuthRepo()
	c := newFakeBlacklistCache()
	mailer := &welcomeRecorder{}
	return NewAuthService(repo, c, mailer), repo, c, mailer
}

// ===================== register =====================

func TestRegisterCreatesAccountAndWelcomes(t *testing.T) {
	svc, repo, _, mailer := newTestAuthService(t)

	resp, appErr := svc.Register(context.Background(), &dto.RegisterRequest{
		Email:    "new@example.com",
		Name:     "Nia",
		Password: "correct horse",
	})
	if appErr != nil {
		t.Fatalf("Register failed: %v", appErr)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("expected both tokens")
	}

	user, _ := repo.GetUserByEmail(context.Background(), "new@example.com")
	if user == nil || user.PasswordHash == nil {
		t.Fatalf("account not persisted with a password: %+v", user)
	}
	if len(mailer.welcomed) != 1 || mailer.welcomed[0] != "new@example.com" {
		t.Fatalf("welcome notice: %v", mailer.welcomed)
	}
}

func TestRegisterUpgradesGuestInPlace(t *testing.T) {
	svc, repo, _, _ := newTestAuthService(t)

	// A guest row, as created by an invite or guest join.
	guest, _ := repo.CreateUser(context.Background(), &entity.User{
		Email:      "guest@example.com",
		Name:       "Gus",
		MeetingIDs: []string{uuid.NewString()},
	})

	if _, appErr := svc.Register(context.Background(), &dto.RegisterRequest{
		Email:    "guest@example.com",
		Name:     "Gustav Proper",
		Password: "correct horse",
	}); appErr != nil {
		t.Fatalf("Register failed: %v", appErr)
	}

	upgraded, _ := repo.GetUserByID(context.Background(), guest.ID)
	if upgraded.PasswordHash == nil {
		t.Fatal("guest row was not upgraded")
	}
	if upgraded.Name != "Gustav Proper" {
		t.Fatalf("name = %q", upgraded.Name)
	}
	if len(upgraded.MeetingIDs) != 1 {
		t.Fatal("meeting history must survive the upgrade")
	}
}

func TestRegisterDuplicateCredentialedAccount(t *testing.T) {
	svc, _, _, _ := newTestAuthService(t)

	req := &dto.RegisterRequest{Email: "dup@example.com", Name: "Dee", Password: "correct horse"}
	if _, appErr := svc.Register(context.Background(), req); appErr != nil {
		t.Fatalf("first register failed: %v", appErr)
	}

	_, appErr := svc.Register(context.Background(), req)
	if appErr == nil || appErr.Code != appErrors.ErrAlreadyExists {
		t.Fatalf("expected ErrAlreadyExists, got %v", appErr)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _, _ := newTestAuthService(t)

	cases := []dto.RegisterRequest{
		{Email: "bad", Name: "B", Password: "correct horse"},
		{Email: "ok@example.com", Name: " ", Password: "correct horse"},
		{Email: "ok@example.com", Name: "Ok", Password: "short"},
	}
	for _, req := range cases {
		if _, appErr := svc.Register(context.Background(), &req); appErr == nil || appErr.Code != appErrors.ErrInvalidInput {
			t.Fatalf("req %+v: expected ErrInvalidInput, got %v", req, appErr)
		}
	}
}

// ===================== login / refresh =====================

func TestLoginRoundTrip(t *testing.T) {
	svc, _, _, _ := newTestAuthService(t)

	if _, appErr := svc.Register(context.Background(), &dto.RegisterRequest{
		Email: "ana@example.com", Name: "Ana", Password: "correct horse",
	}); appErr != nil {
		t.Fatalf("register failed: %v", appErr)
	}

	resp, appErr := svc.Login(context.Background(), &dto.LoginRequest{Email: "ana@example.com", Password: "correct horse"})
	if appErr != nil {
		t.Fatalf("login failed: %v", appErr)
	}
	if resp.AccessToken == "" {
		t.Fatal("expected an access token")
	}

	if _, appErr := svc.Login(context.Background(), &dto.LoginRequest{Email: "ana@example.com", Password: "wrong"}); appErr == nil || appErr.Code != appErrors.ErrUnauthorized {
		t.Fatalf("wrong password: expected ErrUnauthorized, got %v", appErr)
	}
}

func TestLoginGuestAccountHasNoPassword(t *testing.T) {
	svc, repo, _, _ := newTestAuthService(t)
	repo.CreateUser(context.Background(), &entity.User{Email: "guest@example.com", Name: "Gus"})

	_, appErr := svc.Login(context.Background(), &dto.LoginRequest{Email: "guest@example.com", Password: "anything"})
	if appErr == nil || appErr.Code != appErrors.ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized, got %v", appErr)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	svc, _, c, _ := newTestAuthService(t)

	reg, appErr := svc.Register(context.Background(), &dto.RegisterRequest{
		Email: "ana@example.com", Name: "Ana", Password: "correct horse",
	})
	if appErr != nil {
		t.Fatalf("register failed: %v", appErr)
	}

	refreshed, appErr := svc.Refresh(context.Background(), reg.RefreshToken)
	if appErr != nil {
		t.Fatalf("refresh failed: %v", appErr)
	}
	if refreshed.AccessToken == "" {
		t.Fatal("expected a fresh access token")
	}
	if !c.blacklisted[reg.RefreshToken] {
		t.Fatal("the spent refresh token must be blacklisted")
	}

	// Replaying the spent token is rejected.
	if _, appErr := svc.Refresh(context.Background(), reg.RefreshToken); appErr == nil || appErr.Code != appErrors.ErrUnauthorized {
		t.Fatalf("replayed refresh: expected ErrUnauthorized, got %v", appErr)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	svc, repo, _, _ := newTestAuthService(t)
	user, _ := repo.CreateUser(context.Background(), &entity.User{Email: "a@example.com", Name: "A"})

	access, err := utils.GenerateToken(user.ID, &user.Email, &user.Name, constants.ScopeTokenAccess)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	if _, appErr := svc.Refresh(context.Background(), access); appErr == nil || appErr.Code != appErrors.ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized, got %v", appErr)
	}
}

// ===================== ensure user =====================

func TestEnsureUserCreatesGuestOnce(t *testing.T) {
	svc, _, _, mailer := newTestAuthService(t)

	first, created, appErr := svc.EnsureUser(context.Background(), "guest@example.com", "Gus")
	if appErr != nil {
		t.Fatalf("EnsureUser failed: %v", appErr)
	}
	if !created {
		t.Fatal("first call must create")
	}
	if !first.IsGuest() {
		t.Fatal("provisioned account must be a guest")
	}

	second, created, appErr := svc.EnsureUser(context.Background(), "guest@example.com", "Someone Else")
	if appErr != nil {
		t.Fatalf("second EnsureUser failed: %v", appErr)
	}
	if created {
		t.Fatal("second call must not create")
	}
	if second.ID != first.ID {
		t.Fatal("must return the existing row")
	}
	if second.Name != "Gus" {
		t.Fatalf("existing name must be preserved, got %q", second.Name)
	}

	// Welcome only on the insert.
	if len(mailer.welcomed) != 1 {
		t.Fatalf("welcome sends = %v", mailer.welcomed)
	}
}

func TestEnsureUserDefaultsNameToEmail(t *testing.T) {
	svc, _, _, _ := newTestAuthService(t)

	user, _, appErr := svc.EnsureUser(context.Background(), "noname@example.com", "  ")
	if appErr != nil {
		t.Fatalf("EnsureUser failed: %v", appErr)
	}
	if user.Name != "noname@example.com" {
		t.Fatalf("name = %q, want the email", user.Name)
	}
}

func TestEnsureUserRejectsBadEmail(t *testing.T) {
	svc, _, _, _ := newTestAuthService(t)

	_, _, appErr := svc.EnsureUser(context.Background(), "not-an-email", "X")
	if appErr == nil || appErr.Code != appErrors.ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput, got %v", appErr)
	}
}
