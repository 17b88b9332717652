package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	pkgAuth "github.com/angelmondragon/teahouse-backend/pkg/auth"
	"github.com/angelmondragon/teahouse-backend/pkg/auth/session"
	"github.com/angelmondragon/teahouse-backend/pkg/config"
	"github.com/angelmondragon/teahouse-backend/pkg/db/models"
	"github.com/angelmondragon/teahouse-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/teahouse-backend/pkg/errors"
	"github.com/angelmondragon/teahouse-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var testJWTConfig = config.JWTConfig{
	Secret:            "secret",
	Issuer:            "teahouse",
	ExpirationMinutes: 30,
}

func TestServiceSignInIssuesTokens(t *testing.T) {
	password := "leaf-secret"
	user := &models.User{
		ID:           uuid.New(),
		Email:        "leaf@example.com",
		PasswordHash: mustHashPassword(t, password),
		Role:         enums.UserRoleCustomer,
		IsActive:     true,
	}
	svc, sessions := buildTestService(t, user)

	var events []SessionEvent
	sub := svc.OnSessionChange(func(e SessionEvent) { events = append(events, e) })
	defer sub.Unsubscribe()

	resp, err := svc.SignIn(context.Background(), LoginRequest{Email: " LEAF@example.com ", Password: password})
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID != user.ID || claims.Role != enums.UserRoleCustomer {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if resp.RefreshToken == "" || sessions.tokens[claims.ID] != resp.RefreshToken {
		t.Fatalf("expected refresh token stored for jti")
	}
	if user.LastLoginAt == nil {
		t.Fatalf("expected last login to be recorded")
	}
	if len(events) != 1 || events[0].Type != SessionSignedIn || events[0].UserID != user.ID {
		t.Fatalf("unexpected events %+v", events)
	}
}

func TestServiceSignInRejectsBadCredentials(t *testing.T) {
	user := &models.User{
		ID:           uuid.New(),
		Email:        "leaf@example.com",
		PasswordHash: mustHashPassword(t, "right-password"),
		Role:         enums.UserRoleCustomer,
		IsActive:     true,
	}
	svc, _ := buildTestService(t, user)

	_, err := svc.SignIn(context.Background(), LoginRequest{Email: user.Email, Password: "wrong-password"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized error, got %v", err)
	}

	user.IsActive = false
	_, err = svc.SignIn(context.Background(), LoginRequest{Email: user.Email, Password: "right-password"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for inactive user, got %v", err)
	}
}

func TestServiceSignUpCreatesAccount(t *testing.T) {
	svc, _ := buildTestService(t, nil)

	resp, err := svc.SignUp(context.Background(), SignUpRequest{Email: "New@Example.com", Password: "steeping-time"})
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if resp.User == nil || resp.User.Email != "new@example.com" {
		t.Fatalf("unexpected user %+v", resp.User)
	}
	if resp.User.Role != enums.UserRoleCustomer {
		t.Fatalf("expected customer role, got %s", resp.User.Role)
	}

	_, err = svc.SignUp(context.Background(), SignUpRequest{Email: "short@example.com", Password: "short"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestServiceSignOutRevokesAndNotifies(t *testing.T) {
	password := "leaf-secret"
	user := &models.User{
		ID:           uuid.New(),
		Email:        "leaf@example.com",
		PasswordHash: mustHashPassword(t, password),
		Role:         enums.UserRoleCustomer,
		IsActive:     true,
	}
	svc, sessions := buildTestService(t, user)

	resp, err := svc.SignIn(context.Background(), LoginRequest{Email: user.Email, Password: password})
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if _, err := svc.CurrentSession(context.Background(), resp.AccessToken); err != nil {
		t.Fatalf("current session: %v", err)
	}

	var signedOut []uuid.UUID
	sub := svc.OnSessionChange(func(e SessionEvent) {
		if e.Type == SessionSignedOut {
			signedOut = append(signedOut, e.UserID)
		}
	})

	if err := svc.SignOut(context.Background(), resp.AccessToken); err != nil {
		t.Fatalf("sign out: %v", err)
	}
	if len(sessions.tokens) != 0 {
		t.Fatalf("expected session revoked, got %d", len(sessions.tokens))
	}
	if len(signedOut) != 1 || signedOut[0] != user.ID {
		t.Fatalf("expected one signed_out event for user, got %+v", signedOut)
	}
	if _, err := svc.CurrentSession(context.Background(), resp.AccessToken); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected revoked session to be unauthorized, got %v", err)
	}

	sub.Unsubscribe()
	sub.Unsubscribe()
	if _, err := svc.SignIn(context.Background(), LoginRequest{Email: user.Email, Password: password}); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if len(signedOut) != 1 {
		t.Fatalf("unsubscribed listener must not be called")
	}
}

func TestServiceRefreshRotates(t *testing.T) {
	password := "leaf-secret"
	user := &models.User{
		ID:           uuid.New(),
		Email:        "leaf@example.com",
		PasswordHash: mustHashPassword(t, password),
		Role:         enums.UserRoleAdmin,
		IsActive:     true,
	}
	svc, _ := buildTestService(t, user)

	resp, err := svc.SignIn(context.Background(), LoginRequest{Email: user.Email, Password: password})
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}

	if _, err := svc.Refresh(context.Background(), resp.AccessToken, "not-the-token"); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for wrong refresh token, got %v", err)
	}

	pair, err := svc.Refresh(context.Background(), resp.AccessToken, resp.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	claims, err := pkgAuth.ParseAccessToken(testJWTConfig, pair.AccessToken)
	if err != nil {
		t.Fatalf("parse refreshed token: %v", err)
	}
	if claims.Role != enums.UserRoleAdmin || claims.UserID != user.ID {
		t.Fatalf("refreshed claims lost identity: %+v", claims)
	}

	if _, err := svc.Refresh(context.Background(), resp.AccessToken, resp.RefreshToken); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected old refresh token to be rejected, got %v", err)
	}
}

func buildTestService(t *testing.T, user *models.User) (Service, *stubSessionManager) {
	t.Helper()
	sessions := &stubSessionManager{tokens: map[string]string{}}
	svc, err := NewService(ServiceParams{
		UserRepo:       stubUserRepo{user: user},
		Accounts:       &stubAccounts{},
		SessionManager: sessions,
		JWTConfig:      testJWTConfig,
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc, sessions
}

func mustHashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := security.HashPassword(password, config.PasswordConfig{})
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return hash
}

type stubUserRepo struct {
	user *models.User
}

func (s stubUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, gorm.ErrRecordNotFound
	}
	return s.user, nil
}

func (s stubUserRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	if s.user != nil && s.user.ID == id {
		s.user.LastLoginAt = &at
	}
	return nil
}

type stubAccounts struct{}

func (stubAccounts) CreateAccount(ctx context.Context, account NewAccount) (*models.User, error) {
	return &models.User{
		ID:           uuid.New(),
		Email:        account.Email,
		PasswordHash: account.PasswordHash,
		Role:         enums.UserRoleCustomer,
		IsActive:     true,
	}, nil
}

type stubSessionManager struct {
	mu     sync.Mutex
	tokens map[string]string
}

func (s *stubSessionManager) Generate(ctx context.Context, accessID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token := "refresh-" + accessID
	s.tokens[accessID] = token
	return token, nil
}

func (s *stubSessionManager) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.tokens[oldAccessID]
	if !ok || stored != provided {
		return "", "", session.ErrInvalidRefreshToken
	}
	delete(s.tokens, oldAccessID)
	newID := uuid.NewString()
	s.tokens[newID] = "refresh-" + newID
	return newID, s.tokens[newID], nil
}

func (s *stubSessionManager) Revoke(ctx context.Context, accessID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if accessID == "" {
		return errors.New("access id is required")
	}
	delete(s.tokens, accessID)
	return nil
}

func (s *stubSessionManager) HasSession(ctx context.Context, accessID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tokens[accessID]
	return ok, nil
}
