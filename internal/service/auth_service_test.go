package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/rollbook/rollbook-api/internal/models"
	appErrors "github.com/rollbook/rollbook-api/pkg/errors"
)

type mockAuthRepo struct {
	users         map[string]*models.User
	created       *models.User
	refreshTokens map[string]*models.RefreshToken
	resetTokens   map[string]*models.PasswordResetToken
	revokedAll    []string
	passwordSet   map[string]string
}

func newMockAuthRepo() *mockAuthRepo {
	return &mockAuthRepo{
		users:         map[string]*models.User{},
		refreshTokens: map[string]*models.RefreshToken{},
		resetTokens:   map[string]*models.PasswordResetToken{},
		passwordSet:   map[string]string{},
	}
}

func (m *mockAuthRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	for _, user := range m.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	if user, ok := m.users[id]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) Create(_ context.Context, user *models.User) error {
	user.ID = "u-new"
	m.created = user
	m.users[user.ID] = user
	return nil
}

func (m *mockAuthRepo) ExistsByEmail(_ context.Context, email string, _ string) (bool, error) {
	for _, user := range m.users {
		if user.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockAuthRepo) UpdateLastLogin(_ context.Context, _ string, _ time.Time) error { return nil }

func (m *mockAuthRepo) UpdatePassword(_ context.Context, id, hash string, _ time.Time) error {
	m.passwordSet[id] = hash
	return nil
}

func (m *mockAuthRepo) RevokeUserRefreshTokens(_ context.Context, userID string) error {
	m.revokedAll = append(m.revokedAll, userID)
	return nil
}

func (m *mockAuthRepo) CreateRefreshToken(_ context.Context, token *models.RefreshToken) error {
	m.refreshTokens[token.Token] = token
	return nil
}

func (m *mockAuthRepo) FindRefreshToken(_ context.Context, token string) (*models.RefreshToken, error) {
	if stored, ok := m.refreshTokens[token]; ok {
		return stored, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) RevokeRefreshToken(_ context.Context, id string, _ time.Time) error {
	for _, token := range m.refreshTokens {
		if token.ID == id {
			token.Revoked = true
		}
	}
	return nil
}

func (m *mockAuthRepo) CreatePasswordResetToken(_ context.Context, token *models.PasswordResetToken) error {
	m.resetTokens[token.Token] = token
	return nil
}

func (m *mockAuthRepo) FindPasswordResetToken(_ context.Context, token string) (*models.PasswordResetToken, error) {
	if stored, ok := m.resetTokens[token]; ok {
		return stored, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) MarkPasswordResetTokenUsed(_ context.Context, id string, usedAt time.Time) error {
	for _, token := range m.resetTokens {
		if token.ID == id {
			token.UsedAt = &usedAt
		}
	}
	return nil
}

func authFixture(t *testing.T) (*AuthService, *mockAuthRepo) {
	t.Helper()
	repo := newMockAuthRepo()
	svc := NewAuthService(repo, nil, nil, AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "rollbook-test",
	})
	return svc, repo
}

func seedUser(repo *mockAuthRepo, status models.UserStatus, password string) *models.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	user := &models.User{
		ID:           "u-1",
		Name:         "Jane Doe",
		Email:        "jane@example.com",
		PasswordHash: string(hash),
		Role:         models.RoleFaculty,
		Status:       status,
		Abbreviation: "JD",
	}
	repo.users[user.ID] = user
	return user
}

func TestSignupCreatesPendingFaculty(t *testing.T) {
	svc, repo := authFixture(t)

	info, err := svc.Signup(context.Background(), models.SignupRequest{
		Name: "Jane Doe", Email: "jane@example.com", Password: "secret123", Abbreviation: "JD",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, info.Status)
	assert.Equal(t, models.RoleFaculty, info.Role)
	require.NotNil(t, repo.created)
	assert.NotEqual(t, "secret123", repo.created.PasswordHash)
}

func TestSignupDuplicateEmailConflicts(t *testing.T) {
	svc, repo := authFixture(t)
	seedUser(repo, models.StatusActive, "secret123")

	_, err := svc.Signup(context.Background(), models.SignupRequest{
		Name: "Other", Email: "jane@example.com", Password: "secret123", Abbreviation: "OT",
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestLoginIssuesTokensForActiveUser(t *testing.T) {
	svc, repo := authFixture(t)
	seedUser(repo, models.StatusActive, "secret123")

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "jane@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "u-1", resp.User.ID)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, models.RoleFaculty, claims.Role)
}

func TestLoginPendingAccountBlocked(t *testing.T) {
	svc, repo := authFixture(t)
	seedUser(repo, models.StatusPending, "secret123")

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "jane@example.com", Password: "secret123"})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrAccountPending.Code, appErr.Code)
}

func TestLoginInactiveAccountBlocked(t *testing.T) {
	svc, repo := authFixture(t)
	seedUser(repo, models.StatusInactive, "secret123")

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "jane@example.com", Password: "secret123"})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrAccountInactive.Code, appErr.Code)
}

func TestLoginWrongPasswordDoesNotRevealStatus(t *testing.T) {
	svc, repo := authFixture(t)
	seedUser(repo, models.StatusPending, "secret123")

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "jane@example.com", Password: "wrong-pass"})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestRefreshTokenRotates(t *testing.T) {
	svc, repo := authFixture(t)
	seedUser(repo, models.StatusActive, "secret123")

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "jane@example.com", Password: "secret123"})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: resp.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, resp.RefreshToken, refreshed.RefreshToken)

	// The consumed token must not work twice.
	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: resp.RefreshToken})
	require.Error(t, err)
}

func TestValidateTokenRejectsForgedSignature(t *testing.T) {
	svc, repo := authFixture(t)
	seedUser(repo, models.StatusActive, "secret123")

	other := NewAuthService(repo, nil, nil, AuthConfig{
		AccessTokenSecret: "different-secret",
		AccessTokenExpiry: 15 * time.Minute,
	})
	resp, err := other.Login(context.Background(), models.LoginRequest{Email: "jane@example.com", Password: "secret123"})
	require.NoError(t, err)

	_, err = svc.ValidateToken(resp.AccessToken)
	require.Error(t, err)
}

func TestAdminResetPasswordRevokesSessions(t *testing.T) {
	svc, repo := authFixture(t)
	user := seedUser(repo, models.StatusActive, "secret123")

	info, err := svc.AdminResetPassword(context.Background(), user.ID, models.AdminResetPasswordRequest{NewPassword: "fresh-pass-1"})
	require.NoError(t, err)
	assert.Equal(t, user.Email, info.Email)
	assert.Contains(t, repo.revokedAll, user.ID)
	assert.NotEmpty(t, repo.passwordSet[user.ID])
}

func TestRequestPasswordResetSilentOnUnknownEmail(t *testing.T) {
	svc, _ := authFixture(t)

	token, err := svc.RequestPasswordReset(context.Background(), models.ResetPasswordRequest{Email: "nobody@example.com"})
	require.NoError(t, err)
	assert.Nil(t, token)
}

func TestConfirmPasswordResetConsumesToken(t *testing.T) {
	svc, repo := authFixture(t)
	user := seedUser(repo, models.StatusActive, "secret123")

	token, err := svc.RequestPasswordReset(context.Background(), models.ResetPasswordRequest{Email: user.Email})
	require.NoError(t, err)
	require.NotNil(t, token)

	err = svc.ConfirmPasswordReset(context.Background(), models.ConfirmResetPasswordRequest{Token: token.Token, NewPassword: "fresh-pass-1"})
	require.NoError(t, err)
	assert.NotEmpty(t, repo.passwordSet[user.ID])

	err = svc.ConfirmPasswordReset(context.Background(), models.ConfirmResetPasswordRequest{Token: token.Token, NewPassword: "another-pass"})
	require.Error(t, err)
}
