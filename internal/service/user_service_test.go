package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rollbook/rollbook-api/internal/models"
	appErrors "github.com/rollbook/rollbook-api/pkg/errors"
)

type mockUserRepo struct {
	users    map[string]*models.User
	statuses map[string]models.UserStatus
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: map[string]*models.User{}, statuses: map[string]models.UserStatus{}}
}

func (m *mockUserRepo) List(_ context.Context, _ models.UserFilter) ([]models.User, int, error) {
	var users []models.User
	for _, user := range m.users {
		users = append(users, *user)
	}
	return users, len(users), nil
}

func (m *mockUserRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	if user, ok := m.users[id]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) ExistsByEmail(_ context.Context, email string, excludeID string) (bool, error) {
	for id, user := range m.users {
		if user.Email == email && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockUserRepo) Create(_ context.Context, user *models.User) error {
	user.ID = "u-new"
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) Update(_ context.Context, user *models.User) error {
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) SetStatus(_ context.Context, id string, status models.UserStatus) error {
	m.statuses[id] = status
	if user, ok := m.users[id]; ok {
		user.Status = status
	}
	return nil
}

func TestUserCreateDefaultsToActive(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewUserService(repo, nil, nil)

	user, err := svc.Create(context.Background(), CreateUserRequest{
		Name: "Jane Doe", Email: "jane@example.com", Password: "secret123", Role: "FACULTY", Abbreviation: "JD",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, user.Status)
	assert.NotEqual(t, "secret123", user.PasswordHash)
}

func TestUserCreateRejectsUnknownRole(t *testing.T) {
	svc := NewUserService(newMockUserRepo(), nil, nil)
	_, err := svc.Create(context.Background(), CreateUserRequest{
		Name: "Jane Doe", Email: "jane@example.com", Password: "secret123", Role: "SUPERUSER", Abbreviation: "JD",
	})
	require.Error(t, err)
}

func TestApproveOnlyPendingAccounts(t *testing.T) {
	repo := newMockUserRepo()
	repo.users["u-1"] = &models.User{ID: "u-1", Status: models.StatusPending, Role: models.RoleFaculty}
	repo.users["u-2"] = &models.User{ID: "u-2", Status: models.StatusActive, Role: models.RoleFaculty}
	svc := NewUserService(repo, nil, nil)

	user, err := svc.Approve(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, user.Status)

	_, err = svc.Approve(context.Background(), "u-2")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestDeactivateMarksInactive(t *testing.T) {
	repo := newMockUserRepo()
	repo.users["u-1"] = &models.User{ID: "u-1", Status: models.StatusActive, Role: models.RoleFaculty}
	svc := NewUserService(repo, nil, nil)

	require.NoError(t, svc.Deactivate(context.Background(), "u-1"))
	assert.Equal(t, models.StatusInactive, repo.statuses["u-1"])
}

func TestUpdateRejectsDuplicateEmail(t *testing.T) {
	repo := newMockUserRepo()
	repo.users["u-1"] = &models.User{ID: "u-1", Email: "jane@example.com", Status: models.StatusActive, Role: models.RoleFaculty}
	repo.users["u-2"] = &models.User{ID: "u-2", Email: "john@example.com", Status: models.StatusActive, Role: models.RoleFaculty}
	svc := NewUserService(repo, nil, nil)

	_, err := svc.Update(context.Background(), "u-2", UpdateUserRequest{
		Name: "John Roe", Email: "jane@example.com", Role: "FACULTY", Status: "ACTIVE", Abbreviation: "JR",
	})
	require.Error(t, err)
}
