package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/nutricare-ph/nutricare-api/internal/models"
	appErrors "github.com/nutricare-ph/nutricare-api/pkg/errors"
)

type mockUserRepo struct {
	users    map[string]models.User
	statuses map[string]models.UserStatus
}

func (m *mockUserRepo) List(ctx context.Context) ([]models.User, error) {
	users := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, u)
	}
	return users, nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return &u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if m.users == nil {
		m.users = make(map[string]models.User)
	}
	if user.ID == "" {
		user.ID = "generated"
	}
	m.users[user.ID] = *user
	return nil
}

func (m *mockUserRepo) Update(ctx context.Context, user *models.User) error {
	m.users[user.ID] = *user
	return nil
}

func (m *mockUserRepo) UpdateStatus(ctx context.Context, id string, status models.UserStatus) error {
	if m.statuses == nil {
		m.statuses = make(map[string]models.UserStatus)
	}
	m.statuses[id] = status
	u := m.users[id]
	u.Status = status
	m.users[id] = u
	return nil
}

func testUser(id, email, name string, role models.UserRole, status models.UserStatus) models.User {
	return models.User{ID: id, Email: email, FullName: name, Role: role, Status: status}
}

func TestUserServiceCreateHashesPassword(t *testing.T) {
	repo := &mockUserRepo{}
	svc := NewUserService(repo, validator.New(), zap.NewNop())

	user, err := svc.Create(context.Background(), CreateUserRequest{
		Email:    "nutritionist@example.com",
		Password: "s3cret-pass",
		FullName: "Liza Mendoza",
		Role:     models.RoleNutritionist,
	})
	require.NoError(t, err)
	assert.Equal(t, models.UserActive, user.Status)
	assert.NotEqual(t, "s3cret-pass", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("s3cret-pass")))
}

func TestUserServiceCreateEmailConflict(t *testing.T) {
	repo := &mockUserRepo{users: map[string]models.User{
		"u1": testUser("u1", "taken@example.com", "Ana Cruz", models.RoleNutritionist, models.UserActive),
	}}
	svc := NewUserService(repo, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), CreateUserRequest{
		Email:    "taken@example.com",
		Password: "s3cret-pass",
		FullName: "Other Person",
		Role:     models.RoleParent,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestUserServiceCreateValidation(t *testing.T) {
	svc := NewUserService(&mockUserRepo{}, validator.New(), zap.NewNop())

	cases := []CreateUserRequest{
		{Email: "bad-email", Password: "s3cret-pass", FullName: "X", Role: models.RoleParent},
		{Email: "ok@example.com", Password: "short", FullName: "X", Role: models.RoleParent},
		{Email: "ok@example.com", Password: "s3cret-pass", FullName: "X", Role: "SUPERUSER"},
	}
	for _, req := range cases {
		_, err := svc.Create(context.Background(), req)
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	}
}

func TestUserServiceListFilters(t *testing.T) {
	repo := &mockUserRepo{users: map[string]models.User{
		"u1": testUser("u1", "admin@example.com", "Admin One", models.RoleAdmin, models.UserActive),
		"u2": testUser("u2", "liza@example.com", "Liza Mendoza", models.RoleNutritionist, models.UserActive),
		"u3": testUser("u3", "off@example.com", "Former Staff", models.RoleNutritionist, models.UserInactive),
	}}
	svc := NewUserService(repo, validator.New(), zap.NewNop())

	role := models.RoleNutritionist
	status := models.UserActive
	users, pagination, err := svc.List(context.Background(), models.UserFilter{Role: &role, Status: &status})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "u2", users[0].ID)
	assert.Equal(t, 1, pagination.TotalCount)

	users, _, err = svc.List(context.Background(), models.UserFilter{Search: "mendoza"})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "u2", users[0].ID)
}

func TestUserServiceProtectRule(t *testing.T) {
	repo := &mockUserRepo{users: map[string]models.User{
		"admin": testUser("admin", "admin@example.com", "Admin One", models.RoleAdmin, models.UserActive),
		"staff": testUser("staff", "liza@example.com", "Liza Mendoza", models.RoleNutritionist, models.UserActive),
	}}
	svc := NewUserService(repo, validator.New(), zap.NewNop())

	rule := svc.ProtectRule(context.Background(), "staff")
	assert.Equal(t, "cannot modify your own account", rule(EntityRef{ID: "staff"}))
	assert.Equal(t, "admin accounts are protected", rule(EntityRef{ID: "admin"}))
	assert.Empty(t, rule(EntityRef{ID: "ghost"}))
}

func TestUserMutatorStatusTransitions(t *testing.T) {
	repo := &mockUserRepo{users: map[string]models.User{
		"active":   testUser("active", "a@example.com", "Active", models.RoleNutritionist, models.UserActive),
		"inactive": testUser("inactive", "i@example.com", "Inactive", models.RoleNutritionist, models.UserInactive),
	}}
	mutator := NewUserMutator(repo)
	ctx := context.Background()

	require.NoError(t, mutator.Apply(ctx, "active", models.BulkDeactivate))
	assert.Equal(t, models.UserInactive, repo.statuses["active"])

	require.NoError(t, mutator.Apply(ctx, "inactive", models.BulkActivate))
	assert.Equal(t, models.UserActive, repo.statuses["inactive"])

	require.NoError(t, mutator.Apply(ctx, "active", models.BulkDelete))
	assert.Equal(t, models.UserDeleted, repo.statuses["active"])
}

func TestUserMutatorNoOpTransition(t *testing.T) {
	repo := &mockUserRepo{users: map[string]models.User{
		"active": testUser("active", "a@example.com", "Active", models.RoleNutritionist, models.UserActive),
	}}
	mutator := NewUserMutator(repo)

	err := mutator.Apply(context.Background(), "active", models.BulkActivate)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already active")

	err = mutator.Apply(context.Background(), "ghost", models.BulkActivate)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestUserMutatorUnsupportedAction(t *testing.T) {
	repo := &mockUserRepo{users: map[string]models.User{
		"active": testUser("active", "a@example.com", "Active", models.RoleNutritionist, models.UserActive),
	}}
	mutator := NewUserMutator(repo)

	err := mutator.Apply(context.Background(), "active", models.BulkAction("purge"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported action")
}

func TestUserMutatorResolveOmitsUnknown(t *testing.T) {
	repo := &mockUserRepo{users: map[string]models.User{
		"u1": testUser("u1", "liza@example.com", "Liza Mendoza", models.RoleNutritionist, models.UserActive),
	}}
	mutator := NewUserMutator(repo)

	refs, err := mutator.Resolve(context.Background(), []string{"u1", "ghost"})
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "Liza Mendoza", refs[0].Name)
}
