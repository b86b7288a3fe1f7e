package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/nutricare-ph/nutricare-api/internal/models"
	appErrors "github.com/nutricare-ph/nutricare-api/pkg/errors"
)

type mockAuthRepo struct {
	users     map[string]models.User
	lastLogin map[string]time.Time
	newHashes map[string]string
	lastErr   error
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return &u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	if m.lastErr != nil {
		return m.lastErr
	}
	if m.lastLogin == nil {
		m.lastLogin = make(map[string]time.Time)
	}
	m.lastLogin[id] = ts
	return nil
}

func (m *mockAuthRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	if m.newHashes == nil {
		m.newHashes = make(map[string]string)
	}
	m.newHashes[id] = passwordHash
	return nil
}

func authRepoWithUser(password string, status models.UserStatus) *mockAuthRepo {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	return &mockAuthRepo{users: map[string]models.User{
		"u1": {
			ID:           "u1",
			Email:        "liza@example.com",
			PasswordHash: string(hash),
			FullName:     "Liza Mendoza",
			Role:         models.RoleNutritionist,
			Status:       status,
		},
	}}
}

func authServiceForTest(repo authUserRepository) *AuthService {
	return NewAuthService(repo, nil, zap.NewNop(), AuthConfig{
		Secret:     "test-secret",
		Expiration: time.Hour,
		Issuer:     "nutricare-api",
	})
}

func TestAuthServiceLogin(t *testing.T) {
	repo := authRepoWithUser("s3cret-pass", models.UserActive)
	svc := authServiceForTest(repo)

	result, err := svc.Login(context.Background(), LoginRequest{Email: "liza@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
	assert.Equal(t, int64(3600), result.ExpiresIn)
	assert.Equal(t, "u1", result.User.ID)
	assert.Contains(t, repo.lastLogin, "u1")
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	svc := authServiceForTest(authRepoWithUser("s3cret-pass", models.UserActive))

	_, err := svc.Login(context.Background(), LoginRequest{Email: "liza@example.com", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginUnknownEmail(t *testing.T) {
	svc := authServiceForTest(&mockAuthRepo{})

	_, err := svc.Login(context.Background(), LoginRequest{Email: "ghost@example.com", Password: "whatever"})
	require.Error(t, err)
	// Unknown email is indistinguishable from a wrong password.
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginInactiveAccount(t *testing.T) {
	svc := authServiceForTest(authRepoWithUser("s3cret-pass", models.UserInactive))

	_, err := svc.Login(context.Background(), LoginRequest{Email: "liza@example.com", Password: "s3cret-pass"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceTokenRoundTrip(t *testing.T) {
	svc := authServiceForTest(authRepoWithUser("s3cret-pass", models.UserActive))

	result, err := svc.Login(context.Background(), LoginRequest{Email: "liza@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "liza@example.com", claims.Email)
	assert.Equal(t, models.RoleNutritionist, claims.Role)
}

func TestAuthServiceValidateTokenRejectsWrongSecret(t *testing.T) {
	repo := authRepoWithUser("s3cret-pass", models.UserActive)
	issuer := authServiceForTest(repo)
	verifier := NewAuthService(repo, nil, zap.NewNop(), AuthConfig{Secret: "other-secret", Expiration: time.Hour})

	result, err := issuer.Login(context.Background(), LoginRequest{Email: "liza@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)

	_, err = verifier.ValidateToken(result.AccessToken)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceValidateTokenRejectsGarbage(t *testing.T) {
	svc := authServiceForTest(&mockAuthRepo{})

	_, err := svc.ValidateToken("not-a-token")
	require.Error(t, err)
}

func TestAuthServiceChangePassword(t *testing.T) {
	repo := authRepoWithUser("s3cret-pass", models.UserActive)
	svc := authServiceForTest(repo)

	err := svc.ChangePassword(context.Background(), "u1", ChangePasswordRequest{
		OldPassword: "s3cret-pass",
		NewPassword: "brand-new-pass",
	})
	require.NoError(t, err)
	require.Contains(t, repo.newHashes, "u1")
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.newHashes["u1"]), []byte("brand-new-pass")))
}

func TestAuthServiceChangePasswordWrongOldPassword(t *testing.T) {
	svc := authServiceForTest(authRepoWithUser("s3cret-pass", models.UserActive))

	err := svc.ChangePassword(context.Background(), "u1", ChangePasswordRequest{
		OldPassword: "wrong",
		NewPassword: "brand-new-pass",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceChangePasswordTooShort(t *testing.T) {
	svc := authServiceForTest(authRepoWithUser("s3cret-pass", models.UserActive))

	err := svc.ChangePassword(context.Background(), "u1", ChangePasswordRequest{
		OldPassword: "s3cret-pass",
		NewPassword: "short",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
