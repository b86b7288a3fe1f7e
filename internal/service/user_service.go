package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/nutricare-ph/nutricare-api/internal/models"
	appErrors "github.com/nutricare-ph/nutricare-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context) ([]models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	UpdateStatus(ctx context.Context, id string, status models.UserStatus) error
}

// CreateUserRequest holds payload for provisioning accounts.
type CreateUserRequest struct {
	Email    string          `json:"email" validate:"required,email"`
	Password string          `json:"password" validate:"required,min=8"`
	FullName string          `json:"full_name" validate:"required"`
	Role     models.UserRole `json:"role" validate:"required,oneof=ADMIN NUTRITIONIST PARENT"`
}

// UpdateUserRequest holds payload for account updates.
type UpdateUserRequest struct {
	Email    string          `json:"email" validate:"required,email"`
	FullName string          `json:"full_name" validate:"required"`
	Role     models.UserRole `json:"role" validate:"required,oneof=ADMIN NUTRITIONIST PARENT"`
}

// UserService manages account lifecycle and supplies the bulk target for
// account state transitions.
type UserService struct {
	repo      userRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs the user service.
func NewUserService(repo userRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{repo: repo, validator: validate, logger: logger}
}

func userFieldIndex() FieldIndex[models.User] {
	return FieldIndex[models.User]{
		Text: map[string]func(models.User) string{
			"full_name": func(u models.User) string { return u.FullName },
			"email":     func(u models.User) string { return u.Email },
			"role":      func(u models.User) string { return string(u.Role) },
			"status":    func(u models.User) string { return string(u.Status) },
		},
	}
}

// List returns accounts matching the filter plus pagination metadata.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrSourceUnavailable.Code, appErrors.ErrSourceUnavailable.Status, "failed to list users")
	}
	spec := FilterSpec{Search: filter.Search, Fields: []string{"full_name", "email"}, Equals: map[string]string{}}
	if filter.Role != nil {
		spec.Equals["role"] = string(*filter.Role)
	}
	if filter.Status != nil {
		spec.Equals["status"] = string(*filter.Status)
	}
	matched := ApplyFilter(users, spec, userFieldIndex())

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	paged, total := Paginate(matched, page, size)
	return paged, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get loads one account.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// Create provisions an account with a bcrypt password hash.
func (s *UserService) Create(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}
	if existing, err := s.repo.FindByEmail(ctx, req.Email); err != nil && err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate email")
	} else if existing != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already used")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	user := &models.User{
		Email:        req.Email,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		Role:         req.Role,
		Status:       models.UserActive,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}
	return user, nil
}

// Update modifies account identity fields.
func (s *UserService) Update(ctx context.Context, id string, req UpdateUserRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	user.Email = req.Email
	user.FullName = req.FullName
	user.Role = req.Role
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user")
	}
	return user, nil
}

// ProtectRule excludes the acting administrator and other admin accounts from
// bulk transitions. Pass it as the eligibility rule for account batches.
func (s *UserService) ProtectRule(ctx context.Context, actingUserID string) EligibilityRule {
	return func(ref EntityRef) string {
		if ref.ID == actingUserID {
			return "cannot modify your own account"
		}
		user, err := s.repo.FindByID(ctx, ref.ID)
		if err != nil {
			return ""
		}
		if user.Role == models.RoleAdmin {
			return "admin accounts are protected"
		}
		return ""
	}
}

// UserMutator adapts the account store to bulk state transitions.
type UserMutator struct {
	repo userRepository
}

// NewUserMutator wraps the repository for bulk coordination.
func NewUserMutator(repo userRepository) *UserMutator {
	return &UserMutator{repo: repo}
}

// Resolve returns refs for the known ids; unknown ids are omitted so the
// per-item mutation reports them.
func (m *UserMutator) Resolve(ctx context.Context, ids []string) ([]EntityRef, error) {
	refs := make([]EntityRef, 0, len(ids))
	for _, id := range ids {
		user, err := m.repo.FindByID(ctx, id)
		if err != nil {
			if err == sql.ErrNoRows {
				continue
			}
			return nil, err
		}
		refs = append(refs, EntityRef{ID: user.ID, Name: user.FullName})
	}
	return refs, nil
}

// Apply performs one state transition for one account.
func (m *UserMutator) Apply(ctx context.Context, id string, action models.BulkAction) error {
	user, err := m.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("user %s not found", id)
		}
		return err
	}
	target, err := statusForAction(action)
	if err != nil {
		return err
	}
	if user.Status == target {
		return fmt.Errorf("user %s already %s", id, target)
	}
	return m.repo.UpdateStatus(ctx, id, target)
}

func statusForAction(action models.BulkAction) (models.UserStatus, error) {
	switch action {
	case models.BulkActivate, models.BulkRestore, models.BulkUnarchive:
		return models.UserActive, nil
	case models.BulkDeactivate, models.BulkArchive:
		return models.UserInactive, nil
	case models.BulkDelete:
		return models.UserDeleted, nil
	}
	return "", fmt.Errorf("unsupported action %s for users", action)
}
