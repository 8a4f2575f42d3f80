package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/teqwa/teqwa-core/internal/auth"
	"github.com/teqwa/teqwa-core/internal/config"
	"github.com/teqwa/teqwa-core/internal/domain"
	"github.com/teqwa/teqwa-core/internal/persistence"
	"github.com/teqwa/teqwa-core/internal/repository"
	apperrors "github.com/teqwa/teqwa-core/pkg/util/errorutil"
)

// AuthService coordinates registration, login and staff onboarding.
type AuthService struct {
	users      repository.UserRepository
	staff      repository.StaffRepository
	transactor persistence.Transactor
	tokenMgr   *auth.TokenManager
	bcryptCost int
	logger     *zap.Logger
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	StaffRepo  repository.StaffRepository
	Transactor persistence.Transactor
	Logger     *zap.Logger
}

// RegisterInput describes a new member account.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// StaffProfileInput attaches a staff profile to an existing user.
type StaffProfileInput struct {
	UserID string
	Role   domain.StaffRole
	Phone  string
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	svc := &AuthService{
		users:      deps.UserRepo,
		staff:      deps.StaffRepo,
		transactor: deps.Transactor,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		bcryptCost: cfg.BcryptCost,
		logger:     deps.Logger,
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	return svc
}

// RegisterUser creates a member account and returns a token for it.
func (s *AuthService) RegisterUser(ctx context.Context, input RegisterInput) (*domain.User, string, time.Time, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, "", time.Time{}, apperrors.NewConflict("email already registered", map[string]any{"email": email})
	} else if !repository.IsNotFound(err) {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Email:        email,
		PasswordHash: hash,
		Role:         domain.UserRoleMember,
		Active:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}

	token, exp, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}
	return user, token, exp, nil
}

// Login authenticates a user by email and password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, time.Time, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrInvalidPassword) {
			s.logger.Error("stored password hash unusable", zap.String("user_id", user.ID), zap.Error(err))
		}
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	if !user.Active {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("account disabled")
	}
	token, exp, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}
	return user, token, exp, nil
}

// EnsureAdmin creates the bootstrap admin account, or promotes an existing
// account with that email. It is a no-op when email or password is empty.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil
	}

	existing, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.IsAdmin() {
			return nil
		}
		if err := s.users.UpdateRole(ctx, existing.ID, domain.UserRoleAdmin); err != nil {
			return err
		}
		s.logger.Info("promoted bootstrap admin", zap.String("user_id", existing.ID))
		return nil
	case !repository.IsNotFound(err):
		return err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return err
	}
	admin := &domain.User{
		FirstName:    "Admin",
		Email:        email,
		PasswordHash: hash,
		Role:         domain.UserRoleAdmin,
		Active:       true,
	}
	if err := s.users.Create(ctx, admin); err != nil {
		return err
	}
	s.logger.Info("created bootstrap admin", zap.String("user_id", admin.ID))
	return nil
}

// CreateStaffProfile attaches a staff profile to a user and gives the
// account the staff role. Admins keep their role. Admin only.
func (s *AuthService) CreateStaffProfile(ctx context.Context, actor *auth.Principal, input StaffProfileInput) (*domain.StaffMember, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("only admins can add staff members")
	}

	user, err := s.users.GetByID(ctx, input.UserID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.NewValidationError("invalid request",
				map[string]any{"fields": map[string]any{"user_id": "user not found"}})
		}
		return nil, apperrors.MapError(err)
	}
	if _, err := s.staff.GetByUserID(ctx, user.ID); err == nil {
		return nil, apperrors.NewConflict("user already has a staff profile", map[string]any{"user_id": user.ID})
	} else if !repository.IsNotFound(err) {
		return nil, apperrors.MapError(err)
	}

	member := &domain.StaffMember{
		UserID: user.ID,
		Name:   user.FullName(),
		Email:  user.Email,
		Role:   input.Role,
		Phone:  strings.TrimSpace(input.Phone),
		Active: true,
	}
	create := func(ctx context.Context) error {
		if err := s.staff.Create(ctx, member); err != nil {
			return err
		}
		if user.IsAdmin() {
			return nil
		}
		return s.users.UpdateRole(ctx, user.ID, domain.UserRoleStaff)
	}
	if s.transactor != nil {
		err = s.transactor.WithinTx(ctx, create)
	} else {
		err = create(ctx)
	}
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.logger.Info("staff profile created",
		zap.String("staff_id", member.ID),
		zap.String("user_id", user.ID),
		zap.String("role", string(member.Role)))
	return member, nil
}

// ListStaff returns staff profiles. Admin only.
func (s *AuthService) ListStaff(ctx context.Context, actor *auth.Principal, filter repository.StaffFilter) ([]domain.StaffMember, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("only admins can list staff members")
	}
	members, err := s.staff.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if members == nil {
		members = []domain.StaffMember{}
	}
	return members, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
