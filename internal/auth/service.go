package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/hugh/mevamscale/internal/apperr"
	"github.com/hugh/mevamscale/internal/database/models"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound       = apperr.New(apperr.NotFound, "user not found")
	ErrUserExists         = apperr.New(apperr.Conflict, "user already exists")
	ErrInvalidCredentials = apperr.New(apperr.InvalidCredential, "invalid credentials")
)

// Principal is an authenticated caller: identity plus global role.
type Principal struct {
	UserID uuid.UUID         `json:"id"`
	Role   models.GlobalRole `json:"permissao"`
}

func (p Principal) IsAdmin() bool {
	return p.Role == models.GlobalRoleAdmin
}

type Service struct {
	db  *gorm.DB
	jwt *JWTService
}

func NewService(db *gorm.DB, jwt *JWTService) *Service {
	return &Service{db: db, jwt: jwt}
}

type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Role     models.GlobalRole // Optional: defaults to volunteer
}

type LoginInput struct {
	Email    string
	Password string
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (s *Service) Register(ctx context.Context, input RegisterInput) (*AuthResponse, error) {
	email := normalizeEmail(input.Email)
	name := strings.TrimSpace(input.Name)
	if email == "" || name == "" || input.Password == "" {
		return nil, apperr.New(apperr.Validation, "name, email and password are required")
	}

	role := input.Role
	if role == "" {
		role = models.GlobalRoleVolunteer
	}
	if !role.Valid() {
		return nil, apperr.Newf(apperr.Validation, "unknown role %q", role)
	}

	// Check if user exists
	var existing models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil, ErrUserExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.FromDB(err, nil)
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, apperr.Wrap(apperr.New(apperr.Validation, "password cannot be hashed"), err)
	}

	user := models.User{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Role:         role,
	}

	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		// Lost a race with a concurrent registration for the same email
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUserExists
		}
		return nil, apperr.FromDB(err, nil)
	}

	token, err := s.jwt.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{
		Token: token,
		User:  &user,
	}, nil
}

// Authenticate verifies a password. Unknown emails yield ErrUserNotFound and
// wrong passwords ErrInvalidCredentials; callers facing the network should
// not reveal which one happened.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Principal, error) {
	user, err := s.authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return &Principal{UserID: user.ID, Role: user.Role}, nil
}

func (s *Service) Login(ctx context.Context, input LoginInput) (*AuthResponse, error) {
	user, err := s.authenticate(ctx, input.Email, input.Password)
	if err != nil {
		return nil, err
	}

	token, err := s.jwt.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{
		Token: token,
		User:  user,
	}, nil
}

func (s *Service) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).
		Where("email = ?", normalizeEmail(email)).
		First(&user).Error; err != nil {
		return nil, apperr.FromDB(err, ErrUserNotFound)
	}

	if !CheckPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

func (s *Service) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, apperr.FromDB(err, ErrUserNotFound)
	}
	return &user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
