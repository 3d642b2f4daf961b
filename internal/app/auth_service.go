package app

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"career-counselor/internal/model"
	"career-counselor/internal/pkg/jwtutil"
	"career-counselor/internal/repository"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrEmailExists  = errors.New("email already exists")
	ErrUserNotFound = errors.New("user not found")
)

const maxNameRunes = 128

type AuthService struct {
	userRepo      *repository.UserRepository
	jwtSecret     string
	jwtExpiration time.Duration
	now           func() time.Time
}

type IdentityInput struct {
	Email string
	Name  string
	Image *string
}

type UpdateProfileInput struct {
	UserID uint
	Name   *string
	Image  *string
}

type AuthResult struct {
	Token string
	User  *model.User
}

func NewAuthService(userRepo *repository.UserRepository, jwtSecret string, jwtExpiration time.Duration) *AuthService {
	return &AuthService{
		userRepo:      userRepo,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
		now:           time.Now,
	}
}

// CreateUser inserts a new user and fails with ErrEmailExists when the email
// is already registered.
func (s *AuthService) CreateUser(ctx context.Context, input IdentityInput) (*model.User, error) {
	user, err := normalizeIdentity(input)
	if err != nil {
		return nil, err
	}

	existing, err := s.userRepo.GetByEmail(ctx, user.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailExists
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrEmailExists
		}
		return nil, err
	}
	return user, nil
}

// EnsureUser returns the user registered under the email, creating it on
// first sight. Profile fields of an existing user are left alone.
func (s *AuthService) EnsureUser(ctx context.Context, input IdentityInput) (*model.User, error) {
	user, err := s.CreateUser(ctx, input)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrEmailExists) {
		return nil, err
	}

	existing, err := s.userRepo.GetByEmail(ctx, normalizeEmail(input.Email))
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrUserNotFound
	}
	return existing, nil
}

// Exchange turns an identity asserted by the trusted identity provider into
// a bearer token for the API.
func (s *AuthService) Exchange(ctx context.Context, input IdentityInput) (*AuthResult, error) {
	user, err := s.EnsureUser(ctx, input)
	if err != nil {
		return nil, err
	}

	token, err := jwtutil.GenerateToken(s.jwtSecret, s.jwtExpiration, user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}

func (s *AuthService) GetUserByID(ctx context.Context, id uint) (*model.User, error) {
	if id == 0 {
		return nil, ErrInvalidInput
	}
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// UpdateProfile changes name and/or image. A nil field is kept, an empty
// image clears it.
func (s *AuthService) UpdateProfile(ctx context.Context, input UpdateProfileInput) (*model.User, error) {
	user, err := s.GetUserByID(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	name := user.Name
	if input.Name != nil {
		name = strings.TrimSpace(*input.Name)
		if name == "" || len([]rune(name)) > maxNameRunes {
			return nil, ErrInvalidInput
		}
	}

	image := user.Image
	if input.Image != nil {
		image = normalizeImage(input.Image)
	}

	updated, err := s.userRepo.UpdateProfile(ctx, user.ID, name, image, s.now())
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrUserNotFound
	}
	return updated, nil
}

func (s *AuthService) DeleteUser(ctx context.Context, id uint) error {
	if id == 0 {
		return ErrInvalidInput
	}
	deleted, err := s.userRepo.DeleteCascade(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrUserNotFound
	}
	return nil
}

func normalizeIdentity(input IdentityInput) (*model.User, error) {
	email := normalizeEmail(input.Email)
	if email == "" || len(email) > 128 {
		return nil, ErrInvalidInput
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return nil, fmt.Errorf("%w: malformed email", ErrInvalidInput)
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = email[:strings.Index(email, "@")]
	}
	if len([]rune(name)) > maxNameRunes {
		return nil, ErrInvalidInput
	}

	return &model.User{
		Email: email,
		Name:  name,
		Image: normalizeImage(input.Image),
	}, nil
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

func normalizeImage(image *string) *string {
	if image == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*image)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
