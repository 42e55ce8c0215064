package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yukikurage/task-tracker-api/internal/models"
	"github.com/yukikurage/task-tracker-api/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserAlreadyExists     = errors.New("user with this email or username already exists")
	ErrUsernameTaken         = errors.New("username already exists")
	ErrEmailTaken            = errors.New("email already exists")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrAccountDeactivated    = errors.New("account is deactivated")
	ErrUserNotFound          = errors.New("user not found")
	ErrWrongPassword         = errors.New("current password is incorrect")
	ErrMissingCredentials    = errors.New("login identifier and password are required")
	ErrUsernameRequired      = errors.New("username is required")
	ErrEmailRequired         = errors.New("email is required")
	ErrInvalidUsernameLength = errors.New("username must be between 3 and 30 characters")
	ErrInvalidUsernameChars  = errors.New("username can only contain letters, numbers, and underscores")
	ErrInvalidEmail          = errors.New("please enter a valid email address")
	ErrNameTooLong           = errors.New("name cannot exceed 50 characters")
	ErrPasswordTooShort      = errors.New("password must be at least 8 characters long")
	ErrPasswordTooWeak       = errors.New("password must contain at least 1 uppercase letter, 1 lowercase letter, 1 number, and 1 special symbol")
	ErrPasswordTooLong       = errors.New("password cannot exceed 72 bytes")
	ErrFailedToHashPassword  = errors.New("failed to hash password")
)

// AuthService handles authentication related business logic.
type AuthService struct {
	userRepo   repository.UserRepository
	bcryptCost int
	now        func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repository.UserRepository, bcryptCost int) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		bcryptCost: bcryptCost,
		now:        time.Now,
	}
}

// RegisterInput represents the required information to create a new user.
type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Register validates the input, checks uniqueness and stores a new user.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	username := strings.TrimSpace(input.Username)
	email := normalizeEmail(input.Email)
	firstName := strings.TrimSpace(input.FirstName)
	lastName := strings.TrimSpace(input.LastName)

	if username == "" {
		return nil, ErrUsernameRequired
	}
	if email == "" {
		return nil, ErrEmailRequired
	}
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, err
	}
	if err := validateName(firstName); err != nil {
		return nil, err
	}
	if err := validateName(lastName); err != nil {
		return nil, err
	}

	if taken, err := s.identityTaken(ctx, username, email, ""); err != nil {
		return nil, err
	} else if taken != nil {
		return nil, ErrUserAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
	if err != nil {
		return nil, ErrFailedToHashPassword
	}

	now := s.now()
	user := &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    firstName,
		LastName:     lastName,
		Role:         models.RoleUser,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Authenticate resolves login as an email or a username, checks the password
// and records the login time.
func (s *AuthService) Authenticate(ctx context.Context, login, password string) (*models.User, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	var (
		user *models.User
		err  error
	)
	if looksLikeEmail(login) {
		user, err = s.userRepo.FindByEmail(ctx, normalizeEmail(login))
	} else {
		user, err = s.userRepo.FindByUsername(ctx, login)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountDeactivated
	}

	now := s.now()
	user.LastLogin = &now
	user.UpdatedAt = now
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to record login: %w", err)
	}

	return user, nil
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// UpdateProfileInput holds the fields present in a profile edit; nil means unchanged.
type UpdateProfileInput struct {
	FirstName *string
	LastName  *string
	Email     *string
	Username  *string
}

// UpdateProfile applies a partial profile edit. Uniqueness is checked against
// every user except the one being edited.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*models.User, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.FirstName != nil {
		firstName := strings.TrimSpace(*input.FirstName)
		if err := validateName(firstName); err != nil {
			return nil, err
		}
		user.FirstName = firstName
	}
	if input.LastName != nil {
		lastName := strings.TrimSpace(*input.LastName)
		if err := validateName(lastName); err != nil {
			return nil, err
		}
		user.LastName = lastName
	}
	if input.Username != nil {
		username := strings.TrimSpace(*input.Username)
		if err := validateUsername(username); err != nil {
			return nil, err
		}
		if username != user.Username {
			existing, err := s.identityTaken(ctx, username, "", user.ID)
			if err != nil {
				return nil, err
			}
			if existing != nil {
				return nil, ErrUsernameTaken
			}
		}
		user.Username = username
	}
	if input.Email != nil {
		email := normalizeEmail(*input.Email)
		if err := validateEmail(email); err != nil {
			return nil, err
		}
		if email != user.Email {
			existing, err := s.identityTaken(ctx, "", email, user.ID)
			if err != nil {
				return nil, err
			}
			if existing != nil {
				return nil, ErrEmailTaken
			}
		}
		user.Email = email
	}

	user.UpdatedAt = s.now()
	if err := s.userRepo.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return user, nil
}

// ChangePassword replaces the password hash after verifying the current password.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return ErrWrongPassword
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return ErrFailedToHashPassword
	}

	user.PasswordHash = string(hash)
	user.UpdatedAt = s.now()
	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to change password: %w", err)
	}
	return nil
}

// Deactivate marks the account inactive; the record is kept.
func (s *AuthService) Deactivate(ctx context.Context, userID string) error {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	user.IsActive = false
	user.UpdatedAt = s.now()
	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to deactivate user: %w", err)
	}
	return nil
}

// ListActive returns active users for assignment pickers.
func (s *AuthService) ListActive(ctx context.Context) ([]models.User, error) {
	users, err := s.userRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// identityTaken returns another user holding username or email, ignoring excludeID.
// Empty arguments are not checked.
func (s *AuthService) identityTaken(ctx context.Context, username, email, excludeID string) (*models.User, error) {
	lookups := []struct {
		value string
		find  func(context.Context, string) (*models.User, error)
	}{
		{username, s.userRepo.FindByUsername},
		{email, s.userRepo.FindByEmail},
	}

	for _, l := range lookups {
		if l.value == "" {
			continue
		}
		existing, err := l.find(ctx, l.value)
		if err == nil && existing.ID != excludeID {
			return existing, nil
		}
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("failed to check existing users: %w", err)
		}
	}
	return nil, nil
}
