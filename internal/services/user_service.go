package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/markdave123-py/readaloud/internal/core"
	"github.com/markdave123-py/readaloud/internal/models"
)

type UserService struct {
	db core.DbClient
}

func NewUserService(db core.DbClient) *UserService {
	return &UserService{db: db}
}

// Register creates a user with a bcrypt password hash.
func (s *UserService) Register(ctx context.Context, email, password, firstName string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, core.ValidationError("a valid email is required", nil)
	}
	if len(password) < 6 {
		return nil, core.ValidationError("password must be at least 6 characters", nil)
	}

	existing, err := s.db.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, core.IOError("failed to look up user", err)
	}
	if existing != nil {
		return nil, core.ConflictError("user already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	u := &models.User{
		ID:           uuid.NewString(),
		FirstName:    strings.TrimSpace(firstName),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.db.CreateUser(ctx, u); err != nil {
		return nil, core.IOError("failed to create user", err)
	}
	return u, nil
}

// Authenticate checks credentials. Unknown users and bad passwords look the
// same to the caller.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	u, err := s.db.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, core.IOError("failed to look up user", err)
	}
	if u == nil || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, core.UnauthorizedError("invalid credentials")
	}
	return u, nil
}
