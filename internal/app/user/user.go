/*
Package user is the hall's credential store. It registers accounts, verifies passwords and
looks users up by id, and serves as the identity provider for the chat.
*/
package user

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"hallchat/internal/app/db"
	dbc "hallchat/internal/app/db/sqlc"
	"hallchat/internal/app/identity"
	"hallchat/internal/pkg/logx"
)

var (
	// ErrInvalidCredentials is returned by Verify for an unknown user or a wrong password.
	ErrInvalidCredentials = errors.New("user: invalid credentials")

	// ErrDuplicateUsername is returned by Register when the username is taken.
	ErrDuplicateUsername = errors.New("user: username already exists")

	// ErrInvalidUsername is returned by Register for usernames outside usernamePattern.
	ErrInvalidUsername = errors.New("user: invalid username")

	// ErrInvalidPassword is returned by Register for passwords of the wrong length.
	ErrInvalidPassword = errors.New("user: invalid password")
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_]{4,20}$`)

const (
	minPasswordRunes = 6
	maxPasswordRunes = 50
)

// Queries is the subset of the generated queries the service needs.
type Queries interface {
	CreateUser(ctx context.Context, arg dbc.CreateUserParams) (dbc.User, error)
	GetUserByUsername(ctx context.Context, username string) (dbc.User, error)
	GetUserByID(ctx context.Context, id pgtype.UUID) (dbc.User, error)
	UpdateLastLogin(ctx context.Context, id pgtype.UUID) error
}

// User is the public view of an account.
type User struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	CreatedAt   time.Time  `json:"createdAt"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
}

// Service implements identity.Provider on PostgreSQL with bcrypt password hashes.
type Service struct {
	q      Queries
	cost   int
	logger zerolog.Logger
}

var _ identity.Provider = (*Service)(nil)

// NewService returns a Service over q.
func NewService(q Queries) *Service {
	return &Service{
		q:      q,
		cost:   bcrypt.DefaultCost,
		logger: logx.Component("UserService"),
	}
}

// Register creates an account and returns its identity.
func (s *Service) Register(ctx context.Context, username, password string) (identity.Identity, error) {
	if !usernamePattern.MatchString(username) {
		return identity.Identity{}, ErrInvalidUsername
	}
	if n := utf8.RuneCountInString(password); n < minPasswordRunes || n > maxPasswordRunes {
		return identity.Identity{}, ErrInvalidPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return identity.Identity{}, fmt.Errorf("hash password: %w", err)
	}

	row, err := s.q.CreateUser(ctx, dbc.CreateUserParams{
		Username:     username,
		PasswordHash: string(hash),
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			s.logger.Warn().Str("username", username).Msg("Registration conflict: username already exists")
			return identity.Identity{}, ErrDuplicateUsername
		}
		return identity.Identity{}, fmt.Errorf("create user: %w", err)
	}

	s.touch(ctx, row.ID)
	return toIdentity(row), nil
}

// Verify checks username and password. Unknown users and wrong passwords are
// indistinguishable to the caller.
func (s *Service) Verify(ctx context.Context, username, password string) (identity.Identity, error) {
	row, err := s.q.GetUserByUsername(ctx, username)
	if err != nil {
		if db.IsNotFound(err) {
			return identity.Identity{}, ErrInvalidCredentials
		}
		return identity.Identity{}, fmt.Errorf("get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(row.PasswordHash), []byte(password)); err != nil {
		s.logger.Info().Str("username", username).Msg("Login: password mismatch")
		return identity.Identity{}, ErrInvalidCredentials
	}

	s.touch(ctx, row.ID)
	return toIdentity(row), nil
}

// Lookup returns the identity of the user with the given id.
func (s *Service) Lookup(ctx context.Context, id string) (identity.Identity, error) {
	row, err := s.get(ctx, id)
	if err != nil {
		return identity.Identity{}, err
	}
	return toIdentity(row), nil
}

// Profile returns the public view of the user with the given id.
func (s *Service) Profile(ctx context.Context, id string) (User, error) {
	row, err := s.get(ctx, id)
	if err != nil {
		return User{}, err
	}

	u := User{
		ID:        row.ID.String(),
		Username:  row.Username,
		CreatedAt: row.CreatedAt.Time,
	}
	if row.LastLoginAt.Valid {
		last := row.LastLoginAt.Time
		u.LastLoginAt = &last
	}
	return u, nil
}

func (s *Service) get(ctx context.Context, id string) (dbc.User, error) {
	var userUUID pgtype.UUID
	if err := userUUID.Scan(id); err != nil {
		return dbc.User{}, identity.ErrNotFound
	}

	row, err := s.q.GetUserByID(ctx, userUUID)
	if err != nil {
		if db.IsNotFound(err) {
			return dbc.User{}, identity.ErrNotFound
		}
		return dbc.User{}, fmt.Errorf("get user by id: %w", err)
	}
	return row, nil
}

// touch records a successful sign-in. Failures are logged only.
func (s *Service) touch(ctx context.Context, id pgtype.UUID) {
	if err := s.q.UpdateLastLogin(ctx, id); err != nil {
		s.logger.Error().Err(err).Str("user_id", id.String()).Msg("Failed to update last_login_at")
	}
}

func toIdentity(row dbc.User) identity.Identity {
	return identity.Registered(row.ID.String(), row.Username)
}
