package auth

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/campuslf/lostfound/internal/apperr"
	"github.com/campuslf/lostfound/internal/model"
	"github.com/campuslf/lostfound/internal/store"
)

// ErrInvalidCredentials is returned by Login for an unknown user or a wrong
// password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrInvalidToken is returned by Authenticate for tokens that are malformed,
// expired, revoked or belong to a removed user.
var ErrInvalidToken = errors.New("invalid token")

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,150}$`)

// Service handles registration, login and token checks.
type Service struct {
	db     *sql.DB
	secret string
}

// NewService creates an auth service signing tokens with secret.
func NewService(db *sql.DB, secret string) *Service {
	return &Service{db: db, secret: secret}
}

// RegisterInput is a new account request.
type RegisterInput struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password"`
}

// Register creates an account with role user.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)

	if !usernamePattern.MatchString(in.Username) {
		return nil, apperr.Validation("username must be 3-150 letters, digits or _.-")
	}
	addr, err := mail.ParseAddress(in.Email)
	if err != nil || addr.Address != in.Email {
		return nil, apperr.Validation("a valid email address is required")
	}
	if err := model.ValidatePassword(in.Password); err != nil {
		return nil, apperr.Validation("%v", err)
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Wrap(err, "hashing password")
	}

	u, err := store.CreateUser(ctx, s.db, &model.User{
		Username:     in.Username,
		Email:        in.Email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: hash,
		Role:         model.RoleUser,
	})
	if store.IsUniqueViolation(err) {
		return nil, apperr.Validation("username %q is taken", in.Username)
	}
	if err != nil {
		return nil, apperr.Wrap(err, "creating user")
	}

	slog.Info("user registered", "user", u.Username)
	return u, nil
}

// Login checks credentials and returns a signed token.
func (s *Service) Login(ctx context.Context, username, password string) (string, *model.User, error) {
	u, err := store.GetUserByUsername(ctx, s.db, username)
	if err != nil {
		return "", nil, apperr.Wrap(err, "loading user")
	}
	if u == nil || !CheckPassword(u.PasswordHash, password) {
		slog.Warn("login failed", "username", username)
		return "", nil, ErrInvalidCredentials
	}

	token, err := GenerateToken(s.secret, u.ID, u.Username, u.Role)
	if err != nil {
		return "", nil, apperr.Wrap(err, "issuing token")
	}

	slog.Info("user logged in", "user", u.Username, "role", u.Role)
	return token, u, nil
}

// Authenticate validates a bearer token. The role in the returned claims is
// refreshed from the database so role changes apply immediately.
func (s *Service) Authenticate(ctx context.Context, tokenStr string) (*Claims, error) {
	claims, err := ValidateToken(s.secret, tokenStr)
	if err != nil {
		return nil, ErrInvalidToken
	}

	revoked, err := store.IsTokenRevoked(ctx, s.db, claims.ID)
	if err != nil {
		return nil, apperr.Wrap(err, "checking token")
	}
	if revoked {
		return nil, ErrInvalidToken
	}

	u, err := store.GetUser(ctx, s.db, claims.UserID)
	if err != nil {
		return nil, apperr.Wrap(err, "loading user")
	}
	if u == nil || u.DeletedAt != nil {
		return nil, ErrInvalidToken
	}
	claims.Role = u.Role
	return claims, nil
}

// Logout revokes the token behind claims until it would have expired.
func (s *Service) Logout(ctx context.Context, claims *Claims) error {
	expires := time.Now().Add(TokenExpiry)
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}
	if err := store.RevokeToken(ctx, s.db, claims.ID, expires); err != nil {
		return apperr.Wrap(err, "revoking token")
	}
	slog.Info("user logged out", "user", claims.Username)
	return nil
}

// ProvisionAdmin makes sure an admin account named username exists. A new
// account gets a generated password, which is returned; an existing account is
// promoted to admin and its password is left alone.
func (s *Service) ProvisionAdmin(ctx context.Context, username string) (password string, created bool, err error) {
	if !usernamePattern.MatchString(username) {
		return "", false, apperr.Validation("invalid username %q", username)
	}

	err = store.WithTx(ctx, s.db, func(ctx context.Context, tx store.DBTX) error {
		u, err := store.GetUserByUsername(ctx, tx, username)
		if err != nil {
			return apperr.Wrap(err, "loading user")
		}
		if u != nil {
			if u.Role != model.RoleAdmin {
				if err := store.UpdateUserRole(ctx, tx, u.ID, model.RoleAdmin); err != nil {
					return apperr.Wrap(err, "promoting user")
				}
			}
			return nil
		}

		password, err = GeneratePassword(16)
		if err != nil {
			return apperr.Wrap(err, "generating password")
		}
		hash, err := HashPassword(password)
		if err != nil {
			return apperr.Wrap(err, "hashing password")
		}
		if _, err := store.CreateUser(ctx, tx, &model.User{
			Username:     username,
			PasswordHash: hash,
			Role:         model.RoleAdmin,
		}); err != nil {
			return apperr.Wrap(err, "creating admin")
		}
		created = true
		return nil
	})
	if err != nil {
		return "", false, err
	}
	return password, created, nil
}
