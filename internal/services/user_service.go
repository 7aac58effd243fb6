package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"receipts-api/internal/db"
	"receipts-api/internal/models"

	"github.com/rs/zerolog"
)

// UserService is the account registry.
type UserService struct {
	db     *db.Database
	auth   *AuthService
	logger zerolog.Logger
}

func NewUserService(database *db.Database, auth *AuthService, logger zerolog.Logger) *UserService {
	return &UserService{
		db:     database,
		auth:   auth,
		logger: logger,
	}
}

// Register creates an account. Username uniqueness is checked before the insert
// and enforced again by the unique index, so concurrent registrations of the same
// name both end in ErrUsernameAlreadyRegistered for the loser.
func (s *UserService) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	if err := ValidateRegistration(req); err != nil {
		return nil, err
	}

	var existingID int
	err := s.db.QueryRowContext(ctx, "SELECT id FROM users WHERE username = ?", req.Username).Scan(&existingID)
	if err == nil {
		return nil, ErrUsernameAlreadyRegistered
	} else if !errors.Is(err, sql.ErrNoRows) {
		s.logger.Error().Err(err).Msg("Error checking existing user")
		return nil, fmt.Errorf("database error: %w", err)
	}

	hashedPassword, err := s.auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var userID int64
	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			"INSERT INTO users (username, name, password_hash, created_at) VALUES (?, ?, ?, ?)",
			req.Username, req.Name, hashedPassword, time.Now().UTC().Truncate(time.Microsecond),
		)
		if err != nil {
			return err
		}
		userID, err = result.LastInsertId()
		return err
	})
	if db.IsUniqueViolation(err) {
		s.logger.Warn().Str("username", req.Username).Msg("Username taken by concurrent registration")
		return nil, ErrUsernameAlreadyRegistered
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("Error creating user")
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	user, err := s.GetUserByID(ctx, int(userID))
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int("user_id", user.ID).Str("username", user.Username).Msg("User registered successfully")
	return user, nil
}

// Authenticate returns the account matching the credential pair. Unknown
// usernames and wrong passwords both yield ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.GetUserByUsername(ctx, username)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !s.auth.VerifyPassword(password, user.PasswordHash) {
		s.logger.Warn().Str("username", username).Msg("Failed authentication attempt")
		return nil, ErrInvalidCredentials
	}

	s.logger.Info().Int("user_id", user.ID).Msg("User authenticated successfully")
	return user, nil
}

func (s *UserService) GetUserByID(ctx context.Context, userID int) (*models.User, error) {
	return s.getUser(ctx, "id = ?", userID)
}

func (s *UserService) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getUser(ctx, "username = ?", username)
}

func (s *UserService) getUser(ctx context.Context, where string, arg any) (*models.User, error) {
	var user models.User
	err := s.db.QueryRowContext(ctx,
		"SELECT id, username, name, password_hash, created_at FROM users WHERE "+where,
		arg,
	).Scan(&user.ID, &user.Username, &user.Name, &user.PasswordHash, &user.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("Error fetching user")
		return nil, fmt.Errorf("database error: %w", err)
	}

	user.CreatedAt = user.CreatedAt.UTC()
	return &user, nil
}
