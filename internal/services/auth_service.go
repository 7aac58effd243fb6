package services

import (
	"errors"
	"strconv"
	"time"

	"receipts-api/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// bcrypt only reads the first 72 bytes of its input.
const maxPasswordBytes = 72

// AuthService hashes passwords and issues and validates access tokens.
type AuthService struct {
	secretKey []byte
	ttl       time.Duration
	cost      int
	now       func() time.Time
	logger    zerolog.Logger
}

type Claims struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	jwt.RegisteredClaims
}

// UserID returns the account id carried in the subject claim.
func (c *Claims) UserID() (int, error) {
	id, err := strconv.Atoi(c.Subject)
	if err != nil || id <= 0 {
		return 0, ErrUnauthorized
	}
	return id, nil
}

func NewAuthService(secretKey string, ttl time.Duration, cost int, logger zerolog.Logger) *AuthService {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &AuthService{
		secretKey: []byte(secretKey),
		ttl:       ttl,
		cost:      cost,
		now:       time.Now,
		logger:    logger,
	}
}

func (s *AuthService) HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword(passwordBytes(password), s.cost)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error hashing password")
		return "", err
	}
	return string(hashed), nil
}

func (s *AuthService) VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), passwordBytes(password)) == nil
}

func passwordBytes(password string) []byte {
	b := []byte(password)
	if len(b) > maxPasswordBytes {
		b = b[:maxPasswordBytes]
	}
	return b
}

// GenerateToken issues a token for user that expires after the configured TTL.
func (s *AuthService) GenerateToken(user *models.User) (string, error) {
	return s.GenerateTokenWithTTL(user, s.ttl)
}

func (s *AuthService) GenerateTokenWithTTL(user *models.User, ttl time.Duration) (string, error) {
	now := s.now().UTC()

	claims := &Claims{
		Username: user.Username,
		Name:     user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(user.ID),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secretKey)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error generating token")
		return "", err
	}

	return tokenString, nil
}

// ValidateToken checks the signature and expiry of tokenString. Any failure is
// reported as ErrUnauthorized.
func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	// expiry is checked below so that a token expiring exactly now is still accepted
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithoutClaimsValidation())
	if err != nil {
		s.logger.Debug().Err(err).Msg("Token rejected")
		return nil, ErrUnauthorized
	}

	if claims.Subject == "" || claims.ExpiresAt == nil {
		return nil, ErrUnauthorized
	}
	if claims.ExpiresAt.Time.Before(s.now().UTC()) {
		return nil, ErrUnauthorized
	}
	if _, err := claims.UserID(); err != nil {
		return nil, err
	}

	return claims, nil
}
