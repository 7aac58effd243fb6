package services

import (
	"context"
	"errors"

	"receipts-api/internal/models"
)

// AccessGate resolves bearer tokens to the identity or account they belong to.
type AccessGate struct {
	auth  *AuthService
	users *UserService
}

func NewAccessGate(auth *AuthService, users *UserService) *AccessGate {
	return &AccessGate{auth: auth, users: users}
}

func (g *AccessGate) ResolveIdentity(token string) (int, error) {
	claims, err := g.auth.ValidateToken(token)
	if err != nil {
		return 0, ErrUnauthorized
	}
	return claims.UserID()
}

// ResolveAccount also loads the account, rejecting tokens that outlived it.
func (g *AccessGate) ResolveAccount(ctx context.Context, token string) (*models.User, error) {
	userID, err := g.ResolveIdentity(token)
	if err != nil {
		return nil, err
	}

	user, err := g.users.GetUserByID(ctx, userID)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}
