package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/clipstream/backend/internal/models"
)

var (
	// ErrInvalidCredentials indicates the password check failed for an
	// existing account.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// CredentialStore is the slice of user persistence the session manager needs.
type CredentialStore interface {
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByHandleOrEmail(ctx context.Context, identifier string) (models.User, error)
	SetRefreshToken(ctx context.Context, id string, token *string) error
	RotateRefreshToken(ctx context.Context, id, current, next string) error
}

// Manager drives the session lifecycle: login, logout, and refresh-token
// rotation. Exactly one refresh token is valid per user at a time; it is
// persisted on the user record and compared byte-for-byte on refresh.
type Manager struct {
	users  CredentialStore
	signer *TokenSigner
	hasher PasswordHasher
}

// NewManager constructs a session manager.
func NewManager(users CredentialStore, signer *TokenSigner, hasher PasswordHasher) *Manager {
	if users == nil || signer == nil || hasher == nil {
		panic("auth: manager dependencies must not be nil")
	}
	return &Manager{users: users, signer: signer, hasher: hasher}
}

// Login authenticates by handle or email. The store's not-found error passes
// through untouched so the caller can distinguish an unknown account (404)
// from a bad password (401).
func (m *Manager) Login(ctx context.Context, identifier, password string) (models.User, models.SessionTokens, error) {
	user, err := m.users.FindByHandleOrEmail(ctx, identifier)
	if err != nil {
		return models.User{}, models.SessionTokens{}, err
	}

	if !m.hasher.Verify(password, user.PasswordHash) {
		return models.User{}, models.SessionTokens{}, ErrInvalidCredentials
	}

	tokens, err := m.issue(ctx, user)
	if err != nil {
		return models.User{}, models.SessionTokens{}, err
	}

	return user.Public(), tokens, nil
}

// Logout clears the persisted refresh token. The field is unset rather than
// emptied so absence stays distinguishable from an empty string.
func (m *Manager) Logout(ctx context.Context, userID string) error {
	if err := m.users.SetRefreshToken(ctx, userID, nil); err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	return nil
}

// Refresh exchanges a valid refresh token for a fresh pair, rotating the
// persisted token. Any failure along the chain means the caller is not
// holding the current token, so everything maps to ErrInvalidToken except
// expiry.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error) {
	userID, err := m.signer.VerifyRefresh(refreshToken)
	if err != nil {
		return models.SessionTokens{}, err
	}

	user, err := m.users.FindByID(ctx, userID)
	if err != nil {
		return models.SessionTokens{}, ErrInvalidToken
	}

	// A token that verifies but no longer matches the stored value has been
	// superseded or revoked; treat it as reuse.
	if user.RefreshToken == nil ||
		subtle.ConstantTimeCompare([]byte(*user.RefreshToken), []byte(refreshToken)) != 1 {
		return models.SessionTokens{}, ErrInvalidToken
	}

	accessToken, accessExpires, err := m.signer.SignAccess(user)
	if err != nil {
		return models.SessionTokens{}, fmt.Errorf("sign access token: %w", err)
	}

	nextRefresh, refreshExpires, err := m.signer.SignRefresh(user.ID)
	if err != nil {
		return models.SessionTokens{}, fmt.Errorf("sign refresh token: %w", err)
	}

	// Compare-and-swap: if a concurrent refresh rotated first, this write
	// affects zero rows and the caller's token is already stale.
	if err := m.users.RotateRefreshToken(ctx, user.ID, refreshToken, nextRefresh); err != nil {
		return models.SessionTokens{}, ErrInvalidToken
	}

	return models.SessionTokens{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExpires,
		RefreshToken:     nextRefresh,
		RefreshExpiresAt: refreshExpires,
	}, nil
}

func (m *Manager) issue(ctx context.Context, user models.User) (models.SessionTokens, error) {
	accessToken, accessExpires, err := m.signer.SignAccess(user)
	if err != nil {
		return models.SessionTokens{}, fmt.Errorf("sign access token: %w", err)
	}

	refreshToken, refreshExpires, err := m.signer.SignRefresh(user.ID)
	if err != nil {
		return models.SessionTokens{}, fmt.Errorf("sign refresh token: %w", err)
	}

	if err := m.users.SetRefreshToken(ctx, user.ID, &refreshToken); err != nil {
		return models.SessionTokens{}, fmt.Errorf("persist refresh token: %w", err)
	}

	return models.SessionTokens{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExpires,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshExpires,
	}, nil
}
