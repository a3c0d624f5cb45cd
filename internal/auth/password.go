// Package auth hashes and verifies user passwords and authenticates logins.
package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"orgledger/internal/core"
)

// Cost is the bcrypt work factor used for new hashes.
const Cost = 10

var ErrEmptyPassword = errors.New("password is required")

func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), Cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// UserStore looks users up by email.
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (core.User, error)
}

// Authenticator verifies login credentials.
type Authenticator struct {
	users UserStore
}

func NewAuthenticator(users UserStore) *Authenticator {
	return &Authenticator{users: users}
}

// Login returns the user when the password matches. Unknown emails and
// wrong passwords both yield core.ErrInvalidCredentials.
func (a *Authenticator) Login(ctx context.Context, email, password string) (core.User, error) {
	u, err := a.users.GetUserByEmail(ctx, email)
	if errors.Is(err, core.ErrNotFound) {
		return core.User{}, core.ErrInvalidCredentials
	}
	if err != nil {
		return core.User{}, err
	}
	if !CheckPassword(u.PasswordHash, password) {
		return core.User{}, core.ErrInvalidCredentials
	}
	u.PasswordHash = ""
	return u, nil
}
