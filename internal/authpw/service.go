// Package authpw verifies the configured admin credentials used by the login flow.
package authpw

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"markershare/internal/auth"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for every failed check so callers cannot
// tell a wrong username from a wrong password.
var ErrInvalidCredentials = errors.New("invalid username or password")

// Credentials holds the single admin account. Exactly one password source is
// consulted, in this order: SHA-256 hex hash, bcrypt hash, plaintext.
type Credentials struct {
	Username           string
	PasswordHashSHA256 string
	PasswordBcrypt     string
	Password           string
}

type Verifier struct {
	creds Credentials
}

func NewVerifier(creds Credentials) *Verifier {
	return &Verifier{creds: creds}
}

// Configured reports whether any admin login can succeed at all.
func (v *Verifier) Configured() bool {
	c := v.creds
	return c.Username != "" && (c.PasswordHashSHA256 != "" || c.PasswordBcrypt != "" || c.Password != "")
}

func (v *Verifier) Verify(username, password string) error {
	if v.creds.Username == "" || !equal(username, v.creds.Username) {
		return ErrInvalidCredentials
	}

	switch {
	case v.creds.PasswordHashSHA256 != "":
		expected := strings.ToLower(strings.TrimSpace(v.creds.PasswordHashSHA256))
		if !equal(auth.HashSHA256(password), expected) {
			return ErrInvalidCredentials
		}
	case v.creds.PasswordBcrypt != "":
		if err := bcrypt.CompareHashAndPassword([]byte(v.creds.PasswordBcrypt), []byte(password)); err != nil {
			return ErrInvalidCredentials
		}
	case v.creds.Password != "":
		if !equal(password, v.creds.Password) {
			return ErrInvalidCredentials
		}
	default:
		return ErrInvalidCredentials
	}
	return nil
}

// HashBcrypt returns a bcrypt hash suitable for ADMIN_PASSWORD_BCRYPT.
func HashBcrypt(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
