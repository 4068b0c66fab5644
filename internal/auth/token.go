package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	algorithm  = "HS256"
	tokenType  = "JWT"
	DefaultTTL = time.Hour
)

type Claims struct {
	Sub  string `json:"sub"`
	Role string `json:"role"`
	Iat  int64  `json:"iat"`
	Exp  int64  `json:"exp"`
}

type header struct {
	Alg string `json:"alg"`
	Typ string `json:"typ"`
}

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("expired token")
	ErrMissingSecret = errors.New("token secret is not configured")
)

// Signer issues and verifies HS256 tokens of the form header.payload.signature.
// There is no revocation: a token stays valid until it expires.
type Signer struct {
	secret []byte
	now    func() time.Time
}

func NewSigner(secret string) (*Signer, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	return &Signer{secret: []byte(secret), now: time.Now}, nil
}

// WithClock returns a copy of the signer that reads the current time from now.
func (s *Signer) WithClock(now func() time.Time) *Signer {
	return &Signer{secret: s.secret, now: now}
}

func (s *Signer) Issue(subject, role string, ttl time.Duration) (string, Claims, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	issuedAt := s.now().Unix()
	claims := Claims{
		Sub:  subject,
		Role: role,
		Iat:  issuedAt,
		Exp:  issuedAt + int64(ttl/time.Second),
	}

	headerBytes, err := json.Marshal(header{Alg: algorithm, Typ: tokenType})
	if err != nil {
		return "", Claims{}, fmt.Errorf("marshal header: %w", err)
	}
	payloadBytes, err := json.Marshal(claims)
	if err != nil {
		return "", Claims{}, fmt.Errorf("marshal claims: %w", err)
	}

	signingInput := encode(headerBytes) + "." + encode(payloadBytes)
	return signingInput + "." + sign(s.secret, signingInput), claims, nil
}

func (s *Signer) Verify(token string) (Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return Claims{}, ErrInvalidToken
	}

	signingInput := parts[0] + "." + parts[1]
	expected := sign(s.secret, signingInput)
	if !hmac.Equal([]byte(parts[2]), []byte(expected)) {
		return Claims{}, ErrInvalidToken
	}

	var head header
	if err := decodeSegment(parts[0], &head); err != nil {
		return Claims{}, ErrInvalidToken
	}
	if head.Alg != algorithm || head.Typ != tokenType {
		return Claims{}, ErrInvalidToken
	}

	var claims Claims
	if err := decodeSegment(parts[1], &claims); err != nil {
		return Claims{}, ErrInvalidToken
	}
	if claims.Exp == 0 {
		return Claims{}, ErrInvalidToken
	}
	if s.now().Unix() >= claims.Exp {
		return Claims{}, ErrExpiredToken
	}
	return claims, nil
}

func sign(secret []byte, input string) string {
	mac := hmac.New(sha256.New, secret)
	_, _ = mac.Write([]byte(input))
	return encode(mac.Sum(nil))
}

func encode(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

func decodeSegment(segment string, target any) error {
	decoded, err := base64.RawURLEncoding.DecodeString(segment)
	if err != nil {
		return err
	}
	return json.Unmarshal(decoded, target)
}

// HashSHA256 returns the lowercase hex SHA-256 digest of value.
func HashSHA256(value string) string {
	sum := sha256.Sum256([]byte(value))
	return fmt.Sprintf("%x", sum)
}
