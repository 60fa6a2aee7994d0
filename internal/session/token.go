package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// CookieName holds the signed session token.
	CookieName = "ff_session"
	Issuer     = "friendfeed-web"
	Audience   = "friendfeed-browser"
)

// ErrInvalidToken covers malformed, forged and expired tokens.
var ErrInvalidToken = errors.New("invalid session token")

// Tokens signs and verifies session tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens creates a signer using HS256 with secret.
func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL is how long an issued token stays valid.
func (t *Tokens) TTL() time.Duration { return t.ttl }

// Issue returns a token naming sessionID.
func (t *Tokens) Issue(sessionID string) (string, error) {
	if len(t.secret) == 0 {
		return "", fmt.Errorf("session secret not configured")
	}
	now := t.now()
	claims := jwt.MapClaims{
		"sub": sessionID,
		"iss": Issuer,
		"aud": Audience,
		"exp": now.Add(t.ttl).Unix(),
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"jti": uuid.NewString(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Parse verifies raw and returns the session id it carries.
func (t *Tokens) Parse(raw string) (string, error) {
	token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(Audience),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !token.Valid {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return sub, nil
}
