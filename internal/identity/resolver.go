// Package identity resolves a caller identity from the signaling handshake
// token. Tokens are HMAC-SHA256 JWTs issued by the external account
// subsystem; only verification lives here.
package identity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/avoronin/Huddle/internal/domain"
)

var (
	ErrInvalidToken   = errors.New("identity: invalid token")
	ErrUnsupportedAlg = errors.New("identity: unsupported jwt alg")
	ErrExpiredToken   = errors.New("identity: token expired")
)

// Tokens far above this size are rejected before any parsing work.
const maxTokenLen = 8 * 1024

// Allowed clock skew for iat/exp checks.
const leeway = 30 * time.Second

type Resolver struct {
	secret []byte
	now    func() time.Time
}

func NewResolver(secret string) *Resolver {
	return &Resolver{secret: []byte(secret), now: time.Now}
}

type claims struct {
	Sub  string `json:"sub"`
	Name string `json:"name"`
	Exp  int64  `json:"exp"`
	Iat  int64  `json:"iat"`
}

// Resolve verifies token and extracts the caller identity. An empty token is
// not an error: it yields a nil identity, i.e. an anonymous connection.
func (r *Resolver) Resolve(token string) (*domain.Identity, error) {
	if token == "" {
		return nil, nil
	}
	if len(token) > maxTokenLen {
		return nil, ErrInvalidToken
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, ErrInvalidToken
	}

	headerJSON, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, ErrInvalidToken
	}
	var header struct {
		Alg string `json:"alg"`
	}
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return nil, ErrInvalidToken
	}
	if header.Alg != "HS256" {
		return nil, ErrUnsupportedAlg
	}

	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, ErrInvalidToken
	}
	mac := hmac.New(sha256.New, r.secret)
	mac.Write([]byte(parts[0]))
	mac.Write([]byte("."))
	mac.Write([]byte(parts[1]))
	if !hmac.Equal(sig, mac.Sum(nil)) {
		return nil, ErrInvalidToken
	}

	payloadJSON, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, ErrInvalidToken
	}
	var c claims
	if err := json.Unmarshal(payloadJSON, &c); err != nil {
		return nil, ErrInvalidToken
	}
	if c.Sub == "" {
		return nil, ErrInvalidToken
	}

	now := r.now()
	if c.Exp != 0 && now.After(time.Unix(c.Exp, 0).Add(leeway)) {
		return nil, ErrExpiredToken
	}
	if c.Iat != 0 && time.Unix(c.Iat, 0).After(now.Add(leeway)) {
		return nil, ErrInvalidToken
	}

	name := c.Name
	if name == "" {
		name = "guest"
	}
	return domain.NewIdentity(domain.UserID(c.Sub), name)
}
