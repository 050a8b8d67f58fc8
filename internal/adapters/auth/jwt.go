// Package auth resolves the caller of a request to a model.UserID using
// HS256-signed bearer tokens.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/okian/bolao/internal/domain/model"
)

const claimUserID = "user_id"

// Verifier validates bearer tokens.
type Verifier struct {
	secret []byte
	leeway time.Duration
	issuer string
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithLeeway tolerates clock skew on exp/nbf checks.
func WithLeeway(d time.Duration) Option {
	return func(v *Verifier) {
		if d > 0 {
			v.leeway = d
		}
	}
}

// WithIssuer requires the iss claim to equal issuer.
func WithIssuer(issuer string) Option {
	return func(v *Verifier) { v.issuer = issuer }
}

// NewVerifier returns a Verifier for tokens signed with secret.
func NewVerifier(secret string, opts ...Option) (*Verifier, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	v := &Verifier{secret: []byte(secret)}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Verify parses token and returns the user it was issued to.
func (v *Verifier) Verify(token string) (model.UserID, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.leeway > 0 {
		opts = append(opts, jwt.WithLeeway(v.leeway))
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := jwt.MapClaims{}
	tok, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil || !tok.Valid {
		return 0, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return userFromClaims(claims)
}

// userFromClaims accepts user_id as a JSON number or decimal string, falling
// back to sub.
func userFromClaims(claims jwt.MapClaims) (model.UserID, error) {
	raw, ok := claims[claimUserID]
	if !ok {
		raw, ok = claims["sub"]
	}
	if !ok {
		return 0, fmt.Errorf("%w: no subject", ErrUnauthorized)
	}

	var (
		id  model.UserID
		err error
	)
	switch t := raw.(type) {
	case float64:
		id = model.UserID(t)
		if float64(id) != t || !id.Valid() {
			err = model.ErrInvalidID
		}
	case json.Number:
		id, err = model.ParseUserID(t.String())
	case string:
		id, err = model.ParseUserID(t)
	default:
		err = model.ErrInvalidID
	}
	if err != nil {
		return 0, fmt.Errorf("%w: bad subject: %v", ErrUnauthorized, err)
	}
	return id, nil
}

// FromRequest verifies the Authorization: Bearer header of r.
func (v *Verifier) FromRequest(r *http.Request) (model.UserID, error) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return 0, fmt.Errorf("%w: missing bearer token", ErrUnauthorized)
	}
	return v.Verify(strings.TrimSpace(token))
}

// Sign mints an HS256 token for userID valid for ttl.
func Sign(secret string, userID model.UserID, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		claimUserID: int64(userID),
		"sub":       userID.String(),
		"iat":       now.Unix(),
		"exp":       now.Add(ttl).Unix(),
	})
	s, err := tok.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return s, nil
}

type ctxKey struct{}

// WithUser stores the authenticated user on ctx.
func WithUser(ctx context.Context, id model.UserID) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// UserFrom returns the authenticated user stored by WithUser.
func UserFrom(ctx context.Context) (model.UserID, bool) {
	id, ok := ctx.Value(ctxKey{}).(model.UserID)
	return id, ok
}
