// Package auth owns credential primitives: the JWT token service, password
// hashing and API key generation.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token classes embedded in the `type` claim. An access token can never be
// used where a refresh token is expected and vice versa; validation checks
// the class against the caller's expectation rather than trusting endpoint
// convention alone.
const (
	ClassAccess  = "access"
	ClassRefresh = "refresh"
)

// Rejection reasons returned by Validate. Callers map these to HTTP status
// codes; the mapping differs between the auth gate and the refresh endpoint.
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenExpired     = errors.New("token expired")
	ErrTokenNotYetValid = errors.New("token not yet valid")
	ErrWrongTokenClass  = errors.New("wrong token class")
	ErrUnknownIssuer    = errors.New("unknown token issuer")
)

// Claims is the StreamVerse token payload. The registered claims carry
// iss/nbf/iat/exp plus a fresh uuid in ID (jti) used for revocation.
type Claims struct {
	jwt.RegisteredClaims
	Username   string `json:"user"`
	Admin      bool   `json:"admin"`
	TokenClass string `json:"type"`
}

// Identity is the resolved subject of a validated token. Admin is a snapshot
// of the role at issuance; the auth gate re-checks the live user record.
type Identity struct {
	Username string
	Admin    bool
	TokenID  string
}

// Service issues and validates HS256-signed tokens. All fields are read-only
// after construction, so a single Service is safe for concurrent use.
type Service struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuers    []string // empty = any issuer accepted
}

// NewService builds a token service. When issuers is non-empty it acts as an
// allow-list checked during validation.
func NewService(secret string, accessTTL, refreshTTL time.Duration, issuers []string) *Service {
	return &Service{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		issuers:    issuers,
	}
}

// TTL returns the configured lifetime for a token class.
func (s *Service) TTL(class string) time.Duration {
	if class == ClassRefresh {
		return s.refreshTTL
	}
	return s.accessTTL
}

// Issue builds and signs a token for the given user. iat and nbf are both
// set to now, exp to now plus the class TTL, and jti to a fresh uuid.
func (s *Service) Issue(username string, admin bool, class, issuer string) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(s.TTL(class))
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
		Username:   username,
		Admin:      admin,
		TokenClass: class,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Validate verifies the signature and time bounds of a token and checks its
// class and issuer. On success it returns the decoded identity.
func (s *Service) Validate(tokenString, expectedClass string) (Identity, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(tokenString, claims, s.keyfunc)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return Identity{}, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return Identity{}, ErrTokenNotYetValid
		default:
			return Identity{}, ErrInvalidToken
		}
	}
	if !tok.Valid {
		return Identity{}, ErrInvalidToken
	}
	if claims.TokenClass != expectedClass {
		return Identity{}, ErrWrongTokenClass
	}
	if len(s.issuers) > 0 && !s.allowedIssuer(claims.Issuer) {
		return Identity{}, ErrUnknownIssuer
	}
	return Identity{Username: claims.Username, Admin: claims.Admin, TokenID: claims.ID}, nil
}

// DecodeExpired verifies only the signature, skipping time-based claim
// checks, and returns the identity plus the token's expiry. Logout uses it
// so that an expired-but-authentic token can still be explicitly revoked.
func (s *Service) DecodeExpired(tokenString string) (Identity, time.Time, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(tokenString, claims, s.keyfunc, jwt.WithoutClaimsValidation())
	if err != nil || !tok.Valid {
		return Identity{}, time.Time{}, ErrInvalidToken
	}
	var exp time.Time
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	return Identity{Username: claims.Username, Admin: claims.Admin, TokenID: claims.ID}, exp, nil
}

// keyfunc supplies the shared secret and pins the signing method to HMAC so
// a token signed with a different algorithm is rejected outright.
func (s *Service) keyfunc(t *jwt.Token) (interface{}, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, ErrInvalidToken
	}
	return s.secret, nil
}

func (s *Service) allowedIssuer(issuer string) bool {
	for _, allowed := range s.issuers {
		if issuer == allowed {
			return true
		}
	}
	return false
}
