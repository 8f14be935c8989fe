package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func newTestService(issuers ...string) *Service {
	return NewService("test-secret", 30*time.Minute, 7*24*time.Hour, issuers)
}

const testIssuer = "http://localhost:8080/api/v1.0/streamverse/auth/login"

func TestIssueValidate_Roundtrip(t *testing.T) {
	s := newTestService()

	for _, tc := range []struct {
		name  string
		admin bool
		class string
	}{
		{"regular access", false, ClassAccess},
		{"admin access", true, ClassAccess},
		{"regular refresh", false, ClassRefresh},
		{"admin refresh", true, ClassRefresh},
	} {
		t.Run(tc.name, func(t *testing.T) {
			token, exp, err := s.Issue("alice", tc.admin, tc.class, testIssuer)
			require.NoError(t, err)
			require.True(t, exp.After(time.Now()))

			id, err := s.Validate(token, tc.class)
			require.NoError(t, err)
			require.Equal(t, "alice", id.Username)
			require.Equal(t, tc.admin, id.Admin)
			require.NotEmpty(t, id.TokenID)
		})
	}
}

func TestValidate_FreshTokenIDPerIssue(t *testing.T) {
	s := newTestService()

	first, _, err := s.Issue("alice", false, ClassAccess, testIssuer)
	require.NoError(t, err)
	second, _, err := s.Issue("alice", false, ClassAccess, testIssuer)
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	id1, err := s.Validate(first, ClassAccess)
	require.NoError(t, err)
	id2, err := s.Validate(second, ClassAccess)
	require.NoError(t, err)
	require.NotEqual(t, id1.TokenID, id2.TokenID)
}

func TestValidate_ClassSeparation(t *testing.T) {
	s := newTestService()

	refresh, _, err := s.Issue("alice", false, ClassRefresh, testIssuer)
	require.NoError(t, err)
	_, err = s.Validate(refresh, ClassAccess)
	require.ErrorIs(t, err, ErrWrongTokenClass)

	access, _, err := s.Issue("alice", false, ClassAccess, testIssuer)
	require.NoError(t, err)
	_, err = s.Validate(access, ClassRefresh)
	require.ErrorIs(t, err, ErrWrongTokenClass)
}

func TestValidate_ExpiryBoundary(t *testing.T) {
	expired := NewService("test-secret", -time.Second, -time.Second, nil)
	token, _, err := expired.Issue("alice", false, ClassAccess, testIssuer)
	require.NoError(t, err)
	_, err = expired.Validate(token, ClassAccess)
	require.ErrorIs(t, err, ErrTokenExpired)

	shortLived := NewService("test-secret", time.Second, time.Second, nil)
	token, _, err = shortLived.Issue("alice", false, ClassAccess, testIssuer)
	require.NoError(t, err)
	_, err = shortLived.Validate(token, ClassAccess)
	require.NoError(t, err)
}

func TestValidate_NotYetValid(t *testing.T) {
	s := newTestService()

	// Issue always stamps nbf=now, so build a post-dated token by hand
	now := time.Now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testIssuer,
			NotBefore: jwt.NewNumericDate(now.Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(2 * time.Hour)),
			ID:        "postdated-token-id",
		},
		Username:   "alice",
		TokenClass: ClassAccess,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = s.Validate(token, ClassAccess)
	require.ErrorIs(t, err, ErrTokenNotYetValid)
}

func TestValidate_TamperedToken(t *testing.T) {
	s := newTestService()

	token, _, err := s.Issue("alice", false, ClassAccess, testIssuer)
	require.NoError(t, err)

	// flip a payload byte; the signature no longer matches
	tampered := []byte(token)
	mid := len(tampered) / 2
	if tampered[mid] == 'a' {
		tampered[mid] = 'b'
	} else {
		tampered[mid] = 'a'
	}
	_, err = s.Validate(string(tampered), ClassAccess)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidate_WrongSecret(t *testing.T) {
	s := newTestService()
	other := NewService("other-secret", 30*time.Minute, 7*24*time.Hour, nil)

	token, _, err := other.Issue("alice", false, ClassAccess, testIssuer)
	require.NoError(t, err)
	_, err = s.Validate(token, ClassAccess)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidate_IssuerAllowList(t *testing.T) {
	s := newTestService(testIssuer)

	good, _, err := s.Issue("alice", false, ClassAccess, testIssuer)
	require.NoError(t, err)
	_, err = s.Validate(good, ClassAccess)
	require.NoError(t, err)

	bad, _, err := s.Issue("alice", false, ClassAccess, "http://evil.example/login")
	require.NoError(t, err)
	_, err = s.Validate(bad, ClassAccess)
	require.ErrorIs(t, err, ErrUnknownIssuer)
}

func TestValidate_NoAllowListAcceptsAnyIssuer(t *testing.T) {
	s := newTestService()

	token, _, err := s.Issue("alice", false, ClassAccess, "http://anywhere.example/login")
	require.NoError(t, err)
	_, err = s.Validate(token, ClassAccess)
	require.NoError(t, err)
}

func TestDecodeExpired(t *testing.T) {
	expired := NewService("test-secret", -time.Minute, -time.Minute, nil)

	token, _, err := expired.Issue("alice", true, ClassAccess, testIssuer)
	require.NoError(t, err)

	// full validation rejects it...
	_, err = expired.Validate(token, ClassAccess)
	require.ErrorIs(t, err, ErrTokenExpired)

	// ...but the expired-decode path still resolves identity and expiry
	id, exp, err := expired.DecodeExpired(token)
	require.NoError(t, err)
	require.Equal(t, "alice", id.Username)
	require.True(t, id.Admin)
	require.NotEmpty(t, id.TokenID)
	require.True(t, exp.Before(time.Now()))
}

func TestDecodeExpired_RejectsBadSignature(t *testing.T) {
	s := newTestService()
	other := NewService("other-secret", time.Minute, time.Minute, nil)

	token, _, err := other.Issue("alice", false, ClassAccess, testIssuer)
	require.NoError(t, err)
	_, _, err = s.DecodeExpired(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}
