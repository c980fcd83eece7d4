package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/unbrain/admin-apiserver/types"
)

func TestTokenService_RoundTrip(t *testing.T) {
	svc := NewTokenService("super-secret", time.Hour)

	token, err := svc.Issue(42, "mod@example.com", types.RoleModerator)
	require.NoError(t, err)

	claims, err := svc.Verify(token)
	require.NoError(t, err)
	require.Equal(t, 42, claims.UserID)
	require.Equal(t, "mod@example.com", claims.Email)
	require.Equal(t, types.RoleModerator, claims.Role)
}

func TestTokenService_Expired(t *testing.T) {
	svc := NewTokenService("super-secret", -time.Minute)

	token, err := svc.Issue(1, "a@b.com", types.RoleAdmin)
	require.NoError(t, err)

	_, err = svc.Verify(token)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenService_Tampered(t *testing.T) {
	svc := NewTokenService("super-secret", time.Hour)

	token, err := svc.Issue(1, "a@b.com", types.RoleAdmin)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	_, err = svc.Verify(tampered)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenService_WrongSecret(t *testing.T) {
	issuer := NewTokenService("right-secret", time.Hour)
	verifier := NewTokenService("wrong-secret", time.Hour)

	token, err := issuer.Issue(1, "a@b.com", types.RoleAdmin)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenService_Garbage(t *testing.T) {
	svc := NewTokenService("super-secret", time.Hour)

	for _, input := range []string{"", "abc", "a.b.c"} {
		_, err := svc.Verify(input)
		require.ErrorIs(t, err, ErrTokenInvalid, "input %q", input)
	}
}
