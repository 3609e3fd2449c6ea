package pushauth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/townready/townready/config"
)

func TestVerifier_Disabled(t *testing.T) {
	v, err := NewVerifier(context.Background(), config.PushAuthConfig{Enabled: false})
	require.NoError(t, err)
	assert.False(t, v.Enabled())

	// Disabled verification accepts anything, including no header at all.
	assert.NoError(t, v.VerifyAuthorization(context.Background(), ""))
	assert.NoError(t, v.VerifyAuthorization(context.Background(), "Bearer whatever"))
}

func TestNewVerifier_MissingIssuer(t *testing.T) {
	_, err := NewVerifier(context.Background(), config.PushAuthConfig{Enabled: true})
	require.Error(t, err)
}

func TestVerifier_RejectsWithoutBearer(t *testing.T) {
	v := &Verifier{enabled: true}

	err := v.VerifyAuthorization(context.Background(), "")
	require.Error(t, err)
	err = v.VerifyAuthorization(context.Background(), "Basic dXNlcjpwYXNz")
	require.Error(t, err)
	err = v.VerifyAuthorization(context.Background(), "Bearer ")
	require.Error(t, err)
}

func TestBearerToken(t *testing.T) {
	token, ok := bearerToken("Bearer abc.def.ghi")
	assert.True(t, ok)
	assert.Equal(t, "abc.def.ghi", token)

	// Scheme matching is case-insensitive per RFC 7235.
	token, ok = bearerToken("bearer abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", token)

	_, ok = bearerToken("Token abc")
	assert.False(t, ok)
	_, ok = bearerToken("Bearer")
	assert.False(t, ok)
}
