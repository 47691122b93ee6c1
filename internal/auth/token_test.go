package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/returnsdesk/oem-returns/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	token, exp, err := tm.GenerateToken(domain.Agent{ID: "a-1", Name: "Alice"})
	require.NoError(t, err)
	assert.False(t, exp.IsZero())

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "a-1", claims.Subject)
	assert.Equal(t, "Alice", claims.Name)
	assert.Equal(t, domain.AgentRoleAgent, claims.Role)
}

func TestParseTokenRejectsForeignSecret(t *testing.T) {
	token, _, err := NewTokenManager("one", 5).GenerateToken(domain.Agent{ID: "a-1"})
	require.NoError(t, err)

	_, err = NewTokenManager("two", 5).ParseToken(token)
	assert.Error(t, err)
}

func TestGenerateTokenRequiresID(t *testing.T) {
	_, _, err := NewTokenManager("secret", 5).GenerateToken(domain.Agent{Name: "nobody"})
	assert.Error(t, err)
}
