package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomToken(t *testing.T) {
	a, err := RandomToken(16)
	require.NoError(t, err)
	b, err := RandomToken(16)
	require.NoError(t, err)

	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("bearer   abc "))
	assert.Equal(t, "", BearerToken("Basic abc"))
	assert.Equal(t, "", BearerToken(""))
}

func TestStringTrim(t *testing.T) {
	assert.Equal(t, "e1", StringTrim(` "e1" `))
	assert.Equal(t, "e1", StringTrim("'e1'"))
}

func TestVoterClaimsIsOwner(t *testing.T) {
	c := &VoterClaims{}
	c.Subject = "voter-1"
	assert.True(t, c.IsOwner("voter-1"))
	assert.False(t, c.IsOwner("voter-2"))
	assert.False(t, (&VoterClaims{}).IsOwner(""))
}
