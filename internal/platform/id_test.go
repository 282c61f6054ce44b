package platform

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewID(t *testing.T) {
	id := NewID()
	_, err := uuid.Parse(id)
	require.NoError(t, err)
}

func TestNewID_Unique(t *testing.T) {
	assert.NotEqual(t, NewID(), NewID())
}

func TestNewName(t *testing.T) {
	name := NewName("vps-")
	assert.True(t, strings.HasPrefix(name, "vps-"))
	assert.Len(t, name, len("vps-")+shortIDLength)
}

func TestNewName_AlphabetOnly(t *testing.T) {
	name := strings.TrimPrefix(NewName("x"), "x")
	for _, c := range name {
		assert.Contains(t, shortIDAlphabet, string(c))
	}
}
