package attrs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInternerAssignsStableIDs(t *testing.T) {
	in := NewInterner()
	nameID := in.Intern("name")
	ageID := in.Intern("age")
	nameID2 := in.Intern("name")

	assert.Equal(t, nameID, nameID2)
	assert.NotEqual(t, nameID, ageID)
	assert.Equal(t, 2, in.Count())

	name, err := in.Name(nameID)
	require.NoError(t, err)
	assert.Equal(t, "name", name)
}

func TestSetGetRemove(t *testing.T) {
	in := NewInterner()
	nameID := in.Intern("name")
	ageID := in.Intern("age")

	var s Set
	s.Set(nameID, StringValue("Alice"))
	s.Set(ageID, IntValue(30))

	v, ok := s.Get(nameID)
	require.True(t, ok)
	assert.Equal(t, "Alice", v.Str)

	s.Remove(nameID)
	_, ok = s.Get(nameID)
	assert.False(t, ok)
	assert.Equal(t, 1, s.Len())
}

func TestSealRoundTrip(t *testing.T) {
	sealer := NewSealer([]byte("correct horse battery staple"), []byte("static-salt-per-install"))
	sealed, err := sealer.SealString(StringValue("sk-secret-token"))
	require.NoError(t, err)

	opened, err := sealer.OpenString(sealed)
	require.NoError(t, err)
	assert.Equal(t, "sk-secret-token", opened.Str)
}

func TestSealTamperDetected(t *testing.T) {
	sealer := NewSealer([]byte("pw"), []byte("salt"))
	sealed, err := sealer.SealString(StringValue("x"))
	require.NoError(t, err)
	sealed[len(sealed)-1] ^= 0xFF

	_, err = sealer.OpenString(sealed)
	assert.ErrorIs(t, err, ErrSealedDecrypt)
}
