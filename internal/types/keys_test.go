package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublicKeyRoundTrip(t *testing.T) {
	var k PublicKey
	k.Prefix = "STM"
	for i := range k.Raw {
		k.Raw[i] = byte(i * 7)
	}

	s := k.String()
	require.Equal(t, "STM", s[:3])

	parsed, err := PublicKeyFromString(s)
	require.NoError(t, err)
	require.Equal(t, k, parsed)
}

func TestPublicKeyChecksumMismatch(t *testing.T) {
	var k PublicKey
	k.Prefix = "GLS"
	k.Raw[0] = 0x02

	s := k.String()

	// Flip one payload character to another base58 character.
	b := []byte(s)
	last := len(b) - 1
	if b[last] == 'x' {
		b[last] = 'y'
	} else {
		b[last] = 'x'
	}

	_, err := PublicKeyFromString(string(b))
	require.Error(t, err)
}

func TestPublicKeyTooShort(t *testing.T) {
	_, err := PublicKeyFromString("STM")
	require.ErrorIs(t, err, ErrInvalidPublicKey)

	_, err = PublicKeyFromString("STMabc")
	require.ErrorIs(t, err, ErrInvalidPublicKey)
}

func TestKeyPrefix(t *testing.T) {
	require.Equal(t, "STM", KeyPrefix(ChainSteem))
	require.Equal(t, "STM", KeyPrefix(ChainHive))
	require.Equal(t, "GLS", KeyPrefix(ChainGolos))
	require.Equal(t, "BLT", KeyPrefix(ChainBlurt))
	require.Equal(t, "STM", KeyPrefix(Chain("something-else")))
}
