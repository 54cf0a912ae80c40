package types

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // Steem key checksums are defined over RIPEMD-160.
)

// PublicKeySize is the length of a compressed secp256k1 public key.
const PublicKeySize = 33

// checksumSize is the length of the RIPEMD-160 checksum suffix.
const checksumSize = 4

var (
	// ErrInvalidPublicKey is returned for keys that are not
	// prefix + base58(33-byte key || 4-byte checksum).
	ErrInvalidPublicKey = errors.New("invalid public key")

	// ErrKeyChecksum is returned when the embedded checksum does not match.
	ErrKeyChecksum = errors.New("public key checksum mismatch")
)

// Address prefixes per chain. The prefix is plain text in front of the
// base58 payload, e.g. "STM5gdbygHHSGwVY8oC45dntaApS9pFiSB24zdPoSkZLbb2KrNVnr".
var chainKeyPrefix = map[Chain]string{
	ChainSteem: "STM",
	ChainHive:  "STM",
	ChainGolos: "GLS",
	ChainBlurt: "BLT",
}

// KeyPrefix returns the public key address prefix for a chain.
func KeyPrefix(chain Chain) string {
	if p, ok := chainKeyPrefix[chain]; ok {
		return p
	}
	return "STM"
}

// PublicKey is a compressed secp256k1 public key with its chain prefix.
type PublicKey struct {
	Prefix string
	Raw    [PublicKeySize]byte
}

// PublicKeyFromString parses and checksum-validates a prefixed public key.
func PublicKeyFromString(s string) (PublicKey, error) {
	var k PublicKey
	if len(s) <= 3 {
		return k, fmt.Errorf("%w: %q too short", ErrInvalidPublicKey, s)
	}

	k.Prefix = s[:3]
	data, err := base58.Decode(s[3:])
	if err != nil {
		return k, fmt.Errorf("%w: base58 decode: %v", ErrInvalidPublicKey, err)
	}
	if len(data) != PublicKeySize+checksumSize {
		return k, fmt.Errorf("%w: payload is %d bytes", ErrInvalidPublicKey, len(data))
	}

	copy(k.Raw[:], data[:PublicKeySize])
	if !bytes.Equal(keyChecksum(k.Raw[:]), data[PublicKeySize:]) {
		return k, ErrKeyChecksum
	}
	return k, nil
}

// String returns the prefixed base58 representation with checksum.
func (k PublicKey) String() string {
	payload := make([]byte, 0, PublicKeySize+checksumSize)
	payload = append(payload, k.Raw[:]...)
	payload = append(payload, keyChecksum(k.Raw[:])...)
	return k.Prefix + base58.Encode(payload)
}

// keyChecksum computes the 4-byte RIPEMD-160 checksum over the raw key.
func keyChecksum(raw []byte) []byte {
	h := ripemd160.New()
	h.Write(raw)
	return h.Sum(nil)[:checksumSize]
}
