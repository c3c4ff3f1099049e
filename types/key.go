package types

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/multiformats/go-base32"
	"github.com/multiformats/go-multibase"
)

// KeySize is the size in bytes of content keys and peer identity keys.
const KeySize = 32

// zBase32 is the z-base-32 alphabet used by hypercore identity encoding.
var zBase32 = base32.NewEncoding("ybndrfg8ejkmcpqxot1uwisza345h769").WithPadding(base32.NoPadding)

// zBase32KeyLen is the unpadded z-base-32 length of a Key.
const zBase32KeyLen = 52

// Key is a fixed-size opaque identifier.
//
// The same type is used for content keys (the subject of an assignment) and for
// peer identity keys, so that bitwise distance between the two is well defined.
// The text form is 64 lowercase hex characters.
type Key [KeySize]byte

// ParseKey parses a key from its text form.
//
// Accepts 64 hex characters, 52 z-base-32 characters (the hypercore identity
// form, also with the multibase "h" prefix), or any multibase-prefixed string
// (for example base58btc "z..." or base32 "b...") that decodes to exactly
// KeySize bytes.
//
// Parameters:
//   - s: Encoded key
//
// Returns:
//   - Key: Decoded key
//   - error: ErrInvalidKey (wrapped) if the input cannot be decoded
func ParseKey(s string) (Key, error) {
	var k Key

	s = strings.TrimSpace(s)
	if len(s) == hex.EncodedLen(KeySize) {
		if _, err := hex.Decode(k[:], []byte(s)); err == nil {
			return k, nil
		}
	}

	z := s
	if len(z) == zBase32KeyLen+1 && z[0] == 'h' {
		z = z[1:]
	}
	if len(z) == zBase32KeyLen {
		if data, err := zBase32.DecodeString(z); err == nil && len(data) == KeySize {
			copy(k[:], data)
			return k, nil
		}
	}

	_, data, err := multibase.Decode(s)
	if err != nil {
		return k, fmt.Errorf("%w: %q is neither hex, z-base-32 nor multibase: %w", ErrInvalidKey, s, err)
	}

	return KeyFromBytes(data)
}

// KeyFromBytes copies b into a Key.
//
// Returns:
//   - Key: Key holding the bytes of b
//   - error: ErrInvalidKey (wrapped) if len(b) != KeySize
func KeyFromBytes(b []byte) (Key, error) {
	var k Key
	if len(b) != KeySize {
		return k, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidKey, KeySize, len(b))
	}
	copy(k[:], b)

	return k, nil
}

// MustParseKey is like ParseKey but panics on error. Intended for tests and constants.
func MustParseKey(s string) Key {
	k, err := ParseKey(s)
	if err != nil {
		panic(err)
	}

	return k
}

// String returns the hex form of the key.
func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

// Short returns the first 8 hex characters, for log output.
func (k Key) Short() string {
	return hex.EncodeToString(k[:4])
}

// IsZero reports whether all bytes of the key are zero.
func (k Key) IsZero() bool {
	return k == Key{}
}

// Compare compares two keys as big-endian unsigned integers.
//
// Returns:
//   - int: -1 if k < o, 0 if equal, +1 if k > o
func (k Key) Compare(o Key) int {
	return bytes.Compare(k[:], o[:])
}

// Xor returns the bitwise XOR of two keys (their Kademlia-style distance).
func (k Key) Xor(o Key) Key {
	var d Key
	for i := range k {
		d[i] = k[i] ^ o[i]
	}

	return d
}

// MarshalText implements encoding.TextMarshaler.
func (k Key) MarshalText() ([]byte, error) {
	out := make([]byte, hex.EncodedLen(KeySize))
	hex.Encode(out, k[:])

	return out, nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Key) UnmarshalText(text []byte) error {
	parsed, err := ParseKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed

	return nil
}
