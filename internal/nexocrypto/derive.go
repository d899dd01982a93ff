package nexocrypto

import (
	"crypto/sha1"

	"golang.org/x/crypto/pbkdf2"
)

// Key derivation parameters from the terminal vendor's published
// security profile. All three values are fixed by the protocol; a peer
// deriving with different parameters cannot interoperate.
const (
	derivationSalt       = "AdyenNexoV1_Salt"
	derivationIterations = 4000

	hmacKeyLength   = 32
	cipherKeyLength = 32
	ivLength        = 16

	keyMaterialLength = hmacKeyLength + cipherKeyLength + ivLength
)

// keyMaterial is the expanded form of a credential passphrase.
type keyMaterial struct {
	hmacKey   []byte
	cipherKey []byte
	ivBase    []byte
}

// deriveKeyMaterial expands the passphrase into the HMAC key, cipher key
// and IV base via PBKDF2-HMAC-SHA1 per the protocol security profile.
func deriveKeyMaterial(passphrase string) *keyMaterial {
	raw := pbkdf2.Key([]byte(passphrase), []byte(derivationSalt), derivationIterations, keyMaterialLength, sha1.New)

	return &keyMaterial{
		hmacKey:   raw[:hmacKeyLength],
		cipherKey: raw[hmacKeyLength : hmacKeyLength+cipherKeyLength],
		ivBase:    raw[hmacKeyLength+cipherKeyLength:],
	}
}
