// Package nexocrypto implements the message security engine: credential
// key-material derivation and the protect/unprotect transforms that
// encrypt and authenticate secured messages.
//
// The engine holds no state. Every call is a pure transform over the
// Credential passed in, so it is safe to use across terminals and from
// concurrent exchanges.
package nexocrypto

import (
	"fmt"
	"log/slog"
)

// Credential is the symmetric key material and versioning metadata bound
// to one terminal. Mixing credentials across terminals is a protocol
// violation the engine rejects at unprotect time via the key identifier
// and version checks.
type Credential struct {
	// KeyIdentifier names the key so the peer can locate the matching
	// key material on its side.
	KeyIdentifier string

	// Passphrase is the shared secret all key material is derived from.
	// It must never be logged in cleartext.
	Passphrase string

	// Version distinguishes rotations of the same key identifier.
	Version uint

	// CryptoVersion selects the protocol security profile.
	CryptoVersion int
}

// Validate checks the credential is usable for protect/unprotect.
func (c Credential) Validate() error {
	if c.KeyIdentifier == "" {
		return fmt.Errorf("key identifier is required")
	}
	if c.Passphrase == "" {
		return fmt.Errorf("passphrase is required")
	}
	if c.Version < 1 {
		return fmt.Errorf("key version must be at least 1")
	}
	return nil
}

// LogValue keeps the passphrase out of log output even when a credential
// is logged wholesale.
func (c Credential) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("key_identifier", c.KeyIdentifier),
		slog.Uint64("key_version", uint64(c.Version)),
		slog.Int("crypto_version", c.CryptoVersion),
		slog.String("passphrase", "[redacted]"),
	)
}
