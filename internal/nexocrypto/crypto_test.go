package nexocrypto

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/goatapp/adyen-terminal-api/internal/nexo"
)

var testCredential = Credential{
	KeyIdentifier: "key_id_1",
	Passphrase:    "correct horse battery staple",
	Version:       1,
	CryptoVersion: 1,
}

func testHeader() nexo.MessageHeader {
	return nexo.NewServiceHeader(nexo.CategoryPayment, "S1", "P1")
}

func TestProtectUnprotectRoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		plaintext []byte
	}{
		{"short", []byte("{}")},
		{"one block", []byte("0123456789abcdef")},
		{"multi block", bytes.Repeat([]byte("{\"K\":\"V\"}"), 100)},
		{"all ascii bytes", asciiBytes()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			secured, err := Protect(tt.plaintext, testHeader(), testCredential)
			if err != nil {
				t.Fatalf("protect failed: %v", err)
			}

			got, err := Unprotect(secured, testCredential)
			if err != nil {
				t.Fatalf("unprotect failed: %v", err)
			}
			if !bytes.Equal(got, tt.plaintext) {
				t.Errorf("round trip changed plaintext:\n got %q\nwant %q", got, tt.plaintext)
			}
		})
	}
}

func TestProtectAttachesKeyBookkeeping(t *testing.T) {
	secured, err := Protect([]byte("{}"), testHeader(), testCredential)
	if err != nil {
		t.Fatalf("protect failed: %v", err)
	}

	trailer := secured.SecurityTrailer
	if trailer.KeyIdentifier != testCredential.KeyIdentifier {
		t.Errorf("KeyIdentifier = %q, want %q", trailer.KeyIdentifier, testCredential.KeyIdentifier)
	}
	if trailer.KeyVersion != testCredential.Version {
		t.Errorf("KeyVersion = %d, want %d", trailer.KeyVersion, testCredential.Version)
	}
	if trailer.AdyenCryptoVersion != testCredential.CryptoVersion {
		t.Errorf("AdyenCryptoVersion = %d, want %d", trailer.AdyenCryptoVersion, testCredential.CryptoVersion)
	}
}

func TestProtectUsesFreshNonce(t *testing.T) {
	plaintext := []byte(`{"SaleToPOIRequest":{}}`)

	a, err := Protect(plaintext, testHeader(), testCredential)
	if err != nil {
		t.Fatalf("protect failed: %v", err)
	}
	b, err := Protect(plaintext, testHeader(), testCredential)
	if err != nil {
		t.Fatalf("protect failed: %v", err)
	}

	if a.SecurityTrailer.Nonce == b.SecurityTrailer.Nonce {
		t.Error("two protect calls produced the same nonce")
	}
	if a.NexoBlob == b.NexoBlob {
		t.Error("two protect calls produced the same ciphertext")
	}
}

func TestUnprotectDetectsTampering(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*nexo.SecuredMessage)
	}{
		{
			name:   "ciphertext bit flip",
			mutate: func(m *nexo.SecuredMessage) { m.NexoBlob = flipByte(t, m.NexoBlob, 0) },
		},
		{
			name:   "ciphertext last byte flip",
			mutate: func(m *nexo.SecuredMessage) { m.NexoBlob = flipByte(t, m.NexoBlob, -1) },
		},
		{
			name: "tag bit flip",
			mutate: func(m *nexo.SecuredMessage) {
				m.SecurityTrailer.Hmac = flipByte(t, m.SecurityTrailer.Hmac, 3)
			},
		},
		{
			name: "nonce bit flip",
			mutate: func(m *nexo.SecuredMessage) {
				m.SecurityTrailer.Nonce = flipByte(t, m.SecurityTrailer.Nonce, 5)
			},
		},
		{
			name: "truncated ciphertext",
			mutate: func(m *nexo.SecuredMessage) {
				raw, err := base64.StdEncoding.DecodeString(m.NexoBlob)
				if err != nil {
					t.Fatal(err)
				}
				m.NexoBlob = base64.StdEncoding.EncodeToString(raw[:len(raw)-16])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			secured, err := Protect([]byte(`{"SaleToPOIRequest":{}}`), testHeader(), testCredential)
			if err != nil {
				t.Fatalf("protect failed: %v", err)
			}

			tt.mutate(secured)

			plaintext, err := Unprotect(secured, testCredential)
			if err == nil {
				t.Fatal("expected security failure, got plaintext back")
			}
			if nexo.CodeOf(err) != nexo.ErrCodeSecurity {
				t.Errorf("got code %s, want %s", nexo.CodeOf(err), nexo.ErrCodeSecurity)
			}
			if plaintext != nil {
				t.Error("plaintext must never be released on failure")
			}
		})
	}
}

func TestUnprotectRejectsCredentialMismatch(t *testing.T) {
	tests := []struct {
		name string
		cred Credential
	}{
		{
			name: "different key identifier",
			cred: Credential{KeyIdentifier: "key_id_2", Passphrase: testCredential.Passphrase, Version: 1, CryptoVersion: 1},
		},
		{
			name: "different key version",
			cred: Credential{KeyIdentifier: "key_id_1", Passphrase: testCredential.Passphrase, Version: 2, CryptoVersion: 1},
		},
		{
			name: "different crypto version",
			cred: Credential{KeyIdentifier: "key_id_1", Passphrase: testCredential.Passphrase, Version: 1, CryptoVersion: 0},
		},
		{
			name: "different passphrase",
			cred: Credential{KeyIdentifier: "key_id_1", Passphrase: "wrong", Version: 1, CryptoVersion: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			secured, err := Protect([]byte(`{"SaleToPOIRequest":{}}`), testHeader(), testCredential)
			if err != nil {
				t.Fatalf("protect failed: %v", err)
			}

			plaintext, err := Unprotect(secured, tt.cred)
			if err == nil {
				t.Fatal("expected security failure, got plaintext back")
			}
			if nexo.CodeOf(err) != nexo.ErrCodeSecurity {
				t.Errorf("got code %s, want %s", nexo.CodeOf(err), nexo.ErrCodeSecurity)
			}
			if plaintext != nil {
				t.Error("plaintext must never be released on failure")
			}
		})
	}
}

func TestProtectRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name      string
		plaintext []byte
		cred      Credential
	}{
		{
			name:      "empty plaintext",
			plaintext: nil,
			cred:      testCredential,
		},
		{
			name:      "missing passphrase",
			plaintext: []byte("{}"),
			cred:      Credential{KeyIdentifier: "key_id_1", Version: 1},
		},
		{
			name:      "missing key identifier",
			plaintext: []byte("{}"),
			cred:      Credential{Passphrase: "p", Version: 1},
		},
		{
			name:      "zero key version",
			plaintext: []byte("{}"),
			cred:      Credential{KeyIdentifier: "key_id_1", Passphrase: "p"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Protect(tt.plaintext, testHeader(), tt.cred)
			if err == nil {
				t.Fatal("expected error, got none")
			}
			if nexo.CodeOf(err) != nexo.ErrCodeSecurity {
				t.Errorf("got code %s, want %s", nexo.CodeOf(err), nexo.ErrCodeSecurity)
			}
		})
	}
}

func TestDeriveKeyMaterialDeterministic(t *testing.T) {
	a := deriveKeyMaterial("passphrase")
	b := deriveKeyMaterial("passphrase")

	if !bytes.Equal(a.hmacKey, b.hmacKey) || !bytes.Equal(a.cipherKey, b.cipherKey) || !bytes.Equal(a.ivBase, b.ivBase) {
		t.Error("derivation is not deterministic")
	}

	c := deriveKeyMaterial("other")
	if bytes.Equal(a.cipherKey, c.cipherKey) {
		t.Error("different passphrases derived the same cipher key")
	}

	if len(a.hmacKey) != hmacKeyLength || len(a.cipherKey) != cipherKeyLength || len(a.ivBase) != ivLength {
		t.Errorf("unexpected key material lengths: %d/%d/%d", len(a.hmacKey), len(a.cipherKey), len(a.ivBase))
	}
}

// flipByte flips the low bit of one byte of a base64 value. idx -1
// addresses the last byte.
func flipByte(t *testing.T, encoded string, idx int) string {
	t.Helper()

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if idx < 0 {
		idx = len(raw) + idx
	}
	raw[idx] ^= 0x01
	return base64.StdEncoding.EncodeToString(raw)
}

func asciiBytes() []byte {
	b := make([]byte, 0, 128)
	for c := byte(0); c < 128; c++ {
		b = append(b, c)
	}
	return b
}
