package nexocrypto

// crypto.go implements the protect/unprotect transforms.
//
// Per message: a fresh 16-byte nonce is XORed with the derived IV base
// to form the CBC initialization vector; the canonical plaintext is
// padded (PKCS#7) and encrypted with AES-256-CBC; the integrity tag is
// HMAC-SHA256 over ciphertext plus the key bookkeeping carried in the
// security trailer. Unprotect verifies the tag before any decryption so
// tampered content never reaches the codec.

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"github.com/goatapp/adyen-terminal-api/internal/nexo"
)

// Protect encrypts and authenticates a plaintext envelope into a
// secured message carrying the given header. The plaintext must already
// be in canonical ASCII wire form (nexo.EncodeRequest output).
func Protect(plaintext []byte, header nexo.MessageHeader, cred Credential) (*nexo.SecuredMessage, error) {
	if err := cred.Validate(); err != nil {
		return nil, nexo.WrapSecurityError(err, "invalid credential")
	}
	if len(plaintext) == 0 {
		return nil, nexo.NewSecurityError("plaintext is empty")
	}

	material := deriveKeyMaterial(cred.Passphrase)

	nonce := make([]byte, ivLength)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nexo.WrapSecurityError(err, "failed to generate nonce")
	}

	ciphertext, err := encrypt(material, nonce, plaintext)
	if err != nil {
		return nil, nexo.WrapSecurityError(err, "encryption failed")
	}

	tag := computeTag(material.hmacKey, ciphertext, nonce, cred)

	return &nexo.SecuredMessage{
		MessageHeader: header,
		NexoBlob:      base64.StdEncoding.EncodeToString(ciphertext),
		SecurityTrailer: nexo.SecurityTrailer{
			AdyenCryptoVersion: cred.CryptoVersion,
			KeyIdentifier:      cred.KeyIdentifier,
			KeyVersion:         cred.Version,
			Nonce:              base64.StdEncoding.EncodeToString(nonce),
			Hmac:               base64.StdEncoding.EncodeToString(tag),
		},
	}, nil
}

// Unprotect authenticates and decrypts a secured message. The integrity
// tag is verified before decryption; on any failure no plaintext is
// returned.
func Unprotect(msg *nexo.SecuredMessage, cred Credential) ([]byte, error) {
	if err := cred.Validate(); err != nil {
		return nil, nexo.WrapSecurityError(err, "invalid credential")
	}

	trailer := msg.SecurityTrailer
	if trailer.AdyenCryptoVersion != cred.CryptoVersion {
		return nil, nexo.NewSecurityError(fmt.Sprintf(
			"crypto version mismatch: message carries %d, credential expects %d",
			trailer.AdyenCryptoVersion, cred.CryptoVersion))
	}
	if trailer.KeyIdentifier != cred.KeyIdentifier {
		return nil, nexo.NewSecurityError(fmt.Sprintf(
			"key identifier mismatch: message carries %q, credential expects %q",
			trailer.KeyIdentifier, cred.KeyIdentifier))
	}
	if trailer.KeyVersion != cred.Version {
		return nil, nexo.NewSecurityError(fmt.Sprintf(
			"key version mismatch: message carries %d, credential expects %d",
			trailer.KeyVersion, cred.Version))
	}

	ciphertext, err := base64.StdEncoding.DecodeString(msg.NexoBlob)
	if err != nil {
		return nil, nexo.WrapSecurityError(err, "failed to decode ciphertext")
	}
	nonce, err := base64.StdEncoding.DecodeString(trailer.Nonce)
	if err != nil {
		return nil, nexo.WrapSecurityError(err, "failed to decode nonce")
	}
	if len(nonce) != ivLength {
		return nil, nexo.NewSecurityError(fmt.Sprintf("nonce must be %d bytes, got %d", ivLength, len(nonce)))
	}
	tag, err := base64.StdEncoding.DecodeString(trailer.Hmac)
	if err != nil {
		return nil, nexo.WrapSecurityError(err, "failed to decode integrity tag")
	}

	material := deriveKeyMaterial(cred.Passphrase)

	expected := computeTag(material.hmacKey, ciphertext, nonce, cred)
	if !hmac.Equal(tag, expected) {
		return nil, nexo.NewSecurityError("integrity tag mismatch")
	}

	plaintext, err := decrypt(material, nonce, ciphertext)
	if err != nil {
		return nil, nexo.WrapSecurityError(err, "decryption failed")
	}
	return plaintext, nil
}

func encrypt(material *keyMaterial, nonce, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(material.cipherKey)
	if err != nil {
		return nil, err
	}

	padded := pkcs7Pad(plaintext, block.BlockSize())
	ciphertext := make([]byte, len(padded))

	cipher.NewCBCEncrypter(block, xorIV(material.ivBase, nonce)).CryptBlocks(ciphertext, padded)
	return ciphertext, nil
}

func decrypt(material *keyMaterial, nonce, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(material.cipherKey)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) == 0 || len(ciphertext)%block.BlockSize() != 0 {
		return nil, fmt.Errorf("ciphertext length %d is not a multiple of the block size", len(ciphertext))
	}

	padded := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, xorIV(material.ivBase, nonce)).CryptBlocks(padded, ciphertext)

	return pkcs7Unpad(padded, block.BlockSize())
}

// computeTag binds the ciphertext to the nonce and the credential's key
// bookkeeping so that replaying a blob under a different key identifier
// or version fails authentication.
func computeTag(hmacKey, ciphertext, nonce []byte, cred Credential) []byte {
	mac := hmac.New(sha256.New, hmacKey)
	mac.Write(ciphertext)
	mac.Write(nonce)
	mac.Write([]byte(cred.KeyIdentifier))

	var version [4]byte
	binary.BigEndian.PutUint32(version[:], uint32(cred.Version))
	mac.Write(version[:])

	return mac.Sum(nil)
}

func xorIV(ivBase, nonce []byte) []byte {
	iv := make([]byte, len(ivBase))
	for i := range ivBase {
		iv[i] = ivBase[i] ^ nonce[i]
	}
	return iv
}

func pkcs7Pad(b []byte, blockSize int) []byte {
	n := blockSize - len(b)%blockSize
	return append(append([]byte{}, b...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, blockSize int) ([]byte, error) {
	if len(b) == 0 || len(b)%blockSize != 0 {
		return nil, fmt.Errorf("invalid padded length %d", len(b))
	}
	n := int(b[len(b)-1])
	if n == 0 || n > blockSize || n > len(b) {
		return nil, fmt.Errorf("invalid padding byte %d", n)
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, fmt.Errorf("inconsistent padding")
		}
	}
	return b[:len(b)-n], nil
}
