package nexo

// secured.go models the outer secured-message wire shape. The envelope
// carries exactly one field wrapping the secured content; the plaintext
// never appears at this layer.

import (
	"fmt"
)

// SecurityTrailer carries the key bookkeeping and integrity tag for a
// secured message. KeyIdentifier and KeyVersion let the peer locate the
// matching key material on its side.
type SecurityTrailer struct {
	AdyenCryptoVersion int    `json:"AdyenCryptoVersion"`
	KeyIdentifier      string `json:"KeyIdentifier"`
	KeyVersion         uint   `json:"KeyVersion"`

	// Nonce is the base64-encoded per-message initialization value.
	Nonce string `json:"Nonce"`

	// Hmac is the base64-encoded integrity tag over the ciphertext and
	// the key bookkeeping above.
	Hmac string `json:"Hmac"`
}

// SecuredMessage is the secured content of one message: the cleartext
// header (needed for routing before decryption), the base64 ciphertext
// blob, and the security trailer.
type SecuredMessage struct {
	MessageHeader   MessageHeader   `json:"MessageHeader"`
	NexoBlob        string          `json:"NexoBlob"`
	SecurityTrailer SecurityTrailer `json:"SecurityTrailer"`
}

// SecuredEnvelope is the wire-level wrapper. Exactly one of the two
// fields is set per message; it is created per request and consumed per
// response, never persisted.
type SecuredEnvelope struct {
	SaleToPOIRequest  *SecuredMessage `json:"SaleToPOIRequest,omitempty"`
	SaleToPOIResponse *SecuredMessage `json:"SaleToPOIResponse,omitempty"`
}

// Validate checks that the envelope wraps exactly one secured message.
func (e *SecuredEnvelope) Validate() error {
	switch {
	case e.SaleToPOIRequest != nil && e.SaleToPOIResponse != nil:
		return fmt.Errorf("envelope must wrap exactly one secured message, got both request and response")
	case e.SaleToPOIRequest == nil && e.SaleToPOIResponse == nil:
		return fmt.Errorf("envelope must wrap exactly one secured message, got none")
	}
	return nil
}

// Message returns the secured message the envelope wraps, regardless of
// direction. Validate must have passed.
func (e *SecuredEnvelope) Message() *SecuredMessage {
	if e.SaleToPOIRequest != nil {
		return e.SaleToPOIRequest
	}
	return e.SaleToPOIResponse
}

// Validate checks the secured message structure before decryption is
// attempted.
func (m *SecuredMessage) Validate() error {
	if err := m.MessageHeader.Validate(); err != nil {
		return fmt.Errorf("MessageHeader: %w", err)
	}
	if m.NexoBlob == "" {
		return fmt.Errorf("NexoBlob is required")
	}
	if m.SecurityTrailer.KeyIdentifier == "" {
		return fmt.Errorf("SecurityTrailer.KeyIdentifier is required")
	}
	if m.SecurityTrailer.Nonce == "" {
		return fmt.Errorf("SecurityTrailer.Nonce is required")
	}
	if m.SecurityTrailer.Hmac == "" {
		return fmt.Errorf("SecurityTrailer.Hmac is required")
	}
	return nil
}
