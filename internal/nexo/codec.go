package nexo

// codec.go serializes typed messages to and from the protocol's wire
// JSON shape.
//
// Wire requirements enforced here:
//   - field names use the protocol's Pascal-case convention (struct tags)
//   - object keys are sorted canonically per RFC 8785 so protocol
//     implementations that hash or compare canonical forms agree
//   - the plaintext must be representable as 7-bit ASCII before it goes
//     to the security engine; this is a transport constraint, violations
//     are an encoding error, not a best-effort substitution

import (
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
)

// EncodeRequest serializes a plaintext request envelope to its canonical
// ASCII wire form, ready for the security engine.
func EncodeRequest(req *SaleToPOIRequest) ([]byte, error) {
	if err := req.Validate(); err != nil {
		return nil, WrapEncodingError(err, "invalid request envelope")
	}

	wrapper := struct {
		SaleToPOIRequest *SaleToPOIRequest `json:"SaleToPOIRequest"`
	}{req}

	return encodeCanonical(wrapper)
}

// EncodeResponse serializes a plaintext response envelope to its
// canonical ASCII wire form. Used by the terminal side of an exchange.
func EncodeResponse(resp *SaleToPOIResponse) ([]byte, error) {
	if err := resp.Validate(); err != nil {
		return nil, WrapEncodingError(err, "invalid response envelope")
	}

	wrapper := struct {
		SaleToPOIResponse *SaleToPOIResponse `json:"SaleToPOIResponse"`
	}{resp}

	return encodeCanonical(wrapper)
}

// DecodeRequest deserializes decrypted plaintext bytes into a typed
// request envelope. Used by the terminal side of an exchange.
func DecodeRequest(b []byte) (*SaleToPOIRequest, error) {
	var wrapper struct {
		SaleToPOIRequest *SaleToPOIRequest `json:"SaleToPOIRequest"`
	}
	if err := json.Unmarshal(b, &wrapper); err != nil {
		return nil, WrapDecodingError(err, "failed to parse request envelope")
	}
	if wrapper.SaleToPOIRequest == nil {
		return nil, NewDecodingError("SaleToPOIRequest", "SaleToPOIRequest", "request envelope is missing the SaleToPOIRequest field")
	}
	if err := wrapper.SaleToPOIRequest.Validate(); err != nil {
		return nil, WrapDecodingError(err, "invalid request envelope")
	}
	return wrapper.SaleToPOIRequest, nil
}

// DecodeResponse deserializes decrypted plaintext bytes into a typed
// response envelope.
func DecodeResponse(b []byte) (*SaleToPOIResponse, error) {
	var wrapper struct {
		SaleToPOIResponse *SaleToPOIResponse `json:"SaleToPOIResponse"`
	}
	if err := json.Unmarshal(b, &wrapper); err != nil {
		return nil, WrapDecodingError(err, "failed to parse response envelope")
	}
	if wrapper.SaleToPOIResponse == nil {
		return nil, NewDecodingError("SaleToPOIResponse", "SaleToPOIResponse", "response envelope is missing the SaleToPOIResponse field")
	}
	if err := wrapper.SaleToPOIResponse.Validate(); err != nil {
		return nil, WrapDecodingError(err, "invalid response envelope")
	}
	return wrapper.SaleToPOIResponse, nil
}

// EncodeSecuredEnvelope serializes the outer secured envelope for
// transport. The secured body is base64 so canonicalization only
// reorders the wrapper and trailer fields.
func EncodeSecuredEnvelope(env *SecuredEnvelope) ([]byte, error) {
	if err := env.Validate(); err != nil {
		return nil, WrapEncodingError(err, "invalid secured envelope")
	}
	return encodeCanonical(env)
}

// DecodeSecuredEnvelope deserializes a transport body into the outer
// secured envelope.
func DecodeSecuredEnvelope(b []byte) (*SecuredEnvelope, error) {
	var env SecuredEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, WrapDecodingError(err, "failed to parse secured envelope")
	}
	if err := env.Validate(); err != nil {
		return nil, WrapDecodingError(err, "invalid secured envelope")
	}
	if err := env.Message().Validate(); err != nil {
		return nil, WrapDecodingError(err, "invalid secured message")
	}
	return &env, nil
}

// encodeCanonical marshals v, canonicalizes it per RFC 8785 and enforces
// the ASCII transport constraint.
func encodeCanonical(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, WrapEncodingError(err, "failed to marshal message")
	}

	canonical, err := jcs.Transform(b)
	if err != nil {
		return nil, WrapEncodingError(err, "failed to canonicalize message")
	}

	if pos, c := firstNonASCII(canonical); pos >= 0 {
		return nil, NewEncodingError(fmt.Sprintf("message is not 7-bit ASCII: byte 0x%02x at offset %d", c, pos))
	}

	return canonical, nil
}

// firstNonASCII returns the offset and value of the first byte outside
// 7-bit ASCII, or (-1, 0) if the input is clean.
func firstNonASCII(b []byte) (int, byte) {
	for i, c := range b {
		if c > 0x7f {
			return i, c
		}
	}
	return -1, 0
}
