package transport

// trust.go implements the three-tier certificate trust decision:
//
//	tier 1: accept if the platform's default trust evaluation succeeds
//	tier 2: accept if any certificate in the presented chain matches the
//	        bundled pinned certificate byte for byte
//	tier 3: policy-controlled fallback - the historical client accepted
//	        chains that merely failed trust evaluation, which weakens
//	        pinning; the default here is to reject, and the lenient
//	        behavior must be opted into explicitly
//
// An empty chain is always rejected.

import (
	"bytes"
	"crypto/x509"
	"fmt"

	"github.com/goatapp/adyen-terminal-api/internal/nexo"
)

// TrustDecision is the result of evaluating a presented certificate
// chain. Recomputed per connection, never persisted.
type TrustDecision int

const (
	// TrustSystem - the chain verified against the platform trust store.
	TrustSystem TrustDecision = iota + 1

	// TrustPinned - a chain certificate matched the bundled pin exactly.
	TrustPinned

	// TrustFallback - neither tier succeeded but the lenient fallback
	// policy accepted the connection anyway.
	TrustFallback

	// TrustRejected - all tiers failed; the connection is closed.
	TrustRejected
)

// String returns a human-readable string representation of the trust decision.
func (d TrustDecision) String() string {
	switch d {
	case TrustSystem:
		return "System Trust"
	case TrustPinned:
		return "Pinned Certificate"
	case TrustFallback:
		return "Fallback (Lenient Policy)"
	case TrustRejected:
		return "Rejected"
	default:
		return fmt.Sprintf("Unknown(%d)", int(d))
	}
}

// FallbackPolicy controls tier 3 of the trust decision.
type FallbackPolicy int

const (
	// FallbackDeny rejects connections that fail both system trust and
	// pin matching. This is the default.
	FallbackDeny FallbackPolicy = iota

	// FallbackAllow reproduces the historical lenient behavior: a chain
	// that was presented but failed both tiers is accepted anyway.
	FallbackAllow
)

// TrustEvaluator evaluates a presented certificate chain (leaf first,
// raw DER bytes) and returns the trust decision. Evaluators are
// stateless and safe to invoke from concurrent connections.
type TrustEvaluator func(rawCerts [][]byte) (TrustDecision, error)

// NewTrustEvaluator builds the three-tier evaluator around the pinned
// certificate DER bytes.
func NewTrustEvaluator(pinnedDER []byte, policy FallbackPolicy) (TrustEvaluator, error) {
	if len(pinnedDER) == 0 {
		return nil, fmt.Errorf("pinned certificate is empty")
	}
	if _, err := x509.ParseCertificate(pinnedDER); err != nil {
		return nil, fmt.Errorf("pinned certificate is not valid DER: %w", err)
	}

	return func(rawCerts [][]byte) (TrustDecision, error) {
		if len(rawCerts) == 0 {
			return TrustRejected, nexo.NewUntrustedServerError("server presented no certificates")
		}

		if systemTrusted(rawCerts) {
			return TrustSystem, nil
		}

		for _, raw := range rawCerts {
			if bytes.Equal(raw, pinnedDER) {
				return TrustPinned, nil
			}
		}

		if policy == FallbackAllow {
			return TrustFallback, nil
		}

		return TrustRejected, nexo.NewUntrustedServerError(
			"certificate chain failed system trust and matched no pinned certificate")
	}, nil
}

// systemTrusted runs the platform's default trust evaluation over the
// presented chain: leaf verified against the system roots with the rest
// of the chain as intermediates.
func systemTrusted(rawCerts [][]byte) bool {
	certs := make([]*x509.Certificate, 0, len(rawCerts))
	for _, raw := range rawCerts {
		cert, err := x509.ParseCertificate(raw)
		if err != nil {
			return false
		}
		certs = append(certs, cert)
	}

	intermediates := x509.NewCertPool()
	for _, cert := range certs[1:] {
		intermediates.AddCert(cert)
	}

	_, err := certs[0].Verify(x509.VerifyOptions{
		Intermediates: intermediates,
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	})
	return err == nil
}
