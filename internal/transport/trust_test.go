package transport

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goatapp/adyen-terminal-api/internal/nexo"
)

// selfSignedCert generates a throwaway server certificate and returns
// its DER bytes.
func selfSignedCert(t *testing.T, commonName string) []byte {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	template := x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{CommonName: commonName},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}
	return der
}

func TestTrustEvaluatorPinnedMatch(t *testing.T) {
	pinned := selfSignedCert(t, "terminal")

	evaluate, err := NewTrustEvaluator(pinned, FallbackDeny)
	if err != nil {
		t.Fatalf("evaluator construction failed: %v", err)
	}

	// self-signed chain fails system trust, matches the pin exactly
	decision, err := evaluate([][]byte{pinned})
	if err != nil {
		t.Fatalf("expected acceptance, got %v", err)
	}
	if decision != TrustPinned {
		t.Errorf("got decision %s, want %s", decision, TrustPinned)
	}
}

func TestTrustEvaluatorPinnedMatchInChain(t *testing.T) {
	pinned := selfSignedCert(t, "terminal-root")
	leaf := selfSignedCert(t, "terminal-leaf")

	evaluate, err := NewTrustEvaluator(pinned, FallbackDeny)
	if err != nil {
		t.Fatalf("evaluator construction failed: %v", err)
	}

	// the pin may match any certificate in the presented chain
	decision, err := evaluate([][]byte{leaf, pinned})
	if err != nil {
		t.Fatalf("expected acceptance, got %v", err)
	}
	if decision != TrustPinned {
		t.Errorf("got decision %s, want %s", decision, TrustPinned)
	}
}

func TestTrustEvaluatorRejectsUnpinned(t *testing.T) {
	pinned := selfSignedCert(t, "terminal")
	other := selfSignedCert(t, "imposter")

	evaluate, err := NewTrustEvaluator(pinned, FallbackDeny)
	if err != nil {
		t.Fatalf("evaluator construction failed: %v", err)
	}

	decision, err := evaluate([][]byte{other})
	if err == nil {
		t.Fatal("expected rejection, got acceptance")
	}
	if decision != TrustRejected {
		t.Errorf("got decision %s, want %s", decision, TrustRejected)
	}
	if nexo.CodeOf(err) != nexo.ErrCodeUntrustedServer {
		t.Errorf("got code %s, want %s", nexo.CodeOf(err), nexo.ErrCodeUntrustedServer)
	}
}

func TestTrustEvaluatorLenientFallback(t *testing.T) {
	pinned := selfSignedCert(t, "terminal")
	other := selfSignedCert(t, "imposter")

	evaluate, err := NewTrustEvaluator(pinned, FallbackAllow)
	if err != nil {
		t.Fatalf("evaluator construction failed: %v", err)
	}

	decision, err := evaluate([][]byte{other})
	if err != nil {
		t.Fatalf("lenient policy must accept a presented chain, got %v", err)
	}
	if decision != TrustFallback {
		t.Errorf("got decision %s, want %s", decision, TrustFallback)
	}
}

func TestTrustEvaluatorRejectsEmptyChain(t *testing.T) {
	pinned := selfSignedCert(t, "terminal")

	for _, policy := range []FallbackPolicy{FallbackDeny, FallbackAllow} {
		evaluate, err := NewTrustEvaluator(pinned, policy)
		if err != nil {
			t.Fatalf("evaluator construction failed: %v", err)
		}

		// no certificate data at all is rejected under every policy
		decision, err := evaluate(nil)
		if err == nil {
			t.Fatal("expected rejection for empty chain")
		}
		if decision != TrustRejected {
			t.Errorf("got decision %s, want %s", decision, TrustRejected)
		}
	}
}

func TestNewTrustEvaluatorRejectsBadPin(t *testing.T) {
	if _, err := NewTrustEvaluator(nil, FallbackDeny); err == nil {
		t.Error("expected error for empty pin")
	}
	if _, err := NewTrustEvaluator([]byte("not a certificate"), FallbackDeny); err == nil {
		t.Error("expected error for invalid pin")
	}
}

func TestDirCertStore(t *testing.T) {
	dir := t.TempDir()
	der := selfSignedCert(t, "terminal")

	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	if err := os.WriteFile(filepath.Join(dir, "terminal.pem"), pemBytes, 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "raw.cer"), der, 0o600); err != nil {
		t.Fatal(err)
	}

	store := NewDirCertStore(dir)

	t.Run("PEM certificate", func(t *testing.T) {
		got, err := store.PinnedCertificate("terminal")
		if err != nil {
			t.Fatalf("load failed: %v", err)
		}
		if string(got) != string(der) {
			t.Error("PEM load did not normalize to the expected DER bytes")
		}
	})

	t.Run("DER certificate", func(t *testing.T) {
		got, err := store.PinnedCertificate("raw")
		if err != nil {
			t.Fatalf("load failed: %v", err)
		}
		if string(got) != string(der) {
			t.Error("DER load returned unexpected bytes")
		}
	})

	t.Run("missing certificate is a configuration error", func(t *testing.T) {
		if _, err := store.PinnedCertificate("nope"); err == nil {
			t.Error("expected error for missing certificate")
		}
	})

	t.Run("non-certificate PEM rejected", func(t *testing.T) {
		junk := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: []byte{1, 2, 3}})
		if err := os.WriteFile(filepath.Join(dir, "key.pem"), junk, 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := store.PinnedCertificate("key"); err == nil {
			t.Error("expected error for non-certificate PEM block")
		}
	})
}
