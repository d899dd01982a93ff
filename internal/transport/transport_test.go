package transport

import (
	"context"
	"encoding/pem"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goatapp/adyen-terminal-api/internal/nexo"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// pinServerCert writes the TLS server's own certificate into a cert
// store directory so the transport accepts it via the pinned tier.
func pinServerCert(t *testing.T, srv *httptest.Server) CertStore {
	t.Helper()

	dir := t.TempDir()
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: srv.Certificate().Raw})
	if err := os.WriteFile(filepath.Join(dir, "terminal.pem"), pemBytes, 0o600); err != nil {
		t.Fatal(err)
	}
	return NewDirCertStore(dir)
}

// pinOtherCert writes an unrelated certificate as the pin.
func pinOtherCert(t *testing.T) CertStore {
	t.Helper()

	dir := t.TempDir()
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: selfSignedCert(t, "unrelated")})
	if err := os.WriteFile(filepath.Join(dir, "terminal.pem"), pemBytes, 0o600); err != nil {
		t.Fatal(err)
	}
	return NewDirCertStore(dir)
}

func TestSendPinnedAccept(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("got method %s, want POST", r.Method)
		}
		if !strings.HasSuffix(r.URL.Path, "/nexo") {
			t.Errorf("got path %s, want /nexo", r.URL.Path)
		}
		w.Write([]byte(`{"pong":true}`))
	}))
	defer srv.Close()

	pt, err := NewPinnedTransport(addrOf(srv), 5*time.Second, pinServerCert(t, srv), "terminal", FallbackDeny, discardLogger())
	if err != nil {
		t.Fatalf("transport construction failed: %v", err)
	}

	body, err := pt.Send(context.Background(), []byte(`{"ping":true}`))
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if string(body) != `{"pong":true}` {
		t.Errorf("unexpected body: %s", body)
	}
}

func TestSendRejectsUnpinnedServer(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not be reached when trust evaluation rejects")
	}))
	defer srv.Close()

	pt, err := NewPinnedTransport(addrOf(srv), 5*time.Second, pinOtherCert(t), "terminal", FallbackDeny, discardLogger())
	if err != nil {
		t.Fatalf("transport construction failed: %v", err)
	}

	_, err = pt.Send(context.Background(), []byte(`{}`))
	if err == nil {
		t.Fatal("expected trust rejection")
	}
	if nexo.CodeOf(err) != nexo.ErrCodeUntrustedServer {
		t.Errorf("got code %s, want %s", nexo.CodeOf(err), nexo.ErrCodeUntrustedServer)
	}
}

func TestSendLenientFallbackAccepts(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	pt, err := NewPinnedTransport(addrOf(srv), 5*time.Second, pinOtherCert(t), "terminal", FallbackAllow, discardLogger())
	if err != nil {
		t.Fatalf("transport construction failed: %v", err)
	}

	if _, err := pt.Send(context.Background(), []byte(`{}`)); err != nil {
		t.Fatalf("lenient policy must accept, got %v", err)
	}
}

func TestSendCannotConnect(t *testing.T) {
	// reserve a port and close it so the dial is refused
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := addrOf(srv)
	srv.Close()

	dir := t.TempDir()
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: selfSignedCert(t, "terminal")})
	if err := os.WriteFile(filepath.Join(dir, "terminal.pem"), pemBytes, 0o600); err != nil {
		t.Fatal(err)
	}

	pt, err := NewPinnedTransport(addr, 2*time.Second, NewDirCertStore(dir), "terminal", FallbackDeny, discardLogger())
	if err != nil {
		t.Fatalf("transport construction failed: %v", err)
	}

	_, err = pt.Send(context.Background(), []byte(`{}`))
	if err == nil {
		t.Fatal("expected connection failure")
	}
	if nexo.CodeOf(err) != nexo.ErrCodeCannotConnect {
		t.Errorf("got code %s, want %s", nexo.CodeOf(err), nexo.ErrCodeCannotConnect)
	}
}

func TestSendCancellation(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	pt, err := NewPinnedTransport(addrOf(srv), time.Minute, pinServerCert(t, srv), "terminal", FallbackDeny, discardLogger())
	if err != nil {
		t.Fatalf("transport construction failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err = pt.Send(ctx, []byte(`{}`))
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if nexo.CodeOf(err) != nexo.ErrCodeCannotConnect {
		t.Errorf("got code %s, want %s", nexo.CodeOf(err), nexo.ErrCodeCannotConnect)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("cancellation did not abort the exchange promptly (%v)", elapsed)
	}
}

func TestNewPinnedTransportMissingPinIsConfigError(t *testing.T) {
	_, err := NewPinnedTransport("127.0.0.1", time.Second, NewDirCertStore(t.TempDir()), "terminal", FallbackDeny, discardLogger())
	if err == nil {
		t.Fatal("expected configuration error for missing pinned certificate")
	}
	if !strings.Contains(err.Error(), "pinned certificate") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestEndpointDefaultPort(t *testing.T) {
	dir := t.TempDir()
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: selfSignedCert(t, "terminal")})
	if err := os.WriteFile(filepath.Join(dir, "terminal.pem"), pemBytes, 0o600); err != nil {
		t.Fatal(err)
	}
	store := NewDirCertStore(dir)

	tests := []struct {
		address string
		want    string
	}{
		{"192.168.1.10", "https://192.168.1.10:8443/nexo"},
		{"192.168.1.10:9999", "https://192.168.1.10:9999/nexo"},
	}

	for _, tt := range tests {
		pt, err := NewPinnedTransport(tt.address, time.Second, store, "terminal", FallbackDeny, discardLogger())
		if err != nil {
			t.Fatalf("transport construction failed: %v", err)
		}
		if pt.Endpoint() != tt.want {
			t.Errorf("address %q: got endpoint %s, want %s", tt.address, pt.Endpoint(), tt.want)
		}
	}
}

// addrOf strips the scheme from an httptest server URL.
func addrOf(srv *httptest.Server) string {
	return strings.TrimPrefix(strings.TrimPrefix(srv.URL, "https://"), "http://")
}
