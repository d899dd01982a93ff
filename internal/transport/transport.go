// Package transport performs the network exchange with the terminal
// over a pinned-certificate HTTPS channel. It moves opaque secured
// bytes; encryption and decoding belong to the caller.
package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/goatapp/adyen-terminal-api/internal/nexo"
)

const (
	// DefaultPort is the terminal's local-integration HTTPS port, used
	// when the terminal address carries no explicit port.
	DefaultPort = 8443

	// nexoPath is the fixed request path on the terminal.
	nexoPath = "/nexo"

	contentType = "application/json"

	// maxResponseBytes bounds the response body read. Terminal
	// responses are small; anything larger is a misbehaving peer.
	maxResponseBytes = 4 << 20
)

// PinnedTransport sends secured payloads to one terminal. The underlying
// HTTP client is created lazily on first use and reused across calls;
// after creation it is read-only. The trust evaluator runs per
// connection and holds no shared mutable state, so concurrent in-flight
// connections are safe.
type PinnedTransport struct {
	endpoint string
	timeout  time.Duration
	evaluate TrustEvaluator
	logger   *slog.Logger

	initOnce sync.Once
	client   *http.Client
}

// NewPinnedTransport builds the transport for one terminal address.
//
// The pinned certificate named certName is loaded from the store
// eagerly: a missing or unparsable pin is a configuration error returned
// here, never a silent downgrade to an unpinned connection.
func NewPinnedTransport(address string, timeout time.Duration, store CertStore, certName string, policy FallbackPolicy, logger *slog.Logger) (*PinnedTransport, error) {
	if address == "" {
		return nil, fmt.Errorf("terminal address is required")
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("timeout must be greater than 0")
	}

	pinnedDER, err := store.PinnedCertificate(certName)
	if err != nil {
		return nil, fmt.Errorf("pinned certificate unavailable: %w", err)
	}

	evaluate, err := NewTrustEvaluator(pinnedDER, policy)
	if err != nil {
		return nil, err
	}

	host := address
	if _, _, splitErr := net.SplitHostPort(address); splitErr != nil {
		host = net.JoinHostPort(address, strconv.Itoa(DefaultPort))
	}

	return &PinnedTransport{
		endpoint: "https://" + host + nexoPath,
		timeout:  timeout,
		evaluate: evaluate,
		logger:   logger,
	}, nil
}

// Endpoint returns the terminal URL this transport posts to.
func (t *PinnedTransport) Endpoint() string { return t.endpoint }

// Send posts the secured payload and returns the raw secured response
// body. The terminal-scoped timeout covers connect plus response wait;
// ctx cancellation aborts the exchange and the underlying connection.
func (t *PinnedTransport) Send(ctx context.Context, payload []byte) ([]byte, error) {
	t.initOnce.Do(t.initClient)

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, nexo.WrapUnknownError(err, "failed to build terminal request")
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, classifySendError(err)
	}
	defer resp.Body.Close()

	t.logger.Debug("terminal responded",
		slog.String("endpoint", t.endpoint),
		slog.Int("status", resp.StatusCode),
	)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, nexo.Translate(err, "failed to read terminal response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, nexo.NewUnknownError(fmt.Sprintf("terminal returned HTTP %d: %s", resp.StatusCode, truncate(body, 200)))
	}

	return body, nil
}

// initClient builds the shared HTTP client. Default verification is
// disabled in favor of VerifyPeerCertificate, which runs the three-tier
// evaluator over the presented chain; the handshake fails unless the
// evaluator accepts.
func (t *PinnedTransport) initClient() {
	tlsConfig := &tls.Config{
		InsecureSkipVerify: true, // trust decided by VerifyPeerCertificate below
		VerifyPeerCertificate: func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
			decision, err := t.evaluate(rawCerts)
			if err != nil {
				t.logger.Warn("terminal certificate rejected",
					slog.String("endpoint", t.endpoint),
					slog.String("decision", decision.String()),
				)
				return err
			}

			t.logger.Debug("terminal certificate accepted",
				slog.String("endpoint", t.endpoint),
				slog.String("decision", decision.String()),
			)
			return nil
		},
	}

	t.client = &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: tlsConfig,
		},
		Timeout: t.timeout,
	}
}

// classifySendError maps an http.Client error onto the taxonomy. A trust
// rejection raised inside the TLS handshake surfaces wrapped in a
// url.Error; unwrap it so the caller sees untrusted_server, not a
// generic connection failure.
func classifySendError(err error) error {
	var terr *nexo.TerminalError
	if errors.As(err, &terr) {
		return terr
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return nexo.WrapConnectError(err, "terminal exchange cancelled or timed out")
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return nexo.WrapConnectError(err, "failed to reach terminal")
	}

	var tlsErr *tls.CertificateVerificationError
	if errors.As(err, &tlsErr) {
		return nexo.WrapUntrustedServerError(err, "terminal certificate verification failed")
	}

	return nexo.WrapConnectError(err, "terminal exchange failed")
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
