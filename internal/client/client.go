// Package client drives the secured message pipeline end to end: encode
// the typed request, protect it, exchange it with the terminal over the
// pinned transport, unprotect the response and decode it back into a
// typed result. Every failure crossing the pipeline boundary is one of
// the closed taxonomy kinds in the nexo package.
package client

import (
	"context"
	"log/slog"
	"sync"

	"github.com/goatapp/adyen-terminal-api/internal/nexo"
	"github.com/goatapp/adyen-terminal-api/internal/nexocrypto"
	"github.com/goatapp/adyen-terminal-api/internal/transport"
)

// Client is a session with one terminal.
//
// The terminal is a half-duplex device: it cannot process two
// simultaneous transactions and responses carry no correlation beyond
// the MessageHeader. Execute therefore serializes exchanges per client;
// distinct terminals get distinct clients and run in parallel freely.
type Client struct {
	terminal  Terminal
	transport *transport.PinnedTransport
	logger    *slog.Logger

	// mu serializes in-flight exchanges against the terminal
	mu sync.Mutex
}

// Options tunes client construction.
type Options struct {
	// PinnedCertName is the certificate name resolved through the
	// store. Defaults to "terminal".
	PinnedCertName string

	// FallbackPolicy controls trust tier 3. Defaults to FallbackDeny.
	FallbackPolicy transport.FallbackPolicy

	// Logger receives structured request/response logging. Cleartext
	// bodies are logged at Debug only. Defaults to slog.Default().
	Logger *slog.Logger
}

// New builds a client for the given terminal. The pinned certificate is
// loaded from the store now; a missing pin is a configuration error.
func New(terminal Terminal, store transport.CertStore, opts Options) (*Client, error) {
	if err := terminal.Validate(); err != nil {
		return nil, err
	}

	if opts.PinnedCertName == "" {
		opts.PinnedCertName = "terminal"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	pt, err := transport.NewPinnedTransport(
		terminal.Address,
		terminal.Timeout,
		store,
		opts.PinnedCertName,
		opts.FallbackPolicy,
		opts.Logger,
	)
	if err != nil {
		return nil, err
	}

	return &Client{
		terminal:  terminal,
		transport: pt,
		logger:    opts.Logger,
	}, nil
}

// Terminal returns the terminal this client talks to.
func (c *Client) Terminal() Terminal { return c.terminal }

// Execute runs one request/response exchange. The response is
// authenticated and decrypted with the same credential that protected
// the request, and its header is checked against the request's before
// the typed result is returned.
func (c *Client) Execute(ctx context.Context, req *nexo.SaleToPOIRequest) (*nexo.SaleToPOIResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	plaintext, err := nexo.EncodeRequest(req)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("terminal request",
		slog.String("service_id", req.MessageHeader.ServiceID),
		slog.String("category", string(req.MessageHeader.MessageCategory)),
		slog.String("body", string(plaintext)),
	)

	secured, err := nexocrypto.Protect(plaintext, req.MessageHeader, c.terminal.Credential)
	if err != nil {
		return nil, err
	}

	wire, err := nexo.EncodeSecuredEnvelope(&nexo.SecuredEnvelope{SaleToPOIRequest: secured})
	if err != nil {
		return nil, err
	}

	respWire, err := c.transport.Send(ctx, wire)
	if err != nil {
		return nil, err
	}

	env, err := nexo.DecodeSecuredEnvelope(respWire)
	if err != nil {
		return nil, err
	}
	if env.SaleToPOIResponse == nil {
		return nil, nexo.NewDecodingError("SaleToPOIResponse", "SaleToPOIResponse",
			"terminal reply does not wrap a secured response")
	}

	respPlaintext, err := nexocrypto.Unprotect(env.SaleToPOIResponse, c.terminal.Credential)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("terminal response",
		slog.String("service_id", env.SaleToPOIResponse.MessageHeader.ServiceID),
		slog.String("body", string(respPlaintext)),
	)

	resp, err := nexo.DecodeResponse(respPlaintext)
	if err != nil {
		return nil, err
	}

	if err := checkCorrelation(req.MessageHeader, resp.MessageHeader); err != nil {
		return nil, err
	}

	return resp, nil
}

// checkCorrelation verifies the response header pairs with the request
// it answers. An unrelated response must fail the exchange rather than
// be handed to the caller as the result.
func checkCorrelation(req, resp nexo.MessageHeader) error {
	if resp.ServiceID != req.ServiceID {
		return nexo.NewSecurityError("response ServiceID " + resp.ServiceID + " does not match request ServiceID " + req.ServiceID)
	}
	if resp.MessageCategory != req.MessageCategory {
		return nexo.NewSecurityError("response category " + string(resp.MessageCategory) + " does not match request category " + string(req.MessageCategory))
	}
	return nil
}

// Payment runs a payment for the given amount.
func (c *Client) Payment(ctx context.Context, transactionID string, amount float64, currency string) (*nexo.SaleToPOIResponse, error) {
	req := nexo.NewPaymentRequest(c.terminal.SaleID, c.terminal.POIID, transactionID, amount, currency)
	return c.Execute(ctx, req)
}

// Abort cancels the in-progress exchange identified by serviceID.
func (c *Client) Abort(ctx context.Context, serviceID, reason string) (*nexo.SaleToPOIResponse, error) {
	req := nexo.NewAbortRequest(c.terminal.SaleID, c.terminal.POIID, serviceID, reason)
	return c.Execute(ctx, req)
}

// TransactionStatus queries the outcome of an earlier exchange.
func (c *Client) TransactionStatus(ctx context.Context, serviceID string) (*nexo.SaleToPOIResponse, error) {
	req := nexo.NewTransactionStatusRequest(c.terminal.SaleID, c.terminal.POIID, serviceID)
	return c.Execute(ctx, req)
}

// Diagnosis asks the terminal for its current state.
func (c *Client) Diagnosis(ctx context.Context) (*nexo.SaleToPOIResponse, error) {
	req := nexo.NewDiagnosisRequest(c.terminal.SaleID, c.terminal.POIID)
	return c.Execute(ctx, req)
}
