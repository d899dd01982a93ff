// Package sim implements a simulated POI terminal: an HTTP server that
// speaks the secured message pipeline in reverse. It exists so the CLI
// and the tests can run full exchanges without a physical device.
//
// The sim unprotects the incoming request with its configured
// credential, decodes it, produces the category-appropriate response,
// protects it with the same credential and replies. It deliberately
// reuses the production codec and security engine so a round trip
// exercises the same code paths a real terminal would.
package sim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/goatapp/adyen-terminal-api/internal/config"
	"github.com/goatapp/adyen-terminal-api/internal/nexo"
	"github.com/goatapp/adyen-terminal-api/internal/nexocrypto"
)

// Server is the simulated terminal.
type Server struct {
	config     *config.SimEnvironment
	logger     *slog.Logger
	router     *chi.Mux
	credential nexocrypto.Credential
}

// NewServer builds the simulated terminal from its environment.
func NewServer(cfg *config.SimEnvironment, logger *slog.Logger) (*Server, error) {
	cred := nexocrypto.Credential{
		KeyIdentifier: cfg.KeyIdentifier,
		Passphrase:    cfg.KeyPassphrase,
		Version:       cfg.KeyVersion,
		CryptoVersion: cfg.CryptoVersion,
	}
	if err := cred.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sim credential: %w", err)
	}

	server := &Server{
		config:     cfg,
		logger:     logger,
		router:     chi.NewRouter(),
		credential: cred,
	}

	server.setupMiddleware()
	server.registerRoutes()

	return server, nil
}

// Handler returns the sim's HTTP handler, exposed for tests that mount
// it on an httptest TLS server.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))
	s.router.Use(RequestSizeLimit(s.config.MaxRequestBytes))
	s.router.Use(RateLimit(s.config.RateLimitRPS, s.config.RateLimitBurst, s.logger))
}

func (s *Server) registerRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Post("/nexo", s.handleNexo)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `{"status":"ok"}`)
}

// handleNexo runs one secured exchange: unprotect, decode, answer,
// protect, reply. Failures are reported as HTTP errors; a physical
// terminal would drop the connection, but an explicit status makes the
// sim debuggable.
func (s *Server) handleNexo(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	env, err := nexo.DecodeSecuredEnvelope(body)
	if err != nil {
		s.respondError(w, err)
		return
	}
	if env.SaleToPOIRequest == nil {
		http.Error(w, "envelope does not wrap a secured request", http.StatusBadRequest)
		return
	}

	plaintext, err := nexocrypto.Unprotect(env.SaleToPOIRequest, s.credential)
	if err != nil {
		s.respondError(w, err)
		return
	}

	req, err := nexo.DecodeRequest(plaintext)
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.logger.Info("exchange received",
		slog.String("service_id", req.MessageHeader.ServiceID),
		slog.String("category", string(req.MessageHeader.MessageCategory)),
		slog.String("sale_id", req.MessageHeader.SaleID),
	)

	resp := s.respond(req)

	respPlaintext, err := nexo.EncodeResponse(resp)
	if err != nil {
		s.respondError(w, err)
		return
	}

	secured, err := nexocrypto.Protect(respPlaintext, resp.MessageHeader, s.credential)
	if err != nil {
		s.respondError(w, err)
		return
	}

	wire, err := nexo.EncodeSecuredEnvelope(&nexo.SecuredEnvelope{SaleToPOIResponse: secured})
	if err != nil {
		s.respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(wire)
}

// respond builds the category-appropriate response for a decoded request.
func (s *Server) respond(req *nexo.SaleToPOIRequest) *nexo.SaleToPOIResponse {
	header := req.MessageHeader.AsResponse()
	header.POIID = s.config.POIID

	resp := &nexo.SaleToPOIResponse{MessageHeader: header}
	success := nexo.Response{Result: nexo.ResultSuccess}

	switch req.MessageHeader.MessageCategory {
	case nexo.CategoryPayment:
		resp.PaymentResponse = &nexo.PaymentResponse{
			Response: success,
			SaleData: req.PaymentRequest.SaleData,
			POIData: nexo.POIData{
				POITransactionID: nexo.TransactionID{
					TransactionID: nexo.NewServiceID(),
					TimeStamp:     nexo.Now(),
				},
			},
			PaymentResult: &nexo.PaymentResult{
				AmountsResp: nexo.AmountsResp{
					Currency:         req.PaymentRequest.PaymentTransaction.AmountsReq.Currency,
					AuthorizedAmount: req.PaymentRequest.PaymentTransaction.AmountsReq.RequestedAmount,
				},
			},
		}
	case nexo.CategoryAbort:
		resp.AbortResponse = &nexo.AbortResponse{Response: success}
	case nexo.CategoryTransactionStatus:
		resp.TransactionStatusResponse = &nexo.TransactionStatusResponse{
			Response:         success,
			MessageReference: req.TransactionStatusRequest.MessageReference,
		}
	case nexo.CategoryDiagnosis:
		resp.DiagnosisResponse = &nexo.DiagnosisResponse{
			Response:  success,
			POIStatus: &nexo.POIStatus{GlobalStatus: "OK"},
		}
	}
	return resp
}

// respondError writes a taxonomy-aware HTTP error.
func (s *Server) respondError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest

	var terr *nexo.TerminalError
	if errors.As(err, &terr) && terr.Code() == nexo.ErrCodeUnknown {
		status = http.StatusInternalServerError
	}

	s.logger.Warn("exchange failed",
		slog.String("code", string(nexo.CodeOf(err))),
		slog.String("error", err.Error()),
	)
	http.Error(w, err.Error(), status)
}

// Start runs the sim until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("simulated terminal listening",
			slog.String("environment", s.config.Environment),
			slog.String("address", addr),
			slog.Bool("tls", s.config.TLSCertFile != ""),
		)

		var err error
		if s.config.TLSCertFile != "" {
			err = httpServer.ListenAndServeTLS(s.config.TLSCertFile, s.config.TLSKeyFile)
		} else {
			s.logger.Warn("serving plain HTTP - the pinned client transport will refuse this listener")
			err = httpServer.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			serverErrors <- fmt.Errorf("server failed to start: %w", err)
		}
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ServerShutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			httpServer.Close()
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}
	return nil
}
