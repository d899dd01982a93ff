package config

import (
	"fmt"
	"time"

	"github.com/Netflix/go-env"
)

// ClientEnvironment holds the environment variables for the terminal client.
type ClientEnvironment struct {
	Environment string `env:"ENVIRONMENT,default=dev"`
	LogLevel    string `env:"LOG_LEVEL,default=info"`

	// terminal connection settings
	TerminalAddress string        `env:"TERMINAL_ADDRESS,required=true"`
	TerminalTimeout time.Duration `env:"TERMINAL_TIMEOUT,default=30s"`

	// sale system identifiers sent in every MessageHeader
	SaleID string `env:"SALE_ID,default=SaleSystem"`
	POIID  string `env:"POI_ID,required=true"`

	// local encryption credential bound to the terminal
	KeyIdentifier string `env:"KEY_IDENTIFIER,required=true"`
	KeyPassphrase string `env:"KEY_PASSPHRASE,required=true"`
	KeyVersion    uint   `env:"KEY_VERSION,default=1"`
	CryptoVersion int    `env:"CRYPTO_VERSION,default=1"`

	// certificate pinning settings
	PinnedCertDir         string `env:"PINNED_CERT_DIR,default=./certs"`
	PinnedCertName        string `env:"PINNED_CERT_NAME,default=terminal"`
	AllowUnpinnedFallback bool   `env:"ALLOW_UNPINNED_FALLBACK,default=false"`
}

// SimEnvironment holds the environment variables for the simulated terminal.
type SimEnvironment struct {
	Environment           string        `env:"ENVIRONMENT,default=dev"`
	LogLevel              string        `env:"LOG_LEVEL,default=debug"`
	Host                  string        `env:"HOST,default=0.0.0.0"`
	Port                  int           `env:"PORT,default=8443"`
	ServerShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT,default=10s"`
	ReadTimeout           time.Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout          time.Duration `env:"WRITE_TIMEOUT,default=15s"`
	IdleTimeout           time.Duration `env:"IDLE_TIMEOUT,default=60s"`
	RateLimitRPS          int32         `env:"RATE_LIMIT_RPS,default=100"`
	RateLimitBurst        int32         `env:"RATE_LIMIT_BURST,default=200"`
	MaxRequestBytes       int64         `env:"MAX_REQUEST_BYTES,default=1048576"`

	// TLS settings - when both are empty the sim serves plain HTTP,
	// which the pinned client transport will refuse to talk to.
	TLSCertFile string `env:"TLS_CERT_FILE"`
	TLSKeyFile  string `env:"TLS_KEY_FILE"`

	// credential the sim decrypts incoming requests with - must match
	// the credential configured on the client side
	KeyIdentifier string `env:"KEY_IDENTIFIER,required=true"`
	KeyPassphrase string `env:"KEY_PASSPHRASE,required=true"`
	KeyVersion    uint   `env:"KEY_VERSION,default=1"`
	CryptoVersion int    `env:"CRYPTO_VERSION,default=1"`

	// POI identifier the sim reports in response headers
	POIID string `env:"POI_ID,default=SIM-POI-1"`
}

var validEnvs = map[string]bool{
	"dev":     true,
	"test":    true,
	"prod":    true,
	"staging": true,
}

// NewClientConfig loads environment variables and returns a ClientEnvironment struct that contains the values
func NewClientConfig() (*ClientEnvironment, error) {
	var cfg ClientEnvironment

	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal environment variables: %w", err)
	}

	if err := validateClientConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// NewSimConfig loads environment variables and returns a SimEnvironment struct that contains the values
func NewSimConfig() (*SimEnvironment, error) {
	var cfg SimEnvironment

	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal environment variables: %w", err)
	}

	if err := validateSimConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validateClientConfig checks for required env variables
func validateClientConfig(cfg *ClientEnvironment) error {
	if !validEnvs[cfg.Environment] {
		return fmt.Errorf("invalid ENVIRONMENT: %s", cfg.Environment)
	}
	if cfg.TerminalTimeout <= 0 {
		return fmt.Errorf("TERMINAL_TIMEOUT must be greater than 0")
	}
	if cfg.KeyVersion < 1 {
		return fmt.Errorf("KEY_VERSION must be at least 1")
	}
	if cfg.CryptoVersion < 0 {
		return fmt.Errorf("CRYPTO_VERSION must be 0 or greater")
	}
	return nil
}

// validateSimConfig checks for required env variables
func validateSimConfig(cfg *SimEnvironment) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}
	if !validEnvs[cfg.Environment] {
		return fmt.Errorf("invalid ENVIRONMENT: %s", cfg.Environment)
	}
	if (cfg.TLSCertFile == "") != (cfg.TLSKeyFile == "") {
		return fmt.Errorf("TLS_CERT_FILE and TLS_KEY_FILE must be set together")
	}
	if cfg.MaxRequestBytes < 1 {
		return fmt.Errorf("MAX_REQUEST_BYTES must be at least 1")
	}
	return nil
}
