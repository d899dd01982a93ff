package cli

import (
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/goatapp/adyen-terminal-api/internal/client"
	"github.com/goatapp/adyen-terminal-api/internal/config"
	"github.com/goatapp/adyen-terminal-api/internal/logger"
	"github.com/goatapp/adyen-terminal-api/internal/nexocrypto"
	"github.com/goatapp/adyen-terminal-api/internal/transport"
	"github.com/goatapp/adyen-terminal-api/internal/version"
	"github.com/spf13/cobra"
)

var (
	cfg       *config.ClientEnvironment
	appLogger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:               "terminal-cli",
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
	Short:             "POI terminal client CLI",
	Long:              `terminal-cli drives secured exchanges with a payment terminal over its local HTTPS integration`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.NewClientConfig()
		if err != nil {
			log.Printf("failed to load configuration: %v", err.Error())
			return err
		}

		appLogger = logger.InitLogger(logger.ParseLogLevel(cfg.LogLevel), cfg.Environment)
		return nil
	},
}

// newClient builds the terminal client from the loaded environment.
func newClient() (*client.Client, error) {
	terminal := client.Terminal{
		Address: cfg.TerminalAddress,
		Timeout: cfg.TerminalTimeout,
		SaleID:  cfg.SaleID,
		POIID:   cfg.POIID,
		Credential: nexocrypto.Credential{
			KeyIdentifier: cfg.KeyIdentifier,
			Passphrase:    cfg.KeyPassphrase,
			Version:       cfg.KeyVersion,
			CryptoVersion: cfg.CryptoVersion,
		},
	}

	policy := transport.FallbackDeny
	if cfg.AllowUnpinnedFallback {
		appLogger.Warn("ALLOW_UNPINNED_FALLBACK is set - connections failing both trust tiers will be accepted")
		policy = transport.FallbackAllow
	}

	return client.New(terminal, transport.NewDirCertStore(cfg.PinnedCertDir), client.Options{
		PinnedCertName: cfg.PinnedCertName,
		FallbackPolicy: policy,
		Logger:         appLogger,
	})
}

func Execute() {
	v := version.Get()
	rootCmd.Version = fmt.Sprintf("%s (built %s, commit %s)", v.Version, v.BuildDate, v.GitCommit)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(payCmd)
	rootCmd.AddCommand(abortCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(diagnoseCmd)
}
