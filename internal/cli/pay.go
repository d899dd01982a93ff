package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var payCmd = &cobra.Command{
	Use:   "pay <amount> <currency>",
	Short: "Run a payment on the terminal",
	Long:  `Send a payment request for the given amount and currency and print the terminal's response`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("invalid amount %q: %w", args[0], err)
		}
		currency := args[1]

		c, err := newClient()
		if err != nil {
			return err
		}

		transactionID := uuid.NewString()
		appLogger.Info("payment started",
			slog.String("transaction_id", transactionID),
			slog.Float64("amount", amount),
			slog.String("currency", currency),
		)

		resp, err := c.Payment(cmd.Context(), transactionID, amount, currency)
		if err != nil {
			return err
		}

		return printResponse(resp)
	},
}

// printResponse pretty-prints a typed response for the operator.
func printResponse(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
