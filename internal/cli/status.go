package cli

import (
	"log/slog"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status [service-id]",
	Short: "Query the outcome of an earlier exchange",
	Long:  `Ask the terminal for the outcome of the exchange identified by the given ServiceID, or the last exchange when omitted`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		serviceID := ""
		if len(args) == 1 {
			serviceID = args[0]
		}

		c, err := newClient()
		if err != nil {
			return err
		}

		appLogger.Info("status requested", slog.String("service_id", serviceID))

		resp, err := c.TransactionStatus(cmd.Context(), serviceID)
		if err != nil {
			return err
		}

		return printResponse(resp)
	},
}

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Check the terminal's state",
	Long:  `Send a diagnosis request and print the terminal's reported status`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		resp, err := c.Diagnosis(cmd.Context())
		if err != nil {
			return err
		}

		return printResponse(resp)
	},
}
