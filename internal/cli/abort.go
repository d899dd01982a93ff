package cli

import (
	"log/slog"

	"github.com/spf13/cobra"
)

var abortReason string

var abortCmd = &cobra.Command{
	Use:   "abort <service-id>",
	Short: "Abort an in-progress exchange",
	Long:  `Ask the terminal to cancel the exchange identified by the given ServiceID`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		appLogger.Info("abort requested",
			slog.String("service_id", args[0]),
			slog.String("reason", abortReason),
		)

		resp, err := c.Abort(cmd.Context(), args[0], abortReason)
		if err != nil {
			return err
		}

		return printResponse(resp)
	},
}

func init() {
	abortCmd.Flags().StringVar(&abortReason, "reason", "MerchantAbort", "abort reason reported to the terminal")
}
