package commands

import (
	"context"
	"errors"
	"log/slog"

	"advisor-backend/lib/serviceutil"
	"advisor-backend/lib/telemetry"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Continuously syncs the current term's catalog on a schedule.",
	Run: func(cmd *cobra.Command, args []string) {
		service, cleanup := openService(serviceOverrides{})
		defer cleanup()

		ctx := serviceutil.SignalContext()
		telemetry.InstrumentPerfStats(ctx)

		err := service.Run(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			serviceutil.Fatal("catalog watcher stopped", err)
		}
		slog.Info("catalog watcher shut down")
	},
}
