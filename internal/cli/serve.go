package cli

import (
	"github.com/spf13/cobra"

	"BeerSync/internal/app"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the scheduled-trigger endpoint",
	Long: `Start the HTTP server exposing GET /api/cron/data-sync (bearer CRON_SECRET)
and GET /api/sync/runs/latest. With server.interval set, syncs also run on
that interval.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		application, err := app.New(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer application.Close()

		return application.Serve(ctx, serveAddr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default server.addr)")
}
