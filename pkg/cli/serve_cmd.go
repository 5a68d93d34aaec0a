package cli

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"sdmx-explorer/internal/server"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the explorer web UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.ListenAddr = listen
			}

			logger := opts.newLogger(cfg, cmd.ErrOrStderr())
			if cfg.IsProduction() {
				logger = slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.SlogLevel()}))
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := opts.newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			return server.Run(ctx, cfg, a, logger)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (default LISTEN_ADDR or :8080)")
	return cmd
}
