package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"sdmx-explorer/internal/app"
	"sdmx-explorer/internal/db/repository"
	"sdmx-explorer/internal/domain"
)

func newCacheCmd(opts *rootOptions) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or purge the SDMX response cache",
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", "", "Cache database (default CACHE_DB_PATH)")

	open := func(cmd *cobra.Command) (*repository.ResponseCacheRepo, func() error, error) {
		path := dbPath
		if path == "" {
			cfg, err := opts.loadConfig()
			if err != nil {
				return nil, nil, err
			}
			path = cfg.CacheDBPath
		}
		if path == "" {
			return nil, nil, domain.ErrValidation("no cache configured: set CACHE_DB_PATH or pass --db")
		}
		return app.OpenCache(cmd.Context(), path)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show how many responses are cached",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cache, closeFn, err := open(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			n, err := cache.Count(cmd.Context())
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]int64{"responses": n})
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d cached responses\n", n)
			return nil
		},
	})

	var olderThan time.Duration
	purge := &cobra.Command{
		Use:   "purge",
		Short: "Delete cached responses older than a duration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cache, closeFn, err := open(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			n, err := cache.Purge(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]int64{"purged": n})
			}
			newPrinter(cmd).successf("purged %d cached responses", n)
			return nil
		},
	}
	purge.Flags().DurationVar(&olderThan, "older-than", 0, "Only purge entries older than this (0 purges everything)")
	cmd.AddCommand(purge)

	return cmd
}
