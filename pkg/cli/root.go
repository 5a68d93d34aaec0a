package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"sdmx-explorer/internal/app"
	"sdmx-explorer/internal/config"
	"sdmx-explorer/internal/domain"
)

var (
	version = "dev"
	commit  = "none"
)

// rootOptions holds the persistent flags after precedence has been applied.
type rootOptions struct {
	baseURL string
	catalog string
	output  string
	profile string
	quiet   bool
	noColor bool

	// export is the profile's default export destination.
	export string
}

// Execute runs the CLI.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		output, _ := rootCmd.PersistentFlags().GetString("output")
		if output == "json" {
			_ = printJSON(os.Stdout, map[string]string{
				"error": err.Error(),
				"kind":  errorKind(err),
			})
		} else {
			label := "Error:"
			if isTerminal(os.Stderr) && !color.NoColor {
				label = color.New(color.FgRed, color.Bold).Sprint(label)
			}
			fmt.Fprintf(os.Stderr, "%s %v\n", label, err)
		}
		return 1
	}
	return 0
}

// errorKind classifies err for machine-readable output.
func errorKind(err error) string {
	var (
		validation *domain.ValidationError
		notFound   *domain.NotFoundError
		fetch      *domain.FetchError
		missing    *domain.MissingColumnError
	)
	switch {
	case errors.As(err, &validation):
		return "validation"
	case errors.As(err, &notFound):
		return "not_found"
	case errors.As(err, &fetch):
		return "fetch"
	case errors.As(err, &missing):
		return "missing_column"
	default:
		return "error"
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "sdmx-explorer",
		Short:         "Explore UNICEF SDMX indicator data",
		Long:          "Select countries, categories and indicators from a reference catalog, retrieve the matching SDMX dataflows, and chart or export them.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadDotEnv(".env"); err != nil {
				return err
			}

			userCfg, err := LoadUserConfig()
			if err != nil {
				// Config file is optional
				userCfg = emptyUserConfig()
			}
			p, err := userCfg.ActiveProfile(opts.profile)
			if err != nil {
				return err
			}

			// Apply precedence: flag > env > profile > default
			opts.baseURL = resolve(cmd, "base-url", opts.baseURL, "SDMX_BASE_URL", p.BaseURL, "")
			opts.catalog = resolve(cmd, "catalog", opts.catalog, "CATALOG_PATH", p.Catalog, "")
			opts.output = resolve(cmd, "output", opts.output, "SDMX_OUTPUT", p.Output, "table")
			opts.export = p.Export
			if err := validateOutputFormat(opts.output); err != nil {
				return err
			}
			// Later readers go through the flag set.
			_ = cmd.Root().PersistentFlags().Set("output", opts.output)

			configureColor(opts.noColor)
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.baseURL, "base-url", "", "SDMX REST base URL")
	flags.StringVar(&opts.catalog, "catalog", "", "Reference catalog CSV")
	flags.StringVarP(&opts.output, "output", "o", "table", "Output format (table, json)")
	flags.StringVarP(&opts.profile, "profile", "p", "", "Config profile to use")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "Only print results and warnings")
	flags.BoolVar(&opts.noColor, "no-color", false, "Disable coloured output")

	rootCmd.AddCommand(newCatalogCmd(opts))
	rootCmd.AddCommand(newExploreCmd(opts))
	rootCmd.AddCommand(newServeCmd(opts))
	rootCmd.AddCommand(newCacheCmd(opts))
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newCompletionCmd())

	return rootCmd
}

// resolve applies flag > env > profile > def for one setting.
func resolve(cmd *cobra.Command, flag, flagValue, envKey, profileValue, def string) string {
	if cmd.Flags().Changed(flag) {
		return flagValue
	}
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	if profileValue != "" {
		return profileValue
	}
	return def
}

// loadConfig reads the environment and applies the resolved flags.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if o.baseURL != "" {
		cfg.SDMX.BaseURL = o.baseURL
	}
	if o.catalog != "" {
		cfg.CatalogPath = o.catalog
	}
	return cfg, nil
}

// newLogger builds the CLI logger. Quiet raises the level to warn.
func (o *rootOptions) newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	level := cfg.SlogLevel()
	if o.quiet && level < slog.LevelWarn {
		level = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// newApp loads configuration, logs its warnings and wires the application.
func (o *rootOptions) newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app.App, error) {
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}
	return app.New(ctx, app.Deps{Cfg: cfg, Logger: logger})
}

func newCompletionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			default:
				return fmt.Errorf("unsupported shell: %s", args[0])
			}
		},
	}
	return cmd
}
