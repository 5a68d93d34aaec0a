package cli

import (
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"sdmx-explorer/internal/catalog"
	"sdmx-explorer/internal/config"
	"sdmx-explorer/internal/sdmx"
	"sdmx-explorer/internal/service/selection"
)

func newCatalogCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Browse the reference catalog",
	}
	cmd.AddCommand(newCatalogCountriesCmd(opts))
	cmd.AddCommand(newCatalogOptionsCmd(opts))
	cmd.AddCommand(newCatalogFlowsCmd(opts))
	return cmd
}

// catalogEnv is the catalog side of the app, without cache or export sinks.
type catalogEnv struct {
	cfg       *config.Config
	logger    *slog.Logger
	selection *selection.Service
}

func (o *rootOptions) loadCatalog(cmd *cobra.Command) (*catalogEnv, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	logger := o.newLogger(cfg, cmd.ErrOrStderr())
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}
	return &catalogEnv{cfg: cfg, logger: logger, selection: selection.NewService(cat, logger)}, nil
}

func newCatalogCountriesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "countries",
		Short: "List the countries in the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := opts.loadCatalog(cmd)
			if err != nil {
				return err
			}
			countries := env.selection.Catalog().Countries()
			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), countries)
			}
			printTable(cmd.OutOrStdout(), []string{"Country"}, column(countries))
			return nil
		},
	}
}

func newCatalogOptionsCmd(opts *rootOptions) *cobra.Command {
	var flags selectionFlags
	cmd := &cobra.Command{
		Use:   "options",
		Short: "Show the categories and indicators available for a partial selection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sel, err := flags.selection()
			if err != nil {
				return err
			}
			env, err := opts.loadCatalog(cmd)
			if err != nil {
				return err
			}
			options := env.selection.Options(sel)
			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), map[string][]string{
					"categories": options.Categories,
					"indicators": options.Indicators,
				})
			}
			p := newPrinter(cmd)
			p.headingf("Categories")
			printTable(cmd.OutOrStdout(), []string{"Category"}, column(options.Categories))
			p.headingf("Indicators")
			printTable(cmd.OutOrStdout(), []string{"Indicator"}, column(options.Indicators))
			return nil
		},
	}
	flags.register(cmd.Flags(), false)
	return cmd
}

type flowPlan struct {
	Dataflow     string   `json:"dataflow"`
	Agency       string   `json:"agency"`
	DataflowID   string   `json:"dataflow_id"`
	GeographyIDs []string `json:"geography_ids"`
	IndicatorIDs []string `json:"indicator_ids"`
	URLs         []string `json:"urls"`
}

func newCatalogFlowsCmd(opts *rootOptions) *cobra.Command {
	var flags selectionFlags
	cmd := &cobra.Command{
		Use:   "flows",
		Short: "Show the dataflows a selection resolves to, with the URLs that would be tried",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sel, err := flags.selection()
			if err != nil {
				return err
			}
			env, err := opts.loadCatalog(cmd)
			if err != nil {
				return err
			}
			res, err := env.selection.Apply(sel)
			if err != nil {
				return err
			}
			client := sdmx.NewClient(sdmx.Options{BaseURL: env.cfg.SDMX.BaseURL, Version: env.cfg.SDMX.Version}, env.logger)
			queries, errs := sdmx.Resolve(res, sel, res.CandidateFlows)

			plans := make([]flowPlan, 0, len(queries))
			for _, q := range queries {
				plans = append(plans, flowPlan{
					Dataflow:     q.DataflowName,
					Agency:       q.Agency,
					DataflowID:   q.DataflowID,
					GeographyIDs: q.GeographyIDs,
					IndicatorIDs: q.IndicatorIDs,
					URLs:         client.URLs(q),
				})
			}

			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"auto_selected": res.AutoSelected,
					"flows":         plans,
				})
			}
			p := newPrinter(cmd)
			rows := make([][]string, 0, len(plans))
			for _, pl := range plans {
				primary := ""
				if len(pl.URLs) > 0 {
					primary = pl.URLs[0]
				}
				rows = append(rows, []string{
					pl.Dataflow,
					pl.Agency + ":" + pl.DataflowID,
					strings.Join(pl.GeographyIDs, "+"),
					strings.Join(pl.IndicatorIDs, "+"),
					primary,
				})
			}
			printTable(cmd.OutOrStdout(), []string{"Dataflow", "ID", "Geography", "Indicators", "Primary URL"}, rows)
			if res.AutoSelected {
				p.infof("Single dataflow: selected automatically.")
			} else {
				p.infof("%d dataflows match: pass --flow or --all-flows to explore.", len(plans))
			}
			for _, e := range errs {
				p.warnf("%v", e)
			}
			return nil
		},
	}
	flags.register(cmd.Flags(), false)
	return cmd
}

func column(values []string) [][]string {
	rows := make([][]string, 0, len(values))
	for _, v := range values {
		rows = append(rows, []string{v})
	}
	return rows
}
