package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"sdmx-explorer/internal/chart"
	"sdmx-explorer/internal/domain"
	"sdmx-explorer/internal/export"
	"sdmx-explorer/internal/service/explore"
	"sdmx-explorer/internal/table"
)

// viewFlags carries chart overrides shared by every retrieved dataflow.
type viewFlags struct {
	x      string
	y      string
	group  string
	kind   string
	filter string
}

func (f *viewFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.x, "x", "", "X axis column (default TIME_PERIOD)")
	fs.StringVar(&f.y, "y", "", "Y axis column (default OBS_VALUE)")
	fs.StringVar(&f.group, "group", "", "Grouping column, or None")
	fs.StringVar(&f.kind, "kind", "", "Chart type (line, bar, scatter)")
	fs.StringVar(&f.filter, "filter", "", "Equality filter FIELD=VALUE; FIELD= picks the default value, none disables")
}

func (f *viewFlags) options() (table.ViewOptions, error) {
	kind, err := domain.ParseChartKind(f.kind)
	if err != nil {
		return table.ViewOptions{}, err
	}
	opts := table.ViewOptions{X: f.x, Y: f.y, Group: f.group, Kind: kind}
	switch {
	case f.filter == "":
	case strings.EqualFold(f.filter, "none"):
		opts.Filter = &table.EqualityFilter{}
	default:
		field, value, ok := strings.Cut(f.filter, "=")
		if !ok || strings.TrimSpace(field) == "" {
			return table.ViewOptions{}, domain.ErrValidation("invalid filter %q: use FIELD=VALUE", f.filter)
		}
		opts.Filter = &table.EqualityFilter{Field: strings.TrimSpace(field), Value: strings.TrimSpace(value)}
	}
	return opts, nil
}

type outcomeJSON struct {
	Dataflow string `json:"dataflow"`
	OK       bool   `json:"ok"`
	Shape    int    `json:"shape,omitempty"`
	Status   int    `json:"status,omitempty"`
	URL      string `json:"url,omitempty"`
	Rows     int    `json:"rows"`
	Cached   bool   `json:"cached,omitempty"`
	Error    string `json:"error,omitempty"`
}

type pointJSON struct {
	X     string   `json:"x"`
	Group string   `json:"group,omitempty"`
	Y     *float64 `json:"y"`
}

type viewJSON struct {
	Dataflow   string      `json:"dataflow"`
	Rows       int         `json:"rows"`
	Indicators []string    `json:"indicators"`
	Filter     string      `json:"filter,omitempty"`
	X          string      `json:"x"`
	Y          string      `json:"y"`
	Group      string      `json:"group,omitempty"`
	Title      string      `json:"title,omitempty"`
	Kind       string      `json:"kind"`
	Points     []pointJSON `json:"points,omitempty"`
	Chart      string      `json:"chart,omitempty"`
	Error      string      `json:"error,omitempty"`
}

type exploreJSON struct {
	Selection string          `json:"selection"`
	Flows     []string        `json:"flows"`
	Outcomes  []outcomeJSON   `json:"outcomes"`
	Views     []viewJSON      `json:"views"`
	Exports   []export.Result `json:"exports,omitempty"`
}

func newExploreCmd(opts *rootOptions) *cobra.Command {
	var (
		sel      selectionFlags
		view     viewFlags
		dest     string
		parquet  bool
		chartDir string
		preview  int
	)

	cmd := &cobra.Command{
		Use:   "explore",
		Short: "Retrieve the dataflows for a selection, then summarize, chart or export them",
		Example: `  sdmx-explorer explore -c Chad -i "Height-for-age <-2 SD (stunting)"
  sdmx-explorer explore -c Chad -c Mali -i Stunting --all-flows --export exports --parquet
  sdmx-explorer explore -c Chad -l Subnational -i Stunting --chart charts --kind bar`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			selection, err := sel.selection()
			if err != nil {
				return err
			}
			viewOpts, err := view.options()
			if err != nil {
				return err
			}

			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if dest == "" {
				dest = opts.export
			}
			if dest != "" {
				if err := export.ApplyDestination(&cfg.Export, dest); err != nil {
					return err
				}
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("parquet") {
				cfg.Export.Parquet = parquet
			}

			logger := opts.newLogger(cfg, cmd.ErrOrStderr())
			a, err := opts.newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.Explore.Explore(cmd.Context(), selection)
			if err != nil {
				return err
			}

			out := exploreJSON{
				Selection: report.Selection.String(),
				Flows:     report.Flows,
				Outcomes:  outcomesJSON(report),
			}
			for _, name := range a.Store.Names() {
				out.Views = append(out.Views, buildViewJSON(a.Explore, name, viewOpts, chartDir, preview))
			}

			var exportErr error
			if dest != "" && len(report.Succeeded()) > 0 {
				out.Exports, exportErr = a.Explore.Export(cmd.Context())
			}

			if getOutputFormat(cmd) == "json" {
				if err := printJSON(cmd.OutOrStdout(), out); err != nil {
					return err
				}
			} else {
				printExploreTables(cmd, out, report)
			}

			if exportErr != nil {
				return fmt.Errorf("export: %w", exportErr)
			}
			if len(report.Succeeded()) == 0 {
				return fmt.Errorf("no dataflow returned data")
			}
			return nil
		},
	}

	sel.register(cmd.Flags(), true)
	view.register(cmd.Flags())
	cmd.Flags().StringVar(&dest, "export", "", "Export destination: a directory or s3://, gs://, az:// URI")
	cmd.Flags().BoolVar(&parquet, "parquet", false, "Also export Parquet files")
	cmd.Flags().StringVar(&chartDir, "chart", "", "Write a PNG chart per dataflow into this directory")
	cmd.Flags().IntVar(&preview, "preview", 10, "Aggregated points to show per dataflow (0 for none)")

	return cmd
}

func outcomesJSON(report *explore.Report) []outcomeJSON {
	out := make([]outcomeJSON, 0, len(report.Outcomes))
	for _, o := range report.Outcomes {
		j := outcomeJSON{
			Dataflow: o.Dataflow,
			OK:       o.OK(),
			Status:   o.Status,
			URL:      o.URL,
			Rows:     o.Rows,
			Cached:   o.Cached,
		}
		if o.Tier >= 0 {
			j.Shape = o.Tier + 1
		}
		if o.Err != nil {
			j.Error = o.Err.Error()
		}
		out = append(out, j)
	}
	for _, e := range report.ResolveErrors {
		out = append(out, outcomeJSON{Error: e.Error()})
	}
	return out
}

func buildViewJSON(svc *explore.Service, flow string, opts table.ViewOptions, chartDir string, preview int) viewJSON {
	j := viewJSON{Dataflow: flow}
	t, err := svc.Table(flow)
	if err != nil {
		j.Error = err.Error()
		return j
	}
	j.Rows = t.Len()
	j.Indicators = table.Distinct(t, domain.ColumnIndicator)

	v, err := svc.View(flow, opts)
	if err != nil {
		j.Error = err.Error()
		return j
	}
	if v.Filter.Active() {
		j.Filter = v.Filter.Field + "=" + v.Filter.Value
	}
	j.X, j.Y, j.Group, j.Title, j.Kind = v.X, v.Y, v.Group, v.Title, string(v.Kind)
	for i, p := range v.Aggregated.Points {
		if i >= preview {
			break
		}
		pt := pointJSON{X: p.X, Group: p.Group}
		if p.Count > 0 {
			y := p.Y
			pt.Y = &y
		}
		j.Points = append(j.Points, pt)
	}

	if chartDir != "" {
		path, err := writeChart(chartDir, v)
		if err != nil {
			j.Error = err.Error()
			return j
		}
		j.Chart = path
	}
	return j
}

func writeChart(dir string, v *table.View) (string, error) {
	var buf bytes.Buffer
	if err := chart.Render(&buf, v, chart.Options{}); err != nil {
		return "", fmt.Errorf("render chart %s: %w", v.Dataflow, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create chart dir: %w", err)
	}
	name := strings.TrimSuffix(export.FileName(v.Dataflow, "png"), "_data.png") + "_chart.png"
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write chart: %w", err)
	}
	return path, nil
}

// outcomeRow formats one retrieval outcome. A failed outcome has no shape.
func outcomeRow(o outcomeJSON) []string {
	status, shape := "ok", "-"
	if !o.OK {
		status = "failed"
	}
	if o.Shape > 0 {
		shape = strconv.Itoa(o.Shape)
	}
	detail := o.URL
	if o.Error != "" {
		detail = o.Error
	}
	if o.Cached {
		status += " (cached)"
	}
	return []string{o.Dataflow, status, shape, strconv.Itoa(o.Rows), detail}
}

func printExploreTables(cmd *cobra.Command, out exploreJSON, report *explore.Report) {
	w := cmd.OutOrStdout()
	p := newPrinter(cmd)

	p.headingf("Retrieval")
	rows := make([][]string, 0, len(out.Outcomes))
	for _, o := range out.Outcomes {
		rows = append(rows, outcomeRow(o))
	}
	printTable(w, []string{"Dataflow", "Status", "Shape", "Rows", "URL / Error"}, rows)

	for _, v := range out.Views {
		p.headingf("\n%s", v.Dataflow)
		if v.Error != "" {
			p.warnf("  %s", v.Error)
			continue
		}
		p.infof("  rows: %d", v.Rows)
		p.infof("  indicators: %s", strings.Join(v.Indicators, "; "))
		if v.Filter != "" {
			p.infof("  filter: %s", v.Filter)
		}
		p.infof("  chart: %s of %s by %s", v.Kind, v.Y, v.X)
		if v.Chart != "" {
			p.successf("  chart written to %s", v.Chart)
		}
		if len(v.Points) > 0 {
			points := make([][]string, 0, len(v.Points))
			for _, pt := range v.Points {
				y := ""
				if pt.Y != nil {
					y = strconv.FormatFloat(*pt.Y, 'f', -1, 64)
				}
				points = append(points, []string{pt.X, pt.Group, y})
			}
			printTable(w, []string{v.X, "Group", "Mean " + v.Y}, points)
		}
	}

	for _, r := range out.Exports {
		for _, loc := range r.Locations {
			p.successf("exported %s to %s", r.Dataflow, loc)
		}
	}
	if failed := report.Failed(); len(failed) > 0 {
		p.warnf("%d of %d dataflows returned no data", len(failed), len(report.Outcomes))
	}
}
