package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// getOutputFormat returns the effective output format from the root command's persistent flags.
func getOutputFormat(cmd *cobra.Command) string {
	v, _ := cmd.Root().PersistentFlags().GetString("output")
	return v
}

func validateOutputFormat(output string) error {
	if output != "" && output != "table" && output != "json" {
		return fmt.Errorf("unsupported output format %q: use 'table' or 'json'", output)
	}
	return nil
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printTable renders rows under headers.
func printTable(w io.Writer, headers []string, rows [][]string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(headers)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.AppendBulk(rows)
	table.Render()
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// configureColor turns colour off for --no-color or when stdout is not a terminal.
func configureColor(noColor bool) {
	color.NoColor = noColor || !isTerminal(os.Stdout)
}

// printer writes human-readable status lines. Quiet suppresses everything but warnings.
type printer struct {
	out   io.Writer
	quiet bool
}

func newPrinter(cmd *cobra.Command) *printer {
	quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet")
	return &printer{out: cmd.OutOrStdout(), quiet: quiet}
}

func (p *printer) successf(format string, args ...any) {
	if p.quiet {
		return
	}
	_, _ = color.New(color.FgGreen).Fprintf(p.out, format+"\n", args...)
}

func (p *printer) infof(format string, args ...any) {
	if p.quiet {
		return
	}
	_, _ = fmt.Fprintf(p.out, format+"\n", args...)
}

func (p *printer) headingf(format string, args ...any) {
	if p.quiet {
		return
	}
	_, _ = color.New(color.FgCyan, color.Bold).Fprintf(p.out, format+"\n", args...)
}

func (p *printer) warnf(format string, args ...any) {
	_, _ = color.New(color.FgYellow).Fprintf(p.out, format+"\n", args...)
}
