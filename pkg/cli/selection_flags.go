package cli

import (
	"github.com/spf13/pflag"

	"sdmx-explorer/internal/domain"
)

// selectionFlags binds the selection to repeatable or comma-separated flags.
type selectionFlags struct {
	countries  []string
	level      string
	categories []string
	indicators []string
	flows      []string
	allFlows   bool
}

func (f *selectionFlags) register(fs *pflag.FlagSet, withFlows bool) {
	fs.StringSliceVarP(&f.countries, "country", "c", nil, "Country name (repeatable)")
	fs.StringVarP(&f.level, "level", "l", string(domain.LevelNational), "Data level (National, Subnational)")
	fs.StringSliceVar(&f.categories, "category", nil, "Category (repeatable)")
	fs.StringSliceVarP(&f.indicators, "indicator", "i", nil, "Indicator (repeatable)")
	if withFlows {
		fs.StringSliceVarP(&f.flows, "flow", "f", nil, "Dataflow to retrieve when several match (repeatable)")
		fs.BoolVar(&f.allFlows, "all-flows", false, "Retrieve every matching dataflow")
	}
}

func (f *selectionFlags) selection() (domain.Selection, error) {
	level, err := domain.ParseLevel(f.level)
	if err != nil {
		return domain.Selection{}, err
	}
	sel := domain.Selection{
		Countries:    f.countries,
		Level:        level,
		Categories:   f.categories,
		Indicators:   f.indicators,
		Dataflows:    f.flows,
		AllDataflows: f.allFlows,
	}
	sel.Normalize()
	return sel, nil
}
