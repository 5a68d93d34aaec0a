package ui

import (
	"net/http"

	"sdmx-explorer/internal/domain"
	"sdmx-explorer/internal/service/selection"

	. "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"
)

// selectionState is everything the selection form shows.
type selectionState struct {
	Selection    domain.Selection
	Options      selection.Options
	Candidates   []string
	AutoSelected bool
	Error        string
}

func selectionPage(r *http.Request, state selectionState) Node {
	sel := state.Selection
	level := sel.Level
	if level == "" {
		level = domain.LevelNational
	}

	levelRadios := make([]Node, 0, 2)
	for _, l := range []domain.Level{domain.LevelNational, domain.LevelSubnational} {
		id := "level-" + string(l)
		levelRadios = append(levelRadios, Div(
			Input(Type("radio"), ID(id), Name("level"), Value(string(l)), If(l == level, Checked())),
			Label(For(id), Style("display:inline;font-weight:normal"), Text(string(l))),
		))
	}

	var flows Node
	switch {
	case len(state.Candidates) > 1:
		flows = Div(
			Class(cardClass()),
			multiSelect("flows", "Data flows", state.Candidates, sel.Dataflows),
			P(Class(mutedClass()), Text("Several data flows match this selection. Pick at least one.")),
		)
	case state.AutoSelected && len(state.Candidates) == 1:
		flows = P(Class(mutedClass()), Text("Data flow: "+state.Candidates[0]))
	}

	return appPage("Selection",
		flashError(state.Error),
		Form(
			Method("post"),
			Action("/explore"),
			csrfField(r),
			Div(
				Class(cardClass("fields")),
				multiSelect("countries", "Countries", state.Options.Countries, sel.Countries),
				Div(Label(Text("Data level")), Group(levelRadios)),
				multiSelect("categories", "Categories", state.Options.Categories, sel.Categories),
				multiSelect("indicators", "Indicators", state.Options.Indicators, sel.Indicators),
			),
			flows,
			Div(
				Class("controls"),
				Button(Type("submit"), Name("action"), Value("refresh"), Class("btn"), Text("Update options")),
				Button(Type("submit"), Name("action"), Value("explore"), Class("btn btn-primary"), Text("Retrieve data")),
			),
		),
		P(Class(mutedClass()),
			Text("Choose countries, then categories and indicators. Subnational data allows one country and one indicator."),
		),
	)
}
