package ui

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"sdmx-explorer/internal/domain"
	"sdmx-explorer/internal/export"
	"sdmx-explorer/internal/session"
	"sdmx-explorer/internal/table"

	. "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"
)

type resultCard struct {
	Entry      *session.Entry
	Indicators []string
	View       *table.View
	ViewErr    error
}

type resultsState struct {
	Selection domain.Selection
	Cards     []resultCard
	Failed    []domain.FetchOutcome
	Notices   []string
	Error     string
}

func flowPath(flow, suffix string) string {
	return "/results/" + url.PathEscape(flow) + "/" + suffix
}

func resultsPage(r *http.Request, state resultsState) Node {
	if len(state.Cards) == 0 && len(state.Failed) == 0 {
		return appPage("Results",
			flashError(state.Error),
			P(Text("No data has been retrieved yet. "), A(Href("/"), Text("Make a selection."))),
		)
	}

	notices := make([]Node, 0, len(state.Notices))
	for _, n := range state.Notices {
		notices = append(notices, Li(Text(n)))
	}
	var noticeBox Node
	if len(notices) > 0 {
		noticeBox = Div(Class(cardClass()), Ul(Group(notices)))
	}

	cards := make([]Node, 0, len(state.Cards))
	for _, c := range state.Cards {
		cards = append(cards, resultCardView(c))
	}

	return appPage("Results",
		flashError(state.Error),
		P(Class(mutedClass()), Text(state.Selection.String())),
		failedOutcomes(state.Failed),
		noticeBox,
		Div(
			Class("controls mb-3"),
			Form(Method("post"), Action("/refresh"), csrfField(r),
				Button(Type("submit"), Class("btn"), Text("Refresh data"))),
			Form(Method("post"), Action("/export"), csrfField(r),
				Button(Type("submit"), Class("btn"), Text("Export all"))),
		),
		Group(cards),
	)
}

func failedOutcomes(failed []domain.FetchOutcome) Node {
	if len(failed) == 0 {
		return nil
	}
	items := make([]Node, 0, len(failed))
	for _, o := range failed {
		msg := "no data"
		if o.Err != nil {
			msg = o.Err.Error()
		}
		items = append(items, Li(Strong(Text(o.Dataflow)), Text(": "+msg)))
	}
	return Div(Class("flash-warn"),
		P(Text("Some data flows could not be retrieved:")),
		Ul(Group(items)),
	)
}

func resultCardView(c resultCard) Node {
	t := c.Entry.Table
	o := c.Entry.Outcome
	flow := t.Dataflow

	meta := fmt.Sprintf("%d rows, fetched %s", t.Len(), formatTime(c.Entry.FetchedAt))
	if o.URL != "" {
		meta += fmt.Sprintf(", query shape %d", o.Tier+1)
	}
	if o.Cached {
		meta += ", from cache"
	}

	indicators := "none"
	if len(c.Indicators) > 0 {
		indicators = strings.Join(c.Indicators, "; ")
	}

	rows := t
	var chartNode, filterNode Node
	if c.ViewErr != nil {
		chartNode = flashError(c.ViewErr.Error())
	} else {
		v := c.View
		rows = v.Filtered
		chartNode = Img(
			Class("chart"),
			Src(flowPath(flow, "chart.png")+"?"+viewQuery(v).Encode()),
			Alt("Chart for "+flow),
		)
		filterNode = P(Class(mutedClass()), Text(filterLabel(v.Filter)))
	}

	return Section(
		ID("flow-"+flow),
		Class(cardClass()),
		H3(Text(flow)),
		P(Class(mutedClass()), Text(meta)),
		If(o.URL != "", P(Class(mutedClass()), Code(Text(o.URL)))),
		P(Strong(Text("Indicators: ")), Text(indicators)),
		filterNode,
		chartControls(c),
		chartNode,
		P(A(Href(flowPath(flow, "data.csv")), Text("Download "+export.FileName(flow, "csv")))),
		dataTable(rows, maxTableRows),
	)
}

func filterLabel(f table.EqualityFilter) string {
	if !f.Active() {
		return "Filter: none"
	}
	return fmt.Sprintf("Filter: %s = %s", f.Field, f.Value)
}

// chartControls renders the per-dataflow override form. It submits to the
// results page, which applies the overrides to this dataflow only.
func chartControls(c resultCard) Node {
	t := c.Entry.Table
	x, y := table.DefaultAxes(t)
	group, field, value, kind := "", "", "", ""
	if c.View != nil {
		x, y = c.View.X, c.View.Y
		group = c.View.Group
		field, value = c.View.Filter.Field, c.View.Filter.Value
		kind = string(c.View.Kind)
	}
	if group == "" {
		group = table.GroupNone
	}

	kinds := make([]string, 0, len(domain.ChartKinds))
	for _, k := range domain.ChartKinds {
		kinds = append(kinds, string(k))
	}

	return Form(
		Method("get"),
		Action("/results#flow-"+t.Dataflow),
		Class("controls mb-3"),
		Input(Type("hidden"), Name("flow"), Value(t.Dataflow)),
		singleSelect("x", "X axis", t.Columns, x),
		singleSelect("y", "Y axis", t.Columns, y),
		singleSelect("group", "Group by", append([]string{table.GroupNone}, t.Columns...), group),
		singleSelect("kind", "Chart", kinds, kind),
		singleSelect("field", "Filter column", append([]string{""}, t.Columns...), field),
		Div(
			Label(For("value"), Text("Filter value")),
			Input(Type("text"), ID("value"), Name("value"), Value(value)),
		),
		Button(Type("submit"), Class("btn"), Text("Update chart")),
	)
}

func dataTable(t *domain.ObservationTable, limit int) Node {
	head := make([]Node, 0, len(t.Columns))
	for _, c := range t.Columns {
		head = append(head, Th(Text(c)))
	}
	n := t.Len()
	if n > limit {
		n = limit
	}
	body := make([]Node, 0, n)
	for i := 0; i < n; i++ {
		cells := make([]Node, 0, len(t.Columns))
		for col := range t.Columns {
			cells = append(cells, Td(Text(t.Cell(i, col))))
		}
		body = append(body, Tr(Group(cells)))
	}

	var caption Node
	if t.Len() > limit {
		caption = P(Class(mutedClass()), Textf("Showing the first %d of %d rows.", limit, t.Len()))
	}
	return Div(
		caption,
		Div(Class("scroll"),
			Table(THead(Tr(Group(head))), TBody(Group(body))),
		),
	)
}
