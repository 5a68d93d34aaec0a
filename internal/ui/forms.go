package ui

import (
	"net/url"
	"strings"

	"sdmx-explorer/internal/domain"
	"sdmx-explorer/internal/table"
)

func formString(values url.Values, key string) string {
	if values == nil {
		return ""
	}
	return strings.TrimSpace(first(values[key]))
}

// formList returns every non-empty value of a multi-select field.
func formList(values url.Values, key string) []string {
	if values == nil {
		return nil
	}
	return domain.UniqueStrings(values[key])
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// selectionFromForm reads the selection fields posted by the selection form.
func selectionFromForm(values url.Values) (domain.Selection, error) {
	level, err := domain.ParseLevel(formString(values, "level"))
	if err != nil {
		return domain.Selection{}, err
	}
	sel := domain.Selection{
		Countries:  formList(values, "countries"),
		Level:      level,
		Categories: formList(values, "categories"),
		Indicators: formList(values, "indicators"),
		Dataflows:  formList(values, "flows"),
	}
	sel.Normalize()
	return sel, nil
}

// viewOptionsFromQuery reads chart overrides. Absent parameters keep the defaults;
// "field" present with an empty value disables the filter.
func viewOptionsFromQuery(q url.Values) (table.ViewOptions, error) {
	kind, err := domain.ParseChartKind(q.Get("kind"))
	if err != nil {
		return table.ViewOptions{}, err
	}
	opts := table.ViewOptions{
		X:     strings.TrimSpace(q.Get("x")),
		Y:     strings.TrimSpace(q.Get("y")),
		Group: strings.TrimSpace(q.Get("group")),
		Kind:  kind,
	}
	if _, ok := q["field"]; ok {
		opts.Filter = &table.EqualityFilter{
			Field: strings.TrimSpace(q.Get("field")),
			Value: strings.TrimSpace(q.Get("value")),
		}
	}
	return opts, nil
}

// viewQuery renders a built view back into chart query parameters.
func viewQuery(v *table.View) url.Values {
	q := url.Values{}
	q.Set("x", v.X)
	q.Set("y", v.Y)
	if v.Group == "" {
		q.Set("group", table.GroupNone)
	} else {
		q.Set("group", v.Group)
	}
	q.Set("field", v.Filter.Field)
	q.Set("value", v.Filter.Value)
	q.Set("kind", string(v.Kind))
	return q
}
