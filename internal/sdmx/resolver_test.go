package sdmx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sdmx-explorer/internal/domain"
)

func chadRow() domain.CatalogRow {
	return domain.CatalogRow{
		Country: "Chad", National: true, Category: "Nutrition", Indicator: "Stunting",
		IndicatorID: "NT_STA", DataflowName: "NUTRITION", Agency: "UNICEF", DataflowID: "X1",
		Geography: "Chad", GeographyID: "TCD",
	}
}

func TestResolve_ChadScenario(t *testing.T) {
	res := &domain.SelectionResult{Rows: []domain.CatalogRow{chadRow()}, CandidateFlows: []string{"NUTRITION"}, AutoSelected: true}
	sel := domain.Selection{Countries: []string{"Chad"}, Level: domain.LevelNational, Indicators: []string{"Stunting"}}

	queries, errs := Resolve(res, sel, res.CandidateFlows)
	require.Empty(t, errs)
	require.Len(t, queries, 1)

	q := queries[0]
	assert.Equal(t, domain.DataflowQuery{
		DataflowName:   "NUTRITION",
		Agency:         "UNICEF",
		DataflowID:     "X1",
		GeographyIDs:   []string{"TCD"},
		GeographyNames: []string{"Chad"},
		IndicatorIDs:   []string{"NT_STA"},
	}, q)

	primary := DataURL("https://sdmx.data.unicef.org/ws/public/sdmxapi/rest", "1.0", q, ShapePrimary)
	assert.Equal(t,
		"https://sdmx.data.unicef.org/ws/public/sdmxapi/rest/data/UNICEF,X1,1.0/TCD.NT_STA?format=csv&labels=both",
		primary)
}

func TestResolve_DeduplicatesInOrder(t *testing.T) {
	mali := chadRow()
	mali.Country, mali.Geography, mali.GeographyID = "Mali", "Mali", "MLI"
	wasting := chadRow()
	wasting.Indicator, wasting.IndicatorID = "Wasting", "NT_WST"

	res := &domain.SelectionResult{Rows: []domain.CatalogRow{chadRow(), mali, chadRow(), wasting}}
	sel := domain.Selection{Countries: []string{"Mali", "Chad"}, Indicators: []string{"Stunting", "Wasting"}}

	queries, errs := Resolve(res, sel, []string{"NUTRITION"})
	require.Empty(t, errs)
	require.Len(t, queries, 1)
	assert.Equal(t, []string{"TCD", "MLI"}, queries[0].GeographyIDs, "row order, not selection order")
	assert.Equal(t, []string{"NT_STA", "NT_WST"}, queries[0].IndicatorIDs)
}

// Subnational queries leave geography unconstrained; the server infers it from
// the dataflow. Pinned here so a change is visible.
func TestResolve_SubnationalHasEmptyGeography(t *testing.T) {
	r := chadRow()
	r.National = false
	r.DataflowName = "NUTRITION_SUB"
	res := &domain.SelectionResult{Rows: []domain.CatalogRow{r}}
	sel := domain.Selection{Countries: []string{"Chad"}, Level: domain.LevelSubnational, Indicators: []string{"Stunting"}}

	queries, errs := Resolve(res, sel, []string{"NUTRITION_SUB"})
	require.Empty(t, errs)
	require.Len(t, queries, 1)
	assert.Empty(t, queries[0].GeographyIDs)
	assert.Empty(t, queries[0].GeographyNames)
	assert.Equal(t, []string{"NT_STA"}, queries[0].IndicatorIDs)

	assert.Equal(t, ".NT_STA", ShapePrimary.Key(queries[0]))
	assert.Equal(t, "...NT_STA", ShapeLeadingSlot.Key(queries[0]))
	assert.Equal(t, "NT_STA...", ShapeIndicatorFirst.Key(queries[0]))
}

func TestResolve_UnknownFlow(t *testing.T) {
	res := &domain.SelectionResult{Rows: []domain.CatalogRow{chadRow()}}
	sel := domain.Selection{Countries: []string{"Chad"}, Indicators: []string{"Stunting"}}

	queries, errs := Resolve(res, sel, []string{"MISSING", "NUTRITION"})
	require.Len(t, queries, 1)
	require.Len(t, errs, 1)
	var nf *domain.NotFoundError
	require.ErrorAs(t, errs[0], &nf)
	assert.Contains(t, nf.Message, "MISSING")
}
