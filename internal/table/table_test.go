package table

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sdmx-explorer/internal/domain"
	"sdmx-explorer/internal/sdmx"
)

// parse builds a table from CSV text the same way the client does.
func parse(t *testing.T, body string) *domain.ObservationTable {
	t.Helper()
	table, err := sdmx.ParseCSV("TEST", []byte(strings.TrimLeft(body, "\n")))
	require.NoError(t, err)
	return table
}

func TestNormalize_RenamesSynonyms(t *testing.T) {
	tests := []struct {
		name    string
		columns []string
		want    []string
	}{
		{
			name:    "geographic area",
			columns: []string{"Geographic area", "Coverage Indicators", "OBS_VALUE"},
			want:    []string{"Geographical area", "Indicator", "OBS_VALUE"},
		},
		{
			name:    "reference areas and lower-case coverage",
			columns: []string{"Reference Areas", "Coverage indicators"},
			want:    []string{"Geographical area", "Indicator"},
		},
		{
			name:    "canonical already present",
			columns: []string{"Geographical area", "Country", "Indicator", "Coverage Indicators"},
			want:    []string{"Geographical area", "Country", "Indicator", "Coverage Indicators"},
		},
		{
			name:    "two synonyms only first renamed",
			columns: []string{"Country", "Areas"},
			want:    []string{"Geographical area", "Areas"},
		},
		{
			name:    "nothing to rename",
			columns: []string{"TIME_PERIOD"},
			want:    []string{"TIME_PERIOD"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := &domain.ObservationTable{Columns: append([]string(nil), tt.columns...)}
			Normalize(table)
			assert.Equal(t, tt.want, table.Columns)
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := [][]string{
		{"Country", "Coverage Indicators", "OBS_VALUE"},
		{"Geo area", "Areas", "Indicator"},
		{"Geographical area", "Reference Areas"},
		{},
	}
	for _, cols := range inputs {
		once := &domain.ObservationTable{Columns: append([]string(nil), cols...)}
		Normalize(once)
		twice := once.Clone()
		Normalize(twice)
		assert.Equal(t, once.Columns, twice.Columns, "columns %v", cols)
	}
}

func TestRequireColumns(t *testing.T) {
	table := &domain.ObservationTable{Dataflow: "NUTRITION", Columns: []string{"Geographical area"}}
	err := RequireColumns(table, "Geographical area", "Indicator")
	var missing *domain.MissingColumnError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "Indicator", missing.Column)
	assert.Equal(t, "NUTRITION", missing.Dataflow)
	assert.NoError(t, RequireColumns(table, "Geographical area"))
}

func TestDefaultFilter(t *testing.T) {
	withTotal := parse(t, `
SEX,OBS_VALUE
F,1
_T,2
M,3
`)
	assert.Equal(t, EqualityFilter{Field: "SEX", Value: "_T"}, DefaultFilter(withTotal))

	withoutTotal := parse(t, `
SEX,OBS_VALUE
M,1
F,2
`)
	assert.Equal(t, EqualityFilter{Field: "SEX", Value: "F"}, DefaultFilter(withoutTotal))

	single := parse(t, `
SEX,OBS_VALUE
_T,1
_T,2
`)
	assert.False(t, DefaultFilter(single).Active())

	noSex := parse(t, "A,OBS_VALUE\nx,1\n")
	assert.False(t, DefaultFilter(noSex).Active())
}

func TestFilter(t *testing.T) {
	table := parse(t, `
SEX,TIME_PERIOD,OBS_VALUE
F,2020,1
_T,2020,2
_T,2021,x
`)
	out, err := Filter(table, EqualityFilter{Field: "SEX", Value: "_T"})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Len())
	require.Len(t, out.Values, 2)
	assert.InDelta(t, 2.0, out.Values[0], 1e-9)
	assert.True(t, math.IsNaN(out.Values[1]))
	assert.Equal(t, 3, table.Len(), "source table is untouched")

	_, err = Filter(table, EqualityFilter{Field: "AGE", Value: "Y0T4"})
	var missing *domain.MissingColumnError
	assert.ErrorAs(t, err, &missing)
}

func TestAggregate_MeanPerX(t *testing.T) {
	table := parse(t, `
TIME_PERIOD,OBS_VALUE
2021,5
2020,10
2020,20
`)
	agg, err := Aggregate(table, "TIME_PERIOD", "OBS_VALUE", "")
	require.NoError(t, err)

	require.Equal(t, 2, agg.Len())
	assert.Equal(t, "2020", agg.Points[0].X)
	assert.InDelta(t, 15.0, agg.Points[0].Y, 1e-9)
	assert.Equal(t, "2021", agg.Points[1].X)
	assert.InDelta(t, 5.0, agg.Points[1].Y, 1e-9)
	assert.Equal(t, []string{""}, agg.Groups())
}

func TestAggregate_WithGroupSkipsMissing(t *testing.T) {
	table := parse(t, `
TIME_PERIOD,Geographical area,OBS_VALUE
2020,Mali,4
2020,Chad,1
2020,Chad,
2020,Chad,3
2021,Chad,n/a
,Chad,9
`)
	agg, err := Aggregate(table, "TIME_PERIOD", "OBS_VALUE", "Geographical area")
	require.NoError(t, err)

	require.Equal(t, 3, agg.Len())
	assert.Equal(t, Point{X: "2020", Group: "Chad", Y: 2, Count: 2}, agg.Points[0])
	assert.Equal(t, Point{X: "2020", Group: "Mali", Y: 4, Count: 1}, agg.Points[1])
	assert.Equal(t, "2021", agg.Points[2].X)
	assert.True(t, math.IsNaN(agg.Points[2].Y))
	assert.Equal(t, 0, agg.Points[2].Count)
	assert.Equal(t, []string{"Chad", "Mali"}, agg.Groups())
}

func TestAggregate_NumericKeyOrder(t *testing.T) {
	table := parse(t, `
X,Y
10,1
9,2
100,3
`)
	agg, err := Aggregate(table, "X", "Y", "")
	require.NoError(t, err)
	var xs []string
	for _, p := range agg.Points {
		xs = append(xs, p.X)
	}
	assert.Equal(t, []string{"9", "10", "100"}, xs)
}

func TestAggregate_MixedKeyOrder(t *testing.T) {
	tests := []struct {
		name string
		csv  string
		want []string
	}{
		{"numbers before text", "X,Y\n1a,1\n10,2\n9,3\n", []string{"9", "10", "1a"}},
		{"input order does not matter", "X,Y\n9,1\n1a,2\n10,3\n", []string{"9", "10", "1a"}},
		{"text sorts lexically", "X,Y\nb,1\n2,2\na,3\n", []string{"2", "a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg, err := Aggregate(parse(t, tt.csv), "X", "Y", "")
			require.NoError(t, err)
			var xs []string
			for _, p := range agg.Points {
				xs = append(xs, p.X)
			}
			assert.Equal(t, tt.want, xs)
		})
	}
}

func TestCompareKeys_Total(t *testing.T) {
	keys := []string{"1a", "10", "9", "b", "2.5"}
	for _, a := range keys {
		for _, b := range keys {
			assert.Equal(t, -compareKeys(b, a), compareKeys(a, b), "%s vs %s", a, b)
			for _, c := range keys {
				if compareKeys(a, b) < 0 && compareKeys(b, c) < 0 {
					assert.Negative(t, compareKeys(a, c), "%s < %s < %s", a, b, c)
				}
			}
		}
	}
}

func TestAggregate_MissingColumn(t *testing.T) {
	table := parse(t, "TIME_PERIOD,OBS_VALUE\n2020,1\n")
	_, err := Aggregate(table, "TIME_PERIOD", "OBS_VALUE", "Indicator")
	var missing *domain.MissingColumnError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "Indicator", missing.Column)
}

func TestDefaultAxes(t *testing.T) {
	x, y := DefaultAxes(parse(t, "A,TIME_PERIOD,OBS_VALUE\n1,2,3\n"))
	assert.Equal(t, "TIME_PERIOD", x)
	assert.Equal(t, "OBS_VALUE", y)

	x, y = DefaultAxes(parse(t, "A,B\n1,2\n"))
	assert.Equal(t, "A", x)
	assert.Equal(t, "A", y)
}

func TestDefaultGrouping(t *testing.T) {
	tests := []struct {
		name string
		body string
		want Grouping
	}{
		{
			name: "three areas one indicator",
			body: "Geographical area,Indicator,OBS_VALUE\nChad,Stunting,1\nMali,Stunting,2\nNiger,Stunting,3\n",
			want: Grouping{Column: "Geographical area"},
		},
		{
			name: "one area three indicators",
			body: "Geographical area,Indicator,OBS_VALUE\nChad,Stunting,1\nChad,Wasting,2\nChad,Overweight,3\n",
			want: Grouping{Column: "Indicator"},
		},
		{
			name: "one area one indicator becomes title",
			body: "Geographical area,Indicator,OBS_VALUE\nChad,Stunting,1\nChad,Stunting,2\n",
			want: Grouping{Title: "Stunting"},
		},
		{
			name: "reference areas fallback",
			body: "Reference Areas,OBS_VALUE\nA,1\nB,2\n",
			want: Grouping{Column: "Reference Areas"},
		},
		{
			name: "sex fallback",
			body: "sex,OBS_VALUE\nF,1\n",
			want: Grouping{Column: "sex"},
		},
		{
			name: "nothing",
			body: "TIME_PERIOD,OBS_VALUE\n2020,1\n",
			want: Grouping{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultGrouping(parse(t, tt.body)))
		})
	}
}

func TestDefaultChartKind(t *testing.T) {
	assert.Equal(t, domain.ChartBar, DefaultChartKind(&Aggregated{}))
	assert.Equal(t, domain.ChartBar, DefaultChartKind(&Aggregated{Points: []Point{{X: "2020"}}}))
	assert.Equal(t, domain.ChartLine, DefaultChartKind(&Aggregated{Points: []Point{{X: "2020"}, {X: "2021"}}}))
}

func TestBuildView_Defaults(t *testing.T) {
	table := parse(t, `
Geographic area,Indicator,SEX,TIME_PERIOD,OBS_VALUE
Chad,Stunting,_T,2019,30
Chad,Stunting,F,2019,28
Mali,Stunting,_T,2019,20
Mali,Stunting,_T,2020,22
`)
	Normalize(table)

	v, err := BuildView(table, ViewOptions{})
	require.NoError(t, err)
	assert.Equal(t, EqualityFilter{Field: "SEX", Value: "_T"}, v.Filter)
	assert.Equal(t, 3, v.Filtered.Len())
	assert.Equal(t, "TIME_PERIOD", v.X)
	assert.Equal(t, "OBS_VALUE", v.Y)
	assert.Equal(t, "Geographical area", v.Group)
	assert.Empty(t, v.Title)
	assert.Equal(t, domain.ChartLine, v.Kind)
	assert.Equal(t, 3, v.Aggregated.Len())
}

func TestBuildView_Overrides(t *testing.T) {
	table := parse(t, `
Indicator,SEX,TIME_PERIOD,OBS_VALUE
Stunting,_T,2019,30
Stunting,F,2019,28
`)
	v, err := BuildView(table, ViewOptions{
		Filter: &EqualityFilter{},
		Group:  "none",
		Kind:   domain.ChartScatter,
	})
	require.NoError(t, err)
	assert.False(t, v.Filter.Active())
	assert.Equal(t, 2, v.Filtered.Len())
	assert.Empty(t, v.Group)
	assert.Equal(t, "Stunting", v.Title)
	assert.Equal(t, domain.ChartScatter, v.Kind)
	require.Equal(t, 1, v.Aggregated.Len())
	assert.InDelta(t, 29.0, v.Aggregated.Points[0].Y, 1e-9)

	v, err = BuildView(table, ViewOptions{Filter: &EqualityFilter{Field: "SEX"}})
	require.NoError(t, err)
	assert.Equal(t, "_T", v.Filter.Value, "value defaults for a chosen field")
	assert.Equal(t, domain.ChartBar, v.Kind, "a single point defaults to bar")
}
