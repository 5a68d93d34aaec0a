package explore

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sdmx-explorer/internal/catalog"
	"sdmx-explorer/internal/domain"
	"sdmx-explorer/internal/export"
	"sdmx-explorer/internal/sdmx"
	"sdmx-explorer/internal/service/selection"
	"sdmx-explorer/internal/session"
	"sdmx-explorer/internal/table"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func row(country, indicator, indicatorID, flow, geoID string) domain.CatalogRow {
	return domain.CatalogRow{
		Country: country, National: true, Category: "Nutrition",
		Indicator: indicator, IndicatorID: indicatorID, DataflowName: flow,
		Agency: "UNICEF", DataflowID: flow + "_ID", Geography: country, GeographyID: geoID,
	}
}

func testCatalog() *catalog.Catalog {
	return catalog.New([]domain.CatalogRow{
		row("Chad", "Stunting", "NT_STA", "NUTRITION", "TCD"),
		row("Chad", "Stunting", "NT_STA", "GLOBAL_DATAFLOW", "TCD"),
		row("Mali", "Stunting", "NT_STA", "NUTRITION", "MLI"),
	})
}

// fakeFetcher serves canned tables and records the queries it saw.
type fakeFetcher struct {
	bodies  map[string]string
	queries []domain.DataflowQuery
}

func (f *fakeFetcher) FetchAll(_ context.Context, queries []domain.DataflowQuery) (map[string]*domain.ObservationTable, []domain.FetchOutcome) {
	f.queries = append(f.queries, queries...)
	tables := make(map[string]*domain.ObservationTable)
	var outcomes []domain.FetchOutcome
	for _, q := range queries {
		body, ok := f.bodies[q.DataflowName]
		if !ok {
			outcomes = append(outcomes, domain.FetchOutcome{
				Dataflow: q.DataflowName, Tier: -1, Status: 404,
				Err: domain.ErrFetch(q.DataflowName, 404, "u", nil),
			})
			continue
		}
		t, err := sdmx.ParseCSV(q.DataflowName, []byte(body))
		if err != nil {
			panic(err)
		}
		tables[q.DataflowName] = t
		outcomes = append(outcomes, domain.FetchOutcome{Dataflow: q.DataflowName, Tier: 0, Status: 200, Rows: t.Len()})
	}
	return tables, outcomes
}

const nutritionCSV = "Geographic area,Indicator,SEX,TIME_PERIOD,OBS_VALUE\n" +
	"Chad,Stunting,_T,2019,30\nChad,Stunting,F,2019,28\nMali,Stunting,_T,2019,20\n"

func newService(f BatchFetcher, exporter *export.Exporter) *Service {
	logger := discardLogger()
	return NewService(selection.NewService(testCatalog(), logger), f, session.NewStore(), exporter, logger)
}

func TestExplore_StoresSucceededFlows(t *testing.T) {
	f := &fakeFetcher{bodies: map[string]string{"NUTRITION": nutritionCSV}}
	svc := newService(f, nil)

	report, err := svc.Explore(context.Background(), domain.Selection{
		Countries:    []string{"Chad"},
		Indicators:   []string{"Stunting"},
		AllDataflows: true,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"GLOBAL_DATAFLOW", "NUTRITION"}, report.Flows)
	assert.False(t, report.Result.AutoSelected)
	assert.Equal(t, []string{"NUTRITION"}, report.Succeeded())
	require.Len(t, report.Failed(), 1)
	assert.Equal(t, "GLOBAL_DATAFLOW", report.Failed()[0].Dataflow)

	assert.Equal(t, []string{"NUTRITION"}, svc.Store().Names())
	tbl, err := svc.Table("NUTRITION")
	require.NoError(t, err)
	assert.True(t, tbl.HasColumn(domain.ColumnGeographicalArea), "normalized when stored")
}

func TestExplore_ValidationError(t *testing.T) {
	svc := newService(&fakeFetcher{}, nil)
	_, err := svc.Explore(context.Background(), domain.Selection{Countries: []string{"Chad"}})
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Message, "indicator")
}

func TestExplore_RequestedFlowSubset(t *testing.T) {
	f := &fakeFetcher{bodies: map[string]string{"NUTRITION": nutritionCSV}}
	svc := newService(f, nil)

	report, err := svc.Explore(context.Background(), domain.Selection{
		Countries:  []string{"Chad"},
		Indicators: []string{"Stunting"},
		Dataflows:  []string{"NUTRITION"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"NUTRITION"}, report.Flows)
	require.Len(t, f.queries, 1)
	assert.Equal(t, []string{"TCD"}, f.queries[0].GeographyIDs)
}

func TestView(t *testing.T) {
	f := &fakeFetcher{bodies: map[string]string{"NUTRITION": nutritionCSV}}
	svc := newService(f, nil)
	_, err := svc.Explore(context.Background(), domain.Selection{
		Countries: []string{"Chad"}, Indicators: []string{"Stunting"}, Dataflows: []string{"NUTRITION"},
	})
	require.NoError(t, err)

	v, err := svc.View("NUTRITION", table.ViewOptions{})
	require.NoError(t, err)
	assert.Equal(t, "_T", v.Filter.Value)
	assert.Equal(t, domain.ColumnGeographicalArea, v.Group)

	_, err = svc.View("MISSING", table.ViewOptions{})
	var nf *domain.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestRefreshAndExport(t *testing.T) {
	f := &fakeFetcher{bodies: map[string]string{"NUTRITION": nutritionCSV}}
	dir := t.TempDir()
	svc := newService(f, export.NewExporter(export.NewLocalStore(dir), false, discardLogger()))

	// Nothing stored yet: a no-op.
	require.NoError(t, svc.RefreshAndExport(context.Background()))
	assert.Empty(t, f.queries)

	_, err := svc.Explore(context.Background(), domain.Selection{
		Countries: []string{"Chad"}, Indicators: []string{"Stunting"}, Dataflows: []string{"NUTRITION"},
	})
	require.NoError(t, err)

	f.bodies["NUTRITION"] = "Geographic area,TIME_PERIOD,OBS_VALUE\nChad,2020,31\n"
	require.NoError(t, svc.RefreshAndExport(context.Background()))
	assert.Len(t, f.queries, 2)
	assert.FileExists(t, filepath.Join(dir, "NUTRITION_data.csv"))

	tbl, err := svc.Table("NUTRITION")
	require.NoError(t, err)
	assert.Equal(t, 1, tbl.Len(), "refreshed table replaced the old one")
}

func TestRefresh_KeepsPreviousOnFailure(t *testing.T) {
	f := &fakeFetcher{bodies: map[string]string{"NUTRITION": nutritionCSV}}
	svc := newService(f, nil)
	_, err := svc.Explore(context.Background(), domain.Selection{
		Countries: []string{"Chad"}, Indicators: []string{"Stunting"}, Dataflows: []string{"NUTRITION"},
	})
	require.NoError(t, err)

	delete(f.bodies, "NUTRITION")
	report, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Len(t, report.Failed(), 1)
	assert.Equal(t, []string{"NUTRITION"}, svc.Store().Names())
}

func TestExplore_AllFailedKeepsPreviousResults(t *testing.T) {
	f := &fakeFetcher{bodies: map[string]string{"NUTRITION": nutritionCSV}}
	svc := newService(f, nil)
	chad := domain.Selection{Countries: []string{"Chad"}, Indicators: []string{"Stunting"}, Dataflows: []string{"NUTRITION"}}
	_, err := svc.Explore(context.Background(), chad)
	require.NoError(t, err)

	delete(f.bodies, "NUTRITION")
	report, err := svc.Explore(context.Background(), domain.Selection{
		Countries: []string{"Mali"}, Indicators: []string{"Stunting"},
	})
	require.NoError(t, err)
	assert.Empty(t, report.Succeeded())

	assert.Equal(t, []string{"NUTRITION"}, svc.Store().Names())
	assert.Equal(t, []string{"Chad"}, svc.Store().Selection().Countries)
	tbl, err := svc.Table("NUTRITION")
	require.NoError(t, err)
	assert.Equal(t, 3, tbl.Len())

	outcomes := svc.Store().Outcomes()
	require.Len(t, outcomes, 1)
	assert.False(t, outcomes[0].OK(), "failures are still reported")
}

func TestExport_NotConfigured(t *testing.T) {
	svc := newService(&fakeFetcher{}, nil)
	_, err := svc.Export(context.Background())
	require.Error(t, err)
}

func TestExplore_AgainstHTTPServer(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if !strings.Contains(r.URL.Path, "/data/UNICEF,NUTRITION_ID,1.0/TCD.NT_STA") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = io.WriteString(w, nutritionCSV)
	}))
	t.Cleanup(srv.Close)

	client := sdmx.NewClient(sdmx.Options{BaseURL: srv.URL}, discardLogger())
	svc := newService(client, nil)

	report, err := svc.Explore(context.Background(), domain.Selection{
		Countries: []string{"Chad"}, Indicators: []string{"Stunting"}, Dataflows: []string{"NUTRITION"},
	})
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 1)
	assert.True(t, report.Outcomes[0].OK())
	assert.Equal(t, 0, report.Outcomes[0].Tier)
	assert.Equal(t, int32(1), hits.Load())
}
