package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sdmx-explorer/internal/domain"
	"sdmx-explorer/internal/table"
)

const testCatalogCSV = "country,national,category,indicator,indicator_id,dataflow_name,agency,dataflow_id,geography,geography_id\n" +
	"Chad,1,Nutrition,Stunting,NT_STA,NUTRITION,UNICEF,X1,Chad,TCD\n" +
	"Chad,1,Nutrition,Wasting,NT_WST,GLOBAL_DATAFLOW,UNICEF,GD,Chad,TCD\n" +
	"Mali,1,Nutrition,Stunting,NT_STA,NUTRITION,UNICEF,X1,Mali,MLI\n"

const testDataCSV = "REF_AREA,Geographic area,INDICATOR,Indicator,SEX,TIME_PERIOD,OBS_VALUE\n" +
	"TCD,Chad,NT_STA,Stunting,_T,2019,30\n" +
	"TCD,Chad,NT_STA,Stunting,F,2019,28\n" +
	"TCD,Chad,NT_STA,Stunting,_T,2020,32\n"

// isolate points HOME and the SDMX settings at a temp dir so tests never see
// the developer's profile or environment.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	for _, key := range []string{
		"SDMX_BASE_URL", "SDMX_OUTPUT", "CATALOG_PATH", "CACHE_DB_PATH",
		"EXPORT_SINK", "EXPORT_SCHEDULE", "EXPORT_DIR", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
	path := filepath.Join(dir, "catalog.csv")
	require.NoError(t, os.WriteFile(path, []byte(testCatalogCSV), 0o644))
	t.Setenv("CATALOG_PATH", path)
	t.Setenv("EXPORT_DIR", filepath.Join(dir, "exports"))
	return dir
}

// runCLI executes the root command and returns stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd := newRootCmd()
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func sdmxServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if !strings.HasPrefix(r.URL.Path, "/data/UNICEF,X1,") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = io.WriteString(w, testDataCSV)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestBaseURLPrecedence(t *testing.T) {
	tests := []struct {
		name    string
		profile string
		env     string
		flag    string
		want    string
	}{
		{name: "profile only", profile: "http://profile/rest", want: "http://profile/rest"},
		{name: "env beats profile", profile: "http://profile/rest", env: "http://env/rest", want: "http://env/rest"},
		{name: "flag beats env", profile: "http://profile/rest", env: "http://env/rest", flag: "http://flag/rest", want: "http://flag/rest"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			require.NoError(t, SaveUserConfig(&UserConfig{
				CurrentProfile: "default",
				Profiles:       map[string]Profile{"default": {BaseURL: tt.profile}},
			}))
			t.Setenv("SDMX_BASE_URL", tt.env)

			args := []string{"catalog", "flows", "-c", "Chad", "-i", "Stunting", "-o", "json"}
			if tt.flag != "" {
				args = append(args, "--base-url", tt.flag)
			}
			out, err := runCLI(t, args...)
			require.NoError(t, err)

			var resp struct {
				AutoSelected bool       `json:"auto_selected"`
				Flows        []flowPlan `json:"flows"`
			}
			require.NoError(t, json.Unmarshal([]byte(out), &resp))
			assert.True(t, resp.AutoSelected)
			require.Len(t, resp.Flows, 1)
			require.NotEmpty(t, resp.Flows[0].URLs)
			assert.True(t, strings.HasPrefix(resp.Flows[0].URLs[0], tt.want+"/data/"), resp.Flows[0].URLs[0])
		})
	}
}

func TestUnknownProfileFails(t *testing.T) {
	isolate(t)
	_, err := runCLI(t, "version", "--profile", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `profile "nope" not found`)
}

func TestCatalogCountries(t *testing.T) {
	isolate(t)

	out, err := runCLI(t, "catalog", "countries", "-o", "json")
	require.NoError(t, err)
	var countries []string
	require.NoError(t, json.Unmarshal([]byte(out), &countries))
	assert.Equal(t, []string{"Chad", "Mali"}, countries)

	out, err = runCLI(t, "catalog", "countries")
	require.NoError(t, err)
	assert.Contains(t, out, "Chad")
	assert.Contains(t, out, "Mali")
}

func TestCatalogOptions(t *testing.T) {
	isolate(t)

	out, err := runCLI(t, "catalog", "options", "-c", "Mali", "-o", "json")
	require.NoError(t, err)
	var options map[string][]string
	require.NoError(t, json.Unmarshal([]byte(out), &options))
	assert.Equal(t, []string{"Nutrition"}, options["categories"])
	assert.Equal(t, []string{"Stunting"}, options["indicators"])
}

func TestCatalogFlows_Several(t *testing.T) {
	isolate(t)

	out, err := runCLI(t, "catalog", "flows", "-c", "Chad", "-i", "Stunting", "-i", "Wasting", "-o", "json")
	require.NoError(t, err)
	var resp struct {
		AutoSelected bool       `json:"auto_selected"`
		Flows        []flowPlan `json:"flows"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.False(t, resp.AutoSelected)
	assert.Len(t, resp.Flows, 2)
}

func TestExplore_JSON(t *testing.T) {
	isolate(t)
	srv, hits := sdmxServer(t)
	chartDir := t.TempDir()

	out, err := runCLI(t, "explore", "-c", "Chad", "-i", "Stunting",
		"--base-url", srv.URL, "--chart", chartDir, "-o", "json")
	require.NoError(t, err)
	assert.Positive(t, hits.Load())

	var resp exploreJSON
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, []string{"NUTRITION"}, resp.Flows)
	require.Len(t, resp.Outcomes, 1)
	assert.True(t, resp.Outcomes[0].OK)
	assert.Equal(t, 3, resp.Outcomes[0].Rows)

	require.Len(t, resp.Views, 1)
	v := resp.Views[0]
	assert.Empty(t, v.Error)
	assert.Equal(t, "SEX=_T", v.Filter)
	assert.Equal(t, "TIME_PERIOD", v.X)
	assert.Equal(t, "OBS_VALUE", v.Y)
	assert.Equal(t, "Stunting", v.Title)
	assert.Equal(t, string(domain.ChartLine), v.Kind)
	require.Len(t, v.Points, 2)
	assert.Equal(t, "2019", v.Points[0].X)
	require.NotNil(t, v.Points[0].Y)
	assert.InDelta(t, 30.0, *v.Points[0].Y, 1e-9)

	require.NotEmpty(t, v.Chart)
	_, err = os.Stat(v.Chart)
	assert.NoError(t, err)
}

func TestExplore_ExportToDirectory(t *testing.T) {
	isolate(t)
	srv, _ := sdmxServer(t)
	dest := t.TempDir()

	out, err := runCLI(t, "explore", "-c", "Chad", "-i", "Stunting",
		"--base-url", srv.URL, "--export", dest, "-o", "json")
	require.NoError(t, err)

	var resp exploreJSON
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Exports, 1)
	assert.Equal(t, "NUTRITION", resp.Exports[0].Dataflow)

	data, err := os.ReadFile(filepath.Join(dest, "NUTRITION_data.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Geographical area")
}

func TestExplore_NothingRetrieved(t *testing.T) {
	isolate(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	out, err := runCLI(t, "explore", "-c", "Chad", "-i", "Stunting", "--base-url", srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no dataflow returned data")
	assert.Contains(t, out, "failed")
}

func TestOutcomeRow(t *testing.T) {
	tests := []struct {
		name string
		in   outcomeJSON
		want []string
	}{
		{
			name: "ok",
			in:   outcomeJSON{Dataflow: "NUTRITION", OK: true, Shape: 2, URL: "http://x/data", Rows: 3},
			want: []string{"NUTRITION", "ok", "2", "3", "http://x/data"},
		},
		{
			name: "cached",
			in:   outcomeJSON{Dataflow: "NUTRITION", OK: true, Shape: 1, URL: "http://x/data", Rows: 3, Cached: true},
			want: []string{"NUTRITION", "ok (cached)", "1", "3", "http://x/data"},
		},
		{
			name: "failed has no shape",
			in:   outcomeJSON{Dataflow: "EDUCATION", Error: "HTTP 404"},
			want: []string{"EDUCATION", "failed", "-", "0", "HTTP 404"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, outcomeRow(tt.in))
		})
	}
}

func TestExplore_ValidationError(t *testing.T) {
	isolate(t)

	_, err := runCLI(t, "explore", "-c", "Chad")
	require.Error(t, err)
	assert.Equal(t, "validation", errorKind(err))
}

func TestViewFlagsOptions(t *testing.T) {
	tests := []struct {
		name    string
		flags   viewFlags
		want    table.ViewOptions
		wantErr bool
	}{
		{name: "defaults", want: table.ViewOptions{}},
		{
			name:  "axes and kind",
			flags: viewFlags{x: "Geographical area", y: "OBS_VALUE", group: "None", kind: "bar"},
			want:  table.ViewOptions{X: "Geographical area", Y: "OBS_VALUE", Group: "None", Kind: domain.ChartBar},
		},
		{
			name:  "filter",
			flags: viewFlags{filter: "SEX = F"},
			want:  table.ViewOptions{Filter: &table.EqualityFilter{Field: "SEX", Value: "F"}},
		},
		{
			name:  "filter field only",
			flags: viewFlags{filter: "AGE="},
			want:  table.ViewOptions{Filter: &table.EqualityFilter{Field: "AGE"}},
		},
		{
			name:  "filter disabled",
			flags: viewFlags{filter: "none"},
			want:  table.ViewOptions{Filter: &table.EqualityFilter{}},
		},
		{name: "bad filter", flags: viewFlags{filter: "SEX"}, wantErr: true},
		{name: "bad kind", flags: viewFlags{kind: "pie"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.flags.options()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{domain.ErrValidation("bad"), "validation"},
		{fmt.Errorf("wrapped: %w", domain.ErrNotFound("gone")), "not_found"},
		{domain.ErrFetch("NUTRITION", 500, "http://x", nil), "fetch"},
		{domain.ErrMissingColumn("NUTRITION", "SEX"), "missing_column"},
		{errors.New("boom"), "error"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, errorKind(tt.err), tt.err.Error())
	}
}

func TestVersion(t *testing.T) {
	isolate(t)

	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "sdmx-explorer version dev (commit: none)\n", out)

	out, err = runCLI(t, "version", "-o", "json")
	require.NoError(t, err)
	var resp map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "dev", resp["version"])
}

func TestCacheCmd(t *testing.T) {
	dir := isolate(t)

	_, err := runCLI(t, "cache", "stats")
	require.Error(t, err)
	assert.Equal(t, "validation", errorKind(err))

	db := filepath.Join(dir, "cache.db")
	out, err := runCLI(t, "cache", "stats", "--db", db, "-o", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"responses":0}`, out)

	out, err = runCLI(t, "cache", "purge", "--db", db, "-o", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"purged":0}`, out)
}
