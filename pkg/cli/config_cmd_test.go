package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigShow_TableOutput(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	require.NoError(t, SaveUserConfig(&UserConfig{
		CurrentProfile: "default",
		Profiles: map[string]Profile{
			"default": {
				BaseURL: "http://localhost:9090/rest",
				Catalog: "catalog.csv",
				Output:  "table",
			},
			"mirror": {BaseURL: "http://mirror.example.org/rest"},
		},
	}))

	rootCmd := newRootCmd()
	rootCmd.SetArgs([]string{"config", "show", "--output", "table"})
	old := captureStdout(t)

	require.NoError(t, rootCmd.Execute())
	output := old()

	assert.True(t, containsIgnoreCase(output, "profile"))
	assert.True(t, containsIgnoreCase(output, "base url"))
	assert.Contains(t, output, "default")
	assert.Contains(t, output, "mirror")
	assert.Contains(t, output, "http://localhost:9090/rest")
	assert.Contains(t, output, "*")
	assert.NotContains(t, output, "current-profile:")
}

func TestConfigSetAndUseProfile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	run := func(args ...string) string {
		t.Helper()
		var buf bytes.Buffer
		rootCmd := newRootCmd()
		rootCmd.SetOut(&buf)
		rootCmd.SetArgs(args)
		require.NoError(t, rootCmd.Execute())
		return buf.String()
	}

	out := run("config", "set-profile", "--name", "staging", "--url", "http://staging/rest", "--export", "s3://bucket/out")
	assert.Contains(t, out, `Profile "staging" saved`)

	run("config", "set-profile", "--name", "staging", "--default-output", "json")

	cfg, err := LoadUserConfig()
	require.NoError(t, err)
	assert.Equal(t, Profile{
		BaseURL: "http://staging/rest",
		Output:  "json",
		Export:  "s3://bucket/out",
	}, cfg.Profiles["staging"])
	assert.Empty(t, cfg.CurrentProfile)

	out = run("config", "use-profile", "staging", "-o", "json")
	var resp map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "staging", resp["active_profile"])

	cfg, err = LoadUserConfig()
	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.CurrentProfile)
}

func TestConfigSetProfile_Errors(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{
			name:    "bad output",
			args:    []string{"config", "set-profile", "--name", "x", "--default-output", "yaml"},
			wantErr: "unsupported output format",
		},
		{
			name:    "unknown profile",
			args:    []string{"config", "use-profile", "missing"},
			wantErr: "no config found",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rootCmd := newRootCmd()
			rootCmd.SetOut(&bytes.Buffer{})
			rootCmd.SetArgs(tt.args)
			err := rootCmd.Execute()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
