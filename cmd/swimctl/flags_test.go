package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uc-package/swimctl/internal/auth"
	"github.com/uc-package/swimctl/internal/models"
)

func init() {
	color.NoColor = true
}

func TestFilterFlagsOverlayConfig(t *testing.T) {
	fs := pflag.NewFlagSet("delete", pflag.ContinueOnError)
	ff := &filterFlags{}
	ff.register(fs)

	require.NoError(t, fs.Parse([]string{
		"--family", "cat9k",
		"--name-regex", `\.bin$`,
		"--golden", "false",
		"--older-than-days", "180",
	}))

	fc := models.FilterConfig{
		Family:       "asr1k",
		Version:      "17.9.4a",
		NameContains: "iosxe",
		UnusedOnly:   true,
		Golden:       "any",
	}
	ff.apply(fs, &fc)

	assert.Equal(t, models.FilterConfig{
		Family:        "cat9k",
		Version:       "17.9.4a",
		NameContains:  "iosxe",
		NameRegex:     `\.bin$`,
		OlderThanDays: 180,
		UnusedOnly:    true,
		Golden:        "false",
	}, fc)
}

func TestFilterFlagsCanClearConfig(t *testing.T) {
	fs := pflag.NewFlagSet("delete", pflag.ContinueOnError)
	ff := &filterFlags{}
	ff.register(fs)

	require.NoError(t, fs.Parse([]string{"--unused-only=false", "--family="}))

	fc := models.FilterConfig{Family: "cat9k", UnusedOnly: true}
	ff.apply(fs, &fc)
	assert.Empty(t, fc.Family)
	assert.False(t, fc.UnusedOnly)
}

func TestRunFlagsOverlayConfig(t *testing.T) {
	fs := pflag.NewFlagSet("delete", pflag.ContinueOnError)
	rf := &runFlags{}
	rf.register(fs)

	require.NoError(t, fs.Parse([]string{
		"-y",
		"--limit", "3",
		"--concurrency", "2",
		"--unlock-golden",
		"--site-id", "-1",
		"--device-family-identifier", "286315874",
		"--device-role", "ALL",
		"--task-timeout", "900",
	}))

	config := models.DefaultConfig()
	config.Run.DryRun = true
	rf.apply(fs, config)

	assert.True(t, config.Run.DryRun, "dry-run from the config file is kept")
	assert.True(t, config.Run.AutoConfirm)
	assert.Equal(t, 3, config.Run.Limit)
	assert.Equal(t, 2, config.Run.Concurrency)
	assert.True(t, config.Unlock.Enabled)
	assert.Equal(t, models.UnlockScope{SiteID: "-1", DeviceFamilyIdentifier: "286315874", DeviceRole: "ALL"}, config.Unlock.Scope())
	assert.Equal(t, 900, config.Polling.TimeoutSeconds)
	assert.True(t, config.Catalyst.LegacyDelete)
}

func TestGlobalOptionsApply(t *testing.T) {
	g := &globalOptions{baseURL: "dnac.lab", token: "tok", insecure: true, logLevel: "debug"}
	config := models.DefaultConfig()
	config.Catalyst.Username = "admin"

	g.apply(config)
	assert.Equal(t, "dnac.lab", config.Catalyst.BaseURL)
	assert.Equal(t, "tok", config.Catalyst.Token)
	assert.Equal(t, "admin", config.Catalyst.Username)
	assert.True(t, config.Catalyst.Insecure)
	assert.Equal(t, "debug", config.Logging.Level)
}

func TestPromptConfirm(t *testing.T) {
	candidates := []models.ImageRecord{
		{ID: "1", Name: "cat9k_iosxe.17.09.04a.SPA.bin"},
		{ID: "2", Name: "cat9k_iosxe.17.09.05.SPA.bin", Golden: true},
	}

	tests := []struct {
		input    string
		expected bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"sure\n", false},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			var out bytes.Buffer
			confirm := promptConfirm(strings.NewReader(tt.input), &out)
			assert.Equal(t, tt.expected, confirm(context.Background(), candidates))
			assert.Contains(t, out.String(), "Delete 2 image(s)? [y/N]")
			assert.Contains(t, out.String(), "1 golden image(s) selected.")
		})
	}
}

func TestTokenCommand(t *testing.T) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"token", "--secret", "s3cret", "--subject", "nightly", "--allow-delete"})

	require.NoError(t, cmd.Execute())

	claims, err := auth.ValidateToken(strings.TrimSpace(out.String()), "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "nightly", claims.Subject)
	assert.True(t, claims.AllowDelete)
}

func TestDeleteRefusesWithoutFilter(t *testing.T) {
	t.Setenv("SWIM_CONFIG", t.TempDir()+"/absent.yaml")

	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"delete", "--base-url", "dnac.lab", "--token", "tok", "--yes"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refusing to delete without a filter")
}

func TestVersionCommand(t *testing.T) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "swimctl dev\n", out.String())
}
