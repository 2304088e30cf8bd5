// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMain isolates the suite from any config file in the caller's home.
func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "userauth-xdg")
	if err != nil {
		panic(err)
	}
	_ = os.Setenv("XDG_CONFIG_HOME", dir)
	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

// execute runs the root command with args and stdin, returning combined output.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRootCommand_HasExpectedSubcommands(t *testing.T) {
	output, err := execute(t, "", "--help")
	require.NoError(t, err)

	for _, sub := range []string{"serve", "migrate", "redact", "hash-password", "config"} {
		assert.Contains(t, output, sub, "Help missing %q command", sub)
	}
}

func TestRootCommand_ConfigFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "userauth.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http:\n  addr: \":7777\"\n"), 0o600))

	tests := []struct {
		name string
		args []string
	}{
		{"separate value", []string{"config", "show", "--config", path}},
		{"equals form", []string{"--config=" + path, "config", "show"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := execute(t, "", tt.args...)
			require.NoError(t, err)
			assert.Contains(t, output, "7777")
		})
	}
}

func TestRootCommand_DiscoversXDGConfigFile(t *testing.T) {
	xdgHome := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(xdgHome, "userauth"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(xdgHome, "userauth", "config.yaml"),
		[]byte("http:\n  addr: \":6543\"\n"), 0o600))
	t.Setenv("XDG_CONFIG_HOME", xdgHome)

	output, err := execute(t, "", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, output, "6543")
}

func TestRootOptions_ConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	assert.Empty(t, (&rootOptions{}).configPath(), "missing XDG file is skipped")
	assert.Equal(t, "/etc/userauth.yaml", (&rootOptions{configFile: "/etc/userauth.yaml"}).configPath())
}

func TestRootCommand_VersionFlag(t *testing.T) {
	cmd := NewRootCmd()
	cmd.Version = "test-version"
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "test-version")
}

func TestRootCommand_InvalidConfigFails(t *testing.T) {
	_, err := execute(t, "", "redact", "--auth.type=oauth")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown auth type")
}
