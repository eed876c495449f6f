//go:build unix

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/depot/internal/adapters/config"
)

func TestRun(t *testing.T) {
	originalArgs := os.Args
	defer func() {
		os.Args = originalArgs
	}()

	prefix := t.TempDir()
	cfgPath := filepath.Join(prefix, "config.yaml")
	cfg := "install_tree:\n  path: " + filepath.Join(t.TempDir(), "tree") + "\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))
	t.Setenv(config.EnvPrefix, prefix)
	t.Setenv(config.EnvConfig, cfgPath)

	tests := []struct {
		name         string
		args         []string
		expectedExit int
	}{
		{
			name:         "Version",
			args:         []string{"depot", "version"},
			expectedExit: 0,
		},
		{
			name:         "Empty tree",
			args:         []string{"depot", "--log-format", "json", "find"},
			expectedExit: 0,
		},
		{
			name:         "Spec not installed",
			args:         []string{"depot", "location", "zlib"},
			expectedExit: 1,
		},
		{
			name:         "Unknown command",
			args:         []string{"depot", "frobnicate"},
			expectedExit: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args
			assert.Equal(t, tt.expectedExit, run())
		})
	}
}
