// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
		want  Secrets
	}{
		{
			name: "reads key files and trims whitespace",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, GotenbergUsername, "  convert-bot  \n")
				writeFile(t, dir, GotenbergPassword, "s3cret")
				return dir
			},
			want: Secrets{
				GotenbergUsername: "convert-bot",
				GotenbergPassword: "s3cret",
			},
		},
		{
			name: "returns empty map for nonexistent directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "does-not-exist")
			},
			want: Secrets{},
		},
		{
			name: "skips empty files, dotfiles, and subdirectories",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, GotenbergPassword, "pw")
				writeFile(t, dir, "empty-key", "   \n\t")
				writeFile(t, dir, ".gitkeep", "")
				require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))
				return dir
			},
			want: Secrets{GotenbergPassword: "pw"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.setup(t), zerolog.Nop())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoad_UnreadableFileWarns(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, GotenbergUsername, "convert-bot")
	require.NoError(t, os.Symlink(filepath.Join(dir, "gone"), filepath.Join(dir, GotenbergPassword)))

	var buf bytes.Buffer
	got, err := Load(dir, zerolog.New(&buf))
	require.NoError(t, err)
	assert.Equal(t, Secrets{GotenbergUsername: "convert-bot"}, got)
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), `"key":"gotenberg-password"`)
	assert.Contains(t, buf.String(), "could not read secret")
}

func TestSecrets_KeysAndGet(t *testing.T) {
	s := Secrets{"b": "2", "a": "1"}
	assert.Equal(t, []string{"a", "b"}, s.Keys())
	assert.Equal(t, "1", s.Get("a"))
	assert.Empty(t, s.Get("missing"))
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	writeFile(t, dir, ".env", "XLSX2PDF_TEST_BACKEND=gotenberg\nXLSX2PDF_TEST_PRESET=from-file\n")

	t.Setenv("XLSX2PDF_TEST_PRESET", "from-env")
	// Registers cleanup so the loaded variable does not leak into other tests.
	t.Setenv("XLSX2PDF_TEST_BACKEND", "")
	require.NoError(t, os.Unsetenv("XLSX2PDF_TEST_BACKEND"))

	require.NoError(t, LoadEnv(envFile))
	assert.Equal(t, "gotenberg", os.Getenv("XLSX2PDF_TEST_BACKEND"))
	assert.Equal(t, "from-env", os.Getenv("XLSX2PDF_TEST_PRESET"), "existing variables are not overridden")
}

func TestLoadEnv_MissingFile(t *testing.T) {
	assert.NoError(t, LoadEnv(filepath.Join(t.TempDir(), ".env")))
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
