package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	BaseUrl   string `json:"base_url"`
	RateLimit int    `json:"rate_limit"`
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(contents), 0600))
}

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "config.json5")
	writeFile(t, name, `{base_url: "https://a.example.edu", rate_limit: 10}`)

	cfg, err := ReadConfig[testConfig](name)
	require.NoError(t, err)
	require.Equal(t, "https://a.example.edu", cfg.BaseUrl)
	require.Equal(t, 10, cfg.RateLimit)
}

func TestReadConfigLocalOverrideWins(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "config.json5")
	writeFile(t, name, `{base_url: "https://a.example.edu", rate_limit: 10}`)
	writeFile(t, filepath.Join(dir, "config.local.json5"), `{rate_limit: 2}`)

	cfg, err := ReadConfig[testConfig](name)
	require.NoError(t, err)
	require.Equal(t, "https://a.example.edu", cfg.BaseUrl)
	require.Equal(t, 2, cfg.RateLimit)
}

func TestReadConfigLocalOnly(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.local.json5"), `{base_url: "https://b.example.edu"}`)

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "config.json5"))
	require.NoError(t, err)
	require.Equal(t, "https://b.example.edu", cfg.BaseUrl)
}

func TestReadConfigMissingIsNotExist(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadConfig[testConfig](filepath.Join(dir, "config.json5"))
	require.True(t, os.IsNotExist(err))
}

func TestReadConfigEmptyFileIsNotExist(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "config.json5")
	writeFile(t, name, "")

	_, err := ReadConfig[testConfig](name)
	require.True(t, os.IsNotExist(err))
}
