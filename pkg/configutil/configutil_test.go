package configutil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	BaseUrl string `json:"base_url"`
	Force   bool   `json:"force"`
	Wait    int    `json:"implicit_wait"`
}

func write(t *testing.T, path, contents string) {
	err := os.WriteFile(path, []byte(contents), 0600)
	if err != nil {
		t.Fatal(err)
	}
}

func TestReadConfigMergesLocal(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "ordercsv.json5")
	write(t, name, `{
		// comments are allowed
		base_url: "https://www.amazon.co.jp",
		implicit_wait: 5,
	}`)
	write(t, filepath.Join(dir, "ordercsv.local.json5"), `{ implicit_wait: 10, force: true }`)

	cfg, err := ReadConfig[testConfig](name)
	require.NoError(t, err)
	require.Equal(t, testConfig{
		BaseUrl: "https://www.amazon.co.jp",
		Force:   true,
		Wait:    10,
	}, cfg)
}

func TestReadConfigMissing(t *testing.T) {
	_, err := ReadConfig[testConfig](filepath.Join(t.TempDir(), "missing.json5"))
	require.True(t, errors.Is(err, os.ErrNotExist))
}

func TestReadConfigLocalOnly(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "ordercsv.local.json5"), `{ force: true }`)

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "ordercsv.json5"))
	require.NoError(t, err)
	require.True(t, cfg.Force)
}

func TestReadConfigMalformed(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "ordercsv.json5")
	write(t, name, `{ force: `)

	_, err := ReadConfig[testConfig](name)
	require.Error(t, err)
	require.False(t, errors.Is(err, os.ErrNotExist))
}

func TestLocalPath(t *testing.T) {
	require.Equal(t, "dir/ordercsv.local.json5", LocalPath("dir/ordercsv.json5"))
	require.Equal(t, "noext.local", LocalPath("noext"))
}
