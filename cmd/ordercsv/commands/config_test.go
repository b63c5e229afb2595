package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"orderscan/internal/emitter"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, contents string) {
	err := os.WriteFile(path, []byte(contents), 0600)
	if err != nil {
		t.Fatal(err)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), DEFAULT_CONFIG_FILE))
	require.NoError(t, err)
	require.Equal(t, defaultConfig(), cfg)
	require.Nil(t, cfg.IncludeURL)
}

func TestLoadConfigLayers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DEFAULT_CONFIG_FILE)
	writeFile(t, path, `{
		// shared settings
		layout: "compact",
		include_url: false,
		max_pages: 20,
	}`)
	writeFile(t, filepath.Join(dir, "ordercsv.local.json5"), `{
		format: "table",
		max_pages: 3,
	}`)

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "compact", cfg.Layout)
	require.False(t, *cfg.IncludeURL)
	require.Equal(t, "table", cfg.Format)
	require.Equal(t, 3, cfg.MaxPages)
	require.Equal(t, "https://www.amazon.co.jp", cfg.BaseUrl)
}

func TestLoadConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), DEFAULT_CONFIG_FILE)
	writeFile(t, path, `{ layout: `)
	_, err := loadConfig(path)
	require.Error(t, err)
}

func TestFlagsOverrideConfig(t *testing.T) {
	cfg := defaultConfig()
	cfg.Layout = "compact"
	cfg.Force = true

	f := &flags{force: false, includeURL: false, dropBefore: "2016-01-01", layout: "standard"}
	set := map[string]bool{"force": true, "include-url": true, "drop-before": true}
	f.apply(func(name string) bool { return set[name] }, &cfg)

	require.False(t, cfg.Force)
	require.False(t, *cfg.IncludeURL)
	require.Equal(t, "2016-01-01", cfg.DropBefore)
	// not given on the command line
	require.Equal(t, "compact", cfg.Layout)
}

func TestSessionConfig(t *testing.T) {
	cfg := defaultConfig()
	cfg.DropBefore = "2016-01-01"
	cfg.DropAfter = "2016-12-31"
	cfg.ImplicitWait = 1.5
	cfg.Force = true

	s, err := cfg.session("user@example.com", "hunter2")
	require.NoError(t, err)
	require.Equal(t, time.Date(2016, time.January, 1, 0, 0, 0, 0, time.UTC), s.Scanner.DropBefore)
	require.Equal(t, time.Date(2016, time.December, 31, 0, 0, 0, 0, time.UTC), s.Scanner.DropAfter)
	require.True(t, s.Scanner.Force)
	require.Equal(t, 1500*time.Millisecond, s.ImplicitWait)
	require.Equal(t, "user@example.com", s.Account)

	cfg.DropAfter = "2016/12/31"
	_, err = cfg.session("user@example.com", "hunter2")
	require.ErrorContains(t, err, "drop_after")
}

func TestEmitterOptions(t *testing.T) {
	cfg := defaultConfig()
	opts, err := cfg.emitterOptions()
	require.NoError(t, err)
	require.True(t, opts.IncludeURL)
	require.Equal(t, emitter.LayoutStandard, opts.Columns)
	require.Equal(t, emitter.FALLBACK_EMPTY, opts.PriceFallback)

	cfg.PriceFallback = "paid"
	cfg.VerboseCsv = true
	opts, err = cfg.emitterOptions()
	require.NoError(t, err)
	require.True(t, opts.Verbose)
	require.Equal(t, emitter.FALLBACK_PAID_PRICE, opts.PriceFallback)

	cfg.Layout = "wide"
	_, err = cfg.emitterOptions()
	require.Error(t, err)
}

func TestOpenSink(t *testing.T) {
	cfg := defaultConfig()
	var out bytes.Buffer

	sink, err := openSink(cfg, &out)
	require.NoError(t, err)
	require.IsType(t, &emitter.CSV{}, sink)

	cfg.Format = "table"
	sink, err = openSink(cfg, &out)
	require.NoError(t, err)
	require.IsType(t, &emitter.Table{}, sink)

	cfg.Format = "xml"
	_, err = openSink(cfg, &out)
	require.Error(t, err)

	cfg.Format = "csv"
	cfg.Db = filepath.Join(t.TempDir(), "orders.db")
	sink, err = openSink(cfg, &out)
	require.NoError(t, err)
	require.NoError(t, sink.Close())
	_, err = os.Stat(cfg.Db)
	require.NoError(t, err)
}
