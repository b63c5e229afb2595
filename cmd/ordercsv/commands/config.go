package commands

import (
	"errors"
	"fmt"
	"os"
	"time"

	"orderscan/internal/components/telemetry"
	"orderscan/internal/emitter"
	"orderscan/internal/scanner"
	"orderscan/internal/session"
	"orderscan/pkg/configutil"

	"dario.cat/mergo"
)

const DEFAULT_CONFIG_FILE = "ordercsv.json5"

type Config struct {
	BaseUrl     string `json:"base_url"`
	HistoryPath string `json:"history_path"`
	SignInPath  string `json:"signin_path"`
	SignOutPath string `json:"signout_path"`
	// Password is asked for on the terminal when left empty.
	Password string `json:"password"`

	Force      bool   `json:"force"`
	DropBefore string `json:"drop_before"`
	DropAfter  string `json:"drop_after"`
	// ImplicitWait is in seconds.
	ImplicitWait      float64 `json:"implicit_wait"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	Prepare           bool    `json:"prepare"`
	MaxPages          int     `json:"max_pages"`
	DumpDir           string  `json:"dump_dir"`
	DisableBypass     bool    `json:"disable_bypass"`

	VerboseCsv bool `json:"verbose_csv"`
	// IncludeURL is a pointer so that a config file can turn it off, nil means true.
	IncludeURL    *bool  `json:"include_url"`
	PriceFallback string `json:"price_fallback"`
	Layout        string `json:"layout"`
	Format        string `json:"format"`
	Db            string `json:"db"`

	Telemetry telemetry.Config `json:"telemetry"`
}

func defaultConfig() Config {
	return Config{
		BaseUrl:           "https://www.amazon.co.jp",
		HistoryPath:       "/gp/css/order-history",
		SignInPath:        "/ap/signin?openid.mode=checkid_setup&openid.assoc_handle=jpflex&openid.ns=http%3A%2F%2Fspecs.openid.net%2Fauth%2F2.0&openid.claimed_id=http%3A%2F%2Fspecs.openid.net%2Fauth%2F2.0%2Fidentifier_select&openid.identity=http%3A%2F%2Fspecs.openid.net%2Fauth%2F2.0%2Fidentifier_select&openid.return_to=https%3A%2F%2Fwww.amazon.co.jp%2Fgp%2Fcss%2Forder-history",
		SignOutPath:       "/gp/flex/sign-out.html",
		ImplicitWait:      5,
		RequestsPerSecond: 1,
		PriceFallback:     "empty",
		Layout:            "standard",
		Format:            "csv",
	}
}

// loadConfig layers the config file (and its .local override) over the defaults,
// a missing file is not an error.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	file, err := configutil.ReadConfig[Config](path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	err = mergo.Merge(&cfg, file, mergo.WithOverride)
	if err != nil {
		return cfg, err
	}
	return cfg, nil
}

func parseDate(flag, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	date, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: expected YYYY-MM-DD, got \"%s\"", flag, value)
	}
	return date, nil
}

func (c Config) session(account, password string) (session.Config, error) {
	dropBefore, err := parseDate("drop_before", c.DropBefore)
	if err != nil {
		return session.Config{}, err
	}
	dropAfter, err := parseDate("drop_after", c.DropAfter)
	if err != nil {
		return session.Config{}, err
	}
	if c.ImplicitWait < 0 {
		return session.Config{}, fmt.Errorf("implicit_wait must not be negative")
	}
	if c.MaxPages < 0 {
		return session.Config{}, fmt.Errorf("max_pages must not be negative")
	}

	return session.Config{
		BaseUrl:           c.BaseUrl,
		HistoryPath:       c.HistoryPath,
		SignInPath:        c.SignInPath,
		SignOutPath:       c.SignOutPath,
		Account:           account,
		Password:          password,
		ImplicitWait:      time.Duration(c.ImplicitWait * float64(time.Second)),
		RequestsPerSecond: c.RequestsPerSecond,
		DumpDir:           c.DumpDir,
		DisableBypass:     c.DisableBypass,
		Scanner: scanner.Options{
			Force:      c.Force,
			DropBefore: dropBefore,
			DropAfter:  dropAfter,
		},
		MaxPages: c.MaxPages,
	}, nil
}

func (c Config) emitterOptions() (emitter.Options, error) {
	layout, err := emitter.ParseLayout(c.Layout)
	if err != nil {
		return emitter.Options{}, err
	}
	fallback, err := emitter.ParseFallback(c.PriceFallback)
	if err != nil {
		return emitter.Options{}, err
	}
	return emitter.Options{
		Verbose:       c.VerboseCsv,
		IncludeURL:    c.IncludeURL == nil || *c.IncludeURL,
		Columns:       layout,
		PriceFallback: fallback,
	}, nil
}
