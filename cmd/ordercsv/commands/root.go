package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"orderscan/internal/components/telemetry"
	"orderscan/internal/session"

	"github.com/spf13/cobra"
)

type flags struct {
	config   string
	logLevel string

	baseUrl       string
	force         bool
	dropBefore    string
	dropAfter     string
	implicitWait  float64
	verboseCsv    bool
	includeURL    bool
	prepare       bool
	priceFallback string
	layout        string
	format        string
	db            string
	dumpDir       string
	maxPages      int
}

// apply overrides the config with every flag given on the command line.
func (f *flags) apply(changed func(name string) bool, cfg *Config) {
	if changed("base-url") {
		cfg.BaseUrl = f.baseUrl
	}
	if changed("force") {
		cfg.Force = f.force
	}
	if changed("drop-before") {
		cfg.DropBefore = f.dropBefore
	}
	if changed("drop-after") {
		cfg.DropAfter = f.dropAfter
	}
	if changed("implicit-wait") {
		cfg.ImplicitWait = f.implicitWait
	}
	if changed("verbose-csv") {
		cfg.VerboseCsv = f.verboseCsv
	}
	if changed("include-url") {
		includeURL := f.includeURL
		cfg.IncludeURL = &includeURL
	}
	if changed("prepare") {
		cfg.Prepare = f.prepare
	}
	if changed("price-fallback") {
		cfg.PriceFallback = f.priceFallback
	}
	if changed("layout") {
		cfg.Layout = f.layout
	}
	if changed("format") {
		cfg.Format = f.format
	}
	if changed("db") {
		cfg.Db = f.db
	}
	if changed("dump-dir") {
		cfg.DumpDir = f.dumpDir
	}
	if changed("max-pages") {
		cfg.MaxPages = f.maxPages
	}
}

func newRootCmd() *cobra.Command {
	f := &flags{}

	cmd := &cobra.Command{
		Use:   "ordercsv <account>",
		Short: "ordercsv writes the amazon.co.jp order history of an account as csv.",
		Long: "ordercsv signs in to amazon.co.jp, walks every page of the order history and writes one row per item to stdout.\n" +
			"Settings are read from " + DEFAULT_CONFIG_FILE + " and its .local override, flags take priority.",
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := telemetry.ParseLevel(f.logLevel)
			if err != nil {
				return err
			}
			telemetry.InitSlog(cmd.ErrOrStderr(), level)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(f.config)
			if err != nil {
				return err
			}
			f.apply(cmd.Flags().Changed, &cfg)

			// everything past this point is a run failure, not a usage error
			cmd.SilenceUsage = true
			return run(cmd, cfg, args[0])
		},
	}

	flagset := cmd.Flags()
	cmd.PersistentFlags().StringVarP(&f.logLevel, "log-level", "l", "WARN", "Log level: DEBUG, INFO, WARN, ERROR or FATAL.")
	flagset.StringVarP(&f.config, "config", "c", DEFAULT_CONFIG_FILE, "The json5 config file to read.")
	flagset.StringVar(&f.baseUrl, "base-url", "", "The site to scan.")
	flagset.BoolVarP(&f.force, "force", "f", false, "Skip orders that cannot be read instead of stopping.")
	flagset.StringVarP(&f.dropBefore, "drop-before", "b", "", "Drop orders placed before this date (YYYY-MM-DD).")
	flagset.StringVarP(&f.dropAfter, "drop-after", "a", "", "Drop orders placed after this date (YYYY-MM-DD).")
	flagset.Float64VarP(&f.implicitWait, "implicit-wait", "w", 5, "Seconds to wait for a page to load.")
	flagset.BoolVar(&f.verboseCsv, "verbose-csv", false, "Repeat the order fields on every row of an order.")
	flagset.BoolVar(&f.includeURL, "include-url", true, "Include the Item URL column.")
	flagset.BoolVarP(&f.prepare, "prepare", "p", false, "Wait for enter before scanning the first page.")
	flagset.StringVar(&f.priceFallback, "price-fallback", "empty", "What to print for items without a price: empty or paid.")
	flagset.StringVar(&f.layout, "layout", "standard", "Column layout: standard or compact.")
	flagset.StringVar(&f.format, "format", "csv", "Output format: csv or table.")
	flagset.StringVar(&f.db, "db", "", "Also append every item to this sqlite database.")
	flagset.StringVar(&f.dumpDir, "dump-dir", "", "Write every loaded page to this directory.")
	flagset.IntVar(&f.maxPages, "max-pages", 0, "Stop after this many pages, 0 means no limit.")

	return cmd
}

func run(cmd *cobra.Command, cfg Config, account string) error {
	ctx := cmd.Context()

	providers, err := telemetry.Setup(ctx, "ordercsv", cfg.Telemetry)
	if err != nil {
		slog.Warn("failed to setup telemetry export", "err", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		err := providers.Shutdown(ctx)
		if err != nil {
			slog.Warn("failed to flush telemetry", "err", err)
		}
	}()

	console := newConsole(cmd.InOrStdin(), cmd.ErrOrStderr())
	password := cfg.Password
	if password == "" {
		password, err = console.Password()
		if err != nil {
			return err
		}
	}

	sessionCfg, err := cfg.session(account, password)
	if err != nil {
		return err
	}
	if cfg.Prepare {
		sessionCfg.Prepare = console
	}

	sink, err := openSink(cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	return session.Run(ctx, telemetry.NewMeteredAPI(telemetry.SlogAPI{}), sessionCfg, sink)
}

func ExecuteContext(ctx context.Context) {
	cmd := newRootCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
