// Package session runs one complete scan: sign in, walk the order history and
// write every item to a sink, then sign out again.
package session

import (
	"context"
	"fmt"
	"time"

	"orderscan/internal/browser"
	"orderscan/internal/components/assert"
	"orderscan/internal/components/telemetry"
	"orderscan/internal/emitter"
	"orderscan/internal/scanner"
	"orderscan/internal/walker"
)

const (
	report_session_run          = "session.run"
	report_session_release      = "session.release"
	report_session_close_output = "session.close-output"
)

type Config struct {
	BaseUrl     string
	HistoryPath string
	SignInPath  string
	SignOutPath string

	// Login is skipped when Account is empty.
	Account  string
	Password string

	ImplicitWait      time.Duration
	RequestsPerSecond float64
	DumpDir           string
	DisableBypass     bool

	Scanner  scanner.Options
	Prepare  walker.Preparer
	MaxPages int
}

// Run scans the whole order history into sink. The sink is closed before Run
// returns, whether or not the scan succeeded, so partial output is kept.
func Run(ctx context.Context, tel telemetry.API, cfg Config, sink emitter.Sink) (err error) {
	assert.NotNil(tel)
	assert.NotNil(sink)
	// components get their own scope, only the session's reports go under "session"
	sessionTel := telemetry.NewScopedAPI("session", tel)

	defer func() {
		closeErr := sink.Close()
		if closeErr == nil {
			return
		}
		if err != nil {
			sessionTel.ReportBroken(report_session_close_output, closeErr)
			return
		}
		err = fmt.Errorf("close output: %w", closeErr)
	}()

	b, err := browser.New(tel, browser.Options{
		BaseUrl:           cfg.BaseUrl,
		ImplicitWait:      cfg.ImplicitWait,
		RequestsPerSecond: cfg.RequestsPerSecond,
		DumpDir:           cfg.DumpDir,
		DisableBypass:     cfg.DisableBypass,
	})
	if err != nil {
		return fmt.Errorf("start browser: %w", err)
	}
	defer release(ctx, sessionTel, b, cfg)

	err = scan(ctx, tel, b, cfg, sink)
	if err != nil {
		sessionTel.ReportBroken(report_session_run, err)
	}
	return err
}

func scan(ctx context.Context, tel telemetry.API, b *browser.Browser, cfg Config, sink emitter.Sink) error {
	if cfg.Account != "" {
		err := b.Login(ctx, browser.LoginOptions{
			Address:  cfg.SignInPath,
			Account:  cfg.Account,
			Password: cfg.Password,
		})
		if err != nil {
			return err
		}
	}

	err := b.Navigate(ctx, cfg.HistoryPath)
	if err != nil {
		return fmt.Errorf("open order history: %w", err)
	}

	w := walker.New(tel, b, scanner.New(tel, cfg.Scanner), walker.Options{
		Prepare:  cfg.Prepare,
		MaxPages: cfg.MaxPages,
	})
	return w.Walk(ctx, sink.Write)
}

// release signs out and closes the browser. Failures here are only reported,
// they never replace the result of the scan.
func release(ctx context.Context, tel telemetry.API, b *browser.Browser, cfg Config) {
	ctx = context.WithoutCancel(ctx)
	if cfg.ImplicitWait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ImplicitWait)
		defer cancel()
	}

	if b.LoggedIn() && cfg.SignOutPath != "" {
		err := b.Logout(ctx, cfg.SignOutPath)
		if err != nil {
			tel.ReportBroken(report_session_release, err)
		}
	}
	err := b.Close()
	if err != nil {
		tel.ReportBroken(report_session_release, err)
	}
}
