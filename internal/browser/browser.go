// Package browser loads order history pages over plain HTTP, it keeps cookies
// between requests so a signed in session carries over to every page.
package browser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"orderscan/internal/components/assert"
	"orderscan/internal/components/telemetry"
	"orderscan/internal/dom"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	report_browser_navigate    = "browser.navigate"
	report_browser_submit_form = "browser.submit-form"
	report_browser_login       = "browser.login"
	report_browser_logout      = "browser.logout"
	report_browser_dump_page   = "browser.dump-page"
)

const (
	DEFAULT_IMPLICIT_WAIT = 5 * time.Second
	DEFAULT_USER_AGENT    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"
)

type Options struct {
	BaseUrl string
	// ImplicitWait bounds how long a single page load may take.
	ImplicitWait time.Duration
	// RequestsPerSecond defaults to 1.
	RequestsPerSecond float64
	UserAgent         string
	// DumpDir, if set, receives a copy of every page that was loaded.
	DumpDir string
	// DisableBypass leaves the http transport untouched.
	DisableBypass bool
}

type Browser struct {
	http     *resty.Client
	base     *url.URL
	page     *dom.Document
	dumps    *pageDumps
	loggedIn bool
	closed   bool

	tel telemetry.API
}

func New(tel telemetry.API, opts Options) (*Browser, error) {
	assert.NotNil(tel)
	tel = telemetry.NewScopedAPI("browser", tel)

	base, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if !base.IsAbs() {
		return nil, fmt.Errorf("base url \"%s\" is not absolute", opts.BaseUrl)
	}
	if opts.ImplicitWait <= 0 {
		opts.ImplicitWait = DEFAULT_IMPLICIT_WAIT
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 1
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DEFAULT_USER_AGENT
	}

	client := resty.New()
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	if !opts.DisableBypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}
	client.SetHeader("user-agent", opts.UserAgent)
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(base.Hostname()))
	client.SetTimeout(opts.ImplicitWait)

	limiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return limiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(client, tel)

	b := &Browser{
		http: client,
		base: base,
		tel:  tel,
	}
	if opts.DumpDir != "" {
		b.dumps, err = newPageDumps(opts.DumpDir)
		if err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Page returns the current page, or nil if nothing has been loaded yet.
func (b *Browser) Page() dom.Page {
	if b.page == nil {
		return nil
	}
	return b.page
}

// resolve interprets an address relative to the current page, or the base url
// before the first page load.
func (b *Browser) resolve(address string) (*url.URL, error) {
	from := b.base
	if b.page != nil {
		from = b.page.Address()
	}
	return from.Parse(address)
}

// load makes the response the current page.
func (b *Browser) load(res *resty.Response) error {
	if res.IsError() {
		return fmt.Errorf("unexpected status: %s", res.Status())
	}

	address := res.Request.URL
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		// address after redirects
		address = res.RawResponse.Request.URL.String()
	}

	doc, err := dom.ParseDocument(address, bytes.NewReader(res.Body()))
	if err != nil {
		return fmt.Errorf("parse page: %w", err)
	}
	b.page = doc

	if b.dumps != nil {
		err = b.dumps.write(doc)
		if err != nil {
			b.tel.ReportWarning(report_browser_dump_page, err, address)
		}
	}
	return nil
}

// Navigate loads the page at address and makes it the current page.
func (b *Browser) Navigate(ctx context.Context, address string) error {
	target, err := b.resolve(address)
	if err != nil {
		return err
	}

	res, err := b.http.R().
		SetContext(ctx).
		Get(target.String())
	if err == nil {
		err = b.load(res)
	}
	if err != nil {
		b.tel.ReportBroken(report_browser_navigate, err, target.String())
		return fmt.Errorf("navigate to %s: %w", target, err)
	}
	b.tel.ReportDebug("navigated", b.page.Address().String())
	return nil
}

var ignoredInputs = map[string]bool{
	"submit": true,
	"button": true,
	"image":  true,
	"reset":  true,
	"file":   true,
}

var formInputs = dom.Anywhere("input[name], textarea[name], select[name]")

// SubmitForm submits the form found at loc on the current page like a user
// pressing enter would, values in fields replace whatever the form holds.
func (b *Browser) SubmitForm(ctx context.Context, loc dom.Locator, fields map[string]string) error {
	if b.page == nil {
		return fmt.Errorf("submit form %s: no page loaded", loc)
	}
	form, err := b.page.FindElement(loc)
	if err != nil {
		return fmt.Errorf("submit form %s: %w", loc, err)
	}

	values := url.Values{}
	for _, input := range form.FindElements(formInputs) {
		name, _ := input.Attribute("name")
		kind, _ := input.Attribute("type")
		kind = strings.ToLower(kind)
		if ignoredInputs[kind] {
			continue
		}
		if kind == "checkbox" || kind == "radio" {
			if _, checked := input.Attribute("checked"); !checked {
				continue
			}
		}
		value, _ := input.Attribute("value")
		values.Add(name, value)
	}
	for name, value := range fields {
		values.Set(name, value)
	}

	action, ok := form.Attribute("action")
	if !ok || action == "" {
		action = b.page.Address().String()
	}
	method, _ := form.Attribute("method")

	req := b.http.R().SetContext(ctx)
	var res *resty.Response
	if strings.EqualFold(method, "post") {
		res, err = req.SetFormDataFromValues(values).Post(action)
	} else {
		res, err = req.SetQueryParamsFromValues(values).Get(action)
	}
	if err == nil {
		err = b.load(res)
	}
	if err != nil {
		b.tel.ReportBroken(report_browser_submit_form, err, action)
		return fmt.Errorf("submit form %s: %w", loc, err)
	}
	return nil
}

var ErrLoginFailed = errors.New("login failed")

// the sign in form of amazon.co.jp
var signInForm = dom.Anywhere("form[name=signIn]")

type LoginOptions struct {
	Address  string
	Account  string
	Password string
}

// Login signs in with an account and password. It fails with ErrLoginFailed if
// the site shows the sign in form again after submitting it.
func (b *Browser) Login(ctx context.Context, opts LoginOptions) error {
	err := b.Navigate(ctx, opts.Address)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	err = b.SubmitForm(ctx, signInForm, map[string]string{
		"email":    opts.Account,
		"password": opts.Password,
	})
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	_, err = b.page.FindElement(signInForm)
	if err == nil {
		b.tel.ReportBroken(report_browser_login, ErrLoginFailed, opts.Account)
		return ErrLoginFailed
	}
	b.loggedIn = true
	return nil
}

func (b *Browser) LoggedIn() bool {
	return b.loggedIn
}

// Logout visits the sign out address, it does nothing if Login never succeeded.
func (b *Browser) Logout(ctx context.Context, address string) error {
	if !b.loggedIn {
		return nil
	}
	err := b.Navigate(ctx, address)
	if err != nil {
		b.tel.ReportBroken(report_browser_logout, err)
		return fmt.Errorf("logout: %w", err)
	}
	b.loggedIn = false
	return nil
}

// Close releases the connections held by the browser, it is safe to call more than once.
func (b *Browser) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	b.http.GetClient().CloseIdleConnections()
	b.page = nil
	return nil
}
