package walker

import (
	"context"
	"errors"
	"fmt"

	"orderscan/internal/components/assert"
	"orderscan/internal/components/telemetry"
	"orderscan/internal/dom"
	"orderscan/internal/orders"
	"orderscan/internal/scanner"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	report_walker_walk      = "walker.walk"
	report_walker_next_page = "walker.next-page"
	report_walker_max_pages = "walker.max-pages"
	report_walker_pages     = "walker.pages"
)

var tracer = otel.Tracer("orderscan/walker")

var (
	// the "次へ" (next) button
	nextControl = dom.Anywhere("ul.a-pagination > li.a-last")
	nextLink    = dom.Path("a")
)

var errMissingHref = errors.New("next page link has no href")

// Navigator owns the current page, only the walker calls Navigate.
type Navigator interface {
	// Page returns the currently loaded page, or nil if nothing has been loaded.
	Page() dom.Page
	Navigate(ctx context.Context, address string) error
}

// Preparer is awaited once before the first page is scanned, it exists so that a
// human can finish whatever the login flow requires. It has no timeout.
type Preparer interface {
	Prepare(ctx context.Context) error
}

type PreparerFunc func(ctx context.Context) error

func (f PreparerFunc) Prepare(ctx context.Context) error {
	return f(ctx)
}

type Options struct {
	Prepare Preparer
	// MaxPages stops the walk after this many pages, 0 means no limit.
	MaxPages int
}

type Walker struct {
	nav     Navigator
	scanner *scanner.Scanner
	opts    Options
	tel     telemetry.API
}

func New(tel telemetry.API, nav Navigator, sc *scanner.Scanner, opts Options) *Walker {
	assert.NotNil(tel)
	assert.NotNil(nav)
	assert.NotNil(sc)
	assert.True(opts.MaxPages >= 0, "max pages must not be negative")
	return &Walker{
		nav:     nav,
		scanner: sc,
		opts:    opts,
		tel:     telemetry.NewScopedAPI("order_walker", tel),
	}
}

// Walk scans the current page and every page after it, calling yield for each item in order.
func (w *Walker) Walk(ctx context.Context, yield func(orders.Item) error) error {
	if w.opts.Prepare != nil {
		err := w.opts.Prepare.Prepare(ctx)
		if err != nil {
			return fmt.Errorf("prepare: %w", err)
		}
		err = w.reload(ctx)
		if err != nil {
			return err
		}
	}

	pages := 0
	defer func() {
		w.tel.ReportCount(report_walker_pages, int64(pages))
	}()

	for {
		page := w.nav.Page()
		if page == nil {
			err := fmt.Errorf("no page has been loaded")
			w.tel.ReportBroken(report_walker_walk, err)
			return err
		}
		pages++

		more, err := w.walkPage(ctx, page, pages, yield)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
}

// reload fetches the current page again so that whatever changed while preparing
// is what gets scanned.
func (w *Walker) reload(ctx context.Context) error {
	page := w.nav.Page()
	if page == nil {
		return nil
	}
	address := page.Address().String()
	err := w.nav.Navigate(ctx, address)
	if err != nil {
		err = &orders.NavigationError{Address: address, Err: err}
		w.tel.ReportBroken(report_walker_walk, err)
		return err
	}
	return nil
}

func (w *Walker) walkPage(ctx context.Context, page dom.Page, pageNo int, yield func(orders.Item) error) (bool, error) {
	ctx, span := tracer.Start(ctx, "walker.page")
	defer span.End()
	span.SetAttributes(
		attribute.Int("page.number", pageNo),
		attribute.String("page.address", page.Address().String()),
	)

	err := w.scanner.Scan(page, yield)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "scan page")
		return false, err
	}

	href, more, err := w.next(page)
	if err == nil && more && w.opts.MaxPages > 0 && pageNo >= w.opts.MaxPages {
		w.tel.ReportWarning(report_walker_max_pages, w.opts.MaxPages, page.Address().String())
		return false, nil
	}
	if err == nil && more {
		w.tel.ReportDebug(report_walker_next_page, href)
		err = w.nav.Navigate(ctx, href)
		if err != nil {
			err = &orders.NavigationError{Address: href, Err: err}
		}
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "next page")
		w.tel.ReportBroken(report_walker_next_page, err)
		return false, err
	}
	return more, nil
}

// next finds the address of the next page. The last page still has the control but
// without a link, a page without any pagination has nothing to follow.
func (w *Walker) next(page dom.Page) (string, bool, error) {
	last, err := page.FindElement(nextControl)
	if errors.Is(err, dom.ErrNoSuchElement) {
		w.tel.ReportDebug(report_walker_next_page, "no pagination", page.Address().String())
		return "", false, nil
	}
	if err != nil {
		return "", false, &orders.NavigationError{Address: page.Address().String(), Err: err}
	}

	links := last.FindElements(nextLink)
	if len(links) == 0 {
		w.tel.ReportDebug(report_walker_next_page, "last page", page.Address().String())
		return "", false, nil
	}

	href, ok := links[0].Attribute("href")
	if !ok || href == "" {
		return "", false, &orders.NavigationError{Address: page.Address().String(), Err: errMissingHref}
	}
	return href, true, nil
}
