package scanner

import (
	"errors"
	"fmt"
	"time"

	"orderscan/internal/components/assert"
	"orderscan/internal/components/telemetry"
	"orderscan/internal/dom"
	"orderscan/internal/orders"
)

const (
	report_scanner_scan_page      = "scanner.scan-page"
	report_scanner_scan_order     = "scanner.scan-order"
	report_scanner_skip_order     = "scanner.skip-order"
	report_scanner_drop_order     = "scanner.drop-order"
	report_scanner_optional_field = "scanner.optional-field"
	report_scanner_items          = "scanner.items"
)

type Options struct {
	// Force skips order groups that fail to parse instead of aborting the scan.
	Force bool
	// DropBefore drops orders placed before this date, the zero value disables it.
	DropBefore time.Time
	// DropAfter drops orders placed after this date, the zero value disables it.
	DropAfter time.Time
}

// Scanner turns a single rendered order history page into items.
// It holds no state between calls to Scan and never navigates.
type Scanner struct {
	opts Options
	tel  telemetry.API
}

func New(tel telemetry.API, opts Options) *Scanner {
	assert.NotNil(tel)
	return &Scanner{
		opts: opts,
		tel:  telemetry.NewScopedAPI("order_scanner", tel),
	}
}

// Scan calls yield for every item on the page in document order.
//
// The page is extracted completely before the first item is handed out, so when an
// order fails without Force, nothing from this page reaches yield. An error returned by
// yield stops the scan and is returned as is.
func (s *Scanner) Scan(page dom.Page, yield func(orders.Item) error) error {
	assert.NotNil(page)

	address := page.Address().String()
	groups := page.FindElements(orderGroup)
	s.tel.ReportDebug(report_scanner_scan_page, address, len(groups))

	var items []orders.Item
	for i, group := range groups {
		s.tel.ReportDebug(
			report_scanner_scan_order,
			fmt.Sprintf("%d/%d", i+1, len(groups)),
		)

		orderItems, err := s.scanOrder(group)
		if err != nil {
			err = &orders.OrderError{Index: i, Page: address, Err: err}
			if !s.opts.Force {
				s.tel.ReportBroken(report_scanner_scan_order, err)
				return err
			}
			// under force a failing order is only visible at debug verbosity
			s.tel.ReportDebug(report_scanner_skip_order, i, address, err)
			continue
		}
		items = append(items, orderItems...)
	}

	for _, item := range items {
		err := yield(item)
		if err != nil {
			return err
		}
	}
	s.tel.ReportCount(report_scanner_items, int64(len(items)))
	return nil
}

func (s *Scanner) requiredText(parent dom.Element, loc dom.Locator, field string) (string, error) {
	el, err := parent.FindElement(loc)
	if err != nil {
		return "", &orders.LookupError{Field: field, Locator: loc.String(), Err: err}
	}
	return el.Text(), nil
}

func (s *Scanner) dropped(order orders.Order) bool {
	if !s.opts.DropBefore.IsZero() && order.Date.Before(s.opts.DropBefore) {
		s.tel.ReportDebug(
			report_scanner_drop_order, order.ID,
			fmt.Sprintf("%s < %s", order.Date.Format(time.DateOnly), s.opts.DropBefore.Format(time.DateOnly)),
		)
		return true
	}
	if !s.opts.DropAfter.IsZero() && s.opts.DropAfter.Before(order.Date) {
		s.tel.ReportDebug(
			report_scanner_drop_order, order.ID,
			fmt.Sprintf("%s < %s", s.opts.DropAfter.Format(time.DateOnly), order.Date.Format(time.DateOnly)),
		)
		return true
	}
	return false
}

func (s *Scanner) scanHeader(row dom.Element) (orders.Order, error) {
	inner, err := row.FindElement(headerInner)
	if err != nil {
		return orders.Order{}, &orders.LookupError{Field: "order header", Locator: headerInner.String(), Err: err}
	}

	dateText, err := s.requiredText(inner, headerDate, "order date")
	if err != nil {
		return orders.Order{}, err
	}
	paidPrice, err := s.requiredText(inner, headerPaidPrice, "paid price")
	if err != nil {
		return orders.Order{}, err
	}
	orderId, err := s.requiredText(inner, headerOrderId, "order id")
	if err != nil {
		return orders.Order{}, err
	}
	if orderId == "" {
		return orders.Order{}, &orders.ParseError{Field: "order id"}
	}

	date, err := orders.ParseDate(dateText)
	if err != nil {
		return orders.Order{}, err
	}

	return orders.Order{
		Date:      date,
		ID:        orderId,
		PaidPrice: paidPrice,
	}, nil
}

func (s *Scanner) scanOrder(group dom.Element) ([]orders.Item, error) {
	rows := group.FindElements(orderRows)
	if len(rows) == 0 {
		return nil, &orders.LookupError{
			Field:   "order header",
			Locator: orderRows.String(),
			Err:     dom.ErrNoSuchElement,
		}
	}

	order, err := s.scanHeader(rows[0])
	if err != nil {
		return nil, err
	}
	if s.dropped(order) {
		return nil, nil
	}

	var items []orders.Item
	for _, row := range rows[1:] {
		for _, block := range row.FindElements(itemBlocks) {
			item, err := s.scanItem(order, block)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
	}
	return items, nil
}

func (s *Scanner) scanItem(order orders.Order, block dom.Element) (orders.Item, error) {
	right, err := block.FindElement(itemRightColumn)
	if err != nil {
		return orders.Item{}, &orders.LookupError{Field: "item", Locator: itemRightColumn.String(), Err: err}
	}
	nameDiv, err := right.FindElement(itemName)
	if err != nil {
		return orders.Item{}, &orders.LookupError{Field: "item name", Locator: itemName.String(), Err: err}
	}

	builder := orders.NewBuilder(order).Name(nameDiv.Text())

	link, err := nameDiv.FindElement(itemLink)
	if err == nil {
		href, ok := link.Attribute("href")
		if ok && href != "" {
			builder.URL(href)
		}
	} else {
		s.optionalMissing(order, "item url", err)
	}

	price, err := right.FindElement(itemPrice)
	if err == nil {
		builder.Price(price.Text())
	} else {
		s.optionalMissing(order, "item price", err)
	}

	return builder.Build()
}

func (s *Scanner) optionalMissing(order orders.Order, field string, err error) {
	if !errors.Is(err, dom.ErrNoSuchElement) {
		s.tel.ReportWarning(report_scanner_optional_field, order.ID, field, err)
		return
	}
	s.tel.ReportDebug(report_scanner_optional_field, order.ID, field, "not present")
}
