package emitter

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"orderscan/internal/orders"
)

// Sink consumes items as they are scanned.
type Sink interface {
	Write(item orders.Item) error
	// Close flushes whatever has been written so far, it must be called even if
	// the scan failed part way through.
	Close() error
}

type Column int

const (
	COLUMN_DATE Column = iota
	COLUMN_ORDER_ID
	COLUMN_NAME
	COLUMN_ITEM_PRICE
	COLUMN_PAID_PRICE
	COLUMN_ITEM_URL
)

func (c Column) Title() string {
	switch c {
	case COLUMN_DATE:
		return "Date"
	case COLUMN_ORDER_ID:
		return "Order ID"
	case COLUMN_NAME:
		return "Name"
	case COLUMN_ITEM_PRICE:
		return "Item Price"
	case COLUMN_PAID_PRICE:
		return "Paid Price"
	case COLUMN_ITEM_URL:
		return "Item URL"
	}
	return fmt.Sprintf("Column(%d)", int(c))
}

var (
	LayoutStandard = []Column{
		COLUMN_DATE, COLUMN_ORDER_ID, COLUMN_NAME,
		COLUMN_ITEM_PRICE, COLUMN_PAID_PRICE, COLUMN_ITEM_URL,
	}
	// LayoutCompact keeps all the order level fields together at the front.
	LayoutCompact = []Column{
		COLUMN_DATE, COLUMN_ORDER_ID, COLUMN_PAID_PRICE,
		COLUMN_NAME, COLUMN_ITEM_PRICE, COLUMN_ITEM_URL,
	}
)

func ParseLayout(name string) ([]Column, error) {
	switch strings.ToLower(name) {
	case "", "standard":
		return LayoutStandard, nil
	case "compact":
		return LayoutCompact, nil
	}
	return nil, fmt.Errorf("unknown layout \"%s\"", name)
}

// Fallback decides what is rendered for an item that has no price of its own.
type Fallback int

const (
	// FALLBACK_EMPTY renders an empty cell.
	FALLBACK_EMPTY Fallback = iota
	// FALLBACK_PAID_PRICE renders the paid price of the order instead.
	FALLBACK_PAID_PRICE
)

func ParseFallback(name string) (Fallback, error) {
	switch strings.ToLower(name) {
	case "", "empty":
		return FALLBACK_EMPTY, nil
	case "paid":
		return FALLBACK_PAID_PRICE, nil
	}
	return 0, fmt.Errorf("unknown price fallback \"%s\"", name)
}

type Options struct {
	// Verbose renders every field of every row, otherwise the order level fields
	// are left empty for rows that belong to the same order as the row above.
	Verbose bool
	// IncludeURL keeps the Item URL column, it is dropped from Columns otherwise.
	IncludeURL bool
	// Columns defaults to LayoutStandard.
	Columns       []Column
	PriceFallback Fallback
}

func (o Options) columns() []Column {
	layout := o.Columns
	if len(layout) == 0 {
		layout = LayoutStandard
	}
	out := make([]Column, 0, len(layout))
	for _, c := range layout {
		if c == COLUMN_ITEM_URL && !o.IncludeURL {
			continue
		}
		out = append(out, c)
	}
	return out
}

// suppressor remembers the order of the previous row.
type suppressor struct {
	prev *orders.Order
}

// repeated reports whether the item belongs to the order of the previous row,
// if it doesn't, the item's order becomes the new baseline.
func (s *suppressor) repeated(item orders.Item) bool {
	order := item.Order()
	if s.prev != nil && s.prev.Key() == order.Key() {
		return true
	}
	s.prev = &order
	return false
}

// formatter turns items into rows of cells, it is not safe to share between streams.
type formatter struct {
	opts       Options
	columns    []Column
	suppressor suppressor
}

func newFormatter(opts Options) *formatter {
	return &formatter{opts: opts, columns: opts.columns()}
}

func (f *formatter) header() []string {
	out := make([]string, len(f.columns))
	for i, c := range f.columns {
		out[i] = c.Title()
	}
	return out
}

func (f *formatter) row(item orders.Item) []string {
	suppress := false
	if !f.opts.Verbose {
		suppress = f.suppressor.repeated(item)
	}

	out := make([]string, len(f.columns))
	for i, c := range f.columns {
		out[i] = f.cell(c, item, suppress)
	}
	return out
}

func (f *formatter) cell(c Column, item orders.Item, suppress bool) string {
	switch c {
	case COLUMN_DATE:
		if suppress {
			return ""
		}
		return item.Date().Format(time.DateOnly)
	case COLUMN_ORDER_ID:
		if suppress {
			return ""
		}
		return item.OrderID()
	case COLUMN_PAID_PRICE:
		if suppress {
			return ""
		}
		return item.PaidPrice()
	case COLUMN_NAME:
		return item.Name()
	case COLUMN_ITEM_PRICE:
		price, ok := item.Price()
		if !ok && f.opts.PriceFallback == FALLBACK_PAID_PRICE {
			return item.PaidPrice()
		}
		return price
	case COLUMN_ITEM_URL:
		url, _ := item.URL()
		return url
	}
	return ""
}

type multi []Sink

// Multi writes every item to all of the sinks in order.
func Multi(sinks ...Sink) Sink {
	return multi(sinks)
}

func (m multi) Write(item orders.Item) error {
	for _, s := range m {
		err := s.Write(item)
		if err != nil {
			return err
		}
	}
	return nil
}

func (m multi) Close() error {
	var errs []error
	for _, s := range m {
		err := s.Close()
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
