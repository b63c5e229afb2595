// Package orders contains the records produced by scanning an order history.
package orders

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Order is the header shared by every item purchased in one transaction.
type Order struct {
	Date time.Time
	ID   string
	// PaidPrice is the total actually charged after discounts (gift cards, points, ...),
	// it is not the sum of the item prices.
	PaidPrice string
}

// Key identifies an order for the purposes of row suppression.
type Key struct {
	Date time.Time
	ID   string
}

func (o Order) Key() Key {
	return Key{Date: o.Date, ID: o.ID}
}

// Item is one purchased product. It is only ever constructed by a Builder and has
// no setters, so a value handed to a consumer cannot be half-populated.
type Item struct {
	order Order
	name  string
	url   string
	price string

	hasUrl   bool
	hasPrice bool
}

func (i Item) Order() Order { return i.order }
func (i Item) Date() time.Time { return i.order.Date }
func (i Item) OrderID() string { return i.order.ID }
func (i Item) PaidPrice() string { return i.order.PaidPrice }
func (i Item) Name() string { return i.name }
func (i Item) URL() (string, bool) { return i.url, i.hasUrl }
func (i Item) Price() (string, bool) { return i.price, i.hasPrice }

func (i Item) String() string {
	return fmt.Sprintf(
		"%s %s %q price=%q paid=%q url=%q",
		i.order.Date.Format(time.DateOnly), i.order.ID, i.name, i.price, i.order.PaidPrice, i.url,
	)
}

// Builder collects the fields of a single item.
type Builder struct {
	item    Item
	hasName bool
}

func NewBuilder(order Order) *Builder {
	return &Builder{item: Item{order: order}}
}

func (b *Builder) Name(name string) *Builder {
	b.item.name = name
	b.hasName = true
	return b
}

func (b *Builder) URL(url string) *Builder {
	b.item.url = url
	b.item.hasUrl = true
	return b
}

func (b *Builder) Price(price string) *Builder {
	b.item.price = price
	b.item.hasPrice = true
	return b
}

// Build returns the item once every required field has been resolved.
func (b *Builder) Build() (Item, error) {
	if b.item.order.ID == "" {
		return Item{}, &ParseError{Field: "order id"}
	}
	if b.item.order.Date.IsZero() {
		return Item{}, &ParseError{Field: "order date"}
	}
	if !b.hasName || b.item.name == "" {
		return Item{}, &ParseError{Field: "item name", Value: b.item.name}
	}
	return b.item, nil
}

var dateRegex = regexp.MustCompile(`(\d{4})年(\d{1,2})月(\d{1,2})日`)

// ParseDate parses dates like "2016年3月4日" into a calendar date (midnight UTC).
func ParseDate(text string) (time.Time, error) {
	groups := dateRegex.FindStringSubmatch(text)
	if len(groups) < 4 {
		return time.Time{}, &ParseError{Field: "order date", Value: text}
	}

	year, _ := strconv.Atoi(groups[1])
	month, _ := strconv.Atoi(groups[2])
	day, _ := strconv.Atoi(groups[3])

	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflowing values (2月30日 -> 3月1日)
	if date.Year() != year || int(date.Month()) != month || date.Day() != day {
		return time.Time{}, &ParseError{Field: "order date", Value: text}
	}
	return date, nil
}

// Date builds a calendar date, it exists mostly so call sites read like the dates they mean.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
