package scanner

import "orderscan/internal/dom"

// There are no ids or otherwise stable attributes on the order history markup, so every
// field is found through its position. Each field gets exactly one locator here, if the
// markup drifts, this file is the only thing that should need to change.
var (
	// <div class="a-box-group a-spacing-base order">
	orderGroup = dom.Anywhere("div.order")

	// the first row is the header (date, total, order id), the rest are shipments
	orderRows = dom.Path("div:not(.order-attributes)")

	headerInner     = dom.Path("div", "div", "div.a-fixed-right-grid-inner")
	headerDate      = dom.Path("div:nth-of-type(1)", "div", "div:nth-of-type(1)", "div:nth-of-type(2)", "span")
	headerPaidPrice = dom.Path("div:nth-of-type(1)", "div", "div:nth-of-type(2)", "div:nth-of-type(2)", "span")
	headerOrderId   = dom.Path("div:nth-of-type(2)", "div:nth-of-type(1)", "span:nth-of-type(2)")

	// one shipment row can bundle several products
	itemBlocks      = dom.Path("div", "div", "div", "div", "div", "div.a-fixed-left-grid", "div")
	itemRightColumn = dom.Path("div.a-col-right")

	// the first row of the right column is the product name, usually wrapped in a link
	// to the product page except for things like android apps
	itemName = dom.Path("div:nth-of-type(1)")
	itemLink = dom.Path("a")

	// only shown for items that didn't cost 0
	itemPrice = dom.Path("div", "span.a-color-price")
)
