// Package testutil holds order history fixtures shared by the scanner, walker and
// session tests.
package testutil

import (
	"bytes"
	"embed"
	"path"
	"testing"

	"orderscan/internal/dom"
)

//go:embed testdata/*.html
var fixtures embed.FS

const (
	HistoryAddress = "https://www.amazon.co.jp/gp/css/order-history"
	Page2Address   = "https://www.amazon.co.jp/gp/css/order-history?startIndex=10"

	PAGE_1        = "history_page1.html"
	PAGE_2        = "history_page2.html"
	PAGE_BROKEN   = "history_broken.html"
	PAGE_BAD_DATE = "history_bad_date.html"
	PAGE_EMPTY    = "history_empty.html"
	PAGE_NO_HREF  = "history_no_href.html"
)

func Fixture(t testing.TB, name string) []byte {
	contents, err := fixtures.ReadFile(path.Join("testdata", name))
	if err != nil {
		t.Fatal(err)
	}
	return contents
}

func Page(t testing.TB, address, name string) *dom.Document {
	doc, err := dom.ParseDocument(address, bytes.NewReader(Fixture(t, name)))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}
