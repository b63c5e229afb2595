// Package dom is the element-query capability the scanner and walker depend on.
// Any rendering engine can provide it, the implementation in this package wraps a
// goquery document.
package dom

import (
	"errors"
	"io"
	"net/url"
	"strings"

	"orderscan/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

var ErrNoSuchElement = errors.New("no such element")

// Locator describes where an element lives relative to another element.
//
// Path walks direct children one CSS step at a time, (the xpath `a/b[2]/c` becomes
// Path("a", "b:nth-of-type(2)", "c")). Anywhere matches every descendant (xpath `//`).
// In both cases, class selectors like `.order` match whole class tokens only, so
// `.order` never matches `order-attributes`.
type Locator struct {
	anywhere bool
	steps    []string
}

func Path(steps ...string) Locator {
	return Locator{steps: steps}
}

func Anywhere(selector string) Locator {
	return Locator{anywhere: true, steps: []string{selector}}
}

func (l Locator) String() string {
	if l.anywhere {
		return "//" + l.steps[0]
	}
	return strings.Join(l.steps, " / ")
}

type Element interface {
	// FindElement returns the first match in document order, or ErrNoSuchElement.
	FindElement(loc Locator) (Element, error)
	// FindElements returns every match in document order.
	FindElements(loc Locator) []Element
	// Text returns the rendered text, trimmed and with whitespace collapsed.
	Text() string
	// Attribute returns the value of an attribute, links (href, src, action) are
	// resolved against the address of the page like a browser would.
	Attribute(name string) (string, bool)
}

type Page interface {
	Element
	Address() *url.URL
}

var urlAttributes = map[string]bool{
	"href":   true,
	"src":    true,
	"action": true,
}

type element struct {
	sel  *goquery.Selection
	base *url.URL
}

func (e element) resolve(loc Locator) *goquery.Selection {
	if loc.anywhere {
		return e.sel.Find(loc.steps[0])
	}
	current := e.sel
	for _, step := range loc.steps {
		current = current.ChildrenFiltered(step)
	}
	return current
}

func (e element) FindElement(loc Locator) (Element, error) {
	matches := e.resolve(loc)
	if matches.Length() == 0 {
		return nil, ErrNoSuchElement
	}
	return element{sel: matches.First(), base: e.base}, nil
}

func (e element) FindElements(loc Locator) []Element {
	matches := e.resolve(loc)
	out := make([]Element, 0, matches.Length())
	matches.Each(func(_ int, s *goquery.Selection) {
		out = append(out, element{sel: s, base: e.base})
	})
	return out
}

func (e element) Text() string {
	if len(e.sel.Nodes) == 0 {
		return ""
	}
	return htmlutil.VisibleText(e.sel.Nodes[0])
}

func (e element) Attribute(name string) (string, bool) {
	value, exists := e.sel.Attr(name)
	if !exists {
		return "", false
	}
	if urlAttributes[strings.ToLower(name)] {
		return htmlutil.ResolveURL(e.base, value), true
	}
	return value, true
}

// Document is a Page backed by a parsed html document.
type Document struct {
	element
	address *url.URL
}

func ParseDocument(address string, r io.Reader) (*Document, error) {
	parsed, err := url.Parse(address)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}

	base := parsed
	// <base href> changes what relative links resolve against
	if href, ok := doc.Find("head base[href]").First().Attr("href"); ok {
		if resolved, err := parsed.Parse(href); err == nil {
			base = resolved
		}
	}

	return &Document{
		element: element{sel: doc.Selection, base: base},
		address: parsed,
	}, nil
}

func (d *Document) Address() *url.URL {
	return d.address
}

// Html serializes the whole document, it is used for page dumps.
func (d *Document) Html() (string, error) {
	return goquery.OuterHtml(d.sel)
}
