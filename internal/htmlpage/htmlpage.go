// Package htmlpage serves saved HTML documents through the dom.Page interface.
// Nothing leaves the process: clicks and form input are recorded instead of sent.
package htmlpage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/network"

	"github.com/ibeckermayer/kudos4me/internal/dom"
)

var ErrPageNotFound = errors.New("page not found")

// Page is an offline browsing context over goquery documents
type Page struct {
	doc     *goquery.Document
	routes  map[string]string
	cookies []*network.Cookie

	// OnClick, when set, runs for every click and may mutate the clicked
	// node or fail the click.
	OnClick func(s *goquery.Selection) error

	// Strict makes Navigate fail for URLs without a route. Otherwise the
	// current document stays loaded.
	Strict bool

	visited []string
	keys    []string
	filled  map[string]string
	clicks  []string
}

// New parses html as the initially loaded document
func New(html string) (*Page, error) {
	p := &Page{
		routes: map[string]string{},
		filled: map[string]string{},
	}
	if err := p.SetHTML(html); err != nil {
		return nil, err
	}
	return p, nil
}

// Open loads a saved page from disk
func Open(path string) (*Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return New(string(data))
}

// SetHTML replaces the loaded document
func (p *Page) SetHTML(html string) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return fmt.Errorf("failed to parse html: %w", err)
	}
	p.doc = doc
	return nil
}

// Route makes Navigate(url) load html
func (p *Page) Route(url, html string) {
	p.routes[url] = html
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.visited = append(p.visited, url)
	html, ok := p.routes[url]
	if !ok {
		if p.Strict {
			return fmt.Errorf("%w: %s", ErrPageNotFound, url)
		}
		return nil
	}
	return p.SetHTML(html)
}

func (p *Page) Fill(ctx context.Context, selector, value string) error {
	s := p.doc.Find(selector)
	if s.Length() == 0 {
		return fmt.Errorf("failed to fill %s: no matching element", selector)
	}
	s.First().SetAttr("value", value)
	p.filled[selector] = value
	return nil
}

func (p *Page) ClickOn(ctx context.Context, selector string) error {
	s := p.doc.Find(selector)
	if s.Length() == 0 {
		return fmt.Errorf("failed to click %s: no matching element", selector)
	}
	return p.click(s.First())
}

func (p *Page) click(s *goquery.Selection) error {
	if p.OnClick != nil {
		if err := p.OnClick(s); err != nil {
			return err
		}
	}
	p.clicks = append(p.clicks, label(s))
	return nil
}

// WaitFor never blocks: a static document is already fully rendered
func (p *Page) WaitFor(ctx context.Context, selector string, timeout time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return p.doc.Find(selector).Length() > 0, nil
}

func (p *Page) PressKey(ctx context.Context, key string) error {
	p.keys = append(p.keys, key)
	return nil
}

func (p *Page) Find(ctx context.Context, selector string) ([]dom.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.wrap(p.doc.Find(selector)), nil
}

func (p *Page) Cookies(ctx context.Context) ([]*network.Cookie, error) {
	out := make([]*network.Cookie, len(p.cookies))
	copy(out, p.cookies)
	return out, nil
}

func (p *Page) SetCookies(ctx context.Context, cookies []*network.Cookie) error {
	p.cookies = append(p.cookies, cookies...)
	return nil
}

func (p *Page) ClearCookies(ctx context.Context) error {
	p.cookies = nil
	return nil
}

// Close is a no-op so Page can stand in for a live browser
func (p *Page) Close() error { return nil }

// Visited lists every URL passed to Navigate
func (p *Page) Visited() []string { return p.visited }

// Keys lists every key press
func (p *Page) Keys() []string { return p.keys }

// Filled returns the last value filled into selector
func (p *Page) Filled(selector string) (string, bool) {
	v, ok := p.filled[selector]
	return v, ok
}

// Clicks lists clicked nodes by id attribute, or by tag name when they have none
func (p *Page) Clicks() []string { return p.clicks }

func (p *Page) wrap(s *goquery.Selection) []dom.Element {
	elements := make([]dom.Element, 0, s.Length())
	s.Each(func(_ int, n *goquery.Selection) {
		elements = append(elements, &element{page: p, sel: n})
	})
	return elements
}

func label(s *goquery.Selection) string {
	if id, ok := s.Attr("id"); ok && id != "" {
		return id
	}
	return goquery.NodeName(s)
}

type element struct {
	page *Page
	sel  *goquery.Selection
}

func (e *element) Find(ctx context.Context, selector string) ([]dom.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.page.wrap(e.sel.Find(selector)), nil
}

func (e *element) Attribute(ctx context.Context, name string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	v, ok := e.sel.Attr(name)
	return v, ok, nil
}

func (e *element) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.page.click(e.sel)
}
