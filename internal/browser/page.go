package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"github.com/ibeckermayer/kudos4me/internal/dom"
)

// Page is a single chromedp tab. All operations run sequentially on it.
type Page struct {
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc

	// actionTimeout bounds selector-driven actions such as Fill and ClickOn
	actionTimeout time.Duration
}

// New starts a browser and opens one tab
func New(ctx context.Context, settings Settings, actionTimeout time.Duration) (*Page, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, Options(settings)...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	// An empty Run starts the browser so launch failures surface here
	if err := chromedp.Run(tabCtx); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	return &Page{
		ctx:           tabCtx,
		cancelTab:     cancelTab,
		cancelAlloc:   cancelAlloc,
		actionTimeout: actionTimeout,
	}, nil
}

// Close shuts the tab and the browser process
func (p *Page) Close() error {
	p.cancelTab()
	p.cancelAlloc()
	return nil
}

// run executes actions on the tab while honouring cancellation of the caller's ctx
func (p *Page) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(p.ctx, timeout)
	} else {
		runCtx, cancel = context.WithCancel(p.ctx)
	}
	defer cancel()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	if err := p.run(ctx, 0, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

func (p *Page) Fill(ctx context.Context, selector, value string) error {
	err := p.run(ctx, p.actionTimeout,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.SetValue(selector, "", chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("failed to fill %s: %w", selector, err)
	}
	return nil
}

func (p *Page) ClickOn(ctx context.Context, selector string) error {
	if err := p.run(ctx, p.actionTimeout, chromedp.Click(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("failed to click %s: %w", selector, err)
	}
	return nil
}

func (p *Page) WaitFor(ctx context.Context, selector string, timeout time.Duration) (bool, error) {
	err := p.run(ctx, timeout, chromedp.WaitReady(selector, chromedp.ByQuery))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		return false, nil
	default:
		return false, err
	}
}

func (p *Page) PressKey(ctx context.Context, key string) error {
	var code string
	switch key {
	case dom.KeyPageDown:
		code = kb.PageDown
	case dom.KeyPageUp:
		code = kb.PageUp
	default:
		code = key
	}

	return p.run(ctx, p.actionTimeout, chromedp.KeyEvent(code))
}

func (p *Page) Find(ctx context.Context, selector string) ([]dom.Element, error) {
	return p.findNodes(ctx, selector)
}

// findNodes queries without waiting; an absent selector yields no elements
func (p *Page) findNodes(ctx context.Context, selector string, opts ...chromedp.QueryOption) ([]dom.Element, error) {
	var nodes []*cdp.Node
	opts = append([]chromedp.QueryOption{chromedp.ByQueryAll, chromedp.AtLeast(0)}, opts...)
	if err := p.run(ctx, p.actionTimeout, chromedp.Nodes(selector, &nodes, opts...)); err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", selector, err)
	}

	elements := make([]dom.Element, 0, len(nodes))
	for _, n := range nodes {
		elements = append(elements, &element{page: p, node: n})
	}
	return elements, nil
}

// Cookies returns all cookies of the browser
func (p *Page) Cookies(ctx context.Context) ([]*network.Cookie, error) {
	var cookies []*network.Cookie

	err := p.run(ctx, p.actionTimeout,
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			cookies, err = storage.GetCookies().Do(ctx)
			return err
		}),
	)

	return cookies, err
}

// SetCookies injects cookies; call it before navigating to the site
func (p *Page) SetCookies(ctx context.Context, cookies []*network.Cookie) error {
	return p.run(ctx, p.actionTimeout,
		chromedp.ActionFunc(func(ctx context.Context) error {
			for _, c := range cookies {
				params := network.SetCookie(c.Name, c.Value).
					WithDomain(c.Domain).
					WithPath(c.Path).
					WithSecure(c.Secure).
					WithHTTPOnly(c.HTTPOnly)

				// Empty enums are left unset for Chrome to default
				if c.SameSite != "" {
					params = params.WithSameSite(c.SameSite)
				}
				if c.Priority != "" {
					params = params.WithPriority(c.Priority)
				}

				if !c.Session && c.Expires > 0 {
					expires := cdp.TimeSinceEpoch(time.Unix(int64(c.Expires), 0))
					params = params.WithExpires(&expires)
				}

				if err := params.Do(ctx); err != nil {
					return fmt.Errorf("failed to set cookie %s: %w", c.Name, err)
				}
			}
			return nil
		}),
	)
}

func (p *Page) ClearCookies(ctx context.Context) error {
	return p.run(ctx, p.actionTimeout, network.ClearBrowserCookies())
}

// element is a node resolved on the live page
type element struct {
	page *Page
	node *cdp.Node
}

func (e *element) Find(ctx context.Context, selector string) ([]dom.Element, error) {
	return e.page.findNodes(ctx, selector, chromedp.FromNode(e.node))
}

func (e *element) Attribute(ctx context.Context, name string) (string, bool, error) {
	var (
		value string
		ok    bool
	)
	err := e.page.run(ctx, e.page.actionTimeout,
		chromedp.AttributeValue([]cdp.NodeID{e.node.NodeID}, name, &value, &ok, chromedp.ByNodeID),
	)
	if err != nil {
		return "", false, fmt.Errorf("failed to read attribute %s: %w", name, err)
	}
	return value, ok, nil
}

// Click dispatches a mouse click at the node's centre. It returns as soon
// as the event is delivered.
func (e *element) Click(ctx context.Context) error {
	return e.page.run(ctx, e.page.actionTimeout, chromedp.MouseClickNode(e.node))
}
