// Package dom describes the browser capability the kudos runner drives.
// The live implementation is internal/browser; internal/htmlpage serves saved pages.
package dom

import (
	"context"
	"time"

	"github.com/chromedp/cdproto/network"
)

// Key names accepted by Page.PressKey
const (
	KeyPageDown = "PageDown"
	KeyPageUp   = "PageUp"
)

// Element is a handle to one rendered node
type Element interface {
	// Find returns the descendants matching selector in document order.
	// No match is an empty slice, not an error.
	Find(ctx context.Context, selector string) ([]Element, error)

	// Attribute reads an attribute; ok is false when it is absent.
	Attribute(ctx context.Context, name string) (value string, ok bool, err error)

	// Click clicks the node without waiting for any navigation it triggers.
	Click(ctx context.Context) error
}

// Browser is the subset of page operations needed to sign in and persist a session
type Browser interface {
	Navigate(ctx context.Context, url string) error
	Fill(ctx context.Context, selector, value string) error
	ClickOn(ctx context.Context, selector string) error

	// WaitFor blocks until selector matches or timeout passes. It reports
	// whether the selector matched.
	WaitFor(ctx context.Context, selector string, timeout time.Duration) (bool, error)

	Cookies(ctx context.Context) ([]*network.Cookie, error)
	SetCookies(ctx context.Context, cookies []*network.Cookie) error
	ClearCookies(ctx context.Context) error
}

// Page is a single browsing context
type Page interface {
	Browser

	PressKey(ctx context.Context, key string) error
	Find(ctx context.Context, selector string) ([]Element, error)
}
