package htmlpage

import (
	"context"
	"errors"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/network"
)

const feed = `<html><body>
<div class="user-menu"><a href="/athletes/42">me</a></div>
<div data-testid="web-feed-entry" id="e1"><button data-testid="unfilled_kudos" id="k1">kudos</button></div>
<div data-testid="web-feed-entry" id="e2"><span>no button</span></div>
</body></html>`

func TestFindInDocumentOrder(t *testing.T) {
	ctx := context.Background()
	p, err := New(feed)
	if err != nil {
		t.Fatal(err)
	}

	entries, err := p.Find(ctx, `[data-testid="web-feed-entry"]`)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	id, ok, err := entries[1].Attribute(ctx, "id")
	if err != nil || !ok || id != "e2" {
		t.Fatalf("second entry id = %q, %v, %v", id, ok, err)
	}

	buttons, err := entries[1].Find(ctx, `[data-testid="unfilled_kudos"]`)
	if err != nil {
		t.Fatal(err)
	}
	if len(buttons) != 0 {
		t.Fatalf("expected no buttons in second entry, got %d", len(buttons))
	}
}

func TestAttributeMissing(t *testing.T) {
	ctx := context.Background()
	p, _ := New(feed)
	links, _ := p.Find(ctx, ".user-menu > a")
	if len(links) != 1 {
		t.Fatalf("expected one link, got %d", len(links))
	}
	if _, ok, _ := links[0].Attribute(ctx, "title"); ok {
		t.Fatal("title attribute should be absent")
	}
}

func TestClickRecordsAndHooks(t *testing.T) {
	ctx := context.Background()
	p, _ := New(feed)
	p.OnClick = func(s *goquery.Selection) error {
		s.SetAttr("data-testid", "filled_kudos")
		return nil
	}

	buttons, _ := p.Find(ctx, `[data-testid="unfilled_kudos"]`)
	if err := buttons[0].Click(ctx); err != nil {
		t.Fatal(err)
	}
	if got := p.Clicks(); len(got) != 1 || got[0] != "k1" {
		t.Fatalf("clicks = %v", got)
	}

	again, _ := p.Find(ctx, `[data-testid="unfilled_kudos"]`)
	if len(again) != 0 {
		t.Fatalf("hook should have filled the button, found %d unfilled", len(again))
	}
}

func TestClickHookError(t *testing.T) {
	ctx := context.Background()
	p, _ := New(feed)
	boom := errors.New("detached")
	p.OnClick = func(*goquery.Selection) error { return boom }

	if err := p.ClickOn(ctx, "#k1"); !errors.Is(err, boom) {
		t.Fatalf("expected hook error, got %v", err)
	}
	if len(p.Clicks()) != 0 {
		t.Fatal("failed click must not be recorded")
	}
}

func TestNavigateRoutes(t *testing.T) {
	ctx := context.Background()
	p, _ := New(`<html><body></body></html>`)
	p.Route("https://example.com/feed", feed)

	if err := p.Navigate(ctx, "https://example.com/feed"); err != nil {
		t.Fatal(err)
	}
	if ok, _ := p.WaitFor(ctx, `[data-testid="web-feed-entry"]`, 0); !ok {
		t.Fatal("routed document not loaded")
	}

	if err := p.Navigate(ctx, "https://example.com/other"); err != nil {
		t.Fatalf("lenient navigate should not fail: %v", err)
	}

	p.Strict = true
	if err := p.Navigate(ctx, "https://example.com/other"); !errors.Is(err, ErrPageNotFound) {
		t.Fatalf("expected ErrPageNotFound, got %v", err)
	}
	if len(p.Visited()) != 3 {
		t.Fatalf("visited = %v", p.Visited())
	}
}

func TestFillAndCookies(t *testing.T) {
	ctx := context.Background()
	p, _ := New(`<form><input id="email"></form>`)

	if err := p.Fill(ctx, "#email", "a@b.c"); err != nil {
		t.Fatal(err)
	}
	if v, ok := p.Filled("#email"); !ok || v != "a@b.c" {
		t.Fatalf("filled = %q, %v", v, ok)
	}
	if err := p.Fill(ctx, "#password", "x"); err == nil {
		t.Fatal("expected error for missing field")
	}

	p.SetCookies(ctx, []*network.Cookie{{Name: "sid", Value: "1"}})
	cookies, _ := p.Cookies(ctx)
	if len(cookies) != 1 {
		t.Fatalf("cookies = %d", len(cookies))
	}
	p.ClearCookies(ctx)
	cookies, _ = p.Cookies(ctx)
	if len(cookies) != 0 {
		t.Fatalf("cookies after clear = %d", len(cookies))
	}
}
