// Copyright (c) 2025 BVK Chaitanya

package browser

import (
	"errors"
	"os"
	"testing"

	"github.com/bvk/vinbot/workflow"
	"github.com/chromedp/cdproto/dom"
)

func TestSelector(t *testing.T) {
	sel, _, err := selector(workflow.Locator{Kind: workflow.ByName, Value: "firstName"})
	if err != nil {
		t.Fatal(err)
	}
	if want := `[name="firstName"]`; sel != want {
		t.Fatalf("want %s, got %s", want, sel)
	}

	sel, _, err = selector(workflow.Locator{Kind: workflow.ByText, Value: "Sipariş Ver"})
	if err != nil {
		t.Fatal(err)
	}
	if want := `//button[contains(normalize-space(.), 'Sipariş Ver')]`; sel != want {
		t.Fatalf("want %s, got %s", want, sel)
	}

	sel, _, err = selector(workflow.Locator{Kind: workflow.ByPlaceholder, Value: "Teslimat Posta Kodu"})
	if err != nil {
		t.Fatal(err)
	}
	if want := `input[placeholder="Teslimat Posta Kodu"]`; sel != want {
		t.Fatalf("want %s, got %s", want, sel)
	}

	if _, _, err := selector(workflow.Locator{Kind: "label", Value: "x"}); !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("want ErrInvalid for unknown kind, got %v", err)
	}
}

func TestXPathLiteral(t *testing.T) {
	if v := xpathLiteral("plain"); v != "'plain'" {
		t.Fatalf("want single quoted literal, got %s", v)
	}
	if v := xpathLiteral("it's"); v != `"it's"` {
		t.Fatalf("want double quoted literal, got %s", v)
	}
	if v := xpathLiteral(`a'b"c`); v != `concat('a', "'", 'b"c')` {
		t.Fatalf("want concat literal, got %s", v)
	}
}

func TestCenter(t *testing.T) {
	x, y, err := center(dom.Quad{10, 20, 30, 20, 30, 40, 10, 40})
	if err != nil {
		t.Fatal(err)
	}
	if x != 20 || y != 30 {
		t.Fatalf("want (20, 30), got (%v, %v)", x, y)
	}
	if _, _, err := center(dom.Quad{1, 2}); err == nil {
		t.Fatalf("want error for short quad")
	}
}

func TestOptions(t *testing.T) {
	opts := &Options{Evasion: true}
	opts.setDefaults()
	if err := opts.Check(); err != nil {
		t.Fatal(err)
	}
	if opts.UserAgent == "" {
		t.Fatalf("want a user agent in evasion mode")
	}
	if opts.Lang != "tr-TR" {
		t.Fatalf("want tr-TR locale, got %s", opts.Lang)
	}

	bad := &Options{ExecPath: "/nonexistent/chrome"}
	bad.setDefaults()
	if err := bad.Check(); err == nil {
		t.Fatalf("want error for missing browser binary")
	}
}
