// Copyright (c) 2025 BVK Chaitanya

// Package browser implements the order workflow's automation driver on top
// of a chrome instance controlled through the devtools protocol.
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bvk/vinbot/workflow"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

const hideWebdriver = `Object.defineProperty(navigator, 'webdriver', {get: () => undefined});`

// Driver is a workflow.Driver backed by a single chrome tab.
type Driver struct {
	opts Options

	ctx context.Context

	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc

	closeOnce sync.Once
	closeErr  error

	randMu sync.Mutex
	rand   *rand.Rand
}

var _ workflow.Driver = &Driver{}

func allocatorOptions(opts *Options) []chromedp.ExecAllocatorOption {
	list := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	list = append(list,
		chromedp.Flag("headless", opts.Headless),
		chromedp.WindowSize(opts.WindowWidth, opts.WindowHeight),
		chromedp.Flag("lang", opts.Lang),
	)
	if len(opts.UserAgent) != 0 {
		list = append(list, chromedp.UserAgent(opts.UserAgent))
	}
	if len(opts.ExecPath) != 0 {
		list = append(list, chromedp.ExecPath(opts.ExecPath))
	}
	if opts.Evasion {
		list = append(list,
			chromedp.Flag("disable-blink-features", "AutomationControlled"),
			chromedp.Flag("enable-automation", false),
		)
	}
	return list
}

// New launches a browser and opens a tab. The browser lifetime is not tied to
// the input context; callers must call Close.
func New(ctx context.Context, opts *Options) (_ *Driver, status error) {
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()
	if err := opts.Check(); err != nil {
		return nil, err
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocatorOptions(opts)...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...any) {
		slog.Debug(fmt.Sprintf(format, args...))
	}))

	d := &Driver{
		opts:        *opts,
		ctx:         tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		rand:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	defer func() {
		if status != nil {
			d.Close()
		}
	}()

	// First run on the tab context allocates the browser, so it must not be
	// a derived context with a shorter lifetime.
	if err := chromedp.Run(tabCtx); err != nil {
		return nil, fmt.Errorf("could not launch browser: %w", err)
	}

	sctx, scancel := context.WithTimeout(ctx, opts.StartTimeout)
	defer scancel()

	actions := []chromedp.Action{
		chromedp.ActionFunc(func(ctx context.Context) error {
			if !opts.Evasion {
				return nil
			}
			_, err := page.AddScriptToEvaluateOnNewDocument(hideWebdriver).Do(ctx)
			return err
		}),
	}
	if err := d.run(sctx, actions...); err != nil {
		return nil, fmt.Errorf("could not start browser: %w", err)
	}
	slog.Info("started browser session", "headless", opts.Headless, "evasion", opts.Evasion)
	return d, nil
}

// run executes the actions in the browser tab and gives up when the input
// context is done.
func (d *Driver) run(ctx context.Context, actions ...chromedp.Action) error {
	cctx, cancel := context.WithCancelCause(d.ctx)
	defer cancel(nil)

	stop := context.AfterFunc(ctx, func() {
		cancel(context.Cause(ctx))
	})
	defer stop()

	if err := chromedp.Run(cctx, actions...); err != nil {
		if cause := context.Cause(ctx); cause != nil {
			return cause
		}
		return err
	}
	return nil
}

func (d *Driver) Close() error {
	d.closeOnce.Do(func() {
		// Cancel closes the browser gracefully; cancel funcs release the
		// contexts either way.
		d.closeErr = chromedp.Cancel(d.ctx)
		d.cancelTab()
		d.cancelAlloc()
		slog.Info("closed browser session")
	})
	return d.closeErr
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	return d.run(ctx, chromedp.Navigate(url))
}

// selector translates a locator into a query and its query option.
func selector(loc workflow.Locator) (string, chromedp.QueryOption, error) {
	switch loc.Kind {
	case workflow.ByName:
		return fmt.Sprintf("[name=%s]", strconv.Quote(loc.Value)), chromedp.ByQuery, nil
	case workflow.ByID:
		return fmt.Sprintf("[id=%s]", strconv.Quote(loc.Value)), chromedp.ByQuery, nil
	case workflow.ByCSS:
		return loc.Value, chromedp.ByQuery, nil
	case workflow.ByPlaceholder:
		return fmt.Sprintf("input[placeholder=%s]", strconv.Quote(loc.Value)), chromedp.ByQuery, nil
	case workflow.ByXPath:
		return loc.Value, chromedp.BySearch, nil
	case workflow.ByText:
		return fmt.Sprintf("//button[contains(normalize-space(.), %s)]", xpathLiteral(loc.Value)), chromedp.BySearch, nil
	}
	return "", nil, fmt.Errorf("unsupported locator kind %q: %w", loc.Kind, os.ErrInvalid)
}

func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	return "concat('" + strings.Join(parts, `', "'", '`) + "')"
}

// Locate waits for a visible element matching the locator. Running out of
// time is reported as a missing element.
func (d *Driver) Locate(ctx context.Context, loc workflow.Locator) (workflow.Element, error) {
	sel, by, err := selector(loc)
	if err != nil {
		return nil, err
	}
	var nodes []*cdp.Node
	if err := d.run(ctx, chromedp.Nodes(sel, &nodes, by, chromedp.NodeVisible)); err != nil {
		if ctx.Err() != nil {
			return nil, nil
		}
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, nil
	}
	return nodes[0], nil
}

func node(el workflow.Element) (*cdp.Node, error) {
	n, ok := el.(*cdp.Node)
	if !ok || n == nil {
		return nil, fmt.Errorf("element %T is not a browser node: %w", el, os.ErrInvalid)
	}
	return n, nil
}

func (d *Driver) ScrollIntoView(ctx context.Context, el workflow.Element) error {
	n, err := node(el)
	if err != nil {
		return err
	}
	return d.run(ctx, dom.ScrollIntoViewIfNeeded().WithNodeID(n.NodeID))
}

// callOn invokes a javascript function with the node as this.
func callOn(n *cdp.Node, fn string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithBackendNodeID(n.BackendNodeID).Do(ctx)
		if err != nil {
			return fmt.Errorf("could not resolve node: %w", err)
		}
		_, exp, err := runtime.CallFunctionOn(fn).WithObjectID(obj.ObjectID).Do(ctx)
		if err != nil {
			return err
		}
		if exp != nil {
			return fmt.Errorf("script failed: %s", exp.Text)
		}
		return nil
	})
}

// Fill types the text through key events. Replace mode clears the current
// value first. Errors never include the text.
func (d *Driver) Fill(ctx context.Context, el workflow.Element, text string, mode workflow.FillMode) error {
	n, err := node(el)
	if err != nil {
		return err
	}
	ids := []cdp.NodeID{n.NodeID}
	var actions []chromedp.Action
	if mode == workflow.Replace {
		actions = append(actions, chromedp.Focus(ids, chromedp.ByNodeID), chromedp.SetValue(ids, "", chromedp.ByNodeID))
	}
	if len(text) != 0 {
		actions = append(actions, chromedp.SendKeys(ids, text, chromedp.ByNodeID))
	}
	if err := d.run(ctx, actions...); err != nil {
		return fmt.Errorf("could not type into element: %w", err)
	}
	return nil
}

func (d *Driver) Select(ctx context.Context, el workflow.Element, value string) error {
	n, err := node(el)
	if err != nil {
		return err
	}
	js, _ := json.Marshal(value)
	fn := fmt.Sprintf(`function() {
	this.value = %s;
	this.dispatchEvent(new Event('input', {bubbles: true}));
	this.dispatchEvent(new Event('change', {bubbles: true}));
}`, js)
	return d.run(ctx, callOn(n, fn))
}

// center returns the center of a box model quad.
func center(quad dom.Quad) (float64, float64, error) {
	if len(quad) < 8 {
		return 0, 0, fmt.Errorf("invalid quad with %d points: %w", len(quad), os.ErrInvalid)
	}
	x := (quad[0] + quad[2] + quad[4] + quad[6]) / 4
	y := (quad[1] + quad[3] + quad[5] + quad[7]) / 4
	return x, y, nil
}

func (d *Driver) offset() float64 {
	d.randMu.Lock()
	defer d.randMu.Unlock()
	return (d.rand.Float64()*2 - 1) * d.opts.ClickOffset
}

func (d *Driver) Click(ctx context.Context, el workflow.Element, style workflow.ClickStyle) error {
	n, err := node(el)
	if err != nil {
		return err
	}
	switch style {
	case workflow.ScriptClick:
		return d.run(ctx, callOn(n, `function() { this.click(); }`))
	case workflow.OffsetClick:
		return d.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
			box, err := dom.GetBoxModel().WithNodeID(n.NodeID).Do(ctx)
			if err != nil {
				return fmt.Errorf("could not get element box: %w", err)
			}
			x, y, err := center(box.Content)
			if err != nil {
				return err
			}
			return chromedp.MouseClickXY(x+d.offset(), y+d.offset()).Do(ctx)
		}))
	default:
		return d.run(ctx, chromedp.MouseClickNode(n))
	}
}

func (d *Driver) ReadPage(ctx context.Context) (string, error) {
	var html string
	if err := d.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

func (d *Driver) CurrentURL(ctx context.Context) (string, error) {
	var loc string
	if err := d.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", err
	}
	return loc, nil
}
