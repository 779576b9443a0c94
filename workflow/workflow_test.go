// Copyright (c) 2025 BVK Chaitanya

package workflow

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bvk/vinbot/events"
	"github.com/bvk/vinbot/inventory"
	"github.com/shopspring/decimal"
)

const (
	testCardNumber = "4111111111111111"
	testCVV        = "123"
)

type fakeDriver struct {
	mu sync.Mutex

	present map[Locator]string

	page string
	url  string

	navigated []string
	values    map[string]string
	fills     map[string]int
	selects   map[string]string
	clicks    []string
	styles    []ClickStyle
	closed    int

	onClick func(id string)

	// readErr fails ReadPage and CurrentURL once the final button is clicked.
	readErr error
}

func newFakeDriver() *fakeDriver {
	d := &fakeDriver{
		present: make(map[Locator]string),
		values:  make(map[string]string),
		fills:   make(map[string]int),
		selects: make(map[string]string),
		page:    `<div class="order-confirmation">Thanks</div>`,
		url:     "https://www.tesla.com/tr_TR/checkout",
	}
	ob := DefaultOrderButton()
	d.present[ob.Locators[0]] = ob.Name
	for _, s := range DefaultSteps() {
		for _, f := range s.Fields {
			d.present[f.Locators[0]] = f.Name
		}
	}
	d.present[DefaultPlaceOrderLocators()[0]] = "placeOrderButton"
	return d
}

// remove makes every locator for the named element miss.
func (d *fakeDriver) remove(name string) {
	for loc, id := range d.present {
		if id == name {
			delete(d.present, loc)
		}
	}
}

func (d *fakeDriver) Navigate(ctx context.Context, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.navigated = append(d.navigated, url)
	return nil
}

func (d *fakeDriver) Locate(ctx context.Context, loc Locator) (Element, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if id, ok := d.present[loc]; ok {
		return id, nil
	}
	return nil, nil
}

func (d *fakeDriver) ScrollIntoView(ctx context.Context, el Element) error {
	return nil
}

func (d *fakeDriver) Fill(ctx context.Context, el Element, text string, mode FillMode) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := el.(string)
	if mode == Replace {
		d.values[id] = text
	} else {
		d.values[id] += text
	}
	d.fills[id]++
	return nil
}

func (d *fakeDriver) Select(ctx context.Context, el Element, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.selects[el.(string)] = value
	return nil
}

func (d *fakeDriver) Click(ctx context.Context, el Element, style ClickStyle) error {
	d.mu.Lock()
	id := el.(string)
	d.clicks = append(d.clicks, id)
	d.styles = append(d.styles, style)
	hook := d.onClick
	d.mu.Unlock()

	if hook != nil {
		hook(id)
	}
	return nil
}

func (d *fakeDriver) placed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Contains(d.clicks, "placeOrderButton")
}

func (d *fakeDriver) ReadPage(ctx context.Context) (string, error) {
	if d.readErr != nil && d.placed() {
		return "", d.readErr
	}
	return d.page, nil
}

func (d *fakeDriver) CurrentURL(ctx context.Context) (string, error) {
	if d.readErr != nil && d.placed() {
		return "", d.readErr
	}
	return d.url, nil
}

func (d *fakeDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed++
	return nil
}

type fixedConfirmer struct {
	ok     bool
	called int
}

func (c *fixedConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	c.called++
	return c.ok, nil
}

func testListing() *inventory.Listing {
	return &inventory.Listing{
		VIN:          "LRWYGCEK1PC000001",
		Model:        "my",
		Trim:         "Standard Range RWD",
		PaintCode:    "PPSW",
		Price:        decimal.NewFromInt(1_900_000),
		Availability: inventory.Available,
	}
}

func testOrder() *OrderContext {
	return &OrderContext{
		Buyer: Buyer{
			FirstName: "Ayşe",
			LastName:  "Yılmaz",
			Email:     "ayse@example.com",
			Phone:     "+905551112233",
		},
		Payment: Payment{
			Holder:      "AYSE YILMAZ",
			Number:      testCardNumber,
			ExpiryMonth: 7,
			ExpiryYear:  2030,
			CVV:         testCVV,
			BillingZip:  "34000",
		},
		DeliveryZip: "34000",
	}
}

func newTestWorkflow(t *testing.T, opts *Options) *Workflow {
	t.Helper()
	if opts.Sleep == nil {
		opts.Sleep = func(context.Context, time.Duration) error { return nil }
	}
	w, err := New(opts)
	if err != nil {
		t.Fatal(err)
	}
	return w
}

func TestExecuteCompleted(t *testing.T) {
	var rec events.Recorder
	w := newTestWorkflow(t, &Options{Publisher: &rec})
	d := newFakeDriver()

	r := w.Execute(context.Background(), testListing(), testOrder(), d)
	if r.Kind != OrderCompleted || !r.Confirmed {
		t.Fatalf("want confirmed completion, got %s", r)
	}
	if d.closed != 1 {
		t.Fatalf("want driver closed once, got %d", d.closed)
	}
	wantURL := "https://www.tesla.com/tr_TR/modely/design?vin=LRWYGCEK1PC000001#overview"
	if len(d.navigated) != 1 || d.navigated[0] != wantURL {
		t.Fatalf("want navigation to %q, got %v", wantURL, d.navigated)
	}
	if v := d.values["cardNumber"]; v != testCardNumber {
		t.Fatalf("want card number filled, got %q", v)
	}
	if v := d.values["confirmEmail"]; v != "ayse@example.com" {
		t.Fatalf("want confirm email filled, got %q", v)
	}
	if v := d.selects["expirationMonth"]; v != "7" {
		t.Fatalf("want expiry month 7, got %q", v)
	}
	if last := d.clicks[len(d.clicks)-1]; last != "placeOrderButton" {
		t.Fatalf("want place order as last click, got %q", last)
	}
	kinds := rec.Kinds()
	if kinds[len(kinds)-1] != events.OrderCompleted {
		t.Fatalf("want order-completed as last event, got %v", kinds)
	}
}

func TestSecondaryLocator(t *testing.T) {
	w := newTestWorkflow(t, &Options{})
	d := newFakeDriver()
	d.remove("firstName")
	d.present[inputLocators("firstName")[2]] = "firstName"

	r := w.Execute(context.Background(), testListing(), testOrder(), d)
	if r.Kind != OrderCompleted {
		t.Fatalf("want completion, got %s", r)
	}
	if v := d.values["firstName"]; v != "Ayşe" {
		t.Fatalf("want first name filled through css locator, got %q", v)
	}
}

func TestRequiredPaymentFieldMissing(t *testing.T) {
	var rec events.Recorder
	w := newTestWorkflow(t, &Options{Publisher: &rec})
	d := newFakeDriver()
	d.remove("cardNumber")

	r := w.Execute(context.Background(), testListing(), testOrder(), d)
	if r.Kind != FailedAtStep || r.Step != FillingPaymentForm || r.Field != "cardNumber" {
		t.Fatalf("want failure at payment form on cardNumber, got %s", r)
	}
	var nf *ElementNotFoundError
	if !errors.As(r.Err, &nf) {
		t.Fatalf("want ElementNotFoundError, got %v", r.Err)
	}
	if d.closed != 1 {
		t.Fatalf("want driver closed once, got %d", d.closed)
	}
	if _, ok := d.values["cvv"]; ok {
		t.Fatalf("want no fields filled after the failure")
	}
	kinds := rec.Kinds()
	if kinds[len(kinds)-1] != events.OrderFailed {
		t.Fatalf("want order-failed as last event, got %v", kinds)
	}
}

func TestOptionalFieldSkipped(t *testing.T) {
	var rec events.Recorder
	w := newTestWorkflow(t, &Options{Publisher: &rec})
	d := newFakeDriver()
	d.remove("confirmEmail")

	r := w.Execute(context.Background(), testListing(), testOrder(), d)
	if r.Kind != OrderCompleted {
		t.Fatalf("want completion, got %s", r)
	}
	found := false
	for _, e := range rec.Events() {
		if e.Level == events.Warning && e.Attrs["field"] == "confirmEmail" {
			found = true
		}
	}
	if !found {
		t.Fatalf("want a warning for the skipped confirm email")
	}
}

func TestConfirmPolicy(t *testing.T) {
	{
		w := newTestWorkflow(t, &Options{})
		d := newFakeDriver()
		d.page = "<html>processing</html>"

		r := w.Execute(context.Background(), testListing(), testOrder(), d)
		if r.Kind != OrderCompleted || r.Confirmed {
			t.Fatalf("want unconfirmed completion, got %s", r)
		}
	}
	{
		w := newTestWorkflow(t, &Options{Policy: Strict})
		d := newFakeDriver()
		d.page = "<html>processing</html>"

		r := w.Execute(context.Background(), testListing(), testOrder(), d)
		if r.Kind != FailedAtStep || r.Step != ConfirmingOrder {
			t.Fatalf("want failure at confirmation, got %s", r)
		}
	}
	{
		w := newTestWorkflow(t, &Options{Policy: Strict})
		d := newFakeDriver()
		d.page = "<html>ok</html>"
		d.url = "https://www.tesla.com/tr_TR/order/success"

		r := w.Execute(context.Background(), testListing(), testOrder(), d)
		if r.Kind != OrderCompleted || !r.Confirmed {
			t.Fatalf("want confirmed completion from url, got %s", r)
		}
	}
}

func TestPageUnreadableAfterPlacingOrder(t *testing.T) {
	w := newTestWorkflow(t, &Options{})
	d := newFakeDriver()
	d.page = "<html>processing</html>"
	d.readErr = errors.New("target crashed")

	r := w.Execute(context.Background(), testListing(), testOrder(), d)
	if r.Kind != FailedAtStep || r.Step != ConfirmingOrder {
		t.Fatalf("want failure at confirmation, got %s", r)
	}
	if !strings.Contains(r.Reason, "target crashed") {
		t.Fatalf("want the read error in the reason, got %q", r.Reason)
	}
	if d.closed != 1 {
		t.Fatalf("want driver closed once, got %d", d.closed)
	}
}

func TestCustomPlaceOrderLocators(t *testing.T) {
	custom := []Locator{{Kind: ByID, Value: "buy-now"}}
	w := newTestWorkflow(t, &Options{PlaceOrder: custom})
	d := newFakeDriver()
	d.remove("placeOrderButton")
	d.present[custom[0]] = "placeOrderButton"

	r := w.Execute(context.Background(), testListing(), testOrder(), d)
	if r.Kind != OrderCompleted {
		t.Fatalf("want completion with the custom locator, got %s", r)
	}
	if got := DefaultPlaceOrderLocators(); got[0] == custom[0] {
		t.Fatalf("want defaults unaffected by options")
	}
}

func TestDeclinedPayment(t *testing.T) {
	w := newTestWorkflow(t, &Options{})
	d := newFakeDriver()
	d.page = `<div class="order-confirmation">Card Declined</div>`

	r := w.Execute(context.Background(), testListing(), testOrder(), d)
	if r.Kind != FailedAtStep || r.Step != ConfirmingOrder {
		t.Fatalf("want failure at confirmation, got %s", r)
	}
	if !strings.Contains(r.Reason, "declined") {
		t.Fatalf("want declined reason, got %q", r.Reason)
	}
}

func TestDebugDecline(t *testing.T) {
	c := &fixedConfirmer{ok: false}
	w := newTestWorkflow(t, &Options{Debug: true, KeepOpen: true, Confirmer: c})
	d := newFakeDriver()

	r := w.Execute(context.Background(), testListing(), testOrder(), d)
	if r.Kind != Aborted || r.Step != ConfirmingOrder {
		t.Fatalf("want abort at confirmation, got %s", r)
	}
	if c.called != 1 {
		t.Fatalf("want one confirmation request, got %d", c.called)
	}
	if d.closed != 0 {
		t.Fatalf("want driver kept open, got %d closes", d.closed)
	}
	for _, id := range d.clicks {
		if id == "placeOrderButton" {
			t.Fatalf("want place order not clicked")
		}
	}
}

func TestDebugApprove(t *testing.T) {
	c := &fixedConfirmer{ok: true}
	w := newTestWorkflow(t, &Options{Debug: true, Confirmer: c})
	d := newFakeDriver()

	r := w.Execute(context.Background(), testListing(), testOrder(), d)
	if r.Kind != OrderCompleted {
		t.Fatalf("want completion, got %s", r)
	}
	if d.closed != 1 {
		t.Fatalf("want driver closed once, got %d", d.closed)
	}
}

func TestDebugNeedsConfirmer(t *testing.T) {
	if _, err := New(&Options{Debug: true}); err == nil {
		t.Fatalf("want error for debug mode without a confirmer")
	}
}

func TestCancelBetweenSteps(t *testing.T) {
	var rec events.Recorder
	w := newTestWorkflow(t, &Options{Publisher: &rec})
	d := newFakeDriver()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.onClick = func(id string) {
		if id == DefaultOrderButton().Name {
			cancel()
		}
	}

	r := w.Execute(ctx, testListing(), testOrder(), d)
	if r.Kind != Aborted || r.Step != NavigatingToVehicle {
		t.Fatalf("want abort after navigation, got %s", r)
	}
	if len(d.values) != 0 {
		t.Fatalf("want no fields filled, got %v", d.values)
	}
	if d.closed != 1 {
		t.Fatalf("want driver closed once, got %d", d.closed)
	}
	kinds := rec.Kinds()
	if kinds[len(kinds)-1] != events.OrderAborted {
		t.Fatalf("want order-aborted as last event, got %v", kinds)
	}
}

func TestCancelBeforeStart(t *testing.T) {
	w := newTestWorkflow(t, &Options{})
	d := newFakeDriver()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := w.Execute(ctx, testListing(), testOrder(), d)
	if r.Kind != Aborted || r.Step != Idle {
		t.Fatalf("want abort in idle, got %s", r)
	}
	if len(d.navigated) != 0 {
		t.Fatalf("want no navigation")
	}
	if d.closed != 1 {
		t.Fatalf("want driver closed once, got %d", d.closed)
	}
}

func TestEvasionPacing(t *testing.T) {
	var slept []time.Duration
	w := newTestWorkflow(t, &Options{
		Evasion: true,
		Rand:    rand.New(rand.NewSource(1)),
		Sleep: func(_ context.Context, d time.Duration) error {
			slept = append(slept, d)
			return nil
		},
	})
	d := newFakeDriver()

	r := w.Execute(context.Background(), testListing(), testOrder(), d)
	if r.Kind != OrderCompleted {
		t.Fatalf("want completion, got %s", r)
	}
	if v := d.values["email"]; v != "ayse@example.com" {
		t.Fatalf("want email typed fully, got %q", v)
	}
	if n := d.fills["email"]; n != len("ayse@example.com") {
		t.Fatalf("want one fill per keystroke, got %d", n)
	}
	if v := d.values["firstName"]; v != "Ayşe" {
		t.Fatalf("want multibyte name typed fully, got %q", v)
	}
	for i, s := range d.styles[:len(d.styles)-1] {
		if s != OffsetClick {
			t.Fatalf("want offset click for %s, got %d", d.clicks[i], s)
		}
	}
	if s := d.styles[len(d.styles)-1]; s != ScriptClick {
		t.Fatalf("want script click for the final click, got %d", s)
	}
	for _, s := range slept {
		if s < 50*time.Millisecond || s > 5*time.Second {
			t.Fatalf("want delays within the pacing ranges, got %s", s)
		}
	}
}

func TestFixedPacing(t *testing.T) {
	var slept []time.Duration
	w := newTestWorkflow(t, &Options{
		Sleep: func(_ context.Context, d time.Duration) error {
			slept = append(slept, d)
			return nil
		},
	})
	d := newFakeDriver()

	r := w.Execute(context.Background(), testListing(), testOrder(), d)
	if r.Kind != OrderCompleted {
		t.Fatalf("want completion, got %s", r)
	}
	if n := d.fills["email"]; n != 1 {
		t.Fatalf("want single fill, got %d", n)
	}
	for _, s := range slept {
		if s != 500*time.Millisecond {
			t.Fatalf("want fixed delays, got %s", s)
		}
	}
	for _, s := range d.styles {
		if s != NativeClick {
			t.Fatalf("want native clicks, got %d", s)
		}
	}
}

func TestPaymentNeverReported(t *testing.T) {
	var rec events.Recorder
	w := newTestWorkflow(t, &Options{Publisher: &rec})
	d := newFakeDriver()
	d.remove("cvv")

	oc := testOrder()
	w.Execute(context.Background(), testListing(), oc, d)

	for _, e := range rec.Events() {
		s := e.String()
		if strings.Contains(s, testCardNumber) || strings.Contains(s, "cvv="+testCVV) {
			t.Fatalf("want no payment data in events, got %q", s)
		}
	}
	for _, format := range []string{"%v", "%+v", "%#v", "%s"} {
		if s := fmt.Sprintf(format, oc.Payment); strings.Contains(s, testCardNumber) || strings.Contains(s, testCVV) {
			t.Fatalf("want redacted payment for %s, got %q", format, s)
		}
	}
	if s := fmt.Sprintf("%+v", *oc); strings.Contains(s, testCardNumber) {
		t.Fatalf("want redacted order context, got %q", s)
	}
}

func TestMachineForwardOnly(t *testing.T) {
	ctx := context.Background()
	m := newMachine(nil)
	if err := m.advance(ctx, eventFillPayment); err == nil {
		t.Fatalf("want error skipping steps")
	}
	for _, ev := range []string{eventNavigate, eventFillDelivery, eventFillPayment} {
		if err := m.advance(ctx, ev); err != nil {
			t.Fatal(err)
		}
	}
	if err := m.advance(ctx, eventFillDelivery); err == nil {
		t.Fatalf("want error moving backwards")
	}
	if err := m.advance(ctx, eventFail); err != nil {
		t.Fatal(err)
	}
	if m.state() != Failed {
		t.Fatalf("want Failed, got %s", m.state())
	}
	if err := m.advance(ctx, eventComplete); err == nil {
		t.Fatalf("want error leaving a terminal state")
	}
}

func TestChanConfirmer(t *testing.T) {
	c := NewChanConfirmer()
	if c.Decide(true) {
		t.Fatalf("want no pending confirmation")
	}

	done := make(chan bool)
	go func() {
		ok, _ := c.Confirm(context.Background(), "place?")
		done <- ok
	}()
	for !c.Pending() {
		time.Sleep(time.Millisecond)
	}
	if !c.Decide(true) {
		t.Fatalf("want decision delivered")
	}
	if ok := <-done; !ok {
		t.Fatalf("want approval")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Confirm(ctx, "place?"); err == nil {
		t.Fatalf("want error for canceled confirmation")
	}
}

func TestParseConfirmPolicy(t *testing.T) {
	if p, err := ParseConfirmPolicy(""); err != nil || p != Optimistic {
		t.Fatalf("want optimistic default, got %q %v", p, err)
	}
	if p, err := ParseConfirmPolicy("Strict"); err != nil || p != Strict {
		t.Fatalf("want strict, got %q %v", p, err)
	}
	if _, err := ParseConfirmPolicy("maybe"); err == nil {
		t.Fatalf("want error for unknown policy")
	}
}
