// Copyright (c) 2025 BVK Chaitanya

package workflow

import (
	"fmt"
	"strconv"
	"time"
)

type Action int

const (
	Click Action = iota
	Fill
	Choose
)

// Delay is a uniform random delay range.
type Delay struct {
	Min, Max time.Duration
}

// Field declares one interactive element of a step with its locator
// strategies in preference order.
type Field struct {
	Name string

	Locators []Locator

	Action Action

	// Value returns the text to fill or the option to choose.
	Value func(*OrderContext) string

	// Optional fields are skipped with a warning when no locator matches.
	Optional bool

	// Pause is applied after the action.
	Pause Delay
}

// Step is an ordered list of fields for one workflow state.
type Step struct {
	State State

	// Event moves the machine into State.
	Event string

	// Before is applied when the step starts.
	Before Delay

	Fields []Field
}

func buttonLocators(texts []string, css ...string) []Locator {
	var locs []Locator
	for _, t := range texts {
		locs = append(locs, Locator{Kind: ByText, Value: t})
	}
	for _, c := range css {
		locs = append(locs, Locator{Kind: ByCSS, Value: c})
	}
	return locs
}

func inputLocators(name string, extra ...Locator) []Locator {
	locs := []Locator{
		{Kind: ByName, Value: name},
		{Kind: ByID, Value: name},
		{Kind: ByCSS, Value: fmt.Sprintf("input[name='%s']", name)},
		{Kind: ByXPath, Value: fmt.Sprintf("//input[@name='%s']", name)},
	}
	return append(locs, extra...)
}

func selectLocators(name, id string) []Locator {
	return []Locator{
		{Kind: ByName, Value: name},
		{Kind: ByID, Value: id},
		{Kind: ByCSS, Value: fmt.Sprintf("select[name='%s']", name)},
	}
}

var (
	shortPause = Delay{Min: 500 * time.Millisecond, Max: time.Second}
	fieldPause = Delay{Min: 500 * time.Millisecond, Max: 1500 * time.Millisecond}
	basePause  = Delay{Min: 500 * time.Millisecond, Max: 2 * time.Second}
	pagePause  = Delay{Min: 2 * time.Second, Max: 3 * time.Second}
	loadPause  = Delay{Min: 2 * time.Second, Max: 4 * time.Second}
)

func deliveryZip(oc *OrderContext) string { return oc.DeliveryZip }

// DefaultOrderButton returns the field for the button that starts checkout
// on the vehicle page.
func DefaultOrderButton() *Field {
	return &Field{
		Name: "orderButton",
		Locators: append(
			buttonLocators([]string{"Sipariş Ver", "Order Now"}, "button[data-id='order-button']", ".order-button"),
			Locator{Kind: ByXPath, Value: "//button[contains(@class, 'order')]"},
		),
		Action: Click,
		Pause:  pagePause,
	}
}

// DefaultSteps returns the form-filling steps that follow navigation. The
// final confirmation step is not declarative; see DefaultPlaceOrderLocators.
func DefaultSteps() []*Step {
	delivery := &Step{
		State: FillingDeliveryForm,
		Event: eventFillDelivery,
		Fields: []Field{
			{
				Name: "deliveryZip",
				Locators: []Locator{
					{Kind: ByPlaceholder, Value: "Enter Delivery ZIP"},
					{Kind: ByPlaceholder, Value: "Teslimat Posta Kodu"},
					{Kind: ByName, Value: "deliveryZip"},
					{Kind: ByID, Value: "delivery-zip"},
					{Kind: ByCSS, Value: "input[data-id='delivery-zip']"},
				},
				Action:   Fill,
				Value:    deliveryZip,
				Optional: true,
				Pause:    basePause,
			},
			{Name: "firstName", Locators: inputLocators("firstName"), Action: Fill, Value: func(oc *OrderContext) string { return oc.Buyer.FirstName }, Pause: shortPause},
			{Name: "lastName", Locators: inputLocators("lastName"), Action: Fill, Value: func(oc *OrderContext) string { return oc.Buyer.LastName }, Pause: shortPause},
			{Name: "email", Locators: inputLocators("email"), Action: Fill, Value: func(oc *OrderContext) string { return oc.Buyer.Email }, Pause: shortPause},
			{Name: "confirmEmail", Locators: inputLocators("confirmEmail"), Action: Fill, Value: func(oc *OrderContext) string { return oc.Buyer.Email }, Optional: true, Pause: shortPause},
			{Name: "phone", Locators: inputLocators("phone"), Action: Fill, Value: func(oc *OrderContext) string { return oc.Buyer.Phone }, Pause: shortPause},
			{
				Name: "cardPaymentButton",
				Locators: append(
					buttonLocators([]string{"Order with Card", "Kart ile Sipariş"}, "button[data-id='card-payment']"),
					Locator{Kind: ByXPath, Value: "//button[contains(@class, 'card-payment')]"},
				),
				Action: Click,
				Pause:  shortPause,
			},
		},
	}

	payment := &Step{
		State:  FillingPaymentForm,
		Event:  eventFillPayment,
		Before: pagePause,
		Fields: []Field{
			{Name: "cardName", Locators: inputLocators("cardName", Locator{Kind: ByXPath, Value: "//input[contains(@placeholder, 'cardName')]"}), Action: Fill, Value: func(oc *OrderContext) string { return oc.Payment.Holder }, Pause: fieldPause},
			{Name: "cardNumber", Locators: inputLocators("cardNumber", Locator{Kind: ByXPath, Value: "//input[contains(@placeholder, 'cardNumber')]"}), Action: Fill, Value: func(oc *OrderContext) string { return oc.Payment.Number }, Pause: fieldPause},
			{Name: "cvv", Locators: inputLocators("cvv", Locator{Kind: ByXPath, Value: "//input[contains(@placeholder, 'cvv')]"}), Action: Fill, Value: func(oc *OrderContext) string { return oc.Payment.CVV }, Pause: fieldPause},
			{Name: "billingZip", Locators: inputLocators("billingZip", Locator{Kind: ByXPath, Value: "//input[contains(@placeholder, 'billingZip')]"}), Action: Fill, Value: func(oc *OrderContext) string { return oc.Payment.BillingZip }, Pause: fieldPause},
			{Name: "paymentDeliveryZip", Locators: inputLocators("deliveryZip"), Action: Fill, Value: deliveryZip, Optional: true, Pause: fieldPause},
			{Name: "expirationMonth", Locators: selectLocators("expirationMonth", "expiration-month"), Action: Choose, Value: func(oc *OrderContext) string { return strconv.Itoa(oc.Payment.ExpiryMonth) }, Pause: basePause},
			{Name: "expirationYear", Locators: selectLocators("expirationYear", "expiration-year"), Action: Choose, Value: func(oc *OrderContext) string { return strconv.Itoa(oc.Payment.ExpiryYear) }, Pause: basePause},
		},
	}
	return []*Step{delivery, payment}
}

// DefaultPlaceOrderLocators returns the locator chain for the final order
// button.
func DefaultPlaceOrderLocators() []Locator {
	return append(
		buttonLocators([]string{"Place Order", "Siparişi Ver"}, "button[data-id='place-order']", ".place-order-button"),
		Locator{Kind: ByXPath, Value: "//button[contains(@class, 'order-submit')]"},
	)
}
