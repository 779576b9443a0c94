// Copyright (c) 2025 BVK Chaitanya

package workflow

import (
	"fmt"
	"log/slog"
)

type Buyer struct {
	FirstName string `json:"first_name" yaml:"first_name"`
	LastName  string `json:"last_name" yaml:"last_name"`
	Email     string `json:"email" yaml:"email"`
	Phone     string `json:"phone" yaml:"phone"`
}

// Payment holds card details. Payment values are only ever handed to the
// driver; String, GoString and LogValue never reveal them.
type Payment struct {
	Holder      string `json:"holder" yaml:"holder"`
	Number      string `json:"number" yaml:"number"`
	ExpiryMonth int    `json:"expiry_month" yaml:"expiry_month"`
	ExpiryYear  int    `json:"expiry_year" yaml:"expiry_year"`
	CVV         string `json:"cvv" yaml:"cvv"`
	BillingZip  string `json:"billing_zip" yaml:"billing_zip"`
}

func (p Payment) last4() string {
	if n := len(p.Number); n >= 4 {
		return p.Number[n-4:]
	}
	return ""
}

func (p Payment) String() string {
	return fmt.Sprintf("card ****%s", p.last4())
}

func (p Payment) GoString() string {
	return p.String()
}

func (p Payment) LogValue() slog.Value {
	return slog.StringValue(p.String())
}

// OrderContext carries the buyer identity, payment instrument and delivery
// location into the workflow.
type OrderContext struct {
	Buyer       Buyer   `json:"buyer" yaml:"buyer"`
	Payment     Payment `json:"payment" yaml:"payment"`
	DeliveryZip string  `json:"delivery_zip" yaml:"delivery_zip"`
}

func (v *OrderContext) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("buyer", v.Buyer.FirstName+" "+v.Buyer.LastName),
		slog.String("payment", v.Payment.String()),
		slog.String("delivery-zip", v.DeliveryZip),
	)
}
