package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentCash PaymentMethod = "cash"
	PaymentQR   PaymentMethod = "qr"
)

// Payment labels recorded on a finalized order.
const (
	LabelCashOnDelivery = "Cash on Delivery"
	LabelQRVerified     = "Paid via QR (Verified)"
	LabelManualCheck    = "Manual Check Required"
)

type OrderLine struct {
	ItemID string
	Name   string
	Price  decimal.Decimal
	Qty    int
}

// Order is the snapshot taken when a chat session finalizes.
type Order struct {
	Ref          string
	ChatID       int64
	Lines        []OrderLine
	FoodSubtotal decimal.Decimal
	DeliveryFee  decimal.Decimal
	GrandTotal   decimal.Decimal
	DistanceKm   float64
	Address      string
	Method       PaymentMethod
	PaymentLabel string
	CreatedAt    time.Time
}
