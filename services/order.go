package services

import (
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"nasi-kandar-bot/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FeeSchedule prices delivery as Base + PerKm * distance.
type FeeSchedule struct {
	Base  decimal.Decimal
	PerKm decimal.Decimal
}

var (
	// CoordinateFee applies when the customer shares a GPS location.
	CoordinateFee = FeeSchedule{Base: decimal.RequireFromString("2.00"), PerKm: decimal.RequireFromString("0.50")}
	// TextFee applies when the address was typed.
	TextFee = FeeSchedule{Base: decimal.RequireFromString("3.00"), PerKm: decimal.RequireFromString("0.80")}
)

func (f FeeSchedule) Fee(distanceKm float64) decimal.Decimal {
	if distanceKm < 0 {
		distanceKm = 0
	}
	d := decimal.NewFromFloat(distanceKm).Round(2)
	return f.Base.Add(f.PerKm.Mul(d)).Round(2)
}

const (
	SyntheticMinKm = 1.0
	SyntheticMaxKm = 15.0
)

// SyntheticDistanceKm draws a stand-in distance in [1.0, 15.0] km, one decimal place.
// u must be in [0, 1); nil uses math/rand.
func SyntheticDistanceKm(u func() float64) float64 {
	if u == nil {
		u = rand.Float64
	}
	d := SyntheticMinKm + (SyntheticMaxKm-SyntheticMinKm)*u()
	d = math.Round(d*10) / 10
	return math.Min(math.Max(d, SyntheticMinKm), SyntheticMaxKm)
}

// NewOrderRef returns a customer-facing reference like ORDER-3F9A1.
func NewOrderRef() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "ORDER-" + strings.ToUpper(id[:5])
}

// FormatMoney renders an amount as RM with two decimals.
func FormatMoney(d decimal.Decimal) string {
	return "RM" + d.StringFixed(2)
}

type FinalizeInput struct {
	Ref          string
	ChatID       int64
	Cart         Cart
	Address      string
	DistanceKm   float64
	DeliveryFee  decimal.Decimal
	Method       models.PaymentMethod
	PaymentLabel string
	Now          time.Time
}

// FinalizeOrder snapshots a cart into an order. Grand total is subtotal plus delivery fee.
func FinalizeOrder(in FinalizeInput) models.Order {
	cart := in.Cart.Clone()
	cart.Recompute()
	ref := in.Ref
	if ref == "" {
		ref = NewOrderRef()
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	return models.Order{
		Ref:          ref,
		ChatID:       in.ChatID,
		Lines:        cart.Lines(),
		FoodSubtotal: cart.ItemsTotal,
		DeliveryFee:  in.DeliveryFee,
		GrandTotal:   cart.ItemsTotal.Add(in.DeliveryFee),
		DistanceKm:   in.DistanceKm,
		Address:      in.Address,
		Method:       in.Method,
		PaymentLabel: in.PaymentLabel,
		CreatedAt:    now,
	}
}
