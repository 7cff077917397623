package order

import (
	"fmt"
	"time"

	"nasi-kandar-bot/models"
	"nasi-kandar-bot/services"

	"github.com/shopspring/decimal"
)

type Stage string

const (
	StageStart               Stage = "start"
	StageSelectingFood       Stage = "selecting_food"
	StageAddingMore          Stage = "adding_more"
	StageConfirmingMoreItems Stage = "confirming_more_items"
	StageProvidingAddress    Stage = "providing_address"
	StageChoosingPayment     Stage = "choosing_payment"
	StageUploadingProof      Stage = "uploading_proof"
)

var allStages = []Stage{
	StageStart,
	StageSelectingFood,
	StageAddingMore,
	StageConfirmingMoreItems,
	StageProvidingAddress,
	StageChoosingPayment,
	StageUploadingProof,
}

// DeliveryQuote is a resolved address and its price.
type DeliveryQuote struct {
	Address    string
	DistanceKm float64
	Fee        decimal.Decimal
	// FromLocation is true when the quote came from a shared GPS location.
	FromLocation bool
}

// Session is the per-chat order in progress.
type Session struct {
	ChatID        int64
	Stage         Stage
	Cart          services.Cart
	Delivery      *DeliveryQuote
	PaymentMethod models.PaymentMethod
	// LastOrder survives Reset so "status" can be answered.
	LastOrder *models.Order
	UpdatedAt time.Time
}

func newSession(chatID int64) *Session {
	return &Session{ChatID: chatID, Stage: StageStart}
}

func (s *Session) Clone() *Session {
	c := *s
	c.Cart = s.Cart.Clone()
	if s.Delivery != nil {
		d := *s.Delivery
		c.Delivery = &d
	}
	return &c
}

// Reset returns the session to Start with an empty cart.
func (s *Session) Reset() {
	s.Stage = StageStart
	s.Cart.Clear()
	s.Delivery = nil
	s.PaymentMethod = ""
}

func (s *Session) SetDelivery(q DeliveryQuote) {
	s.Delivery = &q
}

// Total is the food subtotal plus delivery, when a quote exists.
func (s *Session) Total() decimal.Decimal {
	if s.Delivery == nil {
		return s.Cart.ItemsTotal
	}
	return s.Cart.ItemsTotal.Add(s.Delivery.Fee)
}

// Validate checks that the populated fields match the stage.
func (s *Session) Validate() error {
	hasDelivery := s.Delivery != nil
	hasPayment := s.PaymentMethod != ""

	switch s.Stage {
	case StageStart, StageSelectingFood, StageAddingMore, StageConfirmingMoreItems, StageProvidingAddress:
		if hasDelivery || hasPayment {
			return fmt.Errorf("stage %s: delivery and payment must be unset", s.Stage)
		}
	case StageChoosingPayment:
		if !hasDelivery || hasPayment {
			return fmt.Errorf("stage %s: delivery must be set and payment unset", s.Stage)
		}
	case StageUploadingProof:
		if !hasDelivery || s.PaymentMethod != models.PaymentQR {
			return fmt.Errorf("stage %s: delivery and QR payment must be set", s.Stage)
		}
	default:
		return fmt.Errorf("unknown stage %q", s.Stage)
	}

	if s.Stage == StageStart && !s.Cart.Empty() {
		return fmt.Errorf("stage %s: cart must be empty", s.Stage)
	}
	if hasDelivery && (s.Delivery.Fee.IsNegative() || s.Delivery.DistanceKm < 0) {
		return fmt.Errorf("negative delivery quote %+v", *s.Delivery)
	}
	sum := s.Cart.Clone()
	sum.Recompute()
	if !sum.ItemsTotal.Equal(s.Cart.ItemsTotal) {
		return fmt.Errorf("subtotal %s drifted from lines %s", s.Cart.ItemsTotal, sum.ItemsTotal)
	}
	return nil
}
