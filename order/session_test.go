package order

import (
	"testing"

	"nasi-kandar-bot/models"

	"github.com/shopspring/decimal"
)

func TestSessionValidate(t *testing.T) {
	item := models.MenuItem{ID: "1", Name: "Nasi Kandar Special", Price: decimal.RequireFromString("12.00")}
	quote := &DeliveryQuote{Address: "Jalan Penang", DistanceKm: 3, Fee: decimal.RequireFromString("3.50")}

	withCart := func(s *Session) *Session {
		s.Cart.Add(item)
		return s
	}

	tests := []struct {
		name    string
		session *Session
		wantErr bool
	}{
		{"fresh", newSession(1), false},
		{"selecting with cart", withCart(&Session{Stage: StageSelectingFood}), false},
		{"start with cart", withCart(&Session{Stage: StageStart}), true},
		{"address stage with quote", withCart(&Session{Stage: StageProvidingAddress, Delivery: quote}), true},
		{"choosing payment", withCart(&Session{Stage: StageChoosingPayment, Delivery: quote}), false},
		{"choosing payment without quote", withCart(&Session{Stage: StageChoosingPayment}), true},
		{"choosing payment with method", withCart(&Session{Stage: StageChoosingPayment, Delivery: quote, PaymentMethod: models.PaymentCash}), true},
		{"uploading proof", withCart(&Session{Stage: StageUploadingProof, Delivery: quote, PaymentMethod: models.PaymentQR}), false},
		{"uploading proof for cash", withCart(&Session{Stage: StageUploadingProof, Delivery: quote, PaymentMethod: models.PaymentCash}), true},
		{"negative fee", withCart(&Session{Stage: StageChoosingPayment, Delivery: &DeliveryQuote{Fee: decimal.NewFromInt(-1)}}), true},
		{"unknown stage", &Session{Stage: "paid"}, true},
	}
	for _, tt := range tests {
		err := tt.session.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: Validate() = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}

func TestSessionValidateDetectsDrift(t *testing.T) {
	s := &Session{Stage: StageConfirmingMoreItems}
	s.Cart.Add(models.MenuItem{ID: "2", Name: "Ayam Goreng", Price: decimal.RequireFromString("8.00")})
	s.Cart.ItemsTotal = decimal.RequireFromString("9.00")
	if err := s.Validate(); err == nil {
		t.Error("Validate() = nil, want drift error")
	}
}

func TestSessionCloneIsDeep(t *testing.T) {
	s := newSession(1)
	s.Stage = StageChoosingPayment
	s.Cart.Add(models.MenuItem{ID: "6", Name: "Roti Canai", Price: decimal.RequireFromString("3.50")})
	s.SetDelivery(DeliveryQuote{Address: "Lebuh Chulia", DistanceKm: 1.2, Fee: decimal.RequireFromString("2.60")})

	c := s.Clone()
	c.Cart.Items[0].Name = "changed"
	c.Delivery.Address = "changed"

	if s.Cart.Items[0].Name != "Roti Canai" || s.Delivery.Address != "Lebuh Chulia" {
		t.Errorf("Clone shares state with original: %+v", s)
	}
}

func TestSessionResetKeepsLastOrder(t *testing.T) {
	s := newSession(1)
	last := &models.Order{Ref: "ORDER-ABCDE"}
	s.LastOrder = last
	s.Stage = StageUploadingProof
	s.PaymentMethod = models.PaymentQR
	s.Cart.Add(models.MenuItem{ID: "1", Price: decimal.RequireFromString("12.00")})

	s.Reset()

	if s.Stage != StageStart || !s.Cart.Empty() || s.PaymentMethod != "" || s.Delivery != nil {
		t.Errorf("Reset() left %+v", s)
	}
	if s.LastOrder != last {
		t.Error("Reset() dropped LastOrder")
	}
}
