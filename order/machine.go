package order

import (
	"context"
	"errors"
	"time"

	"nasi-kandar-bot/apperr"
	"nasi-kandar-bot/logger"
	"nasi-kandar-bot/metrics"
	"nasi-kandar-bot/models"
	"nasi-kandar-bot/services"

	"github.com/shopspring/decimal"
)

type Catalog interface {
	Lookup(id string) (models.MenuItem, bool)
	List() []models.MenuItem
}

type AddressResolver interface {
	ResolveText(ctx context.Context, text string) (services.TextMatch, error)
	ResolveCoordinates(ctx context.Context, lat, lon float64) services.CoordinateMatch
	Restaurant() services.Restaurant
}

type ReceiptVerifier interface {
	Verify(ctx context.Context, image []byte) (bool, error)
}

type PaymentArtifacts interface {
	Resolve(ctx context.Context, amount decimal.Decimal) services.Artifact
}

type Config struct {
	Catalog   Catalog
	Resolver  AddressResolver
	Verifier  ReceiptVerifier
	Artifacts PaymentArtifacts

	// TextFee prices typed addresses; nil uses services.TextFee. A zero schedule means free delivery.
	TextFee *services.FeeSchedule
	// TextMeasuredDistance prices typed addresses by real distance instead of a synthetic one.
	TextMeasuredDistance bool
	DispatchDelay        time.Duration

	// Uniform returns a value in [0, 1) for the synthetic text-path distance.
	Uniform func() float64
	NewRef  func() string
	Now     func() time.Time

	Logger  *logger.Logger
	Metrics *metrics.Metrics
}

// Machine applies one event to one session. It holds no per-chat state.
type Machine struct {
	cfg    Config
	routes routeTable
}

func NewMachine(cfg Config) *Machine {
	if cfg.Catalog == nil {
		cfg.Catalog = services.DefaultCatalog()
	}
	if cfg.TextFee == nil {
		fee := services.TextFee
		cfg.TextFee = &fee
	}
	if cfg.NewRef == nil {
		cfg.NewRef = services.NewOrderRef
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Machine{cfg: cfg, routes: buildRoutes()}
}

// Step routes ev and mutates s in place. The caller owns s and decides whether to keep it.
func (m *Machine) Step(ctx context.Context, s *Session, ev Event) Reply {
	return m.routes.lookup(s.Stage, ev)(m, ctx, s, ev)
}

func (m *Machine) restaurant() services.Restaurant {
	if m.cfg.Resolver == nil {
		return services.Restaurant{RadiusKm: services.DefaultServiceRadiusKm}
	}
	return m.cfg.Resolver.Restaurant()
}

func (m *Machine) unknownStage(ctx context.Context, s *Session, ev Event) Reply {
	m.cfg.Logger.Warn(ctx, "session in unknown stage, resetting", nil, "stage", string(s.Stage))
	s.Reset()
	return m.helpNudge(ctx, s, ev)
}

// Global commands.

func (m *Machine) showCatalog(_ context.Context, s *Session, _ Event) Reply {
	s.Reset()
	s.Stage = StageSelectingFood
	var r Reply
	r.removeKeyboard(s.ChatID, catalogText(m.cfg.Catalog))
	return r
}

func (m *Machine) cancel(_ context.Context, s *Session, _ Event) Reply {
	s.Reset()
	var r Reply
	r.removeKeyboard(s.ChatID, msgCancelled)
	return r
}

func (m *Machine) help(_ context.Context, s *Session, _ Event) Reply {
	var r Reply
	r.text(s.ChatID, helpText(s.Stage), m.stageKeyboard(s.Stage))
	return r
}

func (m *Machine) stageKeyboard(stage Stage) [][]Button {
	switch stage {
	case StageConfirmingMoreItems:
		return moreKeyboard
	case StageProvidingAddress:
		return addressKeyboard
	case StageChoosingPayment:
		return paymentKeyboard
	default:
		return nil
	}
}

// Start stage.

func (m *Machine) helpNudge(_ context.Context, s *Session, _ Event) Reply {
	var r Reply
	r.text(s.ChatID, msgHelpNudge, nil)
	return r
}

func (m *Machine) infoHours(_ context.Context, s *Session, _ Event) Reply {
	var r Reply
	r.text(s.ChatID, msgHours, nil)
	return r
}

func (m *Machine) infoWhere(_ context.Context, s *Session, _ Event) Reply {
	var r Reply
	r.text(s.ChatID, whereText(m.restaurant()), nil)
	return r
}

func (m *Machine) infoDelivery(_ context.Context, s *Session, _ Event) Reply {
	var r Reply
	r.text(s.ChatID, msgDelivery, nil)
	return r
}

func (m *Machine) infoPrice(_ context.Context, s *Session, _ Event) Reply {
	var r Reply
	r.text(s.ChatID, priceText(m.cfg.Catalog), nil)
	return r
}

func (m *Machine) infoThanks(_ context.Context, s *Session, _ Event) Reply {
	var r Reply
	r.text(s.ChatID, msgThanks, nil)
	return r
}

func (m *Machine) infoStatus(_ context.Context, s *Session, _ Event) Reply {
	var r Reply
	r.text(s.ChatID, statusText(s.LastOrder), nil)
	return r
}

// Item selection.

func (m *Machine) repeatCatalog(_ context.Context, s *Session, _ Event) Reply {
	body := catalogText(m.cfg.Catalog)
	if !s.Cart.Empty() {
		body = services.BuildCartSummary(s.Cart) + "\n\n" + body
	}
	var r Reply
	r.text(s.ChatID, body, nil)
	return r
}

func (m *Machine) selectItem(ctx context.Context, s *Session, ev Event) Reply {
	key := normalizeText(ev.Body)
	item, ok := m.cfg.Catalog.Lookup(key)
	if !ok {
		return m.repromptItem(ctx, s, ev)
	}
	s.Cart.Add(item)
	s.Stage = StageConfirmingMoreItems

	var r Reply
	r.text(s.ChatID, "✅ Added "+item.Name+".\n\n"+services.BuildCartSummary(s.Cart)+"\n\n"+msgMorePrompt, moreKeyboard)
	return r
}

func (m *Machine) repromptItem(_ context.Context, s *Session, ev Event) Reply {
	var r Reply
	r.text(s.ChatID, invalidItemText(ev.Body, m.cfg.Catalog), nil)
	return r
}

// Add more or proceed.

func (m *Machine) addMore(_ context.Context, s *Session, _ Event) Reply {
	s.Stage = StageAddingMore
	var r Reply
	r.removeKeyboard(s.ChatID, services.BuildCartSummary(s.Cart)+"\n\n"+catalogText(m.cfg.Catalog))
	return r
}

func (m *Machine) proceedToAddress(_ context.Context, s *Session, _ Event) Reply {
	s.Stage = StageProvidingAddress
	var r Reply
	r.text(s.ChatID, msgAddressAsk, addressKeyboard)
	return r
}

func (m *Machine) repromptMore(_ context.Context, s *Session, _ Event) Reply {
	var r Reply
	r.text(s.ChatID, "Please choose one of the options below.\n\n"+msgMorePrompt, moreKeyboard)
	return r
}

// Address.

func (m *Machine) addressFromText(ctx context.Context, s *Session, ev Event) Reply {
	var r Reply
	if err := services.ValidateAddressText(ev.Body); err != nil {
		r.text(s.ChatID, msgAddressShort, addressKeyboard)
		return r
	}
	if m.cfg.Resolver == nil {
		r.text(s.ChatID, msgAddressMiss, addressKeyboard)
		return r
	}

	match, err := m.cfg.Resolver.ResolveText(ctx, ev.Body)
	if err != nil && !errors.Is(err, services.ErrImplausibleAddress) {
		m.cfg.Logger.Warn(ctx, "address lookup unavailable", err)
	}
	if err != nil || !match.Found {
		r.text(s.ChatID, msgAddressMiss, addressKeyboard)
		return r
	}

	var distance float64
	if m.cfg.TextMeasuredDistance {
		rest := m.restaurant()
		distance, err = rest.Locate(services.Coordinates{Lat: match.Lat, Lon: match.Lon})
		if apperr.HasCode(err, apperr.CodeOutOfArea) {
			m.cfg.Logger.Info(ctx, "address outside service area", "code", string(apperr.CodeOf(err)), "reason", err.Error())
			r.text(s.ChatID, outOfAreaText(distance, rest.RadiusKm), addressKeyboard)
			return r
		}
	} else {
		distance = services.SyntheticDistanceKm(m.cfg.Uniform)
	}

	return m.quote(s, DeliveryQuote{
		Address:    match.CanonicalName,
		DistanceKm: distance,
		Fee:        m.cfg.TextFee.Fee(distance),
	})
}

func (m *Machine) addressFromLocation(ctx context.Context, s *Session, ev Event) Reply {
	var r Reply
	if err := validateCoordinates(ev.Lat, ev.Lon); err != nil {
		r.text(s.ChatID, msgBadLocation, addressKeyboard)
		return r
	}
	if m.cfg.Resolver == nil {
		r.text(s.ChatID, msgAddressMiss, addressKeyboard)
		return r
	}

	match := m.cfg.Resolver.ResolveCoordinates(ctx, ev.Lat, ev.Lon)
	if !match.WithinServiceRadius {
		m.cfg.Logger.Info(ctx, "location outside service area", "code", string(apperr.CodeOutOfArea), "distance_km", match.DistanceKm)
		r.text(s.ChatID, outOfAreaText(match.DistanceKm, m.restaurant().RadiusKm), addressKeyboard)
		return r
	}
	return m.quote(s, DeliveryQuote{
		Address:      match.CanonicalName,
		DistanceKm:   match.DistanceKm,
		Fee:          match.Fee,
		FromLocation: true,
	})
}

func (m *Machine) quote(s *Session, q DeliveryQuote) Reply {
	s.SetDelivery(q)
	s.Stage = StageChoosingPayment
	var r Reply
	r.text(s.ChatID, services.BuildDeliveryBreakdown(s.Cart, q.Address, q.DistanceKm, q.Fee)+"\n\n"+msgPaymentAsk, paymentKeyboard)
	return r
}

func (m *Machine) repromptAddress(_ context.Context, s *Session, _ Event) Reply {
	var r Reply
	r.text(s.ChatID, msgAddressAsk, addressKeyboard)
	return r
}

// Payment.

func (m *Machine) payCash(ctx context.Context, s *Session, _ Event) Reply {
	return m.finalize(ctx, s, models.PaymentCash, models.LabelCashOnDelivery)
}

func (m *Machine) payQR(ctx context.Context, s *Session, _ Event) Reply {
	s.PaymentMethod = models.PaymentQR
	s.Stage = StageUploadingProof

	var a services.Artifact
	if m.cfg.Artifacts != nil {
		a = m.cfg.Artifacts.Resolve(ctx, s.Total())
	} else {
		a, _ = services.AmountDueText{}.Artifact(ctx, s.Total())
	}

	var r Reply
	r.removeKeyboard(s.ChatID, "📱 QR Pay selected. Total due: "+services.FormatMoney(s.Total()))
	if a.HasImage() {
		r.image(s.ChatID, a.Image, a.Caption)
	} else {
		r.text(s.ChatID, a.Caption, nil)
	}
	return r
}

func (m *Machine) repromptPayment(_ context.Context, s *Session, _ Event) Reply {
	var r Reply
	r.text(s.ChatID, "Please choose a payment method below.\n\n"+msgPaymentAsk, paymentKeyboard)
	return r
}

// Proof of payment.

func (m *Machine) verifyProof(ctx context.Context, s *Session, ev Event) Reply {
	if m.cfg.Verifier == nil {
		return m.finalize(ctx, s, models.PaymentQR, models.LabelManualCheck)
	}
	ok, err := m.cfg.Verifier.Verify(ctx, ev.Image)
	if err != nil {
		m.cfg.Logger.Warn(ctx, "receipt verification degraded, flagging for manual check", err)
		return m.finalize(ctx, s, models.PaymentQR, models.LabelManualCheck)
	}
	if !ok {
		var r Reply
		r.text(s.ChatID, msgProofRetry, nil)
		return r
	}
	return m.finalize(ctx, s, models.PaymentQR, models.LabelQRVerified)
}

func (m *Machine) repromptProof(_ context.Context, s *Session, _ Event) Reply {
	var r Reply
	r.text(s.ChatID, msgProofAsk, nil)
	return r
}

// Finalization.

func (m *Machine) finalize(ctx context.Context, s *Session, method models.PaymentMethod, label string) Reply {
	in := services.FinalizeInput{
		Ref:          m.cfg.NewRef(),
		ChatID:       s.ChatID,
		Cart:         s.Cart,
		Method:       method,
		PaymentLabel: label,
		Now:          m.cfg.Now(),
	}
	if s.Delivery != nil {
		in.Address = s.Delivery.Address
		in.DistanceKm = s.Delivery.DistanceKm
		in.DeliveryFee = s.Delivery.Fee
	}
	o := services.FinalizeOrder(in)

	var r Reply
	r.removeKeyboard(s.ChatID, services.BuildConfirmationCard(o))
	r.later(m.cfg.DispatchDelay, Action{Kind: ActionSendText, ChatID: s.ChatID, Body: services.BuildDispatchCard(o)})

	s.LastOrder = &o
	s.Reset()

	m.cfg.Metrics.OrderCompleted(label)
	m.cfg.Logger.Info(ctx, "order finalized",
		"ref", o.Ref, "total", o.GrandTotal.StringFixed(2), "payment", label, "items", len(o.Lines))
	return r
}

// recoverFault builds the reply after a step panicked. s is the pre-step session.
// A photo during proof upload still completes the order, flagged for a human to reconcile.
func (m *Machine) recoverFault(ctx context.Context, s *Session, ev Event) Reply {
	if s.Stage == StageUploadingProof && ev.Kind == KindPhoto {
		return m.finalize(ctx, s, models.PaymentQR, models.LabelManualCheck)
	}
	var r Reply
	r.text(s.ChatID, msgApology, m.stageKeyboard(s.Stage))
	return r
}
