package order

import (
	"context"
	"strings"
	"unicode"
)

// Normalized input tokens shared by buttons and typed synonyms.
const (
	tokenMenu     = "menu"
	tokenAddMore  = "add_more"
	tokenProceed  = "proceed"
	tokenCash     = "cash"
	tokenQR       = "qr"
	tokenHours    = "hours"
	tokenWhere    = "where"
	tokenDelivery = "delivery"
	tokenPrice    = "price"
	tokenThanks   = "thanks"
	tokenStatus   = "status"

	cmdStart  = "start"
	cmdMenu   = "menu"
	cmdOrder  = "order"
	cmdCancel = "cancel"
	cmdHelp   = "help"
)

// anyStage marks routes that apply regardless of stage.
const anyStage Stage = "*"

var textAliases = map[string]string{
	"hi": tokenMenu, "hello": tokenMenu, "hey": tokenMenu, "salam": tokenMenu,
	"menu": tokenMenu, "view menu": tokenMenu, "order": tokenMenu, "order now": tokenMenu, "start": tokenMenu,

	"add more": tokenAddMore, "add more items": tokenAddMore, "more": tokenAddMore, "add": tokenAddMore,

	"proceed": tokenProceed, "proceed to delivery": tokenProceed, "checkout": tokenProceed, "done": tokenProceed,

	"cash": tokenCash, "cash on delivery": tokenCash, "cod": tokenCash,

	"qr": tokenQR, "qr pay": tokenQR, "pay by qr": tokenQR, "duitnow": tokenQR, "duitnow qr": tokenQR,

	"hours": tokenHours, "opening hours": tokenHours, "open": tokenHours,
	"location": tokenWhere, "where": tokenWhere, "where are you": tokenWhere, "address": tokenWhere,
	"delivery": tokenDelivery, "delivery info": tokenDelivery,
	"price": tokenPrice, "prices": tokenPrice, "cost": tokenPrice,
	"thanks": tokenThanks, "thank you": tokenThanks, "thank": tokenThanks, "terima kasih": tokenThanks,
	"status": tokenStatus, "order status": tokenStatus, "check status": tokenStatus,
}

// normalizeText lowercases, drops emoji and punctuation, and collapses whitespace.
func normalizeText(s string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(mapped), " ")
}

// normalize reduces an event to the input key used for routing.
func normalize(ev Event) string {
	switch ev.Kind {
	case KindText:
		t := normalizeText(ev.Body)
		if tok, ok := textAliases[t]; ok {
			return tok
		}
		return t
	case KindCommand:
		name := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ev.Body), "/"))
		if i := strings.IndexByte(name, '@'); i >= 0 {
			name = name[:i]
		}
		return name
	default:
		return ""
	}
}

type handler func(m *Machine, ctx context.Context, s *Session, ev Event) Reply

type routeKey struct {
	stage Stage
	kind  EventKind
	input string
}

type routeTable map[routeKey]handler

// lookup resolves most specific first: global exact, stage exact, stage+kind, stage.
func (t routeTable) lookup(stage Stage, ev Event) handler {
	in := normalize(ev)
	for _, k := range []routeKey{
		{anyStage, ev.Kind, in},
		{stage, ev.Kind, in},
		{stage, ev.Kind, ""},
		{stage, "", ""},
	} {
		if h, ok := t[k]; ok {
			return h
		}
	}
	return (*Machine).unknownStage
}

func buildRoutes() routeTable {
	t := routeTable{}

	for _, cmd := range []string{cmdStart, cmdMenu, cmdOrder} {
		t[routeKey{anyStage, KindCommand, cmd}] = (*Machine).showCatalog
	}
	t[routeKey{anyStage, KindCommand, cmdCancel}] = (*Machine).cancel
	t[routeKey{anyStage, KindCommand, cmdHelp}] = (*Machine).help

	t[routeKey{StageStart, KindText, tokenMenu}] = (*Machine).showCatalog
	t[routeKey{StageStart, KindText, tokenHours}] = (*Machine).infoHours
	t[routeKey{StageStart, KindText, tokenWhere}] = (*Machine).infoWhere
	t[routeKey{StageStart, KindText, tokenDelivery}] = (*Machine).infoDelivery
	t[routeKey{StageStart, KindText, tokenPrice}] = (*Machine).infoPrice
	t[routeKey{StageStart, KindText, tokenThanks}] = (*Machine).infoThanks
	t[routeKey{StageStart, KindText, tokenStatus}] = (*Machine).infoStatus
	t[routeKey{StageStart, "", ""}] = (*Machine).helpNudge

	for _, st := range []Stage{StageSelectingFood, StageAddingMore} {
		t[routeKey{st, KindText, tokenMenu}] = (*Machine).repeatCatalog
		t[routeKey{st, KindText, ""}] = (*Machine).selectItem
		t[routeKey{st, "", ""}] = (*Machine).repromptItem
	}

	t[routeKey{StageConfirmingMoreItems, KindText, tokenAddMore}] = (*Machine).addMore
	t[routeKey{StageConfirmingMoreItems, KindText, tokenProceed}] = (*Machine).proceedToAddress
	t[routeKey{StageConfirmingMoreItems, "", ""}] = (*Machine).repromptMore

	t[routeKey{StageProvidingAddress, KindText, ""}] = (*Machine).addressFromText
	t[routeKey{StageProvidingAddress, KindLocation, ""}] = (*Machine).addressFromLocation
	t[routeKey{StageProvidingAddress, "", ""}] = (*Machine).repromptAddress

	t[routeKey{StageChoosingPayment, KindText, tokenCash}] = (*Machine).payCash
	t[routeKey{StageChoosingPayment, KindText, tokenQR}] = (*Machine).payQR
	t[routeKey{StageChoosingPayment, "", ""}] = (*Machine).repromptPayment

	t[routeKey{StageUploadingProof, KindPhoto, ""}] = (*Machine).verifyProof
	t[routeKey{StageUploadingProof, "", ""}] = (*Machine).repromptProof

	return t
}
