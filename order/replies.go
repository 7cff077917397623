package order

import (
	"fmt"
	"strings"

	"nasi-kandar-bot/models"
	"nasi-kandar-bot/services"
)

const (
	btnAddMore       = "➕ Add more"
	btnProceed       = "🚚 Proceed to delivery"
	btnCash          = "💵 Cash on Delivery"
	btnQR            = "📱 QR Pay"
	btnShareLocation = "📍 Share location"
)

var (
	moreKeyboard    = [][]Button{{{Text: btnAddMore}, {Text: btnProceed}}}
	paymentKeyboard = [][]Button{{{Text: btnCash}, {Text: btnQR}}}
	addressKeyboard = [][]Button{{{Text: btnShareLocation, RequestLocation: true}}}
)

const (
	msgHelpNudge = "Thank you for your message! 🙏\n\n" +
		"I can help you with:\n" +
		"• Menu and Prices\n" +
		"• Place Orders\n" +
		"• Delivery Information\n" +
		"• Opening Hours\n" +
		"• Location\n\n" +
		"Just type what you need (e.g., \"menu\", \"order\", \"delivery\")"

	msgHours = "🕐 Opening Hours\n\n" +
		"Monday - Sunday: 11:00 AM - 11:00 PM\n\n" +
		"We are open every day!"

	msgDelivery = "🚚 Delivery Information\n\n" +
		"• Share your location for an exact fee: RM2.00 + RM0.50 per km\n" +
		"• We deliver within 50 km of the restaurant\n" +
		"• Delivery Time: 30-45 minutes\n\n" +
		"Ready to order? Type \"order\" to proceed!"

	msgThanks = "You're welcome! Have a great day! 😊\n\nFeel free to message us anytime."

	msgCancelled = "❌ Your order has been cancelled. Type \"menu\" whenever you're ready to order again."

	msgPickItem     = "Reply with the item number to add it to your order."
	msgMorePrompt   = "Would you like to add more items or proceed to delivery?"
	msgAddressAsk   = "📍 Please type your delivery address, or tap \"Share location\" to send your GPS location."
	msgPaymentAsk   = "How would you like to pay?"
	msgProofAsk     = "📸 Please upload a photo of your payment receipt to complete your order."
	msgProofRetry   = "🤔 We couldn't read that as a payment receipt. Please send a clearer photo showing the total amount."
	msgAddressShort = "That doesn't look like an address. Please type your street and area, e.g. \"123 Jalan Bukit Bintang, KL\", or share your location."
	msgAddressMiss  = "😕 We couldn't find that address. Try adding the street and city, or tap \"Share location\" instead."
	msgBadLocation  = "That location doesn't look right. Please share your location again."
	msgApology      = "😓 Sorry, something went wrong on our side. Please try that again."
)

func catalogText(c Catalog) string {
	var b strings.Builder
	b.WriteString("🍽️ Our Menu\n\n")
	for _, it := range c.List() {
		fmt.Fprintf(&b, "%s. %s - %s\n", it.ID, it.Name, services.FormatMoney(it.Price))
	}
	b.WriteString("\n")
	b.WriteString(msgPickItem)
	return b.String()
}

func whereText(r services.Restaurant) string {
	name := r.Name
	if name == "" {
		name = "Nasi Kandar Restaurant"
	}
	return fmt.Sprintf("📍 Our Location\n\n%s\nJalan Penang, Georgetown\nPulau Pinang, Malaysia\n\nhttps://maps.google.com/?q=%.5f,%.5f",
		name, r.Origin.Lat, r.Origin.Lon)
}

func priceText(c Catalog) string {
	items := c.List()
	if len(items) == 0 {
		return "Type \"menu\" to see the full menu with prices."
	}
	lo, hi := items[0].Price, items[0].Price
	for _, it := range items[1:] {
		if it.Price.LessThan(lo) {
			lo = it.Price
		}
		if it.Price.GreaterThan(hi) {
			hi = it.Price
		}
	}
	return fmt.Sprintf("Our prices range from %s to %s per dish.\n\nType \"menu\" to see the full menu with prices.",
		services.FormatMoney(lo), services.FormatMoney(hi))
}

func invalidItemText(input string, c Catalog) string {
	items := c.List()
	hint := msgPickItem
	if len(items) > 0 {
		hint = fmt.Sprintf("Please reply with a number from %s to %s.", items[0].ID, items[len(items)-1].ID)
	}
	in := strings.TrimSpace(input)
	if in == "" {
		return "Sorry, I didn't catch that. " + hint
	}
	return fmt.Sprintf("Sorry, %q is not on our menu. %s", in, hint)
}

func outOfAreaText(distanceKm, radiusKm float64) string {
	return fmt.Sprintf("😔 Sorry, you're %.2f km away. We only deliver within %.0f km of the restaurant. Please share another location or type an address.",
		distanceKm, radiusKm)
}

func helpText(stage Stage) string {
	switch stage {
	case StageSelectingFood, StageAddingMore:
		return msgPickItem
	case StageConfirmingMoreItems:
		return "Tap \"" + btnAddMore + "\" to keep ordering or \"" + btnProceed + "\" to enter your address."
	case StageProvidingAddress:
		return msgAddressAsk
	case StageChoosingPayment:
		return "Tap \"" + btnCash + "\" or \"" + btnQR + "\" to choose how to pay."
	case StageUploadingProof:
		return msgProofAsk
	default:
		return msgHelpNudge + "\n\nCommands: /menu to order, /cancel to start over."
	}
}

func statusText(last *models.Order) string {
	return services.BuildStatusCard(last)
}
