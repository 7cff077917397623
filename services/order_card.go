package services

import (
	"fmt"
	"strings"

	"nasi-kandar-bot/models"

	"github.com/shopspring/decimal"
)

// BuildCartSummary lists the cart lines and the food subtotal.
func BuildCartSummary(c Cart) string {
	if c.Empty() {
		return "🛒 Your order is empty."
	}
	var b strings.Builder
	b.WriteString("🛒 Your order:\n")
	for i, it := range c.Items {
		fmt.Fprintf(&b, "%d. %s - %s\n", i+1, it.Name, FormatMoney(it.Price))
	}
	fmt.Fprintf(&b, "\nFood subtotal: %s", FormatMoney(c.ItemsTotal))
	return b.String()
}

// BuildDeliveryBreakdown renders subtotal, fee and total for the payment step.
func BuildDeliveryBreakdown(c Cart, address string, distanceKm float64, fee decimal.Decimal) string {
	text := BuildCartSummary(c) + "\n"
	text += fmt.Sprintf("📍 Deliver to: %s\n", address)
	text += fmt.Sprintf("🚚 Delivery fee (%.2f km): %s\n", distanceKm, FormatMoney(fee))
	text += fmt.Sprintf("💵 Total: %s", FormatMoney(c.ItemsTotal.Add(fee)))
	return text
}

// BuildConfirmationCard is the itemized receipt sent when an order is finalized.
func BuildConfirmationCard(o models.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ Order confirmed! %s\n\n", o.Ref)
	for i, l := range o.Lines {
		fmt.Fprintf(&b, "%d. %s - %s\n", i+1, l.Name, FormatMoney(l.Price))
	}
	fmt.Fprintf(&b, "\nFood subtotal: %s\n", FormatMoney(o.FoodSubtotal))
	fmt.Fprintf(&b, "Delivery fee: %s\n", FormatMoney(o.DeliveryFee))
	fmt.Fprintf(&b, "Total: %s\n\n", FormatMoney(o.GrandTotal))
	fmt.Fprintf(&b, "📍 %s\n", o.Address)
	fmt.Fprintf(&b, "💳 Payment: %s", o.PaymentLabel)
	return b.String()
}

// BuildDispatchCard is the delayed "on the way" notice for a finalized order.
func BuildDispatchCard(o models.Order) string {
	text := fmt.Sprintf("🛵 %s is on its way!\n", o.Ref)
	text += "Estimated delivery: 30-45 minutes.\n"
	if o.PaymentLabel == models.LabelCashOnDelivery {
		text += fmt.Sprintf("Please have %s ready for the rider.", FormatMoney(o.GrandTotal))
	} else {
		text += "Thank you for your payment."
	}
	return text
}

// BuildStatusCard answers a status query for the most recent order.
func BuildStatusCard(o *models.Order) string {
	if o == nil {
		return "To check your order status, please provide your order number.\n\nFormat: ORDER-XXXXX"
	}
	return fmt.Sprintf("📦 Your last order %s (%s, %s) has been dispatched.", o.Ref, FormatMoney(o.GrandTotal), o.PaymentLabel)
}
