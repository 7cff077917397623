package services

import (
	"nasi-kandar-bot/models"

	"github.com/shopspring/decimal"
)

type CartItem struct {
	ID    string
	Name  string
	Price decimal.Decimal
	Qty   int
}

type Cart struct {
	Items      []CartItem
	ItemsTotal decimal.Decimal
}

// Add appends a new line with quantity 1. Picking the same dish twice yields two lines.
func (c *Cart) Add(item models.MenuItem) {
	c.Items = append(c.Items, CartItem{
		ID:    item.ID,
		Name:  item.Name,
		Price: item.Price,
		Qty:   1,
	})
	c.Recompute()
}

func (c *Cart) Recompute() {
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Qty))))
	}
	c.ItemsTotal = total
}

func (c *Cart) Clear() {
	c.Items = nil
	c.ItemsTotal = decimal.Zero
}

func (c *Cart) Empty() bool {
	return len(c.Items) == 0
}

func (c Cart) Clone() Cart {
	items := make([]CartItem, len(c.Items))
	copy(items, c.Items)
	return Cart{Items: items, ItemsTotal: c.ItemsTotal}
}

// Lines converts the cart into order lines.
func (c Cart) Lines() []models.OrderLine {
	lines := make([]models.OrderLine, 0, len(c.Items))
	for _, it := range c.Items {
		lines = append(lines, models.OrderLine{ItemID: it.ID, Name: it.Name, Price: it.Price, Qty: it.Qty})
	}
	return lines
}
