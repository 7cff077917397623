package services

import (
	"context"
	"fmt"
	"strings"

	"nasi-kandar-bot/db"
	"nasi-kandar-bot/logger"
	"nasi-kandar-bot/models"

	"github.com/shopspring/decimal"
)

// Catalog is the read-only menu, keyed by item id, in display order.
type Catalog struct {
	items []models.MenuItem
	byID  map[string]models.MenuItem
}

func NewCatalog(items []models.MenuItem) *Catalog {
	c := &Catalog{
		items: make([]models.MenuItem, 0, len(items)),
		byID:  make(map[string]models.MenuItem, len(items)),
	}
	for _, it := range items {
		if _, dup := c.byID[it.ID]; dup {
			continue
		}
		c.items = append(c.items, it)
		c.byID[it.ID] = it
	}
	return c
}

func DefaultCatalog() *Catalog {
	return NewCatalog([]models.MenuItem{
		{ID: "1", Name: "Nasi Kandar Special", Price: decimal.RequireFromString("12.00")},
		{ID: "2", Name: "Ayam Goreng", Price: decimal.RequireFromString("8.00")},
		{ID: "3", Name: "Ikan Goreng", Price: decimal.RequireFromString("10.00")},
		{ID: "4", Name: "Sotong Goreng", Price: decimal.RequireFromString("9.00")},
		{ID: "5", Name: "Daging Kari", Price: decimal.RequireFromString("15.00")},
		{ID: "6", Name: "Roti Canai", Price: decimal.RequireFromString("3.50")},
		{ID: "7", Name: "Mee Goreng Mamak", Price: decimal.RequireFromString("8.00")},
		{ID: "8", Name: "Teh Tarik", Price: decimal.RequireFromString("3.00")},
		{ID: "9", Name: "Air Sirap Bandung", Price: decimal.RequireFromString("2.50")},
	})
}

func (c *Catalog) Lookup(id string) (models.MenuItem, bool) {
	it, ok := c.byID[strings.TrimSpace(id)]
	return it, ok
}

func (c *Catalog) List() []models.MenuItem {
	out := make([]models.MenuItem, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Catalog) Len() int {
	return len(c.items)
}

// ListMenu reads menu_items from the database.
func ListMenu(ctx context.Context) ([]models.MenuItem, error) {
	if db.Pool == nil {
		return nil, fmt.Errorf("list menu: database not configured")
	}
	rows, err := db.Pool.Query(ctx, `
		SELECT id, name, price::text FROM menu_items
		ORDER BY position, id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.MenuItem
	for rows.Next() {
		var id, name, price string
		if err := rows.Scan(&id, &name, &price); err != nil {
			return nil, err
		}
		p, err := decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("menu item %s price %q: %w", id, price, err)
		}
		items = append(items, models.MenuItem{ID: id, Name: name, Price: p})
	}
	return items, rows.Err()
}

// LoadCatalog returns the database menu when available, otherwise the built-in one.
func LoadCatalog(ctx context.Context, log *logger.Logger) *Catalog {
	if db.Pool == nil {
		return DefaultCatalog()
	}
	items, err := ListMenu(ctx)
	if err != nil {
		log.Warn(ctx, "menu load failed, using built-in menu", err)
		return DefaultCatalog()
	}
	if len(items) == 0 {
		log.Warn(ctx, "menu_items is empty, using built-in menu", nil)
		return DefaultCatalog()
	}
	log.Info(ctx, "menu loaded from database", "items", len(items))
	return NewCatalog(items)
}
