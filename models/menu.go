package models

import "github.com/shopspring/decimal"

type MenuItem struct {
	ID    string // short numeric code the customer types, e.g. "1"
	Name  string
	Price decimal.Decimal
}
