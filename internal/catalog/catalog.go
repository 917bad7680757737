// Package catalog holds the products sold through checkout and their prices.
package catalog

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	CurrencyINR = "INR"
	CurrencyUSD = "USD"
)

// Product keys used in routes.
const (
	KeyMaterials   = "materials"
	KeySourceCode  = "source-code"
	KeyLiveSession = "live-session"
)

// Deliverable describes what a completed purchase hands back to the buyer.
type Deliverable int

const (
	DeliverNone Deliverable = iota
	DeliverDownloadLink
	DeliverFileContent
)

var ErrUnknownProduct = errors.New("unknown product")

type Product struct {
	Key         string
	Name        string
	Deliverable Deliverable
	// FileName is the name the browser saves file content under.
	FileName string
	prices   map[string]decimal.Decimal
	fallback string
}

// Price resolves the amount for the requested currency. Currencies the
// product is not sold in resolve to its fallback currency.
func (p Product) Price(currency string) (decimal.Decimal, string) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if amount, ok := p.prices[currency]; ok {
		return amount, currency
	}
	return p.prices[p.fallback], p.fallback
}

var products = map[string]Product{
	KeyMaterials: {
		Key:         KeyMaterials,
		Name:        "AI Masterclass Materials",
		Deliverable: DeliverDownloadLink,
		prices:      map[string]decimal.Decimal{CurrencyINR: decimal.NewFromInt(99)},
		fallback:    CurrencyINR,
	},
	KeySourceCode: {
		Key:         KeySourceCode,
		Name:        "Source Code Bundle",
		Deliverable: DeliverFileContent,
		FileName:    "Source_Codes.txt",
		prices: map[string]decimal.Decimal{
			CurrencyINR: decimal.NewFromInt(2999),
			CurrencyUSD: decimal.RequireFromString("34.99"),
		},
		fallback: CurrencyUSD,
	},
	KeyLiveSession: {
		Key:         KeyLiveSession,
		Name:        "AI Live Masterclass",
		Deliverable: DeliverNone,
		prices:      map[string]decimal.Decimal{CurrencyINR: decimal.NewFromInt(149)},
		fallback:    CurrencyINR,
	},
}

// Lookup returns the product registered under key.
func Lookup(key string) (Product, error) {
	p, ok := products[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return Product{}, ErrUnknownProduct
	}
	return p, nil
}

// MinorUnits converts a major-unit amount to the gateway's smallest unit
// (paise, cents). Both supported currencies have two decimal places.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
