// Package demo generates plausible random debt portfolios for trying the
// planner without entering real data. All randomness comes from an injected
// source, so a fixed seed always yields the same portfolio.
package demo

import (
	"math"
	"math/rand/v2"

	"github.com/google/uuid"
	"github.com/iwvelando/debt-snowball/pkg/debt"
)

// Product is a kind of debt the generator can draw from.
type Product struct {
	Name     string
	MinRate  float64
	MaxRate  float64
	MinLimit float64
	MaxLimit float64
}

// Catalogue is the default set of products.
var Catalogue = []Product{
	{Name: "Barclaycard", MinRate: 18, MaxRate: 29, MinLimit: 1500, MaxLimit: 5000},
	{Name: "Halifax Credit Card", MinRate: 16, MaxRate: 25, MinLimit: 2000, MaxLimit: 8000},
	{Name: "MBNA Card", MinRate: 19, MaxRate: 27, MinLimit: 3000, MaxLimit: 12000},
	{Name: "Virgin Money", MinRate: 17, MaxRate: 24, MinLimit: 2500, MaxLimit: 6000},
	{Name: "Tesco Clubcard", MinRate: 22, MaxRate: 35, MinLimit: 1000, MaxLimit: 3500},
	{Name: "Personal Loan", MinRate: 6, MaxRate: 15, MinLimit: 5000, MaxLimit: 20000},
	{Name: "Car Finance", MinRate: 3, MaxRate: 12, MinLimit: 8000, MaxLimit: 30000},
	{Name: "Overdraft", MinRate: 25, MaxRate: 40, MinLimit: 500, MaxLimit: 2500},
	{Name: "PayPal Credit", MinRate: 0, MaxRate: 23, MinLimit: 1000, MaxLimit: 4000},
	{Name: "Store Card", MinRate: 28, MaxRate: 39, MinLimit: 500, MaxLimit: 2000},
}

// Portfolio bounds.
const (
	MinDebts          = 4
	MaxDebts          = 7
	MinUtilization    = 5.0
	MaxUtilization    = 90.0
	MinPaymentFloor   = 25.0
	MinPaymentPercent = 2.0
	MaxPaymentPercent = 4.0
)

// Generator draws random portfolios from a product catalogue.
type Generator struct {
	rng      *rand.Rand
	products []Product
}

// NewGenerator creates a generator over the default catalogue.
func NewGenerator(src rand.Source) *Generator {
	return &Generator{rng: rand.New(src), products: Catalogue}
}

// NewSeededGenerator creates a generator whose output is fixed by seed.
func NewSeededGenerator(seed uint64) *Generator {
	return NewGenerator(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// WithProducts replaces the catalogue.
func (g *Generator) WithProducts(products []Product) *Generator {
	g.products = products
	return g
}

// Debts returns between MinDebts and MaxDebts distinct products (fewer when
// the catalogue is smaller) with random limits, utilisation, rates and
// minimum payments. Every debt carries its credit limit and advisory note.
func (g *Generator) Debts() []debt.Debt {
	count := MinDebts + g.rng.IntN(MaxDebts-MinDebts+1)
	if count > len(g.products) {
		count = len(g.products)
	}

	picks := g.rng.Perm(len(g.products))[:count]
	ids := reader{g.rng}
	debts := make([]debt.Debt, 0, count)
	for _, idx := range picks {
		p := g.products[idx]
		limit := math.Floor(g.between(p.MinLimit, p.MaxLimit))
		utilization := g.between(MinUtilization, MaxUtilization)
		balance := math.Floor(limit * utilization / 100)
		rate := math.Floor(g.between(p.MinRate, p.MaxRate))
		minimum := math.Max(MinPaymentFloor, math.Floor(balance*g.between(MinPaymentPercent, MaxPaymentPercent)/100))

		d := debt.Debt{
			Name:              p.Name,
			Balance:           balance,
			AnnualRatePercent: rate,
			MinimumPayment:    minimum,
			CreditLimit:       &limit,
		}
		if id, err := uuid.NewRandomFromReader(ids); err == nil {
			d.ID = id.String()
		} else {
			d.ID = debt.DefaultID(len(debts), p.Name)
		}
		// Notes follow the drawn utilisation, not the floored balance.
		d.Notes = debt.NoteWithUtilization(d, utilization)
		debts = append(debts, d)
	}
	return debts
}

func (g *Generator) between(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

// reader adapts the generator's random stream to io.Reader for uuid.
type reader struct {
	rng *rand.Rand
}

func (r reader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(r.rng.Uint32())
	}
	return len(p), nil
}
