// Package pricing derives a lead's estimated total from its priced fields.
package pricing

import (
	"math"

	"leadtracker_backend/internal/leads/domain"

	"github.com/shopspring/decimal"
)

// Policy holds the configurable parts of the total formula.
type Policy struct {
	// ShippingInTotal adds the shipping fee to the total. Off by default:
	// shipping is reported separately.
	ShippingInTotal bool
}

// Total returns unitPrice*area + constructionFee + materialFee, plus the
// shipping fee when the policy says so. Negative and non-finite inputs
// count as zero.
func (p Policy) Total(unitPrice, area, constructionFee, materialFee, shippingFee float64) float64 {
	sum := amount(unitPrice).Mul(amount(area)).
		Add(amount(constructionFee)).
		Add(amount(materialFee))
	if p.ShippingInTotal {
		sum = sum.Add(amount(shippingFee))
	}
	return sum.Round(2).InexactFloat64()
}

// Apply recomputes and stores lead's total.
func (p Policy) Apply(lead *domain.Lead) {
	lead.TotalAmount = p.Total(lead.UnitPrice, lead.Area, lead.ConstructionFee, lead.MaterialFee, lead.ShippingFee)
}

// Total applies the default policy.
func Total(unitPrice, area, constructionFee, materialFee float64) float64 {
	return Policy{}.Total(unitPrice, area, constructionFee, materialFee, 0)
}

func amount(v float64) decimal.Decimal {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}
