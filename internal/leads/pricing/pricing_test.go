package pricing

import (
	"math"
	"testing"

	"leadtracker_backend/internal/leads/domain"

	"github.com/stretchr/testify/assert"
)

func TestTotalExcludesShippingByDefault(t *testing.T) {
	cases := []struct {
		name                               string
		unit, area, construction, material float64
		want                               float64
	}{
		{"zero", 0, 0, 0, 0, 0},
		{"price times area", 85, 120, 0, 0, 10200},
		{"with fees", 85.5, 100, 3000, 1250.25, 12800.25},
		{"float noise", 0.1, 3, 0, 0, 0.3},
		{"negative ignored", -10, 5, 100, 0, 100},
		{"infinite ignored", math.Inf(1), 2, 100, 0, 100},
		{"nan ignored", math.NaN(), 2, 0, 50, 50},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Total(tc.unit, tc.area, tc.construction, tc.material))
		})
	}
}

func TestApplyHonoursShippingPolicy(t *testing.T) {
	lead := domain.Lead{UnitPrice: 100, Area: 10, ConstructionFee: 500, MaterialFee: 200, ShippingFee: 300}

	Policy{}.Apply(&lead)
	assert.Equal(t, 1700.0, lead.TotalAmount)

	lead.ShippingFee = 900
	Policy{}.Apply(&lead)
	assert.Equal(t, 1700.0, lead.TotalAmount)

	Policy{ShippingInTotal: true}.Apply(&lead)
	assert.Equal(t, 2600.0, lead.TotalAmount)
}
