package shipping

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BryanViews002/style-yard-emporium-sub000/domain"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidCountry   = errors.New("country code must be two letters")
	ErrInvalidItemCount = errors.New("item count must be at least 1")
	ErrNegativeAmount   = errors.New("order amount must not be negative")
)

type Rate struct {
	Method     string          `yaml:"method"`
	Label      string          `yaml:"label"`
	Cost       decimal.Decimal `yaml:"cost"`
	PerItem    decimal.Decimal `yaml:"per_item"`
	EtaMinDays int             `yaml:"eta_min_days"`
	EtaMaxDays int             `yaml:"eta_max_days"`
	// FreeEligible rates cost nothing once the order reaches the zone's
	// free-shipping threshold.
	FreeEligible bool `yaml:"free_eligible"`
}

type Zone struct {
	FreeThreshold decimal.Decimal `yaml:"free_threshold"`
	Rates         []Rate          `yaml:"rates"`
}

type Rates struct {
	DomesticCountry string `yaml:"domestic_country"`
	Domestic        Zone   `yaml:"domestic"`
	International   Zone   `yaml:"international"`
}

func DefaultRates(domesticCountry string, freeThreshold decimal.Decimal) Rates {
	return Rates{
		DomesticCountry: domesticCountry,
		Domestic: Zone{
			FreeThreshold: freeThreshold,
			Rates: []Rate{
				{Method: "standard", Label: "Standard Shipping", Cost: decimal.RequireFromString("10.00"), EtaMinDays: 5, EtaMaxDays: 7, FreeEligible: true},
				{Method: "express", Label: "Express Shipping", Cost: decimal.RequireFromString("19.99"), EtaMinDays: 2, EtaMaxDays: 3},
				{Method: "overnight", Label: "Overnight", Cost: decimal.RequireFromString("34.99"), EtaMinDays: 1, EtaMaxDays: 1},
			},
		},
		International: Zone{
			Rates: []Rate{
				{Method: "international_standard", Label: "International Standard", Cost: decimal.RequireFromString("24.99"), PerItem: decimal.RequireFromString("2.00"), EtaMinDays: 7, EtaMaxDays: 14},
				{Method: "international_express", Label: "International Express", Cost: decimal.RequireFromString("49.99"), PerItem: decimal.RequireFromString("3.00"), EtaMinDays: 3, EtaMaxDays: 5},
			},
		},
	}
}

// LoadRates reads a YAML rate table.
func LoadRates(path string) (Rates, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Rates{}, fmt.Errorf("read shipping rates: %w", err)
	}
	var r Rates
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Rates{}, fmt.Errorf("parse shipping rates: %w", err)
	}
	r.DomesticCountry = strings.ToUpper(r.DomesticCountry)
	if len(r.Domestic.Rates) == 0 {
		return Rates{}, errors.New("shipping rates: domestic zone has no rates")
	}
	return r, nil
}

type QuoteRequest struct {
	CountryCode string
	OrderAmount decimal.Decimal
	ItemCount   int
}

// FreeShippingProgress is the banner shown next to the cart.
type FreeShippingProgress struct {
	Qualifies bool            `json:"qualifies"`
	Threshold decimal.Decimal `json:"threshold"`
	Remaining decimal.Decimal `json:"remaining"`
}

type Calculator struct {
	rates Rates
}

func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Quote returns the options available for a destination, cheapest first.
// OrderAmount is the post-discount merchandise total.
func (c *Calculator) Quote(_ context.Context, req QuoteRequest) ([]domain.ShippingOption, error) {
	country := strings.ToUpper(strings.TrimSpace(req.CountryCode))
	if len(country) != 2 {
		return nil, ErrInvalidCountry
	}
	if req.ItemCount < 1 {
		return nil, ErrInvalidItemCount
	}
	if req.OrderAmount.IsNegative() {
		return nil, ErrNegativeAmount
	}

	zone := c.zoneFor(country)
	free := qualifies(zone, req.OrderAmount)
	extra := decimal.NewFromInt(int64(req.ItemCount - 1))

	options := make([]domain.ShippingOption, 0, len(zone.Rates))
	for _, r := range zone.Rates {
		opt := domain.ShippingOption{
			Method:     r.Method,
			Label:      r.Label,
			Cost:       r.Cost.Add(r.PerItem.Mul(extra)).Round(2),
			EtaMinDays: r.EtaMinDays,
			EtaMaxDays: r.EtaMaxDays,
		}
		if free && r.FreeEligible {
			opt.Cost = decimal.Zero
			opt.IsFree = true
		}
		options = append(options, opt)
	}
	sort.SliceStable(options, func(i, j int) bool {
		return options[i].Cost.LessThan(options[j].Cost)
	})
	return options, nil
}

// Progress reports how far the amount is from free shipping to the given
// country, using the same zone threshold that marks options as free. A zone
// without a threshold never qualifies and reports nothing remaining.
func (c *Calculator) Progress(countryCode string, amount decimal.Decimal) FreeShippingProgress {
	zone := c.zoneFor(strings.ToUpper(strings.TrimSpace(countryCode)))
	p := FreeShippingProgress{Threshold: zone.FreeThreshold, Remaining: decimal.Zero}
	if !zone.FreeThreshold.IsPositive() {
		return p
	}
	if qualifies(zone, amount) {
		p.Qualifies = true
		return p
	}
	p.Remaining = zone.FreeThreshold.Sub(amount).Round(2)
	return p
}

func (c *Calculator) zoneFor(country string) Zone {
	if country == c.rates.DomesticCountry {
		return c.rates.Domestic
	}
	return c.rates.International
}

func qualifies(z Zone, amount decimal.Decimal) bool {
	return z.FreeThreshold.IsPositive() && amount.GreaterThanOrEqual(z.FreeThreshold)
}

// Pick returns the option for a method, or false when it is not offered.
func Pick(options []domain.ShippingOption, method string) (domain.ShippingOption, bool) {
	if method == "" && len(options) > 0 {
		return options[0], true
	}
	for _, o := range options {
		if o.Method == method {
			return o, true
		}
	}
	return domain.ShippingOption{}, false
}
