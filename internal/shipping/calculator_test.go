package shipping

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCalculator() *Calculator {
	return NewCalculator(DefaultRates("US", decimal.NewFromInt(100)))
}

func TestQuote_DomesticBelowThreshold(t *testing.T) {
	c := newCalculator()

	options, err := c.Quote(context.Background(), QuoteRequest{CountryCode: "us", OrderAmount: decimal.NewFromInt(60), ItemCount: 2})
	require.NoError(t, err)

	require.Len(t, options, 3)
	assert.Equal(t, "standard", options[0].Method)
	assert.Equal(t, "10.00", options[0].Cost.StringFixed(2))
	assert.False(t, options[0].IsFree)
	for i := 1; i < len(options); i++ {
		assert.True(t, options[i-1].Cost.LessThanOrEqual(options[i].Cost))
	}
}

func TestQuote_ThresholdMakesStandardFree(t *testing.T) {
	c := newCalculator()

	options, err := c.Quote(context.Background(), QuoteRequest{CountryCode: "US", OrderAmount: decimal.NewFromInt(100), ItemCount: 1})
	require.NoError(t, err)

	standard, ok := Pick(options, "standard")
	require.True(t, ok)
	assert.True(t, standard.IsFree)
	assert.True(t, standard.Cost.IsZero())

	express, ok := Pick(options, "express")
	require.True(t, ok)
	assert.False(t, express.IsFree)
}

func TestQuote_BannerAgreesWithOptions(t *testing.T) {
	c := newCalculator()

	for _, country := range []string{"US", "FR"} {
		for _, amount := range []string{"0", "99.99", "100", "250"} {
			a := decimal.RequireFromString(amount)
			options, err := c.Quote(context.Background(), QuoteRequest{CountryCode: country, OrderAmount: a, ItemCount: 1})
			require.NoError(t, err)
			anyFree := false
			for _, o := range options {
				anyFree = anyFree || o.IsFree
			}

			progress := c.Progress(country, a)
			assert.Equal(t, anyFree, progress.Qualifies, "%s amount %s", country, amount)
		}
	}

	assert.Equal(t, "0.01", c.Progress("us", decimal.RequireFromString("99.99")).Remaining.StringFixed(2))
	international := c.Progress("FR", decimal.NewFromInt(200))
	assert.False(t, international.Qualifies)
	assert.True(t, international.Remaining.IsZero())
}

func TestQuote_InternationalPerItemSurcharge(t *testing.T) {
	c := newCalculator()

	options, err := c.Quote(context.Background(), QuoteRequest{CountryCode: "GB", OrderAmount: decimal.NewFromInt(500), ItemCount: 3})
	require.NoError(t, err)

	require.Len(t, options, 2)
	assert.Equal(t, "international_standard", options[0].Method)
	assert.Equal(t, "28.99", options[0].Cost.StringFixed(2))
	assert.False(t, options[0].IsFree)
}

func TestQuote_InvalidInput(t *testing.T) {
	c := newCalculator()
	ctx := context.Background()

	_, err := c.Quote(ctx, QuoteRequest{CountryCode: "USA", OrderAmount: decimal.NewFromInt(1), ItemCount: 1})
	assert.ErrorIs(t, err, ErrInvalidCountry)

	_, err = c.Quote(ctx, QuoteRequest{CountryCode: "US", OrderAmount: decimal.NewFromInt(1), ItemCount: 0})
	assert.ErrorIs(t, err, ErrInvalidItemCount)

	_, err = c.Quote(ctx, QuoteRequest{CountryCode: "US", OrderAmount: decimal.NewFromInt(-1), ItemCount: 1})
	assert.ErrorIs(t, err, ErrNegativeAmount)
}

func TestPick_DefaultsToCheapest(t *testing.T) {
	c := newCalculator()
	options, err := c.Quote(context.Background(), QuoteRequest{CountryCode: "US", OrderAmount: decimal.NewFromInt(10), ItemCount: 1})
	require.NoError(t, err)

	opt, ok := Pick(options, "")
	assert.True(t, ok)
	assert.Equal(t, "standard", opt.Method)

	_, ok = Pick(options, "drone")
	assert.False(t, ok)
}

func TestLoadRates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rates.yaml")
	content := `
domestic_country: ca
domestic:
  free_threshold: 75
  rates:
    - method: ground
      label: Ground
      cost: 8.50
      eta_min_days: 3
      eta_max_days: 6
      free_eligible: true
international:
  rates:
    - method: air
      label: Air Mail
      cost: 30
      per_item: 1.25
      eta_min_days: 6
      eta_max_days: 12
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	rates, err := LoadRates(path)
	require.NoError(t, err)
	assert.Equal(t, "CA", rates.DomesticCountry)

	c := NewCalculator(rates)
	options, err := c.Quote(context.Background(), QuoteRequest{CountryCode: "CA", OrderAmount: decimal.NewFromInt(80), ItemCount: 1})
	require.NoError(t, err)
	require.Len(t, options, 1)
	assert.True(t, options[0].IsFree)

	intl, err := c.Quote(context.Background(), QuoteRequest{CountryCode: "US", OrderAmount: decimal.NewFromInt(80), ItemCount: 2})
	require.NoError(t, err)
	assert.Equal(t, "31.25", intl[0].Cost.StringFixed(2))
}

func TestLoadRates_MissingFile(t *testing.T) {
	_, err := LoadRates(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
