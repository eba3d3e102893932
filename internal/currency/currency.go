// Package currency normalizes amounts between currencies so that spend
// figures can be aggregated in a single base currency.
//
// Conversion is best-effort: when no rate is known for a currency, the
// amount is passed through unchanged and a warning is logged. Spend
// figures must always render something, so a missing rate degrades the
// result instead of failing the request.
package currency

import (
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// DefaultBase is used when no base currency is configured.
const DefaultBase = "EUR"

type ContextKey string

// ContextConverter is the key the active Converter is stored under in
// the request context.
const ContextConverter ContextKey = "subtrackd-backend-converter"

// FromContext returns the Converter stored in the request context,
// falling back to a Noop converter when none is set.
func FromContext(c *gin.Context) Converter {
	v, ok := c.Get(string(ContextConverter))
	if ok {
		if converter, ok := v.(Converter); ok {
			return converter
		}
	}

	return Noop{}
}

// Converter converts an amount between two currencies.
type Converter interface {
	// Base returns the base currency amounts are normalized to.
	Base() string

	// Convert converts an amount from one currency to another. An empty
	// currency code is treated as the base currency.
	Convert(amount decimal.Decimal, from, to string) decimal.Decimal
}

// Noop is a Converter that never converts. It is used when no rate
// table is configured.
type Noop struct {
	BaseCurrency string
}

func (n Noop) Base() string {
	if n.BaseCurrency == "" {
		return DefaultBase
	}

	return n.BaseCurrency
}

func (Noop) Convert(amount decimal.Decimal, _, _ string) decimal.Decimal {
	return amount
}

// Table converts amounts with a static rate table. Rates are expressed
// as the value of one unit of the currency in the base currency.
type Table struct {
	base  string
	rates map[string]decimal.Decimal
}

// New returns a Table for the given base currency and rates.
func New(base string, rates map[string]decimal.Decimal) Table {
	if base == "" {
		base = DefaultBase
	}

	return Table{base: base, rates: rates}
}

func (t Table) Base() string {
	return t.base
}

func (t Table) Convert(amount decimal.Decimal, from, to string) decimal.Decimal {
	if from == "" {
		from = t.base
	}
	if to == "" {
		to = t.base
	}

	if from == to {
		return amount
	}

	fromRate, err := t.rate(from)
	if err != nil {
		log.Warn().Err(err).Msg("Currency")
		return amount
	}

	toRate, err := t.rate(to)
	if err != nil {
		log.Warn().Err(err).Msg("Currency")
		return amount
	}

	return amount.Mul(fromRate).Div(toRate)
}

func (t Table) rate(code string) (decimal.Decimal, error) {
	if code == t.base {
		return decimal.NewFromInt(1), nil
	}

	rate, ok := t.rates[code]
	if !ok || rate.IsZero() {
		return decimal.Decimal{}, fmt.Errorf("no conversion rate for currency %s, amount is used unconverted", code)
	}

	return rate, nil
}

// file is the on-disk format of a rate table. Rates are parsed as
// floats since yaml.v3 cannot unmarshal into decimal.Decimal directly.
type file struct {
	Base  string             `yaml:"base"`
	Rates map[string]float64 `yaml:"rates"`
}

// Load reads a rate table from a YAML file.
func Load(path string) (Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("could not read currency rate file: %w", err)
	}

	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return Table{}, fmt.Errorf("could not parse currency rate file: %w", err)
	}

	rates := make(map[string]decimal.Decimal, len(f.Rates))
	for code, rate := range f.Rates {
		rates[code] = decimal.NewFromFloat(rate)
	}

	return New(f.Base, rates), nil
}
