package domain

import (
	"errors"
	"strings"
)

var (
	ErrUnsupportedCountry  = errors.New("unsupported_country")
	ErrUnsupportedCurrency = errors.New("unsupported_currency")
)

type Country struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type Currency struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	MinorUnit int16  `json:"minor_unit"`
}

// zeroDecimalCurrencies are charged by Stripe in major units.
var zeroDecimalCurrencies = map[string]struct{}{
	"bif": {}, "clp": {}, "djf": {}, "gnf": {}, "jpy": {}, "kmf": {},
	"krw": {}, "mga": {}, "pyg": {}, "rwf": {}, "ugx": {}, "vnd": {},
	"vuv": {}, "xaf": {}, "xof": {}, "xpf": {},
}

// IsZeroDecimalCurrency reports whether code has no minor unit at Stripe.
func IsZeroDecimalCurrency(code string) bool {
	_, ok := zeroDecimalCurrencies[NormalizeCurrency(code)]
	return ok
}

func NormalizeCurrency(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

func NormalizeCountry(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
