package reference

import (
	"context"
	"sort"

	"github.com/galette-community/plugin-stripe/internal/reference/domain"
)

// Countries where Stripe accounts can be opened for the plugin.
var countries = []domain.Country{
	{Code: "AT", Name: "Austria"},
	{Code: "AU", Name: "Australia"},
	{Code: "BE", Name: "Belgium"},
	{Code: "BG", Name: "Bulgaria"},
	{Code: "CA", Name: "Canada"},
	{Code: "CH", Name: "Switzerland"},
	{Code: "CY", Name: "Cyprus"},
	{Code: "CZ", Name: "Czech Republic"},
	{Code: "DE", Name: "Germany"},
	{Code: "DK", Name: "Denmark"},
	{Code: "EE", Name: "Estonia"},
	{Code: "ES", Name: "Spain"},
	{Code: "FI", Name: "Finland"},
	{Code: "FR", Name: "France"},
	{Code: "GB", Name: "United Kingdom"},
	{Code: "GR", Name: "Greece"},
	{Code: "HK", Name: "Hong Kong"},
	{Code: "HU", Name: "Hungary"},
	{Code: "IE", Name: "Ireland"},
	{Code: "IT", Name: "Italy"},
	{Code: "JP", Name: "Japan"},
	{Code: "LT", Name: "Lithuania"},
	{Code: "LU", Name: "Luxembourg"},
	{Code: "LV", Name: "Latvia"},
	{Code: "MT", Name: "Malta"},
	{Code: "MX", Name: "Mexico"},
	{Code: "MY", Name: "Malaysia"},
	{Code: "NL", Name: "Netherlands"},
	{Code: "NO", Name: "Norway"},
	{Code: "NZ", Name: "New Zealand"},
	{Code: "PL", Name: "Poland"},
	{Code: "PT", Name: "Portugal"},
	{Code: "RO", Name: "Romania"},
	{Code: "SE", Name: "Sweden"},
	{Code: "SG", Name: "Singapore"},
	{Code: "SI", Name: "Slovenia"},
	{Code: "SK", Name: "Slovakia"},
	{Code: "US", Name: "United States"},
}

var currencies = []domain.Currency{
	{Code: "chf", Name: "Swiss franc", MinorUnit: 2},
	{Code: "eur", Name: "Euro", MinorUnit: 2},
	{Code: "usd", Name: "US dollar", MinorUnit: 2},
}

type repository struct {
	countries  map[string]domain.Country
	currencies map[string]domain.Currency
}

// NewRepository serves the static catalog of countries and currencies the
// plugin can be configured with.
func NewRepository() domain.Repository {
	r := &repository{
		countries:  make(map[string]domain.Country, len(countries)),
		currencies: make(map[string]domain.Currency, len(currencies)),
	}
	for _, c := range countries {
		r.countries[c.Code] = c
	}
	for _, c := range currencies {
		r.currencies[c.Code] = c
	}
	return r
}

func (r *repository) ListCountries(ctx context.Context) ([]domain.Country, error) {
	out := append([]domain.Country(nil), countries...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *repository) ListCurrencies(ctx context.Context) ([]domain.Currency, error) {
	out := append([]domain.Currency(nil), currencies...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *repository) GetCountry(ctx context.Context, code string) (domain.Country, error) {
	c, ok := r.countries[domain.NormalizeCountry(code)]
	if !ok {
		return domain.Country{}, domain.ErrUnsupportedCountry
	}
	return c, nil
}

func (r *repository) GetCurrency(ctx context.Context, code string) (domain.Currency, error) {
	c, ok := r.currencies[domain.NormalizeCurrency(code)]
	if !ok {
		return domain.Currency{}, domain.ErrUnsupportedCurrency
	}
	return c, nil
}
