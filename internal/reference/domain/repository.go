package domain

import "context"

type Repository interface {
	ListCountries(ctx context.Context) ([]Country, error)
	ListCurrencies(ctx context.Context) ([]Currency, error)
	GetCountry(ctx context.Context, code string) (Country, error)
	GetCurrency(ctx context.Context, code string) (Currency, error)
}
