package reference

import (
	"context"
	"testing"

	"github.com/galette-community/plugin-stripe/internal/reference/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListCountriesSortedByName(t *testing.T) {
	repo := NewRepository()
	list, err := repo.ListCountries(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, list)
	for i := 1; i < len(list); i++ {
		assert.LessOrEqual(t, list[i-1].Name, list[i].Name)
	}
}

func TestGetCurrency(t *testing.T) {
	repo := NewRepository()
	c, err := repo.GetCurrency(context.Background(), "EUR")
	require.NoError(t, err)
	assert.Equal(t, "eur", c.Code)

	_, err = repo.GetCurrency(context.Background(), "jpy")
	assert.ErrorIs(t, err, domain.ErrUnsupportedCurrency)
}

func TestGetCountry(t *testing.T) {
	repo := NewRepository()
	c, err := repo.GetCountry(context.Background(), "fr")
	require.NoError(t, err)
	assert.Equal(t, "France", c.Name)

	_, err = repo.GetCountry(context.Background(), "XX")
	assert.ErrorIs(t, err, domain.ErrUnsupportedCountry)
}
