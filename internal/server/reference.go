package server

import (
	"net/http"
	"strings"

	referencedomain "github.com/galette-community/plugin-stripe/internal/reference/domain"
	"github.com/gin-gonic/gin"
)

// currencyView tells the settings form how Stripe charges a currency.
type currencyView struct {
	referencedomain.Currency
	ZeroDecimal bool `json:"zero_decimal"`
}

func toCurrencyView(c referencedomain.Currency) currencyView {
	return currencyView{Currency: c, ZeroDecimal: referencedomain.IsZeroDecimalCurrency(c.Code)}
}

// ListCountries serves the country picker. q filters on code or name.
func (s *Server) ListCountries(c *gin.Context) {
	countries, err := s.refrepo.ListCountries(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	q := strings.ToLower(strings.TrimSpace(c.Query("q")))
	out := make([]referencedomain.Country, 0, len(countries))
	for _, country := range countries {
		if matchesReference(q, country.Code, country.Name) {
			out = append(out, country)
		}
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

func (s *Server) ListCurrencies(c *gin.Context) {
	currencies, err := s.refrepo.ListCurrencies(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	q := strings.ToLower(strings.TrimSpace(c.Query("q")))
	out := make([]currencyView, 0, len(currencies))
	for _, currency := range currencies {
		if matchesReference(q, currency.Code, currency.Name) {
			out = append(out, toCurrencyView(currency))
		}
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

func (s *Server) GetCurrency(c *gin.Context) {
	currency, err := s.refrepo.GetCurrency(c.Request.Context(), c.Param("code"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCurrencyView(currency))
}

func matchesReference(q, code, name string) bool {
	if q == "" {
		return true
	}
	return strings.EqualFold(code, q) || strings.Contains(strings.ToLower(name), q)
}
