package pdf

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateReceipt(t *testing.T) {
	p := New()
	r, err := p.GenerateReceipt(context.Background(), ReceiptData{
		OrgName:     "Les Amis",
		Number:      "1789",
		Reference:   "pi_123",
		DatePaid:    "2024-05-01",
		PayerName:   "Jane Doe",
		Description: "Annual fee",
		Amount:      "25.00 EUR",
	})
	require.NoError(t, err)

	raw, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("%PDF")))
}

func TestGenerateReceiptRequiresNumberAndAmount(t *testing.T) {
	_, err := New().GenerateReceipt(context.Background(), ReceiptData{Amount: "1 EUR"})
	assert.ErrorIs(t, err, ErrInvalidReceipt)
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "receipt-jane-doe-1789.pdf", Filename(ReceiptData{PayerName: "Jane Doe", Number: "1789"}))
	assert.Equal(t, "receipt-helene-dupre-42.pdf", Filename(ReceiptData{PayerName: "Hélène Dupré", Number: "42"}))
	assert.Equal(t, "receipt-42.pdf", Filename(ReceiptData{Number: "42"}))
}
