package pdf

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/gosimple/slug"
	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

var ErrInvalidReceipt = errors.New("invalid_receipt")

// ReceiptData is a processed Stripe payment rendered as a receipt.
type ReceiptData struct {
	OrgName string

	// Number is the history entry id.
	Number    string
	Reference string
	DatePaid  string

	PayerName   string
	Description string
	EventType   string

	// Amount is already formatted in major units with its currency.
	Amount string
}

type PDFProvider struct{}

func New() Provider {
	return &PDFProvider{}
}

func (p *PDFProvider) GenerateReceipt(ctx context.Context, receipt ReceiptData) (io.Reader, error) {
	if strings.TrimSpace(receipt.Number) == "" || strings.TrimSpace(receipt.Amount) == "" {
		return nil, ErrInvalidReceipt
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(30,
		text.NewCol(6, "Receipt", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(6, receipt.OrgName, props.Text{
			Size:  12,
			Style: fontstyle.Bold,
			Align: align.Right,
		}),
	)

	m.AddRow(20,
		col.New(6).Add(
			text.New("Receipt number: "+receipt.Number, props.Text{Top: 0}),
			text.New("Date paid: "+receipt.DatePaid, props.Text{Top: 4}),
			text.New("Stripe reference: "+receipt.Reference, props.Text{Top: 8}),
		),
		col.New(6).Add(
			text.New("Received from", props.Text{Style: fontstyle.Bold}),
			text.New(fallback(receipt.PayerName, "Anonymous"), props.Text{Top: 5}),
		),
	)

	m.AddRow(15,
		text.NewCol(12, receipt.Amount+" paid on "+receipt.DatePaid, props.Text{
			Size:  14,
			Style: fontstyle.Bold,
			Top:   5,
		}),
	)

	m.AddRow(10,
		text.NewCol(8, "Description", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(4, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	m.AddRow(15,
		text.NewCol(8, fallback(receipt.Description, receipt.EventType), props.Text{Size: 9}),
		text.NewCol(4, receipt.Amount, props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(10,
		col.New(8),
		text.NewCol(2, "Total", props.Text{Size: 9}),
		text.NewCol(2, receipt.Amount, props.Text{Size: 9, Align: align.Right}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}

	return bytes.NewReader(doc.GetBytes()), nil
}

// Filename is the download name for a receipt, e.g. receipt-jane-doe-1789.pdf.
func Filename(receipt ReceiptData) string {
	parts := []string{"receipt"}
	if name := slug.Make(receipt.PayerName); name != "" {
		parts = append(parts, name)
	}
	if number := slug.Make(receipt.Number); number != "" {
		parts = append(parts, number)
	}
	return strings.Join(parts, "-") + ".pdf"
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return value
}
