package stripe

import (
	"encoding/json"
	"strings"

	paymentdomain "github.com/galette-community/plugin-stripe/internal/payment/domain"
	stripe "github.com/stripe/stripe-go/v82"
)

// Parse decodes a Stripe event and projects the two supported payment events
// onto a Notification. Other event types yield ErrEventIgnored.
func Parse(payload []byte) (paymentdomain.Notification, error) {
	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return paymentdomain.Notification{}, paymentdomain.ErrInvalidPayload
	}

	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded, stripe.EventTypeInvoicePaymentSucceeded:
	default:
		return paymentdomain.Notification{EventID: event.ID, EventType: paymentdomain.EventTypeOther}, paymentdomain.ErrEventIgnored
	}

	if event.Data == nil || len(event.Data.Raw) == 0 {
		return paymentdomain.Notification{}, paymentdomain.ErrInvalidEvent
	}

	var (
		n   paymentdomain.Notification
		err error
	)
	if event.Type == stripe.EventTypeInvoicePaymentSucceeded {
		n, err = parseInvoice(event.Data.Raw)
	} else {
		n, err = parsePaymentIntent(event.Data.Raw)
	}
	if err != nil {
		return paymentdomain.Notification{}, err
	}
	n.EventID = event.ID
	return n, nil
}

func parsePaymentIntent(raw json.RawMessage) (paymentdomain.Notification, error) {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(raw, &intent); err != nil {
		return paymentdomain.Notification{}, paymentdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(intent.ID) == "" {
		return paymentdomain.Notification{}, paymentdomain.ErrInvalidEvent
	}

	status := paymentdomain.StatusOther
	if intent.Status == stripe.PaymentIntentStatusSucceeded {
		status = paymentdomain.StatusSucceeded
	}

	metadata := normalizeMetadata(intent.Metadata, nil)
	return paymentdomain.Notification{
		EventType:      paymentdomain.EventTypeOneTimePaymentSucceeded,
		IntentID:       intent.ID,
		Status:         status,
		AmountReceived: intent.AmountReceived,
		AmountExpected: intent.Amount,
		Currency:       strings.ToLower(string(intent.Currency)),
		Metadata:       metadata,
		Description:    firstNonEmpty(metadata[paymentdomain.MetaItemName], intent.Description),
		PayerName:      metadata[paymentdomain.MetaBillingName],
	}, nil
}

// parseInvoice reads amounts from amount_paid / amount_due and merges the
// first line item's metadata over the invoice metadata.
func parseInvoice(raw json.RawMessage) (paymentdomain.Notification, error) {
	var invoice stripe.Invoice
	if err := json.Unmarshal(raw, &invoice); err != nil {
		return paymentdomain.Notification{}, paymentdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(invoice.ID) == "" {
		return paymentdomain.Notification{}, paymentdomain.ErrInvalidEvent
	}

	var line *stripe.InvoiceLineItem
	if invoice.Lines != nil && len(invoice.Lines.Data) > 0 {
		line = invoice.Lines.Data[0]
	}

	var lineMeta map[string]string
	lineDescription := ""
	if line != nil {
		lineMeta = line.Metadata
		lineDescription = line.Description
	}
	metadata := normalizeMetadata(invoice.Metadata, lineMeta)

	status := paymentdomain.StatusOther
	if invoice.Status == stripe.InvoiceStatusPaid {
		status = paymentdomain.StatusSucceeded
	}

	return paymentdomain.Notification{
		EventType:      paymentdomain.EventTypeInvoicePaymentSucceeded,
		IntentID:       invoice.ID,
		Status:         status,
		AmountReceived: invoice.AmountPaid,
		AmountExpected: invoice.AmountDue,
		Currency:       strings.ToLower(string(invoice.Currency)),
		Metadata:       metadata,
		Description:    firstNonEmpty(lineMeta[paymentdomain.MetaItemName], lineDescription),
		PayerName:      firstNonEmpty(metadata[paymentdomain.MetaBillingName], invoice.CustomerName),
	}, nil
}

// normalizeMetadata merges overlay over base and fills the current keys from
// their legacy names when absent.
func normalizeMetadata(base, overlay map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(overlay))
	for k, v := range base {
		out[k] = strings.TrimSpace(v)
	}
	for k, v := range overlay {
		out[k] = strings.TrimSpace(v)
	}
	if out[paymentdomain.MetaMemberID] == "" && out[paymentdomain.MetaLegacyMemberID] != "" {
		out[paymentdomain.MetaMemberID] = out[paymentdomain.MetaLegacyMemberID]
	}
	if out[paymentdomain.MetaItemID] == "" && out[paymentdomain.MetaLegacyItemID] != "" {
		out[paymentdomain.MetaItemID] = out[paymentdomain.MetaLegacyItemID]
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
