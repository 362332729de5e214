package stripe

import (
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	paymentdomain "github.com/galette-community/plugin-stripe/internal/payment/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"
)

const testSecret = "whsec_test"

var testNow = time.Unix(1740830400, 0)

func signatureHeader(secret string, payload []byte, ts time.Time) string {
	sig := webhook.ComputeSignature(ts, payload, secret)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(sig))
}

func TestVerifyAcceptsValidSignature(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded"}`)
	header := signatureHeader(testSecret, payload, testNow.Add(-2*time.Second))

	age, err := Verify(payload, []string{header}, testSecret, testNow, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, age)
}

func TestVerifyRejections(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	valid := signatureHeader(testSecret, payload, testNow)

	tests := []struct {
		name    string
		payload []byte
		headers []string
		secret  string
		want    error
	}{
		{name: "no header", payload: payload, headers: nil, secret: testSecret, want: paymentdomain.ErrSignatureMissing},
		{name: "empty secret", payload: payload, headers: []string{valid}, secret: "", want: paymentdomain.ErrInvalidSignature},
		{name: "wrong secret", payload: payload, headers: []string{signatureHeader("whsec_other", payload, testNow)}, secret: testSecret, want: paymentdomain.ErrInvalidSignature},
		{name: "mutated body", payload: []byte(`{"id":"evt_2"}`), headers: []string{valid}, secret: testSecret, want: paymentdomain.ErrInvalidSignature},
		{name: "stale", payload: payload, headers: []string{signatureHeader(testSecret, payload, testNow.Add(-6*time.Second))}, secret: testSecret, want: paymentdomain.ErrSignatureExpired},
		{name: "future", payload: payload, headers: []string{signatureHeader(testSecret, payload, testNow.Add(6*time.Second))}, secret: testSecret, want: paymentdomain.ErrSignatureExpired},
		{name: "no v1", payload: payload, headers: []string{fmt.Sprintf("t=%d,v0=abc", testNow.Unix())}, secret: testSecret, want: paymentdomain.ErrInvalidSignature},
		{name: "no timestamp", payload: payload, headers: []string{"v1=abcd"}, secret: testSecret, want: paymentdomain.ErrInvalidSignature},
		{name: "garbage timestamp", payload: payload, headers: []string{"t=soon,v1=abcd"}, secret: testSecret, want: paymentdomain.ErrInvalidSignature},
		{name: "one bad header among good", payload: payload, headers: []string{valid, signatureHeader("whsec_other", payload, testNow)}, secret: testSecret, want: paymentdomain.ErrInvalidSignature},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Verify(tt.payload, tt.headers, tt.secret, testNow, 5*time.Second)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestVerifyAnyOfSeveralV1(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	sig := webhook.ComputeSignature(testNow, payload, testSecret)
	header := fmt.Sprintf("t=%d,v1=%s,v1=%s,v0=ignored", testNow.Unix(), hex.EncodeToString([]byte("nope")), hex.EncodeToString(sig))

	_, err := Verify(payload, []string{header}, testSecret, testNow, 5*time.Second)
	assert.NoError(t, err)
}

func TestVerifyEveryHeaderMustBeFresh(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	headers := []string{
		signatureHeader(testSecret, payload, testNow),
		signatureHeader(testSecret, payload, testNow.Add(-10*time.Second)),
	}

	_, err := Verify(payload, headers, testSecret, testNow, 5*time.Second)
	assert.ErrorIs(t, err, paymentdomain.ErrSignatureExpired)

	age, err := Verify(payload, headers, testSecret, testNow, 30*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, age)
}

func TestVerifyFreshnessUsesWholeSeconds(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	header := signatureHeader(testSecret, payload, testNow)

	age, err := Verify(payload, []string{header}, testSecret, testNow.Add(5*time.Second+900*time.Millisecond), 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, age)

	_, err = Verify(payload, []string{header}, testSecret, testNow.Add(6*time.Second), 5*time.Second)
	assert.ErrorIs(t, err, paymentdomain.ErrSignatureExpired)
}
