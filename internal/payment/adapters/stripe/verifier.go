package stripe

import (
	"crypto/hmac"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	paymentdomain "github.com/galette-community/plugin-stripe/internal/payment/domain"
	"github.com/stripe/stripe-go/v82/webhook"
)

const SignatureHeader = "Stripe-Signature"

type signedHeader struct {
	timestamp  time.Time
	signatures [][]byte
}

// Verify authenticates payload against every Stripe-Signature header line.
// Each line must be fresh within tolerance of now and carry a v1 signature
// matching HMAC-SHA256(secret, t + "." + payload). It returns the age of the
// oldest signature.
func Verify(payload []byte, headers []string, secret string, now time.Time, tolerance time.Duration) (time.Duration, error) {
	if len(headers) == 0 {
		return 0, paymentdomain.ErrSignatureMissing
	}
	if secret == "" {
		return 0, paymentdomain.ErrInvalidSignature
	}

	var oldest time.Duration
	for _, raw := range headers {
		header, err := parseSignatureHeader(raw)
		if err != nil {
			return 0, err
		}

		// Timestamps are whole seconds, compare at that resolution.
		age := time.Duration(now.Unix()-header.timestamp.Unix()) * time.Second
		if age < 0 {
			age = -age
		}
		if age > tolerance {
			return 0, paymentdomain.ErrSignatureExpired
		}
		if age > oldest {
			oldest = age
		}

		expected := webhook.ComputeSignature(header.timestamp, payload, secret)
		if !matchesAny(expected, header.signatures) {
			return 0, paymentdomain.ErrInvalidSignature
		}
	}
	return oldest, nil
}

func matchesAny(expected []byte, candidates [][]byte) bool {
	for _, candidate := range candidates {
		if hmac.Equal(expected, candidate) {
			return true
		}
	}
	return false
}

// parseSignatureHeader reads "t=<unix>,v1=<hex>[,v1=<hex>...]". Other schemes
// such as v0 are skipped.
func parseSignatureHeader(raw string) (signedHeader, error) {
	var (
		header signedHeader
		haveTS bool
	)
	for _, part := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "t":
			ts, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
			if err != nil {
				return signedHeader{}, paymentdomain.ErrInvalidSignature
			}
			header.timestamp = time.Unix(ts, 0)
			haveTS = true
		case "v1":
			sig, err := hex.DecodeString(strings.TrimSpace(value))
			if err != nil {
				continue
			}
			header.signatures = append(header.signatures, sig)
		}
	}
	if !haveTS || len(header.signatures) == 0 {
		return signedHeader{}, paymentdomain.ErrInvalidSignature
	}
	return header, nil
}
