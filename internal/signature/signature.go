// Package signature checks Razorpay checkout signatures.
//
// The gateway signs a successful checkout with
// hex(HMAC-SHA256(key_secret, order_id + "|" + payment_id)).
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

var (
	ErrMissingSecret = errors.New("payment gateway not configured")
	ErrMismatch      = errors.New("invalid payment signature")
)

// Compute returns the hex signature the gateway produces for the pair.
func Compute(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify returns nil only when signature matches the pair exactly.
func Verify(secret, orderID, paymentID, signature string) error {
	if secret == "" {
		return ErrMissingSecret
	}
	if orderID == "" || paymentID == "" || signature == "" {
		return ErrMismatch
	}
	expected := Compute(secret, orderID, paymentID)
	// compared byte for byte; padding or case changes are a different signature
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrMismatch
	}
	return nil
}
