package paymentControllers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign computes the callback signature the payment widget attaches to a
// successful confirmation: HMAC-SHA256 over "<sessionRef>|<paymentID>".
func Sign(secret, sessionRef, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(sessionRef + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a callback signature in constant time.
func VerifySignature(secret, sessionRef, paymentID, signature string) bool {
	expected, err := hex.DecodeString(Sign(secret, sessionRef, paymentID))
	if err != nil {
		return false
	}
	provided, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	return hmac.Equal(expected, provided)
}
