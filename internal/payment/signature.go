package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// computeSignature recreates the gateway's proof of payment: hex HMAC-SHA256
// over "gatewayOrderID|gatewayPaymentID" with the shared key secret.
func computeSignature(secret, gatewayOrderID, gatewayPaymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// validSignature compares in constant time.
func validSignature(secret, gatewayOrderID, gatewayPaymentID, signature string) bool {
	expected := computeSignature(secret, gatewayOrderID, gatewayPaymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}
