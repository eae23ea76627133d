package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
)

const (
	SignatureHeader  = "X-Gateway-Signature"
	maxCallbackBytes = 1 << 20
)

// GatewaySignature accepts only requests whose body carries a hex
// HMAC-SHA256 signature made with the gateway secret.
func GatewaySignature(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBytes))
			if err != nil {
				writeSignatureError(w)
				return
			}

			got, err := hex.DecodeString(r.Header.Get(SignatureHeader))
			if err != nil || !hmac.Equal(got, Sign(secret, body)) {
				writeSignatureError(w)
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))
			next.ServeHTTP(w, r)
		})
	}
}

// Sign returns the HMAC-SHA256 of body.
func Sign(secret string, body []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return mac.Sum(nil)
}

func writeSignatureError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   "INVALID_SIGNATURE",
		"message": "callback signature does not match",
	})
}
