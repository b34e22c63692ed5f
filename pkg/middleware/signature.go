package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	apperrors "slotbook/pkg/errors"
	"slotbook/pkg/logger"
	"strings"
)

const SignatureHeader = "X-Payment-Signature"

// PaymentSignatureVerification rejects webhook calls whose body is not signed
// with HMAC-SHA256 under secret. The header carries "sha256=<hex>".
func PaymentSignatureVerification(secret string, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			signature := extractSignature(r)
			if signature == "" {
				rejectSignature(w, log, r, "Missing "+SignatureHeader+" header")
				return
			}

			body, err := readAndRestoreBody(r)
			if err != nil {
				rejectSignature(w, log, r, "Failed to read request body")
				return
			}

			if !VerifySignature(body, signature, secret) {
				rejectSignature(w, log, r, "Invalid webhook signature")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func extractSignature(r *http.Request) string {
	header := r.Header.Get(SignatureHeader)
	signature, _ := strings.CutPrefix(header, "sha256=")
	return signature
}

func readAndRestoreBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}

	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))

	return body, nil
}

// Sign returns the hex HMAC-SHA256 of body.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func VerifySignature(body []byte, receivedSignature string, secret string) bool {
	if secret == "" {
		return false
	}
	return hmac.Equal([]byte(Sign(body, secret)), []byte(receivedSignature))
}

func rejectSignature(w http.ResponseWriter, log *logger.Logger, r *http.Request, reason string) {
	log.Warn("Payment webhook verification failed",
		"request_id", RequestID(r.Context()),
		"reason", reason,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr,
	)
	reject(w, apperrors.Unauthorized("invalid signature"))
}
