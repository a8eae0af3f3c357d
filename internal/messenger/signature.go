package messenger

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	domerrors "github.com/globexvn/messenger-tracking-bot/internal/errors"
)

// SignatureHeader carries the HMAC-SHA256 of the raw body keyed with the app secret.
const SignatureHeader = "X-Hub-Signature-256"

const signaturePrefix = "sha256="

// Sign returns the header value for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks header against body. It returns ErrInvalidSignature
// when the header is missing, malformed, or does not match.
func VerifySignature(secret string, body []byte, header string) error {
	hexSig, ok := strings.CutPrefix(header, signaturePrefix)
	if !ok || hexSig == "" {
		return domerrors.ErrInvalidSignature
	}
	got, err := hex.DecodeString(hexSig)
	if err != nil {
		return domerrors.ErrInvalidSignature
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return domerrors.ErrInvalidSignature
	}
	return nil
}
