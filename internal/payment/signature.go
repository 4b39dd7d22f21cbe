package payment

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
)

// ErrNoSecret is returned when a provider is asked to sign or verify without
// a configured secret. Callers must surface this as a configuration failure,
// never skip verification.
var ErrNoSecret = errors.New("payment: signing secret not configured")

// SignEncodedBlob implements the LiqPay canonicalization: the base64 digest
// of sha1(secret + data + secret) where data is the already-encoded payload.
func SignEncodedBlob(secret, data string) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", ErrNoSecret
	}
	sum := sha1.Sum([]byte(secret + data + secret))
	return base64.StdEncoding.EncodeToString(sum[:]), nil
}

// VerifyEncodedBlob recomputes the blob signature and compares it against the
// supplied one in constant time. An empty secret fails closed.
func VerifyEncodedBlob(secret, data, supplied string) bool {
	expected, err := SignEncodedBlob(secret, data)
	if err != nil || supplied == "" {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(supplied))
}

// SignFieldList implements the WayForPay canonicalization: a lowercase hex
// HMAC-MD5 over the fields joined with ";" in the documented order.
func SignFieldList(secret string, fields ...string) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", ErrNoSecret
	}
	mac := hmac.New(md5.New, []byte(secret))
	mac.Write([]byte(strings.Join(fields, ";")))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// VerifyFieldList recomputes the field-list signature and compares it against
// the supplied one in constant time.
func VerifyFieldList(secret, supplied string, fields ...string) bool {
	expected, err := SignFieldList(secret, fields...)
	if err != nil || supplied == "" {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(supplied))
}
