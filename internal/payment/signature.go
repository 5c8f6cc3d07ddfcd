package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidSignature = errors.New("invalid webhook signature")

// Signature is the parsed x-signature header: "ts=<timestamp>,v1=<hex hmac>".
type Signature struct {
	Timestamp string
	V1        string
}

func ParseSignatureHeader(header string) (Signature, error) {
	var sig Signature
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "ts":
			sig.Timestamp = strings.TrimSpace(value)
		case "v1":
			sig.V1 = strings.TrimSpace(value)
		}
	}
	if sig.Timestamp == "" || sig.V1 == "" {
		return Signature{}, ErrInvalidSignature
	}
	return sig, nil
}

// Manifest is the string the gateway signs for one notification.
func Manifest(dataID, requestID, ts string) string {
	return fmt.Sprintf("id:%s;request-id:%s;ts:%s;", dataID, requestID, ts)
}

// Sign returns the hex HMAC-SHA256 of the manifest.
func Sign(secret, dataID, requestID, ts string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(Manifest(dataID, requestID, ts)))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks the x-signature header against the notification's data id and
// x-request-id. With no secret configured every request passes.
func VerifySignature(secret, header, requestID, dataID string) error {
	if secret == "" {
		return nil
	}
	sig, err := ParseSignatureHeader(header)
	if err != nil {
		return err
	}
	expected := Sign(secret, dataID, requestID, sig.Timestamp)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(sig.V1))) {
		return ErrInvalidSignature
	}
	return nil
}
