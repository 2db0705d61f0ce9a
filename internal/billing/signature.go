package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Signature header format: "t=<unix>,v1=<hex hmac-sha256 of "<unix>.<payload>">".
// The timestamp is inside the MAC, so replaying an old payload with a fresh
// timestamp fails verification and replaying the old header fails the
// tolerance check.

var ErrBadSignature = errors.New("webhook signature verification failed")

// VerifySignature authenticates a raw webhook payload. Any failure — missing
// header, stale timestamp, MAC mismatch — is terminal: the caller must
// respond 400 with zero side effects.
func VerifySignature(payload []byte, signatureHeader, secret string, tolerance time.Duration, now time.Time) error {
	if secret == "" {
		return fmt.Errorf("%w: no signing secret configured", ErrBadSignature)
	}

	var tsPart, sigPart string
	for _, part := range strings.Split(signatureHeader, ",") {
		if v, ok := strings.CutPrefix(strings.TrimSpace(part), "t="); ok {
			tsPart = v
		} else if v, ok := strings.CutPrefix(strings.TrimSpace(part), "v1="); ok {
			sigPart = v
		}
	}
	if tsPart == "" || sigPart == "" {
		return fmt.Errorf("%w: malformed signature header", ErrBadSignature)
	}

	ts, err := strconv.ParseInt(tsPart, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: malformed timestamp", ErrBadSignature)
	}
	age := now.Sub(time.Unix(ts, 0))
	if age > tolerance || age < -tolerance {
		return fmt.Errorf("%w: timestamp outside tolerance", ErrBadSignature)
	}

	expected, err := hex.DecodeString(strings.ToLower(sigPart))
	if err != nil {
		return fmt.Errorf("%w: malformed signature", ErrBadSignature)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(tsPart))
	mac.Write([]byte("."))
	mac.Write(payload)
	if !hmac.Equal(mac.Sum(nil), expected) {
		return ErrBadSignature
	}
	return nil
}

// SignPayload produces a valid signature header; used by tests and local
// tooling that feeds the webhook endpoint.
func SignPayload(payload []byte, secret string, at time.Time) string {
	ts := strconv.FormatInt(at.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(payload)
	return "t=" + ts + ",v1=" + hex.EncodeToString(mac.Sum(nil))
}
