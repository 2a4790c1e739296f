package notify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Signature header names set by WebhookPublisher.
const (
	HeaderSignature = "X-Sublife-Signature"
	HeaderTimestamp = "X-Sublife-Timestamp"
	HeaderEventID   = "X-Sublife-Event-ID"
)

// Sign returns the hex HMAC-SHA256 of "<unix timestamp>.<payload>".
func Sign(secret string, timestamp int64, payload []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(strconv.FormatInt(timestamp, 10)))
	h.Write([]byte("."))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

// VerifySignature checks the signature headers of a received webhook.
// A positive maxAge rejects timestamps older than maxAge relative to now,
// and timestamps more than a minute in the future.
func VerifySignature(secret string, payload []byte, header http.Header, now time.Time, maxAge time.Duration) error {
	if secret == "" {
		return errors.Join(ErrInvalidConfiguration, errors.New("secret is required"))
	}
	sig := header.Get(HeaderSignature)
	if sig == "" {
		return errors.Join(ErrInvalidSignature, errors.New("signature is missing"))
	}
	ts, err := strconv.ParseInt(header.Get(HeaderTimestamp), 10, 64)
	if err != nil {
		return errors.Join(ErrInvalidSignature, fmt.Errorf("invalid timestamp: %w", err))
	}

	if maxAge > 0 {
		age := now.Sub(time.Unix(ts, 0))
		if age > maxAge {
			return errors.Join(ErrInvalidSignature, fmt.Errorf("signature too old: %v", age))
		}
		if age < -time.Minute {
			return errors.Join(ErrInvalidSignature, errors.New("signature timestamp is in the future"))
		}
	}

	if !hmac.Equal([]byte(Sign(secret, ts, payload)), []byte(sig)) {
		return errors.Join(ErrInvalidSignature, errors.New("signature mismatch"))
	}
	return nil
}
