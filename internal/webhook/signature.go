package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// GenerateSignedPayload serializes event and signs it with HMAC-SHA256.
// The signed message is "{timestamp}.{event_id}.{json_body}" and the
// signature is returned as "sha256=<hex>".
func GenerateSignedPayload(hexSecret string, event WebhookEvent, timestamp int64) (payload []byte, signature string, err error) {
	secret, err := hex.DecodeString(hexSecret)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode hex secret: %w", err)
	}

	payload, err = json.Marshal(event)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal event: %w", err)
	}

	h := hmac.New(sha256.New, secret)
	_, _ = fmt.Fprintf(h, "%d.%s.", timestamp, event.EventID)
	h.Write(payload)

	return payload, "sha256=" + hex.EncodeToString(h.Sum(nil)), nil
}
