package webhook_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-yield-ledger/internal/webhook"
)

const testSecret = "746573742d7365637265742d6b6579" //nolint:gosec,G101

func testEvent(id string) webhook.WebhookEvent {
	return webhook.WebhookEvent{
		EventID:   id,
		EventType: "SendYield",
		Sequence:  7,
		Caller:    "0x00000000000000000000000000000000000000A1",
		Timestamp: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
		Data: json.RawMessage(`{"to":"0x00000000000000000000000000000000000000b1",` +
			`"totalRentAmount":"100000000","currentYieldSendForToWallet":"1000000"}`),
	}
}

// sign reproduces the receiver side verification
func sign(t *testing.T, hexSecret string, timestamp int64, eventID string, payload []byte) string {
	secret, err := hex.DecodeString(hexSecret)
	require.NoError(t, err)
	h := hmac.New(sha256.New, secret)
	h.Write([]byte(fmt.Sprintf("%d.%s.%s", timestamp, eventID, string(payload))))
	return "sha256=" + hex.EncodeToString(h.Sum(nil))
}

func TestGenerateSignedPayload(t *testing.T) {
	t.Run("signature can be verified by the receiver", func(t *testing.T) {
		event := testEvent("01JG8XAMPLE1234567890123456")

		payload, signature, err := webhook.GenerateSignedPayload(testSecret, event, 1705312800)
		require.NoError(t, err)

		var parsed webhook.WebhookEvent
		require.NoError(t, json.Unmarshal(payload, &parsed))
		assert.Equal(t, event.EventID, parsed.EventID)
		assert.Equal(t, event.Sequence, parsed.Sequence)
		assert.JSONEq(t, string(event.Data), string(parsed.Data))

		assert.Equal(t, sign(t, testSecret, 1705312800, event.EventID, payload), signature)
	})

	t.Run("signature covers the event id", func(t *testing.T) {
		_, sig1, err := webhook.GenerateSignedPayload(testSecret, testEvent("01JG8XAMPLE1111111111111111"), 1)
		require.NoError(t, err)
		_, sig2, err := webhook.GenerateSignedPayload(testSecret, testEvent("01JG8XAMPLE2222222222222222"), 1)
		require.NoError(t, err)
		assert.NotEqual(t, sig1, sig2)
	})

	t.Run("signature covers the timestamp", func(t *testing.T) {
		event := testEvent("01JG8XAMPLE1234567890123456")
		_, sig1, err := webhook.GenerateSignedPayload(testSecret, event, 1)
		require.NoError(t, err)
		_, sig2, err := webhook.GenerateSignedPayload(testSecret, event, 2)
		require.NoError(t, err)
		assert.NotEqual(t, sig1, sig2)
	})

	t.Run("different secrets produce different signatures", func(t *testing.T) {
		event := testEvent("01JG8XAMPLE1234567890123456")
		_, sig1, err := webhook.GenerateSignedPayload("73656372657431", event, 1) // "secret1"
		require.NoError(t, err)
		_, sig2, err := webhook.GenerateSignedPayload("73656372657432", event, 1) // "secret2"
		require.NoError(t, err)
		assert.NotEqual(t, sig1, sig2)
	})

	t.Run("invalid hex secret returns error", func(t *testing.T) {
		_, _, err := webhook.GenerateSignedPayload("not-valid-hex-string", testEvent("01JG8XAMPLE1234567890123456"), 1)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to decode hex secret")
	})
}

func TestEndpointAccepts(t *testing.T) {
	assert.True(t, webhook.Endpoint{}.Accepts("Mint"))
	assert.True(t, webhook.Endpoint{EventTypes: []string{webhook.EventTypeWildcard}}.Accepts("Mint"))
	assert.True(t, webhook.Endpoint{EventTypes: []string{"SendYield", "Mint"}}.Accepts("Mint"))
	assert.False(t, webhook.Endpoint{EventTypes: []string{"SendYield"}}.Accepts("Mint"))
}
