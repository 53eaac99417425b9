package webhook_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-yield-ledger/internal/messaging"
	"github.com/feral-file/ff-yield-ledger/internal/mocks"
	"github.com/feral-file/ff-yield-ledger/internal/webhook"
)

var deliveredAt = time.Date(2024, 1, 15, 10, 0, 5, 0, time.UTC)

func testEnvelope() *messaging.Envelope {
	return &messaging.Envelope{
		ID:        "01JG8XAMPLE1234567890123456",
		Sequence:  7,
		Type:      "SendYield",
		Caller:    "0x00000000000000000000000000000000000000A1",
		Timestamp: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
		Payload:   json.RawMessage(`{"to":"0x00000000000000000000000000000000000000b1"}`),
	}
}

func setupPublisher(t *testing.T, endpoints ...webhook.Endpoint) (*webhook.Publisher, *mocks.MockHTTPClient) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockHTTPClient(ctrl)
	clock := mocks.NewMockClock(ctrl)
	clock.EXPECT().Now().Return(deliveredAt).AnyTimes()

	p, err := webhook.NewPublisher(endpoints, client, clock)
	require.NoError(t, err)
	return p, client
}

func TestNewPublisher_InvalidEndpoints(t *testing.T) {
	tests := []struct {
		name     string
		endpoint webhook.Endpoint
	}{
		{"missing url", webhook.Endpoint{Secret: testSecret}},
		{"relative url", webhook.Endpoint{URL: "/hooks", Secret: testSecret}},
		{"unsupported scheme", webhook.Endpoint{URL: "ftp://example.com/hooks", Secret: testSecret}},
		{"missing secret", webhook.Endpoint{URL: "https://example.com/hooks"}},
		{"secret not hex", webhook.Endpoint{URL: "https://example.com/hooks", Secret: "plain"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := webhook.NewPublisher([]webhook.Endpoint{tt.endpoint}, nil, nil)
			assert.Error(t, err)
		})
	}
}

func TestPublisher_PublishEvent(t *testing.T) {
	t.Run("signed delivery", func(t *testing.T) {
		p, client := setupPublisher(t, webhook.Endpoint{URL: "https://example.com/hooks", Secret: testSecret})

		client.EXPECT().
			Post(gomock.Any(), "https://example.com/hooks", gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, headers map[string]string, body []byte) (int, []byte, error) {
				assert.Equal(t, "application/json", headers["Content-Type"])
				assert.Equal(t, "1705312805", headers[webhook.HeaderTimestamp])
				assert.Equal(t, "01JG8XAMPLE1234567890123456", headers[webhook.HeaderEventID])
				assert.Equal(t, "SendYield", headers[webhook.HeaderEventType])
				assert.Equal(t, sign(t, testSecret, 1705312805, "01JG8XAMPLE1234567890123456", body),
					headers[webhook.HeaderSignature])

				var event webhook.WebhookEvent
				require.NoError(t, json.Unmarshal(body, &event))
				assert.Equal(t, uint64(7), event.Sequence)
				return 200, nil, nil
			})

		assert.NoError(t, p.PublishEvent(context.Background(), testEnvelope()))
	})

	t.Run("filters by event type", func(t *testing.T) {
		p, client := setupPublisher(t,
			webhook.Endpoint{URL: "https://mint.example.com", Secret: testSecret, EventTypes: []string{"Mint"}},
			webhook.Endpoint{URL: "https://all.example.com", Secret: testSecret, EventTypes: []string{"*"}},
		)

		client.EXPECT().Post(gomock.Any(), "https://all.example.com", gomock.Any(), gomock.Any()).Return(204, nil, nil)

		assert.NoError(t, p.PublishEvent(context.Background(), testEnvelope()))
	})

	t.Run("non-2xx fails the event after trying every endpoint", func(t *testing.T) {
		p, client := setupPublisher(t,
			webhook.Endpoint{URL: "https://down.example.com", Secret: testSecret},
			webhook.Endpoint{URL: "https://up.example.com", Secret: testSecret},
		)

		client.EXPECT().Post(gomock.Any(), "https://down.example.com", gomock.Any(), gomock.Any()).
			Return(503, []byte("maintenance"), nil)
		client.EXPECT().Post(gomock.Any(), "https://up.example.com", gomock.Any(), gomock.Any()).
			Return(200, nil, nil)

		err := p.PublishEvent(context.Background(), testEnvelope())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "https://down.example.com")
		assert.Contains(t, err.Error(), "503")
	})

	t.Run("transport error", func(t *testing.T) {
		p, client := setupPublisher(t, webhook.Endpoint{URL: "https://example.com/hooks", Secret: testSecret})

		client.EXPECT().Post(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(0, nil, errors.New("connection refused"))

		err := p.PublishEvent(context.Background(), testEnvelope())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("no endpoints", func(t *testing.T) {
		p, _ := setupPublisher(t)
		assert.NoError(t, p.PublishEvent(context.Background(), testEnvelope()))
	})
}
