package webhook

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/feral-file/ff-yield-ledger/internal/adapter"
	"github.com/feral-file/ff-yield-ledger/internal/logger"
	"github.com/feral-file/ff-yield-ledger/internal/messaging"
)

// Delivery headers
const (
	HeaderSignature = "X-Webhook-Signature"
	HeaderTimestamp = "X-Webhook-Timestamp"
	HeaderEventID   = "X-Webhook-Event-ID"
	HeaderEventType = "X-Webhook-Event-Type"
)

// Publisher delivers ledger events to webhook endpoints. It satisfies
// messaging.Publisher so the dispatcher retries failed deliveries; a retry
// resends to every matching endpoint and receivers dedupe on event_id.
type Publisher struct {
	endpoints []Endpoint
	client    adapter.HTTPClient
	clock     adapter.Clock
}

// NewPublisher validates the endpoints and creates a publisher
func NewPublisher(endpoints []Endpoint, client adapter.HTTPClient, clock adapter.Clock) (*Publisher, error) {
	for i, ep := range endpoints {
		u, err := url.Parse(ep.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("endpoint %d: invalid url %q", i, ep.URL)
		}
		if ep.Secret == "" {
			return nil, fmt.Errorf("endpoint %d: secret is required", i)
		}
		if _, err := hex.DecodeString(ep.Secret); err != nil {
			return nil, fmt.Errorf("endpoint %d: secret must be hex encoded: %w", i, err)
		}
	}

	return &Publisher{
		endpoints: endpoints,
		client:    client,
		clock:     clock,
	}, nil
}

// PublishEvent delivers env to every endpoint subscribed to its type
func (p *Publisher) PublishEvent(ctx context.Context, env *messaging.Envelope) error {
	event := NewWebhookEvent(env)

	var errs []error
	for _, ep := range p.endpoints {
		if !ep.Accepts(event.EventType) {
			continue
		}

		result := p.deliver(ctx, ep, event)
		if !result.Success {
			logger.WarnCtx(ctx, "Webhook delivery failed",
				zap.String("url", ep.URL),
				zap.String("event_id", event.EventID),
				zap.Int("status_code", result.StatusCode),
				zap.String("error", result.Error),
				zap.String("body", result.Body))
			errs = append(errs, fmt.Errorf("webhook %s: %s", ep.URL, result.Error))
			continue
		}

		logger.DebugCtx(ctx, "Delivered webhook",
			zap.String("url", ep.URL),
			zap.String("event_id", event.EventID),
			zap.String("event_type", event.EventType))
	}

	return errors.Join(errs...)
}

func (p *Publisher) deliver(ctx context.Context, ep Endpoint, event WebhookEvent) DeliveryResult {
	timestamp := p.clock.Now().Unix()
	payload, signature, err := GenerateSignedPayload(ep.Secret, event, timestamp)
	if err != nil {
		return DeliveryResult{Error: err.Error()}
	}

	status, body, err := p.client.Post(ctx, ep.URL, map[string]string{
		"Content-Type":  "application/json",
		HeaderSignature: signature,
		HeaderTimestamp: strconv.FormatInt(timestamp, 10),
		HeaderEventID:   event.EventID,
		HeaderEventType: event.EventType,
	}, payload)
	if err != nil {
		return DeliveryResult{StatusCode: status, Error: err.Error()}
	}

	result := DeliveryResult{
		Success:    status >= 200 && status < 300,
		StatusCode: status,
		Body:       string(body),
	}
	if !result.Success {
		result.Error = fmt.Sprintf("unexpected status code %d", status)
	}
	return result
}

// Close implements messaging.Publisher
func (p *Publisher) Close() {}
