package whatsapp

import (
	"encoding/json"
	"strconv"
	"time"
)

// expectedObject is the top-level object literal on business-account
// webhook payloads.
const expectedObject = "whatsapp_business_account"

// WebhookPayload mirrors the nested Cloud API delivery shape. Every field is
// optional on the wire; the walk below skips whatever is missing instead of
// erroring, so a malformed entry can never break the always-acknowledge
// contract.
type WebhookPayload struct {
	Object string         `json:"object"`
	Entry  []WebhookEntry `json:"entry"`
}

type WebhookEntry struct {
	ID      string          `json:"id"`
	Changes []WebhookChange `json:"changes"`
}

type WebhookChange struct {
	Field string       `json:"field"`
	Value WebhookValue `json:"value"`
}

type WebhookValue struct {
	MessagingProduct string           `json:"messaging_product"`
	Messages         []WebhookMessage `json:"messages"`
	Statuses         []WebhookStatus  `json:"statuses"`
}

type WebhookMessage struct {
	From      string       `json:"from"`
	ID        string       `json:"id"`
	Timestamp string       `json:"timestamp"`
	Type      string       `json:"type"`
	Text      *webhookText `json:"text"`
}

type webhookText struct {
	Body string `json:"body"`
}

// WebhookStatus is a delivery/read receipt for an outgoing message. Observed
// but not acted upon; kept as an extension point for receipt reconciliation.
type WebhookStatus struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	RecipientID string `json:"recipient_id"`
}

// InboundText is one customer text message extracted from a delivery.
type InboundText struct {
	From              string
	Body              string
	ExternalMessageID string
	Timestamp         time.Time
}

// ParsePayload decodes a raw delivery body. Unknown or missing fields are
// tolerated; only malformed JSON is an error.
func ParsePayload(raw []byte) (*WebhookPayload, error) {
	var payload WebhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// ExtractTextMessages walks a payload and collects inbound text messages.
// Non-text message types, non-message changes, and entries from other
// webhook objects are ignored.
func ExtractTextMessages(payload *WebhookPayload) []InboundText {
	if payload == nil || payload.Object != expectedObject {
		return nil
	}

	var out []InboundText
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			if change.Field != "messages" {
				continue
			}
			for _, msg := range change.Value.Messages {
				if msg.Type != "text" || msg.Text == nil || msg.From == "" {
					continue
				}
				out = append(out, InboundText{
					From:              msg.From,
					Body:              msg.Text.Body,
					ExternalMessageID: msg.ID,
					Timestamp:         parseEpoch(msg.Timestamp),
				})
			}
		}
	}
	return out
}

// parseEpoch converts the platform's unix-seconds string; a bad value falls
// back to the receive time.
func parseEpoch(s string) time.Time {
	secs, err := strconv.ParseInt(s, 10, 64)
	if err != nil || secs <= 0 {
		return time.Now().UTC()
	}
	return time.Unix(secs, 0).UTC()
}
