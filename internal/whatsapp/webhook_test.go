package whatsapp

import (
	"testing"
	"time"
)

func TestExtractTextMessages(t *testing.T) {
	raw := []byte(`{
		"object": "whatsapp_business_account",
		"entry": [{
			"id": "entry-1",
			"changes": [{
				"field": "messages",
				"value": {
					"messaging_product": "whatsapp",
					"messages": [
						{"from": "5215512345678", "id": "wamid.1", "timestamp": "1700000000", "type": "text", "text": {"body": "ya quedo?"}},
						{"from": "5215512345678", "id": "wamid.2", "timestamp": "1700000001", "type": "image"},
						{"from": "", "id": "wamid.3", "timestamp": "1700000002", "type": "text", "text": {"body": "orphan"}}
					],
					"statuses": [
						{"id": "wamid.out", "status": "delivered", "timestamp": "1700000003", "recipient_id": "5215512345678"}
					]
				}
			}, {
				"field": "account_update",
				"value": {}
			}]
		}]
	}`)

	payload, err := ParsePayload(raw)
	if err != nil {
		t.Fatalf("ParsePayload: %v", err)
	}

	msgs := ExtractTextMessages(payload)
	if len(msgs) != 1 {
		t.Fatalf("expected 1 text message, got %d", len(msgs))
	}
	got := msgs[0]
	if got.From != "5215512345678" || got.Body != "ya quedo?" || got.ExternalMessageID != "wamid.1" {
		t.Fatalf("unexpected message: %+v", got)
	}
	if !got.Timestamp.Equal(time.Unix(1700000000, 0).UTC()) {
		t.Fatalf("unexpected timestamp: %v", got.Timestamp)
	}
}

func TestExtractTextMessagesWrongObject(t *testing.T) {
	payload, err := ParsePayload([]byte(`{"object": "page", "entry": [{"changes": [{"field": "messages", "value": {"messages": [{"from": "1", "type": "text", "text": {"body": "x"}}]}}]}]}`))
	if err != nil {
		t.Fatalf("ParsePayload: %v", err)
	}
	if msgs := ExtractTextMessages(payload); msgs != nil {
		t.Fatalf("expected no messages for foreign object, got %v", msgs)
	}
}

func TestExtractTextMessagesMalformedEntries(t *testing.T) {
	// Missing nested fields must be skipped, never panic or error.
	payload, err := ParsePayload([]byte(`{"object": "whatsapp_business_account", "entry": [{}, {"changes": [{}, {"field": "messages"}]}]}`))
	if err != nil {
		t.Fatalf("ParsePayload: %v", err)
	}
	if msgs := ExtractTextMessages(payload); len(msgs) != 0 {
		t.Fatalf("expected no messages, got %v", msgs)
	}
}

func TestParsePayloadRejectsBadJSON(t *testing.T) {
	if _, err := ParsePayload([]byte("{not json")); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}
