package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/lustra-app/lustra/internal/config"
	"github.com/lustra-app/lustra/internal/whatsapp"
)

type fakeInbound struct {
	got []whatsapp.InboundText
}

func (f *fakeInbound) HandleTextMessage(ctx context.Context, msg whatsapp.InboundText) {
	f.got = append(f.got, msg)
}

func newTestHandler(inboundSvc InboundService, verifyToken, appSecret string) *echo.Echo {
	cfg := config.Config{}
	cfg.WhatsApp.VerifyToken = verifyToken
	cfg.WhatsApp.AppSecret = appSecret

	e := echo.New()
	Register(e, NewHandler(inboundSvc, cfg, nil))
	return e
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

const deliveryBody = `{
	"object": "whatsapp_business_account",
	"entry": [{
		"changes": [{
			"field": "messages",
			"value": {
				"messages": [{
					"from": "5215512345678",
					"id": "wamid.1",
					"timestamp": "1700000000",
					"type": "text",
					"text": {"body": "hola"}
				}]
			}
		}]
	}]
}`

func TestVerifyHandshakeEchoesChallenge(t *testing.T) {
	e := newTestHandler(&fakeInbound{}, "secret-token", "")

	req := httptest.NewRequest(http.MethodGet, "/webhooks/whatsapp?hub.mode=subscribe&hub.verify_token=secret-token&hub.challenge=12345", nil)
	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr.Body.String() != "12345" {
		t.Fatalf("expected challenge echoed, got %q", rr.Body.String())
	}
}

func TestVerifyHandshakeRejectsBadToken(t *testing.T) {
	e := newTestHandler(&fakeInbound{}, "secret-token", "")

	req := httptest.NewRequest(http.MethodGet, "/webhooks/whatsapp?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", nil)
	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestReceiveValidSignature(t *testing.T) {
	inboundSvc := &fakeInbound{}
	e := newTestHandler(inboundSvc, "", "app-secret")

	body := []byte(deliveryBody)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/whatsapp", strings.NewReader(deliveryBody))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("X-Hub-Signature-256", sign("app-secret", body))
	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%q", rr.Code, rr.Body.String())
	}
	if len(inboundSvc.got) != 1 {
		t.Fatalf("expected one dispatched message, got %d", len(inboundSvc.got))
	}
	if inboundSvc.got[0].From != "5215512345678" || inboundSvc.got[0].Body != "hola" {
		t.Fatalf("unexpected message: %+v", inboundSvc.got[0])
	}
}

func TestReceiveInvalidSignatureRejectedWithoutProcessing(t *testing.T) {
	inboundSvc := &fakeInbound{}
	e := newTestHandler(inboundSvc, "", "app-secret")

	// Signature computed over a different body.
	req := httptest.NewRequest(http.MethodPost, "/webhooks/whatsapp", strings.NewReader(deliveryBody))
	req.Header.Set("X-Hub-Signature-256", sign("app-secret", []byte(deliveryBody+" ")))
	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if len(inboundSvc.got) != 0 {
		t.Fatal("expected no processing for invalid signature")
	}
}

func TestReceiveMissingSignatureRejected(t *testing.T) {
	inboundSvc := &fakeInbound{}
	e := newTestHandler(inboundSvc, "", "app-secret")

	req := httptest.NewRequest(http.MethodPost, "/webhooks/whatsapp", strings.NewReader(deliveryBody))
	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestReceiveBypassWithoutSecret(t *testing.T) {
	inboundSvc := &fakeInbound{}
	e := newTestHandler(inboundSvc, "", "")

	req := httptest.NewRequest(http.MethodPost, "/webhooks/whatsapp", strings.NewReader(deliveryBody))
	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if len(inboundSvc.got) != 1 {
		t.Fatalf("expected message dispatched, got %d", len(inboundSvc.got))
	}
}

func TestReceiveAcknowledgesUndecodablePayload(t *testing.T) {
	inboundSvc := &fakeInbound{}
	e := newTestHandler(inboundSvc, "", "app-secret")

	body := []byte("{broken")
	req := httptest.NewRequest(http.MethodPost, "/webhooks/whatsapp", strings.NewReader(string(body)))
	req.Header.Set("X-Hub-Signature-256", sign("app-secret", body))
	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)

	// Signature-valid deliveries are always acknowledged, whatever is
	// inside.
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if len(inboundSvc.got) != 0 {
		t.Fatal("expected no dispatch for undecodable payload")
	}
}

func TestReceiveIgnoresNonTextMessages(t *testing.T) {
	inboundSvc := &fakeInbound{}
	e := newTestHandler(inboundSvc, "", "")

	body := `{"object": "whatsapp_business_account", "entry": [{"changes": [{"field": "messages", "value": {"messages": [{"from": "1", "type": "audio"}]}}]}]}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/whatsapp", strings.NewReader(body))
	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if len(inboundSvc.got) != 0 {
		t.Fatal("expected non-text message to be ignored")
	}
}
