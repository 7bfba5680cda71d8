package whatsapp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lustra-app/lustra/internal/config"
)

func newTestClient(serverURL string) Client {
	return NewClient(config.Config{WhatsApp: config.WhatsApp{
		APIBaseURL:    serverURL,
		PhoneNumberID: "1000",
		AccessToken:   "token",
		SendTimeout:   2 * time.Second,
	}})
}

func TestSendTextReturnsMessageID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/1000/messages" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer token" {
			t.Errorf("unexpected authorization header %q", got)
		}
		w.Write([]byte(`{"messages":[{"id":"wamid.42"}]}`))
	}))
	defer srv.Close()

	id, err := newTestClient(srv.URL).SendText(context.Background(), "5215512345678", "hola")
	if err != nil {
		t.Fatalf("SendText: %v", err)
	}
	if id != "wamid.42" {
		t.Fatalf("expected wamid.42, got %q", id)
	}
}

func TestSendTextSurfacesPlatformError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"invalid access token","type":"OAuthException","code":190}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).SendText(context.Background(), "5215512345678", "hola")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "invalid access token") {
		t.Fatalf("expected platform error message, got %v", err)
	}
}

func TestSendTextReportsTruncatedBodyAsTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Declare more bytes than are written, so the client's body read
		// fails mid-stream.
		w.Header().Set("Content-Length", "512")
		w.Write([]byte(`{"messages":[{"id":"wam`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).SendText(context.Background(), "5215512345678", "hola")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "read send response") {
		t.Fatalf("expected read failure, got %v", err)
	}
}
