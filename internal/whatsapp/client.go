// Package whatsapp implements the WhatsApp Cloud API surface: the outbound
// text-message client, webhook signature verification, and the structural
// walk over inbound webhook payloads.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/fx"

	"github.com/lustra-app/lustra/internal/config"
)

// Client sends a text message to a normalized recipient and returns the
// platform-assigned message id.
type Client interface {
	SendText(ctx context.Context, to, body string) (string, error)
}

// Module wires the Cloud API client.
var Module = fx.Provide(NewClient)

// graphClient talks to the Graph API send endpoint.
type graphClient struct {
	baseURL       string
	phoneNumberID string
	accessToken   string
	http          *http.Client
}

// NewClient builds the Cloud API client. The HTTP timeout is the only
// cancellation boundary for outbound sends.
func NewClient(cfg config.Config) Client {
	return &graphClient{
		baseURL:       cfg.WhatsApp.APIBaseURL,
		phoneNumberID: cfg.WhatsApp.PhoneNumberID,
		accessToken:   cfg.WhatsApp.AccessToken,
		http: &http.Client{
			Timeout: cfg.WhatsApp.SendTimeout,
		},
	}
}

type sendRequest struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

type textBody struct {
	Body string `json:"body"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *apiError `json:"error"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

// SendText performs one synchronous call to the send endpoint. No retries;
// surfacing failure to the caller is the whole error policy here.
func (c *graphClient) SendText(ctx context.Context, to, body string) (string, error) {
	payload, err := json.Marshal(sendRequest{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             textBody{Body: body},
	})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read send response: %w", err)
	}

	var sr sendResponse
	if err := json.Unmarshal(raw, &sr); err != nil {
		if resp.StatusCode >= 400 {
			return "", fmt.Errorf("send failed with status %d", resp.StatusCode)
		}
		return "", fmt.Errorf("decode send response: %w", err)
	}

	if sr.Error != nil && sr.Error.Message != "" {
		return "", fmt.Errorf("%s", sr.Error.Message)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("send failed with status %d", resp.StatusCode)
	}
	if len(sr.Messages) == 0 || sr.Messages[0].ID == "" {
		return "", fmt.Errorf("missing message id in response body=%q", string(raw))
	}

	return sr.Messages[0].ID, nil
}
