package notifications

import (
	"context"
	"errors"
	"slotbook/pkg/client"
	"slotbook/pkg/config"

	"github.com/google/uuid"
)

// WebhookDispatcher posts each request as JSON to a provider gateway. The
// gateway answers 2xx with an optional {"id": "..."} reference.
type WebhookDispatcher struct {
	client *client.HttpClient
}

func NewWebhookDispatcher(httpClient *client.HttpClient, token string) *WebhookDispatcher {
	if token != "" {
		httpClient.Headers["Authorization"] = "Bearer " + token
	}
	return &WebhookDispatcher{client: httpClient}
}

func (d *WebhookDispatcher) Send(ctx context.Context, channel config.Channel, target string, msg Message) (bool, string, error) {
	req := Request{
		ID:      uuid.NewString(),
		Channel: channel,
		Target:  target,
		Subject: msg.Subject,
		Body:    msg.Body,
	}

	resp, err := d.client.POST(ctx, "", req)
	if err != nil {
		return false, "", &ProviderSendError{Channel: channel, Target: target, Err: err}
	}
	if !resp.IsSuccess() {
		return false, "", &ProviderSendError{
			Channel: channel,
			Target:  target,
			Status:  resp.StatusCode,
			Err:     errors.New(client.GetErrorMessage(resp)),
		}
	}

	var ack struct {
		ID string `json:"id"`
	}
	if len(resp.Body) > 0 && resp.DecodeJSON(&ack) == nil && ack.ID != "" {
		return true, ack.ID, nil
	}
	return true, req.ID, nil
}

func (d *WebhookDispatcher) Close() error {
	d.client.HTTPClient.CloseIdleConnections()
	return nil
}
