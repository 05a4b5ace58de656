package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mamadbah2/cableshop/internal/config"
)

// maxBodyLength is the Cloud API limit for a text message body.
const maxBodyLength = 4096

// ErrNotConfigured is returned when the client lacks credentials.
var ErrNotConfigured = errors.New("whatsapp client is not configured")

// Client sends the shop's alert texts through the WhatsApp Cloud API.
type Client interface {
	SendTextMessage(ctx context.Context, req SendTextMessageRequest) (*SendTextMessageResponse, error)
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	httpClient    *resty.Client
	phoneNumberID string
	configured    bool
}

// NewClient builds a client sending from the configured business number.
func NewClient(cfg config.WhatsAppConfig) *APIClient {
	base := strings.TrimSuffix(cfg.BaseURL, "/")

	restyClient := resty.New().
		SetBaseURL(fmt.Sprintf("%s/%s", base, cfg.APIVersion)).
		SetAuthToken(cfg.AccessToken).
		SetHeader("Content-Type", "application/json").
		SetTimeout(15 * time.Second)

	return &APIClient{
		httpClient:    restyClient,
		phoneNumberID: cfg.PhoneNumberID,
		configured:    cfg.AccessToken != "" && cfg.PhoneNumberID != "",
	}
}

// Configured reports whether the client has a token and a sender number.
func (c *APIClient) Configured() bool {
	return c.configured
}

// SendTextMessageRequest is one plain-text message to a phone number.
type SendTextMessageRequest struct {
	To   string
	Body string
}

// SendTextMessageResponse carries the ids Meta assigned to the sent message.
type SendTextMessageResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// MessageID returns the id of the first accepted message.
func (r *SendTextMessageResponse) MessageID() string {
	if r == nil || len(r.Messages) == 0 {
		return ""
	}
	return r.Messages[0].ID
}

type textMessage struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

type textBody struct {
	Body string `json:"body"`
}

// APIError is a rejection from the Cloud API.
type APIError struct {
	Status  int    `json:"-"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("whatsapp api error: status=%d code=%d message=%s", e.Status, e.Code, e.Message)
}

// TokenExpired reports whether the access token needs to be renewed.
func (e *APIError) TokenExpired() bool {
	return e.Code == 190 || e.Status == http.StatusUnauthorized
}

type apiErrorEnvelope struct {
	Error APIError `json:"error"`
}

func (c *APIClient) SendTextMessage(ctx context.Context, req SendTextMessageRequest) (*SendTextMessageResponse, error) {
	if !c.configured {
		return nil, ErrNotConfigured
	}

	result := new(SendTextMessageResponse)
	envelope := new(apiErrorEnvelope)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(textMessage{
			MessagingProduct: "whatsapp",
			To:               req.To,
			Type:             "text",
			Text:             textBody{Body: req.Body},
		}).
		SetResult(result).
		SetError(envelope).
		Post(fmt.Sprintf("%s/messages", c.phoneNumberID))
	if err != nil {
		return nil, fmt.Errorf("send whatsapp alert: %w", err)
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		apiErr := envelope.Error
		apiErr.Status = resp.StatusCode()
		return nil, &apiErr
	}

	return result, nil
}

// AlertSender delivers shop alerts to the owner's number.
type AlertSender struct {
	client    Client
	recipient string
}

// NewAlertSender binds client to the shop owner's number.
func NewAlertSender(client Client, recipient string) *AlertSender {
	return &AlertSender{client: client, recipient: recipient}
}

// Notify sends message to the recipient. Messages longer than one WhatsApp
// text are split on line breaks and sent in order.
func (a *AlertSender) Notify(ctx context.Context, message string) error {
	if a.recipient == "" {
		return errors.New("whatsapp alert recipient is empty")
	}
	parts := splitMessage(message, maxBodyLength)
	for i, part := range parts {
		if _, err := a.client.SendTextMessage(ctx, SendTextMessageRequest{To: a.recipient, Body: part}); err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.TokenExpired() {
				return fmt.Errorf("whatsapp access token expired, renew WHATSAPP_TOKEN: %w", err)
			}
			return fmt.Errorf("alert part %d/%d: %w", i+1, len(parts), err)
		}
	}
	return nil
}

// splitMessage cuts message into chunks of at most limit bytes, preferring
// line boundaries. A single line longer than limit is cut mid-line.
func splitMessage(message string, limit int) []string {
	if len(message) <= limit {
		return []string{message}
	}
	var (
		parts   []string
		current strings.Builder
	)
	flush := func() {
		if current.Len() > 0 {
			parts = append(parts, current.String())
			current.Reset()
		}
	}
	for _, line := range strings.Split(message, "\n") {
		for len(line) > limit {
			flush()
			parts = append(parts, line[:limit])
			line = line[limit:]
		}
		if current.Len() > 0 && current.Len()+1+len(line) > limit {
			flush()
		}
		if current.Len() > 0 {
			current.WriteByte('\n')
		}
		current.WriteString(line)
	}
	flush()
	return parts
}
