package cloud

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client pushes entity snapshots to the cloud sync endpoint.
type Client interface {
	PushSnapshot(ctx context.Context, req PushRequest) (*PushResponse, error)
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	httpClient *resty.Client
	configured bool
}

// NewClient builds a client for the endpoint. The access key is sent as a bearer token.
func NewClient(endpointURL, accessKey string, timeout time.Duration) *APIClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	restyClient := resty.New()
	restyClient.
		SetBaseURL(strings.TrimSuffix(endpointURL, "/")).
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", accessKey)).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)

	return &APIClient{
		httpClient: restyClient,
		configured: endpointURL != "" && accessKey != "",
	}
}

// Configured reports whether both endpoint and access key were provided.
func (c *APIClient) Configured() bool { return c.configured }

// PushRequest carries the full state of each changed entity type.
type PushRequest struct {
	DeviceID    string                     `json:"deviceId"`
	GeneratedAt time.Time                  `json:"generatedAt"`
	Entities    map[string]json.RawMessage `json:"entities"`
}

// PushResponse is the endpoint acknowledgement.
type PushResponse struct {
	Accepted   []string  `json:"accepted"`
	ServerTime time.Time `json:"serverTime"`
}

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (c *APIClient) PushSnapshot(ctx context.Context, req PushRequest) (*PushResponse, error) {
	result := new(PushResponse)
	apiErr := new(apiError)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(result).
		SetError(apiErr).
		Post("/sync")
	if err != nil {
		return nil, fmt.Errorf("push snapshot: %w", err)
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		message := apiErr.Message
		if message == "" {
			message = apiErr.Error
		}
		if message == "" {
			message = http.StatusText(resp.StatusCode())
		}
		return nil, fmt.Errorf("sync api error: code=%d, message=%s", resp.StatusCode(), message)
	}

	return result, nil
}
