package cloudsync

import (
	"context"

	"github.com/mamadbah2/cableshop/pkg/clients/cloud"
)

// HTTPRemote pushes batches to the sync endpoint over HTTPS.
type HTTPRemote struct {
	client *cloud.APIClient
}

// NewHTTPRemote wraps the API client.
func NewHTTPRemote(client *cloud.APIClient) *HTTPRemote {
	return &HTTPRemote{client: client}
}

// Name identifies the remote in logs.
func (r *HTTPRemote) Name() string { return "http" }

// Configured reports whether endpoint URL and access key are set.
func (r *HTTPRemote) Configured() bool {
	return r.client != nil && r.client.Configured()
}

// Push posts the batch.
func (r *HTTPRemote) Push(ctx context.Context, batch Batch) error {
	_, err := r.client.PushSnapshot(ctx, cloud.PushRequest{
		DeviceID:    batch.DeviceID,
		GeneratedAt: batch.GeneratedAt,
		Entities:    batch.Entities,
	})
	return err
}
