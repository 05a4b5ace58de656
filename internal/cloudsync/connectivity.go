package cloudsync

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Monitor tracks whether the host is online. The desktop shell reports its
// network signal through PUT /api/v1/sync/connectivity, which calls Set; when a
// probe URL is configured the scheduler also calls Probe periodically.
type Monitor struct {
	client *resty.Client
	url    string
	online atomic.Bool
	logger *zap.Logger
}

// NewMonitor builds a monitor that starts online.
func NewMonitor(probeURL string, logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Monitor{
		client: resty.New().SetTimeout(5 * time.Second),
		url:    probeURL,
		logger: logger,
	}
	m.online.Store(true)
	return m
}

// Online reports the last known connectivity.
func (m *Monitor) Online() bool { return m.online.Load() }

// URL returns the probe URL, empty when probing is disabled.
func (m *Monitor) URL() string { return m.url }

// Set records the connectivity signal and logs transitions.
func (m *Monitor) Set(online bool) {
	if m.online.Swap(online) == online {
		return
	}
	if online {
		m.logger.Info("connectivity restored")
	} else {
		m.logger.Warn("connectivity lost")
	}
}

// Probe checks the probe URL and updates the signal. Without a URL the current
// signal is returned unchanged.
func (m *Monitor) Probe(ctx context.Context) bool {
	if m.url == "" {
		return m.Online()
	}
	resp, err := m.client.R().SetContext(ctx).Get(m.url)
	online := err == nil && resp.StatusCode() < http.StatusInternalServerError
	if err != nil {
		m.logger.Debug("connectivity probe failed", zap.Error(err))
	}
	m.Set(online)
	return online
}
