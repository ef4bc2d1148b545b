package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// NotifyConfig configures the HTTP notification sink.
type NotifyConfig struct {
	// Endpoint receives a POST per completed download.
	Endpoint string

	// AuthToken is sent as a bearer token when set.
	AuthToken string

	// Timeout bounds each notification request.
	Timeout time.Duration
}

// NotifySink POSTs a JSON record for each completed download to an
// HTTP endpoint.
type NotifySink struct {
	cfg    NotifyConfig
	client *http.Client
}

// notifyPayload is the JSON body sent per file.
type notifyPayload struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	SHA256   string `json:"sha256,omitempty"`
}

// NewNotifySink creates a notification sink for the given endpoint.
func NewNotifySink(cfg NotifyConfig) *NotifySink {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &NotifySink{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Name identifies the sink in warnings.
func (n *NotifySink) Name() string {
	return "notify"
}

// Deliver POSTs the file record. Any non-2xx response is an error.
func (n *NotifySink) Deliver(ctx context.Context, meta FileMeta) error {
	payload, err := json.Marshal(notifyPayload{
		URL:      meta.OriginURL,
		Filename: meta.Filename,
		Size:     meta.Size,
		SHA256:   meta.SHA256,
	})
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if n.cfg.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+n.cfg.AuthToken)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification endpoint returned %d", resp.StatusCode)
	}
	return nil
}
