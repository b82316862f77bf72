package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dbpilot/dbpilot/internal/logger"
)

// WebhookNotifier delivers tenant notifications to a configured webhook
// endpoint. Delivery is best-effort by contract: callers must never fail a
// job because a notification could not be sent.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier creates a notifier posting to the given URL. An empty
// URL disables delivery.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// SendClusterReady notifies a tenant that their cluster is reachable
func (n *WebhookNotifier) SendClusterReady(ctx context.Context, email, clusterName, connectionURI, projectName string) error {
	if n.url == "" {
		logger.Debugf("Notification webhook not configured, skipping cluster-ready notification for %s", clusterName)
		return nil
	}

	payload, err := json.Marshal(map[string]string{
		"kind":           "cluster_ready",
		"email":          email,
		"cluster_name":   clusterName,
		"connection_uri": connectionURI,
		"project_name":   projectName,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal notification payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver notification: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notification endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
