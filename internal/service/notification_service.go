package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/storefront/internal/config"
	"github.com/spec-kit/storefront/internal/events"
)

const webhookTimeout = 5 * time.Second

// NotificationService records catalog mutations in the audit log and, when a
// webhook URL is configured, posts each event to it.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
	http       *http.Client
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
		http:       &http.Client{Timeout: webhookTimeout},
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for _, eventType := range events.ProductEvents() {
		n.dispatcher.Subscribe(eventType, n.handleProductEvent)
	}
}

func (n *NotificationService) handleProductEvent(ctx context.Context, event events.Event) error {
	n.logger.Info("catalog mutation",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("product_id", event.ProductID),
		zap.Time("at", event.Timestamp))

	// Delivery is best effort; a failed hook must not read as a failed purge.
	if err := n.sendWebhook(ctx, event); err != nil {
		n.logger.Warn("catalog webhook delivery failed",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
	}
	return nil
}

// sendWebhook posts event as JSON. ctx is the publish context and bounds the
// call together with the client timeout.
func (n *NotificationService) sendWebhook(ctx context.Context, event events.Event) error {
	url := strings.TrimSpace(n.cfg.WebhookURL)
	if url == "" {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Type", string(event.Type))

	resp, err := n.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook answered %d", resp.StatusCode)
	}
	n.logger.Debug("catalog webhook delivered",
		zap.String("event_id", event.ID),
		zap.Int("status", resp.StatusCode))
	return nil
}
