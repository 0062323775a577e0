// Package notifier consumes fraud alert events from the EventBus and
// drives the block-and-notify path for high risk decisions.
package notifier

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opensource-finance/bankmind/internal/domain"
)

// Notifier subscribes to the fraud alert topic and emits one
// structured notification per blocking decision. Delivery is a
// structured log record; downstream systems tail the alert stream.
type Notifier struct {
	bus    domain.EventBus
	logger *slog.Logger

	subscriptions []domain.Subscription
	delivered     atomic.Int64
	mu            sync.Mutex
	ctx           context.Context
	cancel        context.CancelFunc
}

// New creates a notifier bound to the event bus.
func New(bus domain.EventBus, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Notifier{
		bus:    bus,
		logger: logger.With(slog.String("component", "notifier")),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start subscribes to the fraud alert topic.
func (n *Notifier) Start() error {
	sub, err := n.bus.Subscribe(n.ctx, domain.TopicFraudAlert, n.handleAlert)
	if err != nil {
		return err
	}

	n.mu.Lock()
	n.subscriptions = append(n.subscriptions, sub)
	n.mu.Unlock()

	n.logger.Info("notifier started", slog.String("topic", domain.TopicFraudAlert))
	return nil
}

// handleAlert processes one alert event.
func (n *Notifier) handleAlert(ctx context.Context, msg *domain.Message) error {
	var event domain.FraudAlertEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		n.logger.Error("failed to parse alert event",
			slog.String("message_id", msg.ID),
			slog.Any("error", err),
		)
		return err
	}

	latency := time.Duration(0)
	if event.IssuedAtNanos > 0 {
		latency = time.Since(time.Unix(0, event.IssuedAtNanos))
	}

	n.delivered.Add(1)

	n.logger.Warn("transaction blocked, notification dispatched",
		slog.String("transaction_id", event.TransactionID),
		slog.String("customer_id", event.CustomerID),
		slog.Float64("score", event.Score),
		slog.Int("factor_count", event.FactorCount),
		slog.Int64("latency_ms", latency.Milliseconds()),
	)

	return nil
}

// Delivered returns how many notifications this process dispatched.
func (n *Notifier) Delivered() int64 {
	return n.delivered.Load()
}

// Stop gracefully stops the notifier.
func (n *Notifier) Stop() error {
	n.cancel()

	n.mu.Lock()
	defer n.mu.Unlock()

	for _, sub := range n.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			n.logger.Error("failed to unsubscribe",
				slog.String("topic", sub.Topic()),
				slog.Any("error", err),
			)
		}
	}
	n.subscriptions = nil

	n.logger.Info("notifier stopped")
	return nil
}
