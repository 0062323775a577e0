package notifier

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/opensource-finance/bankmind/internal/bus"
	"github.com/opensource-finance/bankmind/internal/domain"
)

func TestNotifier(t *testing.T) {
	eventBus := bus.NewChannelBus(100)
	defer eventBus.Close()

	n := New(eventBus, nil)
	if err := n.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer n.Stop()

	// Allow subscription to be active
	time.Sleep(20 * time.Millisecond)

	payload, _ := json.Marshal(domain.FraudAlertEvent{
		TransactionID: "TXN-9834",
		CustomerID:    "CLI-5502",
		Score:         0.973,
		FactorCount:   3,
		IssuedAtNanos: time.Now().UnixNano(),
	})

	if err := eventBus.Publish(context.Background(), domain.TopicFraudAlert, payload); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for n.Delivered() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	if got := n.Delivered(); got != 1 {
		t.Errorf("expected 1 delivered notification, got %d", got)
	}
}

func TestNotifierIgnoresOtherTopics(t *testing.T) {
	eventBus := bus.NewChannelBus(100)
	defer eventBus.Close()

	n := New(eventBus, nil)
	if err := n.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer n.Stop()

	time.Sleep(20 * time.Millisecond)

	// Decision events without a block recommendation go on the
	// decision topic; the notifier must not count them.
	eventBus.Publish(context.Background(), domain.TopicFraudDecision, []byte(`{}`))
	time.Sleep(50 * time.Millisecond)

	if got := n.Delivered(); got != 0 {
		t.Errorf("expected 0 delivered notifications, got %d", got)
	}
}

func TestNotifierStop(t *testing.T) {
	eventBus := bus.NewChannelBus(100)
	defer eventBus.Close()

	n := New(eventBus, nil)
	if err := n.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := n.Stop(); err != nil {
		t.Errorf("Stop failed: %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	payload, _ := json.Marshal(domain.FraudAlertEvent{TransactionID: "TXN-1"})
	eventBus.Publish(context.Background(), domain.TopicFraudAlert, payload)
	time.Sleep(50 * time.Millisecond)

	if got := n.Delivered(); got != 0 {
		t.Errorf("expected no deliveries after stop, got %d", got)
	}
}
