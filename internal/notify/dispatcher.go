package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/minerva-brain/backend/internal/models"
	"github.com/minerva-brain/backend/internal/store"
)

// Sender delivers one notification event on a specific channel.
type Sender interface {
	Send(ctx context.Context, evt *models.NotificationEvent) error
}

// Dispatcher drains the notification outbox: it claims pending events,
// hands them to the channel's sender and acks or fails them. External
// consumers can still claim events over the HTTP outbox endpoints; the
// row locks keep the two from double-delivering.
type Dispatcher struct {
	store       store.Store
	senders     map[string]Sender
	consumerID  string
	batchSize   int
	maxAttempts int
	lockTimeout time.Duration
}

func NewDispatcher(st store.Store, maxAttempts int, lockTimeout time.Duration) *Dispatcher {
	return &Dispatcher{
		store:       st,
		senders:     make(map[string]Sender),
		consumerID:  "dispatcher-" + uuid.New().String()[:8],
		batchSize:   20,
		maxAttempts: maxAttempts,
		lockTimeout: lockTimeout,
	}
}

// Register wires a sender to a channel name. Channels without a sender
// are left in the outbox for external consumers.
func (d *Dispatcher) Register(channel string, s Sender) {
	d.senders[channel] = s
}

// Channels returns the channel names with a registered sender.
func (d *Dispatcher) Channels() []string {
	out := make([]string, 0, len(d.senders))
	for ch := range d.senders {
		out = append(out, ch)
	}
	return out
}

// Tick claims one batch and attempts delivery. Failures are recorded on
// the event and retried on a later tick until the attempt limit.
func (d *Dispatcher) Tick(ctx context.Context) error {
	if len(d.senders) == 0 {
		return nil
	}

	// Claim only the channels this process can deliver; everything else
	// stays untouched for external consumers of the outbox endpoints.
	claimed, err := d.store.ClaimPendingNotifications(d.batchSize, d.consumerID, d.lockTimeout, d.maxAttempts, d.Channels())
	if err != nil {
		return fmt.Errorf("claiming notifications: %w", err)
	}

	for _, evt := range claimed {
		sender := d.senders[evt.Channel]
		if err := sender.Send(ctx, evt); err != nil {
			fmt.Printf("[Notify] Delivery of event %d (%s) failed: %v\n", evt.ID, evt.Channel, err)
			if _, err := d.store.FailNotification(evt.ID, err.Error()); err != nil {
				return fmt.Errorf("recording failure for event %d: %w", evt.ID, err)
			}
			continue
		}

		if _, err := d.store.AckNotification(evt.ID); err != nil {
			return fmt.Errorf("acking event %d: %w", evt.ID, err)
		}
	}
	return nil
}

// Run drains the outbox until the context is cancelled.
func (d *Dispatcher) Run(ctx context.Context, interval time.Duration) {
	fmt.Printf("[Notify] Dispatcher %s started (every %s, channels %v)\n", d.consumerID, interval, d.Channels())
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := d.Tick(ctx); err != nil {
			fmt.Printf("[Notify] Dispatch pass failed: %v\n", err)
		}
		select {
		case <-ctx.Done():
			fmt.Println("[Notify] Dispatcher stopped")
			return
		case <-ticker.C:
		}
	}
}
