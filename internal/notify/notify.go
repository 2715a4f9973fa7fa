// Package notify carries best-effort side-channel notifications about
// purchases and deposits. Nothing here affects the outcome of a purchase or
// deposit; failures are logged and dropped.
package notify

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/ucmarket/backend/internal/config"
)

const (
	EventPurchase = "purchase"
	EventDeposit  = "deposit"
)

type Event struct {
	Type      string    `json:"type"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email,omitempty"`
	Amount    int64     `json:"amount"`
	Reference string    `json:"reference,omitempty"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"created_at"`
}

// Text renders the event for a chat message.
func (e Event) Text() string {
	switch e.Type {
	case EventPurchase:
		return fmt.Sprintf("New purchase\nUser: %s\nAmount: %d UC\n%s", e.UserID, e.Amount, e.Summary)
	case EventDeposit:
		return fmt.Sprintf("New deposit\nUser: %s\nAmount: %d UC\nReference: %s", e.UserID, e.Amount, e.Reference)
	default:
		return e.Summary
	}
}

type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

type Nop struct{}

func (Nop) Notify(context.Context, Event) error { return nil }

// New picks the notifier for the API process: the Redis queue when Redis is
// reachable, Telegram directly when only the bot is configured, else Nop.
func New(rdb *redis.Client, cfg config.TelegramConfig) Notifier {
	if rdb != nil {
		log.Println("[NOTIFY] Using redis notification queue")
		return NewRedisQueue(rdb, DefaultQueue)
	}
	if cfg.Enabled() {
		log.Println("[NOTIFY] Using direct telegram notifier")
		return NewTelegram(cfg)
	}
	log.Println("[NOTIFY] No notification channel configured")
	return Nop{}
}

// Dispatch sends event in the background, bounded by timeout. The returned
// channel receives the result once; callers may ignore it.
func Dispatch(n Notifier, event Event, timeout time.Duration) <-chan error {
	done := make(chan error, 1)
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		err := n.Notify(ctx, event)
		if err != nil {
			log.Printf("[NOTIFY] Failed to send %s notification for user %s: %v", event.Type, event.UserID, err)
		}
		done <- err
	}()

	return done
}
