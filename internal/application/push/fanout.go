// Package push turns domain events into best-effort push deliveries.
// Fanout is fire-and-forget: no retries, no queueing, no dead-letter;
// a deliberate property of this domain, not an omission.
package push

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/article-live-api/internal/domain"
)

type subscriptionStore interface {
	Get(ctx context.Context, username string) (*domain.PushSubscription, error)
	ListEnabled(ctx context.Context) ([]domain.PushSubscription, error)
}

type userDirectory interface {
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

// Sender delivers one payload to one endpoint. Implementations derive any
// per-recipient authentication at send time.
type Sender interface {
	Send(ctx context.Context, sub *domain.PushSubscription, payload []byte) error
}

// Fanout delivers notification records to subscribers' registered endpoints,
// picking the transport by subscription channel.
type Fanout struct {
	subs    subscriptionStore
	users   userDirectory
	senders map[string]Sender
}

type FanoutDeps struct {
	SubscriptionRepo subscriptionStore
	// Users gates targeted deliveries on the recipient account still being
	// active. Optional; nil skips the check.
	Users   userDirectory
	WebPush Sender
	SNS     Sender
}

func NewFanout(deps FanoutDeps) *Fanout {
	senders := map[string]Sender{}
	if deps.WebPush != nil {
		senders[domain.ChannelWebPush] = deps.WebPush
	}
	if deps.SNS != nil {
		senders[domain.ChannelSNS] = deps.SNS
	}
	return &Fanout{subs: deps.SubscriptionRepo, users: deps.Users, senders: senders}
}

// NotifyUser attempts one delivery to username's registered endpoint.
// A missing subscription, or a recipient account that no longer exists or
// is deactivated, is a no-op, not an error. A transport failure is logged
// and swallowed.
func (f *Fanout) NotifyUser(ctx context.Context, username string, rec domain.NotificationRecord) error {
	if rec.IsZero() {
		return nil
	}
	if f.users != nil {
		u, err := f.users.GetByUsername(ctx, username)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil
			}
			return err
		}
		if !u.Enabled() {
			return nil
		}
	}
	sub, err := f.subs.Get(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	f.deliver(ctx, sub, rec)
	return nil
}

// NotifyAll delivers to every enabled subscription except the actor's,
// each independently and concurrently: one slow or failed delivery never
// blocks or aborts the others.
func (f *Fanout) NotifyAll(ctx context.Context, rec domain.NotificationRecord) error {
	if rec.IsZero() {
		return nil
	}
	subs, err := f.subs.ListEnabled(ctx)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	for i := range subs {
		sub := subs[i]
		if sub.Username == rec.Actor {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.deliver(ctx, &sub, rec)
		}()
	}
	wg.Wait()
	return nil
}

func (f *Fanout) deliver(ctx context.Context, sub *domain.PushSubscription, rec domain.NotificationRecord) {
	sender, ok := f.senders[sub.Channel]
	if !ok {
		slog.Warn("no sender for subscription channel", "channel", sub.Channel, "user", sub.Username)
		return
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		slog.Error("marshal notification payload", "err", err)
		return
	}
	if err := sender.Send(ctx, sub, payload); err != nil {
		slog.Warn("push delivery failed", "user", sub.Username, "kind", rec.Kind, "err", err)
	}
}
