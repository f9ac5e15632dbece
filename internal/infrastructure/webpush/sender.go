package webpush

import (
	"context"
	"fmt"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/article-live-api/internal/config"
	"github.com/article-live-api/internal/domain"
)

// Sender delivers Web Push messages. Only the VAPID keypair and contact
// subject are held here; the per-recipient authorization headers are derived
// by the library on every send from the endpoint's origin.
type Sender struct {
	subject    string
	publicKey  string
	privateKey string
}

func NewSender(cfg *config.Config) (*Sender, error) {
	if cfg.VAPIDPublicKey == "" || cfg.VAPIDPrivateKey == "" {
		return nil, fmt.Errorf("VAPID keypair not configured")
	}
	return &Sender{
		subject:    cfg.PushSubject,
		publicKey:  cfg.VAPIDPublicKey,
		privateKey: cfg.VAPIDPrivateKey,
	}, nil
}

func (s *Sender) Send(ctx context.Context, sub *domain.PushSubscription, payload []byte) error {
	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}, &webpush.Options{
		Subscriber:      s.subject,
		VAPIDPublicKey:  s.publicKey,
		VAPIDPrivateKey: s.privateKey,
		TTL:             60,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDelivery, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%w: endpoint returned %d", domain.ErrDelivery, resp.StatusCode)
	}
	return nil
}
