package domain

import "time"

// Push delivery channels. The channel selects the transport the fanout uses
// for a given subscription.
const (
	ChannelWebPush = "webpush"
	ChannelSNS     = "sns"
)

// PushSubscription is one registered push endpoint per username.
// Upserted by the subscription endpoint; read-only for the fanout.
type PushSubscription struct {
	Username  string    `json:"username" dynamodbav:"username"`
	Channel   string    `json:"channel" dynamodbav:"channel"`
	Endpoint  string    `json:"endpoint" dynamodbav:"endpoint"`
	P256dh    string    `json:"p256dh,omitempty" dynamodbav:"p256dh"`
	Auth      string    `json:"auth,omitempty" dynamodbav:"auth"`
	Enable    bool      `json:"enable" dynamodbav:"enable"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt time.Time `json:"updated" dynamodbav:"updated_at"`
}

// UpsertSubscriptionRequest is the body of POST /v1/push-subscriptions.
// The keys are required only for the webpush channel.
type UpsertSubscriptionRequest struct {
	Channel  string `json:"channel" validate:"omitempty,oneof=webpush sns"`
	Endpoint string `json:"endpoint" validate:"required"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}
