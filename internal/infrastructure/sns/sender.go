package sns

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/article-live-api/internal/config"
	"github.com/article-live-api/internal/domain"
)

// Sender delivers push messages to mobile devices registered as SNS
// platform endpoints. The subscription's opaque endpoint descriptor is the
// endpoint ARN.
type Sender struct {
	client *sns.Client
}

func NewSender(cfg *config.Config) (*Sender, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.SNSRegion),
	)
	if err != nil {
		return nil, err
	}
	return &Sender{client: sns.NewFromConfig(awsCfg)}, nil
}

func (s *Sender) Send(ctx context.Context, sub *domain.PushSubscription, payload []byte) error {
	msg := string(payload)
	_, err := s.client.Publish(ctx, &sns.PublishInput{
		TargetArn: &sub.Endpoint,
		Message:   &msg,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDelivery, err)
	}
	return nil
}
