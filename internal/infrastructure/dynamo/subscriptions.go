package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/article-live-api/internal/domain"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// SubscriptionRepo provides typed DynamoDB operations for the
// push_subscriptions table. One record per username; endpoint rotation is a
// plain re-registration that rewrites every field except created_at.
type SubscriptionRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewSubscriptionRepo(client *dynamodb.Client, tableName string) *SubscriptionRepo {
	return &SubscriptionRepo{client: client, tableName: tableName}
}

// Upsert writes the subscription, keeping the original created_at when the
// record already exists so endpoint rotation does not reset the registration
// time.
func (r *SubscriptionRepo) Upsert(ctx context.Context, s *domain.PushSubscription) error {
	expr, names, values := upsertSubscriptionExpr(s)
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey(fieldUsername, s.Username),
		UpdateExpression:          aws.String(expr),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	return err
}

func upsertSubscriptionExpr(s *domain.PushSubscription) (string, map[string]string, map[string]types.AttributeValue) {
	expr := "SET #ch = :ch, #ep = :ep, #p = :p, #a = :a, #en = :en, " +
		"#ua = :ua, #ca = if_not_exists(#ca, :ca)"
	names := map[string]string{
		"#ch": "channel",
		"#ep": "endpoint",
		"#p":  "p256dh",
		"#a":  "auth",
		"#en": fieldEnable,
		"#ua": fieldUpdatedAt,
		"#ca": "created_at",
	}
	values := map[string]types.AttributeValue{
		":ch": &types.AttributeValueMemberS{Value: s.Channel},
		":ep": &types.AttributeValueMemberS{Value: s.Endpoint},
		":p":  &types.AttributeValueMemberS{Value: s.P256dh},
		":a":  &types.AttributeValueMemberS{Value: s.Auth},
		":en": &types.AttributeValueMemberBOOL{Value: s.Enable},
		":ua": &types.AttributeValueMemberS{Value: s.UpdatedAt.Format(time.RFC3339Nano)},
		":ca": &types.AttributeValueMemberS{Value: s.CreatedAt.Format(time.RFC3339Nano)},
	}
	return expr, names, values
}

func (r *SubscriptionRepo) Get(ctx context.Context, username string) (*domain.PushSubscription, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(fieldUsername, username),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("subscription for %s: %w", username, domain.ErrNotFound)
	}
	var s domain.PushSubscription
	if err := attributevalue.UnmarshalMap(out.Item, &s); err != nil {
		return nil, err
	}
	if !s.Enable {
		return nil, fmt.Errorf("subscription for %s: %w", username, domain.ErrNotFound)
	}
	return &s, nil
}

// ListEnabled scans for all active subscriptions. The table holds one small
// item per user, so a scan is acceptable at this scale.
func (r *SubscriptionRepo) ListEnabled(ctx context.Context) ([]domain.PushSubscription, error) {
	var subs []domain.PushSubscription
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:        aws.String(r.tableName),
			FilterExpression: aws.String("#en = :t"),
			ExpressionAttributeNames: map[string]string{
				"#en": fieldEnable,
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":t": &types.AttributeValueMemberBOOL{Value: true},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, err
		}
		var page []domain.PushSubscription
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		subs = append(subs, page...)
		if out.LastEvaluatedKey == nil {
			return subs, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

func (r *SubscriptionRepo) Disable(ctx context.Context, username string) error {
	ue, err := buildUpdateExpr(map[string]interface{}{
		fieldEnable:    false,
		fieldUpdatedAt: now(),
	})
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey(fieldUsername, username),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}
