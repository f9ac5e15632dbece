package dynamo

import (
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/article-live-api/internal/domain"
)

func TestUpsertSubscriptionExpr_PreservesCreatedAt(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	updated := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	expr, names, values := upsertSubscriptionExpr(&domain.PushSubscription{
		Username:  "alice",
		Channel:   domain.ChannelWebPush,
		Endpoint:  "https://push.example/new",
		P256dh:    "pk",
		Auth:      "ak",
		Enable:    true,
		CreatedAt: created,
		UpdatedAt: updated,
	})

	// Re-registration must overwrite updated_at but never created_at.
	assert.Contains(t, expr, "#ca = if_not_exists(#ca, :ca)")
	assert.Contains(t, expr, "#ua = :ua")
	assert.NotContains(t, expr, "#ca = :ca,")
	assert.Equal(t, "created_at", names["#ca"])
	assert.Equal(t, "updated_at", names["#ua"])

	ca, ok := values[":ca"].(*types.AttributeValueMemberS)
	require.True(t, ok)
	assert.Equal(t, created.Format(time.RFC3339Nano), ca.Value)
	ua, ok := values[":ua"].(*types.AttributeValueMemberS)
	require.True(t, ok)
	assert.Equal(t, updated.Format(time.RFC3339Nano), ua.Value)
}

func TestUpsertSubscriptionExpr_WritesEveryMutableField(t *testing.T) {
	expr, names, values := upsertSubscriptionExpr(&domain.PushSubscription{
		Username: "bob",
		Channel:  domain.ChannelSNS,
		Endpoint: "arn:aws:sns:eu-west-1:1:endpoint/x",
		Enable:   true,
	})

	for _, field := range []string{"channel", "endpoint", "p256dh", "auth", "enable"} {
		found := false
		for _, n := range names {
			if n == field {
				found = true
			}
		}
		assert.True(t, found, "field %s missing from update", field)
	}
	en, ok := values[":en"].(*types.AttributeValueMemberBOOL)
	require.True(t, ok)
	assert.True(t, en.Value)
	assert.Contains(t, expr, "SET ")
}
