package push

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/article-live-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockSubStore struct{ mock.Mock }

func (m *mockSubStore) Get(ctx context.Context, username string) (*domain.PushSubscription, error) {
	args := m.Called(ctx, username)
	if s, _ := args.Get(0).(*domain.PushSubscription); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockSubStore) ListEnabled(ctx context.Context) ([]domain.PushSubscription, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.PushSubscription), args.Error(1)
}

type mockUserDirectory struct{ mock.Mock }

func (m *mockUserDirectory) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

// recordingSender counts deliveries and can fail for chosen endpoints.
type recordingSender struct {
	mu       sync.Mutex
	sent     []string
	failFor  map[string]bool
	blockFor time.Duration
}

func (s *recordingSender) Send(_ context.Context, sub *domain.PushSubscription, _ []byte) error {
	if s.blockFor > 0 {
		time.Sleep(s.blockFor)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failFor[sub.Username] {
		return domain.ErrDelivery
	}
	s.sent = append(s.sent, sub.Username)
	return nil
}

func (s *recordingSender) recipients() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent...)
}

func webpushSub(username string) domain.PushSubscription {
	return domain.PushSubscription{
		Username: username,
		Channel:  domain.ChannelWebPush,
		Endpoint: "https://push.example.com/" + username,
		Enable:   true,
	}
}

func record() domain.NotificationRecord {
	return domain.NotificationRecord{
		Kind:  domain.KindComment,
		Actor: "alice",
		Title: "New comment",
		Body:  "alice commented",
	}
}

// --- NotifyUser ---

func TestNotifyUser_NoSubscription_SilentNoop(t *testing.T) {
	subs := &mockSubStore{}
	subs.On("Get", mock.Anything, "alice").Return(nil, domain.ErrNotFound)
	sender := &recordingSender{}
	f := NewFanout(FanoutDeps{SubscriptionRepo: subs, WebPush: sender})

	err := f.NotifyUser(context.Background(), "alice", record())
	require.NoError(t, err)
	assert.Empty(t, sender.recipients(), "transport must not be called")
}

func TestNotifyUser_DeliversOnce(t *testing.T) {
	subs := &mockSubStore{}
	sub := webpushSub("bob")
	subs.On("Get", mock.Anything, "bob").Return(&sub, nil)
	sender := &recordingSender{}
	f := NewFanout(FanoutDeps{SubscriptionRepo: subs, WebPush: sender})

	require.NoError(t, f.NotifyUser(context.Background(), "bob", record()))
	assert.Equal(t, []string{"bob"}, sender.recipients())
}

func TestNotifyUser_DeliveryFailure_Swallowed(t *testing.T) {
	subs := &mockSubStore{}
	sub := webpushSub("bob")
	subs.On("Get", mock.Anything, "bob").Return(&sub, nil)
	sender := &recordingSender{failFor: map[string]bool{"bob": true}}
	f := NewFanout(FanoutDeps{SubscriptionRepo: subs, WebPush: sender})

	assert.NoError(t, f.NotifyUser(context.Background(), "bob", record()))
}

func TestNotifyUser_ZeroRecord_NothingToSend(t *testing.T) {
	subs := &mockSubStore{}
	sender := &recordingSender{}
	f := NewFanout(FanoutDeps{SubscriptionRepo: subs, WebPush: sender})

	require.NoError(t, f.NotifyUser(context.Background(), "bob", domain.NotificationRecord{}))
	subs.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestNotifyUser_ActiveAccount_Delivered(t *testing.T) {
	users := &mockUserDirectory{}
	users.On("GetByUsername", mock.Anything, "bob").Return(&domain.User{Username: "bob", Enable: 1}, nil)
	subs := &mockSubStore{}
	sub := webpushSub("bob")
	subs.On("Get", mock.Anything, "bob").Return(&sub, nil)
	sender := &recordingSender{}
	f := NewFanout(FanoutDeps{SubscriptionRepo: subs, Users: users, WebPush: sender})

	require.NoError(t, f.NotifyUser(context.Background(), "bob", record()))
	assert.Equal(t, []string{"bob"}, sender.recipients())
	users.AssertExpectations(t)
}

func TestNotifyUser_DeactivatedAccount_SilentNoop(t *testing.T) {
	users := &mockUserDirectory{}
	users.On("GetByUsername", mock.Anything, "bob").Return(&domain.User{Username: "bob", Enable: 0}, nil)
	subs := &mockSubStore{}
	sender := &recordingSender{}
	f := NewFanout(FanoutDeps{SubscriptionRepo: subs, Users: users, WebPush: sender})

	require.NoError(t, f.NotifyUser(context.Background(), "bob", record()))
	assert.Empty(t, sender.recipients())
	subs.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestNotifyUser_UnknownAccount_SilentNoop(t *testing.T) {
	users := &mockUserDirectory{}
	users.On("GetByUsername", mock.Anything, "ghost").Return(nil, domain.ErrNotFound)
	subs := &mockSubStore{}
	sender := &recordingSender{}
	f := NewFanout(FanoutDeps{SubscriptionRepo: subs, Users: users, WebPush: sender})

	require.NoError(t, f.NotifyUser(context.Background(), "ghost", record()))
	assert.Empty(t, sender.recipients())
	subs.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

// --- NotifyAll ---

func TestNotifyAll_ExcludesActor(t *testing.T) {
	subs := &mockSubStore{}
	subs.On("ListEnabled", mock.Anything).Return([]domain.PushSubscription{
		webpushSub("alice"), webpushSub("bob"), webpushSub("carol"),
	}, nil)
	sender := &recordingSender{}
	f := NewFanout(FanoutDeps{SubscriptionRepo: subs, WebPush: sender})

	require.NoError(t, f.NotifyAll(context.Background(), record()))
	got := sender.recipients()
	assert.ElementsMatch(t, []string{"bob", "carol"}, got)
	assert.NotContains(t, got, "alice", "actors are never notified of their own action")
}

func TestNotifyAll_OneFailureDoesNotStopOthers(t *testing.T) {
	subs := &mockSubStore{}
	subs.On("ListEnabled", mock.Anything).Return([]domain.PushSubscription{
		webpushSub("u1"), webpushSub("u2"), webpushSub("u3"), webpushSub("u4"), webpushSub("u5"),
	}, nil)
	sender := &recordingSender{failFor: map[string]bool{"u3": true}}
	f := NewFanout(FanoutDeps{SubscriptionRepo: subs, WebPush: sender})

	require.NoError(t, f.NotifyAll(context.Background(), record()))
	assert.ElementsMatch(t, []string{"u1", "u2", "u4", "u5"}, sender.recipients())
}

func TestNotifyAll_DeliveriesRunConcurrently(t *testing.T) {
	subs := &mockSubStore{}
	var list []domain.PushSubscription
	for _, u := range []string{"u1", "u2", "u3", "u4", "u5"} {
		list = append(list, webpushSub(u))
	}
	subs.On("ListEnabled", mock.Anything).Return(list, nil)
	sender := &recordingSender{blockFor: 50 * time.Millisecond}
	f := NewFanout(FanoutDeps{SubscriptionRepo: subs, WebPush: sender})

	start := time.Now()
	require.NoError(t, f.NotifyAll(context.Background(), record()))
	elapsed := time.Since(start)

	assert.Len(t, sender.recipients(), 5)
	// Serial execution would need 250ms.
	assert.Less(t, elapsed, 200*time.Millisecond, "deliveries should overlap")
}

func TestNotifyAll_ChannelSelectsTransport(t *testing.T) {
	subs := &mockSubStore{}
	mobile := webpushSub("dora")
	mobile.Channel = domain.ChannelSNS
	mobile.Endpoint = "arn:aws:sns:us-east-1:123:endpoint/GCM/app/abc"
	subs.On("ListEnabled", mock.Anything).Return([]domain.PushSubscription{
		webpushSub("bob"), mobile,
	}, nil)

	web := &recordingSender{}
	sns := &recordingSender{}
	f := NewFanout(FanoutDeps{SubscriptionRepo: subs, WebPush: web, SNS: sns})

	require.NoError(t, f.NotifyAll(context.Background(), record()))
	assert.Equal(t, []string{"bob"}, web.recipients())
	assert.Equal(t, []string{"dora"}, sns.recipients())
}

// --- store errors still propagate ---

func TestNotifyAll_StoreUnavailable_Propagates(t *testing.T) {
	subs := &mockSubStore{}
	subs.On("ListEnabled", mock.Anything).Return([]domain.PushSubscription(nil), errors.New("dynamo down"))
	f := NewFanout(FanoutDeps{SubscriptionRepo: subs, WebPush: &recordingSender{}})

	assert.Error(t, f.NotifyAll(context.Background(), record()))
}
