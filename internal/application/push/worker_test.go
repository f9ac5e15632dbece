package push

import (
	"testing"
	"time"

	"github.com/article-live-api/internal/domain"
	"github.com/article-live-api/internal/pkg/bus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition never met")
}

func TestWorker_CommentEventNotifiesArticleAuthor(t *testing.T) {
	subs := &mockSubStore{}
	sub := webpushSub("bob")
	subs.On("Get", mock.Anything, "bob").Return(&sub, nil)
	sender := &recordingSender{}

	b := bus.New()
	defer b.Close()
	w := NewWorker(b.Subscribe(), NewFanout(FanoutDeps{SubscriptionRepo: subs, WebPush: sender}))
	w.Start()
	defer w.Stop()

	b.Publish(domain.Event{Kind: domain.KindComment, Subject: domain.Subject{
		ActorUsername: "alice",
		OwnerUsername: "bob",
		Title:         "T",
		Slug:          "t",
	}})

	waitFor(t, func() bool { return len(sender.recipients()) == 1 })
	assert.Equal(t, []string{"bob"}, sender.recipients())
}

func TestWorker_SelfDirectedEventIsDropped(t *testing.T) {
	subs := &mockSubStore{}
	sender := &recordingSender{}

	b := bus.New()
	defer b.Close()
	w := NewWorker(b.Subscribe(), NewFanout(FanoutDeps{SubscriptionRepo: subs, WebPush: sender}))
	w.Start()

	// Actor liked their own article: recipient == actor, nothing sent.
	b.Publish(domain.Event{Kind: domain.KindArticleLike, Subject: domain.Subject{
		ActorUsername: "alice",
		OwnerUsername: "alice",
		Title:         "T",
	}})

	time.Sleep(50 * time.Millisecond)
	w.Stop()
	assert.Empty(t, sender.recipients())
	subs.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestWorker_NewArticleFansOutToEveryoneElse(t *testing.T) {
	subs := &mockSubStore{}
	subs.On("ListEnabled", mock.Anything).Return([]domain.PushSubscription{
		webpushSub("alice"), webpushSub("bob"),
	}, nil)
	sender := &recordingSender{}

	b := bus.New()
	defer b.Close()
	w := NewWorker(b.Subscribe(), NewFanout(FanoutDeps{SubscriptionRepo: subs, WebPush: sender}))
	w.Start()
	defer w.Stop()

	b.Publish(domain.Event{Kind: domain.KindNewArticle, Subject: domain.Subject{
		ActorUsername: "alice",
		Title:         "T",
		Category:      "eng",
	}})

	waitFor(t, func() bool { return len(sender.recipients()) == 1 })
	assert.Equal(t, []string{"bob"}, sender.recipients())
}
