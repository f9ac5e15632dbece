package push

import (
	"fmt"
	"time"

	"github.com/article-live-api/internal/domain"
)

// Generate maps a domain event onto a channel-agnostic notification record.
// The kind set is closed; an unknown kind yields the zero record and never
// an error; callers must treat a zero record as nothing to send.
func Generate(kind domain.EventKind, subj domain.Subject) domain.NotificationRecord {
	rec := domain.NotificationRecord{
		Kind:      kind,
		Actor:     subj.ActorUsername,
		DeepLink:  subj.Slug,
		Avatar:    subj.ActorAvatar,
		Image:     subj.Image,
		Timestamp: time.Now().UTC(),
	}

	switch kind {
	case domain.KindNewArticle:
		rec.Title = fmt.Sprintf("New article in %s", subj.Category)
		rec.Body = fmt.Sprintf("%s published \"%s\"", subj.ActorUsername, subj.Title)
	case domain.KindNewEvent:
		rec.Title = "New event"
		rec.Body = fmt.Sprintf("%s scheduled \"%s\"", subj.ActorUsername, subj.Title)
	case domain.KindArticleLike:
		rec.Recipient = subj.OwnerUsername
		rec.Title = "Your article was liked"
		rec.Body = fmt.Sprintf("%s liked \"%s\"", subj.ActorUsername, subj.Title)
	case domain.KindComment:
		rec.Recipient = subj.OwnerUsername
		rec.Title = "New comment"
		rec.Body = fmt.Sprintf("%s commented on \"%s\"", subj.ActorUsername, subj.Title)
	case domain.KindCommentReply:
		rec.Recipient = subj.OwnerUsername
		rec.Title = "New reply"
		rec.Body = fmt.Sprintf("%s replied to your comment on \"%s\"", subj.ActorUsername, subj.Title)
	default:
		return domain.NotificationRecord{}
	}
	return rec
}
