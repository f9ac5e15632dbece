package domain

import "time"

// EventKind identifies a domain activity that may produce a notification.
type EventKind string

const (
	KindNewArticle   EventKind = "NEW_ARTICLE"
	KindNewEvent     EventKind = "NEW_EVENT"
	KindArticleLike  EventKind = "ARTICLE_LIKE"
	KindComment      EventKind = "ARTICLE_COMMENT"
	KindCommentReply EventKind = "ARTICLE_COMMENT_REPLY"
)

// Subject carries the populated entity an event is about. Callers (the
// socket gateway here, CRUD handlers elsewhere) must fill it before
// publishing.
type Subject struct {
	ActorID       string
	ActorUsername string
	ActorAvatar   string
	Title         string
	Category      string
	Slug          string
	Image         string
	// OwnerUsername is the author of the entity acted upon (article author
	// for likes/comments, comment author for replies).
	OwnerUsername string
}

// Event is what flows over the bus from a mutation to the fanout worker.
type Event struct {
	Kind    EventKind
	Subject Subject
}

// NotificationRecord is ephemeral: constructed per event, delivered,
// discarded. A zero record means nothing to send.
type NotificationRecord struct {
	Kind      EventKind `json:"-"`
	Recipient string    `json:"-"` // empty means everyone except the actor
	Actor     string    `json:"-"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	DeepLink  string    `json:"slug"`
	Avatar    string    `json:"avatar,omitempty"`
	Image     string    `json:"image,omitempty"`
	Timestamp time.Time `json:"date"`
}

// IsZero reports whether the record carries nothing deliverable.
func (r NotificationRecord) IsZero() bool {
	return r.Title == "" && r.Body == ""
}
