package ws

import (
	"encoding/json"

	"github.com/article-live-api/internal/domain"
)

// Client-issued events.
const (
	EventJoinArticle   = "join_article"
	EventNewComment    = "new_comment"
	EventDeleteComment = "delete_comment"
	EventNewReply      = "new_reply"
	EventDeleteReply   = "delete_reply"
	EventToggleLike    = "toggle_like"
)

// Server-issued events.
const (
	EventAck            = "ack"
	EventError          = "error"
	EventCommentAdded   = "comment_added"
	EventCommentDeleted = "comment_deleted"
	EventReplyAdded     = "reply_added"
	EventReplyDeleted   = "reply_deleted"
	EventLikeUpdated    = "like_updated"
)

// Frame is the wire envelope in both directions. Mutation frames carry a
// ref the server echoes back in the ack, replacing the per-call callback
// of callback-style transports with a correlated response frame.
type Frame struct {
	Event   string          `json:"event"`
	Ref     *int64          `json:"ref,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// JoinPayload is the payload of join_article. Fire-and-forget, idempotent.
type JoinPayload struct {
	ArticleID string `json:"articleId" validate:"required"`
}

// MutationPayload is the single-object argument every mutation event
// carries. Which fields are required depends on the event.
type MutationPayload struct {
	ArticleID   string `json:"articleId" validate:"required"`
	UserID      string `json:"userId"`
	CommentID   string `json:"commentId"`
	ReplyID     string `json:"replyId"`
	CommentText string `json:"commentText"`
	ReplyText   string `json:"replyText"`
}

// Ack is the correlated response to a mutation frame.
type Ack struct {
	Event   string          `json:"event"`
	Ref     *int64          `json:"ref,omitempty"`
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Article *domain.Article `json:"article,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Broadcast is a room-wide event carrying the mutated aggregate.
type Broadcast struct {
	Event   string          `json:"event"`
	Article *domain.Article `json:"article"`
}

// ErrorEvent is a connection-scoped failure notice, sent to the initiating
// connection only and independent of the ack.
type ErrorEvent struct {
	Event   string `json:"event"`
	Message string `json:"message"`
}
