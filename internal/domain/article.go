package domain

import "time"

// Article is the aggregate: one document per article, embedding the full
// comment/reply tree and the like set. Mutated only through the article
// service; the authoring flow that creates articles lives elsewhere.
type Article struct {
	ArticleID string          `json:"id" dynamodbav:"article_id"`
	Title     string          `json:"title" dynamodbav:"title"`
	Slug      string          `json:"slug" dynamodbav:"slug"`
	Category  string          `json:"category" dynamodbav:"category"`
	Image     string          `json:"image,omitempty" dynamodbav:"image"`
	AuthorID  string          `json:"author_id" dynamodbav:"author_id"`
	Author    *Profile        `json:"author,omitempty" dynamodbav:"-"`
	Comments  []CommentThread `json:"comments" dynamodbav:"comments"`
	Likes     []string        `json:"likes" dynamodbav:"likes,stringset,omitemptyelem"`
	CreatedAt time.Time       `json:"created" dynamodbav:"created_at"`
	UpdatedAt time.Time       `json:"updated" dynamodbav:"updated_at"`
}

// CommentThread is one comment plus its replies, kept in insertion order.
type CommentThread struct {
	CommentID string    `json:"id" dynamodbav:"comment_id"`
	AuthorID  string    `json:"author_id" dynamodbav:"author_id"`
	Author    *Profile  `json:"author,omitempty" dynamodbav:"-"`
	Text      string    `json:"text" dynamodbav:"text"`
	Replies   []Reply   `json:"replies" dynamodbav:"replies"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
}

// Reply is owned exclusively by its parent thread and deleted only
// through it.
type Reply struct {
	ReplyID   string    `json:"id" dynamodbav:"reply_id"`
	AuthorID  string    `json:"author_id" dynamodbav:"author_id"`
	Author    *Profile  `json:"author,omitempty" dynamodbav:"-"`
	Text      string    `json:"text" dynamodbav:"text"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
}

// Thread returns the comment thread with the given id, or nil.
func (a *Article) Thread(commentID string) *CommentThread {
	for i := range a.Comments {
		if a.Comments[i].CommentID == commentID {
			return &a.Comments[i]
		}
	}
	return nil
}

// HasLike reports whether userID is a member of the like set.
func (a *Article) HasLike(userID string) bool {
	for _, u := range a.Likes {
		if u == userID {
			return true
		}
	}
	return false
}
