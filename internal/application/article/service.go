// Package article implements the mutation engine for the article aggregate:
// comments, replies and likes. Every operation is an optimistic
// read-modify-write against the document store; appends use targeted
// list pushes so concurrent appends never clobber sibling fields.
package article

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/article-live-api/internal/domain"
	"github.com/article-live-api/internal/pkg/id"
)

type Service interface {
	Get(ctx context.Context, articleID string) (*domain.Article, error)
	AddComment(ctx context.Context, articleID, authorID, text string) (*domain.Article, error)
	DeleteComment(ctx context.Context, articleID, requesterID, commentID string) (*domain.Article, error)
	AddReply(ctx context.Context, articleID, commentID, authorID, text string) (*domain.Article, error)
	DeleteReply(ctx context.Context, articleID, commentID, replyID string) (*domain.Article, error)
	ToggleLike(ctx context.Context, articleID, userID string) (*domain.Article, error)
}

type articleStore interface {
	Get(ctx context.Context, articleID string) (*domain.Article, error)
	AppendComment(ctx context.Context, articleID string, t domain.CommentThread) error
	AppendReply(ctx context.Context, articleID string, idx int, commentID string, reply domain.Reply) error
	SetComments(ctx context.Context, articleID string, comments []domain.CommentThread) error
	AddLike(ctx context.Context, articleID, userID string) error
	RemoveLike(ctx context.Context, articleID, userID string) error
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

type service struct {
	repo  articleStore
	users userStore
}

type ServiceDeps struct {
	ArticleRepo articleStore
	UserRepo    userStore
}

func NewService(deps ServiceDeps) Service {
	return &service{repo: deps.ArticleRepo, users: deps.UserRepo}
}

func (s *service) Get(ctx context.Context, articleID string) (*domain.Article, error) {
	a, err := s.repo.Get(ctx, articleID)
	if err != nil {
		return nil, err
	}
	return s.hydrate(ctx, a), nil
}

func (s *service) AddComment(ctx context.Context, articleID, authorID, text string) (*domain.Article, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("comment text is required: %w", domain.ErrBadRequest)
	}
	thread := domain.CommentThread{
		CommentID: id.New(),
		AuthorID:  authorID,
		Text:      text,
		Replies:   []domain.Reply{},
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.AppendComment(ctx, articleID, thread); err != nil {
		return nil, err
	}
	return s.Get(ctx, articleID)
}

func (s *service) DeleteComment(ctx context.Context, articleID, requesterID, commentID string) (*domain.Article, error) {
	a, err := s.repo.Get(ctx, articleID)
	if err != nil {
		return nil, err
	}
	thread := a.Thread(commentID)
	if thread == nil {
		return nil, fmt.Errorf("comment %s: %w", commentID, domain.ErrNotFound)
	}
	if thread.AuthorID != requesterID && !s.isAdmin(ctx, requesterID) {
		return nil, fmt.Errorf("cannot delete another user's comment: %w", domain.ErrUnauthorized)
	}

	// Remove by identity match, never by index: a concurrent append may
	// have reordered the list since the read.
	kept := make([]domain.CommentThread, 0, len(a.Comments))
	for _, t := range a.Comments {
		if t.CommentID != commentID {
			kept = append(kept, t)
		}
	}
	if err := s.repo.SetComments(ctx, articleID, kept); err != nil {
		return nil, err
	}
	return s.Get(ctx, articleID)
}

func (s *service) AddReply(ctx context.Context, articleID, commentID, authorID, text string) (*domain.Article, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("reply text is required: %w", domain.ErrBadRequest)
	}
	a, err := s.repo.Get(ctx, articleID)
	if err != nil {
		return nil, err
	}
	idx := -1
	for i := range a.Comments {
		if a.Comments[i].CommentID == commentID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("comment %s: %w", commentID, domain.ErrNotFound)
	}
	reply := domain.Reply{
		ReplyID:   id.New(),
		AuthorID:  authorID,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	// The store re-checks the thread identity at the located index, so a
	// concurrent reorder fails the write instead of hitting the wrong thread.
	if err := s.repo.AppendReply(ctx, articleID, idx, commentID, reply); err != nil {
		return nil, err
	}
	return s.Get(ctx, articleID)
}

func (s *service) DeleteReply(ctx context.Context, articleID, commentID, replyID string) (*domain.Article, error) {
	a, err := s.repo.Get(ctx, articleID)
	if err != nil {
		return nil, err
	}
	thread := a.Thread(commentID)
	if thread == nil {
		return nil, fmt.Errorf("comment %s: %w", commentID, domain.ErrNotFound)
	}
	found := false
	kept := make([]domain.Reply, 0, len(thread.Replies))
	for _, rep := range thread.Replies {
		if rep.ReplyID == replyID {
			found = true
			continue
		}
		kept = append(kept, rep)
	}
	if !found {
		return nil, fmt.Errorf("reply %s: %w", replyID, domain.ErrNotFound)
	}
	thread.Replies = kept
	if err := s.repo.SetComments(ctx, articleID, a.Comments); err != nil {
		return nil, err
	}
	return s.Get(ctx, articleID)
}

func (s *service) ToggleLike(ctx context.Context, articleID, userID string) (*domain.Article, error) {
	a, err := s.repo.Get(ctx, articleID)
	if err != nil {
		return nil, err
	}
	// Membership flip. The returned aggregate, not the call, is
	// authoritative: a duplicated client event silently cancels itself.
	if a.HasLike(userID) {
		err = s.repo.RemoveLike(ctx, articleID, userID)
	} else {
		err = s.repo.AddLike(ctx, articleID, userID)
	}
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, articleID)
}

// hydrate resolves author identities on every thread and reply. Resolution
// is best-effort: an author missing from the users table leaves a nil
// profile rather than failing the whole read.
func (s *service) hydrate(ctx context.Context, a *domain.Article) *domain.Article {
	cache := map[string]*domain.Profile{}
	resolve := func(userID string) *domain.Profile {
		if p, ok := cache[userID]; ok {
			return p
		}
		u, err := s.users.Get(ctx, userID)
		if err != nil {
			cache[userID] = nil
			return nil
		}
		p := u.Profile()
		cache[userID] = &p
		return &p
	}
	a.Author = resolve(a.AuthorID)
	for i := range a.Comments {
		a.Comments[i].Author = resolve(a.Comments[i].AuthorID)
		for j := range a.Comments[i].Replies {
			a.Comments[i].Replies[j].Author = resolve(a.Comments[i].Replies[j].AuthorID)
		}
	}
	return a
}

func (s *service) isAdmin(ctx context.Context, userID string) bool {
	u, err := s.users.Get(ctx, userID)
	return err == nil && u.Role == domain.RoleAdmin
}
