package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cppla/blogthread/models"
)

// Memory is an in-process Store. Every document is copied on the way in and out so callers
// never share slices with the store.
type Memory struct {
	mu       sync.RWMutex
	posts    map[string]*models.Post
	comments map[string]*models.Comment
	users    map[string]*models.User // username -> user
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		posts:    make(map[string]*models.Post),
		comments: make(map[string]*models.Comment),
		users:    make(map[string]*models.User),
	}
}

// === Posts ===

func (s *Memory) ListPosts(ctx context.Context) ([]models.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	posts := make([]models.Post, 0, len(s.posts))
	for _, p := range s.posts {
		posts = append(posts, clonePost(p))
	}
	sort.Slice(posts, func(i, j int) bool {
		if !posts[i].DatePosted.Equal(posts[j].DatePosted) {
			return posts[i].DatePosted.After(posts[j].DatePosted)
		}
		return posts[i].ID > posts[j].ID
	})
	return posts, nil
}

func (s *Memory) FindPost(ctx context.Context, id string) (*models.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := clonePost(p)
	return &out, nil
}

func (s *Memory) InsertPost(ctx context.Context, post *models.Post) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[post.ID]; ok {
		return ErrDuplicate
	}
	p := clonePost(post)
	s.posts[p.ID] = &p
	return nil
}

func (s *Memory) UpdatePost(ctx context.Context, id string, patch models.PostPatch) (*models.Post, error) {
	return s.mutatePost(ctx, id, func(p *models.Post) {
		if patch.Title != nil {
			p.Title = *patch.Title
		}
		if patch.Body != nil {
			p.Body = *patch.Body
		}
		if patch.Visible != nil {
			p.Visible = *patch.Visible
		}
		p.DateLastUpdated = patch.UpdatedAt
	})
}

func (s *Memory) AppendCommentRef(ctx context.Context, postID, commentID string, at time.Time) (*models.Post, error) {
	return s.mutatePost(ctx, postID, func(p *models.Post) {
		p.CommentRefs = append(p.CommentRefs, commentID)
		p.DateLastUpdated = at
	})
}

func (s *Memory) PullCommentRefs(ctx context.Context, postID string, commentIDs []string, at time.Time) (*models.Post, error) {
	return s.mutatePost(ctx, postID, func(p *models.Post) {
		p.CommentRefs = removeIDs(p.CommentRefs, commentIDs)
		p.DateLastUpdated = at
	})
}

func (s *Memory) DeletePost(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[id]; !ok {
		return false, nil
	}
	delete(s.posts, id)
	return true, nil
}

func (s *Memory) mutatePost(ctx context.Context, id string, fn func(*models.Post)) (*models.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	fn(p)
	out := clonePost(p)
	return &out, nil
}

// === Comments ===

func (s *Memory) FindComment(ctx context.Context, id string) (*models.Comment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.comments[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneComment(c)
	return &out, nil
}

func (s *Memory) FindComments(ctx context.Context, ids []string) ([]models.Comment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Comment, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.comments[id]; ok {
			out = append(out, cloneComment(c))
		}
	}
	return out, nil
}

func (s *Memory) FindCommentsByParent(ctx context.Context, parentIDs []string) ([]models.Comment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	parents := make(map[string]struct{}, len(parentIDs))
	for _, id := range parentIDs {
		parents[id] = struct{}{}
	}
	out := []models.Comment{}
	for _, c := range s.comments {
		if _, ok := parents[c.ParentComment]; ok && c.ParentComment != "" {
			out = append(out, cloneComment(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DatePosted.Equal(out[j].DatePosted) {
			return out[i].DatePosted.Before(out[j].DatePosted)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Memory) InsertComment(ctx context.Context, comment *models.Comment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.comments[comment.ID]; ok {
		return ErrDuplicate
	}
	c := cloneComment(comment)
	s.comments[c.ID] = &c
	return nil
}

func (s *Memory) UpdateComment(ctx context.Context, id string, patch models.CommentPatch) (*models.Comment, error) {
	return s.mutateComment(ctx, id, func(c *models.Comment) {
		if patch.AuthorFirstName != nil {
			c.AuthorFirstName = *patch.AuthorFirstName
		}
		if patch.AuthorLastName != nil {
			c.AuthorLastName = *patch.AuthorLastName
		}
		if patch.Text != nil {
			c.Text = *patch.Text
		}
		if patch.Deleted != nil {
			c.Deleted = *patch.Deleted
		}
		c.DateLastUpdated = patch.UpdatedAt
	})
}

func (s *Memory) AppendReplyRef(ctx context.Context, commentID, replyID string, at time.Time) (*models.Comment, error) {
	return s.mutateComment(ctx, commentID, func(c *models.Comment) {
		c.ReplyRefs = append(c.ReplyRefs, replyID)
		c.DateLastUpdated = at
	})
}

func (s *Memory) PullReplyRefs(ctx context.Context, commentID string, replyIDs []string, at time.Time) (*models.Comment, error) {
	return s.mutateComment(ctx, commentID, func(c *models.Comment) {
		c.ReplyRefs = removeIDs(c.ReplyRefs, replyIDs)
		c.DateLastUpdated = at
	})
}

func (s *Memory) DeleteComment(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.comments[id]; !ok {
		return false, nil
	}
	delete(s.comments, id)
	return true, nil
}

func (s *Memory) DeleteComments(ctx context.Context, ids []string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, id := range ids {
		if _, ok := s.comments[id]; ok {
			delete(s.comments, id)
			n++
		}
	}
	return n, nil
}

func (s *Memory) mutateComment(ctx context.Context, id string, fn func(*models.Comment)) (*models.Comment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[id]
	if !ok {
		return nil, ErrNotFound
	}
	fn(c)
	out := cloneComment(c)
	return &out, nil
}

// === Users ===

func (s *Memory) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[username]
	if !ok {
		return nil, ErrNotFound
	}
	out := *u
	return &out, nil
}

func (s *Memory) InsertUser(ctx context.Context, user *models.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.Username]; ok {
		return ErrDuplicate
	}
	u := *user
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	s.users[u.Username] = &u
	return nil
}

func clonePost(p *models.Post) models.Post {
	out := *p
	out.CommentRefs = append([]string{}, p.CommentRefs...)
	return out
}

func cloneComment(c *models.Comment) models.Comment {
	out := *c
	out.ReplyRefs = append([]string{}, c.ReplyRefs...)
	return out
}
