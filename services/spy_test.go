package services

import (
	"context"
	"sync"
	"time"

	"github.com/cppla/blogthread/models"
	"github.com/cppla/blogthread/store"
)

// spyStore records every call to the wrapped store and can run a hook before a named call.
type spyStore struct {
	inner *store.Memory

	mu    sync.Mutex
	calls []string
	hooks map[string]func()
}

func newSpyStore() *spyStore {
	return &spyStore{inner: store.NewMemory(), hooks: map[string]func(){}}
}

func (s *spyStore) record(name string) {
	s.mu.Lock()
	s.calls = append(s.calls, name)
	hook := s.hooks[name]
	delete(s.hooks, name)
	s.mu.Unlock()
	if hook != nil {
		hook()
	}
}

func (s *spyStore) on(name string, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks[name] = fn
}

func (s *spyStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *spyStore) called(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.calls {
		if c == name {
			return true
		}
	}
	return false
}

func (s *spyStore) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

func (s *spyStore) ListPosts(ctx context.Context) ([]models.Post, error) {
	s.record("ListPosts")
	return s.inner.ListPosts(ctx)
}

func (s *spyStore) FindPost(ctx context.Context, id string) (*models.Post, error) {
	s.record("FindPost")
	return s.inner.FindPost(ctx, id)
}

func (s *spyStore) InsertPost(ctx context.Context, post *models.Post) error {
	s.record("InsertPost")
	return s.inner.InsertPost(ctx, post)
}

func (s *spyStore) UpdatePost(ctx context.Context, id string, patch models.PostPatch) (*models.Post, error) {
	s.record("UpdatePost")
	return s.inner.UpdatePost(ctx, id, patch)
}

func (s *spyStore) AppendCommentRef(ctx context.Context, postID, commentID string, at time.Time) (*models.Post, error) {
	s.record("AppendCommentRef")
	return s.inner.AppendCommentRef(ctx, postID, commentID, at)
}

func (s *spyStore) PullCommentRefs(ctx context.Context, postID string, ids []string, at time.Time) (*models.Post, error) {
	s.record("PullCommentRefs")
	return s.inner.PullCommentRefs(ctx, postID, ids, at)
}

func (s *spyStore) DeletePost(ctx context.Context, id string) (bool, error) {
	s.record("DeletePost")
	return s.inner.DeletePost(ctx, id)
}

func (s *spyStore) FindComment(ctx context.Context, id string) (*models.Comment, error) {
	s.record("FindComment")
	return s.inner.FindComment(ctx, id)
}

func (s *spyStore) FindComments(ctx context.Context, ids []string) ([]models.Comment, error) {
	s.record("FindComments")
	return s.inner.FindComments(ctx, ids)
}

func (s *spyStore) FindCommentsByParent(ctx context.Context, parentIDs []string) ([]models.Comment, error) {
	s.record("FindCommentsByParent")
	return s.inner.FindCommentsByParent(ctx, parentIDs)
}

func (s *spyStore) InsertComment(ctx context.Context, comment *models.Comment) error {
	s.record("InsertComment")
	return s.inner.InsertComment(ctx, comment)
}

func (s *spyStore) UpdateComment(ctx context.Context, id string, patch models.CommentPatch) (*models.Comment, error) {
	s.record("UpdateComment")
	return s.inner.UpdateComment(ctx, id, patch)
}

func (s *spyStore) AppendReplyRef(ctx context.Context, commentID, replyID string, at time.Time) (*models.Comment, error) {
	s.record("AppendReplyRef")
	return s.inner.AppendReplyRef(ctx, commentID, replyID, at)
}

func (s *spyStore) PullReplyRefs(ctx context.Context, commentID string, ids []string, at time.Time) (*models.Comment, error) {
	s.record("PullReplyRefs")
	return s.inner.PullReplyRefs(ctx, commentID, ids, at)
}

func (s *spyStore) DeleteComment(ctx context.Context, id string) (bool, error) {
	s.record("DeleteComment")
	return s.inner.DeleteComment(ctx, id)
}

func (s *spyStore) DeleteComments(ctx context.Context, ids []string) (int64, error) {
	s.record("DeleteComments")
	return s.inner.DeleteComments(ctx, ids)
}

func (s *spyStore) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	s.record("FindUserByUsername")
	return s.inner.FindUserByUsername(ctx, username)
}

func (s *spyStore) InsertUser(ctx context.Context, user *models.User) error {
	s.record("InsertUser")
	return s.inner.InsertUser(ctx, user)
}

var _ store.Store = (*spyStore)(nil)
