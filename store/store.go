// Package store is the document store adapter. Posts, comments and users are independent,
// individually addressable records; the only multi-id mutations offered are the atomic
// "append one id" and "remove an id set" operations on a reference list.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/cppla/blogthread/models"
)

var (
	// ErrNotFound is returned instead of raising when the addressed document does not exist.
	ErrNotFound = errors.New("store: document not found")
	// ErrDuplicate is returned when a unique key is already taken.
	ErrDuplicate = errors.New("store: duplicate key")
)

// PostStore covers the Post collection.
type PostStore interface {
	ListPosts(ctx context.Context) ([]models.Post, error)
	FindPost(ctx context.Context, id string) (*models.Post, error)
	InsertPost(ctx context.Context, post *models.Post) error
	UpdatePost(ctx context.Context, id string, patch models.PostPatch) (*models.Post, error)
	// AppendCommentRef atomically appends one comment id to the post and refreshes
	// date_last_updated. ErrNotFound means the post vanished.
	AppendCommentRef(ctx context.Context, postID, commentID string, at time.Time) (*models.Post, error)
	PullCommentRefs(ctx context.Context, postID string, commentIDs []string, at time.Time) (*models.Post, error)
	DeletePost(ctx context.Context, id string) (bool, error)
}

// CommentStore covers the Comment collection.
type CommentStore interface {
	FindComment(ctx context.Context, id string) (*models.Comment, error)
	// FindComments returns the comments that exist among ids, in the order of ids.
	FindComments(ctx context.Context, ids []string) ([]models.Comment, error)
	// FindCommentsByParent returns the comments whose parent_comment is one of parentIDs.
	FindCommentsByParent(ctx context.Context, parentIDs []string) ([]models.Comment, error)
	InsertComment(ctx context.Context, comment *models.Comment) error
	UpdateComment(ctx context.Context, id string, patch models.CommentPatch) (*models.Comment, error)
	AppendReplyRef(ctx context.Context, commentID, replyID string, at time.Time) (*models.Comment, error)
	PullReplyRefs(ctx context.Context, commentID string, replyIDs []string, at time.Time) (*models.Comment, error)
	DeleteComment(ctx context.Context, id string) (bool, error)
	// DeleteComments removes every listed comment that still exists and reports how many went.
	DeleteComments(ctx context.Context, ids []string) (int64, error)
}

// UserStore covers the accounts checked by the identity gate.
type UserStore interface {
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	InsertUser(ctx context.Context, user *models.User) error
}

// Store is the full adapter contract.
type Store interface {
	PostStore
	CommentStore
	UserStore
}

// withTimeout bounds a single store call; the core never retries, so each call carries
// its own deadline.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func removeIDs(list []string, ids []string) []string {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := make([]string, 0, len(list))
	for _, id := range list {
		if _, ok := drop[id]; !ok {
			kept = append(kept, id)
		}
	}
	return kept
}
