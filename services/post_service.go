package services

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/cppla/blogthread/models"
	"github.com/cppla/blogthread/store"
)

// PostService is the post repository. Deleting a post cascades through the comment engine.
type PostService struct {
	store    store.PostStore
	comments *CommentService
	log      *zap.Logger
	clock    Clock
}

// NewPostService builds the repository. comments performs the cascade on delete.
func NewPostService(st store.PostStore, comments *CommentService, log *zap.Logger) *PostService {
	if log == nil {
		log = zap.NewNop()
	}
	return &PostService{store: st, comments: comments, log: log, clock: systemClock}
}

// DeletionReport is the outcome of a post delete.
type DeletionReport struct {
	PostID       string `json:"post_id"`
	DeletedCount int64  `json:"deleted_count"`
}

// List returns every post, newest first. No visibility filtering happens here.
func (s *PostService) List(ctx context.Context) ([]models.Post, error) {
	posts, err := s.store.ListPosts(ctx)
	if err != nil {
		return nil, storeFailure("list posts", err)
	}
	return posts, nil
}

// Get returns a post. Hidden posts are reported missing to non-authors.
func (s *PostService) Get(ctx context.Context, level Level, postID string) (*models.Post, error) {
	if err := checkPostID(postID); err != nil {
		return nil, err
	}
	post, err := s.store.FindPost(ctx, postID)
	if err != nil {
		return nil, lookupErr(err, func() *Error { return postNotFound(postID) }, "load post")
	}
	if !post.Visible && !level.IsAuthor() {
		return nil, postNotFound(postID)
	}
	return post, nil
}

// Create stores a new post. Author only.
func (s *PostService) Create(ctx context.Context, level Level, in PostInput) (*models.Post, error) {
	if !level.IsAuthor() {
		return nil, unauthorized()
	}
	in.normalize()
	if err := checkFields("Unable to create new post", &in); err != nil {
		return nil, err
	}
	visible := true
	if in.Visible != nil {
		v, err := ParseVisible(in.Visible)
		if err != nil {
			return nil, err
		}
		visible = v
	}

	id, err := NewID()
	if err != nil {
		return nil, &Error{Kind: ErrStoreUnavailable, Message: "Unable to allocate post id", Err: err}
	}
	now := s.clock()
	post := &models.Post{
		ID:              id,
		Title:           in.Title,
		Body:            in.Body,
		CommentRefs:     []string{},
		DatePosted:      now,
		DateLastUpdated: now,
		Visible:         visible,
	}
	if err := s.store.InsertPost(ctx, post); err != nil {
		return nil, storeFailure("save post", err)
	}
	return post, nil
}

// Update applies the present fields of in. Author only.
func (s *PostService) Update(ctx context.Context, level Level, postID string, in PostUpdate) (*models.Post, error) {
	if !level.IsAuthor() {
		return nil, unauthorized()
	}
	if err := checkPostID(postID); err != nil {
		return nil, err
	}
	in.normalize()
	if err := checkFields("Unable to update post", &in); err != nil {
		return nil, err
	}
	patch := models.PostPatch{Title: in.Title, Body: in.Body, UpdatedAt: s.clock()}
	if in.Visible != nil {
		v, err := ParseVisible(in.Visible)
		if err != nil {
			return nil, err
		}
		patch.Visible = &v
	}

	post, err := s.store.UpdatePost(ctx, postID, patch)
	if err != nil {
		return nil, lookupErr(err, func() *Error { return postNotFound(postID) }, "update post")
	}
	return post, nil
}

// Delete removes the post's whole comment forest, then the post. When the post disappears
// between the lookup and the final delete, the report is returned together with
// ErrDeletedConcurrently because its comments may already be gone.
func (s *PostService) Delete(ctx context.Context, level Level, postID string) (*DeletionReport, error) {
	if !level.IsAuthor() {
		return nil, unauthorized()
	}
	if err := checkPostID(postID); err != nil {
		return nil, err
	}
	post, err := s.store.FindPost(ctx, postID)
	if err != nil {
		return nil, lookupErr(err, func() *Error { return postNotFound(postID) }, "load post")
	}

	n, err := s.comments.ForestDelete(ctx, postID, post.CommentRefs)
	if err != nil {
		return nil, err
	}
	report := &DeletionReport{PostID: postID, DeletedCount: n}

	ok, err := s.store.DeletePost(ctx, postID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, storeFailure("delete post", err)
	}
	if !ok {
		s.log.Warn("post deleted concurrently", zap.String("post_id", postID), zap.Int64("comments_deleted", n))
		return report, newError(ErrDeletedConcurrently,
			"Post at: %s was deleted by another request; %d comments were removed.", postID, n)
	}
	return report, nil
}
