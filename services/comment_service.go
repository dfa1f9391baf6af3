package services

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cppla/blogthread/models"
	"github.com/cppla/blogthread/store"
	"github.com/cppla/blogthread/utils"
)

// CommentService is the comment tree engine. It is the only writer of parent links and
// reply lists, and it never holds a lock across store calls.
type CommentService struct {
	store store.Store
	log   *zap.Logger
	clock Clock
}

// NewCommentService builds the engine over st. A nil logger disables logging.
func NewCommentService(st store.Store, log *zap.Logger) *CommentService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CommentService{store: st, log: log, clock: systemClock}
}

// List returns the post's top-level comments as readers see them.
func (s *CommentService) List(ctx context.Context, level Level, postID string) ([]models.Comment, error) {
	if err := checkPostID(postID); err != nil {
		return nil, err
	}
	post, err := s.visiblePost(ctx, level, postID)
	if err != nil {
		return nil, err
	}
	comments, err := s.store.FindComments(ctx, post.CommentRefs)
	if err != nil {
		return nil, storeFailure("load comments", err)
	}
	out := make([]models.Comment, 0, len(comments))
	for _, c := range comments {
		out = append(out, c.Redacted())
	}
	return out, nil
}

// Get returns one comment of the post, redacted when soft-deleted.
func (s *CommentService) Get(ctx context.Context, level Level, postID, commentID string) (*models.Comment, error) {
	if err := checkIDs(postID, commentID); err != nil {
		return nil, err
	}
	post, comment, err := s.loadPair(ctx, postID, commentID)
	if err != nil {
		return nil, err
	}
	if !post.Visible && !level.IsAuthor() {
		return nil, postNotFound(postID)
	}
	if err := requireSameRoot(comment, postID); err != nil {
		return nil, err
	}
	out := comment.Redacted()
	return &out, nil
}

// Create adds a top-level comment. The post's reference is appended before the comment is
// written, so a vanished post never leaves an orphan comment behind.
func (s *CommentService) Create(ctx context.Context, level Level, postID string, in CommentInput) (*models.Comment, error) {
	if err := checkPostID(postID); err != nil {
		return nil, err
	}
	in.normalize()
	if err := checkFields("Unable to create new comment", &in); err != nil {
		return nil, err
	}
	if _, err := s.visiblePost(ctx, level, postID); err != nil {
		return nil, err
	}

	comment, err := s.newComment(postID, "", in)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.AppendCommentRef(ctx, postID, comment.ID, comment.DatePosted); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, newError(ErrNotFound, "Specified post not found at: %s. Comment was not saved.", postID)
		}
		return nil, storeFailure("link comment to post", err)
	}
	return s.persist(ctx, comment)
}

// Reply adds a reply under parentID. The parent's reply list is extended before the reply
// is written.
func (s *CommentService) Reply(ctx context.Context, level Level, postID, parentID string, in CommentInput) (*models.Comment, error) {
	if err := checkIDs(postID, parentID); err != nil {
		return nil, err
	}
	in.normalize()
	if err := checkFields("Unable to create new comment", &in); err != nil {
		return nil, err
	}
	post, parent, err := s.loadPair(ctx, postID, parentID)
	if err != nil {
		return nil, err
	}
	if !post.Visible && !level.IsAuthor() {
		return nil, postNotFound(postID)
	}
	if err := requireSameRoot(parent, postID); err != nil {
		return nil, err
	}

	comment, err := s.newComment(postID, parentID, in)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.AppendReplyRef(ctx, parentID, comment.ID, comment.DatePosted); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, newError(ErrNotFound,
				"Specified comment to reply to not found at: %s. Comment was not saved.", parentID)
		}
		return nil, storeFailure("link reply to comment", err)
	}
	return s.persist(ctx, comment)
}

// Update edits the present fields of a comment. Author only.
func (s *CommentService) Update(ctx context.Context, level Level, postID, commentID string, in CommentUpdate) (*models.Comment, error) {
	if !level.IsAuthor() {
		return nil, unauthorized()
	}
	if err := checkIDs(postID, commentID); err != nil {
		return nil, err
	}
	in.normalize()
	if err := checkFields("Unable to update comment", &in); err != nil {
		return nil, err
	}
	if _, _, err := s.loadOwned(ctx, postID, commentID); err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateComment(ctx, commentID, models.CommentPatch{
		AuthorFirstName: in.FirstName,
		AuthorLastName:  in.LastName,
		Text:            in.Text,
		UpdatedAt:       s.clock(),
	})
	if err != nil {
		return nil, lookupErr(err, func() *Error { return commentNotFound(commentID) }, "update comment")
	}
	out := updated.Redacted()
	return &out, nil
}

// SoftDelete tombstones a single comment. Its replies and reference lists stay untouched.
func (s *CommentService) SoftDelete(ctx context.Context, level Level, postID, commentID string) (*models.Comment, error) {
	if !level.IsAuthor() {
		return nil, unauthorized()
	}
	if err := checkIDs(postID, commentID); err != nil {
		return nil, err
	}
	if _, _, err := s.loadOwned(ctx, postID, commentID); err != nil {
		return nil, err
	}

	deleted := true
	updated, err := s.store.UpdateComment(ctx, commentID, models.CommentPatch{Deleted: &deleted, UpdatedAt: s.clock()})
	if err != nil {
		return nil, lookupErr(err, func() *Error { return commentNotFound(commentID) }, "delete comment")
	}
	out := updated.Redacted()
	return &out, nil
}

// PurgeReport describes a hard delete of one comment subtree.
type PurgeReport struct {
	CommentID    string `json:"comment_id"`
	DeletedCount int64  `json:"deleted_count"`
}

// Purge hard-deletes a comment with its whole reply subtree, then unlinks it from its parent
// comment (or from the post for a top-level comment). Author only.
func (s *CommentService) Purge(ctx context.Context, level Level, postID, commentID string) (*PurgeReport, error) {
	if !level.IsAuthor() {
		return nil, unauthorized()
	}
	if err := checkIDs(postID, commentID); err != nil {
		return nil, err
	}
	post, comment, err := s.loadOwned(ctx, postID, commentID)
	if err != nil {
		return nil, err
	}

	n, err := s.ForestDelete(ctx, postID, []string{commentID})
	if err != nil {
		return nil, err
	}

	now := s.clock()
	switch {
	case comment.IsReply():
		_, err = s.store.PullReplyRefs(ctx, comment.ParentComment, []string{commentID}, now)
	case post.HasCommentRef(commentID):
		_, err = s.store.PullCommentRefs(ctx, postID, []string{commentID}, now)
	default:
		s.log.Warn("purged comment was not listed on its post",
			zap.String("post_id", postID),
			zap.String("comment_id", commentID))
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, storeFailure("unlink purged comment", err)
	}
	return &PurgeReport{CommentID: commentID, DeletedCount: n}, nil
}

// ForestDelete hard-deletes the given roots and every comment reachable from them, and
// returns how many documents the store removed. Roots are deleted even when they cannot be
// loaded; a root that loads under another post is left alone. Under concurrent deletes the
// count is a lower bound; a second run over the same roots returns zero.
func (s *CommentService) ForestDelete(ctx context.Context, postID string, roots []string) (int64, error) {
	if len(roots) == 0 {
		return 0, nil
	}
	w, err := s.walk(ctx, postID, roots)
	if err != nil {
		return 0, err
	}

	skip := make(map[string]struct{}, len(w.foreign))
	for _, id := range w.foreign {
		skip[id] = struct{}{}
		s.log.Warn("forest delete skipped root owned by another post",
			zap.String("post_id", postID),
			zap.String("comment_id", id))
	}
	batch := make([]string, 0, len(roots)+len(w.order))
	for _, id := range roots {
		if _, ok := skip[id]; !ok {
			batch = append(batch, id)
		}
	}
	for _, c := range w.order {
		batch = append(batch, c.ID)
	}
	batch = utils.UniqueStrings(batch)

	n, err := s.store.DeleteComments(ctx, batch)
	if err != nil {
		return 0, storeFailure("delete comments", err)
	}
	s.log.Debug("forest deleted",
		zap.String("post_id", postID),
		zap.Int("roots", len(roots)),
		zap.Int("batch", len(batch)),
		zap.Int64("deleted", n))
	return n, nil
}

func (s *CommentService) newComment(postID, parentID string, in CommentInput) (*models.Comment, error) {
	id, err := NewID()
	if err != nil {
		return nil, &Error{Kind: ErrStoreUnavailable, Message: "Unable to allocate comment id", Err: err}
	}
	now := s.clock()
	return &models.Comment{
		ID:              id,
		AuthorFirstName: in.FirstName,
		AuthorLastName:  in.LastName,
		Text:            in.Text,
		ParentPost:      postID,
		ParentComment:   parentID,
		ReplyRefs:       []string{},
		DatePosted:      now,
		DateLastUpdated: now,
	}, nil
}

// persist writes a linked comment and re-reads it to confirm the write.
func (s *CommentService) persist(ctx context.Context, comment *models.Comment) (*models.Comment, error) {
	if err := s.store.InsertComment(ctx, comment); err != nil {
		s.log.Error("comment linked but not saved",
			zap.String("comment_id", comment.ID),
			zap.String("post_id", comment.ParentPost),
			zap.Error(err))
		return nil, storeFailure("save comment", err)
	}
	saved, err := s.store.FindComment(ctx, comment.ID)
	if err != nil {
		return nil, lookupErr(err, func() *Error { return commentNotFound(comment.ID) }, "confirm comment")
	}
	return saved, nil
}

func (s *CommentService) visiblePost(ctx context.Context, level Level, postID string) (*models.Post, error) {
	post, err := s.store.FindPost(ctx, postID)
	if err != nil {
		return nil, lookupErr(err, func() *Error { return postNotFound(postID) }, "load post")
	}
	if !post.Visible && !level.IsAuthor() {
		return nil, postNotFound(postID)
	}
	return post, nil
}

// loadPair fetches the post and the comment concurrently.
func (s *CommentService) loadPair(ctx context.Context, postID, commentID string) (*models.Post, *models.Comment, error) {
	var (
		post    *models.Post
		comment *models.Comment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.store.FindPost(gctx, postID)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		post = p
		return err
	})
	g.Go(func() error {
		c, err := s.store.FindComment(gctx, commentID)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		comment = c
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, storeFailure("load post and comment", err)
	}
	if post == nil {
		return nil, nil, postNotFound(postID)
	}
	if comment == nil {
		return nil, nil, commentNotFound(commentID)
	}
	return post, comment, nil
}

// loadOwned is loadPair plus the same-root check.
func (s *CommentService) loadOwned(ctx context.Context, postID, commentID string) (*models.Post, *models.Comment, error) {
	post, comment, err := s.loadPair(ctx, postID, commentID)
	if err != nil {
		return nil, nil, err
	}
	if err := requireSameRoot(comment, postID); err != nil {
		return nil, nil, err
	}
	return post, comment, nil
}

func requireSameRoot(comment *models.Comment, postID string) error {
	if comment.ParentPost != postID {
		return relationshipMismatch(comment.ID, postID)
	}
	return nil
}
