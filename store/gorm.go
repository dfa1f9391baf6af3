package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/cppla/blogthread/models"
)

// Gorm stores documents in a relational database (mysql or postgres). Reference lists live
// in ordered join tables, so appending an id is a single-row insert guarded by a touch of
// the owning row inside one transaction.
type Gorm struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewGorm wraps an opened gorm connection. timeout bounds every store call.
func NewGorm(db *gorm.DB, timeout time.Duration) *Gorm {
	return &Gorm{db: db, timeout: timeout}
}

// Models lists every table owned by the adapter, for migrations.
func Models() []interface{} {
	return []interface{}{
		&models.Post{},
		&models.Comment{},
		&models.PostCommentRef{},
		&models.CommentReplyRef{},
		&models.User{},
	}
}

func (s *Gorm) conn(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	return s.db.WithContext(ctx), cancel
}

// === Posts ===

func (s *Gorm) ListPosts(ctx context.Context) ([]models.Post, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var posts []models.Post
	if err := db.Order("date_posted DESC").Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("store: list posts: %w", err)
	}
	if len(posts) == 0 {
		return posts, nil
	}

	ids := make([]string, len(posts))
	for i := range posts {
		ids[i] = posts[i].ID
	}
	refs, err := postRefs(db, ids)
	if err != nil {
		return nil, err
	}
	for i := range posts {
		posts[i].CommentRefs = refsOrEmpty(refs[posts[i].ID])
	}
	return posts, nil
}

func (s *Gorm) FindPost(ctx context.Context, id string) (*models.Post, error) {
	db, cancel := s.conn(ctx)
	defer cancel()
	return loadPost(db, id)
}

func (s *Gorm) InsertPost(ctx context.Context, post *models.Post) error {
	db, cancel := s.conn(ctx)
	defer cancel()

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(post).Error; err != nil {
			return translate("insert post", err)
		}
		for _, ref := range post.CommentRefs {
			if err := tx.Create(&models.PostCommentRef{PostID: post.ID, CommentID: ref}).Error; err != nil {
				return translate("insert post ref", err)
			}
		}
		return nil
	})
}

func (s *Gorm) UpdatePost(ctx context.Context, id string, patch models.PostPatch) (*models.Post, error) {
	updates := map[string]interface{}{"date_last_updated": patch.UpdatedAt}
	if patch.Title != nil {
		updates["title"] = *patch.Title
	}
	if patch.Body != nil {
		updates["body"] = *patch.Body
	}
	if patch.Visible != nil {
		updates["visible"] = *patch.Visible
	}

	db, cancel := s.conn(ctx)
	defer cancel()

	var out *models.Post
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := touch(tx, &models.Post{}, id, updates); err != nil {
			return err
		}
		p, err := loadPost(tx, id)
		out = p
		return err
	})
	return out, err
}

func (s *Gorm) AppendCommentRef(ctx context.Context, postID, commentID string, at time.Time) (*models.Post, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var out *models.Post
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := touch(tx, &models.Post{}, postID, map[string]interface{}{"date_last_updated": at}); err != nil {
			return err
		}
		if err := tx.Create(&models.PostCommentRef{PostID: postID, CommentID: commentID}).Error; err != nil {
			return translate("append comment ref", err)
		}
		p, err := loadPost(tx, postID)
		out = p
		return err
	})
	return out, err
}

func (s *Gorm) PullCommentRefs(ctx context.Context, postID string, commentIDs []string, at time.Time) (*models.Post, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var out *models.Post
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := touch(tx, &models.Post{}, postID, map[string]interface{}{"date_last_updated": at}); err != nil {
			return err
		}
		if len(commentIDs) > 0 {
			if err := tx.Where("post_id = ? AND comment_id IN ?", postID, commentIDs).
				Delete(&models.PostCommentRef{}).Error; err != nil {
				return translate("pull comment refs", err)
			}
		}
		p, err := loadPost(tx, postID)
		out = p
		return err
	})
	return out, err
}

func (s *Gorm) DeletePost(ctx context.Context, id string) (bool, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var deleted bool
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.PostCommentRef{}).Error; err != nil {
			return translate("delete post refs", err)
		}
		res := tx.Where("id = ?", id).Delete(&models.Post{})
		if res.Error != nil {
			return translate("delete post", res.Error)
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	return deleted, err
}

// === Comments ===

func (s *Gorm) FindComment(ctx context.Context, id string) (*models.Comment, error) {
	db, cancel := s.conn(ctx)
	defer cancel()
	return loadComment(db, id)
}

func (s *Gorm) FindComments(ctx context.Context, ids []string) ([]models.Comment, error) {
	if len(ids) == 0 {
		return []models.Comment{}, nil
	}
	db, cancel := s.conn(ctx)
	defer cancel()

	var rows []models.Comment
	if err := db.Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("store: find comments: %w", err)
	}
	if err := attachReplyRefs(db, rows); err != nil {
		return nil, err
	}

	byID := make(map[string]models.Comment, len(rows))
	for _, c := range rows {
		byID[c.ID] = c
	}
	out := make([]models.Comment, 0, len(rows))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			out = append(out, c)
			delete(byID, id)
		}
	}
	return out, nil
}

func (s *Gorm) FindCommentsByParent(ctx context.Context, parentIDs []string) ([]models.Comment, error) {
	if len(parentIDs) == 0 {
		return []models.Comment{}, nil
	}
	db, cancel := s.conn(ctx)
	defer cancel()

	var rows []models.Comment
	if err := db.Where("parent_comment IN ?", parentIDs).
		Order("date_posted ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("store: find replies: %w", err)
	}
	if err := attachReplyRefs(db, rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Gorm) InsertComment(ctx context.Context, comment *models.Comment) error {
	db, cancel := s.conn(ctx)
	defer cancel()

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(comment).Error; err != nil {
			return translate("insert comment", err)
		}
		for _, ref := range comment.ReplyRefs {
			if err := tx.Create(&models.CommentReplyRef{CommentID: comment.ID, ReplyID: ref}).Error; err != nil {
				return translate("insert reply ref", err)
			}
		}
		return nil
	})
}

func (s *Gorm) UpdateComment(ctx context.Context, id string, patch models.CommentPatch) (*models.Comment, error) {
	updates := map[string]interface{}{"date_last_updated": patch.UpdatedAt}
	if patch.AuthorFirstName != nil {
		updates["author_first_name"] = *patch.AuthorFirstName
	}
	if patch.AuthorLastName != nil {
		updates["author_last_name"] = *patch.AuthorLastName
	}
	if patch.Text != nil {
		updates["text"] = *patch.Text
	}
	if patch.Deleted != nil {
		updates["deleted"] = *patch.Deleted
	}

	db, cancel := s.conn(ctx)
	defer cancel()

	var out *models.Comment
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := touch(tx, &models.Comment{}, id, updates); err != nil {
			return err
		}
		c, err := loadComment(tx, id)
		out = c
		return err
	})
	return out, err
}

func (s *Gorm) AppendReplyRef(ctx context.Context, commentID, replyID string, at time.Time) (*models.Comment, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var out *models.Comment
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := touch(tx, &models.Comment{}, commentID, map[string]interface{}{"date_last_updated": at}); err != nil {
			return err
		}
		if err := tx.Create(&models.CommentReplyRef{CommentID: commentID, ReplyID: replyID}).Error; err != nil {
			return translate("append reply ref", err)
		}
		c, err := loadComment(tx, commentID)
		out = c
		return err
	})
	return out, err
}

func (s *Gorm) PullReplyRefs(ctx context.Context, commentID string, replyIDs []string, at time.Time) (*models.Comment, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var out *models.Comment
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := touch(tx, &models.Comment{}, commentID, map[string]interface{}{"date_last_updated": at}); err != nil {
			return err
		}
		if len(replyIDs) > 0 {
			if err := tx.Where("comment_id = ? AND reply_id IN ?", commentID, replyIDs).
				Delete(&models.CommentReplyRef{}).Error; err != nil {
				return translate("pull reply refs", err)
			}
		}
		c, err := loadComment(tx, commentID)
		out = c
		return err
	})
	return out, err
}

func (s *Gorm) DeleteComment(ctx context.Context, id string) (bool, error) {
	n, err := s.DeleteComments(ctx, []string{id})
	return n > 0, err
}

func (s *Gorm) DeleteComments(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	db, cancel := s.conn(ctx)
	defer cancel()

	var n int64
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("comment_id IN ?", ids).Delete(&models.CommentReplyRef{}).Error; err != nil {
			return translate("delete reply refs", err)
		}
		res := tx.Where("id IN ?", ids).Delete(&models.Comment{})
		if res.Error != nil {
			return translate("delete comments", res.Error)
		}
		n = res.RowsAffected
		return nil
	})
	return n, err
}

// === Users ===

func (s *Gorm) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var u models.User
	if err := db.Where("username = ?", username).First(&u).Error; err != nil {
		return nil, translate("find user", err)
	}
	return &u, nil
}

func (s *Gorm) InsertUser(ctx context.Context, user *models.User) error {
	db, cancel := s.conn(ctx)
	defer cancel()

	if err := db.Create(user).Error; err != nil {
		return translate("insert user", err)
	}
	return nil
}

// === helpers ===

// touch applies updates to one row and reports ErrNotFound when the row is gone. MySQL
// reports zero affected rows for a no-op update, so a zero count is confirmed with a lookup.
func touch(tx *gorm.DB, model interface{}, id string, updates map[string]interface{}) error {
	res := tx.Model(model).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return translate("update", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}
	var n int64
	if err := tx.Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return translate("update", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func loadPost(db *gorm.DB, id string) (*models.Post, error) {
	var p models.Post
	if err := db.Where("id = ?", id).First(&p).Error; err != nil {
		return nil, translate("find post", err)
	}
	refs, err := postRefs(db, []string{id})
	if err != nil {
		return nil, err
	}
	p.CommentRefs = refsOrEmpty(refs[id])
	return &p, nil
}

func loadComment(db *gorm.DB, id string) (*models.Comment, error) {
	var c models.Comment
	if err := db.Where("id = ?", id).First(&c).Error; err != nil {
		return nil, translate("find comment", err)
	}
	rows := []models.Comment{c}
	if err := attachReplyRefs(db, rows); err != nil {
		return nil, err
	}
	return &rows[0], nil
}

func postRefs(db *gorm.DB, postIDs []string) (map[string][]string, error) {
	var refs []models.PostCommentRef
	if err := db.Where("post_id IN ?", postIDs).Order("seq ASC").Find(&refs).Error; err != nil {
		return nil, fmt.Errorf("store: load comment refs: %w", err)
	}
	out := make(map[string][]string, len(postIDs))
	for _, r := range refs {
		out[r.PostID] = append(out[r.PostID], r.CommentID)
	}
	return out, nil
}

func attachReplyRefs(db *gorm.DB, comments []models.Comment) error {
	if len(comments) == 0 {
		return nil
	}
	ids := make([]string, len(comments))
	for i := range comments {
		ids[i] = comments[i].ID
	}
	var refs []models.CommentReplyRef
	if err := db.Where("comment_id IN ?", ids).Order("seq ASC").Find(&refs).Error; err != nil {
		return fmt.Errorf("store: load reply refs: %w", err)
	}
	grouped := make(map[string][]string, len(ids))
	for _, r := range refs {
		grouped[r.CommentID] = append(grouped[r.CommentID], r.ReplyID)
	}
	for i := range comments {
		comments[i].ReplyRefs = refsOrEmpty(grouped[comments[i].ID])
	}
	return nil
}

func refsOrEmpty(refs []string) []string {
	if refs == nil {
		return []string{}
	}
	return refs
}

func translate(op string, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	case errors.Is(err, ErrNotFound):
		return err
	default:
		return fmt.Errorf("store: %s: %w", op, err)
	}
}
