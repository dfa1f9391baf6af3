package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cppla/blogthread/models"
)

// newTestGorm opens a throwaway sqlite file, so the relational adapter runs without a server.
func newTestGorm(t *testing.T) (*Gorm, *models.Post) {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "blog.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(Models()...))

	s := NewGorm(db, 5*time.Second)
	now := time.Now().UTC()
	post := &models.Post{ID: "post-1", Title: "Hello", Body: "World", Visible: true, DatePosted: now, DateLastUpdated: now}
	require.NoError(t, s.InsertPost(context.Background(), post))
	return s, post
}

func gormComment(id, postID, parentID string, at time.Time) *models.Comment {
	return &models.Comment{
		ID:              id,
		AuthorFirstName: "Ada",
		AuthorLastName:  "Lovelace",
		Text:            "text " + id,
		ParentPost:      postID,
		ParentComment:   parentID,
		ReplyRefs:       []string{},
		DatePosted:      at,
		DateLastUpdated: at,
	}
}

func TestGorm_FindPostNotFound(t *testing.T) {
	s, post := newTestGorm(t)
	ctx := context.Background()

	_, err := s.FindPost(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := s.FindPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hello", got.Title)
	assert.Equal(t, []string{}, got.CommentRefs)
}

func TestGorm_CommentRefsKeepAppendOrder(t *testing.T) {
	s, post := newTestGorm(t)
	ctx := context.Background()
	at := time.Now().Add(time.Minute).UTC()

	for _, id := range []string{"c3", "c1", "c2"} {
		_, err := s.AppendCommentRef(ctx, post.ID, id, at)
		require.NoError(t, err)
	}
	p, err := s.PullCommentRefs(ctx, post.ID, []string{"c1", "unknown"}, at)
	require.NoError(t, err)
	assert.Equal(t, []string{"c3", "c2"}, p.CommentRefs)
	assert.WithinDuration(t, at, p.DateLastUpdated, time.Second)

	_, err = s.AppendCommentRef(ctx, "missing", "c9", at)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.PullCommentRefs(ctx, "missing", []string{"c9"}, at)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGorm_ReplyRefsAndParentIndex(t *testing.T) {
	s, post := newTestGorm(t)
	ctx := context.Background()
	base := time.Now().UTC()

	require.NoError(t, s.InsertComment(ctx, gormComment("c1", post.ID, "", base)))
	require.NoError(t, s.InsertComment(ctx, gormComment("r2", post.ID, "c1", base.Add(2*time.Second))))
	require.NoError(t, s.InsertComment(ctx, gormComment("r1", post.ID, "c1", base.Add(time.Second))))
	for _, id := range []string{"r2", "r1"} {
		_, err := s.AppendReplyRef(ctx, "c1", id, base)
		require.NoError(t, err)
	}

	c, err := s.FindComment(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"r2", "r1"}, c.ReplyRefs)

	children, err := s.FindCommentsByParent(ctx, []string{"c1"})
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, "r1", children[0].ID)
	assert.Equal(t, "r2", children[1].ID)

	c, err = s.PullReplyRefs(ctx, "c1", []string{"r2"}, base)
	require.NoError(t, err)
	assert.Equal(t, []string{"r1"}, c.ReplyRefs)

	_, err = s.AppendReplyRef(ctx, "ghost", "r1", base)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGorm_FindCommentsFollowsRequestOrder(t *testing.T) {
	s, post := newTestGorm(t)
	ctx := context.Background()
	now := time.Now().UTC()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.InsertComment(ctx, gormComment(id, post.ID, "", now)))
	}

	got, err := s.FindComments(ctx, []string{"c", "ghost", "a", "c"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].ID)
	assert.Equal(t, "a", got[1].ID)
}

func TestGorm_UpdateComment(t *testing.T) {
	s, post := newTestGorm(t)
	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, s.InsertComment(ctx, gormComment("c1", post.ID, "", now)))

	text, deleted := "edited", true
	later := now.Add(time.Minute)
	c, err := s.UpdateComment(ctx, "c1", models.CommentPatch{Text: &text, Deleted: &deleted, UpdatedAt: later})
	require.NoError(t, err)
	assert.Equal(t, "edited", c.Text)
	assert.True(t, c.Deleted)
	assert.Equal(t, "Ada", c.AuthorFirstName)
	assert.WithinDuration(t, later, c.DateLastUpdated, time.Second)

	_, err = s.UpdateComment(ctx, "ghost", models.CommentPatch{Text: &text, UpdatedAt: later})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGorm_DeleteCommentsCountsOnlyExisting(t *testing.T) {
	s, post := newTestGorm(t)
	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, s.InsertComment(ctx, gormComment("a", post.ID, "", now)))
	require.NoError(t, s.InsertComment(ctx, gormComment("b", post.ID, "a", now)))
	_, err := s.AppendReplyRef(ctx, "a", "b", now)
	require.NoError(t, err)

	n, err := s.DeleteComments(ctx, []string{"a", "b", "ghost"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = s.DeleteComments(ctx, []string{"a", "b"})
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	var refs int64
	require.NoError(t, s.db.Model(&models.CommentReplyRef{}).Count(&refs).Error)
	assert.Zero(t, refs)
}

func TestGorm_DeletePostDropsRefs(t *testing.T) {
	s, post := newTestGorm(t)
	ctx := context.Background()
	_, err := s.AppendCommentRef(ctx, post.ID, "c1", time.Now().UTC())
	require.NoError(t, err)

	ok, err := s.DeletePost(ctx, post.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.DeletePost(ctx, post.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	var refs int64
	require.NoError(t, s.db.Model(&models.PostCommentRef{}).Count(&refs).Error)
	assert.Zero(t, refs)
}

func TestGorm_Users(t *testing.T) {
	s, _ := newTestGorm(t)
	ctx := context.Background()

	_, err := s.FindUserByUsername(ctx, "alice")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.InsertUser(ctx, &models.User{ID: "u1", Username: "alice", Author: true}))
	u, err := s.FindUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.True(t, u.Author)

	err = s.InsertUser(ctx, &models.User{ID: "u2", Username: "alice"})
	assert.ErrorIs(t, err, ErrDuplicate)
}
