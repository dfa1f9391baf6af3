package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.posts.Create(ctx, LevelAuthor, PostInput{Title: " Title ", Body: "<p>Hi</p><script>x</script>"})
	require.NoError(t, err)
	assert.True(t, ValidateID(p.ID))
	assert.Equal(t, "Title", p.Title)
	assert.Equal(t, "<p>Hi</p>", p.Body)
	assert.True(t, p.Visible)
	assert.Empty(t, p.CommentRefs)
	assert.Equal(t, p.DatePosted, p.DateLastUpdated)

	_, err = f.posts.Create(ctx, LevelAnonymous, PostInput{Title: "t", Body: "b"})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestCreatePost_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.posts.Create(ctx, LevelAuthor, PostInput{Title: "", Body: "b"})
	assert.ErrorIs(t, err, ErrValidationFailed)

	_, err = f.posts.Create(ctx, LevelAuthor, PostInput{Title: "t", Body: "b", Visible: "maybe"})
	assert.ErrorIs(t, err, ErrValidationFailed)

	p, err := f.posts.Create(ctx, LevelAuthor, PostInput{Title: "t", Body: "b", Visible: "false"})
	require.NoError(t, err)
	assert.False(t, p.Visible)
	assert.Equal(t, []string{"InsertPost"}, f.spy.calls)
}

func TestGetPost_Visibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hidden := f.post(t, false)

	_, err := f.posts.Get(ctx, LevelAnonymous, hidden.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.posts.Get(ctx, LevelInvalid, hidden.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := f.posts.Get(ctx, LevelAuthor, hidden.ID)
	require.NoError(t, err)
	assert.Equal(t, hidden.ID, got.ID)

	all, err := f.posts.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestUpdatePost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.post(t, true)

	title := "New title"
	got, err := f.posts.Update(ctx, LevelAuthor, p.ID, PostUpdate{Title: &title, Visible: float64(0)})
	require.NoError(t, err)
	assert.Equal(t, "New title", got.Title)
	assert.Equal(t, "Body text", got.Body)
	assert.False(t, got.Visible)
	assert.False(t, got.DateLastUpdated.Before(p.DateLastUpdated))

	missing, err := NewID()
	require.NoError(t, err)
	_, err = f.posts.Update(ctx, LevelAuthor, missing, PostUpdate{Title: &title})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeletePost_CascadesWholeForest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.post(t, true)
	c1 := f.comment(t, p.ID)
	c2 := f.comment(t, p.ID)
	c3 := f.reply(t, p.ID, c1.ID)
	c4 := f.reply(t, p.ID, c1.ID)
	c5 := f.reply(t, p.ID, c4.ID)

	other := f.post(t, true)
	keep := f.comment(t, other.ID)

	report, err := f.posts.Delete(ctx, LevelAuthor, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, report.PostID)
	assert.EqualValues(t, 5, report.DeletedCount)

	_, err = f.spy.inner.FindPost(ctx, p.ID)
	assert.Error(t, err)
	left, err := f.spy.inner.FindComments(ctx, []string{c1.ID, c2.ID, c3.ID, c4.ID, c5.ID})
	require.NoError(t, err)
	assert.Empty(t, left)

	_, err = f.spy.inner.FindComment(ctx, keep.ID)
	assert.NoError(t, err)

	_, err = f.posts.Delete(ctx, LevelAuthor, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeletePost_ConcurrentDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.post(t, true)
	f.comment(t, p.ID)
	f.spy.on("DeletePost", func() {
		_, _ = f.spy.inner.DeletePost(ctx, p.ID)
	})

	report, err := f.posts.Delete(ctx, LevelAuthor, p.ID)
	require.ErrorIs(t, err, ErrDeletedConcurrently)
	assert.NotErrorIs(t, err, ErrNotFound)
	require.NotNil(t, report)
	assert.EqualValues(t, 1, report.DeletedCount)
}

func TestDeletePost_RequiresAuthor(t *testing.T) {
	f := newFixture(t)
	p := f.post(t, true)

	_, err := f.posts.Delete(context.Background(), LevelAnonymous, p.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)
}
