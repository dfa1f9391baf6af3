package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/cppla/blogthread/models"
)

// mockMongo points every collection of the adapter at the mock deployment's collection.
func mockMongo(mt *mtest.T) *Mongo {
	return &Mongo{posts: mt.Coll, comments: mt.Coll, users: mt.Coll, timeout: time.Second}
}

func TestMongo_Adapter(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ns := "blog.posts"

	mt.Run("find post not found", func(mt *mtest.T) {
		s := mockMongo(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		_, err := s.FindPost(context.Background(), "missing")
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("find post normalizes refs", func(mt *mtest.T) {
		s := mockMongo(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "p1"},
			{Key: "title", Value: "Hello"},
			{Key: "visible", Value: true},
		}))

		p, err := s.FindPost(context.Background(), "p1")
		require.NoError(mt, err)
		assert.Equal(mt, "Hello", p.Title)
		assert.Equal(mt, []string{}, p.CommentRefs)
	})

	mt.Run("append to missing post", func(mt *mtest.T) {
		s := mockMongo(mt)
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "value", Value: nil}})

		_, err := s.AppendCommentRef(context.Background(), "missing", "c1", time.Now())
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("duplicate username", func(mt *mtest.T) {
		s := mockMongo(mt)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "duplicate key error",
		}))

		err := s.InsertUser(context.Background(), &models.User{ID: "u1", Username: "alice"})
		assert.ErrorIs(mt, err, ErrDuplicate)
	})

	mt.Run("delete comments reports count", func(mt *mtest.T) {
		s := mockMongo(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: int32(2)}))

		n, err := s.DeleteComments(context.Background(), []string{"a", "b", "ghost"})
		require.NoError(mt, err)
		assert.EqualValues(mt, 2, n)
	})

	mt.Run("find comments follows request order", func(mt *mtest.T) {
		s := mockMongo(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "blog.comments", mtest.FirstBatch,
			bson.D{{Key: "_id", Value: "a"}, {Key: "parent_post", Value: "p1"}},
			bson.D{{Key: "_id", Value: "c"}, {Key: "parent_post", Value: "p1"}},
		))

		got, err := s.FindComments(context.Background(), []string{"c", "ghost", "a"})
		require.NoError(mt, err)
		require.Len(mt, got, 2)
		assert.Equal(mt, "c", got[0].ID)
		assert.Equal(mt, "a", got[1].ID)
		assert.Equal(mt, []string{}, got[0].ReplyRefs)
	})
}
