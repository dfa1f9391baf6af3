package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/cppla/blogthread/models"
)

const (
	postsCollection    = "posts"
	commentsCollection = "comments"
	usersCollection    = "users"
)

// Mongo keeps each post and comment as a document with an embedded id array. Appends and
// pulls are single-document $push/$pull updates, which mongo applies atomically.
type Mongo struct {
	client   *mongo.Client
	posts    *mongo.Collection
	comments *mongo.Collection
	users    *mongo.Collection
	timeout  time.Duration
}

// NewMongo connects, pings and ensures indexes.
func NewMongo(ctx context.Context, uri, database string, timeout time.Duration) (*Mongo, error) {
	cctx, cancel := withTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(cctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("store: mongo connect: %w", err)
	}
	if err := client.Ping(cctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("store: mongo ping: %w", err)
	}

	db := client.Database(database)
	s := &Mongo{
		client:   client,
		posts:    db.Collection(postsCollection),
		comments: db.Collection(commentsCollection),
		users:    db.Collection(usersCollection),
		timeout:  timeout,
	}
	if err := s.ensureIndexes(cctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

// Close disconnects the client.
func (s *Mongo) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Mongo) ensureIndexes(ctx context.Context) error {
	_, err := s.comments.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "parent_post", Value: 1}}},
		{Keys: bson.D{{Key: "parent_comment", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("store: comment indexes: %w", err)
	}
	_, err = s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("store: user indexes: %w", err)
	}
	return nil
}

// === Posts ===

func (s *Mongo) ListPosts(ctx context.Context) ([]models.Post, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "date_posted", Value: -1}})
	cur, err := s.posts.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("store: list posts: %w", err)
	}
	posts := []models.Post{}
	if err := cur.All(ctx, &posts); err != nil {
		return nil, fmt.Errorf("store: list posts: %w", err)
	}
	for i := range posts {
		posts[i].CommentRefs = refsOrEmpty(posts[i].CommentRefs)
	}
	return posts, nil
}

func (s *Mongo) FindPost(ctx context.Context, id string) (*models.Post, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var p models.Post
	if err := s.posts.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, mongoErr("find post", err)
	}
	p.CommentRefs = refsOrEmpty(p.CommentRefs)
	return &p, nil
}

func (s *Mongo) InsertPost(ctx context.Context, post *models.Post) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	post.CommentRefs = refsOrEmpty(post.CommentRefs)
	if _, err := s.posts.InsertOne(ctx, post); err != nil {
		return mongoErr("insert post", err)
	}
	return nil
}

func (s *Mongo) UpdatePost(ctx context.Context, id string, patch models.PostPatch) (*models.Post, error) {
	set := bson.M{"date_last_updated": patch.UpdatedAt}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Body != nil {
		set["body"] = *patch.Body
	}
	if patch.Visible != nil {
		set["visible"] = *patch.Visible
	}
	var p models.Post
	if err := s.findAndUpdate(ctx, s.posts, id, bson.M{"$set": set}, &p); err != nil {
		return nil, mongoErr("update post", err)
	}
	p.CommentRefs = refsOrEmpty(p.CommentRefs)
	return &p, nil
}

func (s *Mongo) AppendCommentRef(ctx context.Context, postID, commentID string, at time.Time) (*models.Post, error) {
	update := bson.M{
		"$push": bson.M{"comment_refs": commentID},
		"$set":  bson.M{"date_last_updated": at},
	}
	var p models.Post
	if err := s.findAndUpdate(ctx, s.posts, postID, update, &p); err != nil {
		return nil, mongoErr("append comment ref", err)
	}
	return &p, nil
}

func (s *Mongo) PullCommentRefs(ctx context.Context, postID string, commentIDs []string, at time.Time) (*models.Post, error) {
	update := bson.M{
		"$pull": bson.M{"comment_refs": bson.M{"$in": refsOrEmpty(commentIDs)}},
		"$set":  bson.M{"date_last_updated": at},
	}
	var p models.Post
	if err := s.findAndUpdate(ctx, s.posts, postID, update, &p); err != nil {
		return nil, mongoErr("pull comment refs", err)
	}
	p.CommentRefs = refsOrEmpty(p.CommentRefs)
	return &p, nil
}

func (s *Mongo) DeletePost(ctx context.Context, id string) (bool, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.posts.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, mongoErr("delete post", err)
	}
	return res.DeletedCount > 0, nil
}

// === Comments ===

func (s *Mongo) FindComment(ctx context.Context, id string) (*models.Comment, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var c models.Comment
	if err := s.comments.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		return nil, mongoErr("find comment", err)
	}
	c.ReplyRefs = refsOrEmpty(c.ReplyRefs)
	return &c, nil
}

func (s *Mongo) FindComments(ctx context.Context, ids []string) ([]models.Comment, error) {
	if len(ids) == 0 {
		return []models.Comment{}, nil
	}
	rows, err := s.findComments(ctx, bson.M{"_id": bson.M{"$in": ids}}, nil)
	if err != nil {
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

func (s *Mongo) FindCommentsByParent(ctx context.Context, parentIDs []string) ([]models.Comment, error) {
	if len(parentIDs) == 0 {
		return []models.Comment{}, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "date_posted", Value: 1}, {Key: "_id", Value: 1}})
	return s.findComments(ctx, bson.M{"parent_comment": bson.M{"$in": parentIDs}}, opts)
}

func (s *Mongo) findComments(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Comment, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if opts == nil {
		opts = options.Find()
	}
	cur, err := s.comments.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("store: find comments: %w", err)
	}
	rows := []models.Comment{}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("store: find comments: %w", err)
	}
	for i := range rows {
		rows[i].ReplyRefs = refsOrEmpty(rows[i].ReplyRefs)
	}
	return rows, nil
}

func (s *Mongo) InsertComment(ctx context.Context, comment *models.Comment) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	comment.ReplyRefs = refsOrEmpty(comment.ReplyRefs)
	if _, err := s.comments.InsertOne(ctx, comment); err != nil {
		return mongoErr("insert comment", err)
	}
	return nil
}

func (s *Mongo) UpdateComment(ctx context.Context, id string, patch models.CommentPatch) (*models.Comment, error) {
	set := bson.M{"date_last_updated": patch.UpdatedAt}
	if patch.AuthorFirstName != nil {
		set["first_name"] = *patch.AuthorFirstName
	}
	if patch.AuthorLastName != nil {
		set["last_name"] = *patch.AuthorLastName
	}
	if patch.Text != nil {
		set["text"] = *patch.Text
	}
	if patch.Deleted != nil {
		set["deleted"] = *patch.Deleted
	}
	var c models.Comment
	if err := s.findAndUpdate(ctx, s.comments, id, bson.M{"$set": set}, &c); err != nil {
		return nil, mongoErr("update comment", err)
	}
	c.ReplyRefs = refsOrEmpty(c.ReplyRefs)
	return &c, nil
}

func (s *Mongo) AppendReplyRef(ctx context.Context, commentID, replyID string, at time.Time) (*models.Comment, error) {
	update := bson.M{
		"$push": bson.M{"reply_refs": replyID},
		"$set":  bson.M{"date_last_updated": at},
	}
	var c models.Comment
	if err := s.findAndUpdate(ctx, s.comments, commentID, update, &c); err != nil {
		return nil, mongoErr("append reply ref", err)
	}
	return &c, nil
}

func (s *Mongo) PullReplyRefs(ctx context.Context, commentID string, replyIDs []string, at time.Time) (*models.Comment, error) {
	update := bson.M{
		"$pull": bson.M{"reply_refs": bson.M{"$in": refsOrEmpty(replyIDs)}},
		"$set":  bson.M{"date_last_updated": at},
	}
	var c models.Comment
	if err := s.findAndUpdate(ctx, s.comments, commentID, update, &c); err != nil {
		return nil, mongoErr("pull reply refs", err)
	}
	c.ReplyRefs = refsOrEmpty(c.ReplyRefs)
	return &c, nil
}

func (s *Mongo) DeleteComment(ctx context.Context, id string) (bool, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.comments.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, mongoErr("delete comment", err)
	}
	return res.DeletedCount > 0, nil
}

func (s *Mongo) DeleteComments(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.comments.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, mongoErr("delete comments", err)
	}
	return res.DeletedCount, nil
}

// === Users ===

func (s *Mongo) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var u models.User
	if err := s.users.FindOne(ctx, bson.M{"username": username}).Decode(&u); err != nil {
		return nil, mongoErr("find user", err)
	}
	return &u, nil
}

func (s *Mongo) InsertUser(ctx context.Context, user *models.User) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	if _, err := s.users.InsertOne(ctx, user); err != nil {
		return mongoErr("insert user", err)
	}
	return nil
}

func (s *Mongo) findAndUpdate(ctx context.Context, coll *mongo.Collection, id string, update bson.M, out interface{}) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	return coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(out)
}

func mongoErr(op string, err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return ErrDuplicate
	default:
		return fmt.Errorf("store: %s: %w", op, err)
	}
}
