package models

// PostCommentRef is one entry of Post.CommentRefs in relational stores; Seq keeps insertion order.
type PostCommentRef struct {
	Seq       uint64 `gorm:"primaryKey;autoIncrement"`
	PostID    string `gorm:"type:char(36);index;not null"`
	CommentID string `gorm:"type:char(36);index;not null"`
}

// CommentReplyRef is one entry of Comment.ReplyRefs in relational stores.
type CommentReplyRef struct {
	Seq       uint64 `gorm:"primaryKey;autoIncrement"`
	CommentID string `gorm:"type:char(36);index;not null"`
	ReplyID   string `gorm:"type:char(36);index;not null"`
}
