package models

import "time"

// RedactedMarker replaces author and text of a soft-deleted comment on every read.
const RedactedMarker = "Deleted"

// Comment is a node of a post's comment forest. ParentPost is always the owning post (the
// transitive root), ParentComment is empty for top-level comments and set for replies.
type Comment struct {
	ID              string    `gorm:"type:char(36);primaryKey" json:"id" bson:"_id"`
	AuthorFirstName string    `gorm:"size:30;not null" json:"first_name" bson:"first_name"`
	AuthorLastName  string    `gorm:"size:30;not null" json:"last_name" bson:"last_name"`
	Text            string    `gorm:"type:text;not null" json:"text" bson:"text"`
	ParentPost      string    `gorm:"type:char(36);index;not null" json:"parent_post" bson:"parent_post"`
	ParentComment   string    `gorm:"type:char(36);index" json:"parent_comment,omitempty" bson:"parent_comment,omitempty"`
	ReplyRefs       []string  `gorm:"-" json:"replies" bson:"reply_refs"`
	DatePosted      time.Time `gorm:"not null" json:"date_posted" bson:"date_posted"`
	DateLastUpdated time.Time `gorm:"not null" json:"date_last_updated" bson:"date_last_updated"`
	Deleted         bool      `gorm:"not null" json:"deleted" bson:"deleted"`
}

// CommentPatch is a partial update; nil fields are left untouched. It never carries
// structural fields (parent links, reply refs).
type CommentPatch struct {
	AuthorFirstName *string
	AuthorLastName  *string
	Text            *string
	Deleted         *bool
	UpdatedAt       time.Time
}

// IsReply reports whether the comment answers another comment.
func (c Comment) IsReply() bool {
	return c.ParentComment != ""
}

// Redacted returns the comment as readers see it: soft-deleted comments keep their position,
// replies and timestamps, but lose author and text.
func (c Comment) Redacted() Comment {
	if !c.Deleted {
		return c
	}
	c.AuthorFirstName = RedactedMarker
	c.AuthorLastName = RedactedMarker
	c.Text = RedactedMarker
	return c
}
