package models

import "time"

// Post represents a blog entry. CommentRefs holds the ids of its top-level comments in the
// order they were posted; replies are reachable only through their parent comment.
type Post struct {
	ID              string    `gorm:"type:char(36);primaryKey" json:"id" bson:"_id"`
	Title           string    `gorm:"size:255;not null" json:"title" bson:"title"`
	Body            string    `gorm:"type:text;not null" json:"body" bson:"body"`
	CommentRefs     []string  `gorm:"-" json:"comments" bson:"comment_refs"`
	DatePosted      time.Time `gorm:"not null" json:"date_posted" bson:"date_posted"`
	DateLastUpdated time.Time `gorm:"not null" json:"date_last_updated" bson:"date_last_updated"`
	Visible         bool      `gorm:"not null" json:"visible" bson:"visible"`
}

// PostPatch is a partial update; nil fields are left untouched.
type PostPatch struct {
	Title     *string
	Body      *string
	Visible   *bool
	UpdatedAt time.Time
}

// HasCommentRef reports whether id is listed as a top-level comment of the post.
func (p Post) HasCommentRef(id string) bool {
	for _, ref := range p.CommentRefs {
		if ref == id {
			return true
		}
	}
	return false
}
