package models

import "time"

// Comment belongs to exactly one task; replies point at a sibling through ParentCommentID.
type Comment struct {
	ID              string    `gorm:"primaryKey;type:varchar(36)" bson:"_id"`
	TaskID          string    `gorm:"type:varchar(36);not null;index" bson:"-"`
	AuthorID        string    `gorm:"type:varchar(36);not null" bson:"author"`
	Content         string    `gorm:"type:varchar(1000);not null" bson:"content"`
	ParentCommentID *string   `gorm:"type:varchar(36);index" bson:"parent_comment_id,omitempty"`
	CreatedAt       time.Time `bson:"created_at"`
	UpdatedAt       time.Time `bson:"updated_at"`
}
