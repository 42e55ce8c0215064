package models

import (
	"time"

	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "Pending"
	TaskStatusInProgress TaskStatus = "In Progress"
	TaskStatusCompleted  TaskStatus = "Completed"
	TaskStatusOverdue    TaskStatus = "Overdue"
)

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusOverdue:
		return true
	}
	return false
}

type Task struct {
	ID          string         `gorm:"primaryKey;type:varchar(36)" bson:"_id"`
	HumanRef    string         `gorm:"type:varchar(20);uniqueIndex;not null" bson:"human_ref"`
	Seq         int64          `gorm:"uniqueIndex;not null" bson:"seq"`
	Title       string         `gorm:"type:varchar(60);not null" bson:"title"`
	Description string         `gorm:"type:varchar(255)" bson:"description"`
	Deadline    time.Time      `gorm:"not null" bson:"deadline"`
	Status      TaskStatus     `gorm:"type:varchar(20);not null;default:'Pending'" bson:"status"`
	CreatedByID string         `gorm:"type:varchar(36);not null;index" bson:"created_by"`
	AssigneeIDs []string       `gorm:"-" bson:"assigned_to"`
	Comments    []Comment      `gorm:"foreignKey:TaskID" bson:"comments"`
	CreatedAt   time.Time      `gorm:"index" bson:"created_at"`
	UpdatedAt   time.Time      `bson:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" bson:"-"`

	// Relational form of AssigneeIDs, maintained by the GORM repository.
	Assignees []TaskAssignee `gorm:"foreignKey:TaskID" bson:"-"`
}

// IsOverdue reports whether the deadline has passed on a task that is not completed.
func (t Task) IsOverdue(now time.Time) bool {
	return t.Status != TaskStatusCompleted && t.Deadline.Before(now)
}

// EffectiveStatus is the status a reader sees at the given instant.
func (t Task) EffectiveStatus(now time.Time) TaskStatus {
	if t.IsOverdue(now) {
		return TaskStatusOverdue
	}
	return t.Status
}

// IsAssigned reports whether userID is in the task's assignee set.
func (t Task) IsAssigned(userID string) bool {
	for _, id := range t.AssigneeIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// FindComment returns the comment with the given id, or nil.
func (t *Task) FindComment(commentID string) *Comment {
	for i := range t.Comments {
		if t.Comments[i].ID == commentID {
			return &t.Comments[i]
		}
	}
	return nil
}

// Replies returns the comments whose parent is commentID, in thread order.
func (t Task) Replies(commentID string) []Comment {
	replies := make([]Comment, 0)
	for _, c := range t.Comments {
		if c.ParentCommentID != nil && *c.ParentCommentID == commentID {
			replies = append(replies, c)
		}
	}
	return replies
}
