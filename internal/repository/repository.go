package repository

import (
	"context"
	"errors"
	"time"

	"github.com/yukikurage/task-tracker-api/internal/models"
)

var (
	// ErrNotFound is returned when no record matches the lookup.
	ErrNotFound = errors.New("repository: record not found")
	// ErrDuplicate is returned when a write violates a unique index.
	ErrDuplicate = errors.New("repository: duplicate key")
	// ErrParentNotFound is returned when a reply's parent is not on the task at write time.
	ErrParentNotFound = errors.New("repository: parent comment not found")
	// ErrHasReplies is returned when deleting a comment that still has replies.
	ErrHasReplies = errors.New("repository: comment has replies")
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id string) (*models.User, error)

	// FindByUsername finds a user by exact username
	FindByUsername(ctx context.Context, username string) (*models.User, error)

	// FindByEmail finds a user by email; callers pass the lowercase form
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// FindByIDs returns the users that exist among ids, in no particular order
	FindByIDs(ctx context.Context, ids []string) ([]models.User, error)

	// Update persists all mutable fields of a user
	Update(ctx context.Context, user *models.User) error

	// ListActive lists active users ordered by username
	ListActive(ctx context.Context) ([]models.User, error)
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	// UserID restricts the result to tasks the user created or is assigned to
	UserID string
	Offset int
	// Limit of zero means no limit
	Limit int
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// NextSequence returns the number to use for the next human reference
	NextSequence(ctx context.Context) (int64, error)

	// Create creates a new task with its assignees
	Create(ctx context.Context, task *models.Task) error

	// FindByID finds a task with assignees and comments loaded
	FindByID(ctx context.Context, id string) (*models.Task, error)

	// List retrieves tasks newest first, with the total before paging
	List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error)

	// Update persists title, description, deadline, status and the assignee set
	Update(ctx context.Context, task *models.Task) error

	// Delete removes a task and everything it owns
	Delete(ctx context.Context, id string) error

	// AddComment appends a comment to a task. A reply fails with ErrParentNotFound
	// unless its parent is on the same task when the write happens.
	AddComment(ctx context.Context, taskID string, comment *models.Comment) error

	// UpdateCommentContent replaces the content of one comment
	UpdateCommentContent(ctx context.Context, taskID, commentID, content string, updatedAt time.Time) error

	// DeleteComment removes one comment from a task, or fails with ErrHasReplies
	// if any comment points at it when the write happens.
	DeleteComment(ctx context.Context, taskID, commentID string) error
}
