package repository

import (
	"context"
	"errors"
	"time"

	"github.com/yukikurage/task-tracker-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// NextSequence returns MAX(seq)+1, counting soft-deleted tasks so numbers are never reused.
// Two concurrent callers may get the same value; the unique index on seq settles the race.
func (r *GormTaskRepository) NextSequence(ctx context.Context) (int64, error) {
	var last int64
	if err := r.db.WithContext(ctx).Unscoped().
		Model(&models.Task{}).
		Select("COALESCE(MAX(seq), 0)").
		Scan(&last).Error; err != nil {
		return 0, err
	}
	return last + 1, nil
}

// Create creates a new task
func (r *GormTaskRepository) Create(ctx context.Context, task *models.Task) error {
	task.Assignees = toAssigneeRows(task.ID, task.AssigneeIDs)
	return translateGormError(r.db.WithContext(ctx).Create(task).Error)
}

// FindByID finds a task by ID with assignees and comments
func (r *GormTaskRepository) FindByID(ctx context.Context, id string) (*models.Task, error) {
	var task models.Task
	if err := r.preloaded(ctx).Where("tasks.id = ?", id).First(&task).Error; err != nil {
		return nil, translateGormError(err)
	}
	fillAssigneeIDs(&task)
	return &task, nil
}

// List retrieves tasks with filtering and pagination
func (r *GormTaskRepository) List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error) {
	tasks := []models.Task{}
	db := r.db.WithContext(ctx)

	query := db.Model(&models.Task{})
	if filter.UserID != "" {
		assignmentSubQuery := db.Model(&models.TaskAssignee{}).
			Select("1").
			Where("task_assignees.task_id = tasks.id").
			Where("task_assignees.user_id = ?", filter.UserID)
		query = query.Where("tasks.created_by_id = ? OR EXISTS (?)", filter.UserID, assignmentSubQuery)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query.Order("tasks.created_at DESC").Order("tasks.seq DESC")
	if filter.Limit > 0 {
		listQuery = listQuery.Offset(filter.Offset).Limit(filter.Limit)
	}

	if err := listQuery.
		Preload("Assignees", orderByPosition).
		Preload("Comments", orderByCreation).
		Find(&tasks).Error; err != nil {
		return nil, 0, err
	}

	for i := range tasks {
		fillAssigneeIDs(&tasks[i])
	}
	return tasks, total, nil
}

// Update updates the mutable task fields and replaces the assignee set
func (r *GormTaskRepository) Update(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Task{}).
			Where("id = ?", task.ID).
			Updates(map[string]interface{}{
				"title":       task.Title,
				"description": task.Description,
				"deadline":    task.Deadline,
				"status":      task.Status,
				"updated_at":  task.UpdatedAt,
			}).Error; err != nil {
			return err
		}

		if err := tx.Where("task_id = ?", task.ID).Delete(&models.TaskAssignee{}).Error; err != nil {
			return err
		}
		rows := toAssigneeRows(task.ID, task.AssigneeIDs)
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
}

// Delete soft deletes a task after removing its comments and assignments
func (r *GormTaskRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", id).Delete(&models.TaskAssignee{}).Error; err != nil {
			return err
		}

		result := tx.Where("id = ?", id).Delete(&models.Task{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// AddComment appends a comment to a task. A reply holds a lock on its parent
// row until commit so the parent cannot be deleted underneath it.
func (r *GormTaskRepository) AddComment(ctx context.Context, taskID string, comment *models.Comment) error {
	comment.TaskID = taskID
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if comment.ParentCommentID != nil {
			if err := lockComment(tx, taskID, *comment.ParentCommentID); err != nil {
				if errors.Is(err, ErrNotFound) {
					return ErrParentNotFound
				}
				return err
			}
		}
		if err := tx.Create(comment).Error; err != nil {
			return translateGormError(err)
		}
		return touchTask(tx, taskID, comment.CreatedAt)
	})
}

// UpdateCommentContent replaces the content of a comment
func (r *GormTaskRepository) UpdateCommentContent(ctx context.Context, taskID, commentID, content string, updatedAt time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Comment{}).
			Where("id = ? AND task_id = ?", commentID, taskID).
			Updates(map[string]interface{}{
				"content":    content,
				"updated_at": updatedAt,
			}).Error; err != nil {
			return err
		}
		return touchTask(tx, taskID, updatedAt)
	})
}

// DeleteComment removes a comment from a task unless a reply points at it
func (r *GormTaskRepository) DeleteComment(ctx context.Context, taskID, commentID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockComment(tx, taskID, commentID); err != nil {
			return err
		}

		var replies []string
		if err := tx.Model(&models.Comment{}).
			Clauses(clause.Locking{Strength: "SHARE"}).
			Where("parent_comment_id = ?", commentID).
			Limit(1).
			Pluck("id", &replies).Error; err != nil {
			return err
		}
		if len(replies) > 0 {
			return ErrHasReplies
		}

		if err := tx.Where("id = ? AND task_id = ?", commentID, taskID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return touchTask(tx, taskID, time.Now())
	})
}

func (r *GormTaskRepository) preloaded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Assignees", orderByPosition).
		Preload("Comments", orderByCreation)
}

// lockComment takes a row lock on a comment of the task for the rest of the
// transaction. SQLite has no row locks and serializes writers instead.
func lockComment(tx *gorm.DB, taskID, commentID string) error {
	var comment models.Comment
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Where("id = ? AND task_id = ?", commentID, taskID).
		Take(&comment).Error
	return translateGormError(err)
}

func touchTask(tx *gorm.DB, taskID string, at time.Time) error {
	return tx.Model(&models.Task{}).Where("id = ?", taskID).Update("updated_at", at).Error
}

func orderByPosition(db *gorm.DB) *gorm.DB {
	return db.Order("task_assignees.position ASC")
}

func orderByCreation(db *gorm.DB) *gorm.DB {
	return db.Order("comments.created_at ASC")
}

func toAssigneeRows(taskID string, userIDs []string) []models.TaskAssignee {
	rows := make([]models.TaskAssignee, len(userIDs))
	for i, userID := range userIDs {
		rows[i] = models.TaskAssignee{
			TaskID:   taskID,
			UserID:   userID,
			Position: i,
		}
	}
	return rows
}

func fillAssigneeIDs(task *models.Task) {
	task.AssigneeIDs = make([]string, len(task.Assignees))
	for i, a := range task.Assignees {
		task.AssigneeIDs[i] = a.UserID
	}
}
