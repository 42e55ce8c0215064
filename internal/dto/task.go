package dto

import (
	"time"

	"github.com/yukikurage/task-tracker-api/internal/models"
)

// CommentDTO represents a comment in API responses
type CommentDTO struct {
	ID              string          `json:"id"`
	Content         string          `json:"content"`
	ParentCommentID *string         `json:"parentCommentId"`
	Author          *UserSummaryDTO `json:"author"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// TaskDTO represents a task in API responses with its users populated
type TaskDTO struct {
	ID          string            `json:"id"`
	HumanRef    string            `json:"humanRef"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Deadline    time.Time         `json:"deadline"`
	Status      models.TaskStatus `json:"status"`
	AssignedTo  []UserSummaryDTO  `json:"assignedTo"`
	CreatedBy   *UserSummaryDTO   `json:"createdBy"`
	Comments    []CommentDTO      `json:"comments"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// TaskDraftDTO is one suggestion from the task drafting endpoint
type TaskDraftDTO struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Deadline    *time.Time `json:"deadline,omitempty"`
}

// ToTaskDTO converts a Task model to TaskDTO. Status is projected at now, and
// users missing from the map are left out (assignees) or rendered as null.
func ToTaskDTO(task models.Task, users map[string]models.User, now time.Time) TaskDTO {
	dto := TaskDTO{
		ID:          task.ID,
		HumanRef:    task.HumanRef,
		Title:       task.Title,
		Description: task.Description,
		Deadline:    task.Deadline,
		Status:      task.EffectiveStatus(now),
		AssignedTo:  make([]UserSummaryDTO, 0, len(task.AssigneeIDs)),
		CreatedBy:   lookupUser(users, task.CreatedByID),
		Comments:    ToCommentDTOs(task.Comments, users),
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}

	for _, id := range task.AssigneeIDs {
		if u, ok := users[id]; ok {
			dto.AssignedTo = append(dto.AssignedTo, ToUserSummaryDTO(u))
		}
	}

	return dto
}

// ToTaskDTOs converts a slice of tasks
func ToTaskDTOs(tasks []models.Task, users map[string]models.User, now time.Time) []TaskDTO {
	items := make([]TaskDTO, len(tasks))
	for i, task := range tasks {
		items[i] = ToTaskDTO(task, users, now)
	}
	return items
}

// ToCommentDTOs converts comments, populating authors from users
func ToCommentDTOs(comments []models.Comment, users map[string]models.User) []CommentDTO {
	items := make([]CommentDTO, len(comments))
	for i, c := range comments {
		items[i] = CommentDTO{
			ID:              c.ID,
			Content:         c.Content,
			ParentCommentID: c.ParentCommentID,
			Author:          lookupUser(users, c.AuthorID),
			CreatedAt:       c.CreatedAt,
			UpdatedAt:       c.UpdatedAt,
		}
	}
	return items
}

func lookupUser(users map[string]models.User, id string) *UserSummaryDTO {
	u, ok := users[id]
	if !ok {
		return nil
	}
	summary := ToUserSummaryDTO(u)
	return &summary
}
