package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/yukikurage/task-tracker-api/internal/constants"
	"github.com/yukikurage/task-tracker-api/internal/models"
	"github.com/yukikurage/task-tracker-api/internal/policy"
	"github.com/yukikurage/task-tracker-api/internal/repository"
)

var (
	ErrTaskNotFound            = errors.New("task not found or not authorized")
	ErrTitleRequired           = errors.New("task title is required")
	ErrTitleTooLong            = errors.New("title cannot exceed 60 characters")
	ErrDescriptionTooLong      = errors.New("description cannot exceed 255 characters")
	ErrDeadlineRequired        = errors.New("deadline is required")
	ErrDeadlineNotFuture       = errors.New("deadline must be in the future")
	ErrInvalidStatus           = errors.New("valid status is required: Pending, In Progress, Completed, or Overdue")
	ErrCompletedTaskNotOverdue = errors.New("a completed task cannot be marked overdue")
	ErrTaskNotYetOverdue       = errors.New("task cannot be marked overdue before its deadline")
	ErrNoFieldsToUpdate        = errors.New("no valid fields to update")
	ErrHumanRefExhausted       = errors.New("could not allocate a task reference, please retry")
	ErrAIServiceNotConfigured  = errors.New("AI service is not configured")
	ErrAITextRequired          = errors.New("text is required")
	ErrAINoTasksGenerated      = errors.New("AI did not generate any tasks")
	ErrAINoValidTasks          = errors.New("no valid tasks could be created from AI output")
)

var fieldLabels = map[policy.Field]string{
	policy.FieldTitle:       "title",
	policy.FieldDescription: "description",
	policy.FieldDeadline:    "deadline",
	policy.FieldAssignedTo:  "assigned users",
	policy.FieldStatus:      "status",
}

// FieldForbiddenError is returned when the actor can read a task but may not change Field.
type FieldForbiddenError struct {
	Field policy.Field
}

func (e *FieldForbiddenError) Error() string {
	return "only task owner can update " + fieldLabels[e.Field]
}

// UnknownAssigneeError names the identifier that matched no user.
type UnknownAssigneeError struct {
	Identifier string
}

func (e *UnknownAssigneeError) Error() string {
	return "user not found: " + e.Identifier
}

// TaskService handles task business logic
type TaskService struct {
	taskRepo  repository.TaskRepository
	userRepo  repository.UserRepository
	generator TaskDraftGenerator
	now       func() time.Time
}

// NewTaskService creates a new TaskService. generator may be nil, which
// disables task drafting.
func NewTaskService(taskRepo repository.TaskRepository, userRepo repository.UserRepository, generator TaskDraftGenerator) *TaskService {
	return &TaskService{
		taskRepo:  taskRepo,
		userRepo:  userRepo,
		generator: generator,
		now:       time.Now,
	}
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	Title       string
	Description string
	Deadline    *time.Time
	AssignedTo  []string
	CreatorID   string
}

// UpdateTaskInput holds the fields present in a PATCH; nil means absent.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Status      *models.TaskStatus
	AssignedTo  *[]string
	Deadline    *time.Time
}

func (in UpdateTaskInput) empty() bool {
	return in.Title == nil && in.Description == nil && in.Status == nil &&
		in.AssignedTo == nil && in.Deadline == nil
}

// ListTasksInput represents paging for listing tasks
type ListTasksInput struct {
	UserID string
	Offset int
	// Limit of zero returns every visible task
	Limit int
}

// FormatHumanRef renders a sequence number as TASK-000042.
func FormatHumanRef(seq int64) string {
	return fmt.Sprintf("%s%06d", constants.HumanRefPrefix, seq)
}

// Now returns the service clock; responses project status against it.
func (s *TaskService) Now() time.Time {
	return s.now()
}

// CreateTask validates the input, resolves assignees and stores a task under
// the next human reference. A reference taken by a concurrent writer is retried.
func (s *TaskService) CreateTask(ctx context.Context, input CreateTaskInput) (*models.Task, error) {
	now := s.now()

	title, err := cleanTitle(input.Title)
	if err != nil {
		return nil, err
	}
	description, err := cleanDescription(input.Description)
	if err != nil {
		return nil, err
	}
	if input.Deadline == nil {
		return nil, ErrDeadlineRequired
	}
	if !input.Deadline.After(now) {
		return nil, ErrDeadlineNotFuture
	}

	assignees, err := s.resolveAssignees(ctx, input.AssignedTo)
	if err != nil {
		return nil, err
	}

	task := &models.Task{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		Deadline:    input.Deadline.UTC(),
		Status:      models.TaskStatusPending,
		CreatedByID: input.CreatorID,
		AssigneeIDs: assignees,
		Comments:    []models.Comment{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	for attempt := 0; attempt < constants.MaxHumanRefAttempts; attempt++ {
		seq, err := s.taskRepo.NextSequence(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to allocate task reference: %w", err)
		}
		task.Seq = seq
		task.HumanRef = FormatHumanRef(seq)

		err = s.taskRepo.Create(ctx, task)
		if err == nil {
			return task, nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("failed to create task: %w", err)
		}
	}

	return nil, ErrHumanRefExhausted
}

// ListTasks returns the tasks the user created or is assigned to, newest first.
func (s *TaskService) ListTasks(ctx context.Context, input ListTasksInput) ([]models.Task, int64, error) {
	tasks, total, err := s.taskRepo.List(ctx, repository.TaskFilter{
		UserID: input.UserID,
		Offset: input.Offset,
		Limit:  input.Limit,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, total, nil
}

// GetTask returns a task the actor can read.
func (s *TaskService) GetTask(ctx context.Context, taskID, actorID string) (*models.Task, error) {
	task, _, err := s.loadVisible(ctx, taskID, actorID)
	return task, err
}

// UpdateTask applies a partial update. Fields are checked in a fixed order,
// permission first and then value, so the first offending field decides the error.
func (s *TaskService) UpdateTask(ctx context.Context, taskID, actorID string, input UpdateTaskInput) (*models.Task, error) {
	task, rel, err := s.loadVisible(ctx, taskID, actorID)
	if err != nil {
		return nil, err
	}
	if input.empty() {
		return nil, ErrNoFieldsToUpdate
	}

	now := s.now()

	if input.Title != nil {
		if !policy.CanWrite(rel, policy.FieldTitle) {
			return nil, &FieldForbiddenError{Field: policy.FieldTitle}
		}
		title, err := cleanTitle(*input.Title)
		if err != nil {
			return nil, err
		}
		task.Title = title
	}

	if input.Description != nil {
		if !policy.CanWrite(rel, policy.FieldDescription) {
			return nil, &FieldForbiddenError{Field: policy.FieldDescription}
		}
		description, err := cleanDescription(*input.Description)
		if err != nil {
			return nil, err
		}
		task.Description = description
	}

	if input.Status != nil {
		if !policy.CanWrite(rel, policy.FieldStatus) {
			return nil, &FieldForbiddenError{Field: policy.FieldStatus}
		}
		status := *input.Status
		if !status.Valid() {
			return nil, ErrInvalidStatus
		}
		if status == models.TaskStatusOverdue && task.Status == models.TaskStatusCompleted {
			return nil, ErrCompletedTaskNotOverdue
		}
		task.Status = status
	}

	if input.AssignedTo != nil {
		if !policy.CanWrite(rel, policy.FieldAssignedTo) {
			return nil, &FieldForbiddenError{Field: policy.FieldAssignedTo}
		}
		assignees, err := s.resolveAssignees(ctx, *input.AssignedTo)
		if err != nil {
			return nil, err
		}
		task.AssigneeIDs = assignees
	}

	if input.Deadline != nil {
		if !policy.CanWrite(rel, policy.FieldDeadline) {
			return nil, &FieldForbiddenError{Field: policy.FieldDeadline}
		}
		if !input.Deadline.After(now) {
			return nil, ErrDeadlineNotFuture
		}
		task.Deadline = input.Deadline.UTC()
	}

	// Overdue is derived from the deadline; it can be requested only once it is true.
	overdue := task.IsOverdue(now)
	switch {
	case input.Status != nil && *input.Status == models.TaskStatusOverdue && !overdue:
		return nil, ErrTaskNotYetOverdue
	case overdue:
		task.Status = models.TaskStatusOverdue
	case task.Status == models.TaskStatusOverdue:
		task.Status = models.TaskStatusPending
	}
	task.UpdatedAt = now

	if err := s.taskRepo.Update(ctx, task); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	return s.reload(ctx, task.ID)
}

// DeleteTask removes a task. Anyone but the creator sees it as missing.
func (s *TaskService) DeleteTask(ctx context.Context, taskID, actorID string) error {
	_, rel, err := s.loadVisible(ctx, taskID, actorID)
	if err != nil {
		return err
	}
	if !policy.CanDeleteTask(rel) {
		return ErrTaskNotFound
	}

	if err := s.taskRepo.Delete(ctx, taskID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

// UsersFor loads every user referenced by tasks, keyed by id. Missing users
// are simply absent from the map.
func (s *TaskService) UsersFor(ctx context.Context, tasks ...models.Task) (map[string]models.User, error) {
	seen := make(map[string]struct{})
	ids := make([]string, 0)
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	for _, task := range tasks {
		add(task.CreatedByID)
		for _, id := range task.AssigneeIDs {
			add(id)
		}
		for _, c := range task.Comments {
			add(c.AuthorID)
		}
	}

	users, err := s.userRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}

	byID := make(map[string]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	return byID, nil
}

// loadVisible fetches a task and the actor's relation to it. Tasks the actor
// cannot read are reported exactly like missing ones.
func (s *TaskService) loadVisible(ctx context.Context, taskID, actorID string) (*models.Task, policy.Relation, error) {
	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, policy.RelationNone, ErrTaskNotFound
		}
		return nil, policy.RelationNone, fmt.Errorf("failed to find task: %w", err)
	}

	rel := policy.RelationOf(task, actorID)
	if !policy.CanRead(rel) {
		return nil, policy.RelationNone, ErrTaskNotFound
	}
	return task, rel, nil
}

func (s *TaskService) reload(ctx context.Context, taskID string) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to reload task: %w", err)
	}
	return task, nil
}

// resolveAssignees maps usernames or emails to user ids, keeping first-seen
// order and dropping duplicates. Blank identifiers are skipped; any unknown
// identifier fails the whole call.
func (s *TaskService) resolveAssignees(ctx context.Context, identifiers []string) ([]string, error) {
	ids := make([]string, 0, len(identifiers))
	seen := make(map[string]struct{}, len(identifiers))

	for _, raw := range identifiers {
		identifier := strings.TrimSpace(raw)
		if identifier == "" {
			continue
		}

		user, err := s.userRepo.FindByUsername(ctx, identifier)
		if errors.Is(err, repository.ErrNotFound) {
			user, err = s.userRepo.FindByEmail(ctx, strings.ToLower(identifier))
		}
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, &UnknownAssigneeError{Identifier: raw}
			}
			return nil, fmt.Errorf("failed to resolve assignee: %w", err)
		}

		if _, dup := seen[user.ID]; dup {
			continue
		}
		seen[user.ID] = struct{}{}
		ids = append(ids, user.ID)
	}

	return ids, nil
}

func cleanTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", ErrTitleRequired
	}
	if utf8.RuneCountInString(title) > constants.MaxTitleLength {
		return "", ErrTitleTooLong
	}
	return title, nil
}

func cleanDescription(description string) (string, error) {
	description = strings.TrimSpace(description)
	if utf8.RuneCountInString(description) > constants.MaxDescriptionLength {
		return "", ErrDescriptionTooLong
	}
	return description, nil
}
