package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/yukikurage/task-tracker-api/internal/constants"
	"github.com/yukikurage/task-tracker-api/internal/models"
	"github.com/yukikurage/task-tracker-api/internal/policy"
	"github.com/yukikurage/task-tracker-api/internal/repository"
)

var (
	ErrCommentRequired       = errors.New("comment content is required")
	ErrCommentTooLong        = errors.New("comment cannot exceed 1000 characters")
	ErrParentCommentNotFound = errors.New("parent comment not found")
	ErrCommentNotFound       = errors.New("comment not found or not authorized")
	ErrCommentHasReplies     = errors.New("cannot delete comment that has replies, delete the replies first")
)

// AddComment appends a comment, optionally as a reply to one already on the task.
func (s *TaskService) AddComment(ctx context.Context, taskID, actorID, content string, parentCommentID *string) (*models.Task, error) {
	task, rel, err := s.loadVisible(ctx, taskID, actorID)
	if err != nil {
		return nil, err
	}
	if !policy.CanComment(rel) {
		return nil, ErrTaskNotFound
	}

	content, err = cleanComment(content)
	if err != nil {
		return nil, err
	}

	var parent *string
	if parentCommentID != nil && strings.TrimSpace(*parentCommentID) != "" {
		id := strings.TrimSpace(*parentCommentID)
		if task.FindComment(id) == nil {
			return nil, ErrParentCommentNotFound
		}
		parent = &id
	}

	now := s.now()
	comment := &models.Comment{
		ID:              uuid.NewString(),
		AuthorID:        actorID,
		Content:         content,
		ParentCommentID: parent,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.taskRepo.AddComment(ctx, task.ID, comment); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrTaskNotFound
		case errors.Is(err, repository.ErrParentNotFound):
			return nil, ErrParentCommentNotFound
		}
		return nil, fmt.Errorf("failed to add comment: %w", err)
	}

	return s.reload(ctx, task.ID)
}

// EditComment replaces the content of a comment written by the actor.
func (s *TaskService) EditComment(ctx context.Context, taskID, actorID, commentID, content string) (*models.Task, error) {
	task, rel, err := s.loadVisible(ctx, taskID, actorID)
	if err != nil {
		return nil, err
	}

	comment := task.FindComment(commentID)
	if comment == nil || !policy.CanModifyComment(rel, comment, actorID) {
		return nil, ErrCommentNotFound
	}

	content, err = cleanComment(content)
	if err != nil {
		return nil, err
	}

	if err := s.taskRepo.UpdateCommentContent(ctx, task.ID, comment.ID, content, s.now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, fmt.Errorf("failed to update comment: %w", err)
	}

	return s.reload(ctx, task.ID)
}

// DeleteComment removes a comment written by the actor. Comments with replies
// stay until the replies are gone.
func (s *TaskService) DeleteComment(ctx context.Context, taskID, actorID, commentID string) (*models.Task, error) {
	task, rel, err := s.loadVisible(ctx, taskID, actorID)
	if err != nil {
		return nil, err
	}

	comment := task.FindComment(commentID)
	if comment == nil || !policy.CanModifyComment(rel, comment, actorID) {
		return nil, ErrCommentNotFound
	}
	if len(task.Replies(comment.ID)) > 0 {
		return nil, ErrCommentHasReplies
	}

	if err := s.taskRepo.DeleteComment(ctx, task.ID, comment.ID); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrCommentNotFound
		case errors.Is(err, repository.ErrHasReplies):
			return nil, ErrCommentHasReplies
		}
		return nil, fmt.Errorf("failed to delete comment: %w", err)
	}

	return s.reload(ctx, task.ID)
}

// ListReplies returns the direct replies to commentID. An unknown comment has none.
func (s *TaskService) ListReplies(ctx context.Context, taskID, actorID, commentID string) ([]models.Comment, error) {
	task, _, err := s.loadVisible(ctx, taskID, actorID)
	if err != nil {
		return nil, err
	}
	return task.Replies(commentID), nil
}

func cleanComment(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", ErrCommentRequired
	}
	if utf8.RuneCountInString(content) > constants.MaxCommentLength {
		return "", ErrCommentTooLong
	}
	return content, nil
}
