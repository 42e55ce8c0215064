package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/task-tracker-api/internal/dto"
	apierrors "github.com/yukikurage/task-tracker-api/internal/errors"
	"github.com/yukikurage/task-tracker-api/internal/middleware"
	"github.com/yukikurage/task-tracker-api/internal/models"
	"github.com/yukikurage/task-tracker-api/internal/services"
)

// CommentHandler serves the threaded comments nested under a task.
// Every operation answers with the whole task, except ListReplies.
type CommentHandler struct {
	taskService *services.TaskService
	tasks       *TaskHandler
}

func NewCommentHandler(taskService *services.TaskService) *CommentHandler {
	return &CommentHandler{
		taskService: taskService,
		tasks:       NewTaskHandler(taskService),
	}
}

func (h *CommentHandler) AddComment(c *gin.Context) {
	type AddCommentRequest struct {
		Content         string  `json:"content"`
		ParentCommentID *string `json:"parentCommentId"`
	}

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	var req AddCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.AddComment(c.Request.Context(), c.Param("id"), userID, req.Content, req.ParentCommentID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	h.tasks.respondWithTask(c, http.StatusOK, task)
}

func (h *CommentHandler) EditComment(c *gin.Context) {
	type EditCommentRequest struct {
		Content string `json:"content"`
	}

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	var req EditCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.EditComment(c.Request.Context(), c.Param("id"), userID, c.Param("commentId"), req.Content)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	h.tasks.respondWithTask(c, http.StatusOK, task)
}

func (h *CommentHandler) DeleteComment(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	task, err := h.taskService.DeleteComment(c.Request.Context(), c.Param("id"), userID, c.Param("commentId"))
	if err != nil {
		respondTaskError(c, err)
		return
	}

	h.tasks.respondWithTask(c, http.StatusOK, task)
}

// ListReplies returns the direct replies to a comment
func (h *CommentHandler) ListReplies(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	replies, err := h.taskService.ListReplies(c.Request.Context(), c.Param("id"), userID, c.Param("commentId"))
	if err != nil {
		respondTaskError(c, err)
		return
	}

	users, err := h.taskService.UsersFor(c.Request.Context(), models.Task{Comments: replies})
	if err != nil {
		respondInternalError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToCommentDTOs(replies, users))
}
