package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/task-tracker-api/internal/dto"
	apierrors "github.com/yukikurage/task-tracker-api/internal/errors"
	"github.com/yukikurage/task-tracker-api/internal/middleware"
	"github.com/yukikurage/task-tracker-api/internal/models"
	"github.com/yukikurage/task-tracker-api/internal/services"
	"github.com/yukikurage/task-tracker-api/internal/utils"
)

type TaskHandler struct {
	taskService *services.TaskService
}

func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
	}
}

// ListTasks returns the tasks the current user created or is assigned to,
// newest first. page and limit are optional.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	input := services.ListTasksInput{UserID: userID}
	if params, ok := utils.GetPaginationParams(c); ok {
		input.Offset = params.Offset
		input.Limit = params.Limit
	}

	tasks, total, err := h.taskService.ListTasks(c.Request.Context(), input)
	if err != nil {
		respondInternalError(c, err)
		return
	}

	users, err := h.taskService.UsersFor(c.Request.Context(), tasks...)
	if err != nil {
		respondInternalError(c, err)
		return
	}

	utils.SetTotalCount(c, total)
	c.JSON(http.StatusOK, dto.ToTaskDTOs(tasks, users, h.taskService.Now()))
}

// GetTask returns a specific task by ID
func (h *TaskHandler) GetTask(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	task, err := h.taskService.GetTask(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	h.respondWithTask(c, http.StatusOK, task)
}

// CreateTask creates a task owned by the current user
func (h *TaskHandler) CreateTask(c *gin.Context) {
	type CreateTaskRequest struct {
		Title       string        `json:"title"`
		Description string        `json:"description"`
		Deadline    *dto.Deadline `json:"deadline"`
		AssignedTo  []string      `json:"assignedTo"`
	}

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), services.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Deadline:    req.Deadline.Time(),
		AssignedTo:  req.AssignedTo,
		CreatorID:   userID,
	})
	if err != nil {
		respondTaskError(c, err)
		return
	}

	h.respondWithTask(c, http.StatusCreated, task)
}

// UpdateTask applies the fields present in the body
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	type UpdateTaskRequest struct {
		Title       *string            `json:"title"`
		Description *string            `json:"description"`
		Status      *models.TaskStatus `json:"status"`
		AssignedTo  *[]string          `json:"assignedTo"`
		Deadline    *dto.Deadline      `json:"deadline"`
	}

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.UpdateTask(c.Request.Context(), c.Param("id"), userID, services.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		AssignedTo:  req.AssignedTo,
		Deadline:    req.Deadline.Time(),
	})
	if err != nil {
		respondTaskError(c, err)
		return
	}

	h.respondWithTask(c, http.StatusOK, task)
}

// DeleteTask deletes a task. Only its creator may do so.
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	if err := h.taskService.DeleteTask(c.Request.Context(), c.Param("id"), userID); err != nil {
		respondTaskError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GenerateTasks drafts task suggestions from free text. Nothing is stored.
func (h *TaskHandler) GenerateTasks(c *gin.Context) {
	type GenerateTasksRequest struct {
		Text string `json:"text" binding:"required"`
	}

	var req GenerateTasksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Text is required")
		return
	}

	drafts, err := h.taskService.GenerateTasks(c.Request.Context(), req.Text)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	items := make([]dto.TaskDraftDTO, len(drafts))
	for i, d := range drafts {
		items[i] = dto.TaskDraftDTO{
			Title:       d.Title,
			Description: d.Description,
			Deadline:    d.Deadline,
		}
	}

	c.JSON(http.StatusOK, gin.H{"tasks": items})
}

// respondWithTask writes task with its users populated
func (h *TaskHandler) respondWithTask(c *gin.Context, status int, task *models.Task) {
	users, err := h.taskService.UsersFor(c.Request.Context(), *task)
	if err != nil {
		respondInternalError(c, err)
		return
	}

	c.JSON(status, dto.ToTaskDTO(*task, users, h.taskService.Now()))
}

func respondTaskError(c *gin.Context, err error) {
	var forbidden *services.FieldForbiddenError
	var unknownAssignee *services.UnknownAssigneeError

	switch {
	case errors.As(err, &forbidden):
		apierrors.Forbidden(c, forbidden.Error())
	case errors.As(err, &unknownAssignee):
		apierrors.BadRequest(c, unknownAssignee.Error())
	case errors.Is(err, services.ErrTaskNotFound),
		errors.Is(err, services.ErrCommentNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrTitleRequired),
		errors.Is(err, services.ErrTitleTooLong),
		errors.Is(err, services.ErrDescriptionTooLong),
		errors.Is(err, services.ErrDeadlineRequired),
		errors.Is(err, services.ErrDeadlineNotFuture),
		errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrNoFieldsToUpdate),
		errors.Is(err, services.ErrCommentRequired),
		errors.Is(err, services.ErrCommentTooLong),
		errors.Is(err, services.ErrParentCommentNotFound),
		errors.Is(err, services.ErrAITextRequired):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrCompletedTaskNotOverdue),
		errors.Is(err, services.ErrTaskNotYetOverdue),
		errors.Is(err, services.ErrCommentHasReplies):
		apierrors.BadRequestWithCode(c, apierrors.ErrCodeInvalidOperation, err.Error())
	case errors.Is(err, services.ErrHumanRefExhausted):
		apierrors.Conflict(c, err.Error())
	case errors.Is(err, services.ErrAIServiceNotConfigured):
		apierrors.ServiceUnavailable(c, "AI service is not configured. Please set OPENAI_API_KEY environment variable.")
	case errors.Is(err, services.ErrAINoTasksGenerated),
		errors.Is(err, services.ErrAINoValidTasks):
		apierrors.RespondWithError(c, http.StatusUnprocessableEntity,
			apierrors.NewAPIError(apierrors.ErrCodeInvalidOperation, err.Error()))
	default:
		respondInternalError(c, err)
	}
}
