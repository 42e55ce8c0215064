package router

import (
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/task-tracker-api/internal/errors"
	"github.com/yukikurage/task-tracker-api/internal/handlers"
	"github.com/yukikurage/task-tracker-api/internal/middleware"
	"github.com/yukikurage/task-tracker-api/internal/utils"
)

// Handlers groups everything the router mounts
type Handlers struct {
	Auth     *handlers.AuthHandler
	Tasks    *handlers.TaskHandler
	Comments *handlers.CommentHandler
	Health   *handlers.HealthHandler
	Verifier middleware.TokenVerifier
}

// NewRouter builds the gin engine. allowedOrigin may be empty, in which case
// no cross-origin requests are allowed.
func NewRouter(h Handlers, allowedOrigin string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Printf("panic recovered on %s %s: %v", c.Request.Method, c.Request.URL.Path, recovered)
		apierrors.InternalError(c, "")
		c.Abort()
	}))

	if allowedOrigin != "" {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     []string{allowedOrigin},
			AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"},
			ExposeHeaders:    []string{"Content-Length", utils.TotalCountHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.GET("/health", h.Health.HealthCheck)

	requireAuth := middleware.RequireAuth(h.Verifier)

	auth := r.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.GET("/me", requireAuth, h.Auth.GetCurrentUser)
		auth.PATCH("/profile", requireAuth, h.Auth.UpdateProfile)
		auth.PATCH("/change-password", requireAuth, h.Auth.ChangePassword)
		auth.PATCH("/deactivate", requireAuth, h.Auth.Deactivate)
		auth.GET("/users", requireAuth, h.Auth.ListUsers)
	}

	tasks := r.Group("/tasks")
	tasks.Use(requireAuth)
	{
		tasks.GET("", h.Tasks.ListTasks)
		tasks.POST("", h.Tasks.CreateTask)
		tasks.POST("/generate", h.Tasks.GenerateTasks)

		task := tasks.Group("/:id", middleware.RequireValidIDs("id", "commentId"))
		{
			task.GET("", h.Tasks.GetTask)
			task.PATCH("", h.Tasks.UpdateTask)
			task.DELETE("", h.Tasks.DeleteTask)
			task.POST("/comments", h.Comments.AddComment)
			task.PATCH("/comments/:commentId", h.Comments.EditComment)
			task.DELETE("/comments/:commentId", h.Comments.DeleteComment)
			task.GET("/comments/:commentId/replies", h.Comments.ListReplies)
		}
	}

	return r
}
