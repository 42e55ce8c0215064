package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/task-tracker-api/internal/auth"
	"github.com/yukikurage/task-tracker-api/internal/database"
	"github.com/yukikurage/task-tracker-api/internal/models"
	"github.com/yukikurage/task-tracker-api/internal/repository"
	"github.com/yukikurage/task-tracker-api/internal/services"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testPassword = "Passw0rd!"

type handlerTestEnv struct {
	db          *gorm.DB
	tokens      *auth.TokenIssuer
	authService *services.AuthService
	taskService *services.TaskService
}

func setupHandlerTestEnv(t *testing.T) *handlerTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	require.NoError(t, database.Migrate(db))

	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)

	return &handlerTestEnv{
		db:          db,
		tokens:      auth.NewTokenIssuer("test-secret"),
		authService: services.NewAuthService(userRepo, bcrypt.MinCost),
		taskService: services.NewTaskService(taskRepo, userRepo, nil),
	}
}

// registerUser creates a user and returns it with a valid bearer token.
func (e *handlerTestEnv) registerUser(t *testing.T, username string) (*models.User, string) {
	t.Helper()

	user, err := e.authService.Register(context.Background(), services.RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Password: testPassword,
	})
	require.NoError(t, err)

	token, err := e.tokens.Issue(user)
	require.NoError(t, err)
	return user, token
}

func performRequest(r http.Handler, method, path string, payload any, token string) *httptest.ResponseRecorder {
	var body bytes.Buffer
	if payload != nil {
		_ = json.NewEncoder(&body).Encode(payload)
	}

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeJSON[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}
