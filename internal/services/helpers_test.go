package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yukikurage/task-tracker-api/internal/database"
	"github.com/yukikurage/task-tracker-api/internal/models"
	"github.com/yukikurage/task-tracker-api/internal/repository"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testPassword = "Passw0rd!"

type testEnv struct {
	db      *gorm.DB
	users   repository.UserRepository
	tasks   repository.TaskRepository
	auth    *AuthService
	taskSvc *TaskService
	clock   time.Time
	ctx     context.Context
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

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

	env := &testEnv{
		db:    db,
		users: repository.NewUserRepository(db),
		tasks: repository.NewTaskRepository(db),
		clock: time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC),
		ctx:   context.Background(),
	}
	env.auth = NewAuthService(env.users, bcrypt.MinCost)
	env.auth.now = env.now
	env.taskSvc = NewTaskService(env.tasks, env.users, nil)
	env.taskSvc.now = env.now
	return env
}

func (e *testEnv) now() time.Time {
	return e.clock
}

func (e *testEnv) register(t *testing.T, username string) *models.User {
	t.Helper()
	user, err := e.auth.Register(e.ctx, RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Password: testPassword,
	})
	require.NoError(t, err)
	return user
}

func (e *testEnv) createTask(t *testing.T, creator *models.User, assignees ...string) *models.Task {
	t.Helper()
	deadline := e.clock.Add(time.Hour)
	task, err := e.taskSvc.CreateTask(e.ctx, CreateTaskInput{
		Title:      "Write report",
		Deadline:   &deadline,
		AssignedTo: assignees,
		CreatorID:  creator.ID,
	})
	require.NoError(t, err)
	return task
}
