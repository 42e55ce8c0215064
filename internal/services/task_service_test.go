package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/task-tracker-api/internal/models"
	"github.com/yukikurage/task-tracker-api/internal/policy"
	"github.com/yukikurage/task-tracker-api/internal/repository"
)

type TaskServiceTestSuite struct {
	suite.Suite
	env   *testEnv
	alice *models.User
	bob   *models.User
	carol *models.User
}

func (s *TaskServiceTestSuite) SetupTest() {
	s.env = setupTestEnv(s.T())
	s.alice = s.env.register(s.T(), "alice")
	s.bob = s.env.register(s.T(), "bob")
	s.carol = s.env.register(s.T(), "carol")
}

func (s *TaskServiceTestSuite) tick() {
	s.env.clock = s.env.clock.Add(time.Second)
}

func (s *TaskServiceTestSuite) TestCreateTask_AssignsSequentialHumanRefs() {
	first := s.env.createTask(s.T(), s.alice)
	s.tick()
	second := s.env.createTask(s.T(), s.alice)

	s.Equal("TASK-000001", first.HumanRef)
	s.Equal("TASK-000002", second.HumanRef)
	s.Equal(models.TaskStatusPending, first.Status)
}

func (s *TaskServiceTestSuite) TestCreateTask_HumanRefNotReusedAfterDelete() {
	s.env.createTask(s.T(), s.alice)
	second := s.env.createTask(s.T(), s.alice)
	s.Require().NoError(s.env.taskSvc.DeleteTask(s.env.ctx, second.ID, s.alice.ID))

	third := s.env.createTask(s.T(), s.alice)
	s.Equal("TASK-000003", third.HumanRef)
}

func (s *TaskServiceTestSuite) TestCreateTask_DeadlineMustBeFuture() {
	past := s.env.clock.Add(-time.Second)
	_, err := s.env.taskSvc.CreateTask(s.env.ctx, CreateTaskInput{
		Title:     "Too late",
		Deadline:  &past,
		CreatorID: s.alice.ID,
	})
	s.ErrorIs(err, ErrDeadlineNotFuture)

	_, err = s.env.taskSvc.CreateTask(s.env.ctx, CreateTaskInput{Title: "No deadline", CreatorID: s.alice.ID})
	s.ErrorIs(err, ErrDeadlineRequired)
}

func (s *TaskServiceTestSuite) TestCreateTask_ResolvesAssignees() {
	task := s.env.createTask(s.T(), s.alice, "bob", "CAROL@example.com", "  ", "bob")

	s.Equal([]string{s.bob.ID, s.carol.ID}, task.AssigneeIDs)

	stored, err := s.env.tasks.FindByID(s.env.ctx, task.ID)
	s.Require().NoError(err)
	s.Equal([]string{s.bob.ID, s.carol.ID}, stored.AssigneeIDs)
}

func (s *TaskServiceTestSuite) TestCreateTask_UnknownAssigneeAbortsCreation() {
	deadline := s.env.clock.Add(time.Hour)
	_, err := s.env.taskSvc.CreateTask(s.env.ctx, CreateTaskInput{
		Title:      "Partial",
		Deadline:   &deadline,
		AssignedTo: []string{"bob", "ghost"},
		CreatorID:  s.alice.ID,
	})

	var unknown *UnknownAssigneeError
	s.Require().True(errors.As(err, &unknown))
	s.Equal("ghost", unknown.Identifier)
	s.Equal("user not found: ghost", err.Error())

	tasks, total, err := s.env.taskSvc.ListTasks(s.env.ctx, ListTasksInput{UserID: s.alice.ID})
	s.Require().NoError(err)
	s.Empty(tasks)
	s.Zero(total)
}

func (s *TaskServiceTestSuite) TestCreateTask_RetriesDuplicateHumanRef() {
	flaky := &flakyTaskRepository{TaskRepository: s.env.tasks, failures: 2}
	s.env.taskSvc.taskRepo = flaky

	task := s.env.createTask(s.T(), s.alice)

	s.Equal(3, flaky.calls)
	s.Equal("TASK-000001", task.HumanRef)
}

func (s *TaskServiceTestSuite) TestCreateTask_GivesUpAfterRepeatedDuplicates() {
	flaky := &flakyTaskRepository{TaskRepository: s.env.tasks, failures: 100}
	s.env.taskSvc.taskRepo = flaky

	deadline := s.env.clock.Add(time.Hour)
	_, err := s.env.taskSvc.CreateTask(s.env.ctx, CreateTaskInput{Title: "Contended", Deadline: &deadline, CreatorID: s.alice.ID})

	s.ErrorIs(err, ErrHumanRefExhausted)
	s.Equal(5, flaky.calls)
}

func (s *TaskServiceTestSuite) TestAuthorizationMatrix() {
	task := s.env.createTask(s.T(), s.alice, "bob")

	status := models.TaskStatusInProgress
	updated, err := s.env.taskSvc.UpdateTask(s.env.ctx, task.ID, s.bob.ID, UpdateTaskInput{Status: &status})
	s.Require().NoError(err)
	s.Equal(models.TaskStatusInProgress, updated.Status)

	title := "Renamed by assignee"
	_, err = s.env.taskSvc.UpdateTask(s.env.ctx, task.ID, s.bob.ID, UpdateTaskInput{Title: &title})
	var forbidden *FieldForbiddenError
	s.Require().True(errors.As(err, &forbidden))
	s.Equal(policy.FieldTitle, forbidden.Field)
	s.Equal("only task owner can update title", err.Error())

	title = "Renamed by creator"
	updated, err = s.env.taskSvc.UpdateTask(s.env.ctx, task.ID, s.alice.ID, UpdateTaskInput{Title: &title})
	s.Require().NoError(err)
	s.Equal("Renamed by creator", updated.Title)

	_, err = s.env.taskSvc.GetTask(s.env.ctx, task.ID, s.carol.ID)
	s.ErrorIs(err, ErrTaskNotFound)
	_, err = s.env.taskSvc.UpdateTask(s.env.ctx, task.ID, s.carol.ID, UpdateTaskInput{Status: &status})
	s.ErrorIs(err, ErrTaskNotFound)
	_, err = s.env.taskSvc.AddComment(s.env.ctx, task.ID, s.carol.ID, "hello", nil)
	s.ErrorIs(err, ErrTaskNotFound)
}

func (s *TaskServiceTestSuite) TestUpdateTask_AssigneeCannotReassign() {
	task := s.env.createTask(s.T(), s.alice, "bob")

	assignees := []string{"carol"}
	_, err := s.env.taskSvc.UpdateTask(s.env.ctx, task.ID, s.bob.ID, UpdateTaskInput{AssignedTo: &assignees})
	var forbidden *FieldForbiddenError
	s.Require().True(errors.As(err, &forbidden))
	s.Equal("only task owner can update assigned users", err.Error())

	updated, err := s.env.taskSvc.UpdateTask(s.env.ctx, task.ID, s.alice.ID, UpdateTaskInput{AssignedTo: &assignees})
	s.Require().NoError(err)
	s.Equal([]string{s.carol.ID}, updated.AssigneeIDs)

	// bob lost access with the reassignment
	_, err = s.env.taskSvc.GetTask(s.env.ctx, task.ID, s.bob.ID)
	s.ErrorIs(err, ErrTaskNotFound)
}

func (s *TaskServiceTestSuite) TestUpdateTask_Validation() {
	task := s.env.createTask(s.T(), s.alice)

	_, err := s.env.taskSvc.UpdateTask(s.env.ctx, task.ID, s.alice.ID, UpdateTaskInput{})
	s.ErrorIs(err, ErrNoFieldsToUpdate)

	blank := "   "
	_, err = s.env.taskSvc.UpdateTask(s.env.ctx, task.ID, s.alice.ID, UpdateTaskInput{Title: &blank})
	s.ErrorIs(err, ErrTitleRequired)

	bogus := models.TaskStatus("Done")
	_, err = s.env.taskSvc.UpdateTask(s.env.ctx, task.ID, s.alice.ID, UpdateTaskInput{Status: &bogus})
	s.ErrorIs(err, ErrInvalidStatus)

	past := s.env.clock.Add(-time.Minute)
	_, err = s.env.taskSvc.UpdateTask(s.env.ctx, task.ID, s.alice.ID, UpdateTaskInput{Deadline: &past})
	s.ErrorIs(err, ErrDeadlineNotFuture)
}

func (s *TaskServiceTestSuite) TestOverdueProjection() {
	task := s.env.createTask(s.T(), s.alice, "bob")
	s.env.clock = task.Deadline.Add(time.Minute)

	loaded, err := s.env.taskSvc.GetTask(s.env.ctx, task.ID, s.bob.ID)
	s.Require().NoError(err)
	s.Equal(models.TaskStatusPending, loaded.Status)
	s.Equal(models.TaskStatusOverdue, loaded.EffectiveStatus(s.env.taskSvc.Now()))

	// Writes normalize the stored status too.
	inProgress := models.TaskStatusInProgress
	updated, err := s.env.taskSvc.UpdateTask(s.env.ctx, task.ID, s.bob.ID, UpdateTaskInput{Status: &inProgress})
	s.Require().NoError(err)
	s.Equal(models.TaskStatusOverdue, updated.Status)

	completed := models.TaskStatusCompleted
	updated, err = s.env.taskSvc.UpdateTask(s.env.ctx, task.ID, s.bob.ID, UpdateTaskInput{Status: &completed})
	s.Require().NoError(err)
	s.Equal(models.TaskStatusCompleted, updated.Status)
	s.Equal(models.TaskStatusCompleted, updated.EffectiveStatus(s.env.taskSvc.Now()))
}

func (s *TaskServiceTestSuite) TestOverdueRequests() {
	task := s.env.createTask(s.T(), s.alice)
	overdue := models.TaskStatusOverdue

	_, err := s.env.taskSvc.UpdateTask(s.env.ctx, task.ID, s.alice.ID, UpdateTaskInput{Status: &overdue})
	s.ErrorIs(err, ErrTaskNotYetOverdue)

	completed := models.TaskStatusCompleted
	_, err = s.env.taskSvc.UpdateTask(s.env.ctx, task.ID, s.alice.ID, UpdateTaskInput{Status: &completed})
	s.Require().NoError(err)

	s.env.clock = task.Deadline.Add(time.Hour)
	_, err = s.env.taskSvc.UpdateTask(s.env.ctx, task.ID, s.alice.ID, UpdateTaskInput{Status: &overdue})
	s.ErrorIs(err, ErrCompletedTaskNotOverdue)

	pending := models.TaskStatusPending
	_, err = s.env.taskSvc.UpdateTask(s.env.ctx, task.ID, s.alice.ID, UpdateTaskInput{Status: &pending})
	s.Require().NoError(err)

	updated, err := s.env.taskSvc.UpdateTask(s.env.ctx, task.ID, s.alice.ID, UpdateTaskInput{Status: &overdue})
	s.Require().NoError(err)
	s.Equal(models.TaskStatusOverdue, updated.Status)
}

func (s *TaskServiceTestSuite) TestUpdateTask_MovingDeadlineClearsOverdue() {
	task := s.env.createTask(s.T(), s.alice)
	s.env.clock = task.Deadline.Add(time.Minute)

	title := "Still late"
	updated, err := s.env.taskSvc.UpdateTask(s.env.ctx, task.ID, s.alice.ID, UpdateTaskInput{Title: &title})
	s.Require().NoError(err)
	s.Equal(models.TaskStatusOverdue, updated.Status)

	later := s.env.clock.Add(24 * time.Hour)
	updated, err = s.env.taskSvc.UpdateTask(s.env.ctx, task.ID, s.alice.ID, UpdateTaskInput{Deadline: &later})
	s.Require().NoError(err)
	s.Equal(models.TaskStatusPending, updated.Status)
}

func (s *TaskServiceTestSuite) TestDeleteTask_CreatorOnly() {
	task := s.env.createTask(s.T(), s.alice, "bob")

	s.ErrorIs(s.env.taskSvc.DeleteTask(s.env.ctx, task.ID, s.bob.ID), ErrTaskNotFound)
	s.ErrorIs(s.env.taskSvc.DeleteTask(s.env.ctx, task.ID, s.carol.ID), ErrTaskNotFound)

	s.Require().NoError(s.env.taskSvc.DeleteTask(s.env.ctx, task.ID, s.alice.ID))
	_, err := s.env.taskSvc.GetTask(s.env.ctx, task.ID, s.alice.ID)
	s.ErrorIs(err, ErrTaskNotFound)
}

func (s *TaskServiceTestSuite) TestListTasks_VisibilityAndOrder() {
	older := s.env.createTask(s.T(), s.alice)
	s.tick()
	assigned := s.env.createTask(s.T(), s.bob, "alice")
	s.tick()
	s.env.createTask(s.T(), s.carol)

	tasks, total, err := s.env.taskSvc.ListTasks(s.env.ctx, ListTasksInput{UserID: s.alice.ID})
	s.Require().NoError(err)
	s.Equal(int64(2), total)
	s.Require().Len(tasks, 2)
	s.Equal(assigned.ID, tasks[0].ID)
	s.Equal(older.ID, tasks[1].ID)

	page, total, err := s.env.taskSvc.ListTasks(s.env.ctx, ListTasksInput{UserID: s.alice.ID, Offset: 1, Limit: 1})
	s.Require().NoError(err)
	s.Equal(int64(2), total)
	s.Require().Len(page, 1)
	s.Equal(older.ID, page[0].ID)
}

func (s *TaskServiceTestSuite) TestUsersFor() {
	task := s.env.createTask(s.T(), s.alice, "bob")

	users, err := s.env.taskSvc.UsersFor(s.env.ctx, *task)
	s.Require().NoError(err)
	s.Len(users, 2)
	s.Equal("alice", users[s.alice.ID].Username)
	s.Equal("bob", users[s.bob.ID].Username)
}

func TestTaskServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TaskServiceTestSuite))
}

// flakyTaskRepository reports a duplicate key for the first failures inserts.
type flakyTaskRepository struct {
	repository.TaskRepository
	failures int
	calls    int
}

func (r *flakyTaskRepository) Create(ctx context.Context, task *models.Task) error {
	r.calls++
	if r.calls <= r.failures {
		return repository.ErrDuplicate
	}
	return r.TaskRepository.Create(ctx, task)
}
