package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/yukikurage/task-tracker-api/internal/models"
)

func TestRelationOf(t *testing.T) {
	task := &models.Task{CreatedByID: "alice", AssigneeIDs: []string{"bob", "alice"}}

	assert.Equal(t, RelationCreator, RelationOf(task, "alice"))
	assert.Equal(t, RelationAssignee, RelationOf(task, "bob"))
	assert.Equal(t, RelationNone, RelationOf(task, "carol"))
}

func TestCanWrite_Matrix(t *testing.T) {
	fields := []Field{FieldTitle, FieldDescription, FieldDeadline, FieldAssignedTo, FieldStatus}

	for _, f := range fields {
		assert.True(t, CanWrite(RelationCreator, f), "creator should write %s", f)
		assert.False(t, CanWrite(RelationNone, f), "outsider should not write %s", f)
		assert.Equal(t, f == FieldStatus, CanWrite(RelationAssignee, f), "assignee on %s", f)
	}
}

func TestTaskLevelRights(t *testing.T) {
	assert.True(t, CanRead(RelationCreator))
	assert.True(t, CanRead(RelationAssignee))
	assert.False(t, CanRead(RelationNone))

	assert.True(t, CanComment(RelationAssignee))
	assert.False(t, CanComment(RelationNone))

	assert.True(t, CanDeleteTask(RelationCreator))
	assert.False(t, CanDeleteTask(RelationAssignee))
	assert.False(t, CanDeleteTask(RelationNone))
}

func TestCanModifyComment(t *testing.T) {
	comment := &models.Comment{AuthorID: "bob"}

	assert.True(t, CanModifyComment(RelationAssignee, comment, "bob"))
	assert.False(t, CanModifyComment(RelationCreator, comment, "alice"))
	// an author who lost access to the task cannot touch the comment either
	assert.False(t, CanModifyComment(RelationNone, comment, "bob"))
}
