// Package policy decides what an actor may do with a task. Every function is
// pure: callers load the task and pass the actor's id.
package policy

import "github.com/yukikurage/task-tracker-api/internal/models"

// Relation is the actor's standing toward a task.
type Relation int

const (
	RelationNone Relation = iota
	RelationAssignee
	RelationCreator
)

func (r Relation) String() string {
	switch r {
	case RelationCreator:
		return "creator"
	case RelationAssignee:
		return "assignee"
	default:
		return "none"
	}
}

// Field is a task attribute subject to write checks.
type Field string

const (
	FieldTitle       Field = "title"
	FieldDescription Field = "description"
	FieldDeadline    Field = "deadline"
	FieldAssignedTo  Field = "assignedTo"
	FieldStatus      Field = "status"
)

// RelationOf returns how userID relates to task. Creator wins over assignee.
func RelationOf(task *models.Task, userID string) Relation {
	switch {
	case task.CreatedByID == userID:
		return RelationCreator
	case task.IsAssigned(userID):
		return RelationAssignee
	default:
		return RelationNone
	}
}

// CanRead is true for the creator and assignees.
func CanRead(rel Relation) bool {
	return rel != RelationNone
}

// CanWrite reports whether rel may change field.
func CanWrite(rel Relation, field Field) bool {
	switch rel {
	case RelationCreator:
		return true
	case RelationAssignee:
		return field == FieldStatus
	default:
		return false
	}
}

func CanComment(rel Relation) bool {
	return CanRead(rel)
}

// CanModifyComment allows edits and deletes only by the comment's author,
// and only while the author can still read the task.
func CanModifyComment(rel Relation, comment *models.Comment, userID string) bool {
	return CanRead(rel) && comment.AuthorID == userID
}

func CanDeleteTask(rel Relation) bool {
	return rel == RelationCreator
}
