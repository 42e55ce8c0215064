package repository

import (
	"context"
	"errors"
	"time"

	"github.com/yukikurage/task-tracker-api/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names shared with the index setup in the database package.
const (
	UsersCollection    = "users"
	TasksCollection    = "tasks"
	CountersCollection = "counters"

	taskSequenceKey = "task_ref"
)

// MongoTaskRepository stores each task as one document with embedded comments.
type MongoTaskRepository struct {
	tasks    *mongo.Collection
	counters *mongo.Collection
}

// NewMongoTaskRepository creates a TaskRepository backed by MongoDB
func NewMongoTaskRepository(db *mongo.Database) TaskRepository {
	return &MongoTaskRepository{
		tasks:    db.Collection(TasksCollection),
		counters: db.Collection(CountersCollection),
	}
}

// NextSequence atomically increments the task counter.
func (r *MongoTaskRepository) NextSequence(ctx context.Context) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	err := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": taskSequenceKey},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, err
	}
	return counter.Seq, nil
}

func (r *MongoTaskRepository) Create(ctx context.Context, task *models.Task) error {
	if task.AssigneeIDs == nil {
		task.AssigneeIDs = []string{}
	}
	if task.Comments == nil {
		task.Comments = []models.Comment{}
	}
	_, err := r.tasks.InsertOne(ctx, task)
	return translateMongoError(err)
}

func (r *MongoTaskRepository) FindByID(ctx context.Context, id string) (*models.Task, error) {
	var task models.Task
	if err := r.tasks.FindOne(ctx, bson.M{"_id": id}).Decode(&task); err != nil {
		return nil, translateMongoError(err)
	}
	setCommentTaskIDs(&task)
	return &task, nil
}

func (r *MongoTaskRepository) List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error) {
	query := bson.M{}
	if filter.UserID != "" {
		query = bson.M{"$or": bson.A{
			bson.M{"created_by": filter.UserID},
			bson.M{"assigned_to": filter.UserID},
		}}
	}

	total, err := r.tasks.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().SetSort(bson.D{
		{Key: "created_at", Value: -1},
		{Key: "seq", Value: -1},
	})
	if filter.Limit > 0 {
		opts.SetSkip(int64(filter.Offset)).SetLimit(int64(filter.Limit))
	}

	cursor, err := r.tasks.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}

	tasks := []models.Task{}
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, 0, err
	}
	for i := range tasks {
		setCommentTaskIDs(&tasks[i])
	}
	return tasks, total, nil
}

func (r *MongoTaskRepository) Update(ctx context.Context, task *models.Task) error {
	assignees := task.AssigneeIDs
	if assignees == nil {
		assignees = []string{}
	}

	return r.updateOne(ctx, bson.M{"_id": task.ID}, bson.M{"$set": bson.M{
		"title":       task.Title,
		"description": task.Description,
		"deadline":    task.Deadline,
		"status":      task.Status,
		"assigned_to": assignees,
		"updated_at":  task.UpdatedAt,
	}})
}

func (r *MongoTaskRepository) Delete(ctx context.Context, id string) error {
	result, err := r.tasks.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AddComment pushes the comment. A reply only matches while its parent is
// still embedded in the same document.
func (r *MongoTaskRepository) AddComment(ctx context.Context, taskID string, comment *models.Comment) error {
	comment.TaskID = taskID
	filter := bson.M{"_id": taskID}
	if comment.ParentCommentID != nil {
		filter["comments._id"] = *comment.ParentCommentID
	}

	err := r.updateOne(ctx, filter, bson.M{
		"$push": bson.M{"comments": comment},
		"$set":  bson.M{"updated_at": comment.CreatedAt},
	})
	if errors.Is(err, ErrNotFound) && comment.ParentCommentID != nil {
		return r.guardFailure(ctx, bson.M{"_id": taskID}, ErrParentNotFound)
	}
	return err
}

func (r *MongoTaskRepository) UpdateCommentContent(ctx context.Context, taskID, commentID, content string, updatedAt time.Time) error {
	return r.updateOne(ctx,
		bson.M{"_id": taskID, "comments._id": commentID},
		bson.M{"$set": bson.M{
			"comments.$.content":    content,
			"comments.$.updated_at": updatedAt,
			"updated_at":            updatedAt,
		}},
	)
}

// DeleteComment pulls the comment unless another comment replies to it.
func (r *MongoTaskRepository) DeleteComment(ctx context.Context, taskID, commentID string) error {
	err := r.updateOne(ctx,
		bson.M{
			"_id":          taskID,
			"comments._id": commentID,
			"comments": bson.M{"$not": bson.M{
				"$elemMatch": bson.M{"parent_comment_id": commentID},
			}},
		},
		bson.M{
			"$pull": bson.M{"comments": bson.M{"_id": commentID}},
			"$set":  bson.M{"updated_at": time.Now()},
		},
	)
	if errors.Is(err, ErrNotFound) {
		return r.guardFailure(ctx, bson.M{"_id": taskID, "comments._id": commentID}, ErrHasReplies)
	}
	return err
}

func (r *MongoTaskRepository) updateOne(ctx context.Context, filter, update bson.M) error {
	result, err := r.tasks.UpdateOne(ctx, filter, update)
	if err != nil {
		return translateMongoError(err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// guardFailure tells a missing target apart from a write its filter guard refused.
func (r *MongoTaskRepository) guardFailure(ctx context.Context, target bson.M, guardErr error) error {
	n, err := r.tasks.CountDocuments(ctx, target)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return guardErr
}

// setCommentTaskIDs restores the owner reference that is implicit in the embedded layout.
func setCommentTaskIDs(task *models.Task) {
	for i := range task.Comments {
		task.Comments[i].TaskID = task.ID
	}
}
