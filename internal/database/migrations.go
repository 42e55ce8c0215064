package database

import (
	"fmt"
	"log"

	"github.com/yukikurage/task-tracker-api/internal/models"
	"gorm.io/gorm"
)

// Migrate creates or updates the relational schema.
func Migrate(db *gorm.DB) error {
	log.Println("Running database migrations...")
	err := db.AutoMigrate(
		&models.User{},
		&models.Task{},
		&models.TaskAssignee{},
		&models.Comment{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := exactUsernames(db); err != nil {
		return fmt.Errorf("failed to set username collation: %w", err)
	}

	if err := AddIndexes(db); err != nil {
		return fmt.Errorf("failed to add indexes: %w", err)
	}

	log.Println("Database migrations completed")
	return nil
}

// AddIndexes adds the composite indexes the struct tags cannot express
func AddIndexes(db *gorm.DB) error {
	indexes := []struct {
		model   interface{}
		name    string
		columns string
	}{
		// Reply lookup within a task
		{&models.Comment{}, "idx_comments_task_parent", "task_id, parent_comment_id"},
		// Thread ordering
		{&models.Comment{}, "idx_comments_task_created", "task_id, created_at"},
		// Visibility check for assignees
		{&models.TaskAssignee{}, "idx_task_assignees_user_task", "user_id, task_id"},
	}

	migrator := db.Migrator()
	for _, idx := range indexes {
		if migrator.HasIndex(idx.model, idx.name) {
			continue
		}

		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(idx.model); err != nil {
			return fmt.Errorf("failed to parse model for index %s: %w", idx.name, err)
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, stmt.Schema.Table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
		log.Printf("Created index %s on %s(%s)", idx.name, stmt.Schema.Table, idx.columns)
	}

	return nil
}

// usernameCollationSQL makes username comparisons case-sensitive on MySQL,
// whose default collation would match "Alice" against "alice".
const usernameCollationSQL = "ALTER TABLE users MODIFY username VARCHAR(30) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL"

// exactUsernames applies usernameCollationSQL. Postgres and SQLite already compare exactly.
func exactUsernames(db *gorm.DB) error {
	if db.Dialector.Name() != "mysql" {
		return nil
	}
	return db.Exec(usernameCollationSQL).Error
}
