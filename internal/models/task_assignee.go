package models

type TaskAssignee struct {
	TaskID   string `gorm:"primaryKey;type:varchar(36)"`
	UserID   string `gorm:"primaryKey;type:varchar(36);index"`
	Position int    `gorm:"not null;default:0"`
}
