package constants

import "time"

// Context keys
const (
	ContextKeyUserID = "user_id"
	ContextKeyClaims = "claims"
)

// Account limits
const (
	MinUsernameLength = 3
	MaxUsernameLength = 30
	MinPasswordLength = 8
	MaxPasswordBytes  = 72
	MaxNameLength     = 50
)

// Task limits
const (
	MaxTitleLength       = 60
	MaxDescriptionLength = 255
	MaxCommentLength     = 1000
	HumanRefPrefix       = "TASK-"
	MaxHumanRefAttempts  = 5
)

// Session tokens
const (
	TokenTTL = 24 * time.Hour
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Task drafting
const (
	MaxAIGeneratedTasks = 20
)
