package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	apierrors "github.com/yukikurage/task-tracker-api/internal/errors"
)

// RequireValidIDs rejects requests whose named path parameters are not UUIDs
// before they reach the store.
func RequireValidIDs(params ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, name := range params {
			value := c.Param(name)
			if value == "" {
				continue
			}
			if _, err := uuid.Parse(value); err != nil {
				apierrors.MalformedID(c, "Invalid "+name+" format")
				return
			}
		}
		c.Next()
	}
}
