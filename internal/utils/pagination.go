package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/task-tracker-api/internal/constants"
)

// TotalCountHeader carries the unpaged result size on list responses
const TotalCountHeader = "X-Total-Count"

// PaginationParams holds the pagination parameters
type PaginationParams struct {
	Page   int
	Limit  int
	Offset int
}

// GetPaginationParams extracts and validates pagination parameters from the request.
// The second result is false when the client asked for neither page nor limit,
// in which case the whole result set is returned.
func GetPaginationParams(c *gin.Context) (PaginationParams, bool) {
	pageRaw, hasPage := c.GetQuery("page")
	limitRaw, hasLimit := c.GetQuery("limit")
	if !hasPage && !hasLimit {
		return PaginationParams{}, false
	}

	page, err := strconv.Atoi(pageRaw)
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(limitRaw)
	if err != nil || limit < constants.MinPageSize || limit > constants.MaxPageSize {
		limit = constants.DefaultPageSize
	}

	return PaginationParams{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}, true
}

// SetTotalCount writes the X-Total-Count header
func SetTotalCount(c *gin.Context, total int64) {
	c.Header(TotalCountHeader, strconv.FormatInt(total, 10))
}
