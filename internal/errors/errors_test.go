package errors

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAbortingHelpersStopTheChain(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name    string
		respond func(*gin.Context)
		status  int
		code    string
		message string
	}{
		{"unauthorized", func(c *gin.Context) { Unauthorized(c, "") }, http.StatusUnauthorized, ErrCodeUnauthorized, "Authentication required"},
		{"invalid token", func(c *gin.Context) { InvalidToken(c, "") }, http.StatusForbidden, ErrCodeInvalidToken, "Invalid or expired token"},
		{"malformed id", func(c *gin.Context) { MalformedID(c, "Invalid id format") }, http.StatusBadRequest, ErrCodeMalformedID, "Invalid id format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reached := false
			r := gin.New()
			r.GET("/", tt.respond, func(c *gin.Context) {
				reached = true
				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

			assert.False(t, reached)
			require.Equal(t, tt.status, w.Code)

			var body APIError
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Code)
			assert.Equal(t, tt.message, body.Message)
		})
	}
}

func TestRespondingHelpers(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name    string
		respond func(*gin.Context)
		status  int
		code    string
	}{
		{"bad request", func(c *gin.Context) { BadRequest(c, "") }, http.StatusBadRequest, ErrCodeInvalidInput},
		{"bad request with code", func(c *gin.Context) { BadRequestWithCode(c, ErrCodeInvalidOperation, "nope") }, http.StatusBadRequest, ErrCodeInvalidOperation},
		{"not found", func(c *gin.Context) { NotFound(c, "") }, http.StatusNotFound, ErrCodeNotFound},
		{"conflict", func(c *gin.Context) { Conflict(c, "") }, http.StatusConflict, ErrCodeConflict},
		{"internal", func(c *gin.Context) { InternalError(c, "") }, http.StatusInternalServerError, ErrCodeInternalError},
		{"unavailable", func(c *gin.Context) { ServiceUnavailable(c, "") }, http.StatusServiceUnavailable, ErrCodeServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			tt.respond(c)

			require.Equal(t, tt.status, w.Code)
			var body APIError
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Code)
			assert.NotEmpty(t, body.Message)
		})
	}
}
