package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/yukikurage/task-tracker-api/internal/auth"
	"github.com/yukikurage/task-tracker-api/internal/models"
)

const testSecret = "super_secret_for_tests"

func newProtectedRouter(nextCalled *bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/private", RequireAuth(auth.NewTokenIssuer(testSecret)), func(c *gin.Context) {
		*nextCalled = true
		userID, _ := GetUserID(c)
		claims, _ := GetClaims(c)
		c.JSON(http.StatusOK, gin.H{"id": userID, "username": claims.Username})
	})
	return r
}

func serve(r *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

// checks that a missing header is 401 and the handler is not reached
func TestRequireAuth_MissingHeader(t *testing.T) {
	nextCalled := false
	rec := serve(newProtectedRouter(&nextCalled), "")

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("want 401, got %d body=%s", rec.Code, rec.Body.String())
	}
	if nextCalled {
		t.Fatalf("next should NOT be called")
	}
}

// checks that a header without the Bearer scheme is 401
func TestRequireAuth_MalformedHeader(t *testing.T) {
	nextCalled := false
	rec := serve(newProtectedRouter(&nextCalled), "Token abc")

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("want 401, got %d body=%s", rec.Code, rec.Body.String())
	}
}

// checks that an invalid token is 403
func TestRequireAuth_InvalidToken(t *testing.T) {
	nextCalled := false
	rec := serve(newProtectedRouter(&nextCalled), "Bearer obviously.invalid.token")

	if rec.Code != http.StatusForbidden {
		t.Fatalf("want 403, got %d body=%s", rec.Code, rec.Body.String())
	}
	if nextCalled {
		t.Fatalf("next must not be called on invalid token")
	}
}

// checks that a token without exp is rejected
func TestRequireAuth_MissingExp(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":  "11111111-1111-1111-1111-111111111111",
		"sub": "11111111-1111-1111-1111-111111111111",
	})
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	nextCalled := false
	rec := serve(newProtectedRouter(&nextCalled), "Bearer "+signed)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("want 403 (missing exp), got %d body=%s", rec.Code, rec.Body.String())
	}
}

// checks that a valid token reaches the handler with its identity
func TestRequireAuth_ValidToken(t *testing.T) {
	user := &models.User{ID: "11111111-1111-1111-1111-111111111111", Username: "alice", Email: "alice@example.com", Role: models.RoleUser}
	signed, err := auth.NewTokenIssuer(testSecret).Issue(user)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	nextCalled := false
	rec := serve(newProtectedRouter(&nextCalled), "Bearer "+signed)

	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	if !nextCalled {
		t.Fatalf("next should be called")
	}
}

func TestRequireValidIDs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/tasks/:id", RequireValidIDs("id"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	cases := map[string]int{
		"/tasks/11111111-1111-1111-1111-111111111111": http.StatusOK,
		"/tasks/42": http.StatusBadRequest,
	}
	for path, want := range cases {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != want {
			t.Fatalf("%s: want %d, got %d", path, want, rec.Code)
		}
	}
}
