package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reppyroute/internal/domain"
	"reppyroute/internal/middleware"
	"reppyroute/internal/testutil"
)

func newRouter(svc *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("/api/v1", func(c *gin.Context) {
		id, _ := strconv.ParseInt(c.GetHeader("X-User-ID"), 10, 64)
		middleware.SetIdentity(c, id, domain.RoleCarOwner)
		c.Next()
	})
	NewHandler(svc).RegisterRoutes(g)
	return r
}

func do(r *gin.Engine, method, path string, userID int64, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("X-User-ID", strconv.FormatInt(userID, 10))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandlerFlow(t *testing.T) {
	svc, db, _ := newTestService(t)
	jane := testutil.CreateProfile(t, db, "Jane Owner", domain.RoleCarOwner)
	items := seed(t, svc, jane.ID, 3)
	r := newRouter(svc)

	w := do(r, http.MethodGet, "/api/v1/notifications?limit=2", jane.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	var listResp struct {
		Success bool         `json:"success"`
		Data    ListResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listResp))
	assert.Len(t, listResp.Data.Notifications, 2)
	assert.Equal(t, int64(3), listResp.Data.UnreadCount)

	w = do(r, http.MethodPost, "/api/v1/notifications/"+strconv.FormatInt(items[0].ID, 10)+"/read", jane.ID, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodPost, "/api/v1/notifications/999/read", jane.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodPost, "/api/v1/notifications/read-all", jane.ID, `{"up_to_id":`+strconv.FormatInt(items[1].ID, 10)+`}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/api/v1/notifications/unread-count", jane.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"unread_count":1`)

	w = do(r, http.MethodDelete, "/api/v1/notifications/"+strconv.FormatInt(items[2].ID, 10), jane.ID, "")
	assert.Equal(t, http.StatusOK, w.Code)

	n, err := svc.UnreadCount(context.Background(), jane.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestHandlerRejectsBadID(t *testing.T) {
	svc, _, _ := newTestService(t)
	w := do(newRouter(svc), http.MethodDelete, "/api/v1/notifications/abc", 1, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
