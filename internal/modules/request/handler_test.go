package request

import (
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
)

func newRouter(f *fixture) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	roles := map[int64]domain.Role{
		f.jane.ID: domain.RoleCarOwner,
		f.bob.ID:  domain.RoleMechanic,
		f.ann.ID:  domain.RoleMechanic,
	}
	g := r.Group("/api/v1", func(c *gin.Context) {
		id, _ := strconv.ParseInt(c.GetHeader("X-User-ID"), 10, 64)
		middleware.SetIdentity(c, id, roles[id])
		c.Next()
	})
	NewHandler(f.svc).RegisterRoutes(g, nil)
	return r
}

func call(r *gin.Engine, method, path string, userID int64, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("X-User-ID", strconv.FormatInt(userID, 10))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code string `json:"code"`
	} `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder, into any) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	if into != nil {
		require.NoError(t, json.Unmarshal(env.Data, into))
	}
	return env
}

func TestHandlerLifecycle(t *testing.T) {
	f := setup(t)
	r := newRouter(f)

	w := call(r, http.MethodPost, "/api/v1/requests", f.jane.ID,
		`{"car_make":"Toyota","car_model":"Camry","car_year":2018,"issue_type":"brakes","description":"Grinding","location":"Springfield"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created domain.RepairRequest
	decode(t, w, &created)
	base := "/api/v1/requests/" + strconv.FormatInt(created.ID, 10)

	w = call(r, http.MethodPost, "/api/v1/requests", f.bob.ID, `{"issue_type":"x","description":"y","location":"z"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = call(r, http.MethodGet, "/api/v1/requests/open?sort=oldest", f.bob.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"quote_count":0`)

	w = call(r, http.MethodPost, base+"/quotes", f.bob.ID, `{"amount":0,"description":"","estimated_hours":1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode(t, w, nil).Error.Code)

	w = call(r, http.MethodPost, base+"/quotes", f.bob.ID, `{"amount":350,"description":"Pads","estimated_hours":2}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var q domain.RepairQuote
	decode(t, w, &q)

	w = call(r, http.MethodPost, base+"/quotes/"+strconv.FormatInt(q.ID, 10)+"/accept", f.jane.ID, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var detail RequestDetail
	decode(t, w, &detail)
	assert.Equal(t, domain.RequestInProgress, detail.Request.Status)

	w = call(r, http.MethodPost, base+"/quotes/"+strconv.FormatInt(q.ID, 10)+"/accept", f.jane.ID, "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "INVALID_TRANSITION", decode(t, w, nil).Error.Code)

	w = call(r, http.MethodPost, base+"/complete", f.ann.ID, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = call(r, http.MethodPost, base+"/complete", f.jane.ID, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = call(r, http.MethodGet, "/api/v1/jobs/mine", f.bob.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"completed"`)

	w = call(r, http.MethodGet, "/api/v1/price-comparison?issue_type=brakes&days=30", f.jane.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	var pc PriceComparison
	decode(t, w, &pc)
	assert.Equal(t, 1, pc.Count)
}

func TestHandlerRejectsBadIDs(t *testing.T) {
	f := setup(t)
	r := newRouter(f)

	w := call(r, http.MethodGet, "/api/v1/requests/abc", f.jane.ID, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = call(r, http.MethodGet, "/api/v1/requests/77", f.jane.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
