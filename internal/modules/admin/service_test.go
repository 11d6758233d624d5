package admin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"reppyroute/internal/domain"
	"reppyroute/internal/middleware"
	"reppyroute/internal/modules/auth"
	"reppyroute/internal/pkg/jwt"
	"reppyroute/internal/repository"
	"reppyroute/internal/testutil"
)

func newService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := testutil.NewDB(t)
	profiles := repository.NewProfileRepository(db)
	mechanics := repository.NewMechanicRepository(db)
	accounts := auth.NewService(profiles, mechanics, jwt.New("test-secret", time.Hour)).WithHashCost(bcrypt.MinCost)
	return NewService(
		profiles,
		mechanics,
		repository.NewRequestRepository(db),
		repository.NewQuoteRepository(db),
		repository.NewMessageRepository(db),
		repository.NewReviewRepository(db),
		repository.NewLeadRepository(db),
		accounts,
	), db
}

func TestStats(t *testing.T) {
	svc, db := newService(t)
	jane := testutil.CreateProfile(t, db, "Jane Doe", domain.RoleCarOwner)
	testutil.CreateProfile(t, db, "Bob Smith", domain.RoleMechanic)
	testutil.CreateProfile(t, db, "Ann Lee", domain.RoleMechanic)

	for _, status := range []domain.RequestStatus{domain.RequestOpen, domain.RequestOpen, domain.RequestCompleted} {
		require.NoError(t, db.Create(&domain.RepairRequest{
			CarOwnerID: jane.ID, CarMake: "Toyota", CarModel: "Camry", CarYear: 2018,
			IssueType: "brakes", Description: "d", Location: "l",
			PreferredServiceType: domain.ServiceAny, Status: status,
		}).Error)
	}

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalProfiles)
	assert.Equal(t, int64(2), stats.Profiles[domain.RoleMechanic])
	assert.Equal(t, int64(3), stats.TotalRequests)
	assert.Equal(t, int64(2), stats.Requests[domain.RequestOpen])
	assert.Zero(t, stats.Quotes)
	assert.Zero(t, stats.Leads)
}

func TestUserManagement(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()
	root := testutil.CreateProfile(t, db, "Root Admin", domain.RoleAdmin)

	admin2, err := svc.CreateUser(ctx, CreateUserRequest{Email: "ops@example.com", Password: "secret-pass", FullName: "Ops", UserType: "admin"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, admin2.UserType)

	_, err = svc.CreateUser(ctx, CreateUserRequest{Email: "ops@example.com", Password: "secret-pass", FullName: "Ops", UserType: "admin"})
	assert.ErrorIs(t, err, auth.ErrEmailAlreadyExists)

	owner := testutil.CreateProfile(t, db, "Jane Doe", domain.RoleCarOwner)
	p, err := svc.ChangeRole(ctx, root.ID, owner.ID, "mechanic")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleMechanic, p.UserType)
	var n int64
	require.NoError(t, db.Model(&domain.Mechanic{}).Where("profile_id = ?", owner.ID).Count(&n).Error)
	assert.Equal(t, int64(1), n)

	_, err = svc.ChangeRole(ctx, root.ID, owner.ID, "wizard")
	assert.ErrorIs(t, err, ErrInvalidRequest)
	_, err = svc.ChangeRole(ctx, root.ID, root.ID, "car_owner")
	assert.ErrorIs(t, err, ErrSelfAction)

	p, err = svc.SetBanned(ctx, root.ID, owner.ID, true)
	require.NoError(t, err)
	assert.True(t, p.IsBanned)
	p, err = svc.SetBanned(ctx, root.ID, owner.ID, false)
	require.NoError(t, err)
	assert.False(t, p.IsBanned)

	_, err = svc.SetBanned(ctx, root.ID, 9999, true)
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := svc.ListUsers(ctx, UserListQuery{UserType: "admin"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), list.Total)

	list, err = svc.ListUsers(ctx, UserListQuery{Search: "JANE", Limit: 500})
	require.NoError(t, err)
	require.Len(t, list.Users, 1)
	assert.Equal(t, 20, list.Limit)
}

func TestHandlerRequiresAdmin(t *testing.T) {
	svc, db := newService(t)
	root := testutil.CreateProfile(t, db, "Root Admin", domain.RoleAdmin)
	jane := testutil.CreateProfile(t, db, "Jane Doe", domain.RoleCarOwner)
	roles := map[int64]domain.Role{root.ID: domain.RoleAdmin, jane.ID: domain.RoleCarOwner}

	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("/api/v1", func(c *gin.Context) {
		id, _ := strconv.ParseInt(c.GetHeader("X-User-ID"), 10, 64)
		middleware.SetIdentity(c, id, roles[id])
		c.Next()
	})
	NewHandler(svc).RegisterRoutes(g.Group("/admin", middleware.AdminOnly()))

	call := func(method, path string, userID int64, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("X-User-ID", strconv.FormatInt(userID, 10))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusForbidden, call(http.MethodGet, "/api/v1/admin/stats", jane.ID, "").Code)
	assert.Equal(t, http.StatusOK, call(http.MethodGet, "/api/v1/admin/stats", root.ID, "").Code)

	w := call(http.MethodPatch, "/api/v1/admin/users/"+strconv.FormatInt(jane.ID, 10)+"/ban", root.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"is_banned":true`)

	w = call(http.MethodPatch, "/api/v1/admin/users/"+strconv.FormatInt(root.ID, 10)+"/role", root.ID, `{"user_type":"car_owner"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}
