package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reppyroute/internal/domain"
	"reppyroute/internal/pkg/jwt"
	"reppyroute/internal/repository"
)

type profileMap map[int64]*domain.Profile

func (m profileMap) GetByID(_ context.Context, id int64) (*domain.Profile, error) {
	p, ok := m[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

func TestHubDeliversToEveryConnectionOfUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	jwtService := jwt.New("secret", time.Hour)
	hub := NewHub(nil)

	r := gin.New()
	profiles := profileMap{9: {ID: 9, UserType: domain.RoleMechanic}}
	NewHandler(hub, jwtService, profiles, nil).RegisterRoutes(r.Group("/api/v1"))
	srv := httptest.NewServer(r)
	defer srv.Close()

	token, err := jwtService.GenerateToken(9, "mechanic")
	require.NoError(t, err)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws?token=" + token

	a, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer a.Close()
	b, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer b.Close()

	require.Eventually(t, func() bool { return hub.Connected(9) == 2 }, time.Second, 10*time.Millisecond)

	hub.SendToUser(9, Event{Type: EventNotification, Payload: map[string]any{"id": 1}})
	hub.SendToUser(10, Event{Type: EventNotification})

	for _, conn := range []*websocket.Conn{a, b} {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)

		var ev Event
		require.NoError(t, json.Unmarshal(data, &ev))
		assert.Equal(t, EventNotification, ev.Type)
	}

	a.Close()
	require.Eventually(t, func() bool { return hub.Connected(9) == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestConnectRejectsBadToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(NewHub(nil), jwt.New("secret", time.Hour), profileMap{}, nil).RegisterRoutes(r.Group("/api/v1"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/ws?token=nope", nil))
	assert.Equal(t, 401, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/ws", nil))
	assert.Equal(t, 401, w.Code)
}

func TestConnectChecksAccount(t *testing.T) {
	gin.SetMode(gin.TestMode)
	jwtService := jwt.New("secret", time.Hour)
	hub := NewHub(nil)
	profiles := profileMap{
		3: {ID: 3, UserType: domain.RoleCarOwner, IsBanned: true},
	}
	r := gin.New()
	NewHandler(hub, jwtService, profiles, nil).RegisterRoutes(r.Group("/api/v1"))

	dial := func(userID int64) *httptest.ResponseRecorder {
		token, err := jwtService.GenerateToken(userID, "car_owner")
		require.NoError(t, err)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/ws?token="+token, nil))
		return w
	}

	w := dial(3)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "ACCOUNT_BANNED")

	w = dial(4)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "PROFILE_NOT_FOUND")

	assert.Zero(t, hub.Connected(3))
}
