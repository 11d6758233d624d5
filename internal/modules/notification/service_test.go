package notification

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"reppyroute/internal/domain"
	"reppyroute/internal/idempotency"
	"reppyroute/internal/realtime"
	"reppyroute/internal/repository"
	"reppyroute/internal/testutil"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events map[int64][]realtime.Event
}

func (p *recordingPublisher) SendToUser(userID int64, ev realtime.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.events == nil {
		p.events = map[int64][]realtime.Event{}
	}
	p.events[userID] = append(p.events[userID], ev)
}

func newTestService(t *testing.T) (*Service, *gorm.DB, *recordingPublisher) {
	db := testutil.NewDB(t)
	pub := &recordingPublisher{}
	return NewService(repository.NewNotificationRepository(db), pub), db, pub
}

func seed(t *testing.T, svc *Service, userID int64, n int) []domain.Notification {
	t.Helper()
	out := make([]domain.Notification, 0, n)
	for i := 0; i < n; i++ {
		item := &domain.Notification{UserID: userID, Type: domain.NotifMessage, Message: "New message"}
		require.NoError(t, svc.Notify(context.Background(), item))
		out = append(out, *item)
	}
	return out
}

func TestAppendTxRollsBackWithCaller(t *testing.T) {
	svc, db, pub := newTestService(t)
	ctx := context.Background()
	jane := testutil.CreateProfile(t, db, "Jane Owner", domain.RoleCarOwner)

	err := db.Transaction(func(tx *gorm.DB) error {
		require.NoError(t, svc.AppendTx(ctx, tx, &domain.Notification{UserID: jane.ID, Type: domain.NotifQuote, Message: "x"}))
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	n, err := svc.UnreadCount(ctx, jane.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, pub.events[jane.ID])
}

func TestAppendTxValidates(t *testing.T) {
	svc, db, _ := newTestService(t)
	err := svc.AppendTx(context.Background(), db, &domain.Notification{UserID: 1, Type: domain.NotifQuote})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestNotifyPublishesToRecipient(t *testing.T) {
	svc, db, pub := newTestService(t)
	bob := testutil.CreateProfile(t, db, "Bob Mechanic", domain.RoleMechanic)

	seed(t, svc, bob.ID, 1)

	require.Len(t, pub.events[bob.ID], 1)
	assert.Equal(t, realtime.EventNotification, pub.events[bob.ID][0].Type)
}

func TestListMostRecentFirstWithLimit(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	jane := testutil.CreateProfile(t, db, "Jane Owner", domain.RoleCarOwner)
	items := seed(t, svc, jane.ID, 5)

	out, err := svc.List(ctx, jane.ID, 3, false)
	require.NoError(t, err)
	require.Len(t, out.Notifications, 3)
	assert.Equal(t, items[4].ID, out.Notifications[0].ID)
	assert.Equal(t, int64(5), out.UnreadCount)

	require.NoError(t, svc.MarkRead(ctx, jane.ID, items[4].ID))
	out, err = svc.List(ctx, jane.ID, 0, true)
	require.NoError(t, err)
	assert.Len(t, out.Notifications, 4)
	assert.Equal(t, int64(4), out.UnreadCount)
}

func TestMarkReadChecksOwnership(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	jane := testutil.CreateProfile(t, db, "Jane Owner", domain.RoleCarOwner)
	bob := testutil.CreateProfile(t, db, "Bob Mechanic", domain.RoleMechanic)
	items := seed(t, svc, jane.ID, 1)

	assert.ErrorIs(t, svc.MarkRead(ctx, bob.ID, items[0].ID), ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, bob.ID, items[0].ID), ErrNotFound)

	require.NoError(t, svc.Delete(ctx, jane.ID, items[0].ID))
	n, err := svc.UnreadCount(ctx, jane.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMarkAllReadLeavesNewerUnread(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	jane := testutil.CreateProfile(t, db, "Jane Owner", domain.RoleCarOwner)
	bob := testutil.CreateProfile(t, db, "Bob Mechanic", domain.RoleMechanic)
	seen := seed(t, svc, jane.ID, 3)
	seed(t, svc, bob.ID, 2)

	// arrives after the client fetched its list
	seed(t, svc, jane.ID, 1)

	updated, err := svc.MarkAllRead(ctx, jane.ID, seen[2].ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), updated)

	n, err := svc.UnreadCount(ctx, jane.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = svc.UnreadCount(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	updated, err = svc.MarkAllRead(ctx, jane.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated)
}

func TestCleanupRemovesOldReadNotificationsAndExpiredKeys(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	jane := testutil.CreateProfile(t, db, "Jane Owner", domain.RoleCarOwner)
	items := seed(t, svc, jane.ID, 3)

	old := time.Now().UTC().Add(-48 * time.Hour)
	require.NoError(t, db.Model(&domain.Notification{}).Where("id IN ?", []int64{items[0].ID, items[1].ID}).
		Update("created_at", old).Error)
	require.NoError(t, svc.MarkRead(ctx, jane.ID, items[0].ID))

	guard := idempotency.NewDBGuard(db)
	require.NoError(t, guard.Claim(ctx, jane.ID, "expired", time.Millisecond))
	require.NoError(t, guard.Claim(ctx, jane.ID, "live", time.Hour))
	time.Sleep(5 * time.Millisecond)

	cleaner := NewCleanupService(repository.NewNotificationRepository(db), guard, 24*time.Hour)
	res, err := cleaner.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Notifications)
	assert.Equal(t, int64(1), res.IdempotencyKeys)

	var left int64
	require.NoError(t, db.Model(&domain.Notification{}).Count(&left).Error)
	assert.Equal(t, int64(2), left)
}

func TestScheduleStopsOnCancel(t *testing.T) {
	db := testutil.NewDB(t)
	cleaner := NewCleanupService(repository.NewNotificationRepository(db), nil, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := cleaner.Schedule(ctx, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup goroutine did not stop")
	}
}
