package messaging

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"reppyroute/internal/domain"
	"reppyroute/internal/modules/notification"
	"reppyroute/internal/realtime"
	"reppyroute/internal/repository"
	"reppyroute/internal/testutil"
)

type recorder struct {
	mu     sync.Mutex
	events map[int64][]realtime.Event
}

func (r *recorder) SendToUser(userID int64, ev realtime.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.events == nil {
		r.events = map[int64][]realtime.Event{}
	}
	r.events[userID] = append(r.events[userID], ev)
}

func (r *recorder) count(userID int64, typ string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events[userID] {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

type fixture struct {
	db   *gorm.DB
	svc  *Service
	pub  *recorder
	jane *domain.Profile
	bob  *domain.Profile
	ann  *domain.Profile
	req  *domain.RepairRequest
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	pub := &recorder{}
	notifier := notification.NewService(repository.NewNotificationRepository(db), pub)
	svc := NewService(db,
		repository.NewThreadRepository(db),
		repository.NewMessageRepository(db),
		repository.NewRequestRepository(db),
		repository.NewQuoteRepository(db),
		notifier, pub,
	)

	f := &fixture{
		db:   db,
		svc:  svc,
		pub:  pub,
		jane: testutil.CreateProfile(t, db, "Jane Owner", domain.RoleCarOwner),
		bob:  testutil.CreateProfile(t, db, "Bob Mechanic", domain.RoleMechanic),
		ann:  testutil.CreateProfile(t, db, "Ann Mechanic", domain.RoleMechanic),
	}
	f.req = &domain.RepairRequest{
		CarOwnerID: f.jane.ID, CarMake: "Toyota", CarModel: "Camry", CarYear: 2018,
		IssueType: "brakes", Description: "Grinding", Location: "Springfield",
		PreferredServiceType: domain.ServiceAny, Status: domain.RequestOpen, Version: 1,
	}
	require.NoError(t, db.Create(f.req).Error)
	return f
}

func (f *fixture) open(t *testing.T) *domain.Thread {
	t.Helper()
	out, err := f.svc.OpenThread(context.Background(), f.bob.ID, domain.RoleMechanic, OpenThreadRequest{RepairRequestID: f.req.ID})
	require.NoError(t, err)
	return out.Thread
}

func TestOpenThreadIsGetOrCreate(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	first := f.open(t)
	again := f.open(t)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, f.jane.ID, first.OwnerID)
	assert.Equal(t, f.bob.ID, first.MechanicID)

	// the owner reaches the same thread
	out, err := f.svc.OpenThread(ctx, f.jane.ID, domain.RoleCarOwner, OpenThreadRequest{RepairRequestID: f.req.ID, MechanicID: &f.bob.ID})
	assert.ErrorIs(t, err, ErrNotAllowed, "bob has not quoted yet")
	assert.Nil(t, out)

	require.NoError(t, f.db.Create(&domain.RepairQuote{
		RepairRequestID: f.req.ID, MechanicID: f.bob.ID, Amount: 100, Description: "x", EstimatedHours: 1, Status: domain.QuotePending,
	}).Error)
	out, err = f.svc.OpenThread(ctx, f.jane.ID, domain.RoleCarOwner, OpenThreadRequest{RepairRequestID: f.req.ID, MechanicID: &f.bob.ID})
	require.NoError(t, err)
	assert.Equal(t, first.ID, out.Thread.ID)

	stranger := testutil.CreateProfile(t, f.db, "Other Owner", domain.RoleCarOwner)
	_, err = f.svc.OpenThread(ctx, stranger.ID, domain.RoleCarOwner, OpenThreadRequest{RepairRequestID: f.req.ID})
	assert.ErrorIs(t, err, ErrNotAllowed)

	_, err = f.svc.OpenThread(ctx, f.bob.ID, domain.RoleMechanic, OpenThreadRequest{RepairRequestID: 4040})
	assert.ErrorIs(t, err, ErrRequestNotFound)
}

func TestSendCreatesExactlyOneNotification(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	th := f.open(t)

	msg, err := f.svc.Send(ctx, f.bob.ID, th.ID, "  Can you bring it in Tuesday?  ")
	require.NoError(t, err)
	assert.Equal(t, f.jane.ID, msg.RecipientID)
	assert.Equal(t, "Can you bring it in Tuesday?", msg.Content)

	var notifs []domain.Notification
	require.NoError(t, f.db.Where("user_id = ? AND type = ?", f.jane.ID, domain.NotifMessage).Find(&notifs).Error)
	require.Len(t, notifs, 1)
	require.NotNil(t, notifs[0].ThreadID)
	assert.Equal(t, th.ID, *notifs[0].ThreadID)
	assert.Equal(t, "Can you bring it in Tuesday?", notifs[0].Message)

	var senderNotifs int64
	require.NoError(t, f.db.Model(&domain.Notification{}).Where("user_id = ?", f.bob.ID).Count(&senderNotifs).Error)
	assert.Zero(t, senderNotifs)

	assert.Equal(t, 1, f.pub.count(f.jane.ID, realtime.EventMessage))
	assert.Equal(t, 1, f.pub.count(f.bob.ID, realtime.EventMessage))
	assert.Equal(t, 1, f.pub.count(f.jane.ID, realtime.EventNotification))
}

func TestSendGuards(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	th := f.open(t)

	_, err := f.svc.Send(ctx, f.bob.ID, th.ID, "   ")
	assert.ErrorIs(t, err, ErrEmptyContent)

	_, err = f.svc.Send(ctx, f.bob.ID, th.ID, strings.Repeat("a", maxContentRunes+1))
	assert.ErrorIs(t, err, ErrContentTooLong)

	_, err = f.svc.Send(ctx, f.ann.ID, th.ID, "hi")
	assert.ErrorIs(t, err, ErrNotParticipant)

	_, err = f.svc.Send(ctx, f.bob.ID, 999, "hi")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.ListMessages(ctx, f.ann.ID, th.ID, 0, 0)
	assert.ErrorIs(t, err, ErrNotParticipant)
}

func TestUnreadClearsAfterMarkRead(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	th := f.open(t)

	for _, text := range []string{"one", "two", "three"} {
		_, err := f.svc.Send(ctx, f.bob.ID, th.ID, text)
		require.NoError(t, err)
	}
	_, err := f.svc.Send(ctx, f.jane.ID, th.ID, "reply")
	require.NoError(t, err)

	// jane's own reply advanced her watermark past bob's messages
	n, err := f.svc.UnreadTotal(ctx, f.jane.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = f.svc.UnreadTotal(ctx, f.bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = f.svc.Send(ctx, f.bob.ID, th.ID, "four")
	require.NoError(t, err)
	_, err = f.svc.Send(ctx, f.bob.ID, th.ID, "five")
	require.NoError(t, err)

	inbox, err := f.svc.Conversations(ctx, f.jane.ID)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, int64(2), inbox[0].UnreadCount)
	assert.Equal(t, "five", inbox[0].LastMessagePreview)
	assert.Equal(t, "Bob Mechanic", inbox[0].CounterpartName)
	assert.Equal(t, "Toyota", inbox[0].CarMake)

	res, err := f.svc.MarkRead(ctx, f.jane.ID, th.ID)
	require.NoError(t, err)
	assert.Zero(t, res.UnreadTotal)

	inbox, err = f.svc.Conversations(ctx, f.jane.ID)
	require.NoError(t, err)
	assert.Zero(t, inbox[0].UnreadCount)
	assert.Equal(t, 1, f.pub.count(f.bob.ID, realtime.EventThreadRead))

	msgs, err := f.svc.ListMessages(ctx, f.jane.ID, th.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 6)
	assert.Equal(t, "one", msgs[0].Content)

	tail, err := f.svc.ListMessages(ctx, f.jane.ID, th.ID, msgs[3].ID, 0)
	require.NoError(t, err)
	assert.Len(t, tail, 2)
}

func TestConversationsOrderedByActivity(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	bobThread := f.open(t)
	annOut, err := f.svc.OpenThread(ctx, f.ann.ID, domain.RoleMechanic, OpenThreadRequest{RepairRequestID: f.req.ID, InitialMessage: "Hello from Ann"})
	require.NoError(t, err)
	require.NotNil(t, annOut.Message)

	_, err = f.svc.Send(ctx, f.bob.ID, bobThread.ID, "Hello from Bob")
	require.NoError(t, err)

	inbox, err := f.svc.Conversations(ctx, f.jane.ID)
	require.NoError(t, err)
	require.Len(t, inbox, 2)
	assert.Equal(t, bobThread.ID, inbox[0].ThreadID)
	assert.Equal(t, annOut.Thread.ID, inbox[1].ThreadID)

	n, err := f.svc.UnreadTotal(ctx, f.jane.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
