package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"memberhub-backend/internal/domain"
	"memberhub-backend/internal/repository"
)

// fakeOutbox is an in-memory OutboxRepository with durable per-subscriber
// cursors, enough to exercise the drain loop without a database.
type fakeOutbox struct {
	mu      sync.Mutex
	rows    []repository.OutboxRow
	cursors map[string]int64
}

func newFakeOutbox(events ...domain.MembershipEvent) *fakeOutbox {
	f := &fakeOutbox{cursors: make(map[string]int64)}
	for i, ev := range events {
		f.rows = append(f.rows, repository.OutboxRow{RowID: int64(i + 1), Event: ev})
	}
	return f
}

func (f *fakeOutbox) ListAfter(_ context.Context, afterID int64, limit int32) ([]repository.OutboxRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.OutboxRow
	for _, row := range f.rows {
		if row.RowID > afterID {
			out = append(out, row)
			if int32(len(out)) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (f *fakeOutbox) GetCursor(_ context.Context, subscriber string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cursors[subscriber], nil
}

func (f *fakeOutbox) SetCursor(_ context.Context, subscriber string, rowID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cursors[subscriber] = rowID
	return nil
}

// recordingSubscriber collects handled events; failUntil lets tests make
// delivery of a given event id fail a number of times first.
type recordingSubscriber struct {
	name      string
	handled   []domain.MembershipEvent
	failures  map[string]int
	callCount map[string]int
}

func newRecordingSubscriber(name string) *recordingSubscriber {
	return &recordingSubscriber{
		name:      name,
		failures:  make(map[string]int),
		callCount: make(map[string]int),
	}
}

func (s *recordingSubscriber) Name() string { return s.name }

func (s *recordingSubscriber) Handle(_ context.Context, event domain.MembershipEvent) error {
	s.callCount[event.ID]++
	if s.failures[event.ID] > 0 {
		s.failures[event.ID]--
		return errors.New("handler unavailable")
	}
	s.handled = append(s.handled, event)
	return nil
}

func testEvents(membershipID int64, n int) []domain.MembershipEvent {
	events := make([]domain.MembershipEvent, n)
	for i := range events {
		events[i] = domain.MembershipEvent{
			ID:           fmt.Sprintf("ev-%d-%d", membershipID, i+1),
			MembershipID: membershipID,
			OrgID:        1,
			Seq:          int64(i + 1),
			Type:         domain.EventSubmitted,
		}
	}
	return events
}

func fastConfig() DispatcherConfig {
	return DispatcherConfig{
		PollInterval: 5 * time.Millisecond,
		BatchSize:    100,
		BaseBackoff:  time.Millisecond,
		MaxAttempts:  2,
	}
}

func TestDrainDeliversInOrder(t *testing.T) {
	outbox := newFakeOutbox(testEvents(10, 5)...)
	d := NewDispatcher(outbox, fastConfig())
	sub := newRecordingSubscriber("orders")
	d.Register(sub)

	d.DrainOnce(context.Background())

	require.Len(t, sub.handled, 5)
	for i, ev := range sub.handled {
		assert.Equal(t, int64(i+1), ev.Seq, "per-membership sequence order broken")
	}
	cursor, _ := outbox.GetCursor(context.Background(), "orders")
	assert.Equal(t, int64(5), cursor)
}

func TestDrainPagesThroughLargeBacklog(t *testing.T) {
	outbox := newFakeOutbox(testEvents(10, 7)...)
	cfg := fastConfig()
	cfg.BatchSize = 3
	d := NewDispatcher(outbox, cfg)
	sub := newRecordingSubscriber("orders")
	d.Register(sub)

	d.DrainOnce(context.Background())

	assert.Len(t, sub.handled, 7)
	cursor, _ := outbox.GetCursor(context.Background(), "orders")
	assert.Equal(t, int64(7), cursor)
}

func TestCursorStopsBeforeFailedRow(t *testing.T) {
	outbox := newFakeOutbox(testEvents(10, 4)...)
	d := NewDispatcher(outbox, fastConfig())
	sub := newRecordingSubscriber("flaky")
	// fails through all delivery attempts of this drain
	sub.failures["ev-10-3"] = fastConfig().MaxAttempts
	d.Register(sub)

	d.DrainOnce(context.Background())

	// rows before the failure were delivered and acknowledged
	require.Len(t, sub.handled, 2)
	cursor, _ := outbox.GetCursor(context.Background(), "flaky")
	assert.Equal(t, int64(2), cursor)

	// next drain redelivers the failed row and continues
	d.DrainOnce(context.Background())
	require.Len(t, sub.handled, 4)
	assert.Equal(t, int64(3), sub.handled[2].Seq)
	cursor, _ = outbox.GetCursor(context.Background(), "flaky")
	assert.Equal(t, int64(4), cursor)
}

func TestDeliveryRetriesWithinDrain(t *testing.T) {
	outbox := newFakeOutbox(testEvents(10, 1)...)
	d := NewDispatcher(outbox, fastConfig())
	sub := newRecordingSubscriber("retrying")
	// one transient failure, second attempt of the same drain succeeds
	sub.failures["ev-10-1"] = 1
	d.Register(sub)

	d.DrainOnce(context.Background())

	require.Len(t, sub.handled, 1)
	assert.Equal(t, 2, sub.callCount["ev-10-1"], "expected a retried delivery")
	cursor, _ := outbox.GetCursor(context.Background(), "retrying")
	assert.Equal(t, int64(1), cursor)
}

func TestSubscribersHaveIndependentCursors(t *testing.T) {
	outbox := newFakeOutbox(testEvents(10, 3)...)
	d := NewDispatcher(outbox, fastConfig())
	healthy := newRecordingSubscriber("healthy")
	stuck := newRecordingSubscriber("stuck")
	stuck.failures["ev-10-1"] = 1000
	d.Register(healthy)
	d.Register(stuck)

	d.DrainOnce(context.Background())

	// the stuck subscriber does not hold back the healthy one
	assert.Len(t, healthy.handled, 3)
	assert.Empty(t, stuck.handled)

	healthyCursor, _ := outbox.GetCursor(context.Background(), "healthy")
	stuckCursor, _ := outbox.GetCursor(context.Background(), "stuck")
	assert.Equal(t, int64(3), healthyCursor)
	assert.Equal(t, int64(0), stuckCursor)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	outbox := newFakeOutbox(testEvents(10, 2)...)
	d := NewDispatcher(outbox, fastConfig())
	sub := newRecordingSubscriber("bg")
	d.Register(sub)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	assert.Eventually(t, func() bool {
		cursor, _ := outbox.GetCursor(ctx, "bg")
		return cursor == 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop on cancel")
	}
}

type mockEmailService struct {
	mock.Mock
}

func (m *mockEmailService) SendLifecycleNotification(ctx context.Context, to, membershipNumber, subject, body string) error {
	args := m.Called(ctx, to, membershipNumber, subject, body)
	return args.Error(0)
}

type mockMemberReader struct {
	mock.Mock
	repository.MembershipRepository
}

func (m *mockMemberReader) GetByID(ctx context.Context, id int64) (*domain.Membership, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Membership), args.Error(1)
}

func TestCommunicationsSubscriberSendsLifecycleEmail(t *testing.T) {
	members := new(mockMemberReader)
	emails := new(mockEmailService)
	sub := NewCommunicationsSubscriber(members, emails)

	m := domain.NewMembership(1, "idp-user-1", nil, "member@test.com", domain.TextGeography("Ward 7"))
	m.ID = 10
	m.MembershipNumber = "M-000001"
	members.On("GetByID", mock.Anything, int64(10)).Return(m, nil)
	emails.On("SendLifecycleNotification", mock.Anything, "member@test.com", "M-000001",
		"Your membership has been suspended", mock.Anything).Return(nil)

	err := sub.Handle(context.Background(), domain.MembershipEvent{
		ID: "ev-1", MembershipID: 10, Type: domain.EventSuspended,
		Payload: map[string]string{"reason": "unpaid dues"},
	})
	require.NoError(t, err)
	emails.AssertExpectations(t)
}

func TestCommunicationsSubscriberSkipsNonLifecycleEvents(t *testing.T) {
	members := new(mockMemberReader)
	emails := new(mockEmailService)
	sub := NewCommunicationsSubscriber(members, emails)

	err := sub.Handle(context.Background(), domain.MembershipEvent{
		ID: "ev-2", MembershipID: 10, Type: domain.EventGeographyEnriched,
	})
	require.NoError(t, err)
	members.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	emails.AssertNotCalled(t, "SendLifecycleNotification",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCommunicationsSubscriberSkipsWithoutAddress(t *testing.T) {
	members := new(mockMemberReader)
	emails := new(mockEmailService)
	sub := NewCommunicationsSubscriber(members, emails)

	m := domain.NewMembership(1, "idp-user-1", nil, "", domain.TextGeography("Ward 7"))
	m.ID = 11
	members.On("GetByID", mock.Anything, int64(11)).Return(m, nil)

	err := sub.Handle(context.Background(), domain.MembershipEvent{
		ID: "ev-3", MembershipID: 11, Type: domain.EventTerminated,
	})
	require.NoError(t, err)
	emails.AssertNotCalled(t, "SendLifecycleNotification",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
