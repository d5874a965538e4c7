package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unistay/internal/authz"
	"unistay/internal/models"
	"unistay/internal/repositories"
)

var (
	ownerActor    = Actor{UserID: 1, Email: "owner@example.com", RoleID: authz.RoleOwner}
	studentActor  = Actor{UserID: 2, Email: "student@example.com", RoleID: authz.RoleStudent}
	strangerActor = Actor{UserID: 3, Email: "stranger@example.com", RoleID: authz.RoleStudent}
)

var testWindow = models.Availability{
	StartDate:           "2025-03-10",
	EndDate:             "2025-03-12",
	StartTime:           "10:00",
	EndTime:             "12:00",
	SlotDurationMinutes: 30,
}

type interestFixture struct {
	users     *fakeUserRepo
	posts     *fakePostRepo
	interests *fakeInterestRepo
	payments  *fakePaymentRepo
	notifier  *recordingNotifier
	svc       InterestRequestService
}

func newInterestFixture(t *testing.T) *interestFixture {
	t.Helper()
	users := newFakeUserRepo(
		&models.User{ID: 1, Email: "owner@example.com", Name: "Olga", RoleID: authz.RoleOwner},
		&models.User{ID: 2, Email: "student@example.com", Name: "Sam", RoleID: authz.RoleStudent},
		&models.User{ID: 3, Email: "stranger@example.com", Name: "Sid", RoleID: authz.RoleStudent},
	)
	posts := newFakePostRepo(&models.Post{ID: 10, OwnerID: 1, Title: "Room near campus", Address: "Main St 1", Price: 400})
	interests := newFakeInterestRepo(users, posts)
	payments := newFakePaymentRepo()
	notifier := &recordingNotifier{}
	return &interestFixture{
		users:     users,
		posts:     posts,
		interests: interests,
		payments:  payments,
		notifier:  notifier,
		svc:       NewInterestRequestService(interests, posts, users, payments, notifier),
	}
}

// seed stores a request from the student on post 10 in the given state.
func (f *interestFixture) seed(status models.InterestStatus) uuid.UUID {
	ir := &models.InterestRequest{
		ID:         uuid.New(),
		PostID:     10,
		StudentID:  2,
		Status:     status,
		RowVersion: 1,
	}
	switch status {
	case models.StatusInContact:
		w := testWindow
		ir.Availability = &w
	case models.StatusAccepted:
		w := testWindow
		at := time.Date(2025, 3, 11, 10, 30, 0, 0, time.UTC)
		ir.Availability = &w
		ir.AppointmentDateTime = &at
		ir.AppointmentConfirmedByStudent = true
	}
	f.interests.put(ir)
	return ir.ID
}

func proposal() models.ProposeAvailabilityRequest {
	return models.ProposeAvailabilityRequest{
		StartDate:           testWindow.StartDate,
		EndDate:             testWindow.EndDate,
		StartTime:           testWindow.StartTime,
		EndTime:             testWindow.EndTime,
		SlotDurationMinutes: testWindow.SlotDurationMinutes,
		Message:             "Ring twice",
	}
}

func TestInterestCreate(t *testing.T) {
	f := newInterestFixture(t)
	ctx := context.Background()

	ir, err := f.svc.Create(ctx, studentActor, models.CreateInterestRequest{PostID: 10, Message: " Is it still free? "})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCreated, ir.Status)
	assert.Equal(t, "Is it still free?", ir.Message)
	assert.NotEqual(t, uuid.Nil, ir.ID)

	stored := f.interests.stored(ir.ID)
	require.NotNil(t, stored)
	assert.Equal(t, 2, stored.StudentID)

	sent := f.notifier.all()
	require.Len(t, sent, 1)
	assert.Equal(t, "owner@example.com", sent[0].To)
	assert.Equal(t, KindInterestCreated, sent[0].Kind)
}

func TestInterestCreate_DuplicatePairConflicts(t *testing.T) {
	f := newInterestFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, studentActor, models.CreateInterestRequest{PostID: 10})
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, studentActor, models.CreateInterestRequest{PostID: 10})
	assert.ErrorIs(t, err, ErrConflict)

	// another student is a different pair
	_, err = f.svc.Create(ctx, strangerActor, models.CreateInterestRequest{PostID: 10})
	assert.NoError(t, err)
}

func TestInterestCreate_RacingInsertConflicts(t *testing.T) {
	f := newInterestFixture(t)
	f.interests.createErr = repositories.ErrDuplicate

	_, err := f.svc.Create(context.Background(), studentActor, models.CreateInterestRequest{PostID: 10})
	assert.ErrorIs(t, err, ErrConflict)
	assert.Empty(t, f.notifier.all())
}

func TestInterestCreate_NotFound(t *testing.T) {
	f := newInterestFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, studentActor, models.CreateInterestRequest{PostID: 99})
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "post", nf.Entity)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.Create(ctx, Actor{UserID: 42}, models.CreateInterestRequest{PostID: 10})
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "user", nf.Entity)
}

func TestInterestCreate_Validation(t *testing.T) {
	f := newInterestFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, studentActor, models.CreateInterestRequest{})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.Create(ctx, ownerActor, models.CreateInterestRequest{PostID: 10})
	assert.ErrorIs(t, err, ErrValidation, "owner cannot request own listing")
}

func TestProposeAvailability_FromAnyState(t *testing.T) {
	for _, status := range []models.InterestStatus{
		models.StatusCreated, models.StatusInContact, models.StatusAccepted,
		models.StatusRejected, models.StatusClosed,
	} {
		t.Run(string(status), func(t *testing.T) {
			f := newInterestFixture(t)
			id := f.seed(status)

			ir, err := f.svc.ProposeAvailability(context.Background(), ownerActor, id, proposal())
			require.NoError(t, err)
			assert.Equal(t, models.StatusInContact, ir.Status)

			stored := f.interests.stored(id)
			assert.Equal(t, models.StatusInContact, stored.Status)
			assert.Nil(t, stored.AppointmentDateTime)
			assert.False(t, stored.AppointmentConfirmedByStudent)
			assert.Equal(t, testWindow, *stored.Availability)
			assert.Equal(t, "Ring twice", stored.AppointmentMessage)
			require.NotNil(t, stored.LastUpdatedBy)
			assert.Equal(t, ownerActor.UserID, *stored.LastUpdatedBy)

			sent := f.notifier.all()
			require.Len(t, sent, 1)
			assert.Equal(t, "student@example.com", sent[0].To)
			assert.Equal(t, KindAvailabilityProposed, sent[0].Kind)
		})
	}
}

func TestProposeAvailability_OnlyOwner(t *testing.T) {
	for name, actor := range map[string]Actor{"student": studentActor, "stranger": strangerActor} {
		t.Run(name, func(t *testing.T) {
			f := newInterestFixture(t)
			id := f.seed(models.StatusAccepted)
			before := f.interests.stored(id)

			_, err := f.svc.ProposeAvailability(context.Background(), actor, id, proposal())
			assert.ErrorIs(t, err, ErrUnauthorized)
			assert.Equal(t, before, f.interests.stored(id))
			assert.Empty(t, f.notifier.all())
		})
	}
}

func TestProposeAvailability_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.ProposeAvailabilityRequest)
	}{
		{"end date before start", func(r *models.ProposeAvailabilityRequest) { r.EndDate = "2025-03-09" }},
		{"end time equals start", func(r *models.ProposeAvailabilityRequest) { r.EndTime = "10:00" }},
		{"end time before start", func(r *models.ProposeAvailabilityRequest) { r.EndTime = "09:00" }},
		{"slot longer than window", func(r *models.ProposeAvailabilityRequest) { r.SlotDurationMinutes = 121 }},
		{"zero slot", func(r *models.ProposeAvailabilityRequest) { r.SlotDurationMinutes = 0 }},
		{"bad date", func(r *models.ProposeAvailabilityRequest) { r.StartDate = "10/03/2025" }},
		{"bad time", func(r *models.ProposeAvailabilityRequest) { r.StartTime = "25:00" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newInterestFixture(t)
			id := f.seed(models.StatusCreated)
			req := proposal()
			tc.mutate(&req)

			_, err := f.svc.ProposeAvailability(context.Background(), ownerActor, id, req)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Equal(t, models.StatusCreated, f.interests.stored(id).Status)
		})
	}
}

func TestProposeAvailability_SingleDaySingleSlot(t *testing.T) {
	f := newInterestFixture(t)
	id := f.seed(models.StatusCreated)
	req := proposal()
	req.EndDate = req.StartDate
	req.SlotDurationMinutes = 120

	_, err := f.svc.ProposeAvailability(context.Background(), ownerActor, id, req)
	assert.NoError(t, err)
}

func TestConfirmAppointment(t *testing.T) {
	f := newInterestFixture(t)
	id := f.seed(models.StatusInContact)

	ir, err := f.svc.ConfirmAppointment(context.Background(), studentActor, id,
		models.ConfirmAppointmentRequest{ChosenSlot: "2025-03-11T10:30"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, ir.Status)

	stored := f.interests.stored(id)
	assert.Equal(t, models.StatusAccepted, stored.Status)
	assert.True(t, stored.AppointmentConfirmedByStudent)
	require.NotNil(t, stored.AppointmentDateTime)
	assert.True(t, time.Date(2025, 3, 11, 10, 30, 0, 0, time.UTC).Equal(*stored.AppointmentDateTime))

	sent := f.notifier.all()
	require.Len(t, sent, 1)
	assert.Equal(t, "owner@example.com", sent[0].To)
	assert.Equal(t, KindAppointmentAccepted, sent[0].Kind)
}

func TestConfirmAppointment_Slots(t *testing.T) {
	tests := []struct {
		slot string
		ok   bool
	}{
		{"2025-03-10T10:00", true},
		{"2025-03-12T11:30", true},
		{"2025-03-09T10:00", false},
		{"2025-03-13T10:00", false},
		{"2025-03-11T09:30", false},
		{"2025-03-11T11:45", false},
		{"2025-03-11T12:00", false},
		{"2025-03-11T10:15", false},
		{"2025-03-11T10:30:00", true},
		{"2025-03-11T10:30:15", false},
		{"2025-03-11 10:30", false},
		{"11/03/2025 10:30", false},
		{"", false},
	}
	for _, tc := range tests {
		t.Run(tc.slot, func(t *testing.T) {
			f := newInterestFixture(t)
			id := f.seed(models.StatusInContact)
			_, err := f.svc.ConfirmAppointment(context.Background(), studentActor, id,
				models.ConfirmAppointmentRequest{ChosenSlot: tc.slot})
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrValidation)
			assert.Equal(t, models.StatusInContact, f.interests.stored(id).Status)
		})
	}
}

func TestConfirmAppointment_RequiresInContact(t *testing.T) {
	for _, status := range []models.InterestStatus{
		models.StatusCreated, models.StatusAccepted, models.StatusRejected, models.StatusClosed,
	} {
		t.Run(string(status), func(t *testing.T) {
			f := newInterestFixture(t)
			id := f.seed(status)
			_, err := f.svc.ConfirmAppointment(context.Background(), studentActor, id,
				models.ConfirmAppointmentRequest{ChosenSlot: "2025-03-11T10:30"})
			assert.ErrorIs(t, err, ErrConflict)
		})
	}
}

func TestConfirmAppointment_OnlyStudent(t *testing.T) {
	for name, actor := range map[string]Actor{"owner": ownerActor, "stranger": strangerActor} {
		t.Run(name, func(t *testing.T) {
			f := newInterestFixture(t)
			id := f.seed(models.StatusInContact)
			_, err := f.svc.ConfirmAppointment(context.Background(), actor, id,
				models.ConfirmAppointmentRequest{ChosenSlot: "2025-03-11T10:30"})
			assert.ErrorIs(t, err, ErrUnauthorized)
			assert.Equal(t, models.StatusInContact, f.interests.stored(id).Status)
		})
	}

	// authorization is decided before the state check
	f := newInterestFixture(t)
	id := f.seed(models.StatusCreated)
	_, err := f.svc.ConfirmAppointment(context.Background(), strangerActor, id,
		models.ConfirmAppointmentRequest{ChosenSlot: "2025-03-11T10:30"})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestUpdateStatus_InContactAlwaysConflicts(t *testing.T) {
	for _, status := range []models.InterestStatus{
		models.StatusCreated, models.StatusInContact, models.StatusAccepted,
		models.StatusRejected, models.StatusClosed,
	} {
		for name, actor := range map[string]Actor{"owner": ownerActor, "student": studentActor, "stranger": strangerActor} {
			t.Run(string(status)+"/"+name, func(t *testing.T) {
				f := newInterestFixture(t)
				id := f.seed(status)
				_, err := f.svc.UpdateStatus(context.Background(), actor, id, models.StatusInContact)
				assert.ErrorIs(t, err, ErrConflict)
				assert.Equal(t, status, f.interests.stored(id).Status)
			})
		}
	}

	f := newInterestFixture(t)
	_, err := f.svc.UpdateStatus(context.Background(), ownerActor, uuid.New(), "in_contact")
	assert.ErrorIs(t, err, ErrConflict, "checked before the lookup")
}

func TestUpdateStatus(t *testing.T) {
	f := newInterestFixture(t)
	id := f.seed(models.StatusInContact)

	ir, err := f.svc.UpdateStatus(context.Background(), ownerActor, id, "rejected")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, ir.Status)
	assert.Equal(t, models.StatusRejected, f.interests.stored(id).Status)

	sent := f.notifier.all()
	require.Len(t, sent, 1)
	assert.Equal(t, "student@example.com", sent[0].To, "owner change notifies the student")

	_, err = f.svc.UpdateStatus(context.Background(), studentActor, id, models.StatusClosed)
	require.NoError(t, err)
	sent = f.notifier.all()
	require.Len(t, sent, 2)
	assert.Equal(t, "owner@example.com", sent[1].To)
}

func TestUpdateStatus_Rejections(t *testing.T) {
	f := newInterestFixture(t)
	id := f.seed(models.StatusCreated)

	_, err := f.svc.UpdateStatus(context.Background(), ownerActor, id, "ARCHIVED")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.UpdateStatus(context.Background(), strangerActor, id, models.StatusRejected)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.svc.UpdateStatus(context.Background(), ownerActor, uuid.New(), models.StatusRejected)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, models.StatusCreated, f.interests.stored(id).Status)
}

func TestCancel(t *testing.T) {
	for _, status := range []models.InterestStatus{
		models.StatusCreated, models.StatusInContact, models.StatusAccepted,
		models.StatusRejected, models.StatusClosed,
	} {
		t.Run(string(status), func(t *testing.T) {
			f := newInterestFixture(t)
			id := f.seed(status)

			ir, err := f.svc.Cancel(context.Background(), studentActor, id)
			require.NoError(t, err)
			assert.Equal(t, models.StatusClosed, ir.Status)
			assert.Equal(t, models.StatusClosed, f.interests.stored(id).Status)

			sent := f.notifier.all()
			require.Len(t, sent, 1)
			assert.Equal(t, KindInterestCancelled, sent[0].Kind)
		})
	}
}

func TestCancel_OnlyStudent(t *testing.T) {
	for name, actor := range map[string]Actor{"owner": ownerActor, "stranger": strangerActor} {
		t.Run(name, func(t *testing.T) {
			f := newInterestFixture(t)
			id := f.seed(models.StatusCreated)
			_, err := f.svc.Cancel(context.Background(), actor, id)
			assert.ErrorIs(t, err, ErrUnauthorized)
			assert.Equal(t, models.StatusCreated, f.interests.stored(id).Status)
		})
	}
}

func TestGet(t *testing.T) {
	f := newInterestFixture(t)
	id := f.seed(models.StatusCreated)
	ctx := context.Background()

	for _, actor := range []Actor{ownerActor, studentActor} {
		ir, err := f.svc.Get(ctx, actor, id)
		require.NoError(t, err)
		assert.Equal(t, id, ir.ID)
	}

	_, err := f.svc.Get(ctx, strangerActor, id)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.svc.Get(ctx, ownerActor, uuid.New())
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "interest request", nf.Entity)
}

func TestListMineAndReceived(t *testing.T) {
	f := newInterestFixture(t)
	f.seed(models.StatusCreated)
	ctx := context.Background()

	mine, err := f.svc.ListMine(ctx, studentActor)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	received, err := f.svc.ListReceived(ctx, ownerActor)
	require.NoError(t, err)
	assert.Len(t, received, 1)

	none, err := f.svc.ListReceived(ctx, studentActor)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestListAcceptedAwaitingPayment(t *testing.T) {
	f := newInterestFixture(t)
	ctx := context.Background()

	accepted := f.seed(models.StatusAccepted)
	f.seed(models.StatusInContact)
	// accepted by status update only, never confirmed
	f.interests.put(&models.InterestRequest{PostID: 10, StudentID: 3, Status: models.StatusAccepted, RowVersion: 1})

	got, err := f.svc.ListAcceptedAwaitingPayment(ctx, ownerActor)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, accepted, got[0].ID)

	require.NoError(t, f.payments.Create(ctx, &models.Payment{InterestRequestID: accepted, Amount: 400, Currency: "EUR"}))

	got, err = f.svc.ListAcceptedAwaitingPayment(ctx, ownerActor)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = f.svc.ListAcceptedAwaitingPayment(ctx, studentActor)
	require.NoError(t, err)
	assert.Empty(t, got, "scoped to the owner")
}

func TestUpdate_RetriesOnVersionConflict(t *testing.T) {
	f := newInterestFixture(t)
	id := f.seed(models.StatusCreated)
	f.interests.lostRaces = maxUpdateAttempts - 1

	_, err := f.svc.Cancel(context.Background(), studentActor, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusClosed, f.interests.stored(id).Status)
}

func TestUpdate_GivesUpAfterMaxAttempts(t *testing.T) {
	f := newInterestFixture(t)
	id := f.seed(models.StatusCreated)
	f.interests.lostRaces = maxUpdateAttempts

	_, err := f.svc.Cancel(context.Background(), studentActor, id)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, models.StatusCreated, f.interests.stored(id).Status)
	assert.Empty(t, f.notifier.all(), "no notification without a write")
}

func TestNotificationFailureDoesNotAffectTransition(t *testing.T) {
	f := newInterestFixture(t)
	failing := &scriptedChannel{name: "email", failures: 100}
	d := NewDispatcher(DispatcherOptions{Workers: 1, QueueSize: 4, MaxAttempts: 2, InitialBackoff: time.Millisecond}, failing)
	d.Start(context.Background())
	svc := NewInterestRequestService(f.interests, f.posts, f.users, f.payments, d)

	id := f.seed(models.StatusCreated)
	ir, err := svc.ProposeAvailability(context.Background(), ownerActor, id, proposal())
	require.NoError(t, err)
	assert.Equal(t, models.StatusInContact, ir.Status)

	d.Stop()
	attempts, delivered := failing.counts()
	assert.Equal(t, 2, attempts)
	assert.Zero(t, delivered)
	assert.Equal(t, models.StatusInContact, f.interests.stored(id).Status)
}

