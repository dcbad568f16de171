package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/rollcall-io/attendance-api/internal/dto"
	"github.com/rollcall-io/attendance-api/internal/models"
	"github.com/rollcall-io/attendance-api/internal/repository"
)

func newFeedbackService(t *testing.T, db *gorm.DB, now time.Time) FeedbackService {
	t.Helper()

	validate := validator.New(validator.WithRequiredStructEnabled())
	ledger := NewLedgerService(
		repository.NewSessionRepository(db),
		repository.NewStatusRepository(db),
		repository.NewLedgerRepository(db),
		NewEventStream(nil, "", zerolog.Nop()),
		validate,
		zerolog.Nop(),
	)
	ledger.(*ledgerService).now = func() time.Time { return now }

	svc := NewFeedbackService(
		repository.NewFeedbackRepository(db),
		repository.NewSessionRepository(db),
		ledger,
		validate,
		zerolog.Nop(),
	)
	svc.(*feedbackService).now = func() time.Time { return now }

	return svc
}

func TestFeedbackServiceRaise(t *testing.T) {
	db := newTestDB(t, "feedback_raise")
	session := seedSession(t, db, 1, testBase, 3600)

	svc := newFeedbackService(t, db, testBase.Add(time.Hour))
	student := Actor{ID: 42, Role: "student"}

	raised, err := svc.Raise(context.Background(), student, dto.FeedbackCreateRequest{
		SessionID:   session.ID,
		Description: "<b>I was</b> in the room the whole time",
	})
	require.NoError(t, err)
	require.Equal(t, student.ID, raised.UserID)
	require.Equal(t, student.ID, raised.RaisedBy)
	require.Equal(t, "I was in the room the whole time", raised.Description)
	require.False(t, raised.Resolved)

	// Students cannot dispute on behalf of someone else.
	_, err = svc.Raise(context.Background(), student, dto.FeedbackCreateRequest{
		SessionID:   session.ID,
		UserID:      77,
		Description: "my friend was there too",
	})
	require.ErrorIs(t, err, ErrPermissionDenied)

	// Staff can.
	onBehalf, err := svc.Raise(context.Background(), staffActor(), dto.FeedbackCreateRequest{
		SessionID:   session.ID,
		UserID:      77,
		Description: "marked absent by mistake",
	})
	require.NoError(t, err)
	require.Equal(t, uint(77), onBehalf.UserID)
	require.Equal(t, staffActor().ID, onBehalf.RaisedBy)

	_, err = svc.Raise(context.Background(), student, dto.FeedbackCreateRequest{
		SessionID:   9999,
		Description: "no such session",
	})
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestFeedbackServiceResolveWritesLedger(t *testing.T) {
	db := newTestDB(t, "feedback_resolve")
	session := seedSession(t, db, 1, testBase, 3600)
	present := seedStatus(t, db, 1, 0, "P", 2, false)
	absent := seedStatus(t, db, 1, 0, "A", 0, false)

	now := testBase.Add(time.Hour)
	svc := newFeedbackService(t, db, now)
	student := Actor{ID: 42, Role: "student"}
	staff := staffActor()

	require.NoError(t, db.Create(&models.LedgerEntry{
		SessionID:  session.ID,
		UserID:     student.ID,
		StatusID:   absent.ID,
		RecordedAt: testBase,
		RecordedBy: staff.ID,
		Version:    1,
	}).Error)

	raised, err := svc.Raise(context.Background(), student, dto.FeedbackCreateRequest{
		SessionID:   session.ID,
		Description: "I arrived before roll call",
	})
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), student, raised.ID, dto.FeedbackResolveRequest{StatusID: present.ID})
	require.ErrorIs(t, err, ErrPermissionDenied)

	resolved, err := svc.Resolve(context.Background(), staff, raised.ID, dto.FeedbackResolveRequest{StatusID: present.ID})
	require.NoError(t, err)
	require.True(t, resolved.Resolved)
	require.Equal(t, present.ID, *resolved.ResolvedStatusID)
	require.Equal(t, staff.ID, *resolved.ResolvedBy)
	require.Equal(t, now, resolved.ResolvedAt.UTC())

	// The correction flows through the ledger and its audit trail.
	var entry models.LedgerEntry
	require.NoError(t, db.Where("session_id = ? AND user_id = ?", session.ID, student.ID).First(&entry).Error)
	require.Equal(t, present.ID, entry.StatusID)

	var logs int64
	require.NoError(t, db.Model(&models.ActionLog{}).Count(&logs).Error)
	require.Equal(t, int64(1), logs)

	_, err = svc.Resolve(context.Background(), staff, raised.ID, dto.FeedbackResolveRequest{StatusID: present.ID})
	require.ErrorIs(t, err, ErrConflict)

	_, err = svc.Resolve(context.Background(), staff, 9999, dto.FeedbackResolveRequest{StatusID: present.ID})
	require.ErrorIs(t, err, ErrFeedbackNotFound)
}

func TestFeedbackServiceListScopesStudents(t *testing.T) {
	db := newTestDB(t, "feedback_list")
	session := seedSession(t, db, 1, testBase, 3600)
	present := seedStatus(t, db, 1, 0, "P", 2, false)

	now := testBase.Add(time.Hour)
	svc := newFeedbackService(t, db, now)
	staff := staffActor()
	student := Actor{ID: 42, Role: "student"}

	mine, err := svc.Raise(context.Background(), student, dto.FeedbackCreateRequest{
		SessionID:   session.ID,
		Description: "wrongly marked absent",
	})
	require.NoError(t, err)
	_, err = svc.Raise(context.Background(), Actor{ID: 77, Role: "student"}, dto.FeedbackCreateRequest{
		SessionID:   session.ID,
		Description: "also wrongly marked",
	})
	require.NoError(t, err)

	all, total, err := svc.List(context.Background(), staff, repository.FeedbackFilter{})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, all, 2)

	// Unresolved disputes stay invisible to the student who raised them
	// until staff has acted on them.
	pending, total, err := svc.List(context.Background(), student, repository.FeedbackFilter{})
	require.NoError(t, err)
	require.Zero(t, total)
	require.Empty(t, pending)

	_, err = svc.Resolve(context.Background(), staff, mine.ID, dto.FeedbackResolveRequest{StatusID: present.ID})
	require.NoError(t, err)

	visible, total, err := svc.List(context.Background(), student, repository.FeedbackFilter{UserID: 77})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, mine.ID, visible[0].ID)
}
