package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rollcall-io/attendance-api/internal/dto"
	"github.com/rollcall-io/attendance-api/internal/models"
	"github.com/rollcall-io/attendance-api/internal/repository"
)

var testBase = time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Session{},
		&models.Status{},
		&models.LedgerEntry{},
		&models.ActionLog{},
		&models.CheckinCredential{},
		&models.CheckinImage{},
		&models.FeedbackEntry{},
	))

	return db
}

func staffActor() Actor {
	return Actor{ID: 9, Role: "teacher", CanTakeAttendance: true, CanManageAttendance: true}
}

func seedSession(t *testing.T, db *gorm.DB, activityID uint, start time.Time, durationSeconds int) models.Session {
	t.Helper()

	session := models.Session{
		CourseActivityID: activityID,
		StartTime:        start,
		DurationSeconds:  durationSeconds,
		StatusSetNumber:  0,
	}
	require.NoError(t, db.Create(&session).Error)

	return session
}

func seedStatus(t *testing.T, db *gorm.DB, activityID uint, setNumber int, acronym string, points float64, selfCheckin bool) models.Status {
	t.Helper()

	status := models.Status{
		CourseActivityID: activityID,
		SetNumber:        setNumber,
		Acronym:          acronym,
		Description:      "Status " + acronym,
		Points:           points,
		SelfCheckin:      selfCheckin,
		Visible:          true,
	}
	require.NoError(t, db.Create(&status).Error)

	return status
}

func newLedgerService(t *testing.T, db *gorm.DB, now time.Time) LedgerService {
	t.Helper()

	validate := validator.New(validator.WithRequiredStructEnabled())
	events := NewEventStream(nil, "", zerolog.Nop())
	svc := NewLedgerService(
		repository.NewSessionRepository(db),
		repository.NewStatusRepository(db),
		repository.NewLedgerRepository(db),
		events,
		validate,
		zerolog.Nop(),
	)
	svc.(*ledgerService).now = func() time.Time { return now }

	return svc
}

func TestLedgerServiceSetStatusCreatesEntryAndLog(t *testing.T) {
	db := newTestDB(t, "ledger_create")
	session := seedSession(t, db, 1, testBase, 3600)
	present := seedStatus(t, db, 1, 0, "P", 2, true)

	svc := newLedgerService(t, db, testBase.Add(10*time.Minute))

	entry, err := svc.SetStatus(context.Background(), staffActor(), session.ID, 42, present.ID, "front row", false)
	require.NoError(t, err)
	require.Equal(t, present.ID, entry.StatusID)
	require.Equal(t, uint(42), entry.UserID)
	require.Equal(t, "front row", entry.Remarks)

	var logs []models.ActionLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)
	require.Nil(t, logs[0].OldStatusID)
	require.Equal(t, present.ID, logs[0].NewStatusID)
	require.Contains(t, logs[0].Description, "unmarked")

	var stored models.Session
	require.NoError(t, db.First(&stored, session.ID).Error)
	require.NotNil(t, stored.LastTakenAt)
	require.Equal(t, staffActor().ID, stored.LastTakenBy)
}

func TestLedgerServiceRewriteKeepsSingleRow(t *testing.T) {
	db := newTestDB(t, "ledger_rewrite")
	session := seedSession(t, db, 1, testBase, 3600)
	present := seedStatus(t, db, 1, 0, "P", 2, false)
	late := seedStatus(t, db, 1, 0, "L", 1, false)

	svc := newLedgerService(t, db, testBase.Add(5*time.Minute))
	actor := staffActor()

	_, err := svc.SetStatus(context.Background(), actor, session.ID, 42, present.ID, "", false)
	require.NoError(t, err)
	_, err = svc.SetStatus(context.Background(), actor, session.ID, 42, late.ID, "", false)
	require.NoError(t, err)

	// Writing the same status again is not suppressed.
	_, err = svc.SetStatus(context.Background(), actor, session.ID, 42, late.ID, "", false)
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.LedgerEntry{}).Count(&count).Error)
	require.Equal(t, int64(1), count)

	var entry models.LedgerEntry
	require.NoError(t, db.First(&entry).Error)
	require.Equal(t, late.ID, entry.StatusID)
	require.Equal(t, 3, entry.Version)

	var logs []models.ActionLog
	require.NoError(t, db.Order("id ASC").Find(&logs).Error)
	require.Len(t, logs, 3)
	require.Equal(t, present.ID, *logs[1].OldStatusID)
	require.Equal(t, late.ID, logs[1].NewStatusID)
	require.Equal(t, late.ID, *logs[2].OldStatusID)
	require.Equal(t, late.ID, logs[2].NewStatusID)
}

func TestLedgerServiceSelfMarkWindowGuard(t *testing.T) {
	db := newTestDB(t, "ledger_selfmark")
	session := seedSession(t, db, 1, testBase, 3600)
	present := seedStatus(t, db, 1, 0, "P", 2, true)

	student := Actor{ID: 42, Role: "student"}

	afterEnd := newLedgerService(t, db, testBase.Add(2*time.Hour))
	_, err := afterEnd.SetStatus(context.Background(), student, session.ID, student.ID, present.ID, "", false)
	require.ErrorIs(t, err, ErrOutsideSessionWindow)

	during := newLedgerService(t, db, testBase.Add(20*time.Minute))
	entry, err := during.SetStatus(context.Background(), student, session.ID, student.ID, present.ID, "", false)
	require.NoError(t, err)
	require.Equal(t, student.ID, entry.RecordedBy)
}

func TestLedgerServiceRejectsForeignStatusSet(t *testing.T) {
	db := newTestDB(t, "ledger_setmismatch")
	session := seedSession(t, db, 1, testBase, 3600)
	otherSet := seedStatus(t, db, 1, 3, "P", 2, false)
	otherActivity := seedStatus(t, db, 2, 0, "P", 2, false)

	svc := newLedgerService(t, db, testBase.Add(time.Minute))

	_, err := svc.SetStatus(context.Background(), staffActor(), session.ID, 42, otherSet.ID, "", false)
	require.ErrorIs(t, err, ErrStatusSetMismatch)

	_, err = svc.SetStatus(context.Background(), staffActor(), session.ID, 42, otherActivity.ID, "", false)
	require.ErrorIs(t, err, ErrStatusSetMismatch)
}

func TestLedgerServiceStudentCannotMarkOthers(t *testing.T) {
	db := newTestDB(t, "ledger_permission")
	session := seedSession(t, db, 1, testBase, 3600)
	present := seedStatus(t, db, 1, 0, "P", 2, false)

	svc := newLedgerService(t, db, testBase.Add(time.Minute))
	student := Actor{ID: 42, Role: "student"}

	_, err := svc.SetStatus(context.Background(), student, session.ID, 77, present.ID, "", false)
	require.ErrorIs(t, err, ErrPermissionDenied)
}

func TestLedgerServiceSanitizesRemarks(t *testing.T) {
	db := newTestDB(t, "ledger_sanitize")
	session := seedSession(t, db, 1, testBase, 3600)
	present := seedStatus(t, db, 1, 0, "P", 2, false)

	svc := newLedgerService(t, db, testBase.Add(time.Minute))

	entry, err := svc.SetStatus(context.Background(), staffActor(), session.ID, 42, present.ID, "<script>alert('x')</script> ok", false)
	require.NoError(t, err)
	require.Equal(t, "ok", entry.Remarks)
}

func TestLedgerServiceTakeBulk(t *testing.T) {
	db := newTestDB(t, "ledger_take")
	session := seedSession(t, db, 1, testBase, 3600)
	present := seedStatus(t, db, 1, 0, "P", 2, false)
	absent := seedStatus(t, db, 1, 0, "A", 0, false)

	svc := newLedgerService(t, db, testBase.Add(time.Minute))

	entries, err := svc.Take(context.Background(), staffActor(), session.ID, dto.TakeRequest{Entries: []dto.TakeEntry{
		{UserID: 1, StatusID: present.ID},
		{UserID: 2, StatusID: absent.ID, Remarks: "sick note pending"},
	}})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	records, err := svc.SessionEntries(context.Background(), session.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)

	student := Actor{ID: 42, Role: "student"}
	_, err = svc.Take(context.Background(), student, session.ID, dto.TakeRequest{Entries: []dto.TakeEntry{
		{UserID: 1, StatusID: present.ID},
	}})
	require.ErrorIs(t, err, ErrPermissionDenied)
}

func TestLedgerServiceLogsFilteredBySearch(t *testing.T) {
	db := newTestDB(t, "ledger_logs")
	session := seedSession(t, db, 1, testBase, 3600)
	present := seedStatus(t, db, 1, 0, "P", 2, false)
	late := seedStatus(t, db, 1, 0, "L", 1, false)

	svc := newLedgerService(t, db, testBase.Add(time.Minute))
	actor := staffActor()

	_, err := svc.SetStatus(context.Background(), actor, session.ID, 42, present.ID, "", false)
	require.NoError(t, err)
	_, err = svc.SetStatus(context.Background(), actor, session.ID, 42, late.ID, "", false)
	require.NoError(t, err)

	logs, total, err := svc.Logs(context.Background(), actor, 1, repository.ActionLogFilter{})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, logs, 2)

	logs, total, err = svc.Logs(context.Background(), actor, 1, repository.ActionLogFilter{Search: "Status L"})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, late.ID, logs[0].NewStatusID)

	student := Actor{ID: 42, Role: "student"}
	_, _, err = svc.Logs(context.Background(), student, 1, repository.ActionLogFilter{})
	require.ErrorIs(t, err, ErrPermissionDenied)
}
