package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/rollcall-io/attendance-api/internal/dto"
	"github.com/rollcall-io/attendance-api/internal/export"
	"github.com/rollcall-io/attendance-api/internal/models"
	"github.com/rollcall-io/attendance-api/internal/repository"
)

// ReportService aggregates the ledger into per-user summaries and per-session
// roster reports, with an xlsx export for the latter.
type ReportService interface {
	UserSummary(ctx context.Context, actor Actor, activityID, userID uint) (dto.UserSummaryResponse, error)
	SessionReport(ctx context.Context, actor Actor, sessionID uint) (dto.SessionReportResponse, error)
	ExportSessionReport(ctx context.Context, actor Actor, sessionID uint) ([]byte, string, error)
}

type reportService struct {
	sessions repository.SessionRepository
	statuses repository.StatusRepository
	ledger   repository.LedgerRepository
	roster   RosterProvider
	cache    *redis.Client
	cacheTTL time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

// NewReportService builds the reporting aggregator. The cache client may be
// nil, in which case every summary is computed from the database.
func NewReportService(sessions repository.SessionRepository, statuses repository.StatusRepository, ledger repository.LedgerRepository, roster RosterProvider, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) ReportService {
	return &reportService{
		sessions: sessions,
		statuses: statuses,
		ledger:   ledger,
		roster:   roster,
		cache:    cache,
		cacheTTL: ttl,
		logger:   logger.With().Str("component", "report_service").Logger(),
		now:      time.Now,
	}
}

// UserSummary computes a user's points and the two percentage views for one
// activity. Students may only request their own summary.
func (s *reportService) UserSummary(ctx context.Context, actor Actor, activityID, userID uint) (dto.UserSummaryResponse, error) {
	if userID != actor.ID && !actor.Staff() {
		return dto.UserSummaryResponse{}, ErrPermissionDenied
	}

	cacheKey := fmt.Sprintf("summary:activity:%d:user:%d", activityID, userID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.UserSummaryResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				s.logger.Debug().Uint("user_id", userID).Msg("summary cache hit")
				return response, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("summary cache read failed")
		}
	}

	response, err := s.buildUserSummary(ctx, activityID, userID)
	if err != nil {
		return dto.UserSummaryResponse{}, err
	}

	if s.cache != nil {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store summary cache")
			}
		}
	}

	return response, nil
}

func (s *reportService) buildUserSummary(ctx context.Context, activityID, userID uint) (dto.UserSummaryResponse, error) {
	sessions, _, err := s.sessions.ListByActivity(ctx, activityID, repository.SessionFilter{IncludeHidden: true})
	if err != nil {
		return dto.UserSummaryResponse{}, err
	}

	statuses, err := s.statuses.ListByActivity(ctx, activityID)
	if err != nil {
		return dto.UserSummaryResponse{}, err
	}
	statusByID := make(map[uint]models.Status, len(statuses))
	for _, status := range statuses {
		statusByID[status.ID] = status
	}
	setMax := models.StatusSetMaxPoints(statuses)

	entries, err := s.ledger.EntriesForUser(ctx, activityID, userID)
	if err != nil {
		return dto.UserSummaryResponse{}, err
	}
	entryBySession := make(map[uint]models.LedgerEntry, len(entries))
	for _, entry := range entries {
		entryBySession[entry.SessionID] = entry
	}

	var points, maxToDate, maxAll float64
	var taken int
	counts := make(map[uint]int)

	for _, session := range sessions {
		setPeak := setMax[session.StatusSetNumber]
		maxAll += setPeak

		entry, ok := entryBySession[session.ID]
		if !ok {
			continue
		}
		// The "to date" denominator only grows with sessions this user has a
		// recorded status for; untaken sessions do not dilute it.
		taken++
		maxToDate += setPeak
		counts[entry.StatusID]++
		if status, ok := statusByID[entry.StatusID]; ok {
			points += status.Points
		}
	}

	statusIDs := make([]uint, 0, len(counts))
	for id := range counts {
		statusIDs = append(statusIDs, id)
	}
	sort.Slice(statusIDs, func(i, j int) bool { return statusIDs[i] < statusIDs[j] })

	statusCounts := make([]dto.StatusCount, 0, len(statusIDs))
	for _, id := range statusIDs {
		status := statusByID[id]
		statusCounts = append(statusCounts, dto.StatusCount{
			StatusID:    id,
			Acronym:     status.Acronym,
			Description: status.Description,
			Count:       counts[id],
			Points:      status.Points,
		})
	}

	return dto.UserSummaryResponse{
		CourseActivityID:     activityID,
		UserID:               userID,
		StatusCounts:         statusCounts,
		Points:               points,
		MaxPointsToDate:      maxToDate,
		MaxPointsAllSessions: maxAll,
		PercentageToDate:     formatPercentage(points, maxToDate),
		PercentageOverall:    formatPercentage(points, maxAll),
		SessionsTaken:        taken,
		SessionsTotal:        len(sessions),
	}, nil
}

// SessionReport returns the roster-by-status view of one session. Roster rows
// come from the enrollment source; users with a ledger entry but no roster
// membership anymore are appended so nothing recorded is hidden.
func (s *reportService) SessionReport(ctx context.Context, actor Actor, sessionID uint) (dto.SessionReportResponse, error) {
	if !actor.CanTakeAttendance {
		return dto.SessionReportResponse{}, ErrPermissionDenied
	}

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SessionReportResponse{}, ErrSessionNotFound
		}
		return dto.SessionReportResponse{}, err
	}

	statuses, err := s.statuses.ListSet(ctx, session.CourseActivityID, session.StatusSetNumber)
	if err != nil {
		return dto.SessionReportResponse{}, err
	}
	statusByID := make(map[uint]models.Status, len(statuses))
	for _, status := range statuses {
		statusByID[status.ID] = status
	}

	entries, err := s.ledger.EntriesForSession(ctx, sessionID)
	if err != nil {
		return dto.SessionReportResponse{}, err
	}
	entryByUser := make(map[uint]models.LedgerEntry, len(entries))
	for _, entry := range entries {
		entryByUser[entry.UserID] = entry
	}

	roster, err := s.roster.Roster(ctx, session.CourseActivityID, session.GroupID)
	if err != nil {
		return dto.SessionReportResponse{}, err
	}
	seen := make(map[uint]struct{}, len(roster))
	for _, userID := range roster {
		seen[userID] = struct{}{}
	}
	extras := make([]uint, 0)
	for _, entry := range entries {
		if _, ok := seen[entry.UserID]; !ok {
			extras = append(extras, entry.UserID)
		}
	}
	sort.Slice(extras, func(i, j int) bool { return extras[i] < extras[j] })
	roster = append(roster, extras...)

	rows := make([]dto.SessionReportRow, 0, len(roster))
	for _, userID := range roster {
		row := dto.SessionReportRow{UserID: userID}
		if entry, ok := entryByUser[userID]; ok {
			statusID := entry.StatusID
			row.StatusID = &statusID
			row.Remarks = entry.Remarks
			recordedAt := entry.RecordedAt
			row.RecordedAt = &recordedAt
			row.ViaOnlineCheckin = entry.ViaOnlineCheckin
			if status, ok := statusByID[entry.StatusID]; ok {
				row.Acronym = status.Acronym
				row.Description = status.Description
				points := status.Points
				row.Points = &points
			}
		}
		rows = append(rows, row)
	}

	return dto.SessionReportResponse{
		Session: dto.SessionReportHeader{
			SessionID:       session.ID,
			StartTime:       session.StartTime,
			DurationSeconds: session.DurationSeconds,
			Description:     session.Description,
			StatusSetNumber: session.StatusSetNumber,
		},
		Rows: rows,
	}, nil
}

// ExportSessionReport renders the session report as an xlsx workbook.
func (s *reportService) ExportSessionReport(ctx context.Context, actor Actor, sessionID uint) ([]byte, string, error) {
	report, err := s.SessionReport(ctx, actor, sessionID)
	if err != nil {
		return nil, "", err
	}

	rows := make([][]string, 0, len(report.Rows))
	for _, row := range report.Rows {
		acronym := row.Acronym
		if row.StatusID == nil {
			acronym = "-"
		}
		points := "-"
		if row.Points != nil {
			points = strconv.FormatFloat(*row.Points, 'f', -1, 64)
		}
		recorded := ""
		if row.RecordedAt != nil {
			recorded = row.RecordedAt.Format(time.RFC3339)
		}
		via := ""
		if row.ViaOnlineCheckin {
			via = "yes"
		}
		rows = append(rows, []string{
			strconv.FormatUint(uint64(row.UserID), 10),
			acronym,
			row.Description,
			points,
			row.Remarks,
			recorded,
			via,
		})
	}

	content, err := export.WorkbookBytes([]export.SheetSpec{{
		Title:  "Attendance",
		Header: []string{"User ID", "Status", "Description", "Points", "Remarks", "Recorded At", "Online Checkin"},
		Rows:   rows,
	}})
	if err != nil {
		return nil, "", err
	}

	filename := export.ReportFilename(
		"attendance session",
		strconv.FormatUint(uint64(report.Session.SessionID), 10),
		report.Session.StartTime.Format("2006-01-02"),
	)

	return content, filename, nil
}

// formatPercentage renders points/max as a half-up one-decimal percentage, or
// "-" when the denominator is zero.
func formatPercentage(points, max float64) string {
	if max <= 0 {
		return "-"
	}
	value := points * 100 / max
	rounded := math.Floor(value*10+0.5) / 10

	return strconv.FormatFloat(rounded, 'f', 1, 64)
}
