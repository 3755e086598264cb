package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/xhdskyprime/rekruitment/internal/dto"
	"github.com/xhdskyprime/rekruitment/internal/models"
	appErrors "github.com/xhdskyprime/rekruitment/pkg/errors"
	"github.com/xhdskyprime/rekruitment/pkg/export"
)

const rosterExportPageSize = 500

type attendanceRepository interface {
	identifierRepository
	MarkPresent(ctx context.Context, applicantID string, at time.Time) (bool, error)
	ResetAttendance(ctx context.Context) (int64, error)
	List(ctx context.Context, filter models.ApplicantFilter) ([]models.Applicant, int, error)
}

type attendanceSessionRepository interface {
	List(ctx context.Context) ([]models.ExamSessionWithOccupancy, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title, subtitle string) ([]byte, error)
}

// AttendanceService processes exam day check-ins and the attendance roster.
type AttendanceService struct {
	repo      attendanceRepository
	sessions  attendanceSessionRepository
	csv       csvRenderer
	pdf       pdfRenderer
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	location  *time.Location
	now       func() time.Time
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(repo attendanceRepository, sessions attendanceSessionRepository, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, location *time.Location) *AttendanceService {
	if validate == nil {
		validate = dto.NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if location == nil {
		location = time.UTC
	}
	return &AttendanceService{
		repo:      repo,
		sessions:  sessions,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		location:  location,
		now:       time.Now,
	}
}

// CheckIn marks the applicant identified by a scanned participant number or id
// as present. A repeated scan keeps the first timestamp and reports AlreadyPresent.
func (s *AttendanceService) CheckIn(ctx context.Context, req dto.CheckInRequest) (*dto.CheckInResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid check-in payload")
	}
	applicant, err := resolveIdentifier(ctx, s.repo, req.Identifier)
	if err != nil {
		s.metrics.RecordCheckIn(OutcomeCheckInRejected)
		return nil, err
	}
	if applicant.Status() != models.StatusVerified {
		s.metrics.RecordCheckIn(OutcomeCheckInRejected)
		return nil, appErrors.Clone(appErrors.ErrNotEligible, "only verified applicants can check in")
	}

	at := s.now().UTC()
	applied, err := s.repo.MarkPresent(ctx, applicant.ID, at)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attendance")
	}

	if applied {
		applicant.AttendanceStatus = models.AttendancePresent
		applicant.AttendedAt = &at
		s.metrics.RecordCheckIn(OutcomeCheckInPresent)
		s.logger.Info("applicant checked in", zap.String("applicant_id", applicant.ID), zap.Time("attended_at", at))
		return &dto.CheckInResult{Applicant: models.NewApplicantView(applicant)}, nil
	}

	current, err := s.repo.FindByID(ctx, applicant.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "applicant not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload applicant")
	}
	s.metrics.RecordCheckIn(OutcomeCheckInAlreadyPresent)
	return &dto.CheckInResult{Applicant: models.NewApplicantView(current), AlreadyPresent: true}, nil
}

// ResetAll returns every applicant to absent and clears the check-in timestamps.
func (s *AttendanceService) ResetAll(ctx context.Context) (*dto.ResetAttendanceResult, error) {
	affected, err := s.repo.ResetAttendance(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset attendance")
	}
	s.logger.Warn("attendance reset", zap.Int64("applicants", affected))
	return &dto.ResetAttendanceResult{Reset: affected}, nil
}

// List returns the attendance roster.
func (s *AttendanceService) List(ctx context.Context, filter models.ApplicantFilter) ([]models.ApplicantView, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > rosterExportPageSize {
		filter.PageSize = 20
	}
	if filter.Attendance != nil && *filter.Attendance != models.AttendanceAbsent && *filter.Attendance != models.AttendancePresent {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "invalid attendance filter")
	}
	applicants, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	views := make([]models.ApplicantView, len(applicants))
	for i := range applicants {
		views[i] = models.NewApplicantView(&applicants[i])
	}
	return views, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Export renders the full roster matching filter as CSV or PDF.
func (s *AttendanceService) Export(ctx context.Context, filter models.ApplicantFilter, format dto.AttendanceExportFormat) (*dto.RenderedDocument, error) {
	if format != dto.ExportCSV && format != dto.ExportPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	sessionNames, err := s.sessionNames(ctx)
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{
		Headers: []string{"No", "Nomor Peserta", "Nama", "NIK", "Posisi", "Sesi", "Kehadiran", "Waktu Hadir"},
		Widths:  []float64{10, 42, 60, 40, 45, 40, 22, 35},
	}
	filter.Page = 1
	filter.PageSize = rosterExportPageSize
	if filter.SortBy == "" {
		filter.SortBy = "participant_number"
		filter.SortOrder = "asc"
	}
	row := 0
	for {
		applicants, total, err := s.repo.List(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance roster")
		}
		for i := range applicants {
			row++
			dataset.AddRow(s.rosterRow(row, &applicants[i], sessionNames)...)
		}
		if len(applicants) == 0 || filter.Page*filter.PageSize >= total {
			break
		}
		filter.Page++
	}

	stamp := s.now().In(s.location)
	base := "daftar-hadir-" + stamp.Format("20060102-150405")
	switch format {
	case dto.ExportPDF:
		content, err := s.pdf.Render(dataset, "Daftar Hadir Peserta Ujian", fmt.Sprintf("Dicetak %s, %d peserta", stamp.Format("02-01-2006 15:04"), row))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render attendance pdf")
		}
		return &dto.RenderedDocument{Filename: base + ".pdf", ContentType: "application/pdf", Content: content}, nil
	default:
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render attendance csv")
		}
		return &dto.RenderedDocument{Filename: base + ".csv", ContentType: "text/csv", Content: content}, nil
	}
}

func (s *AttendanceService) rosterRow(n int, a *models.Applicant, sessionNames map[string]string) []string {
	number := ""
	if a.HasParticipantNumber() {
		number = *a.ParticipantNumber
	}
	session := "-"
	if a.SessionID != nil {
		if name, ok := sessionNames[*a.SessionID]; ok {
			session = name
		}
	}
	attendance := "Tidak hadir"
	attendedAt := ""
	if a.AttendanceStatus == models.AttendancePresent {
		attendance = "Hadir"
		if a.AttendedAt != nil {
			attendedAt = a.AttendedAt.In(s.location).Format("02-01-2006 15:04")
		}
	}
	return []string{strconv.Itoa(n), number, a.FullName, a.NationalID, a.Position, session, attendance, attendedAt}
}

func (s *AttendanceService) sessionNames(ctx context.Context) (map[string]string, error) {
	names := map[string]string{}
	if s.sessions == nil {
		return names, nil
	}
	sessions, err := s.sessions.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sessions")
	}
	for _, session := range sessions {
		names[session.ID] = session.Name
	}
	return names, nil
}
