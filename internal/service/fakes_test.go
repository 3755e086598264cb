package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xhdskyprime/rekruitment/internal/models"
	"github.com/xhdskyprime/rekruitment/internal/repository"
)

// applicantStoreStub is an in-memory applicant store with the same conditional
// write semantics as the SQL repository.
type applicantStoreStub struct {
	mu         sync.Mutex
	applicants map[string]*models.Applicant
	sessions   map[string]*models.ExamSession
	counters   map[string]int64
	seq        int64
	now        time.Time

	findErr      error
	saveDocErr   error
	beforeSave   func(a *models.Applicant)
	setNumberErr error
	listCalls    int
	markPresent  int
}

func newApplicantStoreStub() *applicantStoreStub {
	return &applicantStoreStub{
		applicants: map[string]*models.Applicant{},
		sessions:   map[string]*models.ExamSession{},
		counters:   map[string]int64{},
		now:        time.Date(2024, 3, 15, 2, 0, 0, 0, time.UTC),
	}
}

func cloneApplicant(a *models.Applicant) *models.Applicant {
	c := *a
	c.Documents = append([]models.DocumentSlot(nil), a.Documents...)
	return &c
}

func (s *applicantStoreStub) add(a *models.Applicant) *models.Applicant {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Documents == nil {
		a.Documents = models.NewDocumentSlots(a.ID)
	}
	if a.AttendanceStatus == "" {
		a.AttendanceStatus = models.AttendanceAbsent
	}
	s.seq++
	if a.Sequence == 0 {
		a.Sequence = s.seq
	}
	s.applicants[a.ID] = cloneApplicant(a)
	return a
}

func (s *applicantStoreStub) addSession(session *models.ExamSession) *models.ExamSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	stored := *session
	s.sessions[session.ID] = &stored
	return session
}

func (s *applicantStoreStub) get(id string) *models.Applicant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneApplicant(s.applicants[id])
}

func (s *applicantStoreStub) Create(ctx context.Context, applicant *models.Applicant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	applicant.ID = uuid.NewString()
	s.seq++
	applicant.Sequence = s.seq
	applicant.CreatedAt = s.now
	applicant.UpdatedAt = s.now
	for i := range applicant.Documents {
		applicant.Documents[i].ApplicantID = applicant.ID
	}
	s.applicants[applicant.ID] = cloneApplicant(applicant)
	return nil
}

func (s *applicantStoreStub) FindByID(ctx context.Context, id string) (*models.Applicant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	a, ok := s.applicants[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return cloneApplicant(a), nil
}

func (s *applicantStoreStub) FindByParticipantNumber(ctx context.Context, number string) ([]models.Applicant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []models.Applicant
	for _, a := range s.applicants {
		if a.ParticipantNumber != nil && *a.ParticipantNumber == number {
			result = append(result, *cloneApplicant(a))
		}
	}
	return result, nil
}

func (s *applicantStoreStub) ExistsByNationalID(ctx context.Context, nationalID string, excludeID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.applicants {
		if a.NationalID == nationalID && a.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (s *applicantStoreStub) ParticipantNumberTaken(ctx context.Context, number string, excludeID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.applicants {
		if a.ID != excludeID && a.ParticipantNumber != nil && *a.ParticipantNumber == number {
			return true, nil
		}
	}
	return false, nil
}

func (s *applicantStoreStub) SetParticipantNumber(ctx context.Context, id, number string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setNumberErr != nil {
		return false, s.setNumberErr
	}
	a, ok := s.applicants[id]
	if !ok || a.ParticipantNumber != nil {
		return false, nil
	}
	n := number
	a.ParticipantNumber = &n
	return true, nil
}

func (s *applicantStoreStub) NextScopedSequence(ctx context.Context, date time.Time, positionCode string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := date.Format("2006-01-02") + "/" + positionCode
	s.counters[key]++
	return s.counters[key], nil
}

func (s *applicantStoreStub) Update(ctx context.Context, applicant *models.Applicant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.applicants[applicant.ID]
	if !ok {
		return sql.ErrNoRows
	}
	updated := cloneApplicant(applicant)
	updated.ParticipantNumber = existing.ParticipantNumber
	updated.Documents = existing.Documents
	updated.SessionID = existing.SessionID
	updated.AttendanceStatus = existing.AttendanceStatus
	updated.AttendedAt = existing.AttendedAt
	s.applicants[applicant.ID] = updated
	return nil
}

func (s *applicantStoreStub) List(ctx context.Context, filter models.ApplicantFilter) ([]models.Applicant, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	var matched []models.Applicant
	for _, a := range s.applicants {
		if filter.Status != nil && a.Status() != *filter.Status {
			continue
		}
		if filter.Attendance != nil && a.AttendanceStatus != *filter.Attendance {
			continue
		}
		if filter.SessionID != "" && (a.SessionID == nil || *a.SessionID != filter.SessionID) {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(a.FullName), strings.ToLower(filter.Search)) {
			continue
		}
		matched = append(matched, *cloneApplicant(a))
	}
	sortApplicants(matched)
	total := len(matched)
	start := (filter.Page - 1) * filter.PageSize
	if start > total {
		start = total
	}
	end := start + filter.PageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func sortApplicants(list []models.Applicant) {
	for i := 1; i < len(list); i++ {
		for j := i; j > 0 && list[j].Sequence < list[j-1].Sequence; j-- {
			list[j], list[j-1] = list[j-1], list[j]
		}
	}
}

func (s *applicantStoreStub) SaveDocument(ctx context.Context, slot *models.DocumentSlot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveDocErr != nil {
		return s.saveDocErr
	}
	a, ok := s.applicants[slot.ApplicantID]
	if !ok {
		return fmt.Errorf("unknown applicant %s", slot.ApplicantID)
	}
	if s.beforeSave != nil {
		s.beforeSave(a)
	}
	for i := range a.Documents {
		if a.Documents[i].Kind == slot.Kind {
			a.Documents[i] = *slot
			return nil
		}
	}
	a.Documents = append(a.Documents, *slot)
	return nil
}

func (s *applicantStoreStub) AssignSession(ctx context.Context, applicantID, sessionID string, admit func(session models.ExamSession, occupied int) bool) (*repository.AssignSessionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	applicant, ok := s.applicants[applicantID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	occupied := 0
	for _, a := range s.applicants {
		if a.ID != applicantID && a.SessionID != nil && *a.SessionID == sessionID {
			occupied++
		}
	}
	result := &repository.AssignSessionResult{Session: *session, Occupied: occupied}
	if !admit(*session, occupied) {
		return result, nil
	}
	id := sessionID
	applicant.SessionID = &id
	result.Applied = true
	return result, nil
}

func (s *applicantStoreStub) ClearSession(ctx context.Context, applicantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.applicants[applicantID]
	if !ok {
		return sql.ErrNoRows
	}
	a.SessionID = nil
	return nil
}

func (s *applicantStoreStub) MarkPresent(ctx context.Context, applicantID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markPresent++
	a, ok := s.applicants[applicantID]
	if !ok || a.AttendanceStatus != models.AttendanceAbsent {
		return false, nil
	}
	ts := at
	a.AttendanceStatus = models.AttendancePresent
	a.AttendedAt = &ts
	return true, nil
}

func (s *applicantStoreStub) ResetAttendance(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var affected int64
	for _, a := range s.applicants {
		if a.AttendanceStatus == models.AttendancePresent {
			a.AttendanceStatus = models.AttendanceAbsent
			a.AttendedAt = nil
			affected++
		}
	}
	return affected, nil
}

// sessionStoreStub serves sessions from the same applicant store.
type sessionStoreStub struct {
	store   *applicantStoreStub
	listErr error
}

func (s *sessionStoreStub) List(ctx context.Context) ([]models.ExamSessionWithOccupancy, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	var result []models.ExamSessionWithOccupancy
	for _, session := range s.store.sessions {
		assigned := 0
		for _, a := range s.store.applicants {
			if a.SessionID != nil && *a.SessionID == session.ID {
				assigned++
			}
		}
		result = append(result, models.ExamSessionWithOccupancy{ExamSession: *session, Assigned: assigned})
	}
	return result, nil
}

func (s *sessionStoreStub) FindByID(ctx context.Context, id string) (*models.ExamSession, error) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	session, ok := s.store.sessions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	stored := *session
	return &stored, nil
}

func (s *sessionStoreStub) CountAssigned(ctx context.Context, id string) (int, error) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	count := 0
	for _, a := range s.store.applicants {
		if a.SessionID != nil && *a.SessionID == id {
			count++
		}
	}
	return count, nil
}

func (s *sessionStoreStub) Create(ctx context.Context, session *models.ExamSession) error {
	s.store.addSession(session)
	return nil
}

func (s *sessionStoreStub) Update(ctx context.Context, session *models.ExamSession) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	if _, ok := s.store.sessions[session.ID]; !ok {
		return sql.ErrNoRows
	}
	stored := *session
	s.store.sessions[session.ID] = &stored
	return nil
}

func (s *sessionStoreStub) Delete(ctx context.Context, id string) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	if _, ok := s.store.sessions[id]; !ok {
		return sql.ErrNoRows
	}
	for _, a := range s.store.applicants {
		if a.SessionID != nil && *a.SessionID == id {
			a.SessionID = nil
		}
	}
	delete(s.store.sessions, id)
	return nil
}

// verifiedApplicant returns an applicant with every document valid.
func verifiedApplicant(number string) *models.Applicant {
	a := &models.Applicant{
		ID:               uuid.NewString(),
		NationalID:       "3201010101010001",
		FullName:         "Siti Rahma",
		BirthPlace:       "Bandung",
		BirthDate:        time.Date(1995, 5, 17, 0, 0, 0, 0, time.UTC),
		Gender:           "P",
		Position:         "Perawat",
		Education:        "D3 Keperawatan",
		Email:            "siti@example.com",
		AttendanceStatus: models.AttendanceAbsent,
	}
	if number != "" {
		n := number
		a.ParticipantNumber = &n
	}
	a.Documents = models.NewDocumentSlots(a.ID)
	for i := range a.Documents {
		a.Documents[i].Status = models.DocumentValid
	}
	return a
}

func strPtr(s string) *string {
	return &s
}
