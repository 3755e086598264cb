package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/xhdskyprime/rekruitment/internal/models"
	"github.com/xhdskyprime/rekruitment/pkg/database"
)

const applicantColumns = `a.id, a.seq, a.participant_number, a.national_id, a.full_name, a.birth_place, a.birth_date, a.gender,
        a.address, a.phone, a.email, a.education, a.position, a.photo_path, a.session_id, a.attendance_status, a.attended_at,
        a.created_at, a.updated_at`

const documentColumns = `applicant_id, kind, status, reject_reason, verified_by, verified_at, file_path`

// globalStatusExpr derives the applicant status from its document rows, mirroring models.AggregateStatus.
var globalStatusExpr = fmt.Sprintf(`(SELECT CASE
        WHEN COUNT(*) FILTER (WHERE d.status = '%s') > 0 THEN '%s'
        WHEN COUNT(*) FILTER (WHERE d.status = '%s') = %d THEN '%s'
        ELSE '%s' END
        FROM applicant_documents d WHERE d.applicant_id = a.id)`,
	models.DocumentInvalid, models.StatusRejected,
	models.DocumentValid, models.DocumentCount, models.StatusVerified,
	models.StatusPending)

// ApplicantRepository manages persistence for applicants and their document slots.
type ApplicantRepository struct {
	db *sqlx.DB
}

// NewApplicantRepository constructs an ApplicantRepository.
func NewApplicantRepository(db *sqlx.DB) *ApplicantRepository {
	return &ApplicantRepository{db: db}
}

// AssignSessionResult reports the outcome of a locked session assignment.
type AssignSessionResult struct {
	Session  models.ExamSession
	Occupied int
	Applied  bool
}

// Create inserts the applicant with its six pending document slots and fills in
// the storage-assigned sequence.
func (r *ApplicantRepository) Create(ctx context.Context, applicant *models.Applicant) error {
	if applicant.ID == "" {
		applicant.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if applicant.CreatedAt.IsZero() {
		applicant.CreatedAt = now
	}
	applicant.UpdatedAt = now
	if applicant.AttendanceStatus == "" {
		applicant.AttendanceStatus = models.AttendanceAbsent
	}
	if len(applicant.Documents) == 0 {
		applicant.Documents = models.NewDocumentSlots(applicant.ID)
	}

	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const insertApplicant = `INSERT INTO applicants (id, national_id, full_name, birth_place, birth_date, gender, address, phone, email,
        education, position, photo_path, attendance_status, created_at, updated_at)
        VALUES (:id, :national_id, :full_name, :birth_place, :birth_date, :gender, :address, :phone, :email,
        :education, :position, :photo_path, :attendance_status, :created_at, :updated_at) RETURNING seq`
		query, args, err := sqlx.Named(insertApplicant, applicant)
		if err != nil {
			return fmt.Errorf("bind create applicant: %w", err)
		}
		if err := tx.GetContext(ctx, &applicant.Sequence, tx.Rebind(query), args...); err != nil {
			return fmt.Errorf("create applicant: %w", err)
		}

		const insertDocument = `INSERT INTO applicant_documents (applicant_id, kind, status, file_path) VALUES ($1, $2, $3, $4)`
		for i := range applicant.Documents {
			slot := &applicant.Documents[i]
			slot.ApplicantID = applicant.ID
			if _, err := tx.ExecContext(ctx, insertDocument, slot.ApplicantID, slot.Kind, slot.Status, slot.FilePath); err != nil {
				return fmt.Errorf("create applicant document %s: %w", slot.Kind, err)
			}
		}
		return nil
	})
}

// FindByID fetches an applicant with its document slots.
func (r *ApplicantRepository) FindByID(ctx context.Context, id string) (*models.Applicant, error) {
	query := fmt.Sprintf(`SELECT %s FROM applicants a WHERE a.id = $1`, applicantColumns)
	var applicant models.Applicant
	if err := r.db.GetContext(ctx, &applicant, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find applicant: %w", err)
	}
	if err := r.attachDocuments(ctx, []*models.Applicant{&applicant}); err != nil {
		return nil, err
	}
	return &applicant, nil
}

// FindByParticipantNumber returns every applicant carrying the number. More
// than one result means the numbering sequence wrapped.
func (r *ApplicantRepository) FindByParticipantNumber(ctx context.Context, number string) ([]models.Applicant, error) {
	query := fmt.Sprintf(`SELECT %s FROM applicants a WHERE a.participant_number = $1 ORDER BY a.seq`, applicantColumns)
	var applicants []models.Applicant
	if err := r.db.SelectContext(ctx, &applicants, query, number); err != nil {
		return nil, fmt.Errorf("find applicant by participant number: %w", err)
	}
	refs := make([]*models.Applicant, len(applicants))
	for i := range applicants {
		refs[i] = &applicants[i]
	}
	if err := r.attachDocuments(ctx, refs); err != nil {
		return nil, err
	}
	return applicants, nil
}

// ExistsByNationalID checks if an applicant with the national id exists, optionally excluding an ID.
func (r *ApplicantRepository) ExistsByNationalID(ctx context.Context, nationalID string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM applicants WHERE national_id = $1"
	args := []interface{}{nationalID}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check national id: %w", err)
	}
	return true, nil
}

// ParticipantNumberTaken reports whether another applicant already holds number.
func (r *ApplicantRepository) ParticipantNumberTaken(ctx context.Context, number string, excludeID string) (bool, error) {
	const query = `SELECT 1 FROM applicants WHERE participant_number = $1 AND id <> $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, number, excludeID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check participant number: %w", err)
	}
	return true, nil
}

// SetParticipantNumber stores the number only if none is assigned yet. It
// returns false when the applicant already had a number.
func (r *ApplicantRepository) SetParticipantNumber(ctx context.Context, id, number string) (bool, error) {
	const query = `UPDATE applicants SET participant_number = $2, updated_at = $3 WHERE id = $1 AND participant_number IS NULL`
	res, err := r.db.ExecContext(ctx, query, id, number, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("set participant number: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set participant number rows: %w", err)
	}
	return affected == 1, nil
}

// NextScopedSequence increments and returns the counter for (date, position code).
// The first applicant of a key receives 1.
func (r *ApplicantRepository) NextScopedSequence(ctx context.Context, date time.Time, positionCode string) (int64, error) {
	const query = `INSERT INTO participant_counters (reg_date, position_code, last_value) VALUES ($1, $2, 1)
        ON CONFLICT (reg_date, position_code) DO UPDATE SET last_value = participant_counters.last_value + 1
        RETURNING last_value`
	var value int64
	if err := r.db.GetContext(ctx, &value, query, date.Format("2006-01-02"), positionCode); err != nil {
		return 0, fmt.Errorf("next participant sequence: %w", err)
	}
	return value, nil
}

// Update modifies identity fields. Participant number, documents, session and
// attendance have dedicated operations and are never touched here.
func (r *ApplicantRepository) Update(ctx context.Context, applicant *models.Applicant) error {
	applicant.UpdatedAt = time.Now().UTC()
	const query = `UPDATE applicants SET national_id = :national_id, full_name = :full_name, birth_place = :birth_place,
        birth_date = :birth_date, gender = :gender, address = :address, phone = :phone, email = :email,
        education = :education, position = :position, photo_path = :photo_path, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, applicant); err != nil {
		return fmt.Errorf("update applicant: %w", err)
	}
	return nil
}

// List returns applicants matching the filter. Status filtering is evaluated
// from the document rows.
func (r *ApplicantRepository) List(ctx context.Context, filter models.ApplicantFilter) ([]models.Applicant, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(a.full_name) LIKE $%d OR a.national_id LIKE $%d OR a.participant_number LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.Position != "" {
		conditions = append(conditions, fmt.Sprintf("a.position = $%d", len(args)+1))
		args = append(args, filter.Position)
	}
	if filter.SessionID != "" {
		conditions = append(conditions, fmt.Sprintf("a.session_id = $%d", len(args)+1))
		args = append(args, filter.SessionID)
	}
	if filter.Attendance != nil {
		conditions = append(conditions, fmt.Sprintf("a.attendance_status = $%d", len(args)+1))
		args = append(args, *filter.Attendance)
	}
	if filter.Status != nil && filter.Status.Valid() {
		conditions = append(conditions, fmt.Sprintf("%s = $%d", globalStatusExpr, len(args)+1))
		args = append(args, *filter.Status)
	}

	base := fmt.Sprintf("FROM applicants a WHERE %s", strings.Join(conditions, " AND "))

	allowedSorts := map[string]string{
		"full_name":          "a.full_name",
		"participant_number": "a.participant_number",
		"created_at":         "a.created_at",
		"attended_at":        "a.attended_at",
	}
	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "a.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 500 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d`, applicantColumns, base, column, order, size, offset)
	var applicants []models.Applicant
	if err := r.db.SelectContext(ctx, &applicants, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list applicants: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s", base), args...); err != nil {
		return nil, 0, fmt.Errorf("count applicants: %w", err)
	}

	refs := make([]*models.Applicant, len(applicants))
	for i := range applicants {
		refs[i] = &applicants[i]
	}
	if err := r.attachDocuments(ctx, refs); err != nil {
		return nil, 0, err
	}
	return applicants, total, nil
}

// SaveDocument writes a single slot verdict.
func (r *ApplicantRepository) SaveDocument(ctx context.Context, slot *models.DocumentSlot) error {
	const query = `INSERT INTO applicant_documents (applicant_id, kind, status, reject_reason, verified_by, verified_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (applicant_id, kind)
        DO UPDATE SET status = EXCLUDED.status, reject_reason = EXCLUDED.reject_reason,
        verified_by = EXCLUDED.verified_by, verified_at = EXCLUDED.verified_at`
	if _, err := r.db.ExecContext(ctx, query, slot.ApplicantID, slot.Kind, slot.Status, slot.RejectReason, slot.VerifiedBy, slot.VerifiedAt); err != nil {
		return fmt.Errorf("save applicant document %s: %w", slot.Kind, err)
	}
	return nil
}

// AssignSession assigns the applicant to the session while holding a row lock
// on the session, so concurrent callers see each other's assignments. admit
// decides, given the occupancy excluding the applicant, whether to apply.
func (r *ApplicantRepository) AssignSession(ctx context.Context, applicantID, sessionID string, admit func(session models.ExamSession, occupied int) bool) (*AssignSessionResult, error) {
	result := &AssignSessionResult{}
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const lockSession = `SELECT id, name, date, start_time, end_time, location, capacity, created_at, updated_at
        FROM exam_sessions WHERE id = $1 FOR UPDATE`
		if err := tx.GetContext(ctx, &result.Session, lockSession, sessionID); err != nil {
			return err
		}
		const countAssigned = `SELECT COUNT(*) FROM applicants WHERE session_id = $1 AND id <> $2`
		if err := tx.GetContext(ctx, &result.Occupied, countAssigned, sessionID, applicantID); err != nil {
			return fmt.Errorf("count session occupancy: %w", err)
		}
		if !admit(result.Session, result.Occupied) {
			return nil
		}
		const assign = `UPDATE applicants SET session_id = $2, updated_at = $3 WHERE id = $1`
		res, err := tx.ExecContext(ctx, assign, applicantID, sessionID, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("assign session: %w", err)
		}
		if affected, err := res.RowsAffected(); err == nil && affected == 0 {
			return sql.ErrNoRows
		}
		result.Applied = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ClearSession removes the session reference from the applicant.
func (r *ApplicantRepository) ClearSession(ctx context.Context, applicantID string) error {
	const query = `UPDATE applicants SET session_id = NULL, updated_at = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, applicantID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkPresent flips attendance from absent to present in one conditional
// write. It returns false when the applicant was already present.
func (r *ApplicantRepository) MarkPresent(ctx context.Context, applicantID string, at time.Time) (bool, error) {
	const query = `UPDATE applicants SET attendance_status = $2, attended_at = $3, updated_at = $3
        WHERE id = $1 AND attendance_status = $4`
	res, err := r.db.ExecContext(ctx, query, applicantID, models.AttendancePresent, at, models.AttendanceAbsent)
	if err != nil {
		return false, fmt.Errorf("mark present: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark present rows: %w", err)
	}
	return affected == 1, nil
}

// ResetAttendance marks every present applicant absent and clears timestamps.
func (r *ApplicantRepository) ResetAttendance(ctx context.Context) (int64, error) {
	const query = `UPDATE applicants SET attendance_status = $1, attended_at = NULL, updated_at = $3 WHERE attendance_status = $2`
	res, err := r.db.ExecContext(ctx, query, models.AttendanceAbsent, models.AttendancePresent, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("reset attendance: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reset attendance rows: %w", err)
	}
	return affected, nil
}

func (r *ApplicantRepository) attachDocuments(ctx context.Context, applicants []*models.Applicant) error {
	if len(applicants) == 0 {
		return nil
	}
	ids := make([]string, len(applicants))
	byID := make(map[string]*models.Applicant, len(applicants))
	for i, a := range applicants {
		ids[i] = a.ID
		byID[a.ID] = a
		a.Documents = a.Documents[:0]
	}
	query := fmt.Sprintf(`SELECT %s FROM applicant_documents WHERE applicant_id = ANY($1)`, documentColumns)
	var slots []models.DocumentSlot
	if err := r.db.SelectContext(ctx, &slots, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("load applicant documents: %w", err)
	}
	for _, slot := range slots {
		if a, ok := byID[slot.ApplicantID]; ok {
			a.Documents = append(a.Documents, slot)
		}
	}
	for _, a := range applicants {
		a.Documents = orderSlots(a.ID, a.Documents)
	}
	return nil
}

// orderSlots returns the six slots in canonical order, filling gaps with pending slots.
func orderSlots(applicantID string, slots []models.DocumentSlot) []models.DocumentSlot {
	ordered := models.NewDocumentSlots(applicantID)
	for _, slot := range slots {
		if idx := slot.Kind.Index(); idx >= 0 {
			ordered[idx] = slot
		}
	}
	return ordered
}
