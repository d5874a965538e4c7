package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"unistay/internal/models"
)

type InterestRequestRepository interface {
	Create(ctx context.Context, ir *models.InterestRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.InterestRequest, error)
	GetByPostAndStudent(ctx context.Context, postID, studentID int) (*models.InterestRequest, error)
	ListByStudent(ctx context.Context, studentID int) ([]*models.InterestRequest, error)
	ListByPostOwner(ctx context.Context, ownerID int) ([]*models.InterestRequest, error)
	ListConfirmedByOwner(ctx context.Context, ownerID int, status models.InterestStatus) ([]*models.InterestRequest, error)
	// UpdateIfVersion writes ir only if its row_version is unchanged in the
	// database. On success ir.RowVersion is advanced.
	UpdateIfVersion(ctx context.Context, ir *models.InterestRequest) (bool, error)
}

type interestRequestRepository struct {
	DB *sql.DB
}

func NewInterestRequestRepository(db *sql.DB) InterestRequestRepository {
	return &interestRequestRepository{DB: db}
}

const interestSelect = `
	SELECT
		ir.id, ir.post_id, ir.student_id, ir.status, ir.message,
		ir.availability_start_date, ir.availability_end_date,
		ir.availability_start_time, ir.availability_end_time, ir.slot_duration_minutes,
		ir.appointment_message, ir.appointment_date_time, ir.appointment_confirmed_by_student,
		ir.last_updated_by, ir.row_version, ir.created_at, ir.updated_at,
		p.title, p.owner_id, o.email, s.email
	FROM interest_requests ir
	JOIN posts p ON p.id = ir.post_id
	JOIN users o ON o.id = p.owner_id
	JOIN users s ON s.id = ir.student_id
`

func (r *interestRequestRepository) Create(ctx context.Context, ir *models.InterestRequest) error {
	const q = `
		INSERT INTO interest_requests (id, post_id, student_id, status, message)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING row_version, created_at, updated_at
	`
	if ir.ID == uuid.Nil {
		ir.ID = uuid.New()
	}
	err := r.DB.QueryRowContext(ctx, q, ir.ID, ir.PostID, ir.StudentID, ir.Status, ir.Message).
		Scan(&ir.RowVersion, &ir.CreatedAt, &ir.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert interest request: %w", err)
	}
	return nil
}

func (r *interestRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.InterestRequest, error) {
	return r.one(ctx, interestSelect+` WHERE ir.id = $1`, id)
}

func (r *interestRequestRepository) GetByPostAndStudent(ctx context.Context, postID, studentID int) (*models.InterestRequest, error) {
	return r.one(ctx, interestSelect+` WHERE ir.post_id = $1 AND ir.student_id = $2`, postID, studentID)
}

func (r *interestRequestRepository) ListByStudent(ctx context.Context, studentID int) ([]*models.InterestRequest, error) {
	return r.many(ctx, interestSelect+` WHERE ir.student_id = $1 ORDER BY ir.created_at DESC`, studentID)
}

func (r *interestRequestRepository) ListByPostOwner(ctx context.Context, ownerID int) ([]*models.InterestRequest, error) {
	return r.many(ctx, interestSelect+` WHERE p.owner_id = $1 ORDER BY ir.created_at DESC`, ownerID)
}

func (r *interestRequestRepository) ListConfirmedByOwner(ctx context.Context, ownerID int, status models.InterestStatus) ([]*models.InterestRequest, error) {
	return r.many(ctx, interestSelect+`
		WHERE p.owner_id = $1 AND ir.status = $2 AND ir.appointment_confirmed_by_student
		ORDER BY ir.appointment_date_time`, ownerID, status)
}

func (r *interestRequestRepository) UpdateIfVersion(ctx context.Context, ir *models.InterestRequest) (bool, error) {
	const q = `
		UPDATE interest_requests SET
			status = $1,
			message = $2,
			availability_start_date = $3,
			availability_end_date = $4,
			availability_start_time = $5,
			availability_end_time = $6,
			slot_duration_minutes = $7,
			appointment_message = $8,
			appointment_date_time = $9,
			appointment_confirmed_by_student = $10,
			last_updated_by = $11,
			row_version = row_version + 1,
			updated_at = NOW()
		WHERE id = $12 AND row_version = $13
		RETURNING row_version, updated_at
	`
	var (
		startDate, endDate, startTime, endTime sql.NullString
		slot                                   sql.NullInt64
	)
	if a := ir.Availability; a != nil {
		startDate = sql.NullString{String: a.StartDate, Valid: true}
		endDate = sql.NullString{String: a.EndDate, Valid: true}
		startTime = sql.NullString{String: a.StartTime, Valid: true}
		endTime = sql.NullString{String: a.EndTime, Valid: true}
		slot = sql.NullInt64{Int64: int64(a.SlotDurationMinutes), Valid: true}
	}
	var appt sql.NullTime
	if ir.AppointmentDateTime != nil {
		appt = sql.NullTime{Time: *ir.AppointmentDateTime, Valid: true}
	}
	var lastBy sql.NullInt64
	if ir.LastUpdatedBy != nil {
		lastBy = sql.NullInt64{Int64: int64(*ir.LastUpdatedBy), Valid: true}
	}

	err := r.DB.QueryRowContext(ctx, q,
		ir.Status, ir.Message,
		startDate, endDate, startTime, endTime, slot,
		ir.AppointmentMessage, appt, ir.AppointmentConfirmedByStudent,
		lastBy, ir.ID, ir.RowVersion,
	).Scan(&ir.RowVersion, &ir.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("update interest request %s: %w", ir.ID, err)
	}
	return true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *interestRequestRepository) one(ctx context.Context, q string, args ...any) (*models.InterestRequest, error) {
	ir, err := scanInterest(r.DB.QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get interest request: %w", err)
	}
	return ir, nil
}

func (r *interestRequestRepository) many(ctx context.Context, q string, args ...any) ([]*models.InterestRequest, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list interest requests: %w", err)
	}
	defer rows.Close()

	var res []*models.InterestRequest
	for rows.Next() {
		ir, err := scanInterest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan interest request: %w", err)
		}
		res = append(res, ir)
	}
	return res, rows.Err()
}

func scanInterest(s rowScanner) (*models.InterestRequest, error) {
	ir := &models.InterestRequest{}
	var (
		message, apptMessage   sql.NullString
		startDate, endDate     sql.NullTime
		startTime, endTime     sql.NullString
		slot                   sql.NullInt64
		appt                   sql.NullTime
		lastBy                 sql.NullInt64
		ownerEmail, studentEml sql.NullString
	)
	if err := s.Scan(
		&ir.ID, &ir.PostID, &ir.StudentID, &ir.Status, &message,
		&startDate, &endDate, &startTime, &endTime, &slot,
		&apptMessage, &appt, &ir.AppointmentConfirmedByStudent,
		&lastBy, &ir.RowVersion, &ir.CreatedAt, &ir.UpdatedAt,
		&ir.PostTitle, &ir.PostOwnerID, &ownerEmail, &studentEml,
	); err != nil {
		return nil, err
	}
	ir.Message = message.String
	ir.AppointmentMessage = apptMessage.String
	if startDate.Valid && endDate.Valid && slot.Valid {
		ir.Availability = &models.Availability{
			StartDate:           startDate.Time.Format(models.DateLayout),
			EndDate:             endDate.Time.Format(models.DateLayout),
			StartTime:           startTime.String,
			EndTime:             endTime.String,
			SlotDurationMinutes: int(slot.Int64),
		}
	}
	if appt.Valid {
		t := appt.Time.UTC()
		ir.AppointmentDateTime = &t
	}
	if lastBy.Valid {
		id := int(lastBy.Int64)
		ir.LastUpdatedBy = &id
	}
	ir.PostOwnerEmail = ownerEmail.String
	ir.StudentEmail = studentEml.String
	return ir, nil
}
