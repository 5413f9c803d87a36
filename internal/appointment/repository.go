package appointment

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nekogravitycat/clinic-scheduler/internal/scheduling"
)

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id string) (*Appointment, error)
	List(ctx context.Context, filter Filter) ([]*Appointment, int, error)

	// UpdateTime moves a scheduled appointment to a.StartTime/a.EndTime.
	UpdateTime(ctx context.Context, a *Appointment) error

	// UpdateStatus moves a from status `from` to a.Status. It returns
	// ErrInvalidTransition if the row is no longer in `from`.
	UpdateStatus(ctx context.Context, a *Appointment, from Status) error

	// ListScheduled returns every SCHEDULED appointment, for rehydrating the engine.
	ListScheduled(ctx context.Context) ([]*Appointment, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

var columns = []string{
	"id", "practitioner_id", "patient_id", "start_time", "end_time",
	"status", "reason", "notes", "created_at", "updated_at",
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row rowScanner, extra ...any) (*Appointment, error) {
	var (
		a             Appointment
		reason, notes pgtype.Text
	)
	dest := []any{
		&a.ID, &a.PractitionerID, &a.PatientID, &a.StartTime, &a.EndTime,
		&a.Status, &reason, &notes, &a.CreatedAt, &a.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	a.Reason = reason.String
	a.Notes = notes.String
	return &a, nil
}

func nullableText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

// mapWriteError turns constraint violations into domain errors that keep the
// driver error as their cause.
func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgerrcode.ExclusionViolation:
		return ErrSlotConflict.WithCause(fmt.Errorf("%w: %w", scheduling.ErrSlotConflict, err))
	case pgerrcode.ForeignKeyViolation:
		switch pgErr.ConstraintName {
		case "appointments_patient_fkey":
			return ErrPatientNotFound.WithCause(err)
		case "appointments_practitioner_fkey":
			return ErrPractitionerNotFound.WithCause(err)
		}
	case pgerrcode.InvalidTextRepresentation, pgerrcode.CheckViolation:
		return ErrInvalidInput.WithCause(err)
	}
	return err
}

func (r *pgxRepository) Create(ctx context.Context, a *Appointment) error {
	query, args, err := psql.Insert("public.appointments").
		Columns("id", "practitioner_id", "patient_id", "start_time", "end_time", "status", "reason", "notes").
		Values(a.ID, a.PractitionerID, a.PatientID, a.StartTime, a.EndTime, a.Status, nullableText(a.Reason), nullableText(a.Notes)).
		Suffix("RETURNING created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create appointment query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&a.CreatedAt, &a.UpdatedAt); err != nil {
		if mapped := mapWriteError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("create appointment failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Appointment, error) {
	query, args, err := psql.Select(columns...).
		From("public.appointments").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get appointment query failed: %w", err)
	}

	a, err := scanAppointment(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		if mapped := mapWriteError(err); mapped != err {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get appointment failed: %w", err)
	}
	return a, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Appointment, int, error) {
	query := psql.Select(append(columns, "count(*) OVER() AS total_count")...).
		From("public.appointments")

	if filter.PractitionerID != "" {
		query = query.Where(squirrel.Eq{"practitioner_id": filter.PractitionerID})
	}
	if filter.PatientID != "" {
		query = query.Where(squirrel.Eq{"patient_id": filter.PatientID})
	}
	if filter.Status != "" {
		query = query.Where(squirrel.Eq{"status": filter.Status})
	}
	// Half-open intersection with [From, To)
	if filter.From != nil {
		query = query.Where(squirrel.Gt{"end_time": *filter.From})
	}
	if filter.To != nil {
		query = query.Where(squirrel.Lt{"start_time": *filter.To})
	}

	// Sorting
	orderBy := "start_time"
	if filter.SortBy != "" {
		orderBy = filter.SortBy
	}
	orderDir := "ASC"
	if filter.SortOrder != "" {
		orderDir = filter.SortOrder
	}
	query = query.OrderBy(orderBy+" "+orderDir, "id")

	// Pagination
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	offset := (filter.Page - 1) * filter.PageSize
	query = query.Limit(uint64(filter.PageSize)).Offset(uint64(offset))

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list appointments query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list appointments failed: %w", err)
	}
	defer rows.Close()

	var (
		appointments []*Appointment
		total        int
	)
	for rows.Next() {
		a, err := scanAppointment(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan appointment failed: %w", err)
		}
		appointments = append(appointments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list appointments failed: %w", err)
	}
	return appointments, total, nil
}

func (r *pgxRepository) UpdateTime(ctx context.Context, a *Appointment) error {
	query, args, err := psql.Update("public.appointments").
		Set("start_time", a.StartTime).
		Set("end_time", a.EndTime).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": a.ID, "status": StatusScheduled}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update appointment time query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&a.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotScheduled
		}
		if mapped := mapWriteError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("update appointment time failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) UpdateStatus(ctx context.Context, a *Appointment, from Status) error {
	query, args, err := psql.Update("public.appointments").
		Set("status", a.Status).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": a.ID, "status": from}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update appointment status query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&a.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrInvalidTransition
		}
		return fmt.Errorf("update appointment status failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) ListScheduled(ctx context.Context) ([]*Appointment, error) {
	query, args, err := psql.Select(columns...).
		From("public.appointments").
		Where(squirrel.Eq{"status": StatusScheduled}).
		OrderBy("practitioner_id", "start_time").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list scheduled query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list scheduled appointments failed: %w", err)
	}

	appointments, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*Appointment, error) {
		return scanAppointment(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan appointment failed: %w", err)
	}
	return appointments, nil
}
