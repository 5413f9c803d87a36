package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nekogravitycat/clinic-scheduler/internal/scheduling"
)

type Repository interface {
	UpsertRule(ctx context.Context, rule scheduling.Rule) error
	DeleteRule(ctx context.Context, practitionerID string, day time.Weekday) error
	UpsertOverride(ctx context.Context, override scheduling.Override) error
	DeleteOverride(ctx context.Context, practitionerID string, date civil.Date) error

	// AllRules and AllOverrides load every row, for rehydrating the engine.
	AllRules(ctx context.Context) ([]scheduling.Rule, error)
	AllOverrides(ctx context.Context) ([]scheduling.Override, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

func toPgTime(d time.Duration) pgtype.Time {
	return pgtype.Time{Microseconds: d.Microseconds(), Valid: true}
}

func fromPgTime(t pgtype.Time) time.Duration {
	return time.Duration(t.Microseconds) * time.Microsecond
}

// mapWriteError turns constraint violations into domain errors that keep the
// driver error as their cause.
func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.ForeignKeyViolation, pgerrcode.InvalidTextRepresentation:
			return ErrPractitionerNotFound.WithCause(err)
		case pgerrcode.CheckViolation:
			return ErrInvalidWindow.WithCause(fmt.Errorf("%w: %w", scheduling.ErrInvalidWindow, err))
		}
	}
	return err
}

func (r *pgxRepository) UpsertRule(ctx context.Context, rule scheduling.Rule) error {
	query, args, err := psql.Insert("public.availability_rules").
		Columns("practitioner_id", "day_of_week", "start_time", "end_time").
		Values(rule.PractitionerID, int16(rule.DayOfWeek), toPgTime(rule.Window.Start), toPgTime(rule.Window.End)).
		Suffix(`ON CONFLICT (practitioner_id, day_of_week) DO UPDATE
			SET start_time = EXCLUDED.start_time, end_time = EXCLUDED.end_time, updated_at = now()`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert rule query failed: %w", err)
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		if mapped := mapWriteError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("upsert rule failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) DeleteRule(ctx context.Context, practitionerID string, day time.Weekday) error {
	query, args, err := psql.Delete("public.availability_rules").
		Where(squirrel.Eq{"practitioner_id": practitionerID, "day_of_week": int16(day)}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete rule query failed: %w", err)
	}

	// Deleting an absent rule is not an error.
	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("delete rule failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) UpsertOverride(ctx context.Context, o scheduling.Override) error {
	query, args, err := psql.Insert("public.availability_overrides").
		Columns("practitioner_id", "date", "start_time", "end_time").
		Values(o.PractitionerID, o.Date.In(time.UTC), toPgTime(o.Window.Start), toPgTime(o.Window.End)).
		Suffix(`ON CONFLICT (practitioner_id, date) DO UPDATE
			SET start_time = EXCLUDED.start_time, end_time = EXCLUDED.end_time, updated_at = now()`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert override query failed: %w", err)
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		if mapped := mapWriteError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("upsert override failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) DeleteOverride(ctx context.Context, practitionerID string, date civil.Date) error {
	query, args, err := psql.Delete("public.availability_overrides").
		Where(squirrel.Eq{"practitioner_id": practitionerID, "date": date.In(time.UTC)}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete override query failed: %w", err)
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("delete override failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) AllRules(ctx context.Context) ([]scheduling.Rule, error) {
	query, args, err := psql.Select("practitioner_id", "day_of_week", "start_time", "end_time").
		From("public.availability_rules").
		OrderBy("practitioner_id", "day_of_week").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list rules query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list rules failed: %w", err)
	}

	rules, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (scheduling.Rule, error) {
		var (
			rule       scheduling.Rule
			day        int16
			start, end pgtype.Time
		)
		if err := row.Scan(&rule.PractitionerID, &day, &start, &end); err != nil {
			return rule, err
		}
		rule.DayOfWeek = time.Weekday(day)
		rule.Window = scheduling.TimeWindow{Start: fromPgTime(start), End: fromPgTime(end)}
		return rule, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan rule failed: %w", err)
	}
	return rules, nil
}

func (r *pgxRepository) AllOverrides(ctx context.Context) ([]scheduling.Override, error) {
	query, args, err := psql.Select("practitioner_id", "date", "start_time", "end_time").
		From("public.availability_overrides").
		OrderBy("practitioner_id", "date").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list overrides query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list overrides failed: %w", err)
	}

	overrides, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (scheduling.Override, error) {
		var (
			o          scheduling.Override
			date       time.Time
			start, end pgtype.Time
		)
		if err := row.Scan(&o.PractitionerID, &date, &start, &end); err != nil {
			return o, err
		}
		o.Date = civil.DateOf(date)
		o.Window = scheduling.TimeWindow{Start: fromPgTime(start), End: fromPgTime(end)}
		return o, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan override failed: %w", err)
	}
	return overrides, nil
}
