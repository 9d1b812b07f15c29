package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/medibook/booking-slots-service/internal/core/domain"
	"github.com/medibook/booking-slots-service/internal/core/json_types"
	"github.com/medibook/booking-slots-service/internal/core/ports/out"
)

// ScheduleStoreAdapter читает расписания и отпуска врачей из Postgres.
// Хранилище для сервиса read-only: записи редактирует админка врача.
type ScheduleStoreAdapter struct {
	pool   *pgxpool.Pool
	logger out.LoggerPort
}

func NewScheduleStoreAdapter(pool *pgxpool.Pool, logger out.LoggerPort) *ScheduleStoreAdapter {
	return &ScheduleStoreAdapter{
		pool:   pool,
		logger: logger.WithModule("ScheduleStoreAdapter"),
	}
}

func (a *ScheduleStoreAdapter) GetDoctor(ctx context.Context, doctorID uuid.UUID) (*domain.Doctor, error) {
	const query = `SELECT id, full_name, specialty, slot_duration_minutes
FROM doctors WHERE id = $1`

	var doctor domain.Doctor
	err := a.pool.QueryRow(ctx, query, doctorID).Scan(
		&doctor.ID,
		&doctor.FullName,
		&doctor.Specialty,
		&doctor.SlotDurationMinutes,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			a.logger.Warn("schedule_store.doctor.not_found", out.LogFields{
				"doctorId": doctorID,
			})
			return nil, domain.ErrDoctorNotFound
		}
		return nil, fmt.Errorf("query doctor: %w", err)
	}

	return &doctor, nil
}

func (a *ScheduleStoreAdapter) GetWeeklySchedule(ctx context.Context, doctorID uuid.UUID) ([]domain.WeeklyScheduleEntry, error) {
	const query = `SELECT id, doctor_id, day_of_week, start_time, end_time, is_active
FROM weekly_schedule_entries
WHERE doctor_id = $1 AND is_active
ORDER BY id`

	rows, err := a.pool.Query(ctx, query, doctorID)
	if err != nil {
		return nil, fmt.Errorf("query weekly schedule: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.WeeklyScheduleEntry, 0)
	for rows.Next() {
		var entry domain.WeeklyScheduleEntry
		var dayOfWeek string
		var startTime, endTime int16

		if err := rows.Scan(&entry.ID, &entry.DoctorID, &dayOfWeek, &startTime, &endTime, &entry.IsActive); err != nil {
			return nil, fmt.Errorf("scan weekly schedule entry: %w", err)
		}

		entry.DayOfWeek = domain.DayOfWeek(dayOfWeek)
		entry.StartTime = json_types.TimeOfDay(startTime)
		entry.EndTime = json_types.TimeOfDay(endTime)
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate weekly schedule: %w", err)
	}

	return entries, nil
}

func (a *ScheduleStoreAdapter) GetTimeOffIntervals(ctx context.Context, doctorID uuid.UUID, startDate, endDate json_types.Date) ([]domain.TimeOffInterval, error) {
	// Берем только интервалы, пересекающиеся с запрошенным диапазоном
	const query = `SELECT id, doctor_id, start_date, end_date, reason
FROM time_off_intervals
WHERE doctor_id = $1 AND start_date <= $3 AND end_date >= $2
ORDER BY start_date`

	rows, err := a.pool.Query(ctx, query, doctorID, startDate.Date, endDate.Date)
	if err != nil {
		return nil, fmt.Errorf("query time off intervals: %w", err)
	}
	defer rows.Close()

	intervals := make([]domain.TimeOffInterval, 0)
	for rows.Next() {
		var interval domain.TimeOffInterval
		var start, end time.Time

		if err := rows.Scan(&interval.ID, &interval.DoctorID, &start, &end, &interval.Reason); err != nil {
			return nil, fmt.Errorf("scan time off interval: %w", err)
		}

		interval.StartDate = json_types.Date{Date: start}
		interval.EndDate = json_types.Date{Date: end}
		intervals = append(intervals, interval)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate time off intervals: %w", err)
	}

	return intervals, nil
}
