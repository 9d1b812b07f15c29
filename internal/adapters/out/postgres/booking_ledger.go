package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/medibook/booking-slots-service/internal/core/domain"
	"github.com/medibook/booking-slots-service/internal/core/json_types"
	"github.com/medibook/booking-slots-service/internal/core/ports/out"
)

// SQLSTATE нарушения уникальности
const uniqueViolationCode = "23505"

// BookingLedgerAdapter - журнал записей на прием в Postgres.
// Записи не удаляются, жизненный цикл только через смену статуса.
type BookingLedgerAdapter struct {
	pool   *pgxpool.Pool
	logger out.LoggerPort
}

func NewBookingLedgerAdapter(pool *pgxpool.Pool, logger out.LoggerPort) *BookingLedgerAdapter {
	return &BookingLedgerAdapter{
		pool:   pool,
		logger: logger.WithModule("BookingLedgerAdapter"),
	}
}

func (a *BookingLedgerAdapter) GetAppointments(ctx context.Context, doctorID uuid.UUID, startDate, endDate json_types.Date) ([]domain.Appointment, error) {
	const query = `SELECT id, doctor_id, patient_id, date, start_time, end_time, status, reason, created_at, updated_at
FROM appointments
WHERE doctor_id = $1 AND date >= $2 AND date <= $3
ORDER BY date, start_time`

	rows, err := a.pool.Query(ctx, query, doctorID, startDate.Date, endDate.Date)
	if err != nil {
		return nil, fmt.Errorf("query appointments: %w", err)
	}
	defer rows.Close()

	appointments := make([]domain.Appointment, 0)
	for rows.Next() {
		appointment, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appointments = append(appointments, *appointment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate appointments: %w", err)
	}

	return appointments, nil
}

func (a *BookingLedgerAdapter) GetAppointmentByID(ctx context.Context, appointmentID uuid.UUID) (*domain.Appointment, error) {
	const query = `SELECT id, doctor_id, patient_id, date, start_time, end_time, status, reason, created_at, updated_at
FROM appointments WHERE id = $1`

	appointment, err := scanAppointment(a.pool.QueryRow(ctx, query, appointmentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAppointmentNotFound
		}
		return nil, err
	}

	return appointment, nil
}

func (a *BookingLedgerAdapter) CreateAppointment(ctx context.Context, appointment *domain.Appointment) error {
	const query = `INSERT INTO appointments (id, doctor_id, patient_id, date, start_time, end_time, status, reason, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := a.pool.Exec(ctx, query,
		appointment.ID,
		appointment.DoctorID,
		appointment.PatientID,
		appointment.Date.Date,
		int16(appointment.StartTime),
		int16(appointment.EndTime),
		string(appointment.Status),
		appointment.Reason,
		appointment.CreatedAt,
		appointment.UpdatedAt,
	)
	if err != nil {
		// Нарушение уникальности слота - проигранная гонка, не сбой
		if isUniqueViolation(err) {
			a.logger.Info("ledger.create.slot_taken", out.LogFields{
				"doctorId":  appointment.DoctorID,
				"date":      appointment.Date.String(),
				"startTime": appointment.StartTime.String(),
			})
			return domain.ErrSlotUnavailable
		}
		return fmt.Errorf("insert appointment: %w", err)
	}

	return nil
}

func (a *BookingLedgerAdapter) UpdateAppointmentStatus(ctx context.Context, appointmentID uuid.UUID, status domain.AppointmentStatus) error {
	const query = `UPDATE appointments SET status = $2, updated_at = now() WHERE id = $1`

	tag, err := a.pool.Exec(ctx, query, appointmentID, string(status))
	if err != nil {
		return fmt.Errorf("update appointment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAppointmentNotFound
	}

	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

func scanAppointment(row pgx.Row) (*domain.Appointment, error) {
	var appointment domain.Appointment
	var date time.Time
	var startTime, endTime int16
	var status string

	err := row.Scan(
		&appointment.ID,
		&appointment.DoctorID,
		&appointment.PatientID,
		&date,
		&startTime,
		&endTime,
		&status,
		&appointment.Reason,
		&appointment.CreatedAt,
		&appointment.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan appointment: %w", err)
	}

	appointment.Date = json_types.Date{Date: date}
	appointment.StartTime = json_types.TimeOfDay(startTime)
	appointment.EndTime = json_types.TimeOfDay(endTime)
	appointment.Status = domain.AppointmentStatus(status)

	return &appointment, nil
}
