package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/medibook/booking-slots-service/internal/config"
)

// Миграция безопасна для повторного выполнения (IF NOT EXISTS),
// выполняется при старте приложения.
//
// Частичный уникальный индекс на (doctor_id, date, start_time) среди
// неотмененных записей - это и есть контракт "не более одной записи на слот":
// гонка двух пациентов разрешается базой, а не блокировками в приложении.
const migration = `
CREATE TABLE IF NOT EXISTS doctors (
    id                    UUID PRIMARY KEY,
    full_name             TEXT NOT NULL,
    specialty             TEXT NOT NULL DEFAULT '',
    slot_duration_minutes INT  NOT NULL
);

CREATE TABLE IF NOT EXISTS weekly_schedule_entries (
    id          UUID PRIMARY KEY,
    doctor_id   UUID NOT NULL REFERENCES doctors (id) ON DELETE CASCADE,
    day_of_week TEXT NOT NULL,
    start_time  SMALLINT NOT NULL,
    end_time    SMALLINT NOT NULL,
    is_active   BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE INDEX IF NOT EXISTS idx_weekly_schedule_entries_doctor
    ON weekly_schedule_entries (doctor_id);

CREATE TABLE IF NOT EXISTS time_off_intervals (
    id         UUID PRIMARY KEY,
    doctor_id  UUID NOT NULL REFERENCES doctors (id) ON DELETE CASCADE,
    start_date DATE NOT NULL,
    end_date   DATE NOT NULL,
    reason     TEXT NOT NULL DEFAULT '',
    CHECK (start_date <= end_date)
);

CREATE INDEX IF NOT EXISTS idx_time_off_intervals_doctor_dates
    ON time_off_intervals (doctor_id, start_date, end_date);

CREATE TABLE IF NOT EXISTS appointments (
    id         UUID PRIMARY KEY,
    doctor_id  UUID NOT NULL REFERENCES doctors (id),
    patient_id UUID NOT NULL,
    date       DATE NOT NULL,
    start_time SMALLINT NOT NULL,
    end_time   SMALLINT NOT NULL,
    status     TEXT NOT NULL,
    reason     TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_appointments_slot_unique
    ON appointments (doctor_id, date, start_time)
    WHERE status <> 'cancelled';

CREATE INDEX IF NOT EXISTS idx_appointments_doctor_dates
    ON appointments (doctor_id, date);
`

func NewPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.Postgres.URL)
	if err != nil {
		return nil, fmt.Errorf("parse postgres url: %w", err)
	}

	poolCfg.MaxConns = cfg.Postgres.MaxConns
	poolCfg.MinConns = cfg.Postgres.MinConns

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// Migrate выполняет авто-миграцию схемы при старте
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, migration); err != nil {
		return fmt.Errorf("run migration: %w", err)
	}
	return nil
}
