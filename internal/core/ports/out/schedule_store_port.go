package out

import (
	"context"

	"github.com/google/uuid"
	"github.com/medibook/booking-slots-service/internal/core/domain"
	"github.com/medibook/booking-slots-service/internal/core/json_types"
)

// ScheduleStorePort - хранилище расписаний. Только чтение:
// расписание и отпуска редактируются админкой врача, не этим сервисом.
type ScheduleStorePort interface {
	GetDoctor(ctx context.Context, doctorID uuid.UUID) (*domain.Doctor, error)

	// Недельное расписание врача (только активные записи)
	GetWeeklySchedule(ctx context.Context, doctorID uuid.UUID) ([]domain.WeeklyScheduleEntry, error)

	// Периоды недоступности, пересекающиеся с диапазоном дат
	GetTimeOffIntervals(ctx context.Context, doctorID uuid.UUID, startDate, endDate json_types.Date) ([]domain.TimeOffInterval, error)
}
