package out

import (
	"context"

	"github.com/google/uuid"
	"github.com/medibook/booking-slots-service/internal/core/domain"
	"github.com/medibook/booking-slots-service/internal/core/json_types"
)

// CachePort - кэш шаблонов доступности. Кэшируется только чистый шаблон
// (без занятости): записи на прием на него не влияют, инвалидация нужна
// только при изменении расписания или отпусков врача.
type CachePort interface {
	GetTemplate(ctx context.Context, doctorID uuid.UUID, startDate, endDate json_types.Date) ([]domain.DaySlots, bool)
	StoreTemplate(ctx context.Context, doctorID uuid.UUID, startDate, endDate json_types.Date, days []domain.DaySlots)
	InvalidateTemplate(ctx context.Context, doctorID uuid.UUID)
	InvalidateAll(ctx context.Context)
}
