package out

import (
	"context"

	"github.com/medibook/booking-slots-service/internal/core/domain"
)

// EventPublisherPort - публикация событий бронирования для внешних
// потребителей (уведомления, напоминания, экспорт в календарь).
// События публикуются только после успешной записи в журнал.
type EventPublisherPort interface {
	PublishAppointmentCreated(ctx context.Context, appointment *domain.Appointment) error
	PublishAppointmentStatusChanged(ctx context.Context, appointment *domain.Appointment) error
}
