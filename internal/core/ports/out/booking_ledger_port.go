package out

import (
	"context"

	"github.com/google/uuid"
	"github.com/medibook/booking-slots-service/internal/core/domain"
	"github.com/medibook/booking-slots-service/internal/core/json_types"
)

// BookingLedgerPort - журнал подтвержденных записей на прием.
type BookingLedgerPort interface {
	// Записи врача в диапазоне дат, включая отмененные
	GetAppointments(ctx context.Context, doctorID uuid.UUID, startDate, endDate json_types.Date) ([]domain.Appointment, error)

	GetAppointmentByID(ctx context.Context, appointmentID uuid.UUID) (*domain.Appointment, error)

	// CreateAppointment вставляет новую запись. Если слот уже занят
	// неотмененной записью, возвращает domain.ErrSlotUnavailable -
	// уникальность обеспечивается на уровне хранилища, не приложения.
	CreateAppointment(ctx context.Context, appointment *domain.Appointment) error

	UpdateAppointmentStatus(ctx context.Context, appointmentID uuid.UUID, status domain.AppointmentStatus) error
}
