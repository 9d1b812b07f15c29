package in

import (
	"context"

	"github.com/google/uuid"
	"github.com/medibook/booking-slots-service/internal/core/domain"
	"github.com/medibook/booking-slots-service/internal/core/json_types"
)

type BookSlotCommand struct {
	DoctorID  uuid.UUID
	PatientID uuid.UUID
	Date      json_types.Date
	StartTime json_types.TimeOfDay
	Reason    string
}

type BookingUseCase interface {
	// Доступность врача в диапазоне дат: шаблон слотов с наложенной занятостью
	GetAvailability(ctx context.Context, doctorID uuid.UUID, startDate, endDate json_types.Date) ([]domain.DaySlots, error)

	// Доступность нескольких врачей за один запрос
	GetBatchAvailability(ctx context.Context, doctorIDs []uuid.UUID, startDate, endDate json_types.Date) (map[uuid.UUID][]domain.DaySlots, error)

	// Бронирование выбранного слота. При проигранной гонке возвращает
	// domain.ErrSlotUnavailable
	BookSlot(ctx context.Context, cmd BookSlotCommand) (*domain.Appointment, error)

	GetAppointment(ctx context.Context, appointmentID uuid.UUID) (*domain.Appointment, error)

	// Переводы статуса записи по машине состояний
	ConfirmAppointment(ctx context.Context, appointmentID uuid.UUID) (*domain.Appointment, error)
	CompleteAppointment(ctx context.Context, appointmentID uuid.UUID) (*domain.Appointment, error)
	CancelAppointment(ctx context.Context, appointmentID uuid.UUID) (*domain.Appointment, error)
}
