package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/medibook/booking-slots-service/internal/core/json_types"
)

type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "scheduled"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

// Допустимые переходы статусов.
// completed и cancelled - терминальные, из них переходов нет.
var appointmentStatusTransitions = map[AppointmentStatus][]AppointmentStatus{
	AppointmentStatusScheduled: {AppointmentStatusConfirmed, AppointmentStatusCancelled},
	AppointmentStatusConfirmed: {AppointmentStatusCompleted, AppointmentStatusCancelled},
	AppointmentStatusCompleted: {},
	AppointmentStatusCancelled: {},
}

// CanTransitionTo проверяет допустимость перехода статуса
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	for _, allowed := range appointmentStatusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal сообщает, что статус финальный
func (s AppointmentStatus) IsTerminal() bool {
	return len(appointmentStatusTransitions[s]) == 0
}

// Appointment - подтвержденная запись на прием.
// Записи никогда не удаляются, только меняют статус.
type Appointment struct {
	ID        uuid.UUID            `json:"id"`
	DoctorID  uuid.UUID            `json:"doctorId"`
	PatientID uuid.UUID            `json:"patientId"`
	Date      json_types.Date      `json:"date"`
	StartTime json_types.TimeOfDay `json:"startTime"`
	EndTime   json_types.TimeOfDay `json:"endTime"`
	Status    AppointmentStatus    `json:"status"`
	Reason    string               `json:"reason,omitempty"`
	CreatedAt time.Time            `json:"createdAt"`
	UpdatedAt time.Time            `json:"updatedAt"`
}

// Occupies проверяет, занимает ли запись слот с данным началом.
// Отмененные записи слот не занимают.
func (a Appointment) Occupies(date json_types.Date, startTime json_types.TimeOfDay) bool {
	if a.Status == AppointmentStatusCancelled {
		return false
	}
	return a.Date.Equal(date) && a.StartTime == startTime
}
